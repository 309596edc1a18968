package python

import (
	"strings"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
	"github.com/Sumatoshi-tech/metaast/pkg/meta/canon"
	"github.com/Sumatoshi-tech/metaast/pkg/meta/walk"
)

// ToMeta lowers a native tree into MetaAST. Constructs without a Core or
// Extended shape become LanguageSpecific nodes that carry the native subtree.
func (Adapter) ToMeta(native *Node) (*meta.Node, error) {
	if native == nil {
		return nil, meta.NewMalformed(meta.KindInvalid, nil, "nil python node")
	}

	lowering := &metaLowering{done: make(map[*Node]loweredNode)}

	_, _, err := walk.Fold[*Node, struct{}, struct{}](native, struct{}{}, nativeTree{}, nil, lowering.post)
	if err != nil {
		return nil, err
	}

	if native.Type == typeModule {
		statements := native.List("body")
		if len(statements) == 1 {
			return lowering.lower(statements[0])
		}

		return lowering.lowerBlock(statements)
	}

	return lowering.lower(native)
}

// nativeTree is the Tree view of a native tree. Leaves are left out of the
// fold and lowered when first requested.
type nativeTree struct{}

func (nativeTree) Children(node *Node) ([]*Node, bool) {
	if node == nil {
		return nil, false
	}

	var children []*Node

	for _, field := range node.Fields {
		for _, child := range field.Nodes {
			if child != nil && len(child.Fields) > 0 {
				children = append(children, child)
			}
		}
	}

	return children, true
}

type loweredNode struct {
	node *meta.Node
	err  error
}

// metaLowering is one ToMeta run. The fold lowers every subtree bottom-up
// and records the outcome, so a per-type hook reads its operands from done
// instead of descending into them.
type metaLowering struct {
	done map[*Node]loweredNode
}

// post records the lowering of node. Errors are kept, not returned: they
// surface only when a parent asks for that node.
func (lowering *metaLowering) post(node *Node, _ []struct{}, acc struct{}) (struct{}, struct{}, error) {
	if node.Type == typeModule {
		return struct{}{}, acc, nil
	}

	converted, err := lowering.lowerNode(node)
	lowering.done[node] = loweredNode{node: converted, err: err}

	return struct{}{}, acc, nil
}

func (lowering *metaLowering) lower(node *Node) (*meta.Node, error) {
	if node == nil {
		return nil, meta.NewMalformed(meta.KindInvalid, nil, "missing python node")
	}

	if result, ok := lowering.done[node]; ok {
		return result.node, result.err
	}

	return lowering.lowerNode(node)
}

func (lowering *metaLowering) lowerNode(node *Node) (*meta.Node, error) {
	lowerFn, ok := lowerers[node.Type]
	if !ok {
		return escape(node), nil
	}

	lowered, err := lowerFn(lowering, node)
	if err != nil {
		return nil, err
	}

	if lowered == nil {
		return escape(node), nil
	}

	if lowered.Meta == nil || lowered.Meta.Pos == nil {
		lowered = lowered.WithPos(metaPos(node.Pos))
	}

	return lowered, nil
}

// lowerFunc returns nil, nil when the node has no MetaAST shape.
type lowerFunc func(lowering *metaLowering, node *Node) (*meta.Node, error)

//nolint:gochecknoglobals // Dispatch table, assigned in init to break the lowering cycle.
var lowerers map[string]lowerFunc

//nolint:gochecknoinits // See lowerers.
func init() {
	lowerers = map[string]lowerFunc{
		"Expr":        (*metaLowering).lowerExpr,
		"Name":        (*metaLowering).lowerName,
		"Constant":    (*metaLowering).lowerConstant,
		"BinOp":       (*metaLowering).lowerBinOp,
		"UnaryOp":     (*metaLowering).lowerUnaryOp,
		"BoolOp":      (*metaLowering).lowerBoolOp,
		"Compare":     (*metaLowering).lowerCompare,
		"Call":        (*metaLowering).lowerCall,
		"Attribute":   (*metaLowering).lowerAttribute,
		"List":        lowerSequence(meta.NewList),
		"Tuple":       lowerSequence(meta.NewTuple),
		"Dict":        (*metaLowering).lowerDict,
		"ListComp":    (*metaLowering).lowerListComp,
		"IfExp":       (*metaLowering).lowerIfExp,
		"Lambda":      (*metaLowering).lowerLambda,
		"Await":       (*metaLowering).lowerAwait,
		"If":          (*metaLowering).lowerIf,
		"While":       (*metaLowering).lowerWhile,
		"For":         (*metaLowering).lowerFor,
		"Assign":      (*metaLowering).lowerAssign,
		"AugAssign":   (*metaLowering).lowerAugAssign,
		"Return":      (*metaLowering).lowerReturn,
		"FunctionDef": (*metaLowering).lowerFunctionDef,
		"ClassDef":    (*metaLowering).lowerClassDef,
		"Try":         (*metaLowering).lowerTry,
		"Match":       (*metaLowering).lowerMatch,
	}
}

func escape(node *Node) *meta.Node {
	hint := node.Type
	if node.Type == typeVerbatim {
		hint = node.Str(scalarCSTType)
	}

	return meta.NewLanguageSpecific(meta.LanguagePython, hint, node).WithPos(metaPos(node.Pos))
}

func metaPos(pos *Pos) *meta.Position {
	if pos == nil {
		return nil
	}

	return &meta.Position{Line: pos.Line, Column: pos.Col, EndLine: pos.EndLine, EndColumn: pos.EndCol}
}

func malformed(node *Node, kind meta.Kind, field string) error {
	return meta.NewMalformed(kind, nil, node.Type+" has no "+field)
}

// required lowers a mandatory single-node field.
func (lowering *metaLowering) required(node *Node, field string, kind meta.Kind) (*meta.Node, error) {
	child := node.Child(field)
	if child == nil {
		return nil, malformed(node, kind, field)
	}

	return lowering.lower(child)
}

func (lowering *metaLowering) lowerAll(nodes []*Node) ([]*meta.Node, error) {
	lowered := make([]*meta.Node, 0, len(nodes))

	for _, node := range nodes {
		converted, err := lowering.lower(node)
		if err != nil {
			return nil, err
		}

		lowered = append(lowered, converted)
	}

	return lowered, nil
}

// lowerBlock lowers a statement list. A body that is only "pass" is the
// empty block.
func (lowering *metaLowering) lowerBlock(statements []*Node) (*meta.Node, error) {
	if len(statements) == 1 && statements[0] != nil && statements[0].Type == "Pass" {
		return meta.NewBlock(), nil
	}

	lowered, err := lowering.lowerAll(statements)
	if err != nil {
		return nil, err
	}

	return meta.NewBlock(lowered...), nil
}

func (lowering *metaLowering) lowerOptionalBlock(statements []*Node) (*meta.Node, error) {
	if len(statements) == 0 {
		return meta.Absent(), nil
	}

	return lowering.lowerBlock(statements)
}

func (lowering *metaLowering) lowerExpr(node *Node) (*meta.Node, error) {
	return lowering.required(node, "value", meta.KindInvalid)
}

func (lowering *metaLowering) lowerName(node *Node) (*meta.Node, error) {
	id := node.Str(scalarID)
	if id == "" {
		return nil, malformed(node, meta.KindVariable, scalarID)
	}

	return meta.Var(id), nil
}

func (lowering *metaLowering) lowerConstant(node *Node) (*meta.Node, error) {
	if node.Scalar(scalarKind) != nil {
		return nil, nil
	}

	value := node.Scalar(scalarValue)

	switch node.Str(scalarValueType) {
	case valueInt:
		integer, ok := value.(int64)
		if ok {
			return meta.Lit(meta.Int(integer)), nil
		}
	case valueFloat:
		floating, ok := value.(float64)
		if ok {
			return meta.Lit(meta.Float(floating)), nil
		}
	case valueStr:
		text, ok := value.(string)
		if ok {
			return meta.Lit(meta.Str(text)), nil
		}
	case valueBool:
		flag, ok := value.(bool)
		if ok {
			return meta.Lit(meta.Bool(flag)), nil
		}
	case valueNone:
		return meta.Lit(meta.Null()), nil
	}

	return nil, nil
}

func (lowering *metaLowering) lowerBinOp(node *Node) (*meta.Node, error) {
	op, ok := binaryOps[opType(node)]
	if !ok {
		return nil, nil
	}

	left, err := lowering.required(node, "left", meta.KindBinaryOp)
	if err != nil {
		return nil, err
	}

	right, err := lowering.required(node, "right", meta.KindBinaryOp)
	if err != nil {
		return nil, err
	}

	return meta.NewBinaryOp(op.category, op.symbol, left, right), nil
}

func opType(node *Node) string {
	op := node.Child("op")
	if op == nil {
		return ""
	}

	return op.Type
}

func (lowering *metaLowering) lowerUnaryOp(node *Node) (*meta.Node, error) {
	op, ok := unaryOps[opType(node)]
	if !ok {
		return nil, nil
	}

	operand, err := lowering.required(node, "operand", meta.KindUnaryOp)
	if err != nil {
		return nil, err
	}

	return meta.NewUnaryOp(op.category, op.symbol, operand), nil
}

// lowerBoolOp folds "a and b and c" to the left.
func (lowering *metaLowering) lowerBoolOp(node *Node) (*meta.Node, error) {
	op, ok := boolOps[opType(node)]
	if !ok {
		return nil, nil
	}

	values := node.List("values")
	if len(values) < 2 {
		return nil, malformed(node, meta.KindBinaryOp, "second operand")
	}

	operands, err := lowering.lowerAll(values)
	if err != nil {
		return nil, err
	}

	folded := operands[0]
	for _, operand := range operands[1:] {
		folded = meta.NewBinaryOp(op.category, op.symbol, folded, operand)
	}

	return folded, nil
}

// lowerCompare handles single comparisons; chains have no binary shape.
func (lowering *metaLowering) lowerCompare(node *Node) (*meta.Node, error) {
	ops := node.List("ops")
	comparators := node.List("comparators")

	if len(ops) != 1 || len(comparators) != 1 || ops[0] == nil {
		return nil, nil
	}

	op, ok := compareOps[ops[0].Type]
	if !ok {
		return nil, nil
	}

	left, err := lowering.required(node, "left", meta.KindBinaryOp)
	if err != nil {
		return nil, err
	}

	right, err := lowering.lower(comparators[0])
	if err != nil {
		return nil, err
	}

	return meta.NewBinaryOp(op.category, op.symbol, left, right), nil
}

// dottedName renders Name and Attribute-of-Name chains as "a.b.c".
func dottedName(node *Node) (string, bool) {
	parts := []string{}

	for node != nil {
		switch node.Type {
		case "Name":
			parts = append(parts, node.Str(scalarID))

			for left, right := 0, len(parts)-1; left < right; left, right = left+1, right-1 {
				parts[left], parts[right] = parts[right], parts[left]
			}

			return strings.Join(parts, "."), true
		case "Attribute":
			parts = append(parts, node.Str(scalarAttr))
			node = node.Child("value")
		default:
			return "", false
		}
	}

	return "", false
}

func (lowering *metaLowering) lowerCall(node *Node) (*meta.Node, error) {
	if len(node.List("keywords")) > 0 {
		return nil, nil
	}

	rawArgs := node.List("args")
	for _, arg := range rawArgs {
		if arg == nil || arg.Type == "Starred" {
			return nil, nil
		}
	}

	fn := node.Child("func")
	if fn == nil {
		return nil, malformed(node, meta.KindFunctionCall, "func")
	}

	args, err := lowering.lowerAll(rawArgs)
	if err != nil {
		return nil, err
	}

	if name, ok := dottedName(fn); ok {
		call := meta.NewCall(name, args...).WithPos(metaPos(node.Pos))

		return canon.Collection(call, meta.LanguagePython), nil
	}

	if fn.Type != "Attribute" {
		return nil, nil
	}

	receiver, err := lowering.required(fn, "value", meta.KindFunctionCall)
	if err != nil {
		return nil, err
	}

	return meta.NewMethodCall(receiver, fn.Str(scalarAttr), args...), nil
}

func (lowering *metaLowering) lowerAttribute(node *Node) (*meta.Node, error) {
	receiver, err := lowering.required(node, "value", meta.KindAttributeAccess)
	if err != nil {
		return nil, err
	}

	return meta.NewAttributeAccess(receiver, node.Str(scalarAttr)), nil
}

func lowerSequence(build func(...*meta.Node) *meta.Node) lowerFunc {
	return func(lowering *metaLowering, node *Node) (*meta.Node, error) {
		elements, err := lowering.lowerAll(node.List("elts"))
		if err != nil {
			return nil, err
		}

		return build(elements...), nil
	}
}

func (lowering *metaLowering) lowerDict(node *Node) (*meta.Node, error) {
	keys := node.List("keys")
	values := node.List("values")

	if len(keys) != len(values) {
		return nil, malformed(node, meta.KindMap, "matching keys and values")
	}

	pairs := make([]*meta.Node, 0, len(keys))

	for idx, key := range keys {
		// A nil key is "**other" unpacking.
		if key == nil {
			return nil, nil
		}

		loweredKey, err := lowering.lower(key)
		if err != nil {
			return nil, err
		}

		loweredValue, err := lowering.lower(values[idx])
		if err != nil {
			return nil, err
		}

		pairs = append(pairs, meta.NewPair(loweredKey, loweredValue))
	}

	return meta.NewMap(pairs...), nil
}

// lowerListComp maps "[f(x) for x in xs]" to CollectionOp{map}. Filters,
// nested generators and destructuring targets stay native.
func (lowering *metaLowering) lowerListComp(node *Node) (*meta.Node, error) {
	generators := node.List("generators")
	if len(generators) != 1 || generators[0] == nil {
		return nil, nil
	}

	generator := generators[0]
	target := generator.Child("target")

	if target == nil || target.Type != "Name" || len(generator.List("ifs")) > 0 {
		return nil, nil
	}

	if isAsync, _ := generator.Scalar(scalarIsAsync).(int64); isAsync != 0 {
		return nil, nil
	}

	elt, err := lowering.required(node, "elt", meta.KindCollectionOp)
	if err != nil {
		return nil, err
	}

	iter, err := lowering.required(generator, "iter", meta.KindCollectionOp)
	if err != nil {
		return nil, err
	}

	fn := meta.NewLambda([]string{target.Str(scalarID)}, elt)
	op := meta.NewCollectionOp(meta.CollectionMap, fn, iter, nil)

	return op.WithHint(meta.HintForm, formComprehension).WithPos(metaPos(node.Pos)), nil
}

const formComprehension = "comprehension"

func (lowering *metaLowering) lowerIfExp(node *Node) (*meta.Node, error) {
	test, err := lowering.required(node, "test", meta.KindConditional)
	if err != nil {
		return nil, err
	}

	body, err := lowering.required(node, "body", meta.KindConditional)
	if err != nil {
		return nil, err
	}

	orelse, err := lowering.required(node, "orelse", meta.KindConditional)
	if err != nil {
		return nil, err
	}

	return meta.NewConditional(test, body, orelse), nil
}

// simpleParams returns the parameter names of an arguments node that has
// only plain positional parameters.
func simpleParams(arguments *Node) ([]string, bool) {
	if arguments == nil {
		return nil, true
	}

	for _, field := range []string{"posonlyargs", "kwonlyargs", "kw_defaults", "defaults"} {
		if len(arguments.List(field)) > 0 {
			return nil, false
		}
	}

	if arguments.Child("vararg") != nil || arguments.Child("kwarg") != nil {
		return nil, false
	}

	args := arguments.List("args")
	names := make([]string, 0, len(args))

	for _, arg := range args {
		if arg == nil || arg.Child("annotation") != nil || arg.Scalar("type_comment") != nil {
			return nil, false
		}

		names = append(names, arg.Str(scalarArg))
	}

	return names, true
}

func (lowering *metaLowering) lowerLambda(node *Node) (*meta.Node, error) {
	params, ok := simpleParams(node.Child("args"))
	if !ok {
		return nil, nil
	}

	body, err := lowering.required(node, "body", meta.KindLambda)
	if err != nil {
		return nil, err
	}

	return meta.NewLambda(params, body), nil
}

func (lowering *metaLowering) lowerAwait(node *Node) (*meta.Node, error) {
	value, err := lowering.required(node, "value", meta.KindAsyncOperation)
	if err != nil {
		return nil, err
	}

	return meta.NewAsync(meta.AsyncAwait, value), nil
}

func (lowering *metaLowering) lowerIf(node *Node) (*meta.Node, error) {
	test, err := lowering.required(node, "test", meta.KindConditional)
	if err != nil {
		return nil, err
	}

	body, err := lowering.lowerBlock(node.List("body"))
	if err != nil {
		return nil, err
	}

	orelse, err := lowering.lowerOptionalBlock(node.List("orelse"))
	if err != nil {
		return nil, err
	}

	return meta.NewConditional(test, body, orelse), nil
}

func (lowering *metaLowering) lowerWhile(node *Node) (*meta.Node, error) {
	if len(node.List("orelse")) > 0 {
		return nil, nil
	}

	test, err := lowering.required(node, "test", meta.KindLoop)
	if err != nil {
		return nil, err
	}

	body, err := lowering.lowerBlock(node.List("body"))
	if err != nil {
		return nil, err
	}

	return meta.NewWhile(test, body), nil
}

func (lowering *metaLowering) lowerFor(node *Node) (*meta.Node, error) {
	if len(node.List("orelse")) > 0 || node.Scalar("type_comment") != nil {
		return nil, nil
	}

	target, err := lowering.required(node, "target", meta.KindLoop)
	if err != nil {
		return nil, err
	}

	iter, err := lowering.required(node, "iter", meta.KindLoop)
	if err != nil {
		return nil, err
	}

	body, err := lowering.lowerBlock(node.List("body"))
	if err != nil {
		return nil, err
	}

	return meta.NewForEach(target, iter, body), nil
}

func (lowering *metaLowering) lowerAssign(node *Node) (*meta.Node, error) {
	targets := node.List("targets")
	if len(targets) != 1 || node.Scalar("type_comment") != nil {
		return nil, nil
	}

	target, err := lowering.lower(targets[0])
	if err != nil {
		return nil, err
	}

	value, err := lowering.required(node, "value", meta.KindAssignment)
	if err != nil {
		return nil, err
	}

	return meta.NewAssignment(target, value), nil
}

func (lowering *metaLowering) lowerAugAssign(node *Node) (*meta.Node, error) {
	op, ok := binaryOps[opType(node)]
	if !ok {
		return nil, nil
	}

	target, err := lowering.required(node, "target", meta.KindAugmentedAssignment)
	if err != nil {
		return nil, err
	}

	value, err := lowering.required(node, "value", meta.KindAugmentedAssignment)
	if err != nil {
		return nil, err
	}

	return meta.NewAugmentedAssignment(op.category, op.symbol, target, value), nil
}

func (lowering *metaLowering) lowerReturn(node *Node) (*meta.Node, error) {
	value := node.Child("value")
	if value == nil {
		return meta.NewReturn(nil), nil
	}

	lowered, err := lowering.lower(value)
	if err != nil {
		return nil, err
	}

	return meta.NewReturn(lowered), nil
}

// visibilityOf follows the underscore convention: a leading underscore marks
// a private name unless the name is a dunder.
func visibilityOf(name string) meta.Visibility {
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return meta.VisibilityPublic
	}

	if strings.HasPrefix(name, "_") {
		return meta.VisibilityPrivate
	}

	return meta.VisibilityPublic
}

func (lowering *metaLowering) lowerFunctionDef(node *Node) (*meta.Node, error) {
	if len(node.List("decorator_list")) > 0 || node.Child("returns") != nil ||
		len(node.List("type_params")) > 0 || node.Scalar("type_comment") != nil {
		return nil, nil
	}

	params, ok := simpleParams(node.Child("args"))
	if !ok {
		return nil, nil
	}

	body, err := lowering.lowerBlock(node.List("body"))
	if err != nil {
		return nil, err
	}

	name := node.Str(scalarName)

	return meta.NewFunctionDef(name, visibilityOf(name), params, body), nil
}

func (lowering *metaLowering) lowerClassDef(node *Node) (*meta.Node, error) {
	if len(node.List("keywords")) > 0 || len(node.List("decorator_list")) > 0 ||
		len(node.List("type_params")) > 0 {
		return nil, nil
	}

	bases := []string{}

	for _, base := range node.List("bases") {
		name, ok := dottedName(base)
		if !ok {
			return nil, nil
		}

		bases = append(bases, name)
	}

	body, err := lowering.lowerBlock(node.List("body"))
	if err != nil {
		return nil, err
	}

	return meta.NewContainer(meta.ContainerClass, node.Str(scalarName), bases, body), nil
}

func (lowering *metaLowering) lowerTry(node *Node) (*meta.Node, error) {
	if len(node.List("orelse")) > 0 {
		return nil, nil
	}

	clauses := make([]*meta.Node, 0, len(node.List("handlers")))

	for _, handler := range node.List("handlers") {
		if handler == nil {
			return nil, malformed(node, meta.KindExceptionHandling, "handler")
		}

		exceptionType := ""

		if typ := handler.Child("type"); typ != nil {
			name, ok := dottedName(typ)
			if !ok {
				return nil, nil
			}

			exceptionType = name
		}

		body, err := lowering.lowerBlock(handler.List("body"))
		if err != nil {
			return nil, err
		}

		clause := meta.NewCatchClause(exceptionType, handler.Str(scalarName), body)
		clauses = append(clauses, clause.WithPos(metaPos(handler.Pos)))
	}

	body, err := lowering.lowerBlock(node.List("body"))
	if err != nil {
		return nil, err
	}

	finally, err := lowering.lowerOptionalBlock(node.List("finalbody"))
	if err != nil {
		return nil, err
	}

	return meta.NewExceptionHandling(body, finally, clauses...), nil
}

func (lowering *metaLowering) lowerMatch(node *Node) (*meta.Node, error) {
	subject, err := lowering.required(node, "subject", meta.KindPatternMatch)
	if err != nil {
		return nil, err
	}

	arms := make([]*meta.Node, 0, len(node.List("cases")))

	for _, matchCase := range node.List("cases") {
		if matchCase == nil {
			return nil, malformed(node, meta.KindPatternMatch, "case")
		}

		pattern, err := lowering.lowerPattern(matchCase.Child("pattern"))
		if err != nil {
			return nil, err
		}

		var guard *meta.Node

		if rawGuard := matchCase.Child("guard"); rawGuard != nil {
			guard, err = lowering.lower(rawGuard)
			if err != nil {
				return nil, err
			}
		}

		body, err := lowering.lowerBlock(matchCase.List("body"))
		if err != nil {
			return nil, err
		}

		arms = append(arms, meta.NewMatchArm(pattern, guard, body))
	}

	return meta.NewPatternMatch(subject, arms...), nil
}

// lowerPattern maps value, singleton, capture, wildcard and sequence
// patterns. Others stay native in the pattern slot.
func (lowering *metaLowering) lowerPattern(pattern *Node) (*meta.Node, error) {
	if pattern == nil {
		return nil, meta.NewMalformed(meta.KindMatchArm, nil, "match_case has no pattern")
	}

	switch pattern.Type {
	case "MatchValue":
		return lowering.required(pattern, "value", meta.KindMatchArm)
	case "MatchSingleton":
		switch value := pattern.Scalar(scalarValue).(type) {
		case nil:
			return meta.Lit(meta.Null()), nil
		case bool:
			return meta.Lit(meta.Bool(value)), nil
		}
	case "MatchAs":
		if pattern.Child("pattern") != nil {
			break
		}

		name := pattern.Str(scalarName)
		if name == "" {
			name = wildcard
		}

		return meta.Var(name).WithPos(metaPos(pattern.Pos)), nil
	case "MatchSequence":
		elements := make([]*meta.Node, 0, len(pattern.List("patterns")))

		for _, item := range pattern.List("patterns") {
			lowered, err := lowering.lowerPattern(item)
			if err != nil {
				return nil, err
			}

			elements = append(elements, lowered)
		}

		return meta.NewList(elements...), nil
	}

	return escape(pattern), nil
}

const wildcard = "_"
