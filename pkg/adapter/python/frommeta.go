package python

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/Sumatoshi-tech/metaast/pkg/adapter"
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
	"github.com/Sumatoshi-tech/metaast/pkg/meta/canon"
	"github.com/Sumatoshi-tech/metaast/pkg/meta/validate"
	"github.com/Sumatoshi-tech/metaast/pkg/meta/walk"
)

const (
	ctxLoad  = "Load"
	ctxStore = "Store"
)

// FromMeta rebuilds a Module from MetaAST. A root Block becomes the module
// body; any other root becomes its single statement.
func (Adapter) FromMeta(root *meta.Node, opts adapter.FromMetaOptions) (*Node, error) {
	if root == nil {
		return nil, meta.NewMalformed(meta.KindInvalid, nil, "nil root")
	}

	err := validate.Check(root)
	if err != nil {
		return nil, err
	}

	builder := &raiser{
		opts:      opts,
		doneExprs: make(map[*meta.Node]raisedExpr),
		doneStmts: make(map[*meta.Node]raisedStmts),
	}

	_, _, err = walk.Fold[*meta.Node, struct{}, struct{}](root, struct{}{}, raiseTree{}, nil, builder.post)
	if err != nil {
		return nil, err
	}

	if _, isBlock := root.Attrs.(meta.BlockAttrs); isBlock {
		body, err := builder.flatten(root)
		if err != nil {
			return nil, err
		}

		return newModule(body...), nil
	}

	statements, err := builder.stmt(root)
	if err != nil {
		return nil, err
	}

	return newModule(statements...), nil
}

// raiser is one FromMeta run. The fold raises every node bottom-up in the
// role its kind implies and records the outcome; the role methods read
// operands from those records.
type raiser struct {
	doneExprs map[*meta.Node]raisedExpr
	doneStmts map[*meta.Node]raisedStmts
	opts      adapter.FromMetaOptions
}

type raisedExpr struct {
	native *Node
	err    error
}

type raisedStmts struct {
	err     error
	natives []*Node
}

// raiseTree is MetaTree with boolean chains flattened to their operands.
type raiseTree struct{}

func (raiseTree) Children(node *meta.Node) ([]*meta.Node, bool) {
	if node == nil {
		return nil, true
	}

	if attrs, ok := node.Attrs.(meta.BinaryOpAttrs); ok && attrs.Category == meta.OpBoolean {
		return boolOperands(node, attrs), true
	}

	return walk.MetaTree{}.Children(node)
}

// post records node in its natural role. Errors are kept, not returned:
// they surface only when a parent asks for that node.
func (builder *raiser) post(node *meta.Node, _ []struct{}, acc struct{}) (struct{}, struct{}, error) {
	if node == nil {
		return struct{}{}, acc, nil
	}

	if isStatement(node) {
		natives, err := builder.raiseStmt(node)
		builder.doneStmts[node] = raisedStmts{natives: natives, err: err}
	} else {
		native, err := builder.raiseExpr(node)
		builder.doneExprs[node] = raisedExpr{native: native, err: err}
	}

	return struct{}{}, acc, nil
}

func isStatement(node *meta.Node) bool {
	switch node.Attrs.(type) {
	case meta.BlockAttrs, meta.LoopAttrs, meta.AssignmentAttrs, meta.InlineMatchAttrs,
		meta.AugmentedAssignmentAttrs, meta.EarlyReturnAttrs, meta.FunctionDefAttrs,
		meta.ContainerAttrs, meta.ExceptionHandlingAttrs, meta.PatternMatchAttrs:
		return true
	case meta.ConditionalAttrs:
		_, isBlock := node.Child(1).Attrs.(meta.BlockAttrs)

		return isBlock
	default:
		return false
	}
}

func (builder *raiser) stmt(node *meta.Node) ([]*Node, error) {
	if raised, ok := builder.doneStmts[node]; ok {
		return raised.natives, raised.err
	}

	return builder.raiseStmt(node)
}

func (builder *raiser) expr(node *meta.Node) (*Node, error) {
	if raised, ok := builder.doneExprs[node]; ok {
		return raised.native, raised.err
	}

	return builder.raiseExpr(node)
}

func unsupported(node *meta.Node, reason string) error {
	return meta.NewUnsupported(meta.LanguagePython, node.Kind(), reason)
}

func withPos(native *Node, node *meta.Node) *Node {
	pos := node.Pos()
	if pos == nil || native.Pos != nil || node.Kind() == meta.KindLanguageSpecific {
		return native
	}

	native.Pos = &Pos{Line: pos.Line, Col: pos.Column, EndLine: pos.EndLine, EndCol: pos.EndColumn}

	return native
}

// body renders a statement block. The empty block is "pass".
func (builder *raiser) body(node *meta.Node) ([]*Node, error) {
	statements, err := builder.flatten(node)
	if err != nil {
		return nil, err
	}

	if len(statements) == 0 {
		return []*Node{NewNode("Pass")}, nil
	}

	return statements, nil
}

// optionalBody renders an optional block; Absent is no statements at all.
func (builder *raiser) optionalBody(node *meta.Node) ([]*Node, error) {
	if node == nil || node.IsAbsent() {
		return nil, nil
	}

	return builder.body(node)
}

// flatten renders a node as a statement list, splicing nested blocks.
func (builder *raiser) flatten(node *meta.Node) ([]*Node, error) {
	if _, isBlock := node.Attrs.(meta.BlockAttrs); !isBlock {
		return builder.stmt(node)
	}

	statements := make([]*Node, 0, len(node.Children))

	for _, child := range node.Children {
		if child == nil {
			return nil, meta.NewMalformed(meta.KindBlock, nil, "nil statement")
		}

		rendered, err := builder.stmt(child)
		if err != nil {
			return nil, err
		}

		statements = append(statements, rendered...)
	}

	return statements, nil
}

//nolint:cyclop,funlen,gocyclo // One case per statement kind.
func (builder *raiser) raiseStmt(node *meta.Node) ([]*Node, error) {
	var (
		native *Node
		err    error
	)

	switch attrs := node.Attrs.(type) {
	case meta.BlockAttrs:
		return builder.flatten(node)
	case meta.ConditionalAttrs:
		if _, isBlock := node.Child(1).Attrs.(meta.BlockAttrs); !isBlock {
			native, err = builder.exprStatement(node)

			break
		}

		native, err = builder.ifStatement(node)
	case meta.LoopAttrs:
		native, err = builder.loop(node, attrs)
	case meta.AssignmentAttrs:
		native, err = builder.assign(node.Child(0), node.Child(1))
	case meta.InlineMatchAttrs:
		if !isDestructurable(node.Child(0)) {
			return nil, unsupported(node, "only variable and tuple patterns have an assignment form")
		}

		native, err = builder.assign(node.Child(0), node.Child(1))
	case meta.AugmentedAssignmentAttrs:
		native, err = builder.augAssign(node, attrs)
	case meta.EarlyReturnAttrs:
		native, err = builder.ret(node)
	case meta.FunctionDefAttrs:
		native, err = builder.functionDef(node, attrs)
	case meta.ContainerAttrs:
		native, err = builder.classDef(node, attrs)
	case meta.ExceptionHandlingAttrs:
		native, err = builder.try(node)
	case meta.PatternMatchAttrs:
		native, err = builder.match(node)
	case meta.LanguageSpecificAttrs:
		native, err = nativeOf(node, attrs)
		if err == nil && !native.isStatement() {
			native = newExpr(native)
		}
	default:
		native, err = builder.exprStatement(node)
	}

	if err != nil {
		return nil, err
	}

	return []*Node{withPos(native, node)}, nil
}

func (builder *raiser) exprStatement(node *meta.Node) (*Node, error) {
	value, err := builder.expr(node)
	if err != nil {
		return nil, err
	}

	return newExpr(value), nil
}

func (builder *raiser) ifStatement(node *meta.Node) (*Node, error) {
	test, err := builder.expr(node.Child(0))
	if err != nil {
		return nil, err
	}

	body, err := builder.body(node.Child(1))
	if err != nil {
		return nil, err
	}

	orelse, err := builder.optionalBody(node.Child(2))
	if err != nil {
		return nil, err
	}

	return newIf(test, body, orelse), nil
}

func (builder *raiser) loop(node *meta.Node, attrs meta.LoopAttrs) (*Node, error) {
	switch attrs.LoopType {
	case meta.LoopWhile:
		test, err := builder.expr(node.Child(0))
		if err != nil {
			return nil, err
		}

		body, err := builder.body(node.Child(1))
		if err != nil {
			return nil, err
		}

		return newWhile(test, body), nil
	case meta.LoopForEach:
		target, err := builder.target(node.Child(0))
		if err != nil {
			return nil, err
		}

		iter, err := builder.expr(node.Child(1))
		if err != nil {
			return nil, err
		}

		body, err := builder.body(node.Child(2))
		if err != nil {
			return nil, err
		}

		return newFor(target, iter, body), nil
	default:
		return nil, unsupported(node, "unknown loop type "+string(attrs.LoopType))
	}
}

func isDestructurable(pattern *meta.Node) bool {
	switch pattern.Attrs.(type) {
	case meta.VariableAttrs:
		return true
	case meta.TupleAttrs, meta.ListAttrs:
		for _, child := range pattern.Children {
			if child == nil || child.Kind() != meta.KindVariable {
				return false
			}
		}

		return true
	default:
		return false
	}
}

func (builder *raiser) assign(targetNode, valueNode *meta.Node) (*Node, error) {
	target, err := builder.target(targetNode)
	if err != nil {
		return nil, err
	}

	value, err := builder.expr(valueNode)
	if err != nil {
		return nil, err
	}

	return newAssign(target, value), nil
}

func (builder *raiser) augAssign(node *meta.Node, attrs meta.AugmentedAssignmentAttrs) (*Node, error) {
	operator, ok := lookupReverse(attrs.Category, attrs.Operator, opBin)
	if !ok {
		return nil, unsupported(node, "no augmented form of "+attrs.Operator)
	}

	target, err := builder.target(node.Child(0))
	if err != nil {
		return nil, err
	}

	value, err := builder.expr(node.Child(1))
	if err != nil {
		return nil, err
	}

	return newAugAssign(target, operator, value), nil
}

func (builder *raiser) ret(node *meta.Node) (*Node, error) {
	value := node.Child(0)
	if value == nil || value.IsAbsent() {
		return newReturn(nil), nil
	}

	rendered, err := builder.expr(value)
	if err != nil {
		return nil, err
	}

	return newReturn(rendered), nil
}

func (builder *raiser) functionDef(node *meta.Node, attrs meta.FunctionDefAttrs) (*Node, error) {
	name := attrs.Name
	if attrs.Visibility == meta.VisibilityPrivate && !strings.HasPrefix(name, "_") {
		name = "_" + name
	}

	if !isIdentifier(name) {
		return nil, unsupported(node, "invalid function name "+name)
	}

	params := meta.ParamNames(attrs.Params)
	for _, param := range params {
		if !isIdentifier(param) {
			return nil, unsupported(node, "invalid parameter name "+param)
		}
	}

	body, err := builder.body(node.Child(0))
	if err != nil {
		return nil, err
	}

	return newFunctionDef(name, params, body), nil
}

func (builder *raiser) classDef(node *meta.Node, attrs meta.ContainerAttrs) (*Node, error) {
	if attrs.ContainerType != meta.ContainerClass {
		return nil, unsupported(node, "python has no "+string(attrs.ContainerType)+" container")
	}

	bases := make([]*Node, 0, len(attrs.Bases))

	for _, base := range attrs.Bases {
		expr, ok := dottedExpr(base)
		if !ok {
			return nil, unsupported(node, "invalid base "+base)
		}

		bases = append(bases, expr)
	}

	body, err := builder.body(node.Child(0))
	if err != nil {
		return nil, err
	}

	return newClassDef(attrs.Name, bases, body), nil
}

func (builder *raiser) try(node *meta.Node) (*Node, error) {
	body, err := builder.body(node.Child(0))
	if err != nil {
		return nil, err
	}

	finalbody, err := builder.optionalBody(node.Child(1))
	if err != nil {
		return nil, err
	}

	handlers := make([]*Node, 0, len(node.Children)-2)

	for _, clause := range node.Children[2:] {
		attrs, ok := clause.Attrs.(meta.CatchClauseAttrs)
		if !ok {
			return nil, meta.NewMalformed(meta.KindExceptionHandling, nil, "expected CatchClause")
		}

		var exceptionType *Node

		if attrs.ExceptionType != "" {
			exceptionType, ok = dottedExpr(attrs.ExceptionType)
			if !ok {
				return nil, unsupported(clause, "invalid exception type "+attrs.ExceptionType)
			}
		}

		handlerBody, err := builder.body(clause.Child(0))
		if err != nil {
			return nil, err
		}

		handlers = append(handlers, withPos(newExceptHandler(exceptionType, attrs.Binding, handlerBody), clause))
	}

	if len(handlers) == 0 && len(finalbody) == 0 {
		return nil, unsupported(node, "try needs a handler or a finally block")
	}

	return newTry(body, handlers, finalbody), nil
}

func (builder *raiser) match(node *meta.Node) (*Node, error) {
	subject, err := builder.expr(node.Child(0))
	if err != nil {
		return nil, err
	}

	cases := make([]*Node, 0, len(node.Children)-1)

	for _, arm := range node.Children[1:] {
		if arm.Kind() != meta.KindMatchArm {
			return nil, meta.NewMalformed(meta.KindPatternMatch, nil, "expected MatchArm")
		}

		pattern, err := builder.pattern(arm.Child(0))
		if err != nil {
			return nil, err
		}

		var guard *Node

		if rawGuard := arm.Child(1); rawGuard != nil && !rawGuard.IsAbsent() {
			guard, err = builder.expr(rawGuard)
			if err != nil {
				return nil, err
			}
		}

		body, err := builder.body(arm.Child(2))
		if err != nil {
			return nil, err
		}

		cases = append(cases, NewNode("match_case").Set("pattern", pattern).Set("guard", guard).SetList("body", body...))
	}

	return NewNode("Match").Set("subject", subject).SetList("cases", cases...), nil
}

func newMatchAs(name string) *Node {
	node := NewNode("MatchAs").Set("pattern", nil)
	if name != wildcard {
		node.SetScalar(scalarName, name)
	}

	return node
}

func (builder *raiser) pattern(node *meta.Node) (*Node, error) {
	switch attrs := node.Attrs.(type) {
	case meta.VariableAttrs:
		return newMatchAs(attrs.Name), nil
	case meta.LiteralAttrs:
		switch attrs.Value.Type {
		case meta.LiteralNull:
			return NewNode("MatchSingleton").SetScalar(scalarValue, nil), nil
		case meta.LiteralBoolean:
			return NewNode("MatchSingleton").SetScalar(scalarValue, attrs.Value.Bool), nil
		default:
			value, err := builder.expr(node)
			if err != nil {
				return nil, err
			}

			return NewNode("MatchValue").Set("value", value), nil
		}
	case meta.UnaryOpAttrs, meta.AttributeAccessAttrs:
		value, err := builder.expr(node)
		if err != nil {
			return nil, err
		}

		return NewNode("MatchValue").Set("value", value), nil
	case meta.ListAttrs, meta.TupleAttrs:
		patterns := make([]*Node, 0, len(node.Children))

		for _, child := range node.Children {
			rendered, err := builder.pattern(child)
			if err != nil {
				return nil, err
			}

			patterns = append(patterns, rendered)
		}

		return NewNode("MatchSequence").SetList("patterns", patterns...), nil
	case meta.LanguageSpecificAttrs:
		return nativeOf(node, attrs)
	default:
		return nil, unsupported(node, "no pattern form")
	}
}

// target renders an assignment target with Store context.
func (builder *raiser) target(node *meta.Node) (*Node, error) {
	switch attrs := node.Attrs.(type) {
	case meta.VariableAttrs:
		if !isIdentifier(attrs.Name) {
			return nil, unsupported(node, "invalid name "+attrs.Name)
		}

		return withPos(newName(attrs.Name, ctxStore), node), nil
	case meta.TupleAttrs, meta.ListAttrs:
		elements := make([]*Node, 0, len(node.Children))

		for _, child := range node.Children {
			rendered, err := builder.target(child)
			if err != nil {
				return nil, err
			}

			elements = append(elements, rendered)
		}

		typ := "Tuple"
		if node.Kind() == meta.KindList {
			typ = "List"
		}

		return newSequence(typ, ctxStore, elements...), nil
	case meta.AttributeAccessAttrs:
		receiver, err := builder.expr(node.Child(0))
		if err != nil {
			return nil, err
		}

		return newAttribute(receiver, attrs.Attribute, ctxStore), nil
	case meta.LanguageSpecificAttrs:
		return nativeOf(node, attrs)
	default:
		return nil, unsupported(node, "not an assignment target")
	}
}

//nolint:cyclop,funlen,gocyclo // One case per expression kind.
func (builder *raiser) raiseExpr(node *meta.Node) (*Node, error) {
	if node == nil {
		return nil, meta.NewMalformed(meta.KindInvalid, nil, "missing expression")
	}

	var (
		native *Node
		err    error
	)

	switch attrs := node.Attrs.(type) {
	case meta.LiteralAttrs:
		native, err = constantOf(node, attrs.Value)
	case meta.VariableAttrs:
		if !isIdentifier(attrs.Name) {
			return nil, unsupported(node, "invalid name "+attrs.Name)
		}

		native = newName(attrs.Name, ctxLoad)
	case meta.ListAttrs:
		native, err = builder.sequence("List", node)
	case meta.TupleAttrs, meta.PairAttrs:
		native, err = builder.sequence("Tuple", node)
	case meta.MapAttrs:
		native, err = builder.dict(node)
	case meta.BinaryOpAttrs:
		native, err = builder.binary(node, attrs)
	case meta.UnaryOpAttrs:
		native, err = builder.unary(node, attrs)
	case meta.FunctionCallAttrs:
		native, err = builder.call(node, attrs)
	case meta.ConditionalAttrs:
		native, err = builder.ifExp(node)
	case meta.LambdaAttrs:
		native, err = builder.lambda(node, attrs)
	case meta.CollectionOpAttrs:
		native, err = builder.collectionOp(node, attrs)
	case meta.AsyncOperationAttrs:
		if attrs.AsyncType != meta.AsyncAwait {
			return nil, unsupported(node, "python has no "+string(attrs.AsyncType)+" expression")
		}

		var value *Node

		value, err = builder.expr(node.Child(0))
		native = NewNode("Await").Set("value", value)
	case meta.AttributeAccessAttrs:
		var receiver *Node

		receiver, err = builder.expr(node.Child(0))
		native = newAttribute(receiver, attrs.Attribute, ctxLoad)
	case meta.BlockAttrs:
		if len(node.Children) != 1 {
			return nil, unsupported(node, "block used as an expression")
		}

		return builder.expr(node.Children[0])
	case meta.LanguageSpecificAttrs:
		native, err = nativeOf(node, attrs)
		if err == nil && native.isStatement() {
			return nil, unsupported(node, native.Type+" used as an expression")
		}
	case meta.AbsentAttrs:
		return nil, meta.NewMalformed(meta.KindAbsent, nil, "absent value in a required slot")
	default:
		return nil, unsupported(node, "no expression form")
	}

	if err != nil {
		return nil, err
	}

	return withPos(native, node), nil
}

func constantOf(node *meta.Node, value meta.Value) (*Node, error) {
	switch value.Type {
	case meta.LiteralInteger:
		return newConstant(valueInt, value.Int), nil
	case meta.LiteralFloat:
		return newConstant(valueFloat, value.Float), nil
	case meta.LiteralString:
		return newConstant(valueStr, value.Str), nil
	case meta.LiteralBoolean:
		return newConstant(valueBool, value.Bool), nil
	case meta.LiteralNull:
		return newConstant(valueNone, nil), nil
	default:
		return nil, unsupported(node, "python has no "+string(value.Type)+" literal")
	}
}

func (builder *raiser) exprs(nodes []*meta.Node) ([]*Node, error) {
	rendered := make([]*Node, 0, len(nodes))

	for _, node := range nodes {
		native, err := builder.expr(node)
		if err != nil {
			return nil, err
		}

		rendered = append(rendered, native)
	}

	return rendered, nil
}

func (builder *raiser) sequence(typ string, node *meta.Node) (*Node, error) {
	elements, err := builder.exprs(node.Children)
	if err != nil {
		return nil, err
	}

	return newSequence(typ, ctxLoad, elements...), nil
}

func (builder *raiser) dict(node *meta.Node) (*Node, error) {
	keys := make([]*Node, 0, len(node.Children))
	values := make([]*Node, 0, len(node.Children))

	for _, pair := range node.Children {
		if pair == nil || pair.Kind() != meta.KindPair {
			return nil, meta.NewMalformed(meta.KindMap, nil, "expected Pair")
		}

		key, err := builder.expr(pair.Child(0))
		if err != nil {
			return nil, err
		}

		value, err := builder.expr(pair.Child(1))
		if err != nil {
			return nil, err
		}

		keys = append(keys, key)
		values = append(values, value)
	}

	return newDict(keys, values), nil
}

func (builder *raiser) binary(node *meta.Node, attrs meta.BinaryOpAttrs) (*Node, error) {
	switch attrs.Category {
	case meta.OpComparison:
		operator, ok := lookupReverse(attrs.Category, attrs.Operator, opCompare)
		if !ok {
			return nil, unsupported(node, "no comparison "+attrs.Operator)
		}

		operands, err := builder.exprs(node.Children)
		if err != nil {
			return nil, err
		}

		return newCompare(operands[0], []string{operator}, operands[1:]), nil
	case meta.OpBoolean:
		operator, ok := lookupReverse(attrs.Category, attrs.Operator, opBool)
		if !ok {
			return nil, unsupported(node, "no boolean operator "+attrs.Operator)
		}

		return builder.boolOp(node, attrs, operator)
	case meta.OpConcat:
		left, right, err := builder.pair(node)
		if err != nil {
			return nil, err
		}

		return newBinOp(left, "Add", right), nil
	default:
		operator, ok := lookupReverse(attrs.Category, attrs.Operator, opBin)
		if !ok {
			return nil, unsupported(node, "no operator "+attrs.Operator)
		}

		left, right, err := builder.pair(node)
		if err != nil {
			return nil, err
		}

		return newBinOp(left, operator, right), nil
	}
}

func (builder *raiser) pair(node *meta.Node) (*Node, *Node, error) {
	left, err := builder.expr(node.Child(0))
	if err != nil {
		return nil, nil, err
	}

	right, err := builder.expr(node.Child(1))
	if err != nil {
		return nil, nil, err
	}

	return left, right, nil
}

// boolOp flattens a left-leaning chain of the same operator into one BoolOp.
func (builder *raiser) boolOp(node *meta.Node, attrs meta.BinaryOpAttrs, operator string) (*Node, error) {
	values, err := builder.exprs(boolOperands(node, attrs))
	if err != nil {
		return nil, err
	}

	return newBoolOp(operator, values...), nil
}

// boolOperands lists the operands of a left-leaning chain of one boolean
// operator, left to right.
func boolOperands(node *meta.Node, attrs meta.BinaryOpAttrs) []*meta.Node {
	operands := []*meta.Node{node.Child(1)}
	left := node.Child(0)

	for {
		leftAttrs, ok := left.Attrs.(meta.BinaryOpAttrs)
		if !ok || leftAttrs != attrs {
			break
		}

		operands = append(operands, left.Child(1))
		left = left.Child(0)
	}

	operands = append(operands, left)

	for lo, hi := 0, len(operands)-1; lo < hi; lo, hi = lo+1, hi-1 {
		operands[lo], operands[hi] = operands[hi], operands[lo]
	}

	return operands
}

func (builder *raiser) unary(node *meta.Node, attrs meta.UnaryOpAttrs) (*Node, error) {
	operator, ok := lookupReverse(attrs.Category, attrs.Operator, opUnary)
	if !ok {
		return nil, unsupported(node, "no unary operator "+attrs.Operator)
	}

	operand, err := builder.expr(node.Child(0))
	if err != nil {
		return nil, err
	}

	return newUnaryOp(operator, operand), nil
}

func (builder *raiser) call(node *meta.Node, attrs meta.FunctionCallAttrs) (*Node, error) {
	args := node.Children

	var fn *Node

	if attrs.Receiver {
		if len(args) == 0 {
			return nil, meta.NewMalformed(meta.KindFunctionCall, nil, "receiver call without receiver")
		}

		receiver, err := builder.expr(args[0])
		if err != nil {
			return nil, err
		}

		if !isIdentifier(attrs.Name) {
			return nil, unsupported(node, "invalid method name "+attrs.Name)
		}

		fn = newAttribute(receiver, attrs.Name, ctxLoad)
		args = args[1:]
	} else {
		dotted, ok := dottedExpr(attrs.Name)
		if !ok {
			return nil, unsupported(node, "invalid function name "+attrs.Name)
		}

		fn = dotted
	}

	rendered, err := builder.exprs(args)
	if err != nil {
		return nil, err
	}

	return newCall(fn, rendered, nil), nil
}

func (builder *raiser) ifExp(node *meta.Node) (*Node, error) {
	test, err := builder.expr(node.Child(0))
	if err != nil {
		return nil, err
	}

	body, err := builder.expr(node.Child(1))
	if err != nil {
		return nil, err
	}

	var orelse *Node

	if otherwise := node.Child(2); otherwise == nil || otherwise.IsAbsent() {
		orelse = newConstant(valueNone, nil)
	} else {
		orelse, err = builder.expr(otherwise)
		if err != nil {
			return nil, err
		}
	}

	return newIfExp(test, body, orelse), nil
}

func (builder *raiser) lambda(node *meta.Node, attrs meta.LambdaAttrs) (*Node, error) {
	params := meta.ParamNames(attrs.Params)
	for _, param := range params {
		if !isIdentifier(param) {
			return nil, unsupported(node, "invalid parameter name "+param)
		}
	}

	body, err := builder.expr(node.Child(0))
	if err != nil {
		return nil, err
	}

	return newLambda(params, body), nil
}

func (builder *raiser) collectionOp(node *meta.Node, attrs meta.CollectionOpAttrs) (*Node, error) {
	if !builder.opts.IgnoreHints && node.Hint(meta.HintForm) == formComprehension {
		comprehension, ok, err := builder.comprehension(node, attrs)
		if err != nil || ok {
			return comprehension, err
		}
	}

	name, rule, ok := canon.ReverseLookup(meta.LanguagePython, attrs.OpType)

	if callee := node.Hint(meta.HintCallee); callee != "" && !builder.opts.IgnoreHints {
		if hinted, found := canon.Lookup(meta.LanguagePython, callee); found && hinted.OpType == attrs.OpType {
			name, rule, ok = callee, hinted, true
		}
	}

	if !ok {
		return nil, unsupported(node, "python has no "+string(attrs.OpType)+" builtin")
	}

	fn, ok := dottedExpr(name)
	if !ok {
		return nil, unsupported(node, "invalid function name "+name)
	}

	args, err := builder.exprs(canon.CallArgs(rule, node))
	if err != nil {
		return nil, err
	}

	return newCall(fn, args, nil), nil
}

// comprehension renders map over a one-parameter lambda as a list
// comprehension. ok is false when the operation has no such form.
func (builder *raiser) comprehension(node *meta.Node, attrs meta.CollectionOpAttrs) (*Node, bool, error) {
	fn := node.Child(0)

	lambda, isLambda := fn.Attrs.(meta.LambdaAttrs)
	if attrs.OpType != meta.CollectionMap || !isLambda || len(lambda.Params) != 1 {
		return nil, false, nil
	}

	elt, err := builder.expr(fn.Child(0))
	if err != nil {
		return nil, false, err
	}

	iter, err := builder.expr(node.Child(1))
	if err != nil {
		return nil, false, err
	}

	return newListComp(elt, newName(lambda.Params[0].Name, ctxStore), iter), true, nil
}

// nativeOf unwraps a python escape node. Payloads decoded from JSON arrive
// as raw messages.
func nativeOf(node *meta.Node, attrs meta.LanguageSpecificAttrs) (*Node, error) {
	if attrs.Language != meta.LanguagePython {
		return nil, meta.NewUnsupported(meta.LanguagePython, meta.KindLanguageSpecific,
			"cannot reify a "+string(attrs.Language)+" construct")
	}

	switch native := attrs.Native.(type) {
	case *Node:
		if native == nil {
			break
		}

		return native, nil
	case json.RawMessage:
		return DecodeJSON(native)
	case []byte:
		return DecodeJSON(native)
	case map[string]any:
		data, err := json.Marshal(native)
		if err != nil {
			return nil, meta.NewMalformed(meta.KindLanguageSpecific, nil, err.Error())
		}

		return DecodeJSON(data)
	}

	return nil, meta.NewMalformed(node.Kind(), nil, "python escape has no native tree")
}

// dottedExpr turns "a.b.c" into an Attribute chain over a Name.
func dottedExpr(name string) (*Node, bool) {
	parts := strings.Split(name, ".")
	for _, part := range parts {
		if !isIdentifier(part) {
			return nil, false
		}
	}

	expr := newName(parts[0], ctxLoad)
	for _, part := range parts[1:] {
		expr = newAttribute(expr, part, ctxLoad)
	}

	return expr, true
}

//nolint:gochecknoglobals // Immutable lookup table.
var keywords = map[string]struct{}{
	"False": {}, "None": {}, "True": {}, "and": {}, "as": {}, "assert": {}, "async": {},
	"await": {}, "break": {}, "class": {}, "continue": {}, "def": {}, "del": {}, "elif": {},
	"else": {}, "except": {}, "finally": {}, "for": {}, "from": {}, "global": {}, "if": {},
	"import": {}, "in": {}, "is": {}, "lambda": {}, "nonlocal": {}, "not": {}, "or": {},
	"pass": {}, "raise": {}, "return": {}, "try": {}, "while": {}, "with": {}, "yield": {},
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}

	if _, reserved := keywords[name]; reserved {
		return false
	}

	for idx, char := range name {
		if char == '_' || unicode.IsLetter(char) {
			continue
		}

		if idx > 0 && unicode.IsDigit(char) {
			continue
		}

		return false
	}

	return true
}
