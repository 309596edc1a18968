package elixir

import (
	"strings"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
	"github.com/Sumatoshi-tech/metaast/pkg/meta/canon"
	"github.com/Sumatoshi-tech/metaast/pkg/meta/walk"
)

const (
	formComprehension = "comprehension"
	formPipe          = "pipe"
)

// ToMeta lowers a quoted form into MetaAST. Forms without a Core or Extended
// shape become LanguageSpecific nodes that carry the quoted subtree.
func (Adapter) ToMeta(native Term) (*meta.Node, error) {
	if native == nil {
		return nil, meta.NewMalformed(meta.KindInvalid, nil, "nil elixir term")
	}

	lowering := &metaLowering{done: make(map[*Call]loweredCall)}

	_, _, err := walk.Fold[Term, struct{}, struct{}](native, struct{}{}, termTree{}, nil, lowering.post)
	if err != nil {
		return nil, err
	}

	return lowering.lower(native)
}

// termTree is the Tree view of a quoted form. Scalars are left out of the
// fold and lowered when first requested.
type termTree struct{}

func (termTree) Children(term Term) ([]Term, bool) {
	var children []Term

	collect := func(terms ...Term) {
		for _, child := range terms {
			switch child.(type) {
			case *Call, List, Pair:
				children = append(children, child)
			}
		}
	}

	switch typed := term.(type) {
	case *Call:
		if typed == nil {
			return nil, false
		}

		collect(typed.Form)
		collect(typed.Args...)
	case List:
		collect(typed...)
	case Pair:
		collect(typed.First, typed.Second)
	}

	return children, true
}

type loweredCall struct {
	node *meta.Node
	err  error
}

// metaLowering is one ToMeta run. The fold lowers every call bottom-up and
// records the outcome, so a form hook reads its operands from done instead
// of descending into them.
type metaLowering struct {
	done map[*Call]loweredCall
}

// post records the lowering of each call. Errors are kept, not returned:
// they surface only when a parent asks for that call.
func (lowering *metaLowering) post(term Term, _ []struct{}, acc struct{}) (struct{}, struct{}, error) {
	if call, ok := term.(*Call); ok && call != nil {
		converted, err := lowering.convertCall(call)
		lowering.done[call] = loweredCall{node: converted, err: err}
	}

	return struct{}{}, acc, nil
}

func (lowering *metaLowering) lower(term Term) (*meta.Node, error) {
	switch typed := term.(type) {
	case Atom:
		return lowerAtom(typed), nil
	case Int:
		return meta.Lit(meta.Int(int64(typed))), nil
	case BigInt:
		return escape(typed), nil
	case Float:
		return meta.Lit(meta.Float(float64(typed))), nil
	case String:
		return meta.Lit(meta.Str(string(typed))), nil
	case List:
		elements, err := lowering.lowerAll(typed)
		if err != nil {
			return nil, err
		}

		return meta.NewList(elements...), nil
	case Pair:
		elements, err := lowering.lowerAll([]Term{typed.First, typed.Second})
		if err != nil {
			return nil, err
		}

		return meta.NewTuple(elements...), nil
	case *Call:
		return lowering.lowerCall(typed)
	default:
		return nil, meta.NewMalformed(meta.KindInvalid, nil, "missing elixir term")
	}
}

func lowerAtom(atom Atom) *meta.Node {
	switch atom {
	case atomTrue:
		return meta.Lit(meta.Bool(true))
	case atomFalse:
		return meta.Lit(meta.Bool(false))
	case atomNil:
		return meta.Lit(meta.Null())
	default:
		return meta.Lit(meta.Symbol(string(atom)))
	}
}

func (lowering *metaLowering) lowerAll(terms []Term) ([]*meta.Node, error) {
	lowered := make([]*meta.Node, 0, len(terms))

	for _, term := range terms {
		converted, err := lowering.lower(term)
		if err != nil {
			return nil, err
		}

		lowered = append(lowered, converted)
	}

	return lowered, nil
}

func (lowering *metaLowering) lowerCall(call *Call) (*meta.Node, error) {
	if result, ok := lowering.done[call]; ok {
		return result.node, result.err
	}

	return lowering.convertCall(call)
}

func (lowering *metaLowering) convertCall(call *Call) (*meta.Node, error) {
	if call == nil || call.Form == nil {
		return nil, meta.NewMalformed(meta.KindInvalid, nil, "quoted call without form")
	}

	lowered, err := lowering.lowerForm(call)
	if err != nil {
		return nil, err
	}

	if lowered == nil {
		return escape(call), nil
	}

	if lowered.Meta == nil || lowered.Meta.Pos == nil {
		lowered = lowered.WithPos(metaPos(call.Meta))
	}

	return lowered, nil
}

func escape(term Term) *meta.Node {
	hint := "bigint"

	var pos *meta.Position

	if call, ok := term.(*Call); ok {
		pos = metaPos(call.Meta)

		hint = formDot
		if name, isAtom := call.Name(); isAtom {
			hint = name
		}
	}

	return meta.NewLanguageSpecific(meta.LanguageElixir, hint, term).WithPos(pos)
}

func metaPos(metadata Meta) *meta.Position {
	if metadata.Line == 0 {
		return nil
	}

	return &meta.Position{Line: metadata.Line, Column: max(metadata.Column-1, 0)}
}

// lowerFunc returns nil, nil when the form has no MetaAST shape.
type lowerFunc func(lowering *metaLowering, call *Call) (*meta.Node, error)

//nolint:gochecknoglobals // Dispatch table, assigned in init to break the lowering cycle.
var formLowerers map[string]lowerFunc

//nolint:gochecknoinits // See formLowerers.
func init() {
	formLowerers = map[string]lowerFunc{
		formBlock:   (*metaLowering).lowerBlockForm,
		"=":         (*metaLowering).lowerMatch,
		"|>":        (*metaLowering).lowerPipe,
		"if":        (*metaLowering).lowerIf,
		"case":      (*metaLowering).lowerCase,
		"fn":        (*metaLowering).lowerFn,
		"for":       (*metaLowering).lowerFor,
		"defmodule": (*metaLowering).lowerDefmodule,
		"def":       (*metaLowering).lowerDef,
		"defp":      (*metaLowering).lowerDef,
		"try":       (*metaLowering).lowerTry,
		formTuple:   (*metaLowering).lowerTuple,
		formMap:     (*metaLowering).lowerMap,
	}
}

type spelling struct {
	category  meta.OpCategory
	canonical string
}

//nolint:gochecknoglobals // Immutable operator table.
var binarySpellings = map[string]spelling{
	"+": {meta.OpArithmetic, "+"}, "-": {meta.OpArithmetic, "-"},
	"*": {meta.OpArithmetic, "*"}, "/": {meta.OpArithmetic, "/"},
	"**": {meta.OpArithmetic, "**"},
	"==": {meta.OpComparison, "=="}, "!=": {meta.OpComparison, "!="},
	"===": {meta.OpComparison, "==="}, "!==": {meta.OpComparison, "!=="},
	"<": {meta.OpComparison, "<"}, ">": {meta.OpComparison, ">"},
	"<=": {meta.OpComparison, "<="}, ">=": {meta.OpComparison, ">="},
	"in":  {meta.OpComparison, "in"},
	"and": {meta.OpBoolean, "and"}, "or": {meta.OpBoolean, "or"},
	"&&": {meta.OpBoolean, "and"}, "||": {meta.OpBoolean, "or"},
	"<>": {meta.OpConcat, "<>"}, "++": {meta.OpConcat, "++"},
}

//nolint:gochecknoglobals // Immutable operator table.
var unarySpellings = map[string]spelling{
	"-":   {meta.OpArithmetic, "-"},
	"+":   {meta.OpArithmetic, "+"},
	"not": {meta.OpBoolean, "not"},
	"!":   {meta.OpBoolean, "not"},
}

// specialForms are macros and special forms that are never plain calls.
//
//nolint:gochecknoglobals // Immutable lookup table.
var specialForms = map[string]struct{}{
	"unless": {}, "cond": {}, "with": {}, "receive": {}, "quote": {}, "unquote": {},
	"unquote_splicing": {}, "defmacro": {}, "defmacrop": {}, "defstruct": {},
	"defprotocol": {}, "defimpl": {}, "defdelegate": {}, "defguard": {}, "defguardp": {},
	"defexception": {}, "defoverridable": {}, "import": {}, "alias": {}, "require": {},
	"use": {}, "super": {}, "__block__": {}, "__aliases__": {},
}

func (lowering *metaLowering) lowerForm(call *Call) (*meta.Node, error) {
	if call.Variable {
		name, ok := call.Name()
		if !ok {
			return nil, meta.NewMalformed(meta.KindVariable, nil, "variable without an atom name")
		}

		return meta.Var(name), nil
	}

	name, isLocal := call.Name()
	if !isLocal {
		return lowering.lowerRemote(call)
	}

	if lowerFn, ok := formLowerers[name]; ok {
		return lowerFn(lowering, call)
	}

	if op, ok := binarySpellings[name]; ok && len(call.Args) == 2 {
		return lowering.lowerBinary(call, name, op)
	}

	if op, ok := unarySpellings[name]; ok && len(call.Args) == 1 {
		operand, err := lowering.lower(call.Args[0])
		if err != nil {
			return nil, err
		}

		return withSpelling(meta.NewUnaryOp(op.category, op.canonical, operand), name, op), nil
	}

	return lowering.lowerLocalCall(call, name)
}

func withSpelling(node *meta.Node, name string, op spelling) *meta.Node {
	if name == op.canonical {
		return node
	}

	return node.WithHint(meta.HintSpelling, name)
}

func (lowering *metaLowering) lowerBinary(call *Call, name string, op spelling) (*meta.Node, error) {
	operands, err := lowering.lowerAll(call.Args)
	if err != nil {
		return nil, err
	}

	return withSpelling(meta.NewBinaryOp(op.category, op.canonical, operands[0], operands[1]), name, op), nil
}

func (lowering *metaLowering) lowerLocalCall(call *Call, name string) (*meta.Node, error) {
	if _, special := specialForms[name]; special || strings.HasPrefix(name, "sigil_") {
		return nil, nil
	}

	if !identifierPattern.MatchString(name) {
		return nil, nil
	}

	if _, _, hasDo := doBlock(call.Args); hasDo {
		return nil, nil
	}

	args, err := lowering.lowerAll(call.Args)
	if err != nil {
		return nil, err
	}

	return meta.NewCall(name, args...), nil
}

// lowerRemote maps Module.fun(args) to a dotted call and receiver.fun to
// attribute access. Anonymous calls and Erlang module calls stay native.
func (lowering *metaLowering) lowerRemote(call *Call) (*meta.Node, error) {
	module, fun, ok := call.remote()
	if !ok {
		return nil, nil
	}

	if _, _, hasDo := doBlock(call.Args); hasDo {
		return nil, nil
	}

	if _, isAtom := module.(Atom); isAtom {
		return nil, nil
	}

	args, err := lowering.lowerAll(call.Args)
	if err != nil {
		return nil, err
	}

	if moduleName, isAlias := aliasName(module); isAlias {
		name := moduleName + "." + fun

		switch {
		case name == "Task.async" && len(args) == 1:
			return meta.NewAsync(meta.AsyncSpawn, args[0]), nil
		case name == "Task.await" && len(args) == 1:
			return meta.NewAsync(meta.AsyncAwait, args[0]), nil
		}

		lowered := meta.NewCall(name, args...).WithPos(metaPos(call.Meta))

		return canon.Collection(lowered, meta.LanguageElixir), nil
	}

	receiver, err := lowering.lower(module)
	if err != nil {
		return nil, err
	}

	if call.Meta.NoParens && len(args) == 0 {
		return meta.NewAttributeAccess(receiver, fun), nil
	}

	return meta.NewMethodCall(receiver, fun, args...), nil
}

func (lowering *metaLowering) lowerBlockForm(call *Call) (*meta.Node, error) {
	statements, err := lowering.lowerAll(call.Args)
	if err != nil {
		return nil, err
	}

	return meta.NewBlock(statements...), nil
}

// lowerBody lowers a do-block section. A single expression is a one
// statement block.
func (lowering *metaLowering) lowerBody(body Term) (*meta.Node, error) {
	lowered, err := lowering.lowerAll(statements(body))
	if err != nil {
		return nil, err
	}

	return meta.NewBlock(lowered...), nil
}

// lowerExprBody lowers a clause or comprehension body, which is an
// expression unless it holds several.
func (lowering *metaLowering) lowerExprBody(body Term) (*meta.Node, error) {
	if call, ok := body.(*Call); ok && !call.Variable {
		if name, _ := call.Name(); name == formBlock {
			return lowering.lowerBlockForm(call)
		}
	}

	return lowering.lower(body)
}

func (lowering *metaLowering) lowerMatch(call *Call) (*meta.Node, error) {
	if len(call.Args) != 2 {
		return nil, nil
	}

	sides, err := lowering.lowerAll(call.Args)
	if err != nil {
		return nil, err
	}

	return meta.NewInlineMatch(sides[0], sides[1]), nil
}

// lowerPipe desugars `left |> f(args)` into `f(left, args)`.
func (lowering *metaLowering) lowerPipe(call *Call) (*meta.Node, error) {
	if len(call.Args) != 2 {
		return nil, nil
	}

	target, ok := call.Args[1].(*Call)
	if !ok || target.Variable {
		return nil, nil
	}

	desugared := &Call{
		Form: target.Form,
		Meta: target.Meta,
		Args: append([]Term{call.Args[0]}, target.Args...),
	}

	lowered, err := lowering.lower(desugared)
	if err != nil {
		return nil, err
	}

	switch lowered.Kind() {
	case meta.KindFunctionCall, meta.KindCollectionOp, meta.KindAsyncOperation:
		return lowered.WithHint(meta.HintForm, formPipe), nil
	default:
		return lowered, nil
	}
}

// sections returns the do-block sections of args when it has exactly lead
// leading arguments and only the allowed keys.
func sections(args []Term, lead int, allowed ...Atom) ([]Term, map[Atom]Term, bool) {
	leading, pairs, ok := doBlock(args)
	if !ok || len(leading) != lead {
		return nil, nil, false
	}

	found := make(map[Atom]Term, len(pairs))

	for _, pair := range pairs {
		key, _ := pair.First.(Atom)

		if _, duplicate := found[key]; duplicate {
			return nil, nil, false
		}

		permitted := false

		for _, name := range allowed {
			if key == name {
				permitted = true
			}
		}

		if !permitted {
			return nil, nil, false
		}

		found[key] = pair.Second
	}

	return leading, found, true
}

func (lowering *metaLowering) lowerIf(call *Call) (*meta.Node, error) {
	lead, found, ok := sections(call.Args, 1, atomDo, atomElse)
	if !ok {
		return nil, nil
	}

	condition, err := lowering.lower(lead[0])
	if err != nil {
		return nil, err
	}

	then, err := lowering.lowerBody(found[atomDo])
	if err != nil {
		return nil, err
	}

	otherwise := meta.Absent()

	if elseBody, hasElse := found[atomElse]; hasElse {
		otherwise, err = lowering.lowerBody(elseBody)
		if err != nil {
			return nil, err
		}
	}

	return meta.NewConditional(condition, then, otherwise), nil
}

// splitGuard separates `pattern when guard`.
func splitGuard(head Term) (Term, Term) {
	if call, ok := head.(*Call); ok && call.Is(formWhen, 2) {
		return call.Args[0], call.Args[1]
	}

	return head, nil
}

func (lowering *metaLowering) lowerCase(call *Call) (*meta.Node, error) {
	lead, found, ok := sections(call.Args, 1, atomDo)
	if !ok {
		return nil, nil
	}

	clauses, ok := stabClauses(found[atomDo])
	if !ok {
		return nil, nil
	}

	subject, err := lowering.lower(lead[0])
	if err != nil {
		return nil, err
	}

	arms := make([]*meta.Node, 0, len(clauses))

	for _, clause := range clauses {
		params, ok := clause.Args[0].(List)
		if !ok || len(params) != 1 {
			return nil, nil
		}

		rawPattern, rawGuard := splitGuard(params[0])

		pattern, err := lowering.lower(rawPattern)
		if err != nil {
			return nil, err
		}

		var guard *meta.Node

		if rawGuard != nil {
			guard, err = lowering.lower(rawGuard)
			if err != nil {
				return nil, err
			}
		}

		body, err := lowering.lowerBody(clause.Args[1])
		if err != nil {
			return nil, err
		}

		arms = append(arms, meta.NewMatchArm(pattern, guard, body).WithPos(metaPos(clause.Meta)))
	}

	return meta.NewPatternMatch(subject, arms...), nil
}

// variableNames returns the names of params when every one is a variable.
func variableNames(params []Term) ([]string, bool) {
	names := make([]string, 0, len(params))

	for _, param := range params {
		variable, ok := param.(*Call)
		if !ok || !variable.Variable {
			return nil, false
		}

		name, ok := variable.Name()
		if !ok {
			return nil, false
		}

		names = append(names, name)
	}

	return names, true
}

func (lowering *metaLowering) lowerFn(call *Call) (*meta.Node, error) {
	clauses, ok := stabClauses(List(call.Args))
	if !ok || len(clauses) != 1 {
		return nil, nil
	}

	params, ok := clauses[0].Args[0].(List)
	if !ok {
		return nil, nil
	}

	names, ok := variableNames(params)
	if !ok {
		return nil, nil
	}

	body, err := lowering.lowerExprBody(clauses[0].Args[1])
	if err != nil {
		return nil, err
	}

	return meta.NewLambda(names, body), nil
}

// lowerFor maps a single-generator comprehension without filters or options
// to a map over the generator's collection.
func (lowering *metaLowering) lowerFor(call *Call) (*meta.Node, error) {
	lead, found, ok := sections(call.Args, 1, atomDo)
	if !ok {
		return nil, nil
	}

	generator, ok := lead[0].(*Call)
	if !ok || !generator.Is(formArrow, 2) {
		return nil, nil
	}

	names, ok := variableNames(generator.Args[:1])
	if !ok {
		return nil, nil
	}

	collection, err := lowering.lower(generator.Args[1])
	if err != nil {
		return nil, err
	}

	body, err := lowering.lowerExprBody(found[atomDo])
	if err != nil {
		return nil, err
	}

	fn := meta.NewLambda(names, body).WithPos(metaPos(generator.Meta))

	return meta.NewCollectionOp(meta.CollectionMap, fn, collection, nil).WithHint(meta.HintForm, formComprehension), nil
}

func (lowering *metaLowering) lowerDefmodule(call *Call) (*meta.Node, error) {
	lead, found, ok := sections(call.Args, 1, atomDo)
	if !ok {
		return nil, nil
	}

	name, ok := aliasName(lead[0])
	if !ok {
		return nil, nil
	}

	body, err := lowering.lowerBody(found[atomDo])
	if err != nil {
		return nil, err
	}

	return meta.NewContainer(meta.ContainerModule, name, nil, body), nil
}

func (lowering *metaLowering) lowerDef(call *Call) (*meta.Node, error) {
	lead, found, ok := sections(call.Args, 1, atomDo)
	if !ok {
		return nil, nil
	}

	head, ok := lead[0].(*Call)
	if !ok {
		return nil, nil
	}

	name, ok := head.Name()
	if !ok || name == formWhen || !identifierPattern.MatchString(name) {
		return nil, nil
	}

	params := []string{}

	if !head.Variable {
		params, ok = variableNames(head.Args)
		if !ok {
			return nil, nil
		}
	}

	body, err := lowering.lowerBody(found[atomDo])
	if err != nil {
		return nil, err
	}

	visibility := meta.VisibilityPublic
	if form, _ := call.Name(); form == "defp" {
		visibility = meta.VisibilityPrivate
	}

	return meta.NewFunctionDef(name, visibility, params, body), nil
}

func (lowering *metaLowering) lowerTry(call *Call) (*meta.Node, error) {
	_, found, ok := sections(call.Args, 0, atomDo, atomRescue, atomAfter)
	if !ok {
		return nil, nil
	}

	var clauses []*meta.Node

	if rescue, hasRescue := found[atomRescue]; hasRescue {
		rescueClauses, ok := stabClauses(rescue)
		if !ok {
			return nil, nil
		}

		for _, clause := range rescueClauses {
			lowered, err := lowering.lowerRescue(clause)
			if err != nil || lowered == nil {
				return nil, err
			}

			clauses = append(clauses, lowered)
		}
	}

	body, err := lowering.lowerBody(found[atomDo])
	if err != nil {
		return nil, err
	}

	finally := meta.Absent()

	if after, hasAfter := found[atomAfter]; hasAfter {
		finally, err = lowering.lowerBody(after)
		if err != nil {
			return nil, err
		}
	}

	return meta.NewExceptionHandling(body, finally, clauses...), nil
}

// lowerRescue maps `e ->`, `Error ->` and `e in Error ->` clauses.
func (lowering *metaLowering) lowerRescue(clause *Call) (*meta.Node, error) {
	params, ok := clause.Args[0].(List)
	if !ok || len(params) != 1 {
		return nil, nil
	}

	exceptionType, binding, ok := rescueHead(params[0])
	if !ok {
		return nil, nil
	}

	body, err := lowering.lowerBody(clause.Args[1])
	if err != nil {
		return nil, err
	}

	return meta.NewCatchClause(exceptionType, binding, body).WithPos(metaPos(clause.Meta)), nil
}

func rescueHead(head Term) (string, string, bool) {
	if name, ok := aliasName(head); ok {
		return name, "", true
	}

	call, ok := head.(*Call)
	if !ok {
		return "", "", false
	}

	if call.Variable {
		name, ok := call.Name()

		return "", name, ok
	}

	if !call.Is("in", 2) {
		return "", "", false
	}

	names, ok := variableNames(call.Args[:1])
	if !ok {
		return "", "", false
	}

	exceptionType, ok := aliasName(call.Args[1])
	if !ok {
		return "", "", false
	}

	return exceptionType, names[0], true
}

func (lowering *metaLowering) lowerTuple(call *Call) (*meta.Node, error) {
	elements, err := lowering.lowerAll(call.Args)
	if err != nil {
		return nil, err
	}

	return meta.NewTuple(elements...), nil
}

func (lowering *metaLowering) lowerMap(call *Call) (*meta.Node, error) {
	pairs := make([]*meta.Node, 0, len(call.Args))

	for _, arg := range call.Args {
		pair, ok := arg.(Pair)
		if !ok {
			return nil, nil
		}

		sides, err := lowering.lowerAll([]Term{pair.First, pair.Second})
		if err != nil {
			return nil, err
		}

		pairs = append(pairs, meta.NewPair(sides[0], sides[1]))
	}

	return meta.NewMap(pairs...), nil
}
