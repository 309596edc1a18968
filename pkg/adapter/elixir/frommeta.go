package elixir

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

// FromMeta rebuilds a quoted form from MetaAST. Everything in Elixir is an
// expression, so any node kind with an Elixir spelling can be the root.
func (Adapter) FromMeta(root *meta.Node, opts adapter.FromMetaOptions) (Term, error) {
	if root == nil {
		return nil, meta.NewMalformed(meta.KindInvalid, nil, "nil root")
	}

	err := validate.Check(root)
	if err != nil {
		return nil, err
	}

	builder := &raiser{opts: opts, done: make(map[*meta.Node]raisedTerm)}

	_, _, err = walk.Fold[*meta.Node, struct{}, struct{}](root, struct{}{}, walk.MetaTree{}, nil, builder.post)
	if err != nil {
		return nil, err
	}

	return builder.term(root)
}

// raiser is one FromMeta run. The fold raises every node bottom-up and
// records the outcome; the kind hooks read operands from done.
type raiser struct {
	done map[*meta.Node]raisedTerm
	opts adapter.FromMetaOptions
}

type raisedTerm struct {
	term Term
	err  error
}

// post records the term for node. Errors are kept, not returned: they
// surface only when a parent asks for that node.
func (builder *raiser) post(node *meta.Node, _ []struct{}, acc struct{}) (struct{}, struct{}, error) {
	if node != nil {
		term, err := builder.raiseTerm(node)
		builder.done[node] = raisedTerm{term: term, err: err}
	}

	return struct{}{}, acc, nil
}

func (builder *raiser) term(node *meta.Node) (Term, error) {
	if raised, ok := builder.done[node]; ok {
		return raised.term, raised.err
	}

	return builder.raiseTerm(node)
}

func unsupported(node *meta.Node, reason string) error {
	return meta.NewUnsupported(meta.LanguageElixir, node.Kind(), reason)
}

func callMeta(node *meta.Node) Meta {
	pos := node.Pos()
	if pos == nil || pos.Line == 0 {
		return Meta{}
	}

	return Meta{Line: pos.Line, Column: pos.Column + 1}
}

func (builder *raiser) hint(node *meta.Node, key string) string {
	if builder.opts.IgnoreHints {
		return ""
	}

	return node.Hint(key)
}

//nolint:cyclop,funlen,gocyclo // One case per node kind.
func (builder *raiser) raiseTerm(node *meta.Node) (Term, error) {
	if node == nil {
		return nil, meta.NewMalformed(meta.KindInvalid, nil, "missing expression")
	}

	switch attrs := node.Attrs.(type) {
	case meta.LiteralAttrs:
		return literalOf(node, attrs.Value)
	case meta.VariableAttrs:
		if !isVariableName(attrs.Name) {
			return nil, unsupported(node, "invalid variable name "+attrs.Name)
		}

		return Var(attrs.Name), nil
	case meta.ListAttrs:
		elements, err := builder.terms(node.Children)
		if err != nil {
			return nil, err
		}

		return List(elements), nil
	case meta.TupleAttrs:
		elements, err := builder.terms(node.Children)
		if err != nil {
			return nil, err
		}

		if len(elements) == 2 {
			return Pair{First: elements[0], Second: elements[1]}, nil
		}

		return Local(formTuple, elements...), nil
	case meta.PairAttrs:
		first, second, err := builder.pair(node)
		if err != nil {
			return nil, err
		}

		return Pair{First: first, Second: second}, nil
	case meta.MapAttrs:
		return builder.mapLiteral(node)
	case meta.BinaryOpAttrs:
		return builder.binary(node, attrs)
	case meta.UnaryOpAttrs:
		return builder.unary(node, attrs)
	case meta.FunctionCallAttrs:
		return builder.call(node, attrs)
	case meta.ConditionalAttrs:
		return builder.ifForm(node)
	case meta.BlockAttrs:
		statements, err := builder.terms(node.Children)
		if err != nil {
			return nil, err
		}

		return Local(formBlock, statements...), nil
	case meta.AssignmentAttrs:
		if !isPattern(node.Child(0)) {
			return nil, unsupported(node, "elixir only rebinds variables")
		}

		return builder.match(node)
	case meta.InlineMatchAttrs:
		return builder.match(node)
	case meta.LoopAttrs:
		return builder.loop(node, attrs)
	case meta.LambdaAttrs:
		return builder.lambda(meta.ParamNames(attrs.Params), node.Child(0))
	case meta.CollectionOpAttrs:
		return builder.collectionOp(node, attrs)
	case meta.PatternMatchAttrs:
		return builder.caseForm(node)
	case meta.ExceptionHandlingAttrs:
		return builder.tryForm(node)
	case meta.AsyncOperationAttrs:
		operation, err := builder.term(node.Child(0))
		if err != nil {
			return nil, err
		}

		fun := "await"
		if attrs.AsyncType == meta.AsyncSpawn {
			fun = "async"
		}

		return builder.piped(node, Remote(Aliases("Task"), fun, operation)), nil
	case meta.ContainerAttrs:
		return builder.defmodule(node, attrs)
	case meta.FunctionDefAttrs:
		return builder.def(node, attrs)
	case meta.AttributeAccessAttrs:
		receiver, err := builder.term(node.Child(0))
		if err != nil {
			return nil, err
		}

		if !identifierPattern.MatchString(attrs.Attribute) {
			return nil, unsupported(node, "invalid field name "+attrs.Attribute)
		}

		access := Remote(receiver, attrs.Attribute)
		access.Meta.NoParens = true

		return access, nil
	case meta.LanguageSpecificAttrs:
		return nativeOf(node, attrs)
	case meta.EarlyReturnAttrs:
		return nil, unsupported(node, "elixir has no return statement")
	case meta.AugmentedAssignmentAttrs:
		return nil, unsupported(node, "elixir has no augmented assignment")
	case meta.PropertyAttrs:
		return nil, unsupported(node, "elixir has no properties")
	case meta.AbsentAttrs:
		return nil, meta.NewMalformed(meta.KindAbsent, nil, "absent value in a required slot")
	default:
		return nil, meta.NewMalformed(node.Kind(), nil, node.Kind().String()+" outside its parent")
	}
}

func (builder *raiser) terms(nodes []*meta.Node) ([]Term, error) {
	terms := make([]Term, 0, len(nodes))

	for _, node := range nodes {
		term, err := builder.term(node)
		if err != nil {
			return nil, err
		}

		terms = append(terms, term)
	}

	return terms, nil
}

// body renders a do-block section: one statement stands alone, anything
// else becomes a __block__.
func (builder *raiser) body(node *meta.Node) (Term, error) {
	if _, isBlock := node.Attrs.(meta.BlockAttrs); !isBlock {
		return builder.term(node)
	}

	if len(node.Children) == 1 {
		if _, nested := node.Children[0].Attrs.(meta.BlockAttrs); !nested {
			return builder.term(node.Children[0])
		}
	}

	return builder.term(node)
}

// exprBody renders a lambda or comprehension body.
func (builder *raiser) exprBody(node *meta.Node) (Term, error) {
	return builder.term(node)
}

func literalOf(node *meta.Node, value meta.Value) (Term, error) {
	switch value.Type {
	case meta.LiteralInteger:
		return Int(value.Int), nil
	case meta.LiteralFloat:
		return Float(value.Float), nil
	case meta.LiteralString:
		return String(value.Str), nil
	case meta.LiteralBoolean:
		if value.Bool {
			return atomTrue, nil
		}

		return atomFalse, nil
	case meta.LiteralNull:
		return atomNil, nil
	case meta.LiteralSymbol:
		return Atom(value.Str), nil
	default:
		return nil, meta.NewMalformed(node.Kind(), nil, "unknown literal type "+string(value.Type))
	}
}

func (builder *raiser) pair(node *meta.Node) (Term, Term, error) {
	if len(node.Children) != 2 {
		return nil, nil, meta.NewMalformed(meta.KindPair, nil, "pair needs a key and a value")
	}

	sides, err := builder.terms(node.Children)
	if err != nil {
		return nil, nil, err
	}

	return sides[0], sides[1], nil
}

func (builder *raiser) mapLiteral(node *meta.Node) (Term, error) {
	entries := make([]Term, 0, len(node.Children))

	for _, child := range node.Children {
		if child.Kind() != meta.KindPair {
			return nil, meta.NewMalformed(meta.KindMap, nil, "map entry is not a pair")
		}

		key, value, err := builder.pair(child)
		if err != nil {
			return nil, err
		}

		entries = append(entries, Pair{First: key, Second: value})
	}

	return Local(formMap, entries...), nil
}

//nolint:gochecknoglobals // Immutable operator table.
var elixirOperators = map[meta.OpCategory]map[string]string{
	meta.OpArithmetic: {"+": "+", "-": "-", "*": "*", "/": "/", "**": "**"},
	meta.OpComparison: {
		"==": "==", "!=": "!=", "===": "===", "!==": "!==",
		"<": "<", ">": ">", "<=": "<=", ">=": ">=", "in": "in",
	},
	meta.OpBoolean: {"and": "and", "or": "or"},
}

func (builder *raiser) binary(node *meta.Node, attrs meta.BinaryOpAttrs) (Term, error) {
	if len(node.Children) != 2 {
		return nil, meta.NewMalformed(meta.KindBinaryOp, nil, "binary operator needs two operands")
	}

	operands, err := builder.terms(node.Children)
	if err != nil {
		return nil, err
	}

	operator, ok := elixirOperators[attrs.Category][attrs.Operator]

	switch {
	case attrs.Category == meta.OpConcat:
		operator, ok = "<>", true
		if attrs.Operator == "++" {
			operator = "++"
		}
	case attrs.Category == meta.OpComparison && attrs.Operator == "not in":
		return &Call{Form: Atom("not"), Meta: callMeta(node), Args: []Term{Local("in", operands...)}}, nil
	case attrs.Category == meta.OpBoolean && ok:
		if spelled := builder.hint(node, meta.HintSpelling); spelled == "&&" || spelled == "||" {
			operator = spelled
		}
	}

	if !ok {
		return nil, unsupported(node, "elixir has no "+string(attrs.Category)+" operator "+attrs.Operator)
	}

	return &Call{Form: Atom(operator), Meta: callMeta(node), Args: operands}, nil
}

func (builder *raiser) unary(node *meta.Node, attrs meta.UnaryOpAttrs) (Term, error) {
	operand, err := builder.term(node.Child(0))
	if err != nil {
		return nil, err
	}

	var operator string

	switch {
	case attrs.Category == meta.OpBoolean && attrs.Operator == "not":
		operator = "not"
		if builder.hint(node, meta.HintSpelling) == "!" {
			operator = "!"
		}
	case attrs.Category == meta.OpArithmetic && (attrs.Operator == "-" || attrs.Operator == "+"):
		operator = attrs.Operator
	default:
		return nil, unsupported(node, "elixir has no unary "+string(attrs.Category)+" operator "+attrs.Operator)
	}

	return &Call{Form: Atom(operator), Meta: callMeta(node), Args: []Term{operand}}, nil
}

func (builder *raiser) call(node *meta.Node, attrs meta.FunctionCallAttrs) (Term, error) {
	children := node.Children

	var receiver Term

	if attrs.Receiver {
		if len(children) == 0 {
			return nil, meta.NewMalformed(meta.KindFunctionCall, nil, "receiver call without receiver")
		}

		rendered, err := builder.term(children[0])
		if err != nil {
			return nil, err
		}

		receiver, children = rendered, children[1:]
	}

	args, err := builder.terms(children)
	if err != nil {
		return nil, err
	}

	if receiver != nil {
		if !identifierPattern.MatchString(attrs.Name) {
			return nil, unsupported(node, "invalid function name "+attrs.Name)
		}

		call := Remote(receiver, attrs.Name, args...)
		call.Meta = callMeta(node)

		return builder.piped(node, call), nil
	}

	call, ok := callByName(attrs.Name, args)
	if !ok {
		return nil, unsupported(node, "invalid function name "+attrs.Name)
	}

	call.Meta = callMeta(node)

	return builder.piped(node, call), nil
}

// callByName spells a dotted name as a remote call on the module alias or
// the variable its first segment names, and a plain name as a local call.
func callByName(name string, args []Term) (*Call, bool) {
	segments := strings.Split(name, ".")
	fun := segments[len(segments)-1]

	if !identifierPattern.MatchString(fun) {
		return nil, false
	}

	if len(segments) == 1 {
		if _, special := specialForms[fun]; special {
			return nil, false
		}

		return Local(fun, args...), true
	}

	module := strings.Join(segments[:len(segments)-1], ".")
	if first := []rune(module)[0]; unicode.IsUpper(first) {
		for _, segment := range segments[:len(segments)-1] {
			if !identifierPattern.MatchString(segment) || !unicode.IsUpper([]rune(segment)[0]) {
				return nil, false
			}
		}

		return Remote(Aliases(module), fun, args...), true
	}

	var receiver Term

	for idx, segment := range segments[:len(segments)-1] {
		if !isVariableName(segment) {
			return nil, false
		}

		if idx == 0 {
			receiver = Var(segment)

			continue
		}

		access := Remote(receiver, segment)
		access.Meta.NoParens = true
		receiver = access
	}

	return Remote(receiver, fun, args...), true
}

// piped restores `first |> f(rest)` when the call was lowered from a pipe.
func (builder *raiser) piped(node *meta.Node, call *Call) Term {
	if builder.hint(node, meta.HintForm) != formPipe || len(call.Args) == 0 {
		return call
	}

	target := &Call{Form: call.Form, Meta: call.Meta, Args: call.Args[1:]}

	return Local("|>", call.Args[0], target)
}

func (builder *raiser) ifForm(node *meta.Node) (Term, error) {
	condition, err := builder.term(node.Child(0))
	if err != nil {
		return nil, err
	}

	then, err := builder.body(node.Child(1))
	if err != nil {
		return nil, err
	}

	pairs := []Pair{keyword(atomDo, then)}

	if otherwise := node.Child(2); otherwise != nil && !otherwise.IsAbsent() {
		elseBody, err := builder.body(otherwise)
		if err != nil {
			return nil, err
		}

		pairs = append(pairs, keyword(atomElse, elseBody))
	}

	call := Local("if", condition, Keywords(pairs...))
	call.Meta = callMeta(node)

	return call, nil
}

func (builder *raiser) match(node *meta.Node) (Term, error) {
	sides, err := builder.terms(node.Children)
	if err != nil {
		return nil, err
	}

	if len(sides) != 2 {
		return nil, meta.NewMalformed(node.Kind(), nil, "match needs a pattern and a value")
	}

	call := Local("=", sides...)
	call.Meta = callMeta(node)

	return call, nil
}

// isPattern accepts the assignment targets that are also Elixir patterns.
func isPattern(node *meta.Node) bool {
	switch node.Kind() {
	case meta.KindVariable:
		return true
	case meta.KindTuple, meta.KindList:
		for _, child := range node.Children {
			if !isPattern(child) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

// loop spells a for-each loop as Enum.each over a one-clause fn. Elixir has
// no condition loop.
func (builder *raiser) loop(node *meta.Node, attrs meta.LoopAttrs) (Term, error) {
	if attrs.LoopType != meta.LoopForEach {
		return nil, unsupported(node, "elixir has no while loop")
	}

	iterator, err := builder.term(node.Child(0))
	if err != nil {
		return nil, err
	}

	collection, err := builder.term(node.Child(1))
	if err != nil {
		return nil, err
	}

	body, err := builder.body(node.Child(2))
	if err != nil {
		return nil, err
	}

	fn := Local("fn", Local(formStab, List{iterator}, body))

	return Remote(Aliases("Enum"), "each", collection, fn), nil
}

func (builder *raiser) lambda(params []string, bodyNode *meta.Node) (Term, error) {
	head := make(List, len(params))

	for idx, param := range params {
		if !isVariableName(param) {
			return nil, meta.NewUnsupported(meta.LanguageElixir, meta.KindLambda, "invalid parameter name "+param)
		}

		head[idx] = Var(param)
	}

	body, err := builder.exprBody(bodyNode)
	if err != nil {
		return nil, err
	}

	return Local("fn", Local(formStab, head, body)), nil
}

func (builder *raiser) collectionOp(node *meta.Node, attrs meta.CollectionOpAttrs) (Term, error) {
	if attrs.OpType == meta.CollectionMap && builder.hint(node, meta.HintForm) == formComprehension {
		if comprehension, ok, err := builder.comprehension(node); err != nil || ok {
			return comprehension, err
		}
	}

	name, rule, ok := canon.ReverseLookup(meta.LanguageElixir, attrs.OpType)

	if callee := builder.hint(node, meta.HintCallee); callee != "" {
		if hinted, found := canon.Lookup(meta.LanguageElixir, callee); found && hinted.OpType == attrs.OpType {
			name, rule, ok = callee, hinted, true
		}
	}

	if !ok {
		return nil, unsupported(node, "elixir has no "+string(attrs.OpType)+" function")
	}

	args, err := builder.terms(canon.CallArgs(rule, node))
	if err != nil {
		return nil, err
	}

	call, ok := callByName(name, args)
	if !ok {
		return nil, unsupported(node, "invalid function name "+name)
	}

	call.Meta = callMeta(node)

	return builder.piped(node, call), nil
}

// comprehension spells a map over a one-parameter lambda as a for.
func (builder *raiser) comprehension(node *meta.Node) (Term, bool, error) {
	fn := node.Child(0)

	lambda, ok := fn.Attrs.(meta.LambdaAttrs)
	if !ok || len(lambda.Params) != 1 || !isVariableName(lambda.Params[0].Name) {
		return nil, false, nil
	}

	collection, err := builder.term(node.Child(1))
	if err != nil {
		return nil, false, err
	}

	body, err := builder.exprBody(fn.Child(0))
	if err != nil {
		return nil, false, err
	}

	generator := Local(formArrow, Var(lambda.Params[0].Name), collection)
	call := Local("for", generator, Keywords(keyword(atomDo, body)))
	call.Meta = callMeta(node)

	return call, true, nil
}

func (builder *raiser) caseForm(node *meta.Node) (Term, error) {
	if len(node.Children) < 2 {
		return nil, meta.NewMalformed(meta.KindPatternMatch, nil, "case without arms")
	}

	subject, err := builder.term(node.Children[0])
	if err != nil {
		return nil, err
	}

	clauses := make(List, 0, len(node.Children)-1)

	for _, arm := range node.Children[1:] {
		if arm.Kind() != meta.KindMatchArm {
			return nil, meta.NewMalformed(meta.KindPatternMatch, nil, "case arm is not a MatchArm")
		}

		head, err := builder.term(arm.Child(0))
		if err != nil {
			return nil, err
		}

		if guard := arm.Child(1); guard != nil && !guard.IsAbsent() {
			rendered, err := builder.term(guard)
			if err != nil {
				return nil, err
			}

			head = Local(formWhen, head, rendered)
		}

		body, err := builder.body(arm.Child(2))
		if err != nil {
			return nil, err
		}

		clauses = append(clauses, Local(formStab, List{head}, body))
	}

	call := Local("case", subject, Keywords(keyword(atomDo, clauses)))
	call.Meta = callMeta(node)

	return call, nil
}

func (builder *raiser) tryForm(node *meta.Node) (Term, error) {
	body, err := builder.body(node.Child(0))
	if err != nil {
		return nil, err
	}

	pairs := []Pair{keyword(atomDo, body)}

	if len(node.Children) > 2 {
		clauses := make(List, 0, len(node.Children)-2)

		for _, clause := range node.Children[2:] {
			rendered, err := builder.rescue(clause)
			if err != nil {
				return nil, err
			}

			clauses = append(clauses, rendered)
		}

		pairs = append(pairs, keyword(atomRescue, clauses))
	}

	if finally := node.Child(1); finally != nil && !finally.IsAbsent() {
		after, err := builder.body(finally)
		if err != nil {
			return nil, err
		}

		pairs = append(pairs, keyword(atomAfter, after))
	}

	call := Local("try", Keywords(pairs...))
	call.Meta = callMeta(node)

	return call, nil
}

func (builder *raiser) rescue(clause *meta.Node) (Term, error) {
	attrs, ok := clause.Attrs.(meta.CatchClauseAttrs)
	if !ok {
		return nil, meta.NewMalformed(meta.KindExceptionHandling, nil, "handler is not a CatchClause")
	}

	var head Term

	switch {
	case attrs.Binding != "" && !isVariableName(attrs.Binding):
		return nil, unsupported(clause, "invalid binding name "+attrs.Binding)
	case attrs.ExceptionType != "" && !isAliasName(attrs.ExceptionType):
		return nil, unsupported(clause, "invalid exception module "+attrs.ExceptionType)
	case attrs.ExceptionType != "" && attrs.Binding != "":
		head = Local("in", Var(attrs.Binding), Aliases(attrs.ExceptionType))
	case attrs.ExceptionType != "":
		head = Aliases(attrs.ExceptionType)
	case attrs.Binding != "":
		head = Var(attrs.Binding)
	default:
		head = Var("_")
	}

	body, err := builder.body(clause.Child(0))
	if err != nil {
		return nil, err
	}

	return Local(formStab, List{head}, body), nil
}

func (builder *raiser) defmodule(node *meta.Node, attrs meta.ContainerAttrs) (Term, error) {
	if attrs.ContainerType != meta.ContainerModule {
		return nil, unsupported(node, "elixir has no classes")
	}

	if !isAliasName(attrs.Name) {
		return nil, unsupported(node, "invalid module name "+attrs.Name)
	}

	body, err := builder.body(node.Child(0))
	if err != nil {
		return nil, err
	}

	call := Local("defmodule", Aliases(attrs.Name), Keywords(keyword(atomDo, body)))
	call.Meta = callMeta(node)

	return call, nil
}

func (builder *raiser) def(node *meta.Node, attrs meta.FunctionDefAttrs) (Term, error) {
	if !isVariableName(attrs.Name) {
		return nil, unsupported(node, "invalid function name "+attrs.Name)
	}

	params := make([]Term, len(attrs.Params))

	for idx, param := range attrs.Params {
		if !isVariableName(param.Name) {
			return nil, unsupported(node, "invalid parameter name "+param.Name)
		}

		params[idx] = Var(param.Name)
	}

	body, err := builder.body(node.Child(0))
	if err != nil {
		return nil, err
	}

	form := "def"
	if attrs.Visibility == meta.VisibilityPrivate {
		form = "defp"
	}

	call := Local(form, Local(attrs.Name, params...), Keywords(keyword(atomDo, body)))
	call.Meta = callMeta(node)

	return call, nil
}

func nativeOf(node *meta.Node, attrs meta.LanguageSpecificAttrs) (Term, error) {
	if attrs.Language != meta.LanguageElixir {
		return nil, meta.NewUnsupported(meta.LanguageElixir, meta.KindLanguageSpecific,
			"cannot reify a "+string(attrs.Language)+" construct")
	}

	switch native := attrs.Native.(type) {
	case Term:
		if native != nil {
			return native, nil
		}
	case json.RawMessage:
		return DecodeJSON(native)
	case []byte:
		return DecodeJSON(native)
	case map[string]any, []any:
		data, err := json.Marshal(native)
		if err != nil {
			return nil, meta.NewMalformed(meta.KindLanguageSpecific, nil, err.Error())
		}

		return DecodeJSON(data)
	}

	return nil, meta.NewMalformed(node.Kind(), nil, "elixir escape has no quoted form")
}

// isVariableName accepts names that start lowercase or with an underscore.
func isVariableName(name string) bool {
	if !identifierPattern.MatchString(name) || strings.Contains(name, "@") {
		return false
	}

	first := []rune(name)[0]

	return first == '_' || unicode.IsLower(first)
}

func isAliasName(name string) bool {
	for segment := range strings.SplitSeq(name, ".") {
		if !identifierPattern.MatchString(segment) || !unicode.IsUpper([]rune(segment)[0]) {
			return false
		}
	}

	return true
}
