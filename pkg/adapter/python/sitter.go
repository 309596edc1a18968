package python

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/alexaandru/go-sitter-forest/python"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

//nolint:gochecknoglobals // Loaded once per process.
var sitterLanguage = sync.OnceValue(func() *sitter.Language {
	return sitter.NewLanguage(python.GetLanguage())
})

// SitterFrontend parses Python in process with the tree-sitter grammar and
// prints with Print. Constructs it does not lower into ast shape are kept
// as Verbatim source text.
type SitterFrontend struct {
	parsers sync.Pool
}

// NewSitterFrontend creates a frontend with a pool of tree-sitter parsers.
func NewSitterFrontend() *SitterFrontend {
	frontend := &SitterFrontend{}
	frontend.parsers.New = func() any {
		tsParser := sitter.NewParser()
		tsParser.SetLanguage(sitterLanguage())

		return tsParser
	}

	return frontend
}

// Parse builds a Module from source.
func (frontend *SitterFrontend) Parse(ctx context.Context, source string) (*Node, error) {
	tsParser, ok := frontend.parsers.Get().(*sitter.Parser)
	if !ok {
		return nil, meta.NewToolFailure(meta.LanguagePython, "parser pool returned a foreign value", nil)
	}

	defer frontend.parsers.Put(tsParser)

	content := []byte(source)

	tree, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, meta.NewToolFailure(meta.LanguagePython, "tree-sitter parse", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, meta.NewToolFailure(meta.LanguagePython, "tree-sitter returned no root", nil)
	}

	if root.HasError() {
		return nil, syntaxErrorAt(root)
	}

	lowering := &cstLowering{content: content}

	return lowering.module(root), nil
}

// Unparse prints native with Print.
func (frontend *SitterFrontend) Unparse(_ context.Context, native *Node) (string, error) {
	source, err := Print(native)
	if err != nil {
		return "", meta.NewUnsupported(meta.LanguagePython, meta.KindLanguageSpecific, err.Error())
	}

	return source, nil
}

func syntaxErrorAt(root sitter.Node) error {
	stack := []sitter.Node{root}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current.Type() == "ERROR" || current.IsMissing() {
			start := current.StartPoint()
			reason := fmt.Sprintf("invalid syntax at line %d, column %d", int(start.Row)+1, int(start.Column))

			return meta.NewSyntaxError(meta.LanguagePython, reason, nil)
		}

		for idx := range current.ChildCount() {
			stack = append(stack, current.Child(current.ChildCount()-1-idx))
		}
	}

	return meta.NewSyntaxError(meta.LanguagePython, "invalid syntax", nil)
}

type cstLowering struct {
	content []byte
}

func (lowering *cstLowering) text(node sitter.Node) string {
	return string(lowering.content[node.StartByte():node.EndByte()])
}

func position(node sitter.Node) *Pos {
	start := node.StartPoint()
	end := node.EndPoint()

	return &Pos{
		Line:    int(start.Row) + 1,
		Col:     int(start.Column),
		EndLine: int(end.Row) + 1,
		EndCol:  int(end.Column),
	}
}

// named returns the named children, skipping comments.
func named(node sitter.Node) []sitter.Node {
	children := make([]sitter.Node, 0, node.NamedChildCount())

	for idx := range node.NamedChildCount() {
		child := node.NamedChild(idx)
		if child.Type() == "comment" || child.Type() == "line_continuation" {
			continue
		}

		children = append(children, child)
	}

	return children
}

func field(node sitter.Node, name string) (sitter.Node, bool) {
	child := node.ChildByFieldName(name)

	return child, !child.IsNull()
}

func isAsync(node sitter.Node) bool {
	return node.ChildCount() > 0 && node.Child(0).Type() == "async"
}

// verbatim keeps the node's source. Continuation lines lose the indentation
// of the node's first column so the printer can re-indent them.
func (lowering *cstLowering) verbatim(node sitter.Node, statement bool) *Node {
	text := lowering.text(node)
	column := int(node.StartPoint().Column)

	lines := strings.Split(text, "\n")
	for idx := 1; idx < len(lines); idx++ {
		trimmed := strings.TrimLeft(lines[idx], " ")
		if len(lines[idx])-len(trimmed) >= column {
			lines[idx] = lines[idx][column:]
		} else {
			lines[idx] = trimmed
		}
	}

	return newVerbatim(node.Type(), strings.Join(lines, "\n"), statement).At(position(node))
}

func (lowering *cstLowering) module(root sitter.Node) *Node {
	return newModule(lowering.statements(root)...).At(position(root))
}

func (lowering *cstLowering) statements(node sitter.Node) []*Node {
	children := named(node)
	statements := make([]*Node, 0, len(children))

	for _, child := range children {
		statements = append(statements, lowering.stmt(child))
	}

	return statements
}

// body lowers the block held by field name, or the node's trailing block.
func (lowering *cstLowering) body(node sitter.Node, name string) []*Node {
	if block, ok := field(node, name); ok {
		return lowering.statements(block)
	}

	children := named(node)
	if len(children) > 0 && children[len(children)-1].Type() == "block" {
		return lowering.statements(children[len(children)-1])
	}

	return nil
}

//nolint:cyclop,gocyclo // One case per statement type.
func (lowering *cstLowering) stmt(node sitter.Node) *Node {
	var native *Node

	switch node.Type() {
	case "expression_statement":
		native = lowering.expressionStatement(node)
	case "return_statement":
		native = newReturn(nil)
		if children := named(node); len(children) > 0 {
			native = newReturn(lowering.expr(children[0]))
		}
	case "pass_statement":
		native = NewNode("Pass")
	case "break_statement":
		native = NewNode("Break")
	case "continue_statement":
		native = NewNode("Continue")
	case "if_statement":
		native = lowering.ifStatement(node)
	case "while_statement":
		native = lowering.whileStatement(node)
	case "for_statement":
		native = lowering.forStatement(node)
	case "function_definition":
		native = lowering.functionDefinition(node)
	case "class_definition":
		native = lowering.classDefinition(node)
	case "decorated_definition":
		native = lowering.decoratedDefinition(node)
	case "try_statement":
		native = lowering.tryStatement(node)
	case "raise_statement":
		native = lowering.raiseStatement(node)
	case "global_statement", "nonlocal_statement":
		native = lowering.scopeStatement(node)
	}

	if native == nil {
		return lowering.verbatim(node, true)
	}

	if native.Pos == nil {
		native.At(position(node))
	}

	return native
}

func (lowering *cstLowering) expressionStatement(node sitter.Node) *Node {
	children := named(node)

	switch {
	case len(children) == 0:
		return nil
	case len(children) > 1:
		return newExpr(lowering.tuple(children))
	}

	child := children[0]

	switch child.Type() {
	case "assignment":
		return lowering.assignment(child)
	case "augmented_assignment":
		return lowering.augmentedAssignment(child)
	default:
		return newExpr(lowering.expr(child))
	}
}

func (lowering *cstLowering) assignment(node sitter.Node) *Node {
	if _, annotated := field(node, "type"); annotated {
		return nil
	}

	targets := []*Node{}
	current := node

	for {
		left, ok := field(current, "left")
		if !ok {
			return nil
		}

		targets = append(targets, storeCtx(lowering.expr(left)))

		right, ok := field(current, "right")
		if !ok {
			return nil
		}

		switch right.Type() {
		case "assignment":
			current = right

			continue
		case "augmented_assignment", "yield":
			return nil
		}

		return NewNode("Assign").SetList("targets", targets...).Set("value", lowering.expr(right))
	}
}

func (lowering *cstLowering) augmentedAssignment(node sitter.Node) *Node {
	left, leftOK := field(node, "left")
	right, rightOK := field(node, "right")
	operator, operatorOK := field(node, "operator")

	if !leftOK || !rightOK || !operatorOK || right.Type() == "yield" {
		return nil
	}

	opName, ok := binaryTypeOf(strings.TrimSuffix(lowering.text(operator), "="))
	if !ok {
		return nil
	}

	return newAugAssign(storeCtx(lowering.expr(left)), opName, lowering.expr(right))
}

// storeCtx marks an expression as an assignment target.
func storeCtx(node *Node) *Node {
	if ctx := node.field("ctx"); ctx != nil {
		ctx.Nodes = []*Node{NewNode(ctxStore)}
	}

	switch node.Type {
	case "Tuple", "List":
		for _, element := range node.List("elts") {
			storeCtx(element)
		}
	case "Starred":
		if value := node.Child("value"); value != nil {
			storeCtx(value)
		}
	}

	return node
}

func (lowering *cstLowering) ifStatement(node sitter.Node) *Node {
	condition, conditionOK := field(node, "condition")
	if !conditionOK {
		return nil
	}

	root := newIf(lowering.expr(condition), lowering.body(node, "consequence"), nil)
	current := root

	for _, clause := range named(node) {
		switch clause.Type() {
		case "elif_clause":
			elifCondition, ok := field(clause, "condition")
			if !ok {
				return nil
			}

			elif := newIf(lowering.expr(elifCondition), lowering.body(clause, "consequence"), nil).At(position(clause))
			current.Replace("orelse", elif)
			current = elif
		case "else_clause":
			current.Replace("orelse", lowering.body(clause, "body")...)
		}
	}

	return root
}

func (lowering *cstLowering) elseBody(node sitter.Node) []*Node {
	alternative, ok := field(node, "alternative")
	if !ok {
		return nil
	}

	return lowering.body(alternative, "body")
}

func (lowering *cstLowering) whileStatement(node sitter.Node) *Node {
	condition, ok := field(node, "condition")
	if !ok {
		return nil
	}

	return newWhile(lowering.expr(condition), lowering.body(node, "body")).Replace("orelse", lowering.elseBody(node)...)
}

func (lowering *cstLowering) forStatement(node sitter.Node) *Node {
	left, leftOK := field(node, "left")
	right, rightOK := field(node, "right")

	if isAsync(node) || !leftOK || !rightOK {
		return nil
	}

	loop := newFor(storeCtx(lowering.expr(left)), lowering.expr(right), lowering.body(node, "body"))

	return loop.Replace("orelse", lowering.elseBody(node)...)
}

func (lowering *cstLowering) functionDefinition(node sitter.Node) *Node {
	name, ok := field(node, "name")
	if isAsync(node) || !ok {
		return nil
	}

	if _, generic := field(node, "type_parameters"); generic {
		return nil
	}

	arguments := newArguments(nil)
	if parameters, hasParams := field(node, "parameters"); hasParams {
		arguments = lowering.parameters(parameters)
		if arguments == nil {
			return nil
		}
	}

	def := newFunctionDef(lowering.text(name), nil, lowering.body(node, "body"))
	def.Replace("args", arguments)

	if returns, hasReturns := field(node, "return_type"); hasReturns {
		def.Replace("returns", lowering.expr(returns))
	}

	return def
}

// parameters builds an arguments node. It returns nil for shapes it does
// not lower.
//
//nolint:cyclop,funlen // One case per parameter form.
func (lowering *cstLowering) parameters(node sitter.Node) *Node {
	var (
		posOnly, args, kwOnly, defaults, kwDefaults []*Node
		vararg, kwarg                               *Node
		afterStar                                   bool
	)

	for _, param := range named(node) {
		var (
			arg   *Node
			value *Node
		)

		switch param.Type() {
		case "identifier":
			arg = newArg(lowering.text(param))
		case "typed_parameter":
			arg = lowering.typedParameter(param)
		case "default_parameter", "typed_default_parameter":
			paramName, ok := field(param, "name")
			defaultValue, hasValue := field(param, "value")

			if !ok || !hasValue {
				return nil
			}

			arg = newArg(lowering.text(paramName))
			if annotation, annotated := field(param, "type"); annotated {
				arg.Replace("annotation", lowering.expr(annotation))
			}

			value = lowering.expr(defaultValue)
		case "list_splat_pattern":
			vararg = lowering.splatArg(param)
			afterStar = true

			continue
		case "dictionary_splat_pattern":
			kwarg = lowering.splatArg(param)

			continue
		case "keyword_separator":
			afterStar = true

			continue
		case "positional_separator":
			posOnly, args = args, nil

			continue
		default:
			return nil
		}

		if arg == nil {
			return nil
		}

		arg.At(position(param))

		if afterStar {
			kwOnly = append(kwOnly, arg)
			kwDefaults = append(kwDefaults, value)

			continue
		}

		args = append(args, arg)

		if value != nil {
			defaults = append(defaults, value)
		}
	}

	return NewNode("arguments").
		SetList("posonlyargs", posOnly...).
		SetList("args", args...).
		Set("vararg", vararg).
		SetList("kwonlyargs", kwOnly...).
		SetList("kw_defaults", kwDefaults...).
		Set("kwarg", kwarg).
		SetList("defaults", defaults...)
}

func (lowering *cstLowering) typedParameter(param sitter.Node) *Node {
	children := named(param)
	annotation, ok := field(param, "type")

	if len(children) == 0 || !ok || children[0].Type() != "identifier" {
		return nil
	}

	return newArg(lowering.text(children[0])).Replace("annotation", lowering.expr(annotation))
}

func (lowering *cstLowering) splatArg(param sitter.Node) *Node {
	children := named(param)
	if len(children) == 0 {
		return nil
	}

	return newArg(lowering.text(children[0])).At(position(param))
}

func (lowering *cstLowering) classDefinition(node sitter.Node) *Node {
	name, ok := field(node, "name")
	if !ok {
		return nil
	}

	if _, generic := field(node, "type_parameters"); generic {
		return nil
	}

	var bases, keywords []*Node

	if superclasses, hasBases := field(node, "superclasses"); hasBases {
		bases, keywords = lowering.arguments(superclasses)
	}

	class := newClassDef(lowering.text(name), bases, lowering.body(node, "body"))

	return class.Replace("keywords", keywords...)
}

func (lowering *cstLowering) decoratedDefinition(node sitter.Node) *Node {
	definition, ok := field(node, "definition")
	if !ok {
		return nil
	}

	lowered := lowering.stmt(definition)
	if lowered.Type == typeVerbatim {
		return nil
	}

	decorators := []*Node{}

	for _, child := range named(node) {
		if child.Type() != "decorator" {
			continue
		}

		expressions := named(child)
		if len(expressions) != 1 {
			return nil
		}

		decorators = append(decorators, lowering.expr(expressions[0]))
	}

	return lowered.Replace("decorator_list", decorators...).At(position(node))
}

func (lowering *cstLowering) tryStatement(node sitter.Node) *Node {
	var handlers, orelse, finalbody []*Node

	for _, clause := range named(node) {
		switch clause.Type() {
		case "except_clause":
			handler := lowering.exceptClause(clause)
			if handler == nil {
				return nil
			}

			handlers = append(handlers, handler)
		case "else_clause":
			orelse = lowering.body(clause, "body")
		case "finally_clause":
			finalbody = lowering.body(clause, "body")
		case "except_group_clause":
			return nil
		}
	}

	return newTry(lowering.body(node, "body"), handlers, finalbody).Replace("orelse", orelse...)
}

// exceptClause accepts both the fielded (value, alias) and the positional
// shapes of the grammar.
func (lowering *cstLowering) exceptClause(clause sitter.Node) *Node {
	var (
		exceptionType *Node
		alias         string
	)

	value, hasValue := field(clause, "value")
	aliasNode, hasAlias := field(clause, "alias")

	if !hasValue {
		parts := []sitter.Node{}

		for _, child := range named(clause) {
			if child.Type() != "block" {
				parts = append(parts, child)
			}
		}

		switch {
		case len(parts) == 1 && parts[0].Type() == "as_pattern":
			inner := named(parts[0])
			if len(inner) != 2 {
				return nil
			}

			value, hasValue = inner[0], true
			aliasNode, hasAlias = inner[1], true
		case len(parts) >= 1:
			value, hasValue = parts[0], true

			if len(parts) == 2 {
				aliasNode, hasAlias = parts[1], true
			}
		}
	}

	if hasValue {
		exceptionType = lowering.expr(value)
	}

	if hasAlias {
		alias = strings.TrimSpace(lowering.text(aliasNode))
	}

	return newExceptHandler(exceptionType, alias, lowering.body(clause, "body")).At(position(clause))
}

func (lowering *cstLowering) raiseStatement(node sitter.Node) *Node {
	raise := NewNode("Raise")

	var exc *Node

	for _, child := range named(node) {
		if cause, ok := field(node, "cause"); ok && cause.StartByte() == child.StartByte() {
			continue
		}

		exc = lowering.expr(child)

		break
	}

	raise.Set("exc", exc)

	if cause, ok := field(node, "cause"); ok {
		return raise.Set("cause", lowering.expr(cause))
	}

	return raise.Set("cause", nil)
}

func (lowering *cstLowering) scopeStatement(node sitter.Node) *Node {
	names := []string{}

	for _, child := range named(node) {
		names = append(names, lowering.text(child))
	}

	typ := "Global"
	if node.Type() == "nonlocal_statement" {
		typ = "Nonlocal"
	}

	return NewNode(typ).SetScalar("names", names)
}

//nolint:cyclop,gocyclo,funlen // One case per expression type.
func (lowering *cstLowering) expr(node sitter.Node) *Node {
	var native *Node

	switch node.Type() {
	case "identifier":
		native = newName(lowering.text(node), ctxLoad)
	case "integer":
		native = lowering.integer(node)
	case "float":
		native = lowering.float(node)
	case "true", "false":
		native = newConstant(valueBool, node.Type() == "true")
	case "none":
		native = newConstant(valueNone, nil)
	case "ellipsis":
		native = newConstant(valueEllipsis, "...")
	case "string", "concatenated_string":
		native = lowering.str(node)
	case "binary_operator":
		native = lowering.binaryOperator(node)
	case "unary_operator":
		native = lowering.unaryOperator(node)
	case "not_operator":
		if argument, ok := field(node, "argument"); ok {
			native = newUnaryOp("Not", lowering.expr(argument))
		}
	case "boolean_operator":
		native = lowering.booleanOperator(node)
	case "comparison_operator":
		native = lowering.comparison(node)
	case "call":
		native = lowering.call(node)
	case "attribute":
		object, objectOK := field(node, "object")
		attribute, attributeOK := field(node, "attribute")

		if objectOK && attributeOK {
			native = newAttribute(lowering.expr(object), lowering.text(attribute), ctxLoad)
		}
	case "subscript":
		native = lowering.subscript(node)
	case "list", "list_pattern":
		native = newSequence("List", ctxLoad, lowering.exprs(named(node))...)
	case "tuple", "tuple_pattern", "expression_list", "pattern_list":
		native = lowering.tuple(named(node))
	case "set":
		native = NewNode("Set").SetList("elts", lowering.exprs(named(node))...)
	case "dictionary":
		native = lowering.dictionary(node)
	case "parenthesized_expression":
		if children := named(node); len(children) == 1 && children[0].Type() != "yield" {
			return lowering.expr(children[0])
		}
	case "list_comprehension", "set_comprehension", "generator_expression", "dictionary_comprehension":
		native = lowering.comprehension(node)
	case "lambda":
		native = lowering.lambda(node)
	case "conditional_expression":
		if children := named(node); len(children) == 3 {
			native = newIfExp(lowering.expr(children[1]), lowering.expr(children[0]), lowering.expr(children[2]))
		}
	case "await":
		if children := named(node); len(children) == 1 {
			native = NewNode("Await").Set("value", lowering.expr(children[0]))
		}
	case "list_splat", "list_splat_pattern":
		if children := named(node); len(children) == 1 {
			native = NewNode("Starred").Set("value", lowering.expr(children[0])).Set("ctx", NewNode(ctxLoad))
		}
	case "named_expression":
		name, nameOK := field(node, "name")
		value, valueOK := field(node, "value")

		if nameOK && valueOK {
			native = NewNode("NamedExpr").Set("target", storeCtx(lowering.expr(name))).Set("value", lowering.expr(value))
		}
	}

	if native == nil {
		return lowering.verbatim(node, false)
	}

	if native.Pos == nil {
		native.At(position(node))
	}

	return native
}

func (lowering *cstLowering) exprs(nodes []sitter.Node) []*Node {
	lowered := make([]*Node, 0, len(nodes))

	for _, node := range nodes {
		lowered = append(lowered, lowering.expr(node))
	}

	return lowered
}

func (lowering *cstLowering) tuple(nodes []sitter.Node) *Node {
	return newSequence("Tuple", ctxLoad, lowering.exprs(nodes)...)
}

func (lowering *cstLowering) integer(node sitter.Node) *Node {
	text := strings.ReplaceAll(lowering.text(node), "_", "")

	if strings.HasSuffix(text, "j") || strings.HasSuffix(text, "J") {
		return newConstant(valueComplex, text)
	}

	value, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return newConstant(valueBigInt, text)
	}

	return newConstant(valueInt, value)
}

func (lowering *cstLowering) float(node sitter.Node) *Node {
	text := strings.ReplaceAll(lowering.text(node), "_", "")

	if strings.HasSuffix(text, "j") || strings.HasSuffix(text, "J") {
		return newConstant(valueComplex, text)
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}

	return newConstant(valueFloat, value)
}

func (lowering *cstLowering) str(node sitter.Node) *Node {
	parts := []sitter.Node{node}
	if node.Type() == "concatenated_string" {
		parts = named(node)
	}

	var builder strings.Builder

	for _, part := range parts {
		decoded, ok := decodeString(lowering.text(part))
		if !ok {
			return nil
		}

		builder.WriteString(decoded)
	}

	return newConstant(valueStr, builder.String())
}

func (lowering *cstLowering) binaryOperator(node sitter.Node) *Node {
	left, leftOK := field(node, "left")
	right, rightOK := field(node, "right")
	operator, operatorOK := field(node, "operator")

	if !leftOK || !rightOK || !operatorOK {
		return nil
	}

	opName, ok := binaryTypeOf(lowering.text(operator))
	if !ok {
		return nil
	}

	if _, isBinary := binaryPrec[opName]; !isBinary {
		return nil
	}

	if _, isBitwise := bitwiseLevels[opName]; isBitwise {
		return lowering.bitwiseChain(node)
	}

	return newBinOp(lowering.expr(left), opName, lowering.expr(right))
}

// bitwiseLevels ranks |, ^ and & as Python does. The grammar binds ^ tighter
// than &, so unparenthesized runs of them are re-associated.
//
//nolint:gochecknoglobals // Immutable operator table.
var bitwiseLevels = map[string]int{"BitOr": 1, "BitXor": 2, "BitAnd": 3}

type chainItem struct {
	node     sitter.Node
	operator string
}

// bitwiseChain lowers the maximal unparenthesized run of bitwise operators
// rooted at node, in source order, then rebuilds it left-associatively by
// Python precedence.
func (lowering *cstLowering) bitwiseChain(node sitter.Node) *Node {
	var (
		operands  []*Node
		operators []string
	)

	stack := []chainItem{{node: node}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.operator != "" {
			operators = append(operators, item.operator)

			continue
		}

		opName, left, right, ok := lowering.bitwiseParts(item.node)
		if !ok {
			operands = append(operands, lowering.expr(item.node))

			continue
		}

		stack = append(stack, chainItem{node: right}, chainItem{operator: opName}, chainItem{node: left})
	}

	values := []*Node{operands[0]}
	pending := []string{}

	reduce := func() {
		operator := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		left, right := values[len(values)-2], values[len(values)-1]
		values = append(values[:len(values)-2], newBinOp(left, operator, right).At(spanning(left.Pos, right.Pos)))
	}

	for idx, operator := range operators {
		for len(pending) > 0 && bitwiseLevels[pending[len(pending)-1]] >= bitwiseLevels[operator] {
			reduce()
		}

		pending = append(pending, operator)
		values = append(values, operands[idx+1])
	}

	for len(pending) > 0 {
		reduce()
	}

	return values[0]
}

func (lowering *cstLowering) bitwiseParts(node sitter.Node) (string, sitter.Node, sitter.Node, bool) {
	var none sitter.Node

	if node.Type() != "binary_operator" {
		return "", none, none, false
	}

	left, leftOK := field(node, "left")
	right, rightOK := field(node, "right")
	operator, operatorOK := field(node, "operator")

	if !leftOK || !rightOK || !operatorOK {
		return "", none, none, false
	}

	opName, ok := binaryTypeOf(lowering.text(operator))
	if _, isBitwise := bitwiseLevels[opName]; !ok || !isBitwise {
		return "", none, none, false
	}

	return opName, left, right, true
}

func spanning(start, end *Pos) *Pos {
	if start == nil || end == nil {
		return nil
	}

	return &Pos{Line: start.Line, Col: start.Col, EndLine: end.EndLine, EndCol: end.EndCol}
}

func (lowering *cstLowering) unaryOperator(node sitter.Node) *Node {
	operator, operatorOK := field(node, "operator")
	argument, argumentOK := field(node, "argument")

	if !operatorOK || !argumentOK {
		return nil
	}

	opName, ok := unaryTypeOf(lowering.text(operator))
	if !ok {
		return nil
	}

	return newUnaryOp(opName, lowering.expr(argument))
}

// booleanOperator flattens unparenthesized chains of one operator, as
// CPython does.
func (lowering *cstLowering) booleanOperator(node sitter.Node) *Node {
	left, leftOK := field(node, "left")
	right, rightOK := field(node, "right")
	operator, operatorOK := field(node, "operator")

	if !leftOK || !rightOK || !operatorOK {
		return nil
	}

	opName := "And"
	if lowering.text(operator) == "or" {
		opName = "Or"
	}

	loweredLeft := lowering.expr(left)
	values := []*Node{loweredLeft}

	if left.Type() == "boolean_operator" && loweredLeft.Type == "BoolOp" && opType(loweredLeft) == opName {
		values = loweredLeft.List("values")
	}

	values = append(values, lowering.expr(right))

	return newBoolOp(opName, values...)
}

func (lowering *cstLowering) comparison(node sitter.Node) *Node {
	var (
		operands  []*Node
		operators []string
		pending   string
	)

	for idx := range node.ChildCount() {
		child := node.Child(idx)

		if child.IsNamed() {
			if child.Type() == "comment" {
				continue
			}

			if pending != "" {
				opName, ok := binaryTypeOf(pending)
				if !ok {
					return nil
				}

				operators = append(operators, opName)
				pending = ""
			}

			operands = append(operands, lowering.expr(child))

			continue
		}

		pending = strings.Join(strings.Fields(pending+" "+lowering.text(child)), " ")
	}

	if len(operands) < 2 || len(operators) != len(operands)-1 {
		return nil
	}

	return newCompare(operands[0], operators, operands[1:])
}

func (lowering *cstLowering) call(node sitter.Node) *Node {
	function, functionOK := field(node, "function")
	arguments, argumentsOK := field(node, "arguments")

	if !functionOK || !argumentsOK {
		return nil
	}

	if arguments.Type() != "argument_list" {
		return newCall(lowering.expr(function), []*Node{lowering.expr(arguments)}, nil)
	}

	args, keywords := lowering.arguments(arguments)

	return newCall(lowering.expr(function), args, keywords)
}

func (lowering *cstLowering) arguments(list sitter.Node) ([]*Node, []*Node) {
	var args, keywords []*Node

	for _, child := range named(list) {
		switch child.Type() {
		case "keyword_argument":
			name, nameOK := field(child, "name")
			value, valueOK := field(child, "value")

			if !nameOK || !valueOK {
				args = append(args, lowering.verbatim(child, false))

				continue
			}

			keyword := NewNode("keyword").SetScalar(scalarArg, lowering.text(name)).Set("value", lowering.expr(value))
			keywords = append(keywords, keyword.At(position(child)))
		case "dictionary_splat":
			inner := named(child)
			if len(inner) != 1 {
				args = append(args, lowering.verbatim(child, false))

				continue
			}

			keyword := NewNode("keyword").Set("value", lowering.expr(inner[0]))
			keywords = append(keywords, keyword.At(position(child)))
		default:
			args = append(args, lowering.expr(child))
		}
	}

	return args, keywords
}

func (lowering *cstLowering) subscript(node sitter.Node) *Node {
	value, ok := field(node, "value")
	if !ok {
		return nil
	}

	indexes := []*Node{}

	for _, child := range named(node) {
		if child.StartByte() == value.StartByte() && child.EndByte() == value.EndByte() {
			continue
		}

		if child.Type() == "slice" {
			indexes = append(indexes, lowering.slice(child))

			continue
		}

		indexes = append(indexes, lowering.expr(child))
	}

	var index *Node

	switch len(indexes) {
	case 0:
		return nil
	case 1:
		index = indexes[0]
	default:
		index = newSequence("Tuple", ctxLoad, indexes...)
	}

	return NewNode("Subscript").Set("value", lowering.expr(value)).Set("slice", index).Set("ctx", NewNode(ctxLoad))
}

// slice places each bound by the number of colons before it.
func (lowering *cstLowering) slice(node sitter.Node) *Node {
	bounds := [3]*Node{}
	colons := 0

	for idx := range node.ChildCount() {
		child := node.Child(idx)

		switch {
		case !child.IsNamed() && lowering.text(child) == ":":
			colons++
		case child.IsNamed() && child.Type() != "comment" && colons < len(bounds):
			bounds[colons] = lowering.expr(child)
		}
	}

	return NewNode("Slice").Set("lower", bounds[0]).Set("upper", bounds[1]).Set("step", bounds[2]).At(position(node))
}

func (lowering *cstLowering) dictionary(node sitter.Node) *Node {
	var keys, values []*Node

	for _, child := range named(node) {
		switch child.Type() {
		case "pair":
			key, keyOK := field(child, "key")
			value, valueOK := field(child, "value")

			if !keyOK || !valueOK {
				return nil
			}

			keys = append(keys, lowering.expr(key))
			values = append(values, lowering.expr(value))
		case "dictionary_splat":
			inner := named(child)
			if len(inner) != 1 {
				return nil
			}

			keys = append(keys, nil)
			values = append(values, lowering.expr(inner[0]))
		default:
			return nil
		}
	}

	return newDict(keys, values)
}

//nolint:gochecknoglobals // Immutable lookup table.
var comprehensionTypes = map[string]string{
	"list_comprehension":       "ListComp",
	"set_comprehension":        "SetComp",
	"generator_expression":     "GeneratorExp",
	"dictionary_comprehension": "DictComp",
}

func (lowering *cstLowering) comprehension(node sitter.Node) *Node {
	body, ok := field(node, "body")
	if !ok {
		return nil
	}

	comprehension := NewNode(comprehensionTypes[node.Type()])

	if node.Type() == "dictionary_comprehension" {
		key, keyOK := field(body, "key")
		value, valueOK := field(body, "value")

		if body.Type() != "pair" || !keyOK || !valueOK {
			return nil
		}

		comprehension.Set("key", lowering.expr(key)).Set("value", lowering.expr(value))
	} else {
		comprehension.Set("elt", lowering.expr(body))
	}

	generators := []*Node{}

	for _, clause := range named(node) {
		switch clause.Type() {
		case "for_in_clause":
			left, leftOK := field(clause, "left")
			right, rightOK := field(clause, "right")

			if !leftOK || !rightOK {
				return nil
			}

			asyncFlag := int64(0)
			if isAsync(clause) {
				asyncFlag = 1
			}

			generator := NewNode("comprehension").
				Set("target", storeCtx(lowering.expr(left))).
				Set("iter", lowering.expr(right)).
				SetList("ifs").
				SetScalar(scalarIsAsync, asyncFlag)
			generators = append(generators, generator)
		case "if_clause":
			conditions := named(clause)
			if len(generators) == 0 || len(conditions) != 1 {
				return nil
			}

			last := generators[len(generators)-1]
			last.Replace("ifs", append(last.List("ifs"), lowering.expr(conditions[0]))...)
		}
	}

	if len(generators) == 0 {
		return nil
	}

	return comprehension.SetList("generators", generators...)
}

func (lowering *cstLowering) lambda(node sitter.Node) *Node {
	body, ok := field(node, "body")
	if !ok {
		return nil
	}

	arguments := newArguments(nil)

	if parameters, hasParams := field(node, "parameters"); hasParams {
		arguments = lowering.parameters(parameters)
		if arguments == nil {
			return nil
		}
	}

	return NewNode("Lambda").Set("args", arguments).Set("body", lowering.expr(body))
}
