package python

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnprintable is returned for native nodes the printer has no syntax for.
var ErrUnprintable = errors.New("unprintable python node")

const indentUnit = "    "

// Operator precedence, lowest first.
const (
	precNamed = iota + 1
	precTuple
	precYield
	precTest
	precOr
	precAnd
	precNot
	precCmp
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precArith
	precTerm
	precFactor
	precPower
	precAwait
	precAtom
)

//nolint:gochecknoglobals // Immutable lookup table.
var binaryPrec = map[string]int{
	"BitOr": precBitOr, "BitXor": precBitXor, "BitAnd": precBitAnd,
	"LShift": precShift, "RShift": precShift,
	"Add": precArith, "Sub": precArith,
	"Mult": precTerm, "Div": precTerm, "FloorDiv": precTerm, "Mod": precTerm, "MatMult": precTerm,
	"Pow": precPower,
}

// Print renders a native tree as Python source.
func Print(node *Node) (string, error) {
	writer := &printer{}

	err := writer.top(node)
	if err != nil {
		return "", err
	}

	return writer.out.String(), nil
}

type printer struct {
	out    strings.Builder
	indent int
}

func (writer *printer) top(node *Node) error {
	if node == nil {
		return fmt.Errorf("%w: nil node", ErrUnprintable)
	}

	switch {
	case node.Type == typeModule:
		return writer.block(node.List("body"))
	case node.isStatement():
		return writer.stmt(node)
	default:
		text, err := writer.expr(node, precTuple)
		if err != nil {
			return err
		}

		writer.line(text)

		return nil
	}
}

func (writer *printer) line(text string) {
	prefix := strings.Repeat(indentUnit, writer.indent)

	writer.out.WriteString(prefix)
	writer.out.WriteString(strings.ReplaceAll(text, "\n", "\n"+prefix))
	writer.out.WriteByte('\n')
}

func (writer *printer) block(statements []*Node) error {
	for _, statement := range statements {
		err := writer.stmt(statement)
		if err != nil {
			return err
		}
	}

	return nil
}

// suite writes "header:" followed by an indented body.
func (writer *printer) suite(header string, body []*Node) error {
	writer.line(header + ":")
	writer.indent++

	defer func() { writer.indent-- }()

	if len(body) == 0 {
		writer.line("pass")

		return nil
	}

	return writer.block(body)
}

//nolint:cyclop,funlen,gocyclo // One case per statement type.
func (writer *printer) stmt(node *Node) error {
	if node == nil {
		return fmt.Errorf("%w: nil statement", ErrUnprintable)
	}

	switch node.Type {
	case "Expr":
		return writer.exprLine("", node.Child("value"), precYield)
	case "Pass", "Break", "Continue":
		writer.line(strings.ToLower(node.Type))

		return nil
	case "Return":
		if node.Child("value") == nil {
			writer.line("return")

			return nil
		}

		return writer.exprLine("return ", node.Child("value"), precTuple)
	case "Assign":
		return writer.assign(node)
	case "AugAssign":
		target, err := writer.expr(node.Child("target"), precTuple)
		if err != nil {
			return err
		}

		return writer.exprLine(target+" "+binarySpelling(opType(node))+"= ", node.Child("value"), precTuple)
	case "AnnAssign":
		return writer.annAssign(node)
	case "Delete":
		targets, err := writer.exprList(node.List("targets"), precTuple)
		if err != nil {
			return err
		}

		writer.line("del " + targets)

		return nil
	case "Raise":
		return writer.raise(node)
	case "Assert":
		return writer.assert(node)
	case "Global", "Nonlocal":
		names, _ := node.Scalar("names").([]string)
		writer.line(strings.ToLower(node.Type) + " " + strings.Join(names, ", "))

		return nil
	case "Import", "ImportFrom":
		return writer.importStmt(node)
	case "If":
		return writer.ifStmt(node, "if")
	case "While":
		test, err := writer.expr(node.Child("test"), precNamed)
		if err != nil {
			return err
		}

		return writer.loopSuites("while "+test, node)
	case "For", "AsyncFor":
		return writer.forStmt(node)
	case "FunctionDef", "AsyncFunctionDef":
		return writer.functionDef(node)
	case "ClassDef":
		return writer.classDef(node)
	case "Try", "TryStar":
		return writer.tryStmt(node)
	case "With", "AsyncWith":
		return writer.withStmt(node)
	case "Match":
		return writer.matchStmt(node)
	case typeVerbatim:
		writer.line(node.Str(scalarText))

		return nil
	default:
		if node.isStatement() {
			return fmt.Errorf("%w: %s", ErrUnprintable, node.Type)
		}

		return writer.exprLine("", node, precYield)
	}
}

// target renders an assignment or loop target. A bare tuple of two or more
// elements needs no parentheses there.
func (writer *printer) target(node *Node) (string, error) {
	if node != nil && node.Type == "Tuple" && len(node.List("elts")) > 1 {
		return writer.exprList(node.List("elts"), precTest)
	}

	return writer.expr(node, precTuple)
}

func (writer *printer) exprLine(prefix string, node *Node, prec int) error {
	text, err := writer.expr(node, prec)
	if err != nil {
		return err
	}

	writer.line(prefix + text)

	return nil
}

func (writer *printer) assign(node *Node) error {
	var builder strings.Builder

	for _, target := range node.List("targets") {
		text, err := writer.target(target)
		if err != nil {
			return err
		}

		builder.WriteString(text)
		builder.WriteString(" = ")
	}

	return writer.exprLine(builder.String(), node.Child("value"), precTuple)
}

func (writer *printer) annAssign(node *Node) error {
	target, err := writer.expr(node.Child("target"), precTuple)
	if err != nil {
		return err
	}

	if simple, _ := node.Scalar("simple").(int64); simple == 0 && node.Child("target").Type == "Name" {
		target = "(" + target + ")"
	}

	annotation, err := writer.expr(node.Child("annotation"), precTest)
	if err != nil {
		return err
	}

	if node.Child("value") == nil {
		writer.line(target + ": " + annotation)

		return nil
	}

	return writer.exprLine(target+": "+annotation+" = ", node.Child("value"), precTuple)
}

func (writer *printer) raise(node *Node) error {
	text := "raise"

	if exc := node.Child("exc"); exc != nil {
		rendered, err := writer.expr(exc, precTest)
		if err != nil {
			return err
		}

		text += " " + rendered
	}

	if cause := node.Child("cause"); cause != nil {
		rendered, err := writer.expr(cause, precTest)
		if err != nil {
			return err
		}

		text += " from " + rendered
	}

	writer.line(text)

	return nil
}

func (writer *printer) assert(node *Node) error {
	test, err := writer.expr(node.Child("test"), precTest)
	if err != nil {
		return err
	}

	if msg := node.Child("msg"); msg != nil {
		rendered, err := writer.expr(msg, precTest)
		if err != nil {
			return err
		}

		test += ", " + rendered
	}

	writer.line("assert " + test)

	return nil
}

func (writer *printer) importStmt(node *Node) error {
	aliases := make([]string, 0, len(node.List("names")))

	for _, alias := range node.List("names") {
		text := alias.Str(scalarName)
		if asName := alias.Str("asname"); asName != "" {
			text += " as " + asName
		}

		aliases = append(aliases, text)
	}

	if node.Type == "Import" {
		writer.line("import " + strings.Join(aliases, ", "))

		return nil
	}

	level, _ := node.Scalar("level").(int64)
	module := strings.Repeat(".", int(level)) + node.Str("module")
	writer.line("from " + module + " import " + strings.Join(aliases, ", "))

	return nil
}

func (writer *printer) ifStmt(node *Node, keyword string) error {
	test, err := writer.expr(node.Child("test"), precNamed)
	if err != nil {
		return err
	}

	err = writer.suite(keyword+" "+test, node.List("body"))
	if err != nil {
		return err
	}

	orelse := node.List("orelse")

	switch {
	case len(orelse) == 0:
		return nil
	case len(orelse) == 1 && orelse[0] != nil && orelse[0].Type == "If":
		return writer.ifStmt(orelse[0], "elif")
	default:
		return writer.suite("else", orelse)
	}
}

func (writer *printer) loopSuites(header string, node *Node) error {
	err := writer.suite(header, node.List("body"))
	if err != nil {
		return err
	}

	if orelse := node.List("orelse"); len(orelse) > 0 {
		return writer.suite("else", orelse)
	}

	return nil
}

func (writer *printer) forStmt(node *Node) error {
	target, err := writer.target(node.Child("target"))
	if err != nil {
		return err
	}

	iter, err := writer.expr(node.Child("iter"), precTest)
	if err != nil {
		return err
	}

	keyword := "for "
	if node.Type == "AsyncFor" {
		keyword = "async for "
	}

	return writer.loopSuites(keyword+target+" in "+iter, node)
}

func (writer *printer) decorators(node *Node) error {
	for _, decorator := range node.List("decorator_list") {
		text, err := writer.expr(decorator, precNamed)
		if err != nil {
			return err
		}

		writer.line("@" + text)
	}

	return nil
}

func (writer *printer) functionDef(node *Node) error {
	err := writer.decorators(node)
	if err != nil {
		return err
	}

	params, err := writer.arguments(node.Child("args"))
	if err != nil {
		return err
	}

	header := "def " + node.Str(scalarName) + "(" + params + ")"
	if node.Type == "AsyncFunctionDef" {
		header = "async " + header
	}

	if returns := node.Child("returns"); returns != nil {
		annotation, err := writer.expr(returns, precTest)
		if err != nil {
			return err
		}

		header += " -> " + annotation
	}

	return writer.suite(header, node.List("body"))
}

func (writer *printer) classDef(node *Node) error {
	err := writer.decorators(node)
	if err != nil {
		return err
	}

	parts := make([]string, 0, len(node.List("bases"))+len(node.List("keywords")))

	for _, base := range node.List("bases") {
		text, err := writer.expr(base, precTest)
		if err != nil {
			return err
		}

		parts = append(parts, text)
	}

	keywords, err := writer.keywords(node.List("keywords"))
	if err != nil {
		return err
	}

	parts = append(parts, keywords...)

	header := "class " + node.Str(scalarName)
	if len(parts) > 0 {
		header += "(" + strings.Join(parts, ", ") + ")"
	}

	return writer.suite(header, node.List("body"))
}

func (writer *printer) tryStmt(node *Node) error {
	err := writer.suite("try", node.List("body"))
	if err != nil {
		return err
	}

	keyword := "except"
	if node.Type == "TryStar" {
		keyword = "except*"
	}

	for _, handler := range node.List("handlers") {
		header := keyword

		if typ := handler.Child("type"); typ != nil {
			text, err := writer.expr(typ, precTest)
			if err != nil {
				return err
			}

			header += " " + text
		}

		if name := handler.Str(scalarName); name != "" {
			header += " as " + name
		}

		err = writer.suite(header, handler.List("body"))
		if err != nil {
			return err
		}
	}

	if orelse := node.List("orelse"); len(orelse) > 0 {
		err = writer.suite("else", orelse)
		if err != nil {
			return err
		}
	}

	if finalbody := node.List("finalbody"); len(finalbody) > 0 {
		return writer.suite("finally", finalbody)
	}

	return nil
}

func (writer *printer) withStmt(node *Node) error {
	items := make([]string, 0, len(node.List("items")))

	for _, item := range node.List("items") {
		text, err := writer.expr(item.Child("context_expr"), precTest)
		if err != nil {
			return err
		}

		if vars := item.Child("optional_vars"); vars != nil {
			target, err := writer.expr(vars, precTuple)
			if err != nil {
				return err
			}

			text += " as " + target
		}

		items = append(items, text)
	}

	keyword := "with "
	if node.Type == "AsyncWith" {
		keyword = "async with "
	}

	return writer.suite(keyword+strings.Join(items, ", "), node.List("body"))
}

func (writer *printer) matchStmt(node *Node) error {
	subject, err := writer.expr(node.Child("subject"), precTuple)
	if err != nil {
		return err
	}

	writer.line("match " + subject + ":")
	writer.indent++

	defer func() { writer.indent-- }()

	for _, matchCase := range node.List("cases") {
		pattern, err := writer.pattern(matchCase.Child("pattern"))
		if err != nil {
			return err
		}

		header := "case " + pattern

		if guard := matchCase.Child("guard"); guard != nil {
			text, err := writer.expr(guard, precNamed)
			if err != nil {
				return err
			}

			header += " if " + text
		}

		err = writer.suite(header, matchCase.List("body"))
		if err != nil {
			return err
		}
	}

	return nil
}

func (writer *printer) pattern(node *Node) (string, error) {
	if node == nil {
		return "", fmt.Errorf("%w: nil pattern", ErrUnprintable)
	}

	switch node.Type {
	case "MatchValue":
		return writer.expr(node.Child("value"), precBitOr)
	case "MatchSingleton":
		return constantText(newConstant(singletonType(node.Scalar(scalarValue)), node.Scalar(scalarValue))), nil
	case "MatchAs":
		name := node.Str(scalarName)
		if name == "" {
			name = wildcard
		}

		inner := node.Child("pattern")
		if inner == nil {
			return name, nil
		}

		text, err := writer.pattern(inner)
		if err != nil {
			return "", err
		}

		return text + " as " + name, nil
	case "MatchStar":
		name := node.Str(scalarName)
		if name == "" {
			name = wildcard
		}

		return "*" + name, nil
	case "MatchSequence", "MatchOr":
		parts := make([]string, 0, len(node.List("patterns")))

		for _, item := range node.List("patterns") {
			text, err := writer.pattern(item)
			if err != nil {
				return "", err
			}

			parts = append(parts, text)
		}

		if node.Type == "MatchOr" {
			return strings.Join(parts, " | "), nil
		}

		return "[" + strings.Join(parts, ", ") + "]", nil
	case typeVerbatim:
		return node.Str(scalarText), nil
	default:
		return "", fmt.Errorf("%w: pattern %s", ErrUnprintable, node.Type)
	}
}

func singletonType(value any) string {
	if _, ok := value.(bool); ok {
		return valueBool
	}

	return valueNone
}

func (writer *printer) arguments(node *Node) (string, error) {
	if node == nil {
		return "", nil
	}

	parts := []string{}
	positional := append(append([]*Node{}, node.List("posonlyargs")...), node.List("args")...)
	defaults := node.List("defaults")
	firstDefault := len(positional) - len(defaults)

	for idx, arg := range positional {
		text, err := writer.arg(arg)
		if err != nil {
			return "", err
		}

		if idx >= firstDefault && idx-firstDefault < len(defaults) {
			value, err := writer.expr(defaults[idx-firstDefault], precTest)
			if err != nil {
				return "", err
			}

			text += "=" + value
		}

		parts = append(parts, text)

		if idx == len(node.List("posonlyargs"))-1 {
			parts = append(parts, "/")
		}
	}

	kwonly := node.List("kwonlyargs")

	if vararg := node.Child("vararg"); vararg != nil {
		text, err := writer.arg(vararg)
		if err != nil {
			return "", err
		}

		parts = append(parts, "*"+text)
	} else if len(kwonly) > 0 {
		parts = append(parts, "*")
	}

	kwDefaults := node.List("kw_defaults")

	for idx, arg := range kwonly {
		text, err := writer.arg(arg)
		if err != nil {
			return "", err
		}

		if idx < len(kwDefaults) && kwDefaults[idx] != nil {
			value, err := writer.expr(kwDefaults[idx], precTest)
			if err != nil {
				return "", err
			}

			text += "=" + value
		}

		parts = append(parts, text)
	}

	if kwarg := node.Child("kwarg"); kwarg != nil {
		text, err := writer.arg(kwarg)
		if err != nil {
			return "", err
		}

		parts = append(parts, "**"+text)
	}

	return strings.Join(parts, ", "), nil
}

func (writer *printer) arg(node *Node) (string, error) {
	text := node.Str(scalarArg)

	if annotation := node.Child("annotation"); annotation != nil {
		rendered, err := writer.expr(annotation, precTest)
		if err != nil {
			return "", err
		}

		text += ": " + rendered
	}

	return text, nil
}

func (writer *printer) keywords(keywords []*Node) ([]string, error) {
	parts := make([]string, 0, len(keywords))

	for _, keyword := range keywords {
		value, err := writer.expr(keyword.Child("value"), precTest)
		if err != nil {
			return nil, err
		}

		if name := keyword.Str(scalarArg); name != "" {
			parts = append(parts, name+"="+value)
		} else {
			parts = append(parts, "**"+value)
		}
	}

	return parts, nil
}

func (writer *printer) exprList(nodes []*Node, prec int) (string, error) {
	parts := make([]string, 0, len(nodes))

	for _, node := range nodes {
		text, err := writer.expr(node, prec)
		if err != nil {
			return "", err
		}

		parts = append(parts, text)
	}

	return strings.Join(parts, ", "), nil
}

func precedence(node *Node) int {
	switch node.Type {
	case "NamedExpr":
		return precNamed
	case "Yield", "YieldFrom":
		return precYield
	case "Lambda", "IfExp":
		return precTest
	case "BoolOp":
		if opType(node) == "Or" {
			return precOr
		}

		return precAnd
	case "UnaryOp":
		if opType(node) == "Not" {
			return precNot
		}

		return precFactor
	case "Compare":
		return precCmp
	case "BinOp":
		return binaryPrec[opType(node)]
	case "Await":
		return precAwait
	case typeVerbatim:
		return precTest
	default:
		return precAtom
	}
}

// expr renders node, parenthesized when it binds looser than prec.
func (writer *printer) expr(node *Node, prec int) (string, error) {
	if node == nil {
		return "", fmt.Errorf("%w: missing expression", ErrUnprintable)
	}

	text, err := writer.exprText(node)
	if err != nil {
		return "", err
	}

	if precedence(node) < prec {
		return "(" + text + ")", nil
	}

	return text, nil
}

//nolint:cyclop,funlen,gocyclo // One case per expression type.
func (writer *printer) exprText(node *Node) (string, error) {
	switch node.Type {
	case "Name":
		return node.Str(scalarID), nil
	case "Constant":
		return constantText(node), nil
	case "BinOp":
		return writer.binOp(node)
	case "UnaryOp":
		return writer.unaryOp(node)
	case "BoolOp":
		operands := make([]string, 0, len(node.List("values")))

		for _, value := range node.List("values") {
			text, err := writer.expr(value, precedence(node)+1)
			if err != nil {
				return "", err
			}

			operands = append(operands, text)
		}

		return strings.Join(operands, " "+binarySpelling(opType(node))+" "), nil
	case "Compare":
		return writer.compare(node)
	case "Call":
		return writer.call(node)
	case "Attribute":
		value, err := writer.expr(node.Child("value"), precAtom)
		if err != nil {
			return "", err
		}

		if constant := node.Child("value"); constant.Type == "Constant" && constant.Str(scalarValueType) == valueInt {
			value = "(" + value + ")"
		}

		return value + "." + node.Str(scalarAttr), nil
	case "Subscript":
		value, err := writer.expr(node.Child("value"), precAtom)
		if err != nil {
			return "", err
		}

		index, err := writer.subscript(node.Child("slice"))
		if err != nil {
			return "", err
		}

		return value + "[" + index + "]", nil
	case "Slice":
		return writer.subscript(node)
	case "List":
		elements, err := writer.exprList(node.List("elts"), precTest)

		return "[" + elements + "]", err
	case "Set":
		elements, err := writer.exprList(node.List("elts"), precTest)

		return "{" + elements + "}", err
	case "Tuple":
		elements, err := writer.exprList(node.List("elts"), precTest)
		if len(node.List("elts")) == 1 {
			elements += ","
		}

		return "(" + elements + ")", err
	case "Dict":
		return writer.dict(node)
	case "ListComp", "SetComp", "GeneratorExp", "DictComp":
		return writer.comprehension(node)
	case "Lambda":
		params, err := writer.arguments(node.Child("args"))
		if err != nil {
			return "", err
		}

		body, err := writer.expr(node.Child("body"), precTest)
		if err != nil {
			return "", err
		}

		if params == "" {
			return "lambda: " + body, nil
		}

		return "lambda " + params + ": " + body, nil
	case "IfExp":
		body, err := writer.expr(node.Child("body"), precTest+1)
		if err != nil {
			return "", err
		}

		test, err := writer.expr(node.Child("test"), precTest+1)
		if err != nil {
			return "", err
		}

		orelse, err := writer.expr(node.Child("orelse"), precTest)
		if err != nil {
			return "", err
		}

		return body + " if " + test + " else " + orelse, nil
	case "Await":
		value, err := writer.expr(node.Child("value"), precAtom)

		return "await " + value, err
	case "Yield":
		if node.Child("value") == nil {
			return "yield", nil
		}

		value, err := writer.expr(node.Child("value"), precTuple)

		return "yield " + value, err
	case "YieldFrom":
		value, err := writer.expr(node.Child("value"), precTest)

		return "yield from " + value, err
	case "Starred":
		value, err := writer.expr(node.Child("value"), precBitOr)

		return "*" + value, err
	case "NamedExpr":
		target, err := writer.expr(node.Child("target"), precAtom)
		if err != nil {
			return "", err
		}

		value, err := writer.expr(node.Child("value"), precAtom)

		return target + " := " + value, err
	case typeVerbatim:
		return node.Str(scalarText), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnprintable, node.Type)
	}
}

func (writer *printer) binOp(node *Node) (string, error) {
	operator := opType(node)

	prec, ok := binaryPrec[operator]
	if !ok {
		return "", fmt.Errorf("%w: operator %q", ErrUnprintable, operator)
	}

	leftPrec, rightPrec := prec, prec+1
	if operator == "Pow" {
		leftPrec, rightPrec = prec+1, prec
	}

	left, err := writer.expr(node.Child("left"), leftPrec)
	if err != nil {
		return "", err
	}

	right, err := writer.expr(node.Child("right"), rightPrec)
	if err != nil {
		return "", err
	}

	return left + " " + binarySpelling(operator) + " " + right, nil
}

func (writer *printer) unaryOp(node *Node) (string, error) {
	operator := opType(node)

	op, ok := unaryOps[operator]
	if !ok {
		return "", fmt.Errorf("%w: operator %q", ErrUnprintable, operator)
	}

	operand, err := writer.expr(node.Child("operand"), precedence(node))
	if err != nil {
		return "", err
	}

	if operator == "Not" {
		return "not " + operand, nil
	}

	return op.symbol + operand, nil
}

func (writer *printer) compare(node *Node) (string, error) {
	text, err := writer.expr(node.Child("left"), precCmp+1)
	if err != nil {
		return "", err
	}

	comparators := node.List("comparators")

	for idx, op := range node.List("ops") {
		if idx >= len(comparators) {
			return "", fmt.Errorf("%w: Compare arity", ErrUnprintable)
		}

		right, err := writer.expr(comparators[idx], precCmp+1)
		if err != nil {
			return "", err
		}

		text += " " + binarySpelling(op.Type) + " " + right
	}

	return text, nil
}

func (writer *printer) call(node *Node) (string, error) {
	fn, err := writer.expr(node.Child("func"), precAtom)
	if err != nil {
		return "", err
	}

	args, err := writer.exprList(node.List("args"), precTest)
	if err != nil {
		return "", err
	}

	keywords, err := writer.keywords(node.List("keywords"))
	if err != nil {
		return "", err
	}

	parts := []string{}
	if args != "" {
		parts = append(parts, args)
	}

	parts = append(parts, keywords...)

	return fn + "(" + strings.Join(parts, ", ") + ")", nil
}

func (writer *printer) subscript(node *Node) (string, error) {
	if node == nil {
		return "", fmt.Errorf("%w: missing slice", ErrUnprintable)
	}

	switch node.Type {
	case "Slice":
		parts := make([]string, 0, 3)

		for _, field := range []string{"lower", "upper", "step"} {
			part := node.Child(field)
			if part == nil {
				parts = append(parts, "")

				continue
			}

			text, err := writer.expr(part, precTest)
			if err != nil {
				return "", err
			}

			parts = append(parts, text)
		}

		if parts[2] == "" {
			parts = parts[:2]
		}

		return strings.Join(parts, ":"), nil
	case "Tuple":
		return writer.exprList(node.List("elts"), precTest)
	default:
		return writer.expr(node, precTuple)
	}
}

func (writer *printer) dict(node *Node) (string, error) {
	keys := node.List("keys")
	values := node.List("values")
	parts := make([]string, 0, len(values))

	for idx, value := range values {
		rendered, err := writer.expr(value, precTest)
		if err != nil {
			return "", err
		}

		if idx >= len(keys) || keys[idx] == nil {
			parts = append(parts, "**"+rendered)

			continue
		}

		key, err := writer.expr(keys[idx], precTest)
		if err != nil {
			return "", err
		}

		parts = append(parts, key+": "+rendered)
	}

	return "{" + strings.Join(parts, ", ") + "}", nil
}

func (writer *printer) comprehension(node *Node) (string, error) {
	var (
		head string
		err  error
	)

	if node.Type == "DictComp" {
		key, keyErr := writer.expr(node.Child("key"), precTest)
		if keyErr != nil {
			return "", keyErr
		}

		value, valueErr := writer.expr(node.Child("value"), precTest)
		if valueErr != nil {
			return "", valueErr
		}

		head = key + ": " + value
	} else {
		head, err = writer.expr(node.Child("elt"), precTest)
		if err != nil {
			return "", err
		}
	}

	var builder strings.Builder

	builder.WriteString(head)

	for _, generator := range node.List("generators") {
		target, err := writer.target(generator.Child("target"))
		if err != nil {
			return "", err
		}

		iter, err := writer.expr(generator.Child("iter"), precTest+1)
		if err != nil {
			return "", err
		}

		if isAsync, _ := generator.Scalar(scalarIsAsync).(int64); isAsync != 0 {
			builder.WriteString(" async")
		}

		builder.WriteString(" for " + target + " in " + iter)

		for _, condition := range generator.List("ifs") {
			text, err := writer.expr(condition, precTest+1)
			if err != nil {
				return "", err
			}

			builder.WriteString(" if " + text)
		}
	}

	switch node.Type {
	case "ListComp":
		return "[" + builder.String() + "]", nil
	case "GeneratorExp":
		return "(" + builder.String() + ")", nil
	default:
		return "{" + builder.String() + "}", nil
	}
}

func constantText(node *Node) string {
	value := node.Scalar(scalarValue)

	switch node.Str(scalarValueType) {
	case valueNone:
		return "None"
	case valueBool:
		if flag, _ := value.(bool); flag {
			return "True"
		}

		return "False"
	case valueInt:
		integer, _ := value.(int64)

		return strconv.FormatInt(integer, 10)
	case valueFloat:
		floating, _ := value.(float64)

		return floatText(floating)
	case valueStr:
		text, _ := value.(string)

		return quote(text)
	default:
		// bigint, bytes, complex and Ellipsis carry their source text.
		return fmt.Sprint(value)
	}
}

// floatText matches Python's float repr.
func floatText(value float64) string {
	switch {
	case math.IsNaN(value):
		return "(1e309 - 1e309)"
	case math.IsInf(value, 1):
		return "1e309"
	case math.IsInf(value, -1):
		return "-1e309"
	}

	magnitude := math.Abs(value)
	if magnitude != 0 && (magnitude < 1e-4 || magnitude >= 1e16) {
		return strconv.FormatFloat(value, 'e', -1, 64)
	}

	text := strconv.FormatFloat(value, 'f', -1, 64)
	if !strings.ContainsAny(text, ".") {
		text += ".0"
	}

	return text
}

// quote renders a str the way Python's repr does.
func quote(text string) string {
	delimiter := '\''
	if strings.ContainsRune(text, '\'') && !strings.ContainsRune(text, '"') {
		delimiter = '"'
	}

	var builder strings.Builder

	builder.WriteRune(delimiter)

	for _, char := range text {
		switch {
		case char == delimiter || char == '\\':
			builder.WriteByte('\\')
			builder.WriteRune(char)
		case char == '\n':
			builder.WriteString(`\n`)
		case char == '\r':
			builder.WriteString(`\r`)
		case char == '\t':
			builder.WriteString(`\t`)
		case char < 0x20 || char == 0x7f:
			fmt.Fprintf(&builder, `\x%02x`, char)
		default:
			builder.WriteRune(char)
		}
	}

	builder.WriteRune(delimiter)

	return builder.String()
}
