package elixir

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnprintable is returned for quoted forms Print cannot render.
var ErrUnprintable = errors.New("unprintable quoted form")

const indentUnit = "  "

// Precedence levels, loosest first. Values only need to be ordered.
const (
	precArrow = iota
	precWhen
	precType
	precPipeCons
	precMapArrow
	precCapture
	precMatch
	precOr
	precAnd
	precEquality
	precRelational
	precPipe
	precIn
	precConcat
	precAdditive
	precMultiplicative
	precPower
	precUnary
	precAttribute
	precAtom = 100
)

type operator struct {
	prec  int
	right bool
}

//nolint:gochecknoglobals // Immutable operator table.
var binaryOperators = map[string]operator{
	"<-": {prec: precArrow}, `\\`: {prec: precArrow},
	"when": {prec: precWhen, right: true},
	"::":   {prec: precType, right: true},
	"|":    {prec: precPipeCons, right: true},
	"=>":   {prec: precMapArrow, right: true},
	"=":    {prec: precMatch, right: true},
	"||":   {prec: precOr}, "|||": {prec: precOr}, "or": {prec: precOr},
	"&&": {prec: precAnd}, "&&&": {prec: precAnd}, "and": {prec: precAnd},
	"==": {prec: precEquality}, "!=": {prec: precEquality}, "=~": {prec: precEquality},
	"===": {prec: precEquality}, "!==": {prec: precEquality},
	"<": {prec: precRelational}, ">": {prec: precRelational},
	"<=": {prec: precRelational}, ">=": {prec: precRelational},
	"|>": {prec: precPipe}, "<<<": {prec: precPipe}, ">>>": {prec: precPipe},
	"<<~": {prec: precPipe}, "~>>": {prec: precPipe}, "<~": {prec: precPipe},
	"~>": {prec: precPipe}, "<~>": {prec: precPipe},
	"in":  {prec: precIn},
	"++":  {prec: precConcat, right: true}, "--": {prec: precConcat, right: true},
	"+++": {prec: precConcat, right: true}, "---": {prec: precConcat, right: true},
	"..": {prec: precConcat, right: true}, "<>": {prec: precConcat, right: true},
	"+": {prec: precAdditive}, "-": {prec: precAdditive},
	"*": {prec: precMultiplicative}, "/": {prec: precMultiplicative},
	"**": {prec: precPower},
}

//nolint:gochecknoglobals // Immutable operator set.
var unaryOperators = map[string]struct{}{
	"-": {}, "+": {}, "!": {}, "^": {}, "not": {}, "~~~": {},
}

//nolint:gochecknoglobals // Compiled once.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_@]*[?!]?$`)

// Print renders a quoted form as Elixir source. A __block__ root prints one
// expression per line; the empty block prints nothing.
func Print(root Term) (string, error) {
	if root == nil {
		return "", fmt.Errorf("%w: nil root", ErrUnprintable)
	}

	source, err := (&printer{}).stmts(statements(root), 0)
	if err != nil {
		return "", err
	}

	if source == "" {
		return "", nil
	}

	return source + "\n", nil
}

type printer struct{}

func indent(level int) string {
	return strings.Repeat(indentUnit, level)
}

// stmts prints one expression per line at level.
func (printer *printer) stmts(terms []Term, level int) (string, error) {
	lines := make([]string, 0, len(terms))

	for _, term := range terms {
		text, _, err := printer.expr(term, level)
		if err != nil {
			return "", err
		}

		lines = append(lines, indent(level)+text)
	}

	return strings.Join(lines, "\n"), nil
}

// expr prints term with its first line unindented and later lines indented
// from level. It reports the precedence of the outermost operator.
func (printer *printer) expr(term Term, level int) (string, int, error) {
	switch typed := term.(type) {
	case Atom:
		return atomText(typed), precAtom, nil
	case Int:
		return strconv.FormatInt(int64(typed), 10), precAtom, nil
	case BigInt:
		if !isDigits(string(typed)) {
			return "", 0, fmt.Errorf("%w: bad integer digits %q", ErrUnprintable, string(typed))
		}

		return string(typed), precAtom, nil
	case Float:
		if math.IsNaN(float64(typed)) || math.IsInf(float64(typed), 0) {
			return "", 0, fmt.Errorf("%w: %v has no literal", ErrUnprintable, float64(typed))
		}

		return formatFloat(float64(typed)), precAtom, nil
	case String:
		return quoteString(string(typed)), precAtom, nil
	case List:
		text, err := printer.list(typed, level)

		return text, precAtom, err
	case Pair:
		text, err := printer.args("{", "}", []Term{typed.First, typed.Second}, false, level)

		return text, precAtom, err
	case *Call:
		if typed == nil || typed.Form == nil {
			return "", 0, fmt.Errorf("%w: call without form", ErrUnprintable)
		}

		return printer.call(typed, level)
	default:
		return "", 0, fmt.Errorf("%w: %T", ErrUnprintable, term)
	}
}

// operand prints term, wrapping it in parentheses when it binds looser
// than minPrec.
func (printer *printer) operand(term Term, minPrec, level int) (string, error) {
	text, prec, err := printer.expr(term, level)
	if err != nil {
		return "", err
	}

	if prec < minPrec {
		return "(" + text + ")", nil
	}

	return text, nil
}

func (printer *printer) list(list List, level int) (string, error) {
	if pairs, ok := keywordList(list); ok && len(pairs) > 0 {
		text, err := printer.keywords(pairs, level)
		if err != nil {
			return "", err
		}

		return "[" + text + "]", nil
	}

	return printer.args("[", "]", list, false, level)
}

// args prints terms comma-separated between open and closing. With
// bareKeywords a trailing keyword list loses its brackets, as in call
// arguments.
func (printer *printer) args(open, closing string, terms []Term, bareKeywords bool, level int) (string, error) {
	parts := make([]string, 0, len(terms))

	for idx, term := range terms {
		if bareKeywords && idx == len(terms)-1 {
			if pairs, ok := keywordList(term); ok && len(pairs) > 0 {
				text, err := printer.keywords(pairs, level)
				if err != nil {
					return "", err
				}

				parts = append(parts, text)

				continue
			}
		}

		text, err := printer.operand(term, precArrow, level)
		if err != nil {
			return "", err
		}

		parts = append(parts, text)
	}

	return open + strings.Join(parts, ", ") + closing, nil
}

func (printer *printer) keywords(pairs []Pair, level int) (string, error) {
	parts := make([]string, len(pairs))

	for idx, pair := range pairs {
		key, _ := pair.First.(Atom)

		value, err := printer.operand(pair.Second, precArrow, level)
		if err != nil {
			return "", err
		}

		parts[idx] = keywordKey(key) + " " + value
	}

	return strings.Join(parts, ", "), nil
}

//nolint:cyclop,funlen,gocyclo // One case per special form.
func (printer *printer) call(call *Call, level int) (string, int, error) {
	if call.Variable {
		name, ok := call.Name()
		if !ok {
			return "", 0, fmt.Errorf("%w: variable without a name", ErrUnprintable)
		}

		return name, precAtom, nil
	}

	name, isLocal := call.Name()
	if !isLocal {
		return printer.remoteCall(call, level)
	}

	args := call.Args

	if op, ok := binaryOperators[name]; ok && len(args) == 2 {
		return printer.binary(name, op, args[0], args[1], level)
	}

	if _, ok := unaryOperators[name]; ok && len(args) == 1 {
		return printer.unary(name, args[0], level)
	}

	switch name {
	case formBlock:
		return printer.block(args, level)
	case formAliases:
		alias, ok := aliasName(call)
		if !ok {
			return "", 0, fmt.Errorf("%w: alias with dynamic segments", ErrUnprintable)
		}

		return alias, precAtom, nil
	case formTuple:
		text, err := printer.args("{", "}", args, false, level)

		return text, precAtom, err
	case formMap:
		text, err := printer.mapLiteral(args, level)

		return text, precAtom, err
	case "%":
		if len(args) != 2 {
			break
		}

		structName, err := printer.operand(args[0], precAtom, level)
		if err != nil {
			return "", 0, err
		}

		fields, _, err := printer.expr(args[1], level)
		if err != nil {
			return "", 0, err
		}

		return "%" + structName + strings.TrimPrefix(fields, "%"), precAtom, nil
	case "<<>>":
		text, err := printer.bitstring(args, level)

		return text, precAtom, err
	case "fn":
		text, err := printer.fn(args, level)

		return text, precAtom, err
	case "&":
		if len(args) == 1 {
			return printer.capture(args[0], level)
		}
	case "@":
		if len(args) == 1 {
			return printer.attribute(args[0], level)
		}
	case formStab:
		return "", 0, fmt.Errorf("%w: clause outside fn, case or do block", ErrUnprintable)
	}

	if strings.HasPrefix(name, "sigil_") && len(args) == 2 {
		if text, ok := sigil(strings.TrimPrefix(name, "sigil_"), args); ok {
			return text, precAtom, nil
		}
	}

	if !identifierPattern.MatchString(name) {
		return "", 0, fmt.Errorf("%w: cannot call %q", ErrUnprintable, name)
	}

	if lead, pairs, ok := doBlock(args); ok {
		return printer.doBlock(name, lead, pairs, level)
	}

	text, err := printer.args(name+"(", ")", args, true, level)

	return text, precAtom, err
}

func (printer *printer) binary(name string, op operator, left, right Term, level int) (string, int, error) {
	leftMin, rightMin := op.prec, op.prec+1
	if op.right {
		leftMin, rightMin = op.prec+1, op.prec
	}

	leftText, err := printer.operand(left, leftMin, level)
	if err != nil {
		return "", 0, err
	}

	rightText, err := printer.operand(right, rightMin, level)
	if err != nil {
		return "", 0, err
	}

	if name == ".." {
		return leftText + ".." + rightText, op.prec, nil
	}

	return leftText + " " + name + " " + rightText, op.prec, nil
}

func (printer *printer) unary(name string, operand Term, level int) (string, int, error) {
	text, err := printer.operand(operand, precUnary, level)
	if err != nil {
		return "", 0, err
	}

	switch {
	case name == "not":
		return "not " + text, precUnary, nil
	case (name == "-" || name == "+") && (strings.HasPrefix(text, "-") || strings.HasPrefix(text, "+")):
		return name + "(" + text + ")", precUnary, nil
	default:
		return name + text, precUnary, nil
	}
}

func (printer *printer) block(args []Term, level int) (string, int, error) {
	switch len(args) {
	case 0:
		return "()", precAtom, nil
	case 1:
		text, _, err := printer.expr(args[0], level)

		return "(" + text + ")", precAtom, err
	}

	body, err := printer.stmts(args, level+1)
	if err != nil {
		return "", 0, err
	}

	return "(\n" + body + "\n" + indent(level) + ")", precAtom, nil
}

func (printer *printer) mapLiteral(args []Term, level int) (string, error) {
	if len(args) == 1 {
		if update, ok := args[0].(*Call); ok && update.Is("|", 2) {
			base, err := printer.operand(update.Args[0], precPipeCons+1, level)
			if err != nil {
				return "", err
			}

			fields, err := printer.args("", "", []Term{update.Args[1]}, true, level)
			if err != nil {
				return "", err
			}

			return "%{" + base + " | " + fields + "}", nil
		}
	}

	if pairs, ok := keywordList(List(args)); ok && len(pairs) > 0 {
		text, err := printer.keywords(pairs, level)
		if err != nil {
			return "", err
		}

		return "%{" + text + "}", nil
	}

	parts := make([]string, len(args))

	for idx, arg := range args {
		pair, ok := arg.(Pair)
		if !ok {
			return "", fmt.Errorf("%w: map entry is not a pair", ErrUnprintable)
		}

		key, err := printer.operand(pair.First, precMapArrow+1, level)
		if err != nil {
			return "", err
		}

		value, err := printer.operand(pair.Second, precMapArrow, level)
		if err != nil {
			return "", err
		}

		parts[idx] = key + " => " + value
	}

	return "%{" + strings.Join(parts, ", ") + "}", nil
}

// bitstring prints an interpolated string when every segment is literal
// text or a Kernel.to_string interpolation, and a <<>> literal otherwise.
func (printer *printer) bitstring(args []Term, level int) (string, error) {
	var out strings.Builder

	out.WriteString(`"`)

	for _, arg := range args {
		if text, ok := arg.(String); ok {
			out.WriteString(escapeString(string(text)))

			continue
		}

		inner, ok := interpolated(arg)
		if !ok {
			return printer.args("<<", ">>", args, false, level)
		}

		text, _, err := printer.expr(inner, level)
		if err != nil {
			return "", err
		}

		out.WriteString("#{" + text + "}")
	}

	out.WriteString(`"`)

	return out.String(), nil
}

// interpolated matches {:"::", _, [{{:., _, [Kernel, :to_string]}, _, [expr]}, {:binary, _, _}]}.
func interpolated(term Term) (Term, bool) {
	spec, ok := term.(*Call)
	if !ok || !spec.Is("::", 2) {
		return nil, false
	}

	conversion, ok := spec.Args[0].(*Call)
	if !ok || len(conversion.Args) != 1 {
		return nil, false
	}

	module, fun, ok := conversion.remote()
	if !ok || fun != "to_string" || module != Atom(modulePrefix+"Kernel") {
		return nil, false
	}

	if binary, ok := spec.Args[1].(*Call); !ok || !binary.Variable || binary.Form != Atom("binary") {
		return nil, false
	}

	return conversion.Args[0], true
}

func sigil(letter string, args []Term) (string, bool) {
	content, ok := args[0].(*Call)
	if !ok || !content.Is("<<>>", 1) {
		return "", false
	}

	text, ok := content.Args[0].(String)
	if !ok {
		return "", false
	}

	modifiers, ok := args[1].(List)
	if !ok {
		return "", false
	}

	var suffix strings.Builder

	for _, modifier := range modifiers {
		code, ok := modifier.(Int)
		if !ok {
			return "", false
		}

		suffix.WriteRune(rune(code))
	}

	for _, delimiters := range []string{"//", `""`, "||", "()", "[]", "{}", "<>"} {
		open, closing := delimiters[:1], delimiters[1:]
		if !strings.Contains(string(text), closing) {
			return "~" + letter + open + string(text) + closing + suffix.String(), true
		}
	}

	return "", false
}

func (printer *printer) capture(operand Term, level int) (string, int, error) {
	if position, ok := operand.(Int); ok {
		return "&" + strconv.FormatInt(int64(position), 10), precAtom, nil
	}

	text, _, err := printer.expr(operand, level)
	if err != nil {
		return "", 0, err
	}

	if arity, ok := operand.(*Call); ok && arity.Is("/", 2) {
		if _, isInt := arity.Args[1].(Int); isInt {
			return "&" + text, precCapture, nil
		}
	}

	return "&(" + text + ")", precCapture, nil
}

func (printer *printer) attribute(operand Term, level int) (string, int, error) {
	attr, ok := operand.(*Call)
	if !ok {
		return "", 0, fmt.Errorf("%w: module attribute without a name", ErrUnprintable)
	}

	name, ok := attr.Name()
	if !ok || !identifierPattern.MatchString(name) {
		return "", 0, fmt.Errorf("%w: module attribute without a name", ErrUnprintable)
	}

	if attr.Variable || len(attr.Args) == 0 {
		return "@" + name, precAttribute, nil
	}

	if len(attr.Args) != 1 {
		return "", 0, fmt.Errorf("%w: module attribute @%s with %d values", ErrUnprintable, name, len(attr.Args))
	}

	value, _, err := printer.expr(attr.Args[0], level)
	if err != nil {
		return "", 0, err
	}

	return "@" + name + " " + value, precAttribute, nil
}

func (printer *printer) remoteCall(call *Call, level int) (string, int, error) {
	dot, ok := call.Form.(*Call)
	if !ok || dot.Variable {
		return "", 0, fmt.Errorf("%w: call form is not an atom or a dot", ErrUnprintable)
	}

	if dot.Is(formDot, 1) {
		fun, err := printer.operand(dot.Args[0], precAttribute, level)
		if err != nil {
			return "", 0, err
		}

		text, err := printer.args(fun+".(", ")", call.Args, true, level)

		return text, precAtom, err
	}

	module, fun, ok := call.remote()
	if !ok {
		return "", 0, fmt.Errorf("%w: malformed dot call", ErrUnprintable)
	}

	receiver, err := printer.operand(module, precAtom, level)
	if err != nil {
		return "", 0, err
	}

	callee := receiver + "." + fun
	if !identifierPattern.MatchString(fun) {
		callee = receiver + "." + quoteString(fun)
	}

	if call.Meta.NoParens && len(call.Args) == 0 {
		return callee, precAtom, nil
	}

	if lead, pairs, ok := doBlock(call.Args); ok {
		return printer.doBlock(callee, lead, pairs, level)
	}

	text, err := printer.args(callee+"(", ")", call.Args, true, level)

	return text, precAtom, err
}

// doBlock prints `head lead do ... end` with one section per keyword.
func (printer *printer) doBlock(head string, lead []Term, pairs []Pair, level int) (string, int, error) {
	var out strings.Builder

	out.WriteString(head)

	if len(lead) > 0 {
		text, err := printer.args(" ", "", lead, true, level)
		if err != nil {
			return "", 0, err
		}

		out.WriteString(text)
	}

	for idx, pair := range pairs {
		key, _ := pair.First.(Atom)

		if idx == 0 {
			out.WriteString(" do")
		} else {
			out.WriteString("\n" + indent(level) + string(key))
		}

		body, err := printer.section(pair.Second, level+1)
		if err != nil {
			return "", 0, err
		}

		if body != "" {
			out.WriteString("\n" + body)
		}
	}

	out.WriteString("\n" + indent(level) + "end")

	return out.String(), precAtom, nil
}

// section prints a do-block body: a list of clauses or plain expressions.
func (printer *printer) section(body Term, level int) (string, error) {
	if clauses, ok := stabClauses(body); ok {
		lines := make([]string, len(clauses))

		for idx, clause := range clauses {
			text, err := printer.clause(clause, level)
			if err != nil {
				return "", err
			}

			lines[idx] = indent(level) + text
		}

		return strings.Join(lines, "\n"), nil
	}

	return printer.stmts(statements(body), level)
}

// stabClauses returns the -> clauses of a non-empty clause list.
func stabClauses(term Term) ([]*Call, bool) {
	list, ok := term.(List)
	if !ok || len(list) == 0 {
		return nil, false
	}

	clauses := make([]*Call, len(list))

	for idx, element := range list {
		clause, ok := element.(*Call)
		if !ok || !clause.Is(formStab, 2) {
			return nil, false
		}

		clauses[idx] = clause
	}

	return clauses, true
}

func (printer *printer) clauseHead(clause *Call, level int) (string, error) {
	params, ok := clause.Args[0].(List)
	if !ok {
		return "", fmt.Errorf("%w: clause parameters are not a list", ErrUnprintable)
	}

	text, err := printer.args("", "", params, false, level)
	if err != nil {
		return "", err
	}

	return text, nil
}

// clause prints `head ->` followed by the body one level deeper.
func (printer *printer) clause(clause *Call, level int) (string, error) {
	head, err := printer.clauseHead(clause, level)
	if err != nil {
		return "", err
	}

	body, err := printer.stmts(statements(clause.Args[1]), level+1)
	if err != nil {
		return "", err
	}

	if head == "" {
		return "->\n" + body, nil
	}

	return head + " ->\n" + body, nil
}

func (printer *printer) fn(args []Term, level int) (string, error) {
	clauses, ok := stabClauses(List(args))
	if !ok {
		return "", fmt.Errorf("%w: fn without clauses", ErrUnprintable)
	}

	if len(clauses) == 1 {
		head, err := printer.clauseHead(clauses[0], level)
		if err != nil {
			return "", err
		}

		body := statements(clauses[0].Args[1])
		if len(body) == 1 {
			text, _, err := printer.expr(body[0], level)
			if err != nil {
				return "", err
			}

			if !strings.Contains(text, "\n") {
				if head == "" {
					return "fn -> " + text + " end", nil
				}

				return "fn " + head + " -> " + text + " end", nil
			}
		}

		text, err := printer.clause(clauses[0], level)
		if err != nil {
			return "", err
		}

		return "fn " + text + "\n" + indent(level) + "end", nil
	}

	lines := make([]string, len(clauses))

	for idx, clause := range clauses {
		text, err := printer.clause(clause, level+1)
		if err != nil {
			return "", err
		}

		lines[idx] = indent(level+1) + text
	}

	return "fn\n" + strings.Join(lines, "\n") + "\n" + indent(level) + "end", nil
}

// atomText spells an atom in expression position.
func atomText(atom Atom) string {
	switch {
	case atom == atomTrue || atom == atomFalse || atom == atomNil:
		return string(atom)
	case strings.HasPrefix(string(atom), modulePrefix) && len(atom) > len(modulePrefix):
		return strings.TrimPrefix(string(atom), modulePrefix)
	case identifierPattern.MatchString(string(atom)):
		return ":" + string(atom)
	default:
		return ":" + quoteString(string(atom))
	}
}

func keywordKey(key Atom) string {
	if identifierPattern.MatchString(string(key)) {
		return string(key) + ":"
	}

	return quoteString(string(key)) + ":"
}

func quoteString(text string) string {
	return `"` + escapeString(text) + `"`
}

func escapeString(text string) string {
	var out strings.Builder

	for idx, char := range text {
		switch {
		case char == '"' || char == '\\':
			out.WriteByte('\\')
			out.WriteRune(char)
		case char == '\n':
			out.WriteString(`\n`)
		case char == '\t':
			out.WriteString(`\t`)
		case char == '\r':
			out.WriteString(`\r`)
		case char == '#' && strings.HasPrefix(text[idx:], "#{"):
			out.WriteString(`\#`)
		case char < 0x20 || char == 0x7f:
			fmt.Fprintf(&out, `\u{%X}`, char)
		default:
			out.WriteRune(char)
		}
	}

	return out.String()
}

// formatFloat spells a float the way Elixir requires: digits on both sides
// of the point and an unsigned exponent without leading zeros.
func formatFloat(value float64) string {
	text := strconv.FormatFloat(value, 'g', -1, 64)

	mantissa, exponent, hasExponent := strings.Cut(text, "e")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}

	if !hasExponent {
		return mantissa
	}

	sign := ""
	if strings.HasPrefix(exponent, "-") {
		sign = "-"
	}

	digits := strings.TrimLeft(strings.TrimLeft(exponent, "+-"), "0")
	if digits == "" {
		digits = "0"
	}

	return mantissa + "e" + sign + digits
}
