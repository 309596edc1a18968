package elixir

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/alexaandru/go-sitter-forest/elixir"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

//nolint:gochecknoglobals // Loaded once per process.
var sitterLanguage = sync.OnceValue(func() *sitter.Language {
	return sitter.NewLanguage(elixir.GetLanguage())
})

var errNoQuotedForm = errors.New("no quoted form")

// SitterFrontend parses Elixir in process with the tree-sitter grammar and
// builds the quoted form Code.string_to_quoted would return. Syntax it has
// no quoted form for (interpolated atoms and charlists, structs, map
// updates) is reported as unsupported; ToolFrontend handles all of Elixir.
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

// Parse builds the quoted form of source.
func (frontend *SitterFrontend) Parse(ctx context.Context, source string) (Term, error) {
	tsParser, ok := frontend.parsers.Get().(*sitter.Parser)
	if !ok {
		return nil, meta.NewToolFailure(meta.LanguageElixir, "parser pool returned a foreign value", nil)
	}

	defer frontend.parsers.Put(tsParser)

	content := []byte(source)

	tree, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, meta.NewToolFailure(meta.LanguageElixir, "tree-sitter parse", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, meta.NewToolFailure(meta.LanguageElixir, "tree-sitter returned no root", nil)
	}

	if root.HasError() {
		return nil, syntaxErrorAt(root)
	}

	quoting := &cstQuoting{content: content}

	term, err := quoting.body(expressions(root), cstMeta(root))
	if err != nil {
		return nil, meta.NewUnsupported(meta.LanguageElixir, meta.KindLanguageSpecific, err.Error())
	}

	return term, nil
}

// Unparse prints native with Print.
func (frontend *SitterFrontend) Unparse(_ context.Context, native Term) (string, error) {
	source, err := Print(native)
	if err != nil {
		return "", meta.NewUnsupported(meta.LanguageElixir, meta.KindLanguageSpecific, err.Error())
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
			reason := fmt.Sprintf("line %d: syntax error at column %d", int(start.Row)+1, int(start.Column)+1)

			return meta.NewSyntaxError(meta.LanguageElixir, reason, nil)
		}

		for idx := range current.ChildCount() {
			stack = append(stack, current.Child(current.ChildCount()-1-idx))
		}
	}

	return meta.NewSyntaxError(meta.LanguageElixir, "syntax error", nil)
}

type cstQuoting struct {
	content []byte
}

func (quoting *cstQuoting) text(node sitter.Node) string {
	return string(quoting.content[node.StartByte():node.EndByte()])
}

func cstMeta(node sitter.Node) Meta {
	start := node.StartPoint()

	return Meta{Line: int(start.Row) + 1, Column: int(start.Column) + 1}
}

// expressions returns the named children, skipping comments.
func expressions(node sitter.Node) []sitter.Node {
	children := make([]sitter.Node, 0, node.NamedChildCount())

	for idx := range node.NamedChildCount() {
		child := node.NamedChild(idx)
		if child.Type() == "comment" {
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

func childOfType(node sitter.Node, kind string) (sitter.Node, bool) {
	for _, child := range expressions(node) {
		if child.Type() == kind {
			return child, true
		}
	}

	return sitter.Node{}, false
}

func unquotable(node sitter.Node, what string) error {
	start := node.StartPoint()

	return fmt.Errorf("%w for %s at line %d", errNoQuotedForm, what, int(start.Row)+1)
}

// body quotes a sequence of expressions: one stands alone, several become a
// __block__.
func (quoting *cstQuoting) body(nodes []sitter.Node, metadata Meta) (Term, error) {
	terms, err := quoting.all(nodes)
	if err != nil {
		return nil, err
	}

	if len(terms) == 1 {
		return terms[0], nil
	}

	block := Local(formBlock, terms...)
	block.Meta = metadata

	return block, nil
}

func (quoting *cstQuoting) all(nodes []sitter.Node) ([]Term, error) {
	terms := make([]Term, 0, len(nodes))

	for _, node := range nodes {
		term, err := quoting.expr(node)
		if err != nil {
			return nil, err
		}

		terms = append(terms, term)
	}

	return terms, nil
}

// items quotes list, tuple and argument contents. A trailing keywords node
// becomes one keyword list element.
func (quoting *cstQuoting) items(nodes []sitter.Node) ([]Term, error) {
	terms := make([]Term, 0, len(nodes))

	for _, node := range nodes {
		if node.Type() != "keywords" {
			term, err := quoting.expr(node)
			if err != nil {
				return nil, err
			}

			terms = append(terms, term)

			continue
		}

		pairs, err := quoting.keywords(node)
		if err != nil {
			return nil, err
		}

		terms = append(terms, Keywords(pairs...))
	}

	return terms, nil
}

//nolint:cyclop,funlen,gocyclo // One case per node type.
func (quoting *cstQuoting) expr(node sitter.Node) (Term, error) {
	switch node.Type() {
	case "identifier":
		name := quoting.text(node)

		variable := Var(name)
		variable.Meta = cstMeta(node)

		return variable, nil
	case "alias":
		alias := Aliases(quoting.text(node))
		alias.Meta = cstMeta(node)

		return alias, nil
	case "integer":
		return parseInteger(quoting.text(node))
	case "float":
		value, err := strconv.ParseFloat(strings.ReplaceAll(quoting.text(node), "_", ""), 64)
		if err != nil {
			return nil, unquotable(node, "float "+quoting.text(node))
		}

		return Float(value), nil
	case "char":
		return quoting.char(node)
	case "boolean":
		return Atom(quoting.text(node)), nil
	case "nil":
		return atomNil, nil
	case "atom":
		return Atom(strings.TrimPrefix(quoting.text(node), ":")), nil
	case "quoted_atom":
		text, err := quoting.quoted(node)
		if err != nil {
			return nil, err
		}

		return Atom(text), nil
	case "string":
		return quoting.str(node)
	case "charlist":
		return quoting.charlist(node)
	case "sigil":
		return quoting.sigil(node)
	case "list":
		elements, err := quoting.items(expressions(node))
		if err != nil {
			return nil, err
		}

		return flattenKeywords(elements), nil
	case "tuple":
		elements, err := quoting.items(expressions(node))
		if err != nil {
			return nil, err
		}

		if len(elements) == 2 {
			return Pair{First: elements[0], Second: elements[1]}, nil
		}

		tuple := Local(formTuple, elements...)
		tuple.Meta = cstMeta(node)

		return tuple, nil
	case "map":
		return quoting.mapLiteral(node)
	case "unary_operator":
		return quoting.unary(node)
	case "binary_operator":
		return quoting.binary(node)
	case "call":
		return quoting.call(node)
	case "anonymous_function":
		clauses, err := quoting.stabClauses(expressions(node))
		if err != nil {
			return nil, err
		}

		fn := Local("fn", clauses...)
		fn.Meta = cstMeta(node)

		return fn, nil
	case "block":
		return quoting.body(expressions(node), cstMeta(node))
	default:
		return nil, unquotable(node, node.Type())
	}
}

// flattenKeywords splices a trailing keyword list into its enclosing list,
// the way [a, b: 1] quotes.
func flattenKeywords(elements []Term) List {
	if len(elements) == 0 {
		return List{}
	}

	last, ok := elements[len(elements)-1].(List)
	if !ok {
		return List(elements)
	}

	if _, isKeywords := keywordList(last); !isKeywords || len(last) == 0 {
		return List(elements)
	}

	flat := make(List, 0, len(elements)-1+len(last))
	flat = append(flat, elements[:len(elements)-1]...)

	return append(flat, last...)
}

func parseInteger(text string) (Term, error) {
	digits := strings.ReplaceAll(text, "_", "")
	base := 10

	switch {
	case strings.HasPrefix(digits, "0x"):
		digits, base = digits[2:], 16
	case strings.HasPrefix(digits, "0o"):
		digits, base = digits[2:], 8
	case strings.HasPrefix(digits, "0b"):
		digits, base = digits[2:], 2
	}

	value, err := strconv.ParseInt(digits, base, 64)
	if err == nil {
		return Int(value), nil
	}

	large, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("%w for integer %s", errNoQuotedForm, text)
	}

	return BigInt(large.String()), nil
}

func (quoting *cstQuoting) char(node sitter.Node) (Term, error) {
	text := strings.TrimPrefix(quoting.text(node), "?")

	if strings.HasPrefix(text, `\`) {
		decoded, ok := unescape(text)
		if !ok || utf8.RuneCountInString(decoded) != 1 {
			return nil, unquotable(node, "character "+text)
		}

		text = decoded
	}

	char, _ := utf8.DecodeRuneInString(text)

	return Int(char), nil
}

// quoted decodes the content of a string or quoted atom. Interpolation has
// no literal quoted form here.
func (quoting *cstQuoting) quoted(node sitter.Node) (string, error) {
	var out strings.Builder

	for _, part := range expressions(node) {
		switch part.Type() {
		case "quoted_content":
			out.WriteString(quoting.text(part))
		case "escape_sequence":
			decoded, ok := unescape(quoting.text(part))
			if !ok {
				return "", unquotable(part, "escape "+quoting.text(part))
			}

			out.WriteString(decoded)
		default:
			return "", unquotable(part, part.Type())
		}
	}

	return out.String(), nil
}

// str quotes a string literal. An interpolated string is a <<>> form whose
// expression segments convert with Kernel.to_string.
func (quoting *cstQuoting) str(node sitter.Node) (Term, error) {
	segments, err := quoting.segments(node, true)
	if err != nil {
		return nil, err
	}

	switch {
	case len(segments) == 0:
		return String(""), nil
	case len(segments) == 1:
		if text, ok := segments[0].(String); ok {
			return text, nil
		}
	}

	bits := Local("<<>>", segments...)
	bits.Meta = cstMeta(node)

	return bits, nil
}

// charlist quotes 'abc' as its list of code points.
func (quoting *cstQuoting) charlist(node sitter.Node) (Term, error) {
	if part, interpolated := childOfType(node, "interpolation"); interpolated {
		return nil, unquotable(part, "charlist interpolation")
	}

	text, err := quoting.quoted(node)
	if err != nil {
		return nil, err
	}

	codes := make(List, 0, utf8.RuneCountInString(text))
	for _, code := range text {
		codes = append(codes, Int(code))
	}

	return codes, nil
}

// sigil quotes ~r/content/mods as {:sigil_r, _, [<<content>>, 'mods']}. The
// content stays unescaped; the sigil macro decodes it.
func (quoting *cstQuoting) sigil(node sitter.Node) (Term, error) {
	nameNode, ok := childOfType(node, "sigil_name")
	if !ok {
		return nil, unquotable(node, "sigil without a name")
	}

	segments, err := quoting.segments(node, false)
	if err != nil {
		return nil, err
	}

	if len(segments) == 0 {
		segments = []Term{String("")}
	}

	content := Local("<<>>", segments...)
	content.Meta = cstMeta(node)

	modifiers := List{}

	if modifiersNode, found := childOfType(node, "sigil_modifiers"); found {
		for _, code := range quoting.text(modifiersNode) {
			modifiers = append(modifiers, Int(code))
		}
	}

	call := Local("sigil_"+quoting.text(nameNode), content, modifiers)
	call.Meta = cstMeta(node)

	return call, nil
}

// segments quotes the parts of a string-like node: adjacent text merges
// into one String and each interpolation becomes a to_string conversion.
func (quoting *cstQuoting) segments(node sitter.Node, decode bool) ([]Term, error) {
	var (
		segments []Term
		text     strings.Builder
		pending  bool
	)

	flush := func() {
		if pending {
			segments = append(segments, String(text.String()))
			text.Reset()

			pending = false
		}
	}

	for _, part := range expressions(node) {
		switch part.Type() {
		case "quoted_content":
			text.WriteString(quoting.text(part))

			pending = true
		case "escape_sequence":
			raw := quoting.text(part)
			if decode {
				decoded, ok := unescape(raw)
				if !ok {
					return nil, unquotable(part, "escape "+raw)
				}

				raw = decoded
			}

			text.WriteString(raw)

			pending = true
		case "interpolation":
			flush()

			inner, err := quoting.body(expressions(part), cstMeta(part))
			if err != nil {
				return nil, err
			}

			segments = append(segments, toStringSegment(inner, cstMeta(part)))
		case "sigil_name", "sigil_modifiers":
		default:
			return nil, unquotable(part, part.Type())
		}
	}

	flush()

	return segments, nil
}

// toStringSegment is the quoted interpolation
// {:"::", _, [{{:., _, [Kernel, :to_string]}, _, [inner]}, {:binary, _, nil}]}.
func toStringSegment(inner Term, metadata Meta) Term {
	conversion := Remote(Atom(modulePrefix+"Kernel"), "to_string", inner)
	conversion.Meta = metadata

	spec := Local("::", conversion, Var("binary"))
	spec.Meta = metadata

	return spec
}

//nolint:gochecknoglobals // Immutable escape table.
var simpleEscapes = map[byte]string{
	'n': "\n", 't': "\t", 'r': "\r", '0': "\x00", 'a': "\a", 'b': "\b",
	'e': "\x1b", 'f': "\f", 'v': "\v", 's': " ", '\\': `\`, '"': `"`, '\'': "'",
	'#': "#", '\n': "",
}

func unescape(sequence string) (string, bool) {
	if len(sequence) < 2 || sequence[0] != '\\' {
		return "", false
	}

	if decoded, ok := simpleEscapes[sequence[1]]; ok && len(sequence) == 2 {
		return decoded, true
	}

	var hex string

	switch {
	case strings.HasPrefix(sequence, `\u{`) && strings.HasSuffix(sequence, "}"):
		hex = sequence[3 : len(sequence)-1]
	case strings.HasPrefix(sequence, `\u`), strings.HasPrefix(sequence, `\x`):
		hex = strings.Trim(sequence[2:], "{}")
	default:
		return sequence[1:], len(sequence) == 2
	}

	code, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || !utf8.ValidRune(rune(code)) {
		return "", false
	}

	return string(rune(code)), true
}

func (quoting *cstQuoting) keywords(node sitter.Node) ([]Pair, error) {
	pairs := make([]Pair, 0, node.NamedChildCount())

	for _, pairNode := range expressions(node) {
		key, hasKey := field(pairNode, "key")
		value, hasValue := field(pairNode, "value")

		if !hasKey || !hasValue {
			return nil, unquotable(pairNode, "keyword pair")
		}

		var name string

		switch key.Type() {
		case "keyword":
			name = strings.TrimSuffix(strings.TrimSpace(quoting.text(key)), ":")
		case "quoted_keyword":
			text, err := quoting.quoted(key)
			if err != nil {
				return nil, err
			}

			name = text
		default:
			return nil, unquotable(key, key.Type())
		}

		quotedValue, err := quoting.expr(value)
		if err != nil {
			return nil, err
		}

		pairs = append(pairs, keyword(Atom(name), quotedValue))
	}

	return pairs, nil
}

func (quoting *cstQuoting) mapLiteral(node sitter.Node) (Term, error) {
	if _, isStruct := childOfType(node, "struct"); isStruct {
		return nil, unquotable(node, "struct")
	}

	var entries []Term

	if content, ok := childOfType(node, "map_content"); ok {
		for _, item := range expressions(content) {
			switch item.Type() {
			case "keywords":
				pairs, err := quoting.keywords(item)
				if err != nil {
					return nil, err
				}

				for _, pair := range pairs {
					entries = append(entries, pair)
				}
			case "binary_operator":
				entry, err := quoting.mapEntry(item)
				if err != nil {
					return nil, err
				}

				entries = append(entries, entry)
			default:
				return nil, unquotable(item, "map update")
			}
		}
	}

	literal := Local(formMap, entries...)
	literal.Meta = cstMeta(node)

	return literal, nil
}

func (quoting *cstQuoting) mapEntry(node sitter.Node) (Term, error) {
	operator, _ := field(node, "operator")
	if quoting.text(operator) != "=>" {
		return nil, unquotable(node, "map update")
	}

	left, right, err := quoting.operands(node)
	if err != nil {
		return nil, err
	}

	return Pair{First: left, Second: right}, nil
}

func (quoting *cstQuoting) operands(node sitter.Node) (Term, Term, error) {
	leftNode, hasLeft := field(node, "left")
	rightNode, hasRight := field(node, "right")

	if !hasLeft || !hasRight {
		return nil, nil, unquotable(node, "operator without operands")
	}

	left, err := quoting.expr(leftNode)
	if err != nil {
		return nil, nil, err
	}

	right, err := quoting.expr(rightNode)
	if err != nil {
		return nil, nil, err
	}

	return left, right, nil
}

func (quoting *cstQuoting) binary(node sitter.Node) (Term, error) {
	operatorNode, _ := field(node, "operator")
	operator := strings.Join(strings.Fields(quoting.text(operatorNode)), " ")

	if _, known := binaryOperators[operator]; !known && operator != "not in" {
		return nil, unquotable(node, "operator "+operator)
	}

	left, right, err := quoting.operands(node)
	if err != nil {
		return nil, err
	}

	metadata := cstMeta(operatorNode)

	if operator == "not in" {
		inner := Local("in", left, right)
		inner.Meta = metadata

		negated := Local("not", inner)
		negated.Meta = metadata

		return negated, nil
	}

	call := Local(operator, left, right)
	call.Meta = metadata

	return call, nil
}

func (quoting *cstQuoting) unary(node sitter.Node) (Term, error) {
	operatorNode, _ := field(node, "operator")
	operandNode, ok := field(node, "operand")

	if !ok {
		return nil, unquotable(node, "unary operator without operand")
	}

	operator := quoting.text(operatorNode)
	if _, known := unaryOperators[operator]; !known && operator != "&" && operator != "@" {
		return nil, unquotable(node, "operator "+operator)
	}

	operand, err := quoting.expr(operandNode)
	if err != nil {
		return nil, err
	}

	call := Local(operator, operand)
	call.Meta = cstMeta(node)

	return call, nil
}

// call quotes local, remote and anonymous calls with their do-block.
func (quoting *cstQuoting) call(node sitter.Node) (Term, error) {
	target, ok := field(node, "target")
	if !ok {
		return nil, unquotable(node, "call without target")
	}

	var (
		args     []Term
		noParens = true
	)

	if arguments, found := childOfType(node, "arguments"); found {
		quotedArgs, err := quoting.items(expressions(arguments))
		if err != nil {
			return nil, err
		}

		args = quotedArgs
		noParens = !strings.HasPrefix(quoting.text(arguments), "(")
	}

	if block, found := childOfType(node, "do_block"); found {
		sections, err := quoting.doBlock(block)
		if err != nil {
			return nil, err
		}

		args = append(args, sections)
	}

	form, err := quoting.callTarget(target)
	if err != nil {
		return nil, err
	}

	call := &Call{Form: form, Args: nonNil(args), Meta: cstMeta(node)}
	call.Meta.NoParens = noParens && len(call.Args) == 0 && isDot(form)

	return call, nil
}

func isDot(form Term) bool {
	dot, ok := form.(*Call)

	return ok && !dot.Variable && dot.Form == Atom(formDot)
}

func (quoting *cstQuoting) callTarget(target sitter.Node) (Term, error) {
	switch target.Type() {
	case "identifier":
		return Atom(quoting.text(target)), nil
	case "dot":
		leftNode, hasLeft := field(target, "left")
		if !hasLeft {
			return nil, unquotable(target, "dot without receiver")
		}

		left, err := quoting.expr(leftNode)
		if err != nil {
			return nil, err
		}

		dot := Local(formDot, left)
		dot.Meta = cstMeta(target)

		if rightNode, hasRight := field(target, "right"); hasRight {
			if rightNode.Type() != "identifier" {
				return nil, unquotable(rightNode, "remote function "+rightNode.Type())
			}

			dot.Args = append(dot.Args, Atom(quoting.text(rightNode)))
		}

		return dot, nil
	default:
		return nil, unquotable(target, "call target "+target.Type())
	}
}

// doBlock quotes do ... end into its [do: ..., else: ...] keyword list.
func (quoting *cstQuoting) doBlock(block sitter.Node) (List, error) {
	var (
		doItems []sitter.Node
		pairs   []Pair
	)

	for _, child := range expressions(block) {
		key, isSection := strings.CutSuffix(child.Type(), "_block")
		if !isSection {
			doItems = append(doItems, child)

			continue
		}

		switch Atom(key) {
		case atomElse, atomRescue, atomAfter, "catch":
		default:
			return nil, unquotable(child, child.Type())
		}

		value, err := quoting.sectionBody(expressions(child), cstMeta(child))
		if err != nil {
			return nil, err
		}

		pairs = append(pairs, keyword(Atom(key), value))
	}

	value, err := quoting.sectionBody(doItems, cstMeta(block))
	if err != nil {
		return nil, err
	}

	return Keywords(append([]Pair{keyword(atomDo, value)}, pairs...)...), nil
}

// sectionBody quotes a do-block section: stab clauses become a list of ->
// forms, statements a body, and an empty section an empty block.
func (quoting *cstQuoting) sectionBody(nodes []sitter.Node, metadata Meta) (Term, error) {
	if len(nodes) > 0 && nodes[0].Type() == "stab_clause" {
		clauses, err := quoting.stabClauses(nodes)
		if err != nil {
			return nil, err
		}

		return List(clauses), nil
	}

	return quoting.body(nodes, metadata)
}

func (quoting *cstQuoting) stabClauses(nodes []sitter.Node) ([]Term, error) {
	clauses := make([]Term, 0, len(nodes))

	for _, node := range nodes {
		if node.Type() != "stab_clause" {
			return nil, unquotable(node, "mixed clauses and expressions")
		}

		clause, err := quoting.stabClause(node)
		if err != nil {
			return nil, err
		}

		clauses = append(clauses, clause)
	}

	return clauses, nil
}

func (quoting *cstQuoting) stabClause(node sitter.Node) (Term, error) {
	head := List{}

	if left, ok := field(node, "left"); ok {
		quotedHead, err := quoting.clauseHead(left)
		if err != nil {
			return nil, err
		}

		head = quotedHead
	}

	var body Term = Local(formBlock)

	if right, ok := field(node, "right"); ok {
		quotedBody, err := quoting.body(expressions(right), cstMeta(right))
		if err != nil {
			return nil, err
		}

		body = quotedBody
	}

	clause := Local(formStab, head, body)
	clause.Meta = cstMeta(node)

	return clause, nil
}

// clauseHead quotes stab clause arguments. A guard wraps the arguments:
// `x, y when g` quotes as [{:when, _, [x, y, g]}].
func (quoting *cstQuoting) clauseHead(left sitter.Node) (List, error) {
	if left.Type() == "arguments" {
		args, err := quoting.items(expressions(left))
		if err != nil {
			return nil, err
		}

		return List(args), nil
	}

	operatorNode, _ := field(left, "operator")
	if left.Type() != "binary_operator" || quoting.text(operatorNode) != formWhen {
		return nil, unquotable(left, "clause head "+left.Type())
	}

	argsNode, _ := field(left, "left")
	guardNode, _ := field(left, "right")

	args, err := quoting.clauseHead(argsNode)
	if err != nil {
		return nil, err
	}

	guard, err := quoting.expr(guardNode)
	if err != nil {
		return nil, err
	}

	when := Local(formWhen, append(args, guard)...)
	when.Meta = cstMeta(operatorNode)

	return List{when}, nil
}
