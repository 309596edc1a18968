package elixir

import (
	"strings"
)

// Term is one node of a quoted Elixir expression, the value
// Code.string_to_quoted/2 returns.
type Term interface {
	// Equal compares quoted structure, ignoring metadata.
	Equal(other any) bool
	term()
}

// Atom is an Elixir atom. true, false and nil are atoms too.
type Atom string

// Int is an integer literal that fits in 64 bits.
type Int int64

// BigInt is an integer literal kept as its decimal digits.
type BigInt string

// Float is a float literal.
type Float float64

// String is a binary literal.
type String string

// List is a list literal. Keyword lists are lists of Pair with atom keys.
type List []Term

// Pair is a two-element tuple, the only tuple quoted as itself.
type Pair struct {
	First  Term
	Second Term
}

// Meta is the part of a call's keyword metadata the adapter keeps.
// Columns are 1-based, as the compiler reports them.
type Meta struct {
	Line     int  `json:"line,omitempty"`
	Column   int  `json:"column,omitempty"`
	NoParens bool `json:"no_parens,omitempty"`
}

// Call is the three-element quoted form {form, meta, args}. A variable has
// an atom in the args slot instead of a list; Variable marks that shape and
// Context holds the atom.
type Call struct {
	Form     Term
	Args     []Term
	Context  Atom
	Meta     Meta
	Variable bool
}

// Atoms with fixed meaning.
const (
	atomTrue  Atom = "true"
	atomFalse Atom = "false"
	atomNil   Atom = "nil"

	atomDo     Atom = "do"
	atomElse   Atom = "else"
	atomRescue Atom = "rescue"
	atomAfter  Atom = "after"

	formBlock   = "__block__"
	formAliases = "__aliases__"
	formDot     = "."
	formTuple   = "{}"
	formMap     = "%{}"
	formStab    = "->"
	formWhen    = "when"
	formArrow   = "<-"

	modulePrefix = "Elixir."
)

func (Atom) term()   {}
func (Int) term()    {}
func (BigInt) term() {}
func (Float) term()  {}
func (String) term() {}
func (List) term()   {}
func (Pair) term()   {}
func (*Call) term()  {}

// Equal implements Term.
func (atom Atom) Equal(other any) bool { return termsEqual(atom, other) }

// Equal implements Term.
func (value Int) Equal(other any) bool { return termsEqual(value, other) }

// Equal implements Term.
func (value BigInt) Equal(other any) bool { return termsEqual(value, other) }

// Equal implements Term.
func (value Float) Equal(other any) bool { return termsEqual(value, other) }

// Equal implements Term.
func (value String) Equal(other any) bool { return termsEqual(value, other) }

// Equal implements Term.
func (list List) Equal(other any) bool { return termsEqual(list, other) }

// Equal implements Term.
func (pair Pair) Equal(other any) bool { return termsEqual(pair, other) }

// Equal implements Term.
func (call *Call) Equal(other any) bool { return termsEqual(call, other) }

//nolint:cyclop // One case per term shape.
func termsEqual(left Term, right any) bool {
	switch typed := left.(type) {
	case Atom, Int, BigInt, Float, String:
		return left == right
	case List:
		other, ok := right.(List)
		if !ok || len(typed) != len(other) {
			return false
		}

		for idx := range typed {
			if !sameTerm(typed[idx], other[idx]) {
				return false
			}
		}

		return true
	case Pair:
		other, ok := right.(Pair)

		return ok && sameTerm(typed.First, other.First) && sameTerm(typed.Second, other.Second)
	case *Call:
		other, ok := right.(*Call)
		if !ok || typed == nil || other == nil {
			return ok && typed == other
		}

		if typed.Variable != other.Variable || !sameTerm(typed.Form, other.Form) {
			return false
		}

		return List(typed.Args).Equal(List(other.Args))
	default:
		return false
	}
}

func sameTerm(left, right Term) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}

	return left.Equal(right)
}

// Var returns the quoted form of a variable reference.
func Var(name string) *Call {
	return &Call{Form: Atom(name), Variable: true}
}

// Local returns a local call, or a special form, named name.
func Local(name string, args ...Term) *Call {
	return &Call{Form: Atom(name), Args: nonNil(args)}
}

// Aliases returns the quoted form of a module alias such as Enum or Foo.Bar.
func Aliases(name string) *Call {
	segments := strings.Split(name, ".")
	args := make([]Term, len(segments))

	for idx, segment := range segments {
		args[idx] = Atom(segment)
	}

	return Local(formAliases, args...)
}

// Remote returns a call of fun on module, which may be an alias, an Erlang
// module atom or any expression.
func Remote(module Term, fun string, args ...Term) *Call {
	return &Call{Form: Local(formDot, module, Atom(fun)), Args: nonNil(args)}
}

// Keywords builds a keyword list.
func Keywords(pairs ...Pair) List {
	list := make(List, len(pairs))
	for idx, pair := range pairs {
		list[idx] = pair
	}

	return list
}

func keyword(key Atom, value Term) Pair {
	return Pair{First: key, Second: value}
}

func nonNil(args []Term) []Term {
	if args == nil {
		return []Term{}
	}

	return args
}

// Name returns the atom in the form slot.
func (call *Call) Name() (string, bool) {
	if call == nil {
		return "", false
	}

	atom, ok := call.Form.(Atom)

	return string(atom), ok
}

// Is reports whether call is a non-variable form named name with arity args.
func (call *Call) Is(name string, arity int) bool {
	if call == nil || call.Variable {
		return false
	}

	form, ok := call.Name()

	return ok && form == name && len(call.Args) == arity
}

// remote splits a dot call into its module and function name.
func (call *Call) remote() (Term, string, bool) {
	if call == nil || call.Variable {
		return nil, "", false
	}

	dot, ok := call.Form.(*Call)
	if !ok || !dot.Is(formDot, 2) {
		return nil, "", false
	}

	fun, ok := dot.Args[1].(Atom)
	if !ok {
		return nil, "", false
	}

	return dot.Args[0], string(fun), true
}

// aliasName returns the dotted name of an __aliases__ form.
func aliasName(term Term) (string, bool) {
	call, ok := term.(*Call)
	if !ok || call.Variable {
		return "", false
	}

	if form, _ := call.Name(); form != formAliases || len(call.Args) == 0 {
		return "", false
	}

	segments := make([]string, len(call.Args))

	for idx, arg := range call.Args {
		segment, ok := arg.(Atom)
		if !ok {
			return "", false
		}

		segments[idx] = string(segment)
	}

	return strings.Join(segments, "."), true
}

// keywordList returns the pairs of a keyword list.
func keywordList(term Term) ([]Pair, bool) {
	list, ok := term.(List)
	if !ok {
		return nil, false
	}

	pairs := make([]Pair, len(list))

	for idx, element := range list {
		pair, ok := element.(Pair)
		if !ok {
			return nil, false
		}

		if _, isAtom := pair.First.(Atom); !isAtom {
			return nil, false
		}

		pairs[idx] = pair
	}

	return pairs, true
}

// doBlock splits args into leading arguments and the trailing do/else/...
// keyword list, when there is one.
func doBlock(args []Term) ([]Term, []Pair, bool) {
	if len(args) == 0 {
		return args, nil, false
	}

	pairs, ok := keywordList(args[len(args)-1])
	if !ok || len(pairs) == 0 || pairs[0].First != atomDo {
		return args, nil, false
	}

	return args[:len(args)-1], pairs, true
}

// section returns the value of key in a do-block keyword list.
func section(pairs []Pair, key Atom) (Term, bool) {
	for _, pair := range pairs {
		if pair.First == key {
			return pair.Second, true
		}
	}

	return nil, false
}

// statements returns the expressions of a body: the children of a
// __block__, or the body itself.
func statements(body Term) []Term {
	if call, ok := body.(*Call); ok && !call.Variable {
		if form, _ := call.Name(); form == formBlock {
			return call.Args
		}
	}

	return []Term{body}
}
