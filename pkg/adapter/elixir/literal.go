package elixir

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Inspect writes term as the Elixir term literal of the quoted form, the
// text `inspect(quoted)` would print. Evaluating it yields the quoted form
// back.
func Inspect(term Term) (string, error) {
	var out strings.Builder

	err := inspect(&out, term)
	if err != nil {
		return "", err
	}

	return out.String(), nil
}

//nolint:cyclop // One case per term shape.
func inspect(out *strings.Builder, term Term) error {
	switch typed := term.(type) {
	case Atom:
		out.WriteString(atomLiteral(typed))
	case Int:
		out.WriteString(strconv.FormatInt(int64(typed), 10))
	case BigInt:
		if !isDigits(string(typed)) {
			return fmt.Errorf("%w: bad integer digits %q", ErrUnprintable, string(typed))
		}

		out.WriteString(string(typed))
	case Float:
		if math.IsNaN(float64(typed)) || math.IsInf(float64(typed), 0) {
			return fmt.Errorf("%w: %v has no literal", ErrUnprintable, float64(typed))
		}

		out.WriteString(formatFloat(float64(typed)))
	case String:
		out.WriteString(quoteString(string(typed)))
	case List:
		return inspectSeq(out, "[", "]", typed)
	case Pair:
		return inspectSeq(out, "{", "}", []Term{typed.First, typed.Second})
	case *Call:
		return inspectCall(out, typed)
	default:
		return fmt.Errorf("%w: %T", ErrUnprintable, term)
	}

	return nil
}

func inspectSeq(out *strings.Builder, open, closing string, terms []Term) error {
	out.WriteString(open)

	for idx, element := range terms {
		if idx > 0 {
			out.WriteString(", ")
		}

		err := inspect(out, element)
		if err != nil {
			return err
		}
	}

	out.WriteString(closing)

	return nil
}

func inspectCall(out *strings.Builder, call *Call) error {
	if call == nil || call.Form == nil {
		return fmt.Errorf("%w: call without form", ErrUnprintable)
	}

	out.WriteString("{")

	err := inspect(out, call.Form)
	if err != nil {
		return err
	}

	out.WriteString(", [")

	fields := make([]string, 0, 3)
	if call.Meta.Line > 0 {
		fields = append(fields, "line: "+strconv.Itoa(call.Meta.Line))
	}

	if call.Meta.Column > 0 {
		fields = append(fields, "column: "+strconv.Itoa(call.Meta.Column))
	}

	if call.Meta.NoParens {
		fields = append(fields, "no_parens: true")
	}

	out.WriteString(strings.Join(fields, ", "))
	out.WriteString("], ")

	if call.Variable {
		context := call.Context
		if context == "" {
			context = atomNil
		}

		out.WriteString(atomLiteral(context))
		out.WriteString("}")

		return nil
	}

	err = inspectSeq(out, "[", "]", call.Args)
	if err != nil {
		return err
	}

	out.WriteString("}")

	return nil
}

// atomLiteral spells atom as a literal: bare for true, false and nil,
// quoted otherwise so that operator and module atoms need no special case.
func atomLiteral(atom Atom) string {
	switch atom {
	case atomTrue, atomFalse, atomNil:
		return string(atom)
	}

	return ":" + quoteString(string(atom))
}
