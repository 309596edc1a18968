package meta

import (
	"slices"
	"strings"
	"unicode"
)

// BindingForm is how a kind introduces variable names.
type BindingForm uint8

// Binding forms.
const (
	// BindsNothing kinds introduce no names.
	BindsNothing BindingForm = iota
	// BindsParams kinds bind their Params attribute.
	BindsParams
	// BindsPattern kinds bind the names of the pattern in slot 0.
	BindsPattern
	// BindsCatch kinds bind their Binding attribute.
	BindsCatch
	// BindsOutward kinds bind the pattern in slot 0 for the statements
	// that follow them in a Block.
	BindsOutward
	// BindsSequential kinds let each statement see the outward names of
	// earlier ones.
	BindsSequential
)

// Binding is the name-introduction contract of a kind.
//
// Scoped lists the child slots that see the names; for BindsPattern and
// BindsOutward slot 0 holds the binding occurrences themselves.
type Binding struct {
	Scoped []int
	Form   BindingForm
}

// Scopes reports whether the child at slot sees the bound names.
func (binding Binding) Scopes(slot int) bool {
	return slices.Contains(binding.Scoped, slot)
}

// Binds reports whether the child at slot is a binding pattern.
func (binding Binding) Binds(slot int) bool {
	return slot == 0 && (binding.Form == BindsPattern || binding.Form == BindsOutward)
}

// BoundNames returns the names node introduces, refined by its attributes:
// only a for-each loop binds, and an empty catch binding binds nothing.
// Sequential kinds return nil; their names come from their statements.
func BoundNames(node *Node) []string {
	if node == nil {
		return nil
	}

	switch attrs := node.Attrs.(type) {
	case LambdaAttrs:
		return ParamNames(attrs.Params)
	case FunctionDefAttrs:
		return ParamNames(attrs.Params)
	case CatchClauseAttrs:
		if attrs.Binding == "" {
			return nil
		}

		return []string{attrs.Binding}
	case LoopAttrs:
		if attrs.LoopType != LoopForEach {
			return nil
		}

		return PatternNames(node.Child(0))
	case MatchArmAttrs, AssignmentAttrs, InlineMatchAttrs:
		return PatternNames(node.Child(0))
	default:
		return nil
	}
}

// PatternNames returns the variable names a pattern binds, in order of
// first appearance. Only Variable leaves inside Tuple, List, Map, and Pair
// structure bind; other subexpressions are reads.
func PatternNames(pattern *Node) []string {
	var names []string

	stack := []*Node{pattern}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node == nil {
			continue
		}

		switch attrs := node.Attrs.(type) {
		case VariableAttrs:
			if !slices.Contains(names, attrs.Name) {
				names = append(names, attrs.Name)
			}
		case TupleAttrs, ListAttrs, MapAttrs, PairAttrs:
			for idx := len(node.Children) - 1; idx >= 0; idx-- {
				stack = append(stack, node.Children[idx])
			}
		default:
		}
	}

	return names
}

// CallReceiver returns the variable a dotted call name reads: "obj" for
// "obj.method". Capitalized heads name module aliases, not variables.
func CallReceiver(attrs FunctionCallAttrs) (string, bool) {
	head, _, dotted := strings.Cut(attrs.Name, ".")
	if !dotted || head == "" {
		return "", false
	}

	first := []rune(head)[0]
	if first != '_' && !unicode.IsLower(first) {
		return "", false
	}

	return head, true
}
