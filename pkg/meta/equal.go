package meta

import (
	"reflect"
	"slices"
)

// NativeEqualer is implemented by native payloads that define their own
// equality (typically ignoring positions).
type NativeEqualer interface {
	Equal(other any) bool
}

type nodePair struct {
	left  *Node
	right *Node
}

// Equal reports structural equality of two trees, ignoring Metadata.
func Equal(left, right *Node) bool {
	return equalWith(left, right, attrsEqual)
}

// EqualModuloNames reports structural equality up to a consistent one-to-one
// renaming of variables, parameters, lambda captures, and catch bindings.
func EqualModuloNames(left, right *Node) bool {
	renaming := newBijection()

	return equalWith(left, right, func(leftAttrs, rightAttrs Attributes) bool {
		return renaming.attrsEqual(leftAttrs, rightAttrs)
	})
}

func equalWith(left, right *Node, sameAttrs func(Attributes, Attributes) bool) bool {
	stack := []nodePair{{left: left, right: right}}

	for len(stack) > 0 {
		pair := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if pair.left == nil || pair.right == nil {
			if pair.left != pair.right {
				return false
			}

			continue
		}

		if pair.left.Kind() != pair.right.Kind() {
			return false
		}

		if !sameAttrs(pair.left.Attrs, pair.right.Attrs) {
			return false
		}

		if len(pair.left.Children) != len(pair.right.Children) {
			return false
		}

		// Push in reverse so children compare left to right; the bijection
		// in EqualModuloNames depends on a deterministic visiting order.
		for idx := len(pair.left.Children) - 1; idx >= 0; idx-- {
			stack = append(stack, nodePair{left: pair.left.Children[idx], right: pair.right.Children[idx]})
		}
	}

	return true
}

func attrsEqual(left, right Attributes) bool {
	switch leftAttrs := left.(type) {
	case LiteralAttrs:
		rightAttrs, ok := right.(LiteralAttrs)

		return ok && leftAttrs.Value.Equal(rightAttrs.Value)
	case LambdaAttrs:
		rightAttrs, ok := right.(LambdaAttrs)

		return ok && slices.Equal(leftAttrs.Params, rightAttrs.Params) &&
			slices.Equal(leftAttrs.Captures, rightAttrs.Captures)
	case FunctionDefAttrs:
		rightAttrs, ok := right.(FunctionDefAttrs)

		return ok && leftAttrs.Name == rightAttrs.Name &&
			leftAttrs.Visibility == rightAttrs.Visibility &&
			slices.Equal(leftAttrs.Params, rightAttrs.Params)
	case ContainerAttrs:
		rightAttrs, ok := right.(ContainerAttrs)

		return ok && leftAttrs.ContainerType == rightAttrs.ContainerType &&
			leftAttrs.Name == rightAttrs.Name &&
			slices.Equal(leftAttrs.Bases, rightAttrs.Bases)
	case LanguageSpecificAttrs:
		rightAttrs, ok := right.(LanguageSpecificAttrs)

		return ok && languageSpecificEqual(leftAttrs, rightAttrs)
	case nil:
		return right == nil
	default:
		return left == right
	}
}

func languageSpecificEqual(left, right LanguageSpecificAttrs) bool {
	if left.Language != right.Language || left.Hint != right.Hint {
		return false
	}

	if len(left.Extra) != 0 || len(right.Extra) != 0 {
		if !reflect.DeepEqual(left.Extra, right.Extra) {
			return false
		}
	}

	return NativeEqual(left.Native, right.Native)
}

// NativeEqual compares two native payloads, preferring the payload's own
// Equal method.
func NativeEqual(left, right any) bool {
	if equaler, ok := left.(NativeEqualer); ok {
		return equaler.Equal(right)
	}

	if equaler, ok := right.(NativeEqualer); ok {
		return equaler.Equal(left)
	}

	return reflect.DeepEqual(left, right)
}

type bijection struct {
	forward  map[string]string
	backward map[string]string
}

func newBijection() *bijection {
	return &bijection{forward: map[string]string{}, backward: map[string]string{}}
}

func (renaming *bijection) bind(left, right string) bool {
	if left == "" || right == "" {
		return left == right
	}

	mapped, seen := renaming.forward[left]
	if seen {
		return mapped == right
	}

	reverse, taken := renaming.backward[right]
	if taken {
		return reverse == left
	}

	renaming.forward[left] = right
	renaming.backward[right] = left

	return true
}

func (renaming *bijection) bindAll(left, right []Param) bool {
	if len(left) != len(right) {
		return false
	}

	for idx := range left {
		if !renaming.bind(left[idx].Name, right[idx].Name) {
			return false
		}
	}

	return true
}

func (renaming *bijection) bindNames(left, right []string) bool {
	if len(left) != len(right) {
		return false
	}

	for idx := range left {
		if !renaming.bind(left[idx], right[idx]) {
			return false
		}
	}

	return true
}

func (renaming *bijection) attrsEqual(left, right Attributes) bool {
	switch leftAttrs := left.(type) {
	case VariableAttrs:
		rightAttrs, ok := right.(VariableAttrs)

		return ok && renaming.bind(leftAttrs.Name, rightAttrs.Name)
	case LambdaAttrs:
		rightAttrs, ok := right.(LambdaAttrs)

		return ok && renaming.bindAll(leftAttrs.Params, rightAttrs.Params) &&
			renaming.bindNames(leftAttrs.Captures, rightAttrs.Captures)
	case FunctionDefAttrs:
		rightAttrs, ok := right.(FunctionDefAttrs)

		return ok && leftAttrs.Name == rightAttrs.Name &&
			leftAttrs.Visibility == rightAttrs.Visibility &&
			renaming.bindAll(leftAttrs.Params, rightAttrs.Params)
	case CatchClauseAttrs:
		rightAttrs, ok := right.(CatchClauseAttrs)

		return ok && leftAttrs.ExceptionType == rightAttrs.ExceptionType &&
			renaming.bind(leftAttrs.Binding, rightAttrs.Binding)
	default:
		return attrsEqual(left, right)
	}
}
