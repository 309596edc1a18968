package meta

import (
	"fmt"
	"sort"
	"strings"
)

const formatIndent = "  "

type formatFrame struct {
	node  *Node
	depth int
}

// Format renders a tree as indented text, one node per line. Metadata is
// omitted so that equal trees format identically.
func Format(root *Node) string {
	var builder strings.Builder

	stack := []formatFrame{{node: root}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		builder.WriteString(strings.Repeat(formatIndent, frame.depth))
		builder.WriteString(Describe(frame.node))
		builder.WriteByte('\n')

		if frame.node == nil {
			continue
		}

		for idx := len(frame.node.Children) - 1; idx >= 0; idx-- {
			stack = append(stack, formatFrame{node: frame.node.Children[idx], depth: frame.depth + 1})
		}
	}

	return builder.String()
}

// String renders the node as Format does.
func (node *Node) String() string {
	return Format(node)
}

// Describe renders a single node header: the kind and its attributes.
func Describe(node *Node) string {
	if node == nil {
		return "<nil>"
	}

	summary := describeAttrs(node.Attrs)
	if summary == "" {
		return node.Kind().String()
	}

	return node.Kind().String() + "(" + summary + ")"
}

func describeAttrs(attrs Attributes) string {
	switch typed := attrs.(type) {
	case LiteralAttrs:
		return typed.Value.String()
	case VariableAttrs:
		return typed.Name
	case BinaryOpAttrs:
		return string(typed.Category) + " " + typed.Operator
	case UnaryOpAttrs:
		return string(typed.Category) + " " + typed.Operator
	case AugmentedAssignmentAttrs:
		return string(typed.Category) + " " + typed.Operator
	case FunctionCallAttrs:
		if typed.Receiver {
			return "." + typed.Name
		}

		return typed.Name
	case LoopAttrs:
		return string(typed.LoopType)
	case LambdaAttrs:
		return strings.Join(ParamNames(typed.Params), ", ")
	case CollectionOpAttrs:
		return string(typed.OpType)
	case CatchClauseAttrs:
		return strings.TrimSpace(typed.ExceptionType + " " + typed.Binding)
	case AsyncOperationAttrs:
		return string(typed.AsyncType)
	case ContainerAttrs:
		summary := string(typed.ContainerType) + " " + typed.Name
		if len(typed.Bases) > 0 {
			summary += " < " + strings.Join(typed.Bases, ", ")
		}

		return summary
	case FunctionDefAttrs:
		return fmt.Sprintf("%s %s(%s)", typed.Visibility, typed.Name, strings.Join(ParamNames(typed.Params), ", "))
	case AttributeAccessAttrs:
		return "." + typed.Attribute
	case PropertyAttrs:
		return typed.Name
	case LanguageSpecificAttrs:
		return describeLanguageSpecific(typed)
	default:
		return ""
	}
}

func describeLanguageSpecific(attrs LanguageSpecificAttrs) string {
	parts := []string{string(attrs.Language)}

	if attrs.Hint != "" {
		parts = append(parts, attrs.Hint)
	}

	if len(attrs.Extra) > 0 {
		keys := make([]string, 0, len(attrs.Extra))
		for key := range attrs.Extra {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", key, attrs.Extra[key]))
		}
	}

	return strings.Join(parts, " ")
}
