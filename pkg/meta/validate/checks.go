package validate

import (
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

type violationSink struct {
	node       *meta.Node
	path       []int
	violations []Violation
}

func (sink *violationSink) add(format string, args ...any) {
	sink.violations = append(sink.violations, Violation{
		Kind:   sink.node.Kind(),
		Path:   sink.path,
		Reason: fmt.Sprintf(format, args...),
	})
}

func checkNode(node *meta.Node, path []int) []Violation {
	sink := &violationSink{node: node, path: path}

	if node.Attrs == nil {
		sink.add("node has no attributes")

		return sink.violations
	}

	checkArity(sink)
	checkChildKinds(sink)
	checkAttributes(sink)

	return sink.violations
}

func checkArity(sink *violationSink) {
	node := sink.node
	arity := meta.ExpectedArity(node.Attrs)
	count := len(node.Children)

	if !arity.Allows(count) {
		sink.add("expected %s children, got %d", describeArity(arity), count)
	}

	for slot, child := range node.Children {
		if child == nil {
			sink.add("child %d is nil", slot)

			continue
		}

		if child.IsAbsent() && !arity.OptionalSlot(slot) {
			sink.add("child %d is Absent in a required slot", slot)
		}
	}
}

func describeArity(arity meta.Arity) string {
	switch {
	case arity.Fixed():
		return fmt.Sprint(arity.Min)
	case arity.Max == meta.Variadic:
		return fmt.Sprintf("at least %d", arity.Min)
	default:
		return fmt.Sprintf("%d to %d", arity.Min, arity.Max)
	}
}

func checkChildKinds(sink *violationSink) {
	node := sink.node

	switch node.Kind() {
	case meta.KindMap:
		requireChildKind(sink, 0, meta.KindPair)
	case meta.KindPatternMatch:
		requireChildKind(sink, 1, meta.KindMatchArm)
	case meta.KindExceptionHandling:
		requireChildKind(sink, 2, meta.KindCatchClause)
	case meta.KindCollectionOp:
		fn := node.Child(0)
		if fn != nil && fn.Kind() == meta.KindAbsent {
			sink.add("collection operation has no function")
		}
	default:
	}
}

// requireChildKind checks every child from slot from onward has kind want.
func requireChildKind(sink *violationSink, from int, want meta.Kind) {
	for slot := from; slot < len(sink.node.Children); slot++ {
		child := sink.node.Children[slot]
		if child == nil {
			continue
		}

		if child.Kind() != want {
			sink.add("child %d must be %s, got %s", slot, want, child.Kind())
		}
	}
}

//nolint:cyclop,gocyclo // One case per attribute type.
func checkAttributes(sink *violationSink) {
	switch attrs := sink.node.Attrs.(type) {
	case meta.LiteralAttrs:
		if !validLiteralType(attrs.Value.Type) {
			sink.add("unknown literal type %q", attrs.Value.Type)
		}
	case meta.VariableAttrs:
		if attrs.Name == "" {
			sink.add("variable has no name")
		}
	case meta.BinaryOpAttrs:
		checkOperator(sink, attrs.Category, attrs.Operator)
	case meta.UnaryOpAttrs:
		checkOperator(sink, attrs.Category, attrs.Operator)
	case meta.AugmentedAssignmentAttrs:
		checkOperator(sink, attrs.Category, attrs.Operator)
	case meta.FunctionCallAttrs:
		if attrs.Name == "" {
			sink.add("call has no name")
		}
	case meta.LoopAttrs:
		if attrs.LoopType != meta.LoopWhile && attrs.LoopType != meta.LoopForEach {
			sink.add("unknown loop type %q", attrs.LoopType)
		}
	case meta.LambdaAttrs:
		checkParams(sink, attrs.Params)
	case meta.FunctionDefAttrs:
		if attrs.Name == "" {
			sink.add("function has no name")
		}

		checkParams(sink, attrs.Params)
	case meta.CollectionOpAttrs:
		if !slices.Contains([]meta.CollectionOpType{
			meta.CollectionMap, meta.CollectionFilter, meta.CollectionReduce, meta.CollectionEach,
		}, attrs.OpType) {
			sink.add("unknown collection operation %q", attrs.OpType)
		}
	case meta.AsyncOperationAttrs:
		if attrs.AsyncType != meta.AsyncAwait && attrs.AsyncType != meta.AsyncSpawn {
			sink.add("unknown async type %q", attrs.AsyncType)
		}
	case meta.ContainerAttrs:
		if attrs.ContainerType != meta.ContainerModule && attrs.ContainerType != meta.ContainerClass {
			sink.add("unknown container type %q", attrs.ContainerType)
		}
	case meta.LanguageSpecificAttrs:
		if attrs.Language == "" {
			sink.add("escape node has no language")
		}
	default:
	}
}

func validLiteralType(literalType meta.LiteralType) bool {
	switch literalType {
	case meta.LiteralInteger, meta.LiteralFloat, meta.LiteralString,
		meta.LiteralBoolean, meta.LiteralNull, meta.LiteralSymbol:
		return true
	default:
		return false
	}
}

func checkOperator(sink *violationSink, category meta.OpCategory, operator string) {
	switch category {
	case meta.OpArithmetic, meta.OpComparison, meta.OpBoolean, meta.OpBitwise, meta.OpConcat:
	default:
		sink.add("unknown operator category %q", category)
	}

	if operator == "" {
		sink.add("operator is empty")
	}
}

func checkParams(sink *violationSink, params []meta.Param) {
	seen := make(map[string]bool, len(params))

	for _, param := range params {
		if param.Name == "" {
			sink.add("parameter has no name")

			continue
		}

		if seen[param.Name] {
			sink.add("duplicate parameter %q", param.Name)
		}

		seen[param.Name] = true
	}
}
