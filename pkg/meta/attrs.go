package meta

// Language tags the source language of an adapter or escape node.
type Language string

// Supported languages.
const (
	LanguagePython Language = "python"
	LanguageElixir Language = "elixir"
)

// Attributes is the sealed set of per-kind attribute structs. The node kind
// is derived from the attributes, so the two can never disagree.
type Attributes interface {
	Kind() Kind
	attributes()
}

// OpCategory classifies unary and binary operators.
type OpCategory string

// Operator categories.
const (
	OpArithmetic OpCategory = "arithmetic"
	OpComparison OpCategory = "comparison"
	OpBoolean    OpCategory = "boolean"
	OpBitwise    OpCategory = "bitwise"
	OpConcat     OpCategory = "concat"
)

// LoopType distinguishes condition loops from iteration loops.
type LoopType string

// Loop types.
const (
	LoopWhile   LoopType = "while"
	LoopForEach LoopType = "for_each"
)

// CollectionOpType is the canonical collection operation.
type CollectionOpType string

// Collection operation types.
const (
	CollectionMap    CollectionOpType = "map"
	CollectionFilter CollectionOpType = "filter"
	CollectionReduce CollectionOpType = "reduce"
	CollectionEach   CollectionOpType = "each"
)

// AsyncType distinguishes awaiting a result from spawning work.
type AsyncType string

// Async operation types.
const (
	AsyncAwait AsyncType = "await"
	AsyncSpawn AsyncType = "spawn"
)

// ContainerType distinguishes modules from classes.
type ContainerType string

// Container types.
const (
	ContainerModule ContainerType = "module"
	ContainerClass  ContainerType = "class"
)

// Visibility of a definition.
type Visibility string

// Visibilities.
const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
)

// Param is a formal parameter of a function or lambda.
type Param struct {
	Name string `json:"name"`
}

// ParamNames returns the names of params in order.
func ParamNames(params []Param) []string {
	names := make([]string, len(params))

	for idx, param := range params {
		names[idx] = param.Name
	}

	return names
}

// LiteralAttrs holds the leaf value of a Literal.
type LiteralAttrs struct {
	Value Value `json:"value"`
}

// VariableAttrs names a variable reference.
type VariableAttrs struct {
	Name string `json:"name"`
}

// ListAttrs has no attributes.
type ListAttrs struct{}

// TupleAttrs has no attributes.
type TupleAttrs struct{}

// MapAttrs has no attributes; children are Pair nodes.
type MapAttrs struct{}

// PairAttrs has no attributes; children are [key, value].
type PairAttrs struct{}

// BinaryOpAttrs describes a binary operator.
type BinaryOpAttrs struct {
	Category OpCategory `json:"category"`
	Operator string     `json:"operator"`
}

// UnaryOpAttrs describes a unary operator.
type UnaryOpAttrs struct {
	Category OpCategory `json:"category"`
	Operator string     `json:"operator"`
}

// FunctionCallAttrs names the callee. Name is a dotted path for qualified
// calls. When Receiver is set the first child is the receiver expression and
// Name is the method name.
type FunctionCallAttrs struct {
	Name     string `json:"name"`
	Receiver bool   `json:"receiver,omitempty"`
}

// ConditionalAttrs has no attributes; children are [condition, then, else].
type ConditionalAttrs struct{}

// EarlyReturnAttrs has no attributes; the child is the value or Absent.
type EarlyReturnAttrs struct{}

// BlockAttrs has no attributes.
type BlockAttrs struct{}

// AssignmentAttrs has no attributes; children are [target, value].
type AssignmentAttrs struct{}

// InlineMatchAttrs has no attributes; children are [pattern, value].
type InlineMatchAttrs struct{}

// AbsentAttrs marks a missing optional child.
type AbsentAttrs struct{}

// LoopAttrs selects the loop shape.
type LoopAttrs struct {
	LoopType LoopType `json:"loop_type"`
}

// LambdaAttrs holds the parameters and captured names of an anonymous function.
type LambdaAttrs struct {
	Params   []Param  `json:"params"`
	Captures []string `json:"captures,omitempty"`
}

// CollectionOpAttrs selects the canonical collection operation.
type CollectionOpAttrs struct {
	OpType CollectionOpType `json:"op_type"`
}

// PatternMatchAttrs has no attributes; children are [scrutinee, arms...].
type PatternMatchAttrs struct{}

// MatchArmAttrs has no attributes; children are [pattern, guard, body].
type MatchArmAttrs struct{}

// ExceptionHandlingAttrs has no attributes; children are
// [body, finally, catch clauses...].
type ExceptionHandlingAttrs struct{}

// CatchClauseAttrs describes one handler. Empty ExceptionType catches
// everything; empty Binding leaves the exception unnamed.
type CatchClauseAttrs struct {
	ExceptionType string `json:"exception_type,omitempty"`
	Binding       string `json:"binding,omitempty"`
}

// AsyncOperationAttrs selects await or spawn.
type AsyncOperationAttrs struct {
	AsyncType AsyncType `json:"async_type"`
}

// ContainerAttrs describes a module or class.
type ContainerAttrs struct {
	ContainerType ContainerType `json:"container_type"`
	Name          string        `json:"name"`
	Bases         []string      `json:"bases,omitempty"`
}

// FunctionDefAttrs describes a named function.
type FunctionDefAttrs struct {
	Name       string     `json:"name"`
	Visibility Visibility `json:"visibility"`
	Params     []Param    `json:"params"`
}

// AttributeAccessAttrs names the accessed attribute.
type AttributeAccessAttrs struct {
	Attribute string `json:"attribute"`
}

// AugmentedAssignmentAttrs describes the combined operator, e.g. "+" for "+=".
type AugmentedAssignmentAttrs struct {
	Category OpCategory `json:"category"`
	Operator string     `json:"operator"`
}

// PropertyAttrs names a property; children are [getter, setter].
type PropertyAttrs struct {
	Name string `json:"name"`
}

// LanguageSpecificAttrs wraps a native subtree with no Core or Extended shape.
// Native is owned by the adapter of Language and is opaque to everyone else.
type LanguageSpecificAttrs struct {
	Native   any            `json:"native,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
	Language Language       `json:"language"`
	Hint     string         `json:"hint,omitempty"`
}

// Kind implementations.

// Kind returns KindLiteral.
func (LiteralAttrs) Kind() Kind { return KindLiteral }

// Kind returns KindVariable.
func (VariableAttrs) Kind() Kind { return KindVariable }

// Kind returns KindList.
func (ListAttrs) Kind() Kind { return KindList }

// Kind returns KindTuple.
func (TupleAttrs) Kind() Kind { return KindTuple }

// Kind returns KindMap.
func (MapAttrs) Kind() Kind { return KindMap }

// Kind returns KindPair.
func (PairAttrs) Kind() Kind { return KindPair }

// Kind returns KindBinaryOp.
func (BinaryOpAttrs) Kind() Kind { return KindBinaryOp }

// Kind returns KindUnaryOp.
func (UnaryOpAttrs) Kind() Kind { return KindUnaryOp }

// Kind returns KindFunctionCall.
func (FunctionCallAttrs) Kind() Kind { return KindFunctionCall }

// Kind returns KindConditional.
func (ConditionalAttrs) Kind() Kind { return KindConditional }

// Kind returns KindEarlyReturn.
func (EarlyReturnAttrs) Kind() Kind { return KindEarlyReturn }

// Kind returns KindBlock.
func (BlockAttrs) Kind() Kind { return KindBlock }

// Kind returns KindAssignment.
func (AssignmentAttrs) Kind() Kind { return KindAssignment }

// Kind returns KindInlineMatch.
func (InlineMatchAttrs) Kind() Kind { return KindInlineMatch }

// Kind returns KindAbsent.
func (AbsentAttrs) Kind() Kind { return KindAbsent }

// Kind returns KindLoop.
func (LoopAttrs) Kind() Kind { return KindLoop }

// Kind returns KindLambda.
func (LambdaAttrs) Kind() Kind { return KindLambda }

// Kind returns KindCollectionOp.
func (CollectionOpAttrs) Kind() Kind { return KindCollectionOp }

// Kind returns KindPatternMatch.
func (PatternMatchAttrs) Kind() Kind { return KindPatternMatch }

// Kind returns KindMatchArm.
func (MatchArmAttrs) Kind() Kind { return KindMatchArm }

// Kind returns KindExceptionHandling.
func (ExceptionHandlingAttrs) Kind() Kind { return KindExceptionHandling }

// Kind returns KindCatchClause.
func (CatchClauseAttrs) Kind() Kind { return KindCatchClause }

// Kind returns KindAsyncOperation.
func (AsyncOperationAttrs) Kind() Kind { return KindAsyncOperation }

// Kind returns KindContainer.
func (ContainerAttrs) Kind() Kind { return KindContainer }

// Kind returns KindFunctionDef.
func (FunctionDefAttrs) Kind() Kind { return KindFunctionDef }

// Kind returns KindAttributeAccess.
func (AttributeAccessAttrs) Kind() Kind { return KindAttributeAccess }

// Kind returns KindAugmentedAssignment.
func (AugmentedAssignmentAttrs) Kind() Kind { return KindAugmentedAssignment }

// Kind returns KindProperty.
func (PropertyAttrs) Kind() Kind { return KindProperty }

// Kind returns KindLanguageSpecific.
func (LanguageSpecificAttrs) Kind() Kind { return KindLanguageSpecific }

func (LiteralAttrs) attributes()             {}
func (VariableAttrs) attributes()            {}
func (ListAttrs) attributes()                {}
func (TupleAttrs) attributes()               {}
func (MapAttrs) attributes()                 {}
func (PairAttrs) attributes()                {}
func (BinaryOpAttrs) attributes()            {}
func (UnaryOpAttrs) attributes()             {}
func (FunctionCallAttrs) attributes()        {}
func (ConditionalAttrs) attributes()         {}
func (EarlyReturnAttrs) attributes()         {}
func (BlockAttrs) attributes()               {}
func (AssignmentAttrs) attributes()          {}
func (InlineMatchAttrs) attributes()         {}
func (AbsentAttrs) attributes()              {}
func (LoopAttrs) attributes()                {}
func (LambdaAttrs) attributes()              {}
func (CollectionOpAttrs) attributes()        {}
func (PatternMatchAttrs) attributes()        {}
func (MatchArmAttrs) attributes()            {}
func (ExceptionHandlingAttrs) attributes()   {}
func (CatchClauseAttrs) attributes()         {}
func (AsyncOperationAttrs) attributes()      {}
func (ContainerAttrs) attributes()           {}
func (FunctionDefAttrs) attributes()         {}
func (AttributeAccessAttrs) attributes()     {}
func (AugmentedAssignmentAttrs) attributes() {}
func (PropertyAttrs) attributes()            {}
func (LanguageSpecificAttrs) attributes()    {}

// zeroAttrs returns the zero attribute struct for kind, used by decoders.
func zeroAttrs(kind Kind) Attributes {
	switch kind {
	case KindLiteral:
		return LiteralAttrs{}
	case KindVariable:
		return VariableAttrs{}
	case KindList:
		return ListAttrs{}
	case KindTuple:
		return TupleAttrs{}
	case KindMap:
		return MapAttrs{}
	case KindPair:
		return PairAttrs{}
	case KindBinaryOp:
		return BinaryOpAttrs{}
	case KindUnaryOp:
		return UnaryOpAttrs{}
	case KindFunctionCall:
		return FunctionCallAttrs{}
	case KindConditional:
		return ConditionalAttrs{}
	case KindEarlyReturn:
		return EarlyReturnAttrs{}
	case KindBlock:
		return BlockAttrs{}
	case KindAssignment:
		return AssignmentAttrs{}
	case KindInlineMatch:
		return InlineMatchAttrs{}
	case KindAbsent:
		return AbsentAttrs{}
	case KindLoop:
		return LoopAttrs{}
	case KindLambda:
		return LambdaAttrs{}
	case KindCollectionOp:
		return CollectionOpAttrs{}
	case KindPatternMatch:
		return PatternMatchAttrs{}
	case KindMatchArm:
		return MatchArmAttrs{}
	case KindExceptionHandling:
		return ExceptionHandlingAttrs{}
	case KindCatchClause:
		return CatchClauseAttrs{}
	case KindAsyncOperation:
		return AsyncOperationAttrs{}
	case KindContainer:
		return ContainerAttrs{}
	case KindFunctionDef:
		return FunctionDefAttrs{}
	case KindAttributeAccess:
		return AttributeAccessAttrs{}
	case KindAugmentedAssignment:
		return AugmentedAssignmentAttrs{}
	case KindProperty:
		return PropertyAttrs{}
	case KindLanguageSpecific:
		return LanguageSpecificAttrs{}
	case KindInvalid, kindCount:
		return nil
	}

	return nil
}
