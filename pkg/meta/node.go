package meta

// Position is a source span. Lines are 1-based, columns 0-based. A zero
// Position means unknown.
type Position struct {
	Line      int `json:"line"                 yaml:"line"`
	Column    int `json:"column"               yaml:"column"`
	EndLine   int `json:"end_line,omitempty"   yaml:"end_line,omitempty"`
	EndColumn int `json:"end_column,omitempty" yaml:"end_column,omitempty"`
}

// Metadata is the non-semantic part of a node: where it came from and how
// it was spelled. It never participates in equality.
type Metadata struct {
	Pos   *Position         `json:"pos,omitempty"   yaml:"pos,omitempty"`
	Hints map[string]string `json:"hints,omitempty" yaml:"hints,omitempty"`
}

// Well-known hint keys.
const (
	// HintSpelling is the surface spelling of an operator, e.g. "&&" for "and".
	HintSpelling = "spelling"
	// HintForm is the surface construct a node was lowered from, e.g. "comprehension".
	HintForm = "form"
	// HintCallee is the original call spelling of a canonicalized collection op.
	HintCallee = "callee"
	// HintStatement marks a conditional or match that was a statement in the source.
	HintStatement = "statement"
)

// Node is an immutable MetaAST node. Kind is derived from Attrs; Children are
// positional per the kind's arity contract.
type Node struct {
	Attrs    Attributes
	Meta     *Metadata
	Children []*Node
}

// New builds a node from attributes and children. The children slice is copied.
func New(attrs Attributes, children ...*Node) *Node {
	owned := make([]*Node, len(children))
	copy(owned, children)

	return &Node{Attrs: attrs, Children: owned}
}

// Kind returns the node kind, or KindInvalid for a nil node or missing attributes.
func (node *Node) Kind() Kind {
	if node == nil || node.Attrs == nil {
		return KindInvalid
	}

	return node.Attrs.Kind()
}

// Layer returns the layer of the node's own kind.
func (node *Node) Layer() Layer {
	return LayerOf(node.Kind())
}

// IsAbsent reports whether node is the explicit missing-child marker.
func (node *Node) IsAbsent() bool {
	return node.Kind() == KindAbsent
}

// Child returns the child at idx, or nil when out of range.
func (node *Node) Child(idx int) *Node {
	if node == nil || idx < 0 || idx >= len(node.Children) {
		return nil
	}

	return node.Children[idx]
}

// Hint returns the metadata hint for key, or "" when absent.
func (node *Node) Hint(key string) string {
	if node == nil || node.Meta == nil {
		return ""
	}

	return node.Meta.Hints[key]
}

// Pos returns the source position, or nil when unknown.
func (node *Node) Pos() *Position {
	if node == nil || node.Meta == nil {
		return nil
	}

	return node.Meta.Pos
}

// WithMeta returns a shallow copy of node carrying metadata.
func (node *Node) WithMeta(metadata *Metadata) *Node {
	clone := *node
	clone.Meta = metadata

	return &clone
}

// WithHint returns a shallow copy of node with one more hint set.
func (node *Node) WithHint(key, value string) *Node {
	metadata := &Metadata{Hints: map[string]string{key: value}}

	if node.Meta != nil {
		metadata.Pos = node.Meta.Pos

		for hintKey, hintValue := range node.Meta.Hints {
			if hintKey != key {
				metadata.Hints[hintKey] = hintValue
			}
		}
	}

	return node.WithMeta(metadata)
}

// WithPos returns a shallow copy of node positioned at pos.
func (node *Node) WithPos(pos *Position) *Node {
	metadata := &Metadata{Pos: pos}

	if node.Meta != nil {
		metadata.Hints = node.Meta.Hints
	}

	return node.WithMeta(metadata)
}

// WithChildren returns a copy of node with children replaced.
func (node *Node) WithChildren(children []*Node) *Node {
	owned := make([]*Node, len(children))
	copy(owned, children)

	return &Node{Attrs: node.Attrs, Meta: node.Meta, Children: owned}
}

// WithAttrs returns a copy of node with attributes replaced.
func (node *Node) WithAttrs(attrs Attributes) *Node {
	clone := *node
	clone.Attrs = attrs

	return &clone
}

// Absent returns a fresh missing-child marker.
func Absent() *Node {
	return &Node{Attrs: AbsentAttrs{}, Children: []*Node{}}
}

func orAbsent(node *Node) *Node {
	if node == nil {
		return Absent()
	}

	return node
}

// Lit builds a Literal.
func Lit(value Value) *Node {
	return New(LiteralAttrs{Value: value})
}

// Var builds a Variable.
func Var(name string) *Node {
	return New(VariableAttrs{Name: name})
}

// NewList builds a List.
func NewList(elements ...*Node) *Node {
	return New(ListAttrs{}, elements...)
}

// NewTuple builds a Tuple.
func NewTuple(elements ...*Node) *Node {
	return New(TupleAttrs{}, elements...)
}

// NewMap builds a Map from Pair nodes.
func NewMap(pairs ...*Node) *Node {
	return New(MapAttrs{}, pairs...)
}

// NewPair builds a key/value Pair.
func NewPair(key, value *Node) *Node {
	return New(PairAttrs{}, key, value)
}

// NewBinaryOp builds a BinaryOp.
func NewBinaryOp(category OpCategory, operator string, left, right *Node) *Node {
	return New(BinaryOpAttrs{Category: category, Operator: operator}, left, right)
}

// NewUnaryOp builds a UnaryOp.
func NewUnaryOp(category OpCategory, operator string, operand *Node) *Node {
	return New(UnaryOpAttrs{Category: category, Operator: operator}, operand)
}

// NewCall builds a FunctionCall by name.
func NewCall(name string, args ...*Node) *Node {
	return New(FunctionCallAttrs{Name: name}, args...)
}

// NewMethodCall builds a FunctionCall on a receiver expression.
func NewMethodCall(receiver *Node, name string, args ...*Node) *Node {
	children := make([]*Node, 0, len(args)+1)
	children = append(children, receiver)
	children = append(children, args...)

	return &Node{Attrs: FunctionCallAttrs{Name: name, Receiver: true}, Children: children}
}

// NewConditional builds a Conditional. A nil else branch becomes Absent.
func NewConditional(condition, then, otherwise *Node) *Node {
	return New(ConditionalAttrs{}, condition, then, orAbsent(otherwise))
}

// NewReturn builds an EarlyReturn. A nil value becomes Absent.
func NewReturn(value *Node) *Node {
	return New(EarlyReturnAttrs{}, orAbsent(value))
}

// NewBlock builds a Block.
func NewBlock(statements ...*Node) *Node {
	return New(BlockAttrs{}, statements...)
}

// NewAssignment builds an imperative Assignment.
func NewAssignment(target, value *Node) *Node {
	return New(AssignmentAttrs{}, target, value)
}

// NewInlineMatch builds a match-or-fail InlineMatch.
func NewInlineMatch(pattern, value *Node) *Node {
	return New(InlineMatchAttrs{}, pattern, value)
}

// NewWhile builds a condition Loop.
func NewWhile(condition, body *Node) *Node {
	return New(LoopAttrs{LoopType: LoopWhile}, condition, body)
}

// NewForEach builds an iteration Loop.
func NewForEach(iterator, collection, body *Node) *Node {
	return New(LoopAttrs{LoopType: LoopForEach}, iterator, collection, body)
}

// NewLambda builds a Lambda over named parameters.
func NewLambda(params []string, body *Node) *Node {
	return New(LambdaAttrs{Params: paramsOf(params)}, body)
}

// NewCollectionOp builds a CollectionOp. initial is only used for reduce.
func NewCollectionOp(opType CollectionOpType, fn, collection, initial *Node) *Node {
	if opType == CollectionReduce {
		return New(CollectionOpAttrs{OpType: opType}, fn, collection, initial)
	}

	return New(CollectionOpAttrs{OpType: opType}, fn, collection)
}

// NewPatternMatch builds a PatternMatch from a scrutinee and MatchArm nodes.
func NewPatternMatch(scrutinee *Node, arms ...*Node) *Node {
	children := make([]*Node, 0, len(arms)+1)
	children = append(children, scrutinee)
	children = append(children, arms...)

	return &Node{Attrs: PatternMatchAttrs{}, Children: children}
}

// NewMatchArm builds a MatchArm. A nil guard becomes Absent.
func NewMatchArm(pattern, guard, body *Node) *Node {
	return New(MatchArmAttrs{}, pattern, orAbsent(guard), body)
}

// NewExceptionHandling builds an ExceptionHandling. A nil finally becomes Absent.
func NewExceptionHandling(body, finally *Node, clauses ...*Node) *Node {
	children := make([]*Node, 0, len(clauses)+2)
	children = append(children, body, orAbsent(finally))
	children = append(children, clauses...)

	return &Node{Attrs: ExceptionHandlingAttrs{}, Children: children}
}

// NewCatchClause builds a CatchClause.
func NewCatchClause(exceptionType, binding string, body *Node) *Node {
	return New(CatchClauseAttrs{ExceptionType: exceptionType, Binding: binding}, body)
}

// NewAsync builds an AsyncOperation.
func NewAsync(asyncType AsyncType, operation *Node) *Node {
	return New(AsyncOperationAttrs{AsyncType: asyncType}, operation)
}

// NewContainer builds a Container.
func NewContainer(containerType ContainerType, name string, bases []string, body *Node) *Node {
	return New(ContainerAttrs{ContainerType: containerType, Name: name, Bases: bases}, body)
}

// NewFunctionDef builds a FunctionDef.
func NewFunctionDef(name string, visibility Visibility, params []string, body *Node) *Node {
	return New(FunctionDefAttrs{Name: name, Visibility: visibility, Params: paramsOf(params)}, body)
}

// NewAttributeAccess builds an AttributeAccess.
func NewAttributeAccess(receiver *Node, attribute string) *Node {
	return New(AttributeAccessAttrs{Attribute: attribute}, receiver)
}

// NewAugmentedAssignment builds an AugmentedAssignment.
func NewAugmentedAssignment(category OpCategory, operator string, target, value *Node) *Node {
	return New(AugmentedAssignmentAttrs{Category: category, Operator: operator}, target, value)
}

// NewProperty builds a Property. Nil accessors become Absent.
func NewProperty(name string, getter, setter *Node) *Node {
	return New(PropertyAttrs{Name: name}, orAbsent(getter), orAbsent(setter))
}

// NewLanguageSpecific wraps a native subtree.
func NewLanguageSpecific(language Language, hint string, native any) *Node {
	return New(LanguageSpecificAttrs{Language: language, Hint: hint, Native: native})
}

func paramsOf(names []string) []Param {
	params := make([]Param, len(names))

	for idx, name := range names {
		params[idx] = Param{Name: name}
	}

	return params
}
