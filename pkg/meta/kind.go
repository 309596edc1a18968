// Package meta provides the MetaAST node model: the closed set of node kinds,
// their layer assignment and arity contracts, typed per-kind attributes, and
// the immutable Node tree shared by every language adapter.
package meta

import (
	"errors"
	"fmt"
)

// Kind is the closed enumeration of MetaAST node kinds.
type Kind uint8

// Node kinds. The order groups kinds by layer; it is not part of any wire format.
const (
	KindInvalid Kind = iota

	// Core layer.
	KindLiteral
	KindVariable
	KindList
	KindTuple
	KindMap
	KindPair
	KindBinaryOp
	KindUnaryOp
	KindFunctionCall
	KindConditional
	KindEarlyReturn
	KindBlock
	KindAssignment
	KindInlineMatch
	KindAbsent

	// Extended layer.
	KindLoop
	KindLambda
	KindCollectionOp
	KindPatternMatch
	KindMatchArm
	KindExceptionHandling
	KindCatchClause
	KindAsyncOperation
	KindContainer
	KindFunctionDef
	KindAttributeAccess
	KindAugmentedAssignment
	KindProperty

	// Native-escape layer.
	KindLanguageSpecific

	kindCount
)

// Layer is the universality tier a kind belongs to. Layers are ordered:
// Core < Extended < Native.
type Layer uint8

// Layers.
const (
	LayerCore Layer = iota + 1
	LayerExtended
	LayerNative
)

// String returns the lower-case layer name.
func (layer Layer) String() string {
	switch layer {
	case LayerCore:
		return "core"
	case LayerExtended:
		return "extended"
	case LayerNative:
		return "native"
	default:
		return "unknown"
	}
}

// ErrUnknownLayer is returned by ParseLayer for unrecognized names.
var ErrUnknownLayer = errors.New("unknown layer")

// ParseLayer parses a layer name as produced by Layer.String.
func ParseLayer(name string) (Layer, error) {
	switch name {
	case "core":
		return LayerCore, nil
	case "extended":
		return LayerExtended, nil
	case "native":
		return LayerNative, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLayer, name)
	}
}

// Variadic marks an arity without an upper bound.
const Variadic = -1

// Arity is the child-count contract of a kind.
//
// Min and Max bound the number of children (Max is Variadic when unbounded).
// Optional lists the positional slots that may hold an Absent marker; every
// other slot must hold a real node.
type Arity struct {
	Optional []int
	Min      int
	Max      int
}

// Fixed reports whether the kind always has exactly Min children.
func (arity Arity) Fixed() bool {
	return arity.Max == arity.Min
}

// Allows reports whether count children satisfy the arity bounds.
func (arity Arity) Allows(count int) bool {
	if count < arity.Min {
		return false
	}

	return arity.Max == Variadic || count <= arity.Max
}

// OptionalSlot reports whether slot may hold an Absent marker.
func (arity Arity) OptionalSlot(slot int) bool {
	for _, candidate := range arity.Optional {
		if candidate == slot {
			return true
		}
	}

	return false
}

type kindInfo struct {
	name    string
	binding Binding
	arity   Arity
	layer   Layer
}

// kindTable is the single source of truth for names, layers, arities and
// binding forms.
// Kinds whose arity depends on an attribute (Loop, CollectionOp,
// FunctionCall) carry their widest bounds here; the attribute-specific
// refinement lives in ExpectedArity.
//
//nolint:gochecknoglobals // Immutable lookup table.
var kindTable = [kindCount]kindInfo{
	KindInvalid: {name: "Invalid"},

	KindLiteral:      {name: "Literal", layer: LayerCore, arity: Arity{Min: 0, Max: 0}},
	KindVariable:     {name: "Variable", layer: LayerCore, arity: Arity{Min: 0, Max: 0}},
	KindList:         {name: "List", layer: LayerCore, arity: Arity{Min: 0, Max: Variadic}},
	KindTuple:        {name: "Tuple", layer: LayerCore, arity: Arity{Min: 0, Max: Variadic}},
	KindMap:          {name: "Map", layer: LayerCore, arity: Arity{Min: 0, Max: Variadic}},
	KindPair:         {name: "Pair", layer: LayerCore, arity: Arity{Min: 2, Max: 2}},
	KindBinaryOp:     {name: "BinaryOp", layer: LayerCore, arity: Arity{Min: 2, Max: 2}},
	KindUnaryOp:      {name: "UnaryOp", layer: LayerCore, arity: Arity{Min: 1, Max: 1}},
	KindFunctionCall: {name: "FunctionCall", layer: LayerCore, arity: Arity{Min: 0, Max: Variadic}},
	KindConditional:  {name: "Conditional", layer: LayerCore, arity: Arity{Min: 3, Max: 3, Optional: []int{2}}},
	KindEarlyReturn:  {name: "EarlyReturn", layer: LayerCore, arity: Arity{Min: 1, Max: 1, Optional: []int{0}}},
	KindBlock:        {name: "Block", layer: LayerCore, arity: Arity{Min: 0, Max: Variadic}, binding: Binding{Form: BindsSequential}},
	KindAssignment:   {name: "Assignment", layer: LayerCore, arity: Arity{Min: 2, Max: 2}, binding: Binding{Form: BindsOutward}},
	KindInlineMatch:  {name: "InlineMatch", layer: LayerCore, arity: Arity{Min: 2, Max: 2}, binding: Binding{Form: BindsOutward}},
	KindAbsent:       {name: "Absent", layer: LayerCore, arity: Arity{Min: 0, Max: 0}},

	KindLoop:                {name: "Loop", layer: LayerExtended, arity: Arity{Min: 2, Max: 3}, binding: Binding{Form: BindsPattern, Scoped: []int{2}}},
	KindLambda:              {name: "Lambda", layer: LayerExtended, arity: Arity{Min: 1, Max: 1}, binding: Binding{Form: BindsParams, Scoped: []int{0}}},
	KindCollectionOp:        {name: "CollectionOp", layer: LayerExtended, arity: Arity{Min: 2, Max: 3}},
	KindPatternMatch:        {name: "PatternMatch", layer: LayerExtended, arity: Arity{Min: 1, Max: Variadic}},
	KindMatchArm:            {name: "MatchArm", layer: LayerExtended, arity: Arity{Min: 3, Max: 3, Optional: []int{1}}, binding: Binding{Form: BindsPattern, Scoped: []int{1, 2}}},
	KindExceptionHandling:   {name: "ExceptionHandling", layer: LayerExtended, arity: Arity{Min: 2, Max: Variadic, Optional: []int{1}}},
	KindCatchClause:         {name: "CatchClause", layer: LayerExtended, arity: Arity{Min: 1, Max: 1}, binding: Binding{Form: BindsCatch, Scoped: []int{0}}},
	KindAsyncOperation:      {name: "AsyncOperation", layer: LayerExtended, arity: Arity{Min: 1, Max: 1}},
	KindContainer:           {name: "Container", layer: LayerExtended, arity: Arity{Min: 1, Max: 1}},
	KindFunctionDef:         {name: "FunctionDef", layer: LayerExtended, arity: Arity{Min: 1, Max: 1}, binding: Binding{Form: BindsParams, Scoped: []int{0}}},
	KindAttributeAccess:     {name: "AttributeAccess", layer: LayerExtended, arity: Arity{Min: 1, Max: 1}},
	KindAugmentedAssignment: {name: "AugmentedAssignment", layer: LayerExtended, arity: Arity{Min: 2, Max: 2}},
	KindProperty:            {name: "Property", layer: LayerExtended, arity: Arity{Min: 2, Max: 2, Optional: []int{0, 1}}},

	KindLanguageSpecific: {name: "LanguageSpecific", layer: LayerNative, arity: Arity{Min: 0, Max: 0}},
}

// kindByName is the reverse index of kindTable.
//
//nolint:gochecknoglobals // Derived once from kindTable.
var kindByName = buildKindIndex()

func buildKindIndex() map[string]Kind {
	index := make(map[string]Kind, kindCount)

	for kind := KindLiteral; kind < kindCount; kind++ {
		index[kindTable[kind].name] = kind
	}

	return index
}

// Kinds returns every valid kind in table order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount-1)

	for kind := KindLiteral; kind < kindCount; kind++ {
		kinds = append(kinds, kind)
	}

	return kinds
}

// Valid reports whether kind is a member of the closed kind set.
func (kind Kind) Valid() bool {
	return kind > KindInvalid && kind < kindCount
}

// String returns the kind name.
func (kind Kind) String() string {
	if kind >= kindCount {
		return fmt.Sprintf("Kind(%d)", uint8(kind))
	}

	return kindTable[kind].name
}

// ErrUnknownKind is returned by ParseKind for unrecognized names.
var ErrUnknownKind = errors.New("unknown kind")

// ParseKind parses a kind name as produced by Kind.String.
func ParseKind(name string) (Kind, error) {
	kind, ok := kindByName[name]
	if !ok {
		return KindInvalid, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}

	return kind, nil
}

// MarshalText encodes the kind by name.
func (kind Kind) MarshalText() ([]byte, error) {
	return []byte(kind.String()), nil
}

// UnmarshalText parses a kind name.
func (kind *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}

	*kind = parsed

	return nil
}

// LayerOf returns the layer kind belongs to, or 0 for invalid kinds.
func LayerOf(kind Kind) Layer {
	if !kind.Valid() {
		return 0
	}

	return kindTable[kind].layer
}

// ArityOf returns the table arity of kind.
func ArityOf(kind Kind) Arity {
	if !kind.Valid() {
		return Arity{}
	}

	return kindTable[kind].arity
}

// BindingOf returns the table binding form of kind.
func BindingOf(kind Kind) Binding {
	if !kind.Valid() {
		return Binding{}
	}

	return kindTable[kind].binding
}

// ExpectedArity refines ArityOf using the attributes of a concrete node:
// a while loop has two children and a for-each loop three, only a reduce
// carries an initial value, and a receiver call needs its receiver.
func ExpectedArity(attrs Attributes) Arity {
	switch typed := attrs.(type) {
	case LoopAttrs:
		if typed.LoopType == LoopWhile {
			return Arity{Min: 2, Max: 2}
		}

		return Arity{Min: 3, Max: 3}
	case CollectionOpAttrs:
		if typed.OpType == CollectionReduce {
			return Arity{Min: 3, Max: 3}
		}

		return Arity{Min: 2, Max: 2}
	case FunctionCallAttrs:
		if typed.Receiver {
			return Arity{Min: 1, Max: Variadic}
		}

		return ArityOf(KindFunctionCall)
	case nil:
		return Arity{}
	default:
		return ArityOf(attrs.Kind())
	}
}
