package meta //nolint:testpackage // Tests need access to internal helpers.

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindNamesRoundTrip(t *testing.T) {
	t.Parallel()

	for _, kind := range Kinds() {
		parsed, err := ParseKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}

	_, err := ParseKind("Goto")
	require.ErrorIs(t, err, ErrUnknownKind)

	text, err := KindPatternMatch.MarshalText()
	require.NoError(t, err)

	var decoded Kind
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, KindPatternMatch, decoded)
	require.ErrorIs(t, decoded.UnmarshalText([]byte("Goto")), ErrUnknownKind)
}

func TestEveryKindHasOneLayer(t *testing.T) {
	t.Parallel()

	for _, kind := range Kinds() {
		layer := LayerOf(kind)
		assert.Contains(t, []Layer{LayerCore, LayerExtended, LayerNative}, layer, kind.String())
	}

	assert.Equal(t, Layer(0), LayerOf(KindInvalid))
}

func TestLayerAssignment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind  Kind
		layer Layer
	}{
		{KindLiteral, LayerCore},
		{KindInlineMatch, LayerCore},
		{KindAbsent, LayerCore},
		{KindLoop, LayerExtended},
		{KindCollectionOp, LayerExtended},
		{KindProperty, LayerExtended},
		{KindLanguageSpecific, LayerNative},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.layer, LayerOf(tt.kind))
		})
	}
}

func TestFixedArities(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind  Kind
		count int
	}{
		{KindPair, 2},
		{KindBinaryOp, 2},
		{KindUnaryOp, 1},
		{KindConditional, 3},
		{KindEarlyReturn, 1},
		{KindAssignment, 2},
		{KindInlineMatch, 2},
		{KindMatchArm, 3},
		{KindLambda, 1},
		{KindLiteral, 0},
		{KindLanguageSpecific, 0},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			t.Parallel()

			arity := ArityOf(tt.kind)
			assert.True(t, arity.Fixed())
			assert.Equal(t, tt.count, arity.Min)
		})
	}
}

func TestExpectedArityRefinesByAttributes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, ExpectedArity(LoopAttrs{LoopType: LoopWhile}).Min)
	assert.Equal(t, 3, ExpectedArity(LoopAttrs{LoopType: LoopForEach}).Min)
	assert.Equal(t, 2, ExpectedArity(CollectionOpAttrs{OpType: CollectionMap}).Max)
	assert.Equal(t, 3, ExpectedArity(CollectionOpAttrs{OpType: CollectionReduce}).Max)
	assert.Equal(t, 1, ExpectedArity(FunctionCallAttrs{Name: "append", Receiver: true}).Min)
	assert.Equal(t, 0, ExpectedArity(FunctionCallAttrs{Name: "f"}).Min)
	assert.False(t, ExpectedArity(BlockAttrs{}).Fixed())
}

func TestArityOptionalSlots(t *testing.T) {
	t.Parallel()

	conditional := ArityOf(KindConditional)
	assert.True(t, conditional.OptionalSlot(2))
	assert.False(t, conditional.OptionalSlot(0))
	assert.False(t, conditional.OptionalSlot(1))

	block := ArityOf(KindBlock)
	assert.True(t, block.Allows(0))
	assert.True(t, block.Allows(100))

	pair := ArityOf(KindPair)
	assert.False(t, pair.Allows(1))
	assert.False(t, pair.Allows(3))
}

func TestParseLayer(t *testing.T) {
	t.Parallel()

	for _, layer := range []Layer{LayerCore, LayerExtended, LayerNative} {
		parsed, err := ParseLayer(layer.String())
		require.NoError(t, err)
		assert.Equal(t, layer, parsed)
	}

	_, err := ParseLayer("ultra")
	require.ErrorIs(t, err, ErrUnknownLayer)
}

func TestZeroAttrsMatchesKind(t *testing.T) {
	t.Parallel()

	for _, kind := range Kinds() {
		attrs := zeroAttrs(kind)
		require.NotNil(t, attrs, kind.String())
		assert.Equal(t, kind, attrs.Kind())
	}
}
