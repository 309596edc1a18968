package meta //nolint:testpackage // Tests need access to internal helpers.

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func richTree() *Node {
	return NewBlock(
		NewAssignment(Var("total"), Lit(Int(0))),
		NewForEach(Var("item"), Var("items"),
			NewBlock(NewAugmentedAssignment(OpArithmetic, "+", Var("total"), Var("item")))),
		NewCollectionOp(CollectionReduce,
			NewLambda([]string{"acc", "x"}, NewBinaryOp(OpArithmetic, "+", Var("acc"), Var("x"))),
			Var("items"), Lit(Int(0))),
		NewMap(NewPair(Lit(Symbol("ok")), Lit(Bool(true))), NewPair(Lit(Str("none")), Lit(Null()))),
		NewFunctionDef("_helper", VisibilityPrivate, []string{"a"}, NewReturn(nil)),
		NewMethodCall(Var("xs"), "append", Lit(Float(1.5))),
	)
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	tree := richTree().WithPos(&Position{Line: 1, Column: 0})

	data, err := json.Marshal(tree)
	require.NoError(t, err)

	decoded, err := DecodeJSON(data)
	require.NoError(t, err)

	assert.True(t, Equal(tree, decoded), Format(decoded))
	assert.Equal(t, 1, decoded.Pos().Line)
}

func TestJSONShape(t *testing.T) {
	t.Parallel()

	shape, err := ToMap(sumTree())
	require.NoError(t, err)

	assert.Equal(t, "BinaryOp", shape["kind"])
	assert.Equal(t, map[string]any{"category": "arithmetic", "operator": "+"}, shape["attrs"])

	children, ok := shape["children"].([]any)
	require.True(t, ok)
	assert.Len(t, children, 2)
}

func TestEmptyBlockEncodesEmptyChildren(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(&Node{Attrs: BlockAttrs{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"Block","attrs":{},"children":[]}`, string(data))
}

func TestLanguageSpecificDecodesRawNative(t *testing.T) {
	t.Parallel()

	node := NewLanguageSpecific(LanguagePython, "Yield", map[string]any{"type": "Yield"})

	data, err := json.Marshal(node)
	require.NoError(t, err)

	decoded, err := DecodeJSON(data)
	require.NoError(t, err)

	attrs, ok := decoded.Attrs.(LanguageSpecificAttrs)
	require.True(t, ok)
	assert.Equal(t, LanguagePython, attrs.Language)
	assert.Equal(t, "Yield", attrs.Hint)

	raw, ok := attrs.Native.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"type":"Yield"}`, string(raw))
}

func TestDecodeRejectsBadDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"unknown kind", `{"kind":"Goto","children":[]}`},
		{"null child", `{"kind":"List","attrs":{},"children":[null]}`},
		{"bad attrs", `{"kind":"Variable","attrs":{"name":3},"children":[]}`},
		{"not json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeJSON([]byte(tt.data))
			require.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	t.Parallel()

	tree := richTree()

	data, err := EncodeYAML(tree)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: Block")

	decoded, err := DecodeYAML(data)
	require.NoError(t, err)
	assert.True(t, Equal(tree, decoded), Format(decoded))
}
