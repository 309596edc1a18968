package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

func TestSchemaListsEveryKind(t *testing.T) {
	t.Parallel()

	var document struct {
		Definitions struct {
			Node struct {
				Properties struct {
					Kind struct {
						Enum []string `json:"enum"`
					} `json:"kind"`
				} `json:"properties"`
			} `json:"node"`
		} `json:"definitions"`
	}

	require.NoError(t, json.Unmarshal(Bytes(), &document))

	names := make([]string, 0, len(meta.Kinds()))
	for _, kind := range meta.Kinds() {
		names = append(names, kind.String())
	}

	assert.ElementsMatch(t, names, document.Definitions.Node.Properties.Kind.Enum)
}

func TestEncodedTreesValidate(t *testing.T) {
	t.Parallel()

	tree := meta.NewBlock(
		meta.NewAssignment(meta.Var("x"), meta.Lit(meta.Int(1))),
		meta.NewConditional(
			meta.NewBinaryOp(meta.OpComparison, ">", meta.Var("x"), meta.Lit(meta.Float(0.5))),
			meta.NewReturn(meta.Lit(meta.Str("big"))),
			nil,
		),
		meta.NewLanguageSpecific(meta.LanguagePython, "Yield", map[string]any{"type": "Yield"}),
	).WithPos(&meta.Position{Line: 1})

	data, err := json.Marshal(tree)
	require.NoError(t, err)

	result, err := ValidateJSON(data)
	require.NoError(t, err)
	assert.True(t, result.Valid(), result.Problems)
}

func TestSchemaRejectsBadDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		document string
	}{
		{"unknown kind", `{"kind":"Goto","children":[]}`},
		{"missing children", `{"kind":"Block","attrs":{}}`},
		{"binary op arity", `{"kind":"BinaryOp","attrs":{"category":"arithmetic","operator":"+"},"children":[]}`},
		{"bad category", `{"kind":"UnaryOp","attrs":{"category":"magic","operator":"-"},"children":[{"kind":"Variable","attrs":{"name":"x"},"children":[]}]}`},
		{"literal with children", `{"kind":"Literal","attrs":{"value":{"type":"null"}},"children":[{"kind":"Absent","children":[]}]}`},
		{"escape without language", `{"kind":"LanguageSpecific","attrs":{"hint":"x"},"children":[]}`},
		{"unexpected field", `{"kind":"Block","children":[],"parent":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := ValidateJSON([]byte(tt.document))
			require.NoError(t, err)
			assert.False(t, result.Valid())
		})
	}
}

func TestValidateJSONRejectsSyntax(t *testing.T) {
	t.Parallel()

	_, err := ValidateJSON([]byte("{"))
	require.Error(t, err)
}
