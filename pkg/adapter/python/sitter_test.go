package python //nolint:testpackage // Tests inspect unexported scalar names.

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

func TestSitterFrontend_SyntaxError(t *testing.T) {
	t.Parallel()

	_, err := NewSitterFrontend().Parse(context.Background(), "def broken(:\n    pass\n")
	require.ErrorIs(t, err, meta.ErrSyntax)

	var failure *meta.Error
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, meta.LanguagePython, failure.Language)
	assert.Contains(t, failure.Reason, "line 1")
}

func TestSitterFrontend_Positions(t *testing.T) {
	t.Parallel()

	module := parseSource(t, "x = 1\nif x:\n    y = x + 2\n")

	body := module.List("body")
	require.Len(t, body, 2)

	assign := body[1].List("body")[0]
	require.NotNil(t, assign.Pos)
	assert.Equal(t, Pos{Line: 3, Col: 4, EndLine: 3, EndCol: 13}, *assign.Pos)

	node, err := Adapter{}.ToMeta(module)
	require.NoError(t, err)

	conditional := node.Child(1)
	require.NotNil(t, conditional.Pos())
	assert.Equal(t, 2, conditional.Pos().Line)
}

func TestSitterFrontend_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		check  func(t *testing.T, stmt *Node)
	}{
		{
			name:   "chained assignment",
			source: "a = b = 0\n",
			check: func(t *testing.T, stmt *Node) {
				t.Helper()
				assert.Equal(t, "Assign", stmt.Type)
				assert.Len(t, stmt.List("targets"), 2)
				assert.Equal(t, ctxStore, stmt.List("targets")[1].Child("ctx").Type)
			},
		},
		{
			name:   "comparison chain",
			source: "a is not b not in c\n",
			check: func(t *testing.T, stmt *Node) {
				t.Helper()

				compare := stmt.Child("value")
				require.Equal(t, "Compare", compare.Type)

				ops := []string{}
				for _, op := range compare.List("ops") {
					ops = append(ops, op.Type)
				}

				assert.Equal(t, []string{"IsNot", "NotIn"}, ops)
			},
		},
		{
			name:   "flattened boolean",
			source: "a or b or c\n",
			check: func(t *testing.T, stmt *Node) {
				t.Helper()
				assert.Len(t, stmt.Child("value").List("values"), 3)
			},
		},
		{
			name:   "integer forms",
			source: "(0x_ff, 1_000, 99999999999999999999, 2j)\n",
			check: func(t *testing.T, stmt *Node) {
				t.Helper()

				elts := stmt.Child("value").List("elts")
				require.Len(t, elts, 4)
				assert.Equal(t, int64(255), elts[0].Scalar(scalarValue))
				assert.Equal(t, int64(1000), elts[1].Scalar(scalarValue))
				assert.Equal(t, valueBigInt, elts[2].Str(scalarValueType))
				assert.Equal(t, valueComplex, elts[3].Str(scalarValueType))
			},
		},
		{
			name:   "implicit concatenation",
			source: "'a' \"b\"\n",
			check: func(t *testing.T, stmt *Node) {
				t.Helper()
				assert.Equal(t, "ab", stmt.Child("value").Scalar(scalarValue))
			},
		},
		{
			name:   "f-string kept verbatim",
			source: "f'{x}'\n",
			check: func(t *testing.T, stmt *Node) {
				t.Helper()
				assert.Equal(t, typeVerbatim, stmt.Child("value").Type)
				assert.Equal(t, "f'{x}'", stmt.Child("value").Str(scalarText))
			},
		},
		{
			name:   "decorated function",
			source: "@app.route('/')\ndef index():\n    pass\n",
			check: func(t *testing.T, stmt *Node) {
				t.Helper()
				assert.Equal(t, "FunctionDef", stmt.Type)
				assert.Len(t, stmt.List("decorator_list"), 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body := parseSource(t, tt.source).List("body")
			require.Len(t, body, 1)
			tt.check(t, body[0])
		})
	}
}

func TestSitterFrontend_ConcurrentParses(t *testing.T) {
	t.Parallel()

	frontend := NewSitterFrontend()

	var group sync.WaitGroup

	for range 8 {
		group.Add(1)

		go func() {
			defer group.Done()

			native, err := frontend.Parse(context.Background(), "total = a + b\n")
			if assert.NoError(t, err) {
				assert.Len(t, native.List("body"), 1)
			}
		}()
	}

	group.Wait()
}

func TestSitterFrontend_BitwisePrecedence(t *testing.T) {
	t.Parallel()

	name := func(id string) *Node { return newName(id, ctxLoad) }
	and := func(left, right *Node) *Node { return newBinOp(left, "BitAnd", right) }
	xor := func(left, right *Node) *Node { return newBinOp(left, "BitXor", right) }
	or := func(left, right *Node) *Node { return newBinOp(left, "BitOr", right) }

	tests := []struct {
		want    *Node
		name    string
		source  string
		printed string
	}{
		{name: "and before xor", source: "b & c ^ d\n", want: xor(and(name("b"), name("c")), name("d"))},
		{name: "xor before and", source: "b ^ c & d\n", want: xor(name("b"), and(name("c"), name("d")))},
		{name: "three levels", source: "a | b ^ c & d\n", want: or(name("a"), xor(name("b"), and(name("c"), name("d"))))},
		{name: "both sides of or", source: "a & b | c ^ d\n", want: or(and(name("a"), name("b")), xor(name("c"), name("d")))},
		{name: "left associative", source: "a ^ b ^ c\n", want: xor(xor(name("a"), name("b")), name("c"))},
		{
			name:    "parentheses kept",
			source:  "(b ^ c) & d\n",
			printed: "(b ^ c) & d\n",
			want:    and(xor(name("b"), name("c")), name("d")),
		},
		{
			name:   "shift operand",
			source: "x = a << 1 | b & c ^ d\n",
			want: or(
				newBinOp(name("a"), "LShift", newConstant(valueInt, int64(1))),
				xor(and(name("b"), name("c")), name("d")),
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			module := parseSource(t, tt.source)

			body := module.List("body")
			require.Len(t, body, 1)

			got := body[0].Child("value")
			assert.True(t, tt.want.Equal(got), "%s", tt.source)

			printed, err := Print(module)
			require.NoError(t, err)

			want := tt.printed
			if want == "" {
				want = tt.source
			}

			assert.Equal(t, want, printed)
		})
	}
}
