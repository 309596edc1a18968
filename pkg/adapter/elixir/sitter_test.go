package elixir_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/metaast/pkg/adapter"
	"github.com/Sumatoshi-tech/metaast/pkg/adapter/elixir"
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

func parseSource(t *testing.T, source string) elixir.Term {
	t.Helper()

	term, err := elixir.NewSitterFrontend().Parse(context.Background(), source)
	require.NoError(t, err)

	return term
}

func TestSitterFrontend_Quotes(t *testing.T) {
	t.Parallel()

	x := elixir.Var("x")

	tests := []struct {
		want   elixir.Term
		name   string
		source string
	}{
		{name: "binary", source: "x + 5\n", want: elixir.Local("+", x, elixir.Int(5))},
		{name: "integer forms", source: "[1_000, 0x1F]\n", want: elixir.List{elixir.Int(1000), elixir.Int(31)}},
		{name: "atoms", source: "[:ok, true, nil]\n", want: elixir.List{elixir.Atom("ok"), elixir.Atom("true"), elixir.Atom("nil")}},
		{name: "string", source: "\"a\\tb\"\n", want: elixir.String("a\tb")},
		{name: "pair", source: "{:ok, x}\n", want: elixir.Pair{First: elixir.Atom("ok"), Second: x}},
		{name: "keyword list", source: "[a: 1]\n", want: elixir.Keywords(kw("a", elixir.Int(1)))},
		{
			name:   "remote call",
			source: "Enum.map(items, fn x -> x * 2 end)\n",
			want:   elixir.Remote(elixir.Aliases("Enum"), "map", elixir.Var("items"), doubleEach()),
		},
		{
			name:   "statements",
			source: "x = 1\nx\n",
			want:   elixir.Local("__block__", elixir.Local("=", x, elixir.Int(1)), x),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseSource(t, tt.source)
			assert.True(t, tt.want.Equal(got), "got %#v", got)
		})
	}
}

func TestSitterFrontend_DoBlock(t *testing.T) {
	t.Parallel()

	got := parseSource(t, "if ok do\n  1\nelse\n  2\nend\n")

	want := elixir.Local("if", elixir.Var("ok"), elixir.Keywords(kw("do", elixir.Int(1)), kw("else", elixir.Int(2))))
	assert.True(t, want.Equal(got), "got %#v", got)

	call, ok := got.(*elixir.Call)
	require.True(t, ok)
	assert.Equal(t, 1, call.Meta.Line)
	assert.Equal(t, 1, call.Meta.Column)
}

func TestSitterFrontend_SyntaxError(t *testing.T) {
	t.Parallel()

	_, err := elixir.NewSitterFrontend().Parse(context.Background(), "foo(1,\n")
	require.ErrorIs(t, err, meta.ErrSyntax)
	assert.Contains(t, err.Error(), "line")
}

func TestSitterFrontend_Binding(t *testing.T) {
	t.Parallel()

	binding := elixir.Bind(elixir.NewSitterFrontend())
	assert.Equal(t, meta.LanguageElixir, binding.Language())

	doc, err := binding.Parse(context.Background(), "x + 5\n")
	require.NoError(t, err)

	expected := meta.NewBinaryOp(meta.OpArithmetic, "+", meta.Var("x"), meta.Lit(meta.Int(5)))
	assert.True(t, meta.Equal(expected, doc.AST), meta.Format(doc.AST))

	source, err := binding.Unparse(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "x + 5\n", source)

	report, err := adapter.CheckRoundTrip[elixir.Term](elixir.Adapter{}, parseSource(t, "Enum.map(items, fn x -> x * 2 end)\n"))
	require.NoError(t, err)
	assert.True(t, report.Equal, report.Diff)
}

func TestSitterFrontend_AttributesCapturesAndText(t *testing.T) {
	t.Parallel()

	x := elixir.Var("x")
	interpolation := func(inner elixir.Term) elixir.Term {
		return elixir.Local("::", elixir.Remote(elixir.Atom("Elixir.Kernel"), "to_string", inner), elixir.Var("binary"))
	}

	tests := []struct {
		want   elixir.Term
		name   string
		source string
	}{
		{
			name:   "module attribute",
			source: "@moduledoc \"Geometry helpers\"\n",
			want:   elixir.Local("@", elixir.Local("moduledoc", elixir.String("Geometry helpers"))),
		},
		{name: "attribute read", source: "@limit\n", want: elixir.Local("@", elixir.Var("limit"))},
		{
			name:   "named capture",
			source: "&String.upcase/1\n",
			want:   elixir.Local("&", elixir.Local("/", elixir.Remote(elixir.Aliases("String"), "upcase"), elixir.Int(1))),
		},
		{
			name:   "argument capture",
			source: "&(&1 + 1)\n",
			want:   elixir.Local("&", elixir.Local("+", elixir.Local("&", elixir.Int(1)), elixir.Int(1))),
		},
		{
			name:   "interpolation",
			source: "\"a#{x}b\"\n",
			want:   elixir.Local("<<>>", elixir.String("a"), interpolation(x), elixir.String("b")),
		},
		{name: "interpolation only", source: "\"#{x}\"\n", want: elixir.Local("<<>>", interpolation(x))},
		{
			name:   "sigil with modifiers",
			source: "~r/ab+c/i\n",
			want:   elixir.Local("sigil_r", elixir.Local("<<>>", elixir.String("ab+c")), elixir.List{elixir.Int('i')}),
		},
		{
			name:   "sigil keeps escapes",
			source: "~s(a\\tb)\n",
			want:   elixir.Local("sigil_s", elixir.Local("<<>>", elixir.String(`a\tb`)), elixir.List{}),
		},
		{name: "charlist", source: "'ok'\n", want: elixir.List{elixir.Int('o'), elixir.Int('k')}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseSource(t, tt.source)
			assert.True(t, tt.want.Equal(got), "got %#v", got)

			printed, err := elixir.Print(got)
			require.NoError(t, err)
			assert.True(t, got.Equal(parseSource(t, printed)), "printed %q", printed)
		})
	}
}

func TestSitterFrontend_ModuleWithAttributes(t *testing.T) {
	t.Parallel()

	source := "defmodule Greeter do\n  @moduledoc \"Says hello\"\n  def hello(name) do\n    \"Hello, #{name}\"\n  end\nend\n"

	node, err := elixir.Adapter{}.ToMeta(parseSource(t, source))
	require.NoError(t, err)
	require.Equal(t, meta.KindContainer, node.Kind())

	body := node.Child(0)
	require.Len(t, body.Children, 2)
	assert.Equal(t, meta.KindLanguageSpecific, body.Children[0].Kind())
	assert.Equal(t, meta.KindFunctionDef, body.Children[1].Kind())
}
