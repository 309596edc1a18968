package elixir_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/metaast/pkg/adapter/elixir"
)

func kw(key string, value elixir.Term) elixir.Pair {
	return elixir.Pair{First: elixir.Atom(key), Second: value}
}

func TestPrint(t *testing.T) {
	t.Parallel()

	x, a, b, c := elixir.Var("x"), elixir.Var("a"), elixir.Var("b"), elixir.Var("c")

	userName := elixir.Remote(elixir.Var("user"), "name")
	userName.Meta.NoParens = true

	tests := []struct {
		term elixir.Term
		name string
		want string
	}{
		{name: "binary", term: elixir.Local("+", x, elixir.Int(5)), want: "x + 5\n"},
		{
			name: "looser operand",
			term: elixir.Local("*", elixir.Local("+", a, b), c),
			want: "(a + b) * c\n",
		},
		{
			name: "right operand of left associative",
			term: elixir.Local("-", a, elixir.Local("-", b, c)),
			want: "a - (b - c)\n",
		},
		{name: "not", term: elixir.Local("not", a), want: "not a\n"},
		{name: "double negation", term: elixir.Local("-", elixir.Local("-", x)), want: "-(-x)\n"},
		{name: "range", term: elixir.Local("..", elixir.Int(1), elixir.Int(10)), want: "1..10\n"},
		{name: "atom", term: elixir.Atom("ok"), want: ":ok\n"},
		{name: "quoted atom", term: elixir.Atom("hello world"), want: ":\"hello world\"\n"},
		{name: "module atom", term: elixir.Atom("Elixir.Foo"), want: "Foo\n"},
		{name: "whole float", term: elixir.Float(3), want: "3.0\n"},
		{name: "large float", term: elixir.Float(1e21), want: "1.0e21\n"},
		{name: "string escapes", term: elixir.String("a\"b#{"), want: "\"a\\\"b\\#{\"\n"},
		{name: "keyword list", term: elixir.Keywords(kw("a", elixir.Int(1))), want: "[a: 1]\n"},
		{
			name: "map",
			term: elixir.Local("%{}", elixir.Pair{First: elixir.String("k"), Second: elixir.Int(1)}),
			want: "%{\"k\" => 1}\n",
		},
		{name: "tuple", term: elixir.Local("{}", a, b, c), want: "{a, b, c}\n"},
		{name: "pair", term: elixir.Pair{First: elixir.Atom("ok"), Second: x}, want: "{:ok, x}\n"},
		{name: "pipe", term: elixir.Local("|>", elixir.Var("xs"), elixir.Local("length")), want: "xs |> length()\n"},
		{name: "field access", term: userName, want: "user.name\n"},
		{
			name: "remote call with fn",
			term: elixir.Remote(elixir.Aliases("Enum"), "map", elixir.Var("xs"),
				elixir.Local("fn", elixir.Local("->", elixir.List{x}, elixir.Local("*", x, elixir.Int(2))))),
			want: "Enum.map(xs, fn x -> x * 2 end)\n",
		},
		{
			name: "if else",
			term: elixir.Local("if", elixir.Var("ok"), elixir.Keywords(kw("do", elixir.Int(1)), kw("else", elixir.Int(2)))),
			want: "if ok do\n  1\nelse\n  2\nend\n",
		},
		{
			name: "nested do blocks",
			term: elixir.Local("defmodule", elixir.Aliases("Math"), elixir.Keywords(kw("do",
				elixir.Local("def", elixir.Local("add", a, b), elixir.Keywords(kw("do", elixir.Local("+", a, b))))))),
			want: "defmodule Math do\n  def add(a, b) do\n    a + b\n  end\nend\n",
		},
		{
			name: "case clauses",
			term: elixir.Local("case", x, elixir.Keywords(kw("do", elixir.List{
				elixir.Local("->", elixir.List{elixir.Int(0)}, elixir.Atom("zero")),
				elixir.Local("->", elixir.List{elixir.Var("_")}, elixir.Atom("other")),
			}))),
			want: "case x do\n  0 ->\n    :zero\n  _ ->\n    :other\nend\n",
		},
		{
			name: "statements",
			term: elixir.Local("__block__", elixir.Local("=", a, elixir.Int(1)), a),
			want: "a = 1\na\n",
		},
		{name: "empty", term: elixir.Local("__block__"), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := elixir.Print(tt.term)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrint_Unprintable(t *testing.T) {
	t.Parallel()

	terms := map[string]elixir.Term{
		"stray clause": elixir.Local("->", elixir.List{}, elixir.Int(1)),
		"nan":          elixir.Float(math.NaN()),
		"bad bigint":   elixir.BigInt("12a"),
		"nil root":     nil,
	}

	for name, term := range terms {
		_, err := elixir.Print(term)
		require.ErrorIs(t, err, elixir.ErrUnprintable, name)
	}
}
