package elixir_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/metaast/pkg/adapter/elixir"
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
	"github.com/Sumatoshi-tech/metaast/pkg/native"
)

func toolFrontend(t *testing.T) *elixir.ToolFrontend {
	t.Helper()

	frontend := elixir.NewToolFrontend(native.NewRunner(meta.LanguageElixir, elixir.DefaultCommand, native.WithTimeout(time.Minute)))
	if !frontend.Available() {
		t.Skip("elixir not installed")
	}

	return frontend
}

func TestToolFrontend_AgreesWithSitter(t *testing.T) {
	t.Parallel()

	frontend := toolFrontend(t)

	sources := []string{
		"x + 5\n",
		"Enum.reduce(nums, 0, fn n, acc -> n + acc end)\n",
		"if x > 0 do\n  :pos\nelse\n  :neg\nend\n",
		"defmodule Geometry do\n  def area(w, h) do\n    w * h\n  end\nend\n",
		"@moduledoc \"Geometry helpers\"\n",
		"Enum.map(names, &String.upcase/1)\n",
		"Enum.map(nums, &(&1 + 1))\n",
		"\"a#{x}b\"\n",
		"~r/ab+c/i\n",
		"'ok'\n",
	}

	for _, source := range sources {
		fromTool, err := frontend.Parse(context.Background(), source)
		require.NoError(t, err, source)

		toolMeta, err := elixir.Adapter{}.ToMeta(fromTool)
		require.NoError(t, err)

		sitterMeta, err := elixir.Adapter{}.ToMeta(parseSource(t, source))
		require.NoError(t, err)

		assert.True(t, meta.Equal(sitterMeta, toolMeta), source)
	}
}

func TestToolFrontend_SyntaxError(t *testing.T) {
	t.Parallel()

	_, err := toolFrontend(t).Parse(context.Background(), "foo(1,\n")
	require.ErrorIs(t, err, meta.ErrSyntax)
	assert.Contains(t, err.Error(), "line 1")
}

func TestToolFrontend_Unparse(t *testing.T) {
	t.Parallel()

	frontend := toolFrontend(t)

	term, err := frontend.Parse(context.Background(), "Enum.map(items, fn x -> x * 2 end)\n")
	require.NoError(t, err)

	source, err := frontend.Unparse(context.Background(), term)
	require.NoError(t, err)
	assert.Equal(t, "Enum.map(items, fn x -> x * 2 end)\n", source)
}

func TestInspect(t *testing.T) {
	t.Parallel()

	literal, err := elixir.Inspect(elixir.Local("+", elixir.Var("x"), elixir.Int(5)))
	require.NoError(t, err)
	assert.Equal(t, `{:"+", [], [{:"x", [], nil}, 5]}`, literal)

	_, err = elixir.Inspect(elixir.BigInt("1x"))
	require.ErrorIs(t, err, elixir.ErrUnprintable)
}
