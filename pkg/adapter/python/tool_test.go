package python //nolint:testpackage // Tests compare against unexported constructors.

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
	"github.com/Sumatoshi-tech/metaast/pkg/native"
)

func toolFrontend(t *testing.T) *ToolFrontend {
	t.Helper()

	frontend := NewToolFrontend(native.NewRunner(meta.LanguagePython, DefaultCommand, native.WithTimeout(time.Minute)))
	if !frontend.Available() {
		t.Skip("python3 not installed")
	}

	return frontend
}

func TestToolFrontend_AgreesWithSitter(t *testing.T) {
	t.Parallel()

	frontend := toolFrontend(t)

	sources := []string{
		"x + 5\n",
		"total = reduce(lambda acc, n: acc + n, nums, 0)\n",
		"if x > 0:\n    y = 1\nelse:\n    y = -1\n",
		"def area(width, height):\n    return width * height\n",
		"squares = [n * n for n in nums]\n",
		"b & c ^ d\n",
		"b ^ c & d\n",
		"a | b ^ c & d\n",
		"(b ^ c) & d\n",
		"x = a << 1 | b & c ^ d\n",
	}

	for _, source := range sources {
		fromTool, err := frontend.Parse(context.Background(), source)
		require.NoError(t, err, source)

		toolMeta, err := Adapter{}.ToMeta(fromTool)
		require.NoError(t, err)

		assert.True(t, meta.Equal(toMeta(t, source), toolMeta), source)
	}
}

func TestToolFrontend_SyntaxError(t *testing.T) {
	t.Parallel()

	_, err := toolFrontend(t).Parse(context.Background(), "def (\n")
	require.ErrorIs(t, err, meta.ErrSyntax)
	assert.Contains(t, err.Error(), "line 1")
}

func TestToolFrontend_Unparse(t *testing.T) {
	t.Parallel()

	frontend := toolFrontend(t)

	native, err := frontend.Parse(context.Background(), "y = x+5*2\n")
	require.NoError(t, err)

	source, err := frontend.Unparse(context.Background(), native)
	require.NoError(t, err)
	assert.Equal(t, "y = x + 5 * 2\n", source)

	verbatim := parseSource(t, "with lock:\n    step()\n")

	source, err = frontend.Unparse(context.Background(), verbatim)
	require.NoError(t, err)
	assert.Equal(t, "with lock:\n    step()\n", source)
}
