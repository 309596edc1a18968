package python //nolint:testpackage // Tests build native trees with unexported constructors.

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrint_Reproduces(t *testing.T) {
	t.Parallel()

	sources := []string{
		"x = 1\n",
		"y = x + 5 * 2\n",
		"y = (x + 5) * 2\n",
		"z = 2 ** 3 ** 2\n",
		"name = \"it's\"\n",
		"a = b = c\n",
		"x += 1\n",
		"print(x, sep='')\n",
		"result = data.strip().lower()\n",
		"first, *rest = nums\n",
		"view = items[1:3]\n",
		"if a:\n    pass\nelif b:\n    x = 1\nelse:\n    x = 2\n",
		"while x < 10:\n    x += 1\nelse:\n    done()\n",
		"for k, v in pairs:\n    print(k)\n",
		"def f(a, b=1, *args, c, **kw):\n    return a\n",
		"@cached\ndef g(x: int) -> int:\n    return x\n",
		"class Shape(Base, metaclass=Meta):\n    pass\n",
		"try:\n    risky()\nexcept ValueError as err:\n    handle(err)\nfinally:\n    cleanup()\n",
		"squares = [n * n for n in nums if n > 0]\n",
		"lookup = {k: v for k, v in pairs}\n",
		"label = 'big' if total > 100 else 'small'\n",
		"raise ValueError('bad') from err\n",
		"global counter\n",
		"async def fetch(client):\n    return await client.get()\n",
		"with open(path) as handle:\n    content = handle.read()\n",
	}

	for _, source := range sources {
		t.Run(source, func(t *testing.T) {
			t.Parallel()

			printed, err := Print(parseSource(t, source))
			require.NoError(t, err)
			assert.Equal(t, source, printed)
		})
	}
}

func TestPrint_VerbatimReindented(t *testing.T) {
	t.Parallel()

	source := "def outer():\n    with lock:\n        step()\n    return 1\n"

	printed, err := Print(parseSource(t, source))
	require.NoError(t, err)
	assert.Equal(t, source, printed)
}

func TestPrint_Constants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		node     *Node
		expected string
	}{
		{name: "none", node: newConstant(valueNone, nil), expected: "None"},
		{name: "true", node: newConstant(valueBool, true), expected: "True"},
		{name: "int", node: newConstant(valueInt, int64(-42)), expected: "-42"},
		{name: "float", node: newConstant(valueFloat, 2.0), expected: "2.0"},
		{name: "small float", node: newConstant(valueFloat, 1e-7), expected: "1e-07"},
		{name: "inf", node: newConstant(valueFloat, math.Inf(1)), expected: "1e309"},
		{name: "bigint", node: newConstant(valueBigInt, "1180591620717411303424"), expected: "1180591620717411303424"},
		{name: "quote", node: newConstant(valueStr, "a\nb"), expected: "'a\\nb'"},
		{name: "both quotes", node: newConstant(valueStr, `it's "x"`), expected: `'it\'s "x"'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			printed, err := Print(newExpr(tt.node))
			require.NoError(t, err)
			assert.Equal(t, tt.expected+"\n", printed)
		})
	}
}

func TestPrint_Unprintable(t *testing.T) {
	t.Parallel()

	_, err := Print(nil)
	require.ErrorIs(t, err, ErrUnprintable)

	_, err = Print(newModule(NewNode("TypeAlias")))
	require.ErrorIs(t, err, ErrUnprintable)
}
