package elixir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/metaast/pkg/adapter/elixir"
)

const addDump = `{"form":{"atom":"+"},"meta":{"line":1,"column":3},"args":[
	{"form":{"atom":"x"},"meta":{"line":1,"column":1},"context":null},
	5
]}`

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	term, err := elixir.DecodeJSON([]byte(addDump))
	require.NoError(t, err)

	assert.True(t, elixir.Local("+", elixir.Var("x"), elixir.Int(5)).Equal(term))

	call, ok := term.(*elixir.Call)
	require.True(t, ok)
	assert.Equal(t, elixir.Meta{Line: 1, Column: 3}, call.Meta)

	variable, ok := call.Args[0].(*elixir.Call)
	require.True(t, ok)
	assert.True(t, variable.Variable)
}

func TestDecodeJSON_Scalars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want elixir.Term
		name string
		dump string
	}{
		{name: "true", dump: `true`, want: elixir.Atom("true")},
		{name: "nil", dump: `null`, want: elixir.Atom("nil")},
		{name: "atom", dump: `{"atom":"ok"}`, want: elixir.Atom("ok")},
		{name: "float", dump: `{"float":2.5}`, want: elixir.Float(2.5)},
		{name: "whole float", dump: `{"float":3}`, want: elixir.Float(3)},
		{name: "bigint", dump: `123456789012345678901234567890`, want: elixir.BigInt("123456789012345678901234567890")},
		{name: "string", dump: `"hi"`, want: elixir.String("hi")},
		{
			name: "pair",
			dump: `{"pair":[{"atom":"ok"},1]}`,
			want: elixir.Pair{First: elixir.Atom("ok"), Second: elixir.Int(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := elixir.DecodeJSON([]byte(tt.dump))
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %#v", got)
		})
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	t.Parallel()

	dumps := []string{
		`{"form":{"atom":"f"},"meta":{}}`,
		`{"pair":[1]}`,
		`{"unknown":1}`,
		`1.5`,
		`{"atom":1}`,
		`not json`,
	}

	for _, dump := range dumps {
		_, err := elixir.DecodeJSON([]byte(dump))
		require.ErrorIs(t, err, elixir.ErrInvalidDump, dump)
	}
}

func TestEncodeJSON_RoundTrip(t *testing.T) {
	t.Parallel()

	source := elixir.Local("if", elixir.Local("==", elixir.Var("x"), elixir.Atom("nil")), elixir.Keywords(
		elixir.Pair{First: elixir.Atom("do"), Second: elixir.Float(1.5)},
		elixir.Pair{First: elixir.Atom("else"), Second: elixir.List{elixir.String("a"), elixir.BigInt("99999999999999999999")}},
	))

	data, err := elixir.EncodeJSON(source)
	require.NoError(t, err)

	decoded, err := elixir.DecodeJSON(data)
	require.NoError(t, err)
	assert.True(t, source.Equal(decoded))

	_, err = elixir.EncodeJSON(nil)
	require.ErrorIs(t, err, elixir.ErrInvalidDump)
}
