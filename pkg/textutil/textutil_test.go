package textutil_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/metaast/pkg/textutil"
)

func TestIsBinary(t *testing.T) {
	t.Parallel()

	beyondWindow := bytes.Repeat([]byte{'a'}, textutil.BinarySniffLength+100)
	beyondWindow[textutil.BinarySniffLength+50] = 0

	atEdge := bytes.Repeat([]byte{'a'}, textutil.BinarySniffLength)
	atEdge[textutil.BinarySniffLength-1] = 0

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{name: "empty", data: nil, want: false},
		{name: "source", data: []byte("def f(x):\n    return x\n"), want: false},
		{name: "nul", data: []byte("x = 1\x00"), want: true},
		{name: "nul at window edge", data: atEdge, want: true},
		{name: "nul beyond window", data: beyondWindow, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, textutil.IsBinary(tt.data))
		})
	}
}

func TestCountLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		data string
		want int
	}{
		{data: "", want: 0},
		{data: "x", want: 1},
		{data: "x\n", want: 1},
		{data: "a\nb\nc", want: 3},
		{data: "\n\n\n", want: 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, textutil.CountLines([]byte(tt.data)), "%q", tt.data)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "plain", data: "x = 1\n", want: "x = 1\n"},
		{name: "bom", data: "\xEF\xBB\xBFx = 1\n", want: "x = 1\n"},
		{name: "crlf", data: "a = 1\r\nb = 2\r\n", want: "a = 1\nb = 2\n"},
		{name: "lone carriage return kept", data: "a\rb", want: "a\rb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, string(textutil.Normalize([]byte(tt.data))))
		})
	}
}
