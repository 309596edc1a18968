package python //nolint:testpackage // Tests cover the unexported literal decoder.

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		literal  string
		expected string
		ok       bool
	}{
		{literal: `'plain'`, expected: "plain", ok: true},
		{literal: `"tab\there"`, expected: "tab\there", ok: true},
		{literal: `'''multi
line'''`, expected: "multi\nline", ok: true},
		{literal: `r'\d+'`, expected: `\d+`, ok: true},
		{literal: `'\x41é\U0001F600'`, expected: "Aé😀", ok: true},
		{literal: `'\101'`, expected: "A", ok: true},
		{literal: `'keep \q'`, expected: `keep \q`, ok: true},
		{literal: `'joined \
line'`, expected: "joined line", ok: true},
		{literal: `u'legacy'`, expected: "legacy", ok: true},
		{literal: `b'bytes'`, ok: false},
		{literal: `f'{x}'`, ok: false},
		{literal: `'\N{DASH}'`, ok: false},
		{literal: `'\x4'`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			t.Parallel()

			decoded, ok := decodeString(tt.literal)
			assert.Equal(t, tt.ok, ok)

			if tt.ok {
				assert.Equal(t, tt.expected, decoded)
			}
		})
	}
}
