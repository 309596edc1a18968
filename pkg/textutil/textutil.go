// Package textutil inspects and normalizes source text before it reaches a
// frontend.
package textutil

import (
	"bytes"
)

// BinarySniffLength is how many leading bytes are scanned for a NUL.
const BinarySniffLength = 8000

//nolint:gochecknoglobals // Constant byte sequence.
var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// IsBinary reports whether the first BinarySniffLength bytes hold a NUL.
// Source files never do; empty input is text.
func IsBinary(data []byte) bool {
	sniff := data[:min(len(data), BinarySniffLength)]

	return bytes.IndexByte(sniff, 0) >= 0
}

// CountLines counts newline-terminated lines plus a trailing partial one.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	lines := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		lines++
	}

	return lines
}

// Normalize drops a UTF-8 byte order mark and turns CRLF line endings into
// LF, the form both tree-sitter grammars and the printers expect. Input
// without either is returned as is.
func Normalize(data []byte) []byte {
	data = bytes.TrimPrefix(data, byteOrderMark)

	if bytes.IndexByte(data, '\r') < 0 {
		return data
	}

	return bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
}
