package python

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// decodeString evaluates a plain or raw str literal, prefix and quotes
// included. ok is false for bytes, f-strings and escapes it cannot decode;
// callers keep those as source text.
func decodeString(literal string) (string, bool) {
	prefixEnd := strings.IndexAny(literal, `'"`)
	if prefixEnd < 0 {
		return "", false
	}

	prefix := strings.ToLower(literal[:prefixEnd])
	if strings.ContainsAny(prefix, "bft") {
		return "", false
	}

	body := literal[prefixEnd:]

	quoteLen := 1
	if strings.HasPrefix(body, `"""`) || strings.HasPrefix(body, `'''`) {
		quoteLen = 3
	}

	if len(body) < 2*quoteLen {
		return "", false
	}

	body = body[quoteLen : len(body)-quoteLen]

	if strings.Contains(prefix, "r") {
		return body, true
	}

	return unescape(body)
}

//nolint:cyclop // One case per escape.
func unescape(body string) (string, bool) {
	if !strings.Contains(body, `\`) {
		return body, true
	}

	var builder strings.Builder

	for idx := 0; idx < len(body); idx++ {
		char := body[idx]
		if char != '\\' || idx+1 >= len(body) {
			builder.WriteByte(char)

			continue
		}

		idx++

		switch next := body[idx]; next {
		case '\n':
		case '\\', '\'', '"':
			builder.WriteByte(next)
		case 'a':
			builder.WriteByte('\a')
		case 'b':
			builder.WriteByte('\b')
		case 'f':
			builder.WriteByte('\f')
		case 'n':
			builder.WriteByte('\n')
		case 'r':
			builder.WriteByte('\r')
		case 't':
			builder.WriteByte('\t')
		case 'v':
			builder.WriteByte('\v')
		case 'x', 'u', 'U':
			width := escapeWidth(next)
			if idx+1+width > len(body) {
				return "", false
			}

			code, err := strconv.ParseUint(body[idx+1:idx+1+width], 16, 32)
			if err != nil || !utf8.ValidRune(rune(code)) {
				return "", false
			}

			builder.WriteRune(rune(code))

			idx += width
		case '0', '1', '2', '3', '4', '5', '6', '7':
			end := idx
			for end < len(body) && end < idx+3 && body[end] >= '0' && body[end] <= '7' {
				end++
			}

			code, _ := strconv.ParseUint(body[idx:end], 8, 32)
			builder.WriteRune(rune(code))

			idx = end - 1
		case 'N':
			return "", false
		default:
			builder.WriteByte('\\')
			builder.WriteByte(next)
		}
	}

	return builder.String(), true
}

func escapeWidth(kind byte) int {
	switch kind {
	case 'x':
		return 2
	case 'u':
		return 4
	default:
		return 8
	}
}
