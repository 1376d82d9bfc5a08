package handlers

import "bytes"

// SanitizeNonFinite rewrites the non-finite numeric tokens NaN,
// Infinity and -Infinity to null so the document parses as strict JSON.
// Exporters in other languages emit these tokens freely. String
// contents are left untouched.
func SanitizeNonFinite(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data))

	inString := false
	escaped := false

	for i := 0; i < len(data); i++ {
		c := data[i]

		if inString {
			out.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			out.WriteByte(c)
		case c == '-' && hasToken(data, i+1, "Infinity"):
			out.WriteString("null")
			i += len("Infinity") // loop increment consumes the '-'
		case hasToken(data, i, "Infinity"):
			out.WriteString("null")
			i += len("Infinity") - 1
		case hasToken(data, i, "NaN"):
			out.WriteString("null")
			i += len("NaN") - 1
		default:
			out.WriteByte(c)
		}
	}

	return out.Bytes()
}

func hasToken(data []byte, i int, token string) bool {
	return i+len(token) <= len(data) && bytes.Equal(data[i:i+len(token)], []byte(token))
}
