// Package sanitize provides text clean-up for user-provided input.
package sanitize

import (
	"strings"
	"unicode"
)

// Text prepares free text for storage without changing what the sender wrote.
// Invalid UTF-8 is replaced, control characters other than tab and newlines
// are dropped (PostgreSQL rejects NUL in text columns), and surrounding
// whitespace is trimmed. Markup is kept verbatim; escape it when rendering.
func Text(s string) string {
	s = strings.ToValidUTF8(s, "�")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, s)
	return strings.TrimSpace(s)
}
