package util

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const shortIDLen = 8

// Normalize returns s in NFC form so composed and decomposed input render
// the same.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// Sanitize makes server-supplied text safe to print on a terminal: invalid
// UTF-8 is replaced, control characters (including escape sequences) are
// dropped, and tabs and newlines become spaces.
func Sanitize(s string) string {
	s = Normalize(strings.ToValidUTF8(s, "�"))
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}

// ShortID abbreviates long identifiers to their first eight characters
// followed by "...".
func ShortID(id string) string {
	if utf8.RuneCountInString(id) <= shortIDLen {
		return id
	}
	return string([]rune(id)[:shortIDLen]) + "..."
}

// Truncate cuts s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string([]rune(s)[:n-1]) + "…"
}
