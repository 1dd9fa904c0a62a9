package form

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize turns a display label into a canonical comparison key.
//
// It lower-cases, strips diacritics (NFD decompose, drop combining marks),
// and removes every rune outside [a-z0-9]. "Mobile Number", "mobile_number"
// and "Mobile-Number " all normalize identically. The function is pure and
// idempotent; it never fails.
func Normalize(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	if s == "" {
		return s
	}

	// NFD decomposition splits characters like 'é' into 'e' + combining
	// accent, so accented labels compare equal to their ASCII spellings.
	decomposed := norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
