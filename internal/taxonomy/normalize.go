package taxonomy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize folds a node name into its matching form: lower-cased, diacritics
// stripped, whitespace collapsed, dash variants unified. Two differently
// cased/accented spellings of the same node normalize to the same string.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case r == '-' || r == '–' || r == '—':
			if space {
				b.WriteRune(' ')
				space = false
			}
			b.WriteRune('-')
		default:
			if space {
				b.WriteRune(' ')
				space = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EqualNames reports whether two node names denote the same node.
func EqualNames(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
