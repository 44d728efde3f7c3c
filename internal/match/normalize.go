package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize folds a free-text label into its comparison form:
// lowercased, trimmed, inner whitespace collapsed, diacritics stripped.
// "Kuşadası" and "kusadasi" normalize to the same string.
func Normalize(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.Join(strings.Fields(s), " ")

	folded, _, err := transform.String(stripDiacritics, s)
	if err != nil {
		// Fall back to the un-stripped form rather than dropping the label
		return s
	}
	return folded
}
