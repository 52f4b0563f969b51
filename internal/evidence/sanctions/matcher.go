package sanctions

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a name for comparison: diacritics are stripped, case is
// lowered, punctuation becomes whitespace and tokens are sorted so that
// "KUMAR, Raj" and "Raj Kumar" compare equal.
func Normalize(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)
	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Similarity returns 1 - editDistance/maxLen over normalized names, in [0,1].
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	maxLen := max(len([]rune(na)), len([]rune(nb)))
	d := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(d)/float64(maxLen)
}
