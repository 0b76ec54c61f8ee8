package matching

import (
	"regexp"
	"strings"
	"unicode"
)

var percentToken = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*%`)

// NormalizeIngredient canonicalizes an ingredient name for
// intersection checks: lower-case, percentage suffixes removed
// ("niacinamide 10%" == "Niacinamide"), punctuation folded to spaces
// ("salicylic-acid" == "salicylic acid"), whitespace collapsed.
func NormalizeIngredient(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = percentToken.ReplaceAllString(s, " ")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeIngredients maps NormalizeIngredient over a list, dropping
// entries that normalize to nothing.
func NormalizeIngredients(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if n := NormalizeIngredient(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}
