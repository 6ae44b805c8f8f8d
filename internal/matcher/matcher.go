// Package matcher scores the similarity of two market titles.
package matcher

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// CrossSourceThreshold is the minimum score for merging two venue
	// listings into one market. A false merge conflates two questions.
	CrossSourceThreshold = 0.75
	// EditionDedupThreshold is the minimum score for dropping a candidate
	// that duplicates another in the same edition.
	EditionDedupThreshold = 0.70
)

// Normalize folds diacritics, lowercases, strips punctuation and collapses
// whitespace.
func Normalize(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
		// Anything else is punctuation or a symbol and is dropped without
		// introducing a word break, so "$100k" and "100k" compare equal.
	}
	return b.String()
}

// Score returns the similarity of two titles in [0,1]. Titles that normalize
// to nothing never match, not even each other.
func Score(a, b string) float64 {
	return ScoreNormalized(Normalize(a), Normalize(b))
}

// ScoreNormalized is Score for titles that already went through Normalize.
// Callers comparing one title against many should normalize once up front.
func ScoreNormalized(na, nb string) float64 {
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	ra, rb := []rune(na), []rune(nb)
	longest := max(len(ra), len(rb))
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// UpperBound is the best score two normalized titles could reach given only
// their lengths. It lets callers skip pairs that cannot cross a threshold.
func UpperBound(na, nb string) float64 {
	la, lb := utf8.RuneCountInString(na), utf8.RuneCountInString(nb)
	if la == 0 || lb == 0 {
		return 0
	}
	return float64(min(la, lb)) / float64(max(la, lb))
}

// Distance is the Levenshtein edit distance between a and b counted in runes.
// Insertions, deletions and substitutions cost 1; transpositions count as two
// edits.
func Distance(a, b string) int {
	return levenshtein([]rune(a), []rune(b))
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
