package edition

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/alanyoungcy/marketwire/internal/matcher"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const (
	maxSlugLen      = 80
	maxSlugAttempts = 50
)

// latinFold spells out the lowercase Latin letters that carry no combining
// mark and so survive diacritic folding.
var latinFold = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "œ", "oe", "þ", "th", "ð", "d",
	"ø", "o", "đ", "d", "ł", "l", "ħ", "h", "ı", "i",
)

// asciiOnly drops whatever is still outside ASCII after folding.
var asciiOnly = runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII }))

// Slugify turns a headline into a lowercase, hyphenated, ASCII-only slug cut
// at a word boundary. Accents are folded and a few Latin letters are spelled
// out; words left with no ASCII letters or digits are dropped.
func Slugify(headline string) string {
	folded, _, err := transform.String(asciiOnly, latinFold.Replace(matcher.Normalize(headline)))
	if err != nil {
		folded = ""
	}
	var b strings.Builder
	for _, w := range strings.Fields(folded) {
		if b.Len() > 0 && b.Len()+1+len(w) > maxSlugLen {
			break
		}
		if b.Len() > 0 {
			b.WriteByte('-')
		}
		b.WriteString(w)
	}
	if b.Len() == 0 {
		return "article"
	}
	s := []rune(b.String())
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	return string(s)
}

type slugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// uniqueSlug returns base, or base with the lowest free numeric suffix
// starting at -2.
func uniqueSlug(ctx context.Context, store slugChecker, base string) (string, error) {
	candidate := base
	for n := 2; n < maxSlugAttempts+2; n++ {
		taken, err := store.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("edition: check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", fmt.Errorf("edition: no free slug for %q after %d attempts", base, maxSlugAttempts)
}
