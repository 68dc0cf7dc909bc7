// Package normalize holds the provider-agnostic heuristics every catalog
// adapter runs its items through, so that a book classifies, tags and rates
// the same way regardless of where it came from.
package normalize

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	markupTags     = regexp.MustCompile(`<[^>]*>`)
	multipleSpaces = regexp.MustCompile(`\s+`)
	nonSlugChars   = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify lowercases s, folds accents, collapses every run of
// non-alphanumerics into a single dash and trims dashes at both ends.
// Slugify(Slugify(s)) == Slugify(s).
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(slug, "-")
}

// CleanDescription strips markup, unescapes entities, collapses whitespace
// and truncates to at most maxLen runes. When truncating it backs off to the
// last word boundary unless that would discard more than half the text, and
// marks the cut with "...". maxLen <= 0 disables truncation.
func CleanDescription(s string, maxLen int) string {
	s = markupTags.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = multipleSpaces.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}

	const ellipsis = "..."
	if maxLen <= len(ellipsis) {
		return string(r[:maxLen])
	}

	cut := r[:maxLen-len(ellipsis)]
	if idx := lastSpace(cut); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(string(cut), " ,.;:-") + ellipsis
}

func lastSpace(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == ' ' {
			return i
		}
	}
	return -1
}

// IsTrivialDescription reports whether a provider description carries too
// little text to be worth keeping over a synthesized one.
func IsTrivialDescription(s string) bool {
	return len([]rune(CleanDescription(s, 0))) < 20
}

// SynthesizeDescription builds a description from what every record has.
// It never returns an empty string.
func SynthesizeDescription(title, author string, subjects []string) string {
	if author == "" {
		author = "an unknown author"
	}
	desc := fmt.Sprintf("%s by %s.", strings.TrimSpace(title), author)

	topics := make([]string, 0, 3)
	for _, s := range subjects {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		topics = append(topics, s)
		if len(topics) == 3 {
			break
		}
	}
	if len(topics) > 0 {
		desc += " Explores " + strings.Join(topics, ", ") + "."
	}
	return desc
}
