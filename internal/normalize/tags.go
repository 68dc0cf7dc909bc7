package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxTags = 8
	MinTagLength   = 4
	MaxTagLength   = 32
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "also": {}, "among": {}, "been": {},
	"before": {}, "being": {}, "between": {}, "both": {}, "book": {}, "books": {},
	"could": {}, "does": {}, "down": {}, "each": {}, "even": {}, "every": {},
	"from": {}, "have": {}, "having": {}, "here": {}, "into": {}, "just": {},
	"like": {}, "made": {}, "make": {}, "many": {}, "more": {}, "most": {},
	"much": {}, "must": {}, "never": {}, "only": {}, "other": {}, "over": {},
	"same": {}, "shall": {}, "should": {}, "some": {}, "such": {}, "than": {},
	"that": {}, "their": {}, "them": {}, "then": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "those": {}, "through": {}, "under": {}, "until": {},
	"upon": {}, "very": {}, "were": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "while": {}, "with": {}, "within": {}, "without": {}, "would": {},
	"your": {}, "yours": {}, "will": {}, "fiction": {}, "edition": {}, "volume": {},
}

// ExtractTags returns up to max of the most frequent distinct words in text.
// Words are lowercased, at least MinTagLength runes, not stopwords. Equal
// counts keep first-seen order so the output is stable for a given input.
func ExtractTags(text string, max int) []string {
	if max <= 0 {
		return []string{}
	}

	type entry struct {
		word  string
		count int
		first int
	}
	counts := make(map[string]*entry)
	var order []*entry

	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		n := utf8.RuneCountInString(w)
		if n < MinTagLength || n > MaxTagLength {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if e, ok := counts[w]; ok {
			e.count++
			continue
		}
		e := &entry{word: w, count: 1, first: len(order)}
		counts[w] = e
		order = append(order, e)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].count > order[j].count
	})

	if len(order) > max {
		order = order[:max]
	}
	tags := make([]string, len(order))
	for i, e := range order {
		tags[i] = e.word
	}
	return tags
}

// BuildTags merges subject headings (as lowercase tags) with keywords
// extracted from text. The result has no duplicates and at most max entries.
func BuildTags(subjects []string, text string, max int) []string {
	if max <= 0 {
		max = DefaultMaxTags
	}
	tags := make([]string, 0, max)
	seen := make(map[string]struct{}, max)
	add := func(t string) bool {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || utf8.RuneCountInString(t) > MaxTagLength {
			return len(tags) < max
		}
		if _, dup := seen[t]; dup {
			return len(tags) < max
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
		return len(tags) < max
	}

	for _, s := range subjects {
		// Library subject headings nest with "--", e.g. "Stoics -- Early works to 1800".
		head := strings.TrimSpace(strings.SplitN(s, "--", 2)[0])
		if !add(head) {
			return tags
		}
	}
	for _, t := range ExtractTags(text, max) {
		if !add(t) {
			return tags
		}
	}
	return tags
}

// Dedup lowercases, drops duplicates and truncates to max entries.
func Dedup(tags []string, max int) []string {
	return BuildTags(tags, "", max)
}
