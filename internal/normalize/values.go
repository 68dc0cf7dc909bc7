package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	MinRating     = 1.0
	MaxRating     = 5.0
	NeutralRating = 3.0
)

// ClampRating forces v into [MinRating, MaxRating]. NaN becomes neutral.
func ClampRating(v float64) float64 {
	if math.IsNaN(v) {
		return NeutralRating
	}
	return math.Max(MinRating, math.Min(MaxRating, v))
}

// RatingFromPopularity maps a popularity counter (downloads, readers) onto
// the rating scale. No signal is neutral, 100 is neutral too, and each
// further factor of 100 adds one point.
func RatingFromPopularity(count int64) float64 {
	if count <= 0 {
		return NeutralRating
	}
	r := NeutralRating + math.Log10(float64(count))/2 - 1
	return math.Round(ClampRating(r)*10) / 10
}

// SecureURL rewrites http:// and protocol-relative URLs to https://.
func SecureURL(u string) string {
	u = strings.TrimSpace(u)
	switch {
	case strings.HasPrefix(u, "http://"):
		return "https://" + strings.TrimPrefix(u, "http://")
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	}
	return u
}

// BestImage returns the first non-empty candidate, secured. Callers pass
// candidates largest resolution first.
func BestImage(candidates ...string) *string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			s := SecureURL(c)
			return &s
		}
	}
	return nil
}

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

// ExtractYear returns the first stand-alone 4-digit number in s, or nil.
func ExtractYear(s string) *int {
	m := yearPattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &y
}

// NormalizeISBN removes hyphens and spaces, returning "" unless the result
// has the length of an ISBN-10 or ISBN-13.
func NormalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	isbn = strings.TrimSpace(isbn)

	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}
	return isbn
}

// Identifier is a typed identifier as exposed by catalog APIs.
type Identifier struct {
	Type  string
	Value string
}

// PickISBN prefers an ISBN-13 over an ISBN-10. Types are matched loosely
// ("ISBN_13", "isbn13", "isbn_13").
func PickISBN(ids []Identifier) *string {
	var isbn10 string
	for _, id := range ids {
		value := NormalizeISBN(id.Value)
		if value == "" {
			continue
		}
		switch strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(id.Type)) {
		case "isbn13":
			return &value
		case "isbn10":
			if isbn10 == "" {
				isbn10 = value
			}
		}
	}
	if isbn10 != "" {
		return &isbn10
	}
	return nil
}

// ISBNsToIdentifiers types bare ISBN strings by their length.
func ISBNsToIdentifiers(isbns ...string) []Identifier {
	ids := make([]Identifier, 0, len(isbns))
	for _, v := range isbns {
		switch len(NormalizeISBN(v)) {
		case 13:
			ids = append(ids, Identifier{Type: "ISBN_13", Value: v})
		case 10:
			ids = append(ids, Identifier{Type: "ISBN_10", Value: v})
		}
	}
	return ids
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns nil for non-positive values.
func IntPtr(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}
