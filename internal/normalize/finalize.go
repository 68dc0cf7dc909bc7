package normalize

import (
	"errors"
	"strings"

	"github.com/mrlokans/catalogimport/internal/entities"
)

var (
	ErrMissingTitle = errors.New("missing title")
	ErrMissingID    = errors.New("missing external id")
)

// Limits bounds the free-text parts of a record.
type Limits struct {
	MaxTags        int
	MaxDescription int
}

// DefaultLimits matches the service configuration defaults.
func DefaultLimits() Limits {
	return Limits{MaxTags: DefaultMaxTags, MaxDescription: 2000}
}

// Finalize enforces the canonical record invariants in place: non-empty
// title and external id (else an error), author/category/language defaults,
// a clamped rating, a secure cover URL and a bounded, duplicate-free tag
// list. It is the last step of every adapter's mapping.
func Finalize(b *entities.ImportedBook, limits Limits) error {
	b.Title = strings.TrimSpace(multipleSpaces.ReplaceAllString(b.Title, " "))
	if b.Title == "" {
		return ErrMissingTitle
	}
	b.ExternalID = strings.TrimSpace(b.ExternalID)
	if b.ExternalID == "" {
		return ErrMissingID
	}

	b.Slug = Slugify(b.Title)
	if b.Author = strings.TrimSpace(b.Author); b.Author == "" {
		b.Author = entities.DefaultAuthor
	}
	if b.Category = strings.TrimSpace(b.Category); b.Category == "" {
		b.Category = entities.DefaultCategory
	}
	if b.Language = strings.ToLower(strings.TrimSpace(b.Language)); b.Language == "" {
		b.Language = entities.DefaultLanguage
	}

	b.Description = CleanDescription(b.Description, limits.MaxDescription)
	if b.Description == "" {
		b.Description = SynthesizeDescription(b.Title, b.Author, nil)
	}

	if b.Rating == 0 {
		b.Rating = NeutralRating
	}
	b.Rating = ClampRating(b.Rating)
	b.Tags = Dedup(b.Tags, limits.MaxTags)

	if b.CoverImage != nil {
		b.CoverImage = BestImage(*b.CoverImage)
	}
	if b.ContentURL != nil {
		b.ContentURL = StringPtr(SecureURL(*b.ContentURL))
	}
	return nil
}
