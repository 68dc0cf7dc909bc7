package entities

import (
	"encoding/json"
	"strings"
	"time"
)

// Source identifies an external catalog.
type Source string

const (
	SourceGutendex    Source = "gutendex"    // Project Gutenberg public-domain texts
	SourceOpenLibrary Source = "openlibrary" // Internet Archive library metadata
	SourceGoogleBooks Source = "googlebooks" // Google Books, quota-limited
)

func (s Source) String() string {
	return string(s)
}

// ParseSources splits a comma-separated source list. Names are trimmed and
// lowercased; empty entries are dropped. Whether a name is registered is
// decided by the registry, not here.
func ParseSources(list string) []Source {
	var sources []Source
	for _, part := range strings.Split(list, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		sources = append(sources, Source(name))
	}
	return sources
}

const (
	DefaultAuthor   = "Unknown Author"
	DefaultCategory = "General"
	DefaultLanguage = "en"
)

// ImportedBook is the canonical record every catalog adapter produces.
// Optional fields are pointers so that "unknown" and "zero" stay distinct.
type ImportedBook struct {
	ID              uint            `gorm:"primaryKey" json:"id,omitempty"`
	Source          Source          `gorm:"size:32;uniqueIndex:idx_source_external" json:"source"`
	ExternalID      string          `gorm:"size:256;uniqueIndex:idx_source_external" json:"external_id"`
	Title           string          `gorm:"index;size:512" json:"title"`
	Slug            string          `gorm:"index;size:512" json:"slug"`
	Description     string          `gorm:"type:text" json:"description"`
	Author          string          `gorm:"index;size:256" json:"author"`
	CoverImage      *string         `gorm:"size:2048" json:"cover_image,omitempty"`
	Category        string          `gorm:"index;size:64" json:"category"`
	Tags            []string        `gorm:"serializer:json" json:"tags"`
	Language        string          `gorm:"size:16" json:"language"`
	ISBN            *string         `gorm:"index;size:20" json:"isbn,omitempty"`
	Publisher       *string         `gorm:"size:256" json:"publisher,omitempty"`
	PublicationYear *int            `json:"publication_year,omitempty"`
	TotalPages      *int            `json:"total_pages,omitempty"`
	ContentURL      *string         `gorm:"size:2048" json:"content_url,omitempty"`
	Rating          float64         `json:"rating"`
	ExternalData    json.RawMessage `gorm:"type:text" json:"external_data,omitempty"`
	CreatedAt       time.Time       `json:"created_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at,omitempty"`
}

func (ImportedBook) TableName() string {
	return "imported_books"
}

// DedupKey is the natural key used to detect the same item twice in one job.
func (b ImportedBook) DedupKey() string {
	return string(b.Source) + "|" + b.ExternalID
}

// DecodeExternalData unmarshals the raw provider payload into v.
func (b ImportedBook) DecodeExternalData(v any) error {
	return json.Unmarshal(b.ExternalData, v)
}
