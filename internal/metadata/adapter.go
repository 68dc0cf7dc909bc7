package metadata

import (
	"context"
	"fmt"

	"github.com/mrlokans/catalogimport/internal/entities"
)

// Adapter imports books from one external catalog.
//
// Implementations:
//   - GutendexClient (gutendex.go) - Project Gutenberg public-domain texts
//   - OpenLibraryClient (openlibrary.go) - OpenLibrary search API
//   - GoogleBooksClient (googlebooks.go) - Google Books volumes API
//
// Adding a new catalog:
//  1. Create a new file (e.g., hathitrust.go) with the provider's wire structs
//  2. Map each item through normalize.Finalize
//  3. Implement Adapter and register it in importers.NewDefaultRegistry
type Adapter interface {
	Source() entities.Source

	// Search returns only the items that normalized successfully. It never
	// fails: an unreachable provider yields an empty slice.
	Search(ctx context.Context, opts entities.ImportOptions) []entities.ImportedBook

	// Fetch is Search with every per-item and per-request outcome kept.
	Fetch(ctx context.Context, opts entities.ImportOptions) *Batch

	// GetBookContent returns preview or full text for one record, or false
	// when the provider has none.
	GetBookContent(ctx context.Context, externalID string) (string, bool)
}

// ItemOutcome is the result of mapping one provider item. Exactly one of
// Book and Err is set.
type ItemOutcome struct {
	Ref  string
	Book *entities.ImportedBook
	Err  error
}

// OK reports whether the item produced a record.
func (o ItemOutcome) OK() bool {
	return o.Err == nil && o.Book != nil
}

// Batch collects everything one adapter produced for one set of options.
type Batch struct {
	Source        entities.Source
	Outcomes      []ItemOutcome
	RequestErrors []error
	// ReportedTotal is the provider's own match count, 0 when unknown.
	ReportedTotal int
}

// Books returns the successfully mapped records in outcome order.
func (b *Batch) Books() []entities.ImportedBook {
	books := make([]entities.ImportedBook, 0, len(b.Outcomes))
	for _, o := range b.Outcomes {
		if o.OK() {
			books = append(books, *o.Book)
		}
	}
	return books
}

// Failures returns the outcomes that did not produce a record.
func (b *Batch) Failures() []ItemOutcome {
	var failed []ItemOutcome
	for _, o := range b.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

func itemError(ref string, err error) ItemOutcome {
	return ItemOutcome{Ref: ref, Err: err}
}

// mapSafely runs one item mapping, turning a panic on unexpected provider
// data into an item error.
func mapSafely(ref string, mapFn func() (*entities.ImportedBook, error)) (out ItemOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = itemError(ref, fmt.Errorf("mapping panicked: %v", r))
		}
	}()

	book, err := mapFn()
	if err != nil {
		return itemError(ref, err)
	}
	return ItemOutcome{Ref: ref, Book: book}
}
