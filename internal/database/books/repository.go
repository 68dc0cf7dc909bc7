// Package books provides database operations for imported catalog records.
//
// Records are keyed by (source, external_id): importing the same provider item
// again updates the stored row instead of creating a duplicate.
//
// # Interface Implementation
//
//	var _ importers.Exporter = (*Repository)(nil)
//
// # Usage
//
//	repo := books.NewRepository(db)
//	saved, err := repo.Export(report.Books)
package books

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/importers"
)

const exportBatchSize = 100

var _ importers.Exporter = (*Repository)(nil)

// Columns refreshed when a record is imported again.
var upsertColumns = []string{
	"title", "slug", "description", "author", "cover_image", "category", "tags",
	"language", "isbn", "publisher", "publication_year", "total_pages",
	"content_url", "rating", "external_data", "updated_at",
}

// Repository handles all imported book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Export upserts books by (source, external_id) and returns how many were
// written. Implements importers.Exporter.
func (r *Repository) Export(books []entities.ImportedBook) (int, error) {
	if len(books) == 0 {
		return 0, nil
	}

	rows := make([]entities.ImportedBook, len(books))
	copy(rows, books)
	for i := range rows {
		rows[i].ID = 0
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).CreateInBatches(&rows, exportBatchSize).Error
	if err != nil {
		return 0, fmt.Errorf("upsert imported books: %w", err)
	}
	return len(rows), nil
}

// GetBookByID retrieves a book by its primary key.
func (r *Repository) GetBookByID(id uint) (*entities.ImportedBook, error) {
	var book entities.ImportedBook
	if err := r.db.First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBookBySource retrieves a book by its provider identity.
func (r *Repository) GetBookBySource(source entities.Source, externalID string) (*entities.ImportedBook, error) {
	var book entities.ImportedBook
	err := r.db.Where("source = ? AND external_id = ?", source, externalID).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// ListFilter narrows ListBooks. Zero values mean "any".
type ListFilter struct {
	Source   entities.Source
	Category string
	Language string
	Search   string
	Limit    int
	Offset   int
}

// ListBooks returns one page of books, newest first, and the total number
// of matches.
func (r *Repository) ListBooks(filter ListFilter) ([]entities.ImportedBook, int64, error) {
	query := r.db.Model(&entities.ImportedBook{})
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Language != "" {
		query = query.Where("language = ?", strings.ToLower(filter.Language))
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var books []entities.ImportedBook
	err := query.Session(&gorm.Session{}).Order("updated_at DESC, id DESC").Limit(limit).Offset(filter.Offset).Find(&books).Error
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// SourceCount is the number of stored books for one source.
type SourceCount struct {
	Source entities.Source `json:"source"`
	Count  int64           `json:"count"`
}

// CountBySource returns stored book counts grouped by source.
func (r *Repository) CountBySource() ([]SourceCount, error) {
	var counts []SourceCount
	err := r.db.Model(&entities.ImportedBook{}).
		Select("source, COUNT(*) AS count").
		Group("source").
		Order("source").
		Scan(&counts).Error
	return counts, err
}
