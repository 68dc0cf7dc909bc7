package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/catalogimport/internal/database/books"
	"github.com/mrlokans/catalogimport/internal/entities"
)

// BookStore provides read access to imported books.
// Implemented by database/books.Repository.
type BookStore interface {
	ListBooks(filter books.ListFilter) ([]entities.ImportedBook, int64, error)
	GetBookByID(id uint) (*entities.ImportedBook, error)
	CountBySource() ([]books.SourceCount, error)
}

// CoverCache serves locally cached cover images.
// Implemented by covers.Cache.
type CoverCache interface {
	GetCover(ctx context.Context, book *entities.ImportedBook) (string, error)
}

type BooksController struct {
	store  BookStore
	covers CoverCache
}

func NewBooksController(store BookStore, covers CoverCache) *BooksController {
	return &BooksController{
		store:  store,
		covers: covers,
	}
}

// ListBooks handles GET /api/books
// Filters: source, category, language, q; paginated with limit and offset.
func (controller *BooksController) ListBooks(c *gin.Context) {
	limit, offset, ok := parsePagination(c)
	if !ok {
		return
	}

	filter := books.ListFilter{
		Source:   entities.Source(c.Query("source")),
		Category: c.Query("category"),
		Language: c.Query("language"),
		Search:   c.Query("q"),
		Limit:    limit,
		Offset:   offset,
	}

	list, total, err := controller.store.ListBooks(filter)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(list, total, limit, offset))
}

// GetBook handles GET /api/books/:id
func (controller *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.store.GetBookByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// GetBookStats handles GET /api/books/stats
func (controller *BooksController) GetBookStats(c *gin.Context) {
	counts, err := controller.store.CountBySource()
	if err != nil {
		respondInternalError(c, err, "count books")
		return
	}

	var total int64
	for _, sc := range counts {
		total += sc.Count
	}
	c.JSON(http.StatusOK, gin.H{
		"total_books": total,
		"by_source":   counts,
	})
}

// GetBookCover handles GET /api/books/:id/cover
func (controller *BooksController) GetBookCover(c *gin.Context) {
	if controller.covers == nil {
		respondNotFound(c, "cover")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.store.GetBookByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	path, err := controller.covers.GetCover(c.Request.Context(), book)
	if err != nil {
		respondError(c, http.StatusBadGateway, "cover_unavailable", "failed to fetch cover")
		return
	}
	if path == "" {
		respondNotFound(c, "cover")
		return
	}
	c.File(path)
}
