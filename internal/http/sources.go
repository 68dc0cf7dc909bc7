package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/importers"
)

const contentTimeout = 30 * time.Second

// SourcesController exposes the adapter registry.
type SourcesController struct {
	registry *importers.Registry
}

// NewSourcesController creates a new SourcesController.
func NewSourcesController(registry *importers.Registry) *SourcesController {
	return &SourcesController{registry: registry}
}

// ListSources handles GET /api/sources
func (sc *SourcesController) ListSources(c *gin.Context) {
	sources := sc.registry.ListSupportedSources()
	c.JSON(http.StatusOK, gin.H{"sources": sources, "count": len(sources)})
}

// BookContentResponse is the body of a successful content lookup.
type BookContentResponse struct {
	Source     entities.Source `json:"source"`
	ExternalID string          `json:"external_id"`
	Content    string          `json:"content"`
}

// GetBookContent handles GET /api/sources/:source/books/:id/content
// Fetches the full text or long description of one item from its provider.
func (sc *SourcesController) GetBookContent(c *gin.Context) {
	source := entities.Source(c.Param("source"))
	externalID := c.Param("id")

	adapter, err := sc.registry.Get(source)
	if err != nil {
		if errors.Is(err, importers.ErrUnknownSource) {
			respondError(c, http.StatusNotFound, "unknown_source", err.Error())
			return
		}
		respondInternalError(c, err, "get adapter")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), contentTimeout)
	defer cancel()

	content, ok := adapter.GetBookContent(ctx, externalID)
	if !ok {
		respondNotFound(c, "content")
		return
	}

	c.JSON(http.StatusOK, BookContentResponse{
		Source:     source,
		ExternalID: externalID,
		Content:    content,
	})
}
