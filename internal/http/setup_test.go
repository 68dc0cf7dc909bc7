package http

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/catalogimport/internal/database"
	"github.com/mrlokans/catalogimport/internal/database/books"
	"github.com/mrlokans/catalogimport/internal/database/progress"
	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/importers"
	"github.com/mrlokans/catalogimport/internal/metadata"
	"github.com/mrlokans/catalogimport/internal/services"
)

type stubAdapter struct {
	source   entities.Source
	ids      []string
	contents map[string]string
}

func (a *stubAdapter) Source() entities.Source { return a.source }

func (a *stubAdapter) Search(ctx context.Context, opts entities.ImportOptions) []entities.ImportedBook {
	return a.Fetch(ctx, opts).Books()
}

func (a *stubAdapter) Fetch(_ context.Context, _ entities.ImportOptions) *metadata.Batch {
	batch := &metadata.Batch{Source: a.source}
	for _, id := range a.ids {
		batch.Outcomes = append(batch.Outcomes, metadata.ItemOutcome{
			Ref: id,
			Book: &entities.ImportedBook{
				Source:     a.source,
				ExternalID: id,
				Title:      "Book " + id,
				Category:   entities.DefaultCategory,
				Language:   entities.DefaultLanguage,
				Tags:       []string{},
			},
		})
	}
	return batch
}

func (a *stubAdapter) GetBookContent(_ context.Context, externalID string) (string, bool) {
	content, ok := a.contents[externalID]
	return content, ok
}

// testApp wires the real repositories and services around stub adapters.
type testApp struct {
	db       *database.Database
	books    *books.Repository
	progress *progress.Repository
	service  *services.ImportService
	registry *importers.Registry
	router   *gin.Engine
}

func setupTestApp(t *testing.T, adapters ...metadata.Adapter) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_http_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath, zerolog.Nop())
	require.NoError(t, err)

	registry := importers.NewRegistry(adapters...)
	bookRepo := books.NewRepository(db.DB)
	progressRepo := progress.NewRepository(db.DB)

	orchestrator := importers.NewOrchestrator(registry, 10, zerolog.Nop())
	orchestrator.SetExporter(bookRepo)
	orchestrator.SetProgressReporter(progressRepo)
	service := services.NewImportService(orchestrator, progressRepo, zerolog.Nop())

	app := &testApp{
		db:       db,
		books:    bookRepo,
		progress: progressRepo,
		service:  service,
		registry: registry,
	}
	app.router = NewRouter(RouterConfig{
		Database:      db,
		Registry:      registry,
		ImportService: service,
		BookStore:     bookRepo,
		Version:       "test",
		Logger:        zerolog.Nop(),
	})

	t.Cleanup(func() {
		service.Close()
		db.Close()
		os.Remove(dbPath)
	})
	return app
}
