package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/catalogimport/internal/covers"
	"github.com/mrlokans/catalogimport/internal/database/books"
	"github.com/mrlokans/catalogimport/internal/database/progress"
	"github.com/mrlokans/catalogimport/internal/http"
	"github.com/mrlokans/catalogimport/internal/importers"
	"github.com/mrlokans/catalogimport/internal/metadata"
	"github.com/mrlokans/catalogimport/internal/scheduler"
	"github.com/mrlokans/catalogimport/internal/services"
	"github.com/mrlokans/catalogimport/internal/tasks"
)

// =============================================================================
// Source Adapters
// =============================================================================

var _ metadata.Adapter = (*metadata.GutendexClient)(nil)
var _ metadata.Adapter = (*metadata.OpenLibraryClient)(nil)
var _ metadata.Adapter = (*metadata.GoogleBooksClient)(nil)

// =============================================================================
// Data Access Layer
// =============================================================================

// Exporter implementations
var _ importers.Exporter = (*books.Repository)(nil)

// BookStore implementations
var _ http.BookStore = (*books.Repository)(nil)

// CoverCache implementations
var _ http.CoverCache = (*covers.Cache)(nil)

// =============================================================================
// Progress Tracking
// =============================================================================

// ProgressReporter implementations
var _ importers.ProgressReporter = (*progress.Repository)(nil)

// JobStore implementations
var _ services.JobStore = (*progress.Repository)(nil)

// =============================================================================
// Job Execution
// =============================================================================

// JobQueue implementations
var _ services.JobQueue = (*tasks.Client)(nil)

// TaskStatusReader implementations
var _ http.TaskStatusReader = (*tasks.Client)(nil)

// ImportService implementations
var _ http.ImportService = (*services.ImportService)(nil)

// ImportStarter implementations
var _ scheduler.ImportStarter = (*services.ImportService)(nil)
