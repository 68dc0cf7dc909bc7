package http

import (
	"github.com/rs/zerolog"

	"github.com/mrlokans/catalogimport/internal/covers"
	"github.com/mrlokans/catalogimport/internal/database"
	"github.com/mrlokans/catalogimport/internal/importers"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database      *database.Database
	Registry      *importers.Registry
	ImportService ImportService
	BookStore     BookStore

	// Cover image cache (optional)
	Covers *covers.Cache

	// Task queue status (optional)
	TaskClient TaskStatusReader

	// Application info
	Version string

	Logger zerolog.Logger
}
