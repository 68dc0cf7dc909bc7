// Package database provides the data access layer for imported catalog records.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── books/           # Imported book upserts and queries
//	└── progress/        # Import job progress tracking
//
// # Using Sub-packages
//
//	// Initialize database connection
//	db, err := database.NewDatabase("./catalog.db", logger)
//
//	// Create domain-specific repositories
//	booksRepo := books.NewRepository(db.DB)
//	progressRepo := progress.NewRepository(db.DB)
//
// # Interface Implementations
//
//   - books.Repository: implements importers.Exporter
//   - progress.Repository: implements importers.ProgressReporter
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/schedules/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Implement the required interface
//  5. Add compile-time interface check: var _ SomeInterface = (*Repository)(nil)
package database
