// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help contributors find
// extension points and see which concrete type implements each one.
//
// # Interface Categories
//
// ## Source Interfaces
//
//   - Adapter: One external catalog (internal/metadata/adapter.go)
//
// ## Data Access Interfaces
//
//   - Exporter: Persist imported books (internal/importers/orchestrator.go)
//   - BookStore: Read imported books (internal/http/books.go)
//   - CoverCache: Serve cached cover images (internal/http/books.go)
//
// ## Progress Tracking Interfaces
//
//   - ProgressReporter: Import progress snapshots (internal/importers/progress.go)
//   - JobStore: Job lookup and creation (internal/services/interfaces.go)
//
// ## Job Execution Interfaces
//
//   - JobQueue: Background execution of import jobs (internal/services/interfaces.go)
//   - ImportStarter: Scheduled job start (internal/scheduler/import_schedule.go)
//   - ImportService: HTTP-facing job control (internal/http/imports.go)
//   - TaskStatusReader: Task queue status (internal/http/tasks.go)
//
// # Adding a New Catalog Source
//
//  1. Add the source name to internal/entities/imported_book.go
//
//     const SourceHathiTrust Source = "hathitrust"
//
//  2. Implement Adapter in internal/metadata/, mapping each provider item
//     through normalize.Finalize:
//
//     type HathiTrustClient struct {
//         baseClient
//     }
//
//     func (c *HathiTrustClient) Search(ctx context.Context, opts entities.ImportOptions) []entities.ImportedBook
//     func (c *HathiTrustClient) Fetch(ctx context.Context, opts entities.ImportOptions) *Batch
//     func (c *HathiTrustClient) GetBookContent(ctx context.Context, externalID string) (string, bool)
//
//  3. Register it in importers.NewDefaultRegistry and add a compile-time
//     check to checks.go
//
// # Adding a New Storage Backend
//
//  1. Implement importers.Exporter for books and
//     importers.ProgressReporter plus services.JobStore for jobs
//
//  2. Wire them into the orchestrator in entrypoint.go:
//
//     orchestrator.SetExporter(store)
//     orchestrator.SetProgressReporter(jobs)
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the current set.
package interfaces
