// Package importers runs catalog import jobs across the registered adapters.
//
// # Architecture
//
// A job flows through three stages:
//
//	ImportOptions → Registry.Resolve → Adapter.Fetch (per source, concurrently) → Orchestrator → Exporter
//
// Each adapter (see package metadata) turns provider responses into
// metadata.Batch values: one ItemOutcome per provider item plus the request
// errors it hit. The Orchestrator is the single writer of the job's
// entities.ImportProgress and counts every outcome exactly once:
//
//   - a record is imported, or skipped when its (source, external id) pair
//     was already seen in the same job
//   - a rejected item is failed and listed in Errors
//   - a failed request adds an Errors entry and no items
//
// The job completes even when some items or whole providers fail. It ends in
// the error state only for an unknown source, invalid options or
// cancellation.
//
// # Adding a New Catalog
//
//  1. Implement metadata.Adapter in package metadata
//
//  2. Register it:
//
//     registry := importers.NewRegistry(
//     metadata.NewGutendexClient(cfg),
//     newHathiTrustClient(cfg),
//     )
//
// Nothing else changes: the orchestrator, HTTP API and CLI enumerate the
// registry.
//
// # Example Usage
//
//	orchestrator := importers.NewOrchestrator(registry, 20, logger)
//	orchestrator.SetExporter(bookRepo)
//	orchestrator.SetProgressReporter(progressRepo)
//
//	report, err := orchestrator.Run(ctx, entities.ImportOptions{Search: "stoicism", Limit: 5})
//	// err != nil only for job-fatal problems; inspect report.Progress otherwise
package importers
