package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog"

	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/importers"
)

// ImportCatalogTask runs one import job. JobID is created by whoever enqueues
// the task so the job's progress can be looked up before a worker starts it.
type ImportCatalogTask struct {
	JobID   string                 `json:"job_id"`
	Options entities.ImportOptions `json:"options"`
	Sources []entities.Source      `json:"sources,omitempty"`
}

// Config returns the queue configuration for catalog import tasks.
// Imports are not retried: a rerun would duplicate a job that already
// reached a terminal state.
func (t ImportCatalogTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_catalog",
		MaxAttempts: 1,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ImportCatalogProcessor creates a processor function for ImportCatalogTask.
func ImportCatalogProcessor(orchestrator *importers.Orchestrator, log zerolog.Logger) backlite.QueueProcessor[ImportCatalogTask] {
	return func(ctx context.Context, task ImportCatalogTask) error {
		if orchestrator == nil {
			return fmt.Errorf("orchestrator not configured")
		}

		report, err := orchestrator.RunJob(ctx, task.JobID, task.Options, task.Sources...)
		if err != nil {
			return fmt.Errorf("import job %s: %w", task.JobID, err)
		}

		p := report.Progress
		log.Info().
			Str("job_id", task.JobID).
			Str("status", string(p.Status)).
			Int("imported", p.Imported).
			Int("failed", p.Failed).
			Int("skipped", p.Skipped).
			Msg("import task finished")
		return nil
	}
}

// NewImportCatalogQueue creates a backlite queue for catalog import tasks.
func NewImportCatalogQueue(orchestrator *importers.Orchestrator, log zerolog.Logger) backlite.Queue {
	return backlite.NewQueue(ImportCatalogProcessor(orchestrator, log))
}
