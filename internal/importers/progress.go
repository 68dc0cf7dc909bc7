package importers

import (
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/catalogimport/internal/entities"
)

var ErrJobFinished = errors.New("import job already finished")

// ProgressReporter receives snapshots of a job's progress. Implementations
// persist or publish them; they never see the live struct.
type ProgressReporter interface {
	StartImport(progress entities.ImportProgress) error
	UpdateProgress(progress entities.ImportProgress) error
	CompleteImport(progress entities.ImportProgress) error
}

// progressTracker owns one job's ImportProgress. Only the orchestrator's
// collecting goroutine calls it.
type progressTracker struct {
	progress  entities.ImportProgress
	estimates map[entities.Source]int
	now       func() time.Time
}

func newProgressTracker(jobID string, opts entities.ImportOptions, sources []entities.Source, now func() time.Time) *progressTracker {
	return &progressTracker{
		progress: entities.ImportProgress{
			JobID:     jobID,
			Sources:   append([]entities.Source(nil), sources...),
			Options:   opts,
			Status:    entities.ImportStatusIdle,
			Errors:    []string{},
			StartedAt: now(),
			UpdatedAt: now(),
		},
		estimates: make(map[entities.Source]int),
		now:       now,
	}
}

// begin moves idle → importing with total estimated as limit per adapter.
func (t *progressTracker) begin(sources []entities.Source, limit int) error {
	if t.progress.Status != entities.ImportStatusIdle {
		return fmt.Errorf("%w: cannot start from %s", ErrJobFinished, t.progress.Status)
	}
	t.progress.Sources = append([]entities.Source(nil), sources...)
	for _, s := range sources {
		t.estimates[s] = limit
		t.progress.Total += limit
	}
	t.progress.Status = entities.ImportStatusImporting
	t.touch()
	return nil
}

// settle replaces a source's estimate with the number of items it actually
// returned, so the counts add up to total once every source has settled.
func (t *progressTracker) settle(source entities.Source, actual int) {
	t.progress.Total += actual - t.estimates[source]
	t.estimates[source] = actual
	t.touch()
}

// dropPending removes the estimates of sources that will never report.
func (t *progressTracker) dropPending(settled map[entities.Source]bool) {
	for s, est := range t.estimates {
		if !settled[s] {
			t.progress.Total -= est
			t.estimates[s] = 0
		}
	}
}

func (t *progressTracker) imported(title string) {
	t.progress.Imported++
	t.progress.CurrentBook = title
	t.touch()
}

func (t *progressTracker) failed(msg string) {
	t.progress.Failed++
	t.addError(msg)
}

func (t *progressTracker) skipped(title string) {
	t.progress.Skipped++
	t.progress.CurrentBook = title
	t.touch()
}

func (t *progressTracker) addError(msg string) {
	t.progress.Errors = append(t.progress.Errors, msg)
	t.touch()
}

func (t *progressTracker) complete() error {
	return t.finish(entities.ImportStatusCompleted, "")
}

func (t *progressTracker) fail(msg string) error {
	return t.finish(entities.ImportStatusError, msg)
}

func (t *progressTracker) finish(status entities.ImportStatus, msg string) error {
	if t.progress.Status.Terminal() {
		return fmt.Errorf("%w: already %s", ErrJobFinished, t.progress.Status)
	}
	if msg != "" {
		t.progress.Errors = append(t.progress.Errors, msg)
	}
	t.progress.Status = status
	t.progress.CurrentBook = ""
	t.touch()
	completed := t.progress.UpdatedAt
	t.progress.CompletedAt = &completed
	return nil
}

func (t *progressTracker) touch() {
	t.progress.UpdatedAt = t.now()
}

func (t *progressTracker) snapshot() entities.ImportProgress {
	return t.progress.Clone()
}
