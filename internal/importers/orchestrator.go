package importers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/metadata"
)

const cancelledNote = "import cancelled"

// Exporter persists accepted records. Records that fail to export are
// counted as failed.
type Exporter interface {
	Export(books []entities.ImportedBook) (int, error)
}

// Report is the outcome of one job: its final progress and every record it
// accepted, in arrival order.
type Report struct {
	Progress entities.ImportProgress
	Books    []entities.ImportedBook
}

// Orchestrator drives import jobs across the adapters of a Registry.
//
// Adapters run concurrently; their batches are sent over a channel to the
// goroutine that called Run, which is the only writer of the job's progress.
type Orchestrator struct {
	registry     *Registry
	exporter     Exporter
	reporter     ProgressReporter
	defaultLimit int
	log          zerolog.Logger
	now          func() time.Time
}

// NewOrchestrator creates an orchestrator over registry. defaultLimit is
// used when a job's options carry no limit.
func NewOrchestrator(registry *Registry, defaultLimit int, log zerolog.Logger) *Orchestrator {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &Orchestrator{
		registry:     registry,
		defaultLimit: defaultLimit,
		log:          log,
		now:          time.Now,
	}
}

// SetExporter sets where accepted records are saved (optional).
func (o *Orchestrator) SetExporter(exporter Exporter) {
	o.exporter = exporter
}

// SetProgressReporter sets the progress reporter for jobs (optional).
func (o *Orchestrator) SetProgressReporter(reporter ProgressReporter) {
	o.reporter = reporter
}

// Registry returns the registry the orchestrator resolves sources from.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Run starts a job with a fresh ID. See RunJob.
func (o *Orchestrator) Run(ctx context.Context, opts entities.ImportOptions, sources ...entities.Source) (*Report, error) {
	return o.RunJob(ctx, uuid.NewString(), opts, sources...)
}

// RunJob runs one import job to a terminal state. With no sources, every
// registered adapter is used.
//
// A returned error means the job itself was invalid (unknown source, bad
// options) and ended in the error state. Per-item and per-request failures
// are not errors: they are counted and listed in the report's progress, and
// the job still completes.
func (o *Orchestrator) RunJob(ctx context.Context, jobID string, opts entities.ImportOptions, sources ...entities.Source) (*Report, error) {
	log := o.log.With().Str("job_id", jobID).Logger()
	if err := opts.Validate(); err != nil {
		return o.abort(newProgressTracker(jobID, opts, sources, o.now), log, err)
	}
	opts = opts.WithDefaults(o.defaultLimit)
	tracker := newProgressTracker(jobID, opts, sources, o.now)

	adapters, err := o.registry.Resolve(sources)
	if err != nil {
		return o.abort(tracker, log, err)
	}
	if len(adapters) == 0 {
		return o.abort(tracker, log, fmt.Errorf("%w: no adapters registered", ErrUnknownSource))
	}

	resolved := make([]entities.Source, len(adapters))
	for i, a := range adapters {
		resolved[i] = a.Source()
	}
	if err := tracker.begin(resolved, opts.Limit); err != nil {
		return nil, err
	}
	o.report(log, o.startFn(), tracker)
	log.Info().Interface("sources", resolved).Int("limit", opts.Limit).Msg("import started")

	batches := make(chan *metadata.Batch, len(adapters))
	for _, a := range adapters {
		go func(a metadata.Adapter) {
			batch := a.Fetch(ctx, opts)
			if batch == nil {
				batch = &metadata.Batch{Source: a.Source()}
			}
			batch.Source = a.Source()
			batches <- batch
		}(a)
	}

	report := &Report{}
	seen := make(map[string]bool)
	settled := make(map[entities.Source]bool, len(adapters))

	for range adapters {
		var batch *metadata.Batch
		select {
		case batch = <-batches:
		case <-ctx.Done():
		}
		if batch == nil || ctx.Err() != nil {
			tracker.dropPending(settled)
			return o.finish(tracker, log, report, tracker.fail(cancelledNote))
		}

		settled[batch.Source] = true
		report.Books = append(report.Books, o.absorb(tracker, log, batch, seen)...)
		o.report(log, o.updateFn(), tracker)
	}

	return o.finish(tracker, log, report, tracker.complete())
}

// absorb counts one adapter's batch and returns the records it accepted.
func (o *Orchestrator) absorb(tracker *progressTracker, log zerolog.Logger, batch *metadata.Batch, seen map[string]bool) []entities.ImportedBook {
	tracker.settle(batch.Source, len(batch.Outcomes))

	for _, err := range batch.RequestErrors {
		tracker.addError(err.Error())
	}

	var accepted []entities.ImportedBook
	for _, out := range batch.Outcomes {
		if !out.OK() {
			tracker.failed(fmt.Sprintf("%s: %s: %v", batch.Source, out.Ref, out.Err))
			continue
		}
		book := *out.Book
		key := book.DedupKey()
		if seen[key] {
			tracker.skipped(book.Title)
			continue
		}
		seen[key] = true
		accepted = append(accepted, book)
	}

	if o.exporter != nil && len(accepted) > 0 {
		if _, err := o.exporter.Export(accepted); err != nil {
			log.Error().Err(err).Str("source", string(batch.Source)).Int("records", len(accepted)).Msg("export failed")
			for _, b := range accepted {
				tracker.failed(fmt.Sprintf("%s: %s: export failed: %v", batch.Source, b.ExternalID, err))
			}
			return nil
		}
	}

	for _, b := range accepted {
		tracker.imported(b.Title)
	}
	log.Info().
		Str("source", string(batch.Source)).
		Int("accepted", len(accepted)).
		Int("request_errors", len(batch.RequestErrors)).
		Msg("batch processed")
	return accepted
}

func (o *Orchestrator) abort(tracker *progressTracker, log zerolog.Logger, err error) (*Report, error) {
	log.Error().Err(err).Msg("import rejected")
	// A rejected job still passes through importing, with nothing to import.
	if berr := tracker.begin(tracker.progress.Sources, 0); berr != nil {
		return nil, berr
	}
	o.report(log, o.startFn(), tracker)
	if ferr := tracker.fail(err.Error()); ferr != nil {
		return nil, ferr
	}
	o.report(log, o.completeFn(), tracker)
	return &Report{Progress: tracker.snapshot()}, err
}

func (o *Orchestrator) finish(tracker *progressTracker, log zerolog.Logger, report *Report, err error) (*Report, error) {
	if err != nil {
		return nil, err
	}
	o.report(log, o.completeFn(), tracker)
	report.Progress = tracker.snapshot()
	p := report.Progress
	log.Info().
		Str("status", string(p.Status)).
		Int("total", p.Total).
		Int("imported", p.Imported).
		Int("failed", p.Failed).
		Int("skipped", p.Skipped).
		Msg("import finished")
	return report, nil
}

type reportFn func(entities.ImportProgress) error

func (o *Orchestrator) startFn() reportFn {
	if o.reporter == nil {
		return nil
	}
	return o.reporter.StartImport
}

func (o *Orchestrator) updateFn() reportFn {
	if o.reporter == nil {
		return nil
	}
	return o.reporter.UpdateProgress
}

func (o *Orchestrator) completeFn() reportFn {
	if o.reporter == nil {
		return nil
	}
	return o.reporter.CompleteImport
}

// report hands a snapshot to the reporter. Reporter failures are logged and
// never change the job's outcome.
func (o *Orchestrator) report(log zerolog.Logger, fn reportFn, tracker *progressTracker) {
	if fn == nil {
		return
	}
	if err := fn(tracker.snapshot()); err != nil {
		log.Warn().Err(err).Msg("failed to report progress")
	}
}
