package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/importers"
)

// ErrImportRunning is returned when a new job is refused because another
// one has not finished.
var ErrImportRunning = errors.New("an import is already running")

// ImportService starts import jobs on behalf of the HTTP API and the
// scheduler. A job is recorded as pending first, so its ID can be polled
// immediately, then either queued for a worker or run in the background.
type ImportService struct {
	orchestrator *importers.Orchestrator
	jobs         JobStore
	queue        JobQueue
	log          zerolog.Logger

	// startMu serializes job creation so the running check in
	// StartExclusive and the pending insert cannot interleave.
	startMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewImportService creates a new ImportService. Jobs are run in-process
// until a queue is set with SetQueue.
func NewImportService(orchestrator *importers.Orchestrator, jobs JobStore, log zerolog.Logger) *ImportService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ImportService{
		orchestrator: orchestrator,
		jobs:         jobs,
		log:          log.With().Str("component", "import_service").Logger(),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// SetQueue makes StartImport enqueue jobs instead of running them in-process.
func (s *ImportService) SetQueue(queue JobQueue) {
	s.queue = queue
}

// Sources lists the sources jobs can be started for.
func (s *ImportService) Sources() []entities.Source {
	return s.orchestrator.Registry().ListSupportedSources()
}

// StartImport validates a job request, records it as pending and hands it
// off. An unknown source or invalid options fail here, before any job row
// is written.
func (s *ImportService) StartImport(opts entities.ImportOptions, sources []entities.Source) (*entities.ImportProgress, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	return s.start(opts, sources)
}

// StartExclusive is StartImport, refused with ErrImportRunning while any
// other job is pending or importing.
func (s *ImportService) StartExclusive(opts entities.ImportOptions, sources []entities.Source) (*entities.ImportProgress, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	running, err := s.jobs.IsImportRunning()
	if err != nil {
		return nil, fmt.Errorf("check running imports: %w", err)
	}
	if running {
		return nil, ErrImportRunning
	}
	return s.start(opts, sources)
}

func (s *ImportService) start(opts entities.ImportOptions, sources []entities.Source) (*entities.ImportProgress, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	adapters, err := s.orchestrator.Registry().Resolve(sources)
	if err != nil {
		return nil, err
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("%w: no adapters registered", importers.ErrUnknownSource)
	}

	jobID := uuid.NewString()
	pending, err := s.jobs.CreatePending(jobID, opts, sources)
	if err != nil {
		return nil, fmt.Errorf("record pending job: %w", err)
	}
	log := s.log.With().Str("job_id", jobID).Logger()

	if s.queue != nil {
		if err := s.queue.EnqueueImport(jobID, opts, sources); err != nil {
			s.abandon(*pending, err)
			return nil, fmt.Errorf("enqueue import: %w", err)
		}
		log.Info().Msg("import queued")
		return pending, nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.orchestrator.RunJob(s.ctx, jobID, opts, sources...); err != nil {
			log.Error().Err(err).Msg("import job failed")
		}
	}()
	log.Info().Msg("import started in-process")
	return pending, nil
}

// GetJob returns the latest progress of one job.
func (s *ImportService) GetJob(jobID string) (*entities.ImportProgress, error) {
	return s.jobs.GetProgress(jobID)
}

// RecentJobs returns the most recently started jobs.
func (s *ImportService) RecentJobs(limit int) ([]entities.ImportProgress, error) {
	return s.jobs.ListRecent(limit)
}

// IsImportRunning reports whether any job is pending or importing.
func (s *ImportService) IsImportRunning() (bool, error) {
	return s.jobs.IsImportRunning()
}

// Close cancels in-process jobs and waits for them to reach a terminal state.
func (s *ImportService) Close() {
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until every in-process job has finished.
func (s *ImportService) Wait() {
	s.wg.Wait()
}

// abandon closes a pending job that never reached a worker.
func (s *ImportService) abandon(p entities.ImportProgress, cause error) {
	now := time.Now()
	p.Status = entities.ImportStatusError
	p.Errors = append(p.Errors, fmt.Sprintf("enqueue failed: %v", cause))
	p.UpdatedAt = now
	p.CompletedAt = &now
	if err := s.jobs.CompleteImport(p); err != nil {
		s.log.Error().Err(err).Str("job_id", p.JobID).Msg("failed to record abandoned job")
	}
}
