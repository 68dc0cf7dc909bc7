package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/services"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ImportStarter starts import jobs. Implemented by services.ImportService.
type ImportStarter interface {
	StartExclusive(opts entities.ImportOptions, sources []entities.Source) (*entities.ImportProgress, error)
}

// ImportScheduleConfig describes the recurring import.
type ImportScheduleConfig struct {
	Enabled  bool
	Schedule string
	Sources  []entities.Source
	Options  entities.ImportOptions
}

// ImportScheduler manages periodic catalog imports.
type ImportScheduler struct {
	starter ImportStarter
	config  ImportScheduleConfig
	log     zerolog.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	lastJobID  string
	cancelFunc context.CancelFunc
}

// NewImportScheduler creates a new scheduler instance
func NewImportScheduler(starter ImportStarter, config ImportScheduleConfig, log zerolog.Logger) *ImportScheduler {
	return &ImportScheduler{
		starter: starter,
		config:  config,
		log:     log.With().Str("component", "import_scheduler").Logger(),
		cron:    cron.New(cron.WithParser(cronParser)),
	}
}

// ValidateCronSchedule validates a five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// Start begins the scheduler if scheduled imports are enabled
func (s *ImportScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.Enabled {
		s.log.Info().Msg("scheduled imports disabled")
		return nil
	}

	if err := ValidateCronSchedule(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.config.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, s.runImport)
	if err != nil {
		return fmt.Errorf("failed to schedule import job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	s.log.Info().
		Str("schedule", s.config.Schedule).
		Interface("sources", s.config.Sources).
		Time("next_run", s.cron.Entry(entryID).Next).
		Msg("import scheduler started")

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler
func (s *ImportScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancelFunc
	s.cancelFunc = nil
	s.mu.Unlock()

	// Stop accepting new runs and wait for a running trigger to return
	ctx := s.cron.Stop()
	<-ctx.Done()
	if cancel != nil {
		cancel()
	}

	s.log.Info().Msg("import scheduler stopped")
}

// RunNow triggers an import immediately, outside the schedule.
func (s *ImportScheduler) RunNow() {
	s.runImport()
}

// IsRunning returns whether the scheduler is active
func (s *ImportScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// LastJobID returns the ID of the last job the scheduler started.
func (s *ImportScheduler) LastJobID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastJobID
}

// GetNextRunTime returns when the next import will occur
func (s *ImportScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() {
		return nil
	}
	return &entry.Next
}

// runImport starts one job unless another import is still running.
func (s *ImportScheduler) runImport() {
	job, err := s.starter.StartExclusive(s.config.Options, s.config.Sources)
	if errors.Is(err, services.ErrImportRunning) {
		s.log.Info().Msg("scheduled import skipped, an import is already running")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled import failed to start")
		return
	}

	s.mu.Lock()
	s.lastJobID = job.JobID
	s.mu.Unlock()

	s.log.Info().Str("job_id", job.JobID).Msg("scheduled import started")
}
