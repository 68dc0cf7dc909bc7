package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/services"
)

type fakeStarter struct {
	mu      sync.Mutex
	calls   int
	err     error
	sources []entities.Source
	opts    entities.ImportOptions
}

func (f *fakeStarter) StartExclusive(opts entities.ImportOptions, sources []entities.Source) (*entities.ImportProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.opts = opts
	f.sources = sources
	if f.err != nil {
		return nil, f.err
	}
	return &entities.ImportProgress{JobID: "job-1", Status: entities.ImportStatusIdle}, nil
}

func TestValidateCronSchedule(t *testing.T) {
	assert.NoError(t, ValidateCronSchedule("0 3 * * *"))
	assert.NoError(t, ValidateCronSchedule("*/15 * * * *"))
	assert.Error(t, ValidateCronSchedule("every day"))
	assert.Error(t, ValidateCronSchedule("0 0 3 * * *"), "seconds field is not accepted")
}

func TestImportScheduler_Disabled(t *testing.T) {
	s := NewImportScheduler(&fakeStarter{}, ImportScheduleConfig{Enabled: false}, zerolog.Nop())

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.GetNextRunTime())
}

func TestImportScheduler_InvalidSchedule(t *testing.T) {
	s := NewImportScheduler(&fakeStarter{}, ImportScheduleConfig{Enabled: true, Schedule: "nope"}, zerolog.Nop())

	err := s.Start(context.Background())
	assert.Error(t, err)
	assert.False(t, s.IsRunning())
}

func TestImportScheduler_StartStop(t *testing.T) {
	s := NewImportScheduler(&fakeStarter{}, ImportScheduleConfig{Enabled: true, Schedule: "0 3 * * *"}, zerolog.Nop())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.NotNil(t, s.GetNextRunTime())

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.GetNextRunTime())
}

func TestImportScheduler_RunNow(t *testing.T) {
	starter := &fakeStarter{}
	cfg := ImportScheduleConfig{
		Enabled:  true,
		Schedule: "0 3 * * *",
		Sources:  []entities.Source{entities.SourceGutendex},
		Options:  entities.ImportOptions{Category: "Philosophy", Limit: 25},
	}
	s := NewImportScheduler(starter, cfg, zerolog.Nop())

	s.RunNow()

	assert.Equal(t, 1, starter.calls)
	assert.Equal(t, cfg.Sources, starter.sources)
	assert.Equal(t, cfg.Options, starter.opts)
	assert.Equal(t, "job-1", s.LastJobID())
}

func TestImportScheduler_SkipsWhileImportRunning(t *testing.T) {
	starter := &fakeStarter{err: services.ErrImportRunning}
	s := NewImportScheduler(starter, ImportScheduleConfig{Enabled: true, Schedule: "0 3 * * *"}, zerolog.Nop())

	s.RunNow()

	assert.Equal(t, 1, starter.calls)
	assert.Empty(t, s.LastJobID())
}

func TestImportScheduler_StartFailureIsLogged(t *testing.T) {
	starter := &fakeStarter{err: errors.New("unknown source")}
	s := NewImportScheduler(starter, ImportScheduleConfig{Enabled: true, Schedule: "0 3 * * *"}, zerolog.Nop())

	s.RunNow()
	assert.Empty(t, s.LastJobID())
}
