package importers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/metadata"
	"github.com/mrlokans/catalogimport/internal/normalize"
)

type fakeAdapter struct {
	source entities.Source
	batch  metadata.Batch
	fetch  func(ctx context.Context, opts entities.ImportOptions) *metadata.Batch
	calls  atomic.Int32
}

var _ metadata.Adapter = (*fakeAdapter)(nil)

func (f *fakeAdapter) Source() entities.Source { return f.source }

func (f *fakeAdapter) Search(ctx context.Context, opts entities.ImportOptions) []entities.ImportedBook {
	return f.Fetch(ctx, opts).Books()
}

func (f *fakeAdapter) Fetch(ctx context.Context, opts entities.ImportOptions) *metadata.Batch {
	f.calls.Add(1)
	if f.fetch != nil {
		return f.fetch(ctx, opts)
	}
	b := f.batch
	return &b
}

func (f *fakeAdapter) GetBookContent(ctx context.Context, externalID string) (string, bool) {
	return "", false
}

func okOutcomes(source entities.Source, ids ...string) []metadata.ItemOutcome {
	out := make([]metadata.ItemOutcome, 0, len(ids))
	for _, id := range ids {
		out = append(out, metadata.ItemOutcome{Ref: id, Book: &entities.ImportedBook{
			Source:     source,
			ExternalID: id,
			Title:      "Book " + id,
			Category:   entities.DefaultCategory,
			Rating:     normalize.NeutralRating,
		}})
	}
	return out
}

func numberedIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%d", i)
	}
	return ids
}

type recordingReporter struct {
	mu        sync.Mutex
	snapshots []entities.ImportProgress
	calls     []string
}

func (r *recordingReporter) record(call string, p entities.ImportProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	r.snapshots = append(r.snapshots, p)
	return nil
}

func (r *recordingReporter) statuses() []entities.ImportStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.ImportStatus, len(r.snapshots))
	for i, p := range r.snapshots {
		out[i] = p.Status
	}
	return out
}

func (r *recordingReporter) StartImport(p entities.ImportProgress) error {
	return r.record("start", p)
}

func (r *recordingReporter) UpdateProgress(p entities.ImportProgress) error {
	return r.record("update", p)
}

func (r *recordingReporter) CompleteImport(p entities.ImportProgress) error {
	return r.record("complete", p)
}

type fakeExporter struct {
	exported []entities.ImportedBook
	err      error
}

func (e *fakeExporter) Export(books []entities.ImportedBook) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	e.exported = append(e.exported, books...)
	return len(books), nil
}

func newTestOrchestrator(adapters ...metadata.Adapter) *Orchestrator {
	return NewOrchestrator(NewRegistry(adapters...), 10, zerolog.Nop())
}

func assertBalanced(t *testing.T, p entities.ImportProgress) {
	t.Helper()
	assert.Equal(t, p.Total, p.Imported+p.Failed+p.Skipped, "counts must add up to total")
}

func TestOrchestrator_OneAdapterTimesOut(t *testing.T) {
	slow := &fakeAdapter{source: entities.SourceGutendex, batch: metadata.Batch{
		Source: entities.SourceGutendex,
		RequestErrors: []error{&metadata.RequestError{
			Source: entities.SourceGutendex,
			URL:    "https://gutendex.com/books?page=1",
			Err:    context.DeadlineExceeded,
		}},
	}}
	healthy := &fakeAdapter{source: entities.SourceOpenLibrary, batch: metadata.Batch{
		Source:   entities.SourceOpenLibrary,
		Outcomes: okOutcomes(entities.SourceOpenLibrary, numberedIDs(10)...),
	}}

	report, err := newTestOrchestrator(slow, healthy).Run(context.Background(), entities.ImportOptions{Search: "stoicism", Limit: 10})
	require.NoError(t, err)

	p := report.Progress
	assert.Equal(t, entities.ImportStatusCompleted, p.Status)
	assert.Equal(t, 10, p.Imported)
	assert.Equal(t, 0, p.Failed)
	require.NotEmpty(t, p.Errors)
	assert.Contains(t, p.Errors[0], "gutendex")
	assertBalanced(t, p)
	assert.NotNil(t, p.CompletedAt)
	assert.Len(t, report.Books, 10)
	assert.NotEmpty(t, p.JobID)
}

func TestOrchestrator_CountsFailuresAndDuplicates(t *testing.T) {
	outcomes := okOutcomes(entities.SourceGutendex, "1", "2", "1")
	outcomes = append(outcomes, metadata.ItemOutcome{Ref: "page 1 item 3", Err: normalize.ErrMissingTitle})
	adapter := &fakeAdapter{source: entities.SourceGutendex, batch: metadata.Batch{Outcomes: outcomes}}

	report, err := newTestOrchestrator(adapter).Run(context.Background(), entities.ImportOptions{Limit: 5})
	require.NoError(t, err)

	p := report.Progress
	assert.Equal(t, entities.ImportStatusCompleted, p.Status)
	assert.Equal(t, 2, p.Imported)
	assert.Equal(t, 1, p.Skipped)
	assert.Equal(t, 1, p.Failed)
	assert.Equal(t, 4, p.Total)
	assertBalanced(t, p)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, "gutendex: page 1 item 3: missing title", p.Errors[0])
}

func TestOrchestrator_SameIDFromDifferentSourcesIsNotDuplicate(t *testing.T) {
	a := &fakeAdapter{source: entities.SourceGutendex, batch: metadata.Batch{Outcomes: okOutcomes(entities.SourceGutendex, "42")}}
	b := &fakeAdapter{source: entities.SourceOpenLibrary, batch: metadata.Batch{Outcomes: okOutcomes(entities.SourceOpenLibrary, "42")}}

	report, err := newTestOrchestrator(a, b).Run(context.Background(), entities.ImportOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Progress.Imported)
	assert.Equal(t, 0, report.Progress.Skipped)
}

func TestOrchestrator_UnknownSourceIsFatal(t *testing.T) {
	adapter := &fakeAdapter{source: entities.SourceGutendex}
	reporter := &recordingReporter{}
	orchestrator := newTestOrchestrator(adapter)
	orchestrator.SetProgressReporter(reporter)

	report, err := orchestrator.Run(context.Background(), entities.ImportOptions{Limit: 5}, entities.SourceGutendex, "hathitrust")

	require.ErrorIs(t, err, ErrUnknownSource)
	require.NotNil(t, report)
	assert.Equal(t, entities.ImportStatusError, report.Progress.Status)
	require.Len(t, report.Progress.Errors, 1)
	assert.Contains(t, report.Progress.Errors[0], "unknown source")
	assertBalanced(t, report.Progress)
	assert.Zero(t, adapter.calls.Load(), "no adapter runs when any source is unknown")
	assert.Equal(t, []string{"start", "complete"}, reporter.calls)
	assert.Equal(t, []entities.ImportStatus{entities.ImportStatusImporting, entities.ImportStatusError}, reporter.statuses())
}

func TestOrchestrator_EmptyRegistryIsFatal(t *testing.T) {
	report, err := newTestOrchestrator().Run(context.Background(), entities.ImportOptions{})

	require.ErrorIs(t, err, ErrUnknownSource)
	assert.Equal(t, entities.ImportStatusError, report.Progress.Status)
}

func TestOrchestrator_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts entities.ImportOptions
	}{
		{"negative offset", entities.ImportOptions{Offset: -1}},
		{"negative limit is not replaced by the default", entities.ImportOptions{Limit: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := &fakeAdapter{source: entities.SourceGutendex}

			report, err := newTestOrchestrator(adapter).Run(context.Background(), tt.opts)

			require.ErrorIs(t, err, entities.ErrInvalidOptions)
			assert.Equal(t, entities.ImportStatusError, report.Progress.Status)
			assertBalanced(t, report.Progress)
			assert.Zero(t, adapter.calls.Load())
		})
	}
}

func TestOrchestrator_DefaultLimit(t *testing.T) {
	var gotLimit int
	adapter := &fakeAdapter{source: entities.SourceGutendex, fetch: func(ctx context.Context, opts entities.ImportOptions) *metadata.Batch {
		gotLimit = opts.Limit
		return &metadata.Batch{}
	}}

	report, err := newTestOrchestrator(adapter).Run(context.Background(), entities.ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 10, gotLimit)
	assert.Equal(t, 10, report.Progress.Options.Limit)
	assert.Equal(t, 0, report.Progress.Total, "estimate replaced by the real item count")
	assert.Equal(t, entities.ImportStatusCompleted, report.Progress.Status)
}

func TestOrchestrator_Cancellation(t *testing.T) {
	started := make(chan struct{})
	blocking := &fakeAdapter{source: entities.SourceGutendex, fetch: func(ctx context.Context, opts entities.ImportOptions) *metadata.Batch {
		close(started)
		<-ctx.Done()
		return &metadata.Batch{RequestErrors: []error{ctx.Err()}}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	report, err := newTestOrchestrator(blocking).Run(ctx, entities.ImportOptions{Limit: 5})
	require.NoError(t, err)

	p := report.Progress
	assert.Equal(t, entities.ImportStatusError, p.Status)
	assert.Contains(t, p.Errors, "import cancelled")
	assertBalanced(t, p)
}

func TestOrchestrator_ReportsProgress(t *testing.T) {
	a := &fakeAdapter{source: entities.SourceGutendex, batch: metadata.Batch{Outcomes: okOutcomes(entities.SourceGutendex, "1", "2")}}
	b := &fakeAdapter{source: entities.SourceOpenLibrary, batch: metadata.Batch{Outcomes: okOutcomes(entities.SourceOpenLibrary, "3")}}
	reporter := &recordingReporter{}
	orchestrator := newTestOrchestrator(a, b)
	orchestrator.SetProgressReporter(reporter)

	_, err := orchestrator.RunJob(context.Background(), "job-1", entities.ImportOptions{Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "update", "update", "complete"}, reporter.calls)
	first := reporter.snapshots[0]
	assert.Equal(t, "job-1", first.JobID)
	assert.Equal(t, entities.ImportStatusImporting, first.Status)
	assert.Equal(t, 10, first.Total, "limit times adapters before any batch arrives")

	for _, s := range reporter.snapshots {
		assert.LessOrEqual(t, s.Processed(), s.Total)
	}
	last := reporter.snapshots[len(reporter.snapshots)-1]
	assert.Equal(t, entities.ImportStatusCompleted, last.Status)
	assert.Equal(t, 3, last.Imported)
	assertBalanced(t, last)
}

func TestOrchestrator_Exporter(t *testing.T) {
	adapter := &fakeAdapter{source: entities.SourceGutendex, batch: metadata.Batch{Outcomes: okOutcomes(entities.SourceGutendex, "1", "2")}}

	t.Run("saves accepted records", func(t *testing.T) {
		exporter := &fakeExporter{}
		orchestrator := newTestOrchestrator(adapter)
		orchestrator.SetExporter(exporter)

		report, err := orchestrator.Run(context.Background(), entities.ImportOptions{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, exporter.exported, 2)
		assert.Equal(t, 2, report.Progress.Imported)
	})

	t.Run("export failure counts as failed", func(t *testing.T) {
		orchestrator := newTestOrchestrator(adapter)
		orchestrator.SetExporter(&fakeExporter{err: errors.New("disk full")})

		report, err := orchestrator.Run(context.Background(), entities.ImportOptions{Limit: 2})
		require.NoError(t, err)

		p := report.Progress
		assert.Equal(t, entities.ImportStatusCompleted, p.Status)
		assert.Equal(t, 0, p.Imported)
		assert.Equal(t, 2, p.Failed)
		assert.Len(t, p.Errors, 2)
		assert.Empty(t, report.Books)
		assertBalanced(t, p)
	})
}

func TestOrchestrator_WithProviderServers(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	docs := make([]map[string]any, 10)
	for i := range docs {
		docs[i] = map[string]any{
			"key":         fmt.Sprintf("/works/OL%dW", i+1),
			"title":       fmt.Sprintf("Stoic Text %d", i+1),
			"author_name": []string{"Seneca"},
			"subject":     []string{"Stoics"},
		}
	}
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"numFound": 10, "docs": docs})
	}))
	defer healthy.Close()

	registry := NewRegistry(
		metadata.NewGutendexClient(metadata.ClientConfig{BaseURL: slow.URL, RequestTimeout: 50 * time.Millisecond, Logger: zerolog.Nop()}),
		metadata.NewOpenLibraryClient(metadata.ClientConfig{BaseURL: healthy.URL, Logger: zerolog.Nop()}),
	)

	report, err := NewOrchestrator(registry, 10, zerolog.Nop()).Run(context.Background(), entities.ImportOptions{Search: "stoicism", Limit: 10})
	require.NoError(t, err)

	p := report.Progress
	assert.Equal(t, entities.ImportStatusCompleted, p.Status)
	assert.Equal(t, 10, p.Imported)
	require.NotEmpty(t, p.Errors)
	assert.Contains(t, p.Errors[0], "gutendex")
	assertBalanced(t, p)
	for _, b := range report.Books {
		assert.Equal(t, "Philosophy", b.Category)
		assert.Equal(t, entities.SourceOpenLibrary, b.Source)
	}
}
