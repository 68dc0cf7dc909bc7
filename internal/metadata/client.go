package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/normalize"
)

const (
	defaultRequestTimeout = 20 * time.Second
	defaultPageWorkers    = 3
	userAgent             = "CatalogImport/1.0 (https://github.com/mrlokans/catalogimport)"
	maxContentBytes       = 2 << 20
)

var ErrQuotaExceeded = errors.New("provider quota exceeded")

// RequestError is a failed provider request: transport error, timeout or
// non-2xx status.
type RequestError struct {
	Source     entities.Source
	URL        string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: request %s: status %d: %v", e.Source, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: request %s: %v", e.Source, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether retrying the request later might succeed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode == http.StatusTooManyRequests || reqErr.StatusCode >= 500
	}
	return false
}

// ClientConfig configures a provider adapter. Zero values fall back to
// production defaults.
type ClientConfig struct {
	BaseURL string
	// MirrorURL is the raw-text mirror used as the last content fallback.
	MirrorURL string
	APIKey    string

	HTTPClient     *http.Client
	RequestTimeout time.Duration
	// RateInterval is the minimum spacing between requests to one provider.
	RateInterval time.Duration
	PageWorkers  int
	Limits       normalize.Limits
	Logger       zerolog.Logger
}

// NewHTTPClient returns the instrumented client shared by the adapters.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// baseClient holds the plumbing every adapter shares: the HTTP client,
// the per-provider rate limiter and the bounded page fan-out.
type baseClient struct {
	source         entities.Source
	httpClient     *http.Client
	limiter        *rate.Limiter
	requestTimeout time.Duration
	workers        int
	limits         normalize.Limits
	log            zerolog.Logger
}

func newBaseClient(source entities.Source, cfg ClientConfig) baseClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(timeout)
	}
	limit := rate.Inf
	if cfg.RateInterval > 0 {
		limit = rate.Every(cfg.RateInterval)
	}
	workers := cfg.PageWorkers
	if workers <= 0 {
		workers = defaultPageWorkers
	}
	limits := cfg.Limits
	if limits.MaxTags <= 0 {
		limits.MaxTags = normalize.DefaultMaxTags
	}
	if limits.MaxDescription <= 0 {
		limits.MaxDescription = normalize.DefaultLimits().MaxDescription
	}

	return baseClient{
		source:         source,
		httpClient:     httpClient,
		limiter:        rate.NewLimiter(limit, 1),
		requestTimeout: timeout,
		workers:        workers,
		limits:         limits,
		log:            cfg.Logger.With().Str("source", string(source)).Logger(),
	}
}

func (c *baseClient) Source() entities.Source {
	return c.source
}

// wait blocks until the provider's rate limiter admits one request.
func (c *baseClient) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

func (c *baseClient) get(ctx context.Context, url string) (*http.Response, error) {
	if err := c.wait(ctx); err != nil {
		return nil, &RequestError{Source: c.source, URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &RequestError{Source: c.source, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Source: c.source, URL: url, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err := fmt.Errorf("unexpected status %s", resp.Status)
		if resp.StatusCode == http.StatusTooManyRequests {
			err = ErrQuotaExceeded
		}
		return nil, &RequestError{Source: c.source, URL: url, StatusCode: resp.StatusCode, Err: err}
	}
	return resp, nil
}

func (c *baseClient) getJSON(ctx context.Context, url string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &RequestError{Source: c.source, URL: url, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// getText reads at most maxContentBytes of a plain-text body.
func (c *baseClient) getText(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentBytes))
	if err != nil {
		return "", &RequestError{Source: c.source, URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return string(body), nil
}

// page is one provider request in a paged fetch.
type page struct {
	Number int
	Offset int
	Size   int
	// Skip drops leading items when the provider pages on fixed boundaries.
	Skip int
}

// planPages splits [offset, offset+limit) into provider-sized requests.
// fixedSize providers cannot start mid-page, so the first page carries a Skip.
func planPages(offset, limit, pageSize int, fixedSize bool) []page {
	if limit <= 0 || pageSize <= 0 {
		return nil
	}
	var pages []page
	if fixedSize {
		first := offset / pageSize
		skip := offset % pageSize
		last := (offset + limit - 1) / pageSize
		for n := first; n <= last; n++ {
			p := page{Number: n + 1, Offset: n * pageSize, Size: pageSize}
			if n == first {
				p.Skip = skip
			}
			pages = append(pages, p)
		}
		return pages
	}

	for start := offset; start < offset+limit; start += pageSize {
		size := min(pageSize, offset+limit-start)
		pages = append(pages, page{Number: len(pages) + 1, Offset: start, Size: size})
	}
	return pages
}

// pageResult is what one page request produced.
type pageResult struct {
	outcomes []ItemOutcome
	total    int
	err      error
}

type pageFetcher func(ctx context.Context, p page) pageResult

// collect runs the page requests with bounded concurrency and assembles one
// Batch in page order. A failed page becomes a request error and contributes
// no items; it does not stop the other pages. The result is capped at limit
// successful records.
func (c *baseClient) collect(ctx context.Context, limit int, pages []page, fetch pageFetcher) *Batch {
	results := make([]pageResult, len(pages))

	var g errgroup.Group
	g.SetLimit(c.workers)
	var mu sync.Mutex
	stop := false

	for i, p := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = pageResult{err: &RequestError{Source: c.source, URL: fmt.Sprintf("page %d", p.Number), Err: err}}
				return nil
			}
			mu.Lock()
			done := stop
			mu.Unlock()
			if done {
				return nil
			}

			res := fetch(ctx, p)
			if res.err == nil && p.Skip > 0 {
				res.outcomes = res.outcomes[min(p.Skip, len(res.outcomes)):]
			}
			// A short page means the provider ran out of matches.
			if res.err == nil && len(res.outcomes)+p.Skip < p.Size {
				mu.Lock()
				stop = true
				mu.Unlock()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	batch := &Batch{Source: c.source}
	accepted := 0
	for _, res := range results {
		if res.err != nil {
			c.log.Error().Err(res.err).Msg("page request failed")
			batch.RequestErrors = append(batch.RequestErrors, res.err)
			continue
		}
		if res.total > batch.ReportedTotal {
			batch.ReportedTotal = res.total
		}
		for _, o := range res.outcomes {
			if accepted >= limit {
				break
			}
			if o.OK() {
				accepted++
			} else {
				c.log.Warn().Str("ref", o.Ref).Err(o.Err).Msg("dropping item")
			}
			batch.Outcomes = append(batch.Outcomes, o)
		}
	}
	return batch
}

// finalize stamps the source and runs the shared normalization step.
func (c *baseClient) finalize(b *entities.ImportedBook) (*entities.ImportedBook, error) {
	b.Source = c.source
	if err := normalize.Finalize(b, c.limits); err != nil {
		return nil, err
	}
	return b, nil
}
