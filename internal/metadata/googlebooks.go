package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	books "google.golang.org/api/books/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"

	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/normalize"
)

const googleBooksPageSize = 40

// GoogleBooksClient imports volumes from the Google Books API. The API is
// quota-limited; exhausting the quota surfaces as ErrQuotaExceeded.
type GoogleBooksClient struct {
	baseClient
	service *books.Service
}

var _ Adapter = (*GoogleBooksClient)(nil)

func NewGoogleBooksClient(ctx context.Context, cfg ClientConfig) (*GoogleBooksClient, error) {
	base := newBaseClient(entities.SourceGoogleBooks, cfg)

	// option.WithAPIKey is ignored once a custom client is supplied, so the
	// key rides on the transport instead.
	httpClient := base.httpClient
	if cfg.APIKey != "" {
		rt := httpClient.Transport
		if rt == nil {
			rt = http.DefaultTransport
		}
		httpClient = &http.Client{
			Timeout:   httpClient.Timeout,
			Transport: &transport.APIKey{Key: cfg.APIKey, Transport: rt},
		}
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	service, err := books.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create books service: %w", err)
	}

	return &GoogleBooksClient{baseClient: base, service: service}, nil
}

func (c *GoogleBooksClient) Search(ctx context.Context, opts entities.ImportOptions) []entities.ImportedBook {
	return c.Fetch(ctx, opts).Books()
}

func (c *GoogleBooksClient) Fetch(ctx context.Context, opts entities.ImportOptions) *Batch {
	query := googleBooksQuery(opts)
	pages := planPages(opts.Offset, opts.Limit, googleBooksPageSize, false)
	return c.collect(ctx, opts.Limit, pages, func(ctx context.Context, p page) pageResult {
		volumes, err := c.list(ctx, query, opts.Language, p)
		if err != nil {
			return pageResult{err: err}
		}

		outcomes := make([]ItemOutcome, 0, len(volumes.Items))
		for i, v := range volumes.Items {
			ref := fmt.Sprintf("offset %d", p.Offset+i)
			if v != nil && v.Id != "" {
				ref = v.Id
			}
			outcomes = append(outcomes, mapSafely(ref, func() (*entities.ImportedBook, error) {
				return c.mapVolume(v)
			}))
		}
		return pageResult{outcomes: outcomes, total: int(volumes.TotalItems)}
	})
}

func (c *GoogleBooksClient) list(ctx context.Context, query, language string, p page) (*books.Volumes, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	if err := c.wait(ctx); err != nil {
		return nil, &RequestError{Source: c.source, URL: "volumes", Err: err}
	}

	call := c.service.Volumes.List(query).
		MaxResults(int64(p.Size)).
		StartIndex(int64(p.Offset)).
		Context(ctx)
	if language != "" {
		call = call.LangRestrict(language)
	}
	volumes, err := call.Do()
	if err != nil {
		return nil, c.requestError(fmt.Sprintf("volumes?q=%s&startIndex=%d", query, p.Offset), err)
	}
	return volumes, nil
}

// googleBooksQuery builds the q parameter. The API rejects an empty query,
// so with no search and no category the default category is used.
func googleBooksQuery(opts entities.ImportOptions) string {
	var parts []string
	if opts.Search != "" {
		parts = append(parts, opts.Search)
	}
	if opts.Category != "" {
		parts = append(parts, "subject:"+opts.Category)
	}
	if len(parts) == 0 {
		parts = append(parts, "subject:"+strings.ToLower(entities.DefaultCategory))
	}
	return strings.Join(parts, " ")
}

// requestError converts client errors, mapping quota refusals to
// ErrQuotaExceeded.
func (c *GoogleBooksClient) requestError(url string, err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return &RequestError{Source: c.source, URL: url, Err: err}
	}
	if isQuotaError(apiErr) {
		err = fmt.Errorf("%w: %s", ErrQuotaExceeded, apiErr.Message)
	}
	return &RequestError{Source: c.source, URL: url, StatusCode: apiErr.Code, Err: err}
}

func isQuotaError(apiErr *googleapi.Error) bool {
	if apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	if apiErr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "dailyLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}

func (c *GoogleBooksClient) mapVolume(v *books.Volume) (*entities.ImportedBook, error) {
	if v == nil || v.VolumeInfo == nil {
		return nil, normalize.ErrMissingTitle
	}
	info := v.VolumeInfo

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode volume: %w", err)
	}

	author := ""
	if len(info.Authors) > 0 {
		author = info.Authors[0]
	}

	description := info.Description
	if normalize.IsTrivialDescription(description) {
		description = normalize.SynthesizeDescription(info.Title, author, info.Categories)
	}

	var ids []normalize.Identifier
	for _, id := range info.IndustryIdentifiers {
		if id != nil {
			ids = append(ids, normalize.Identifier{Type: id.Type, Value: id.Identifier})
		}
	}

	var cover *string
	if links := info.ImageLinks; links != nil {
		cover = normalize.BestImage(links.ExtraLarge, links.Large, links.Medium, links.Small, links.Thumbnail, links.SmallThumbnail)
	}

	contentURL := info.PreviewLink
	if contentURL == "" && v.AccessInfo != nil {
		contentURL = v.AccessInfo.WebReaderLink
	}

	book := &entities.ImportedBook{
		ExternalID:      v.Id,
		Title:           info.Title,
		Author:          author,
		Description:     description,
		Category:        normalize.Classify(info.Categories...),
		Tags:            normalize.BuildTags(info.Categories, info.Title+" "+description, c.limits.MaxTags),
		Language:        info.Language,
		ISBN:            normalize.PickISBN(ids),
		Publisher:       normalize.StringPtr(info.Publisher),
		PublicationYear: normalize.ExtractYear(info.PublishedDate),
		TotalPages:      normalize.IntPtr(int(info.PageCount)),
		CoverImage:      cover,
		ContentURL:      normalize.StringPtr(contentURL),
		Rating:          info.AverageRating,
		ExternalData:    raw,
	}
	return c.finalize(book)
}

// GetBookContent returns the volume's full description, falling back to the
// search snippet.
func (c *GoogleBooksClient) GetBookContent(ctx context.Context, externalID string) (string, bool) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	if err := c.wait(ctx); err != nil {
		return "", false
	}

	v, err := c.service.Volumes.Get(externalID).Context(ctx).Do()
	if err != nil {
		c.log.Warn().Err(c.requestError("volumes/"+externalID, err)).Str("ref", externalID).Msg("volume lookup failed")
		return "", false
	}

	text := ""
	if v.VolumeInfo != nil {
		text = v.VolumeInfo.Description
	}
	if text == "" && v.SearchInfo != nil {
		text = v.SearchInfo.TextSnippet
	}
	text = normalize.CleanDescription(text, 0)
	return text, text != ""
}
