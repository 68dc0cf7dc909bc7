package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/normalize"
)

const (
	gutendexBaseURL    = "https://gutendex.com"
	gutenbergMirror    = "https://www.gutenberg.org"
	gutendexPageSize   = 32
	gutenbergPublisher = "Project Gutenberg"
)

// Plain-text formats in the order GetBookContent tries them.
var gutendexTextFormats = []string{
	"text/plain; charset=utf-8",
	"text/plain; charset=us-ascii",
	"text/plain",
}

// GutendexClient imports public-domain books through the Gutendex API.
type GutendexClient struct {
	baseClient
	baseURL   string
	mirrorURL string
}

var _ Adapter = (*GutendexClient)(nil)

func NewGutendexClient(cfg ClientConfig) *GutendexClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = gutendexBaseURL
	}
	mirror := cfg.MirrorURL
	if mirror == "" {
		mirror = gutenbergMirror
	}
	return &GutendexClient{
		baseClient: newBaseClient(entities.SourceGutendex, cfg),
		baseURL:    strings.TrimRight(baseURL, "/"),
		mirrorURL:  strings.TrimRight(mirror, "/"),
	}
}

type gutendexResponse struct {
	Count   int               `json:"count"`
	Next    *string           `json:"next"`
	Results []json.RawMessage `json:"results"`
}

type gutendexPerson struct {
	Name      string `json:"name"`
	BirthYear *int   `json:"birth_year"`
	DeathYear *int   `json:"death_year"`
}

type gutendexBook struct {
	ID            int               `json:"id"`
	Title         string            `json:"title"`
	Authors       []gutendexPerson  `json:"authors"`
	Summaries     []string          `json:"summaries"`
	Subjects      []string          `json:"subjects"`
	Bookshelves   []string          `json:"bookshelves"`
	Languages     []string          `json:"languages"`
	Formats       map[string]string `json:"formats"`
	DownloadCount int64             `json:"download_count"`
}

func (c *GutendexClient) Search(ctx context.Context, opts entities.ImportOptions) []entities.ImportedBook {
	return c.Fetch(ctx, opts).Books()
}

func (c *GutendexClient) Fetch(ctx context.Context, opts entities.ImportOptions) *Batch {
	pages := planPages(opts.Offset, opts.Limit, gutendexPageSize, true)
	return c.collect(ctx, opts.Limit, pages, func(ctx context.Context, p page) pageResult {
		var resp gutendexResponse
		if err := c.getJSON(ctx, c.searchURL(opts, p.Number), &resp); err != nil {
			return pageResult{err: err}
		}

		outcomes := make([]ItemOutcome, 0, len(resp.Results))
		for i, raw := range resp.Results {
			ref := fmt.Sprintf("page %d item %d", p.Number, i)
			outcomes = append(outcomes, mapSafely(ref, func() (*entities.ImportedBook, error) {
				return c.mapBook(raw)
			}))
		}
		return pageResult{outcomes: outcomes, total: resp.Count}
	})
}

func (c *GutendexClient) searchURL(opts entities.ImportOptions, pageNumber int) string {
	params := url.Values{}
	if opts.Search != "" {
		params.Set("search", opts.Search)
	}
	if opts.Category != "" {
		params.Set("topic", opts.Category)
	}
	if opts.Language != "" {
		params.Set("languages", opts.Language)
	}
	params.Set("page", strconv.Itoa(pageNumber))
	return c.baseURL + "/books?" + params.Encode()
}

func (c *GutendexClient) mapBook(raw json.RawMessage) (*entities.ImportedBook, error) {
	var item gutendexBook
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}

	id := ""
	if item.ID > 0 {
		id = strconv.Itoa(item.ID)
	}
	author := ""
	if len(item.Authors) > 0 {
		author = gutenbergDisplayName(item.Authors[0].Name)
	}
	language := ""
	if len(item.Languages) > 0 {
		language = item.Languages[0]
	}

	description := ""
	if len(item.Summaries) > 0 && !normalize.IsTrivialDescription(item.Summaries[0]) {
		description = item.Summaries[0]
	} else {
		description = normalize.SynthesizeDescription(item.Title, author, item.Subjects)
	}

	classifyOn := append(append([]string{}, item.Subjects...), item.Bookshelves...)

	book := &entities.ImportedBook{
		ExternalID:   id,
		Title:        item.Title,
		Author:       author,
		Description:  description,
		Category:     normalize.Classify(classifyOn...),
		Tags:         normalize.BuildTags(item.Subjects, item.Title+" "+description, c.limits.MaxTags),
		Language:     language,
		Publisher:    normalize.StringPtr(gutenbergPublisher),
		CoverImage:   normalize.BestImage(item.Formats["image/jpeg"]),
		ContentURL:   normalize.StringPtr(c.textURL(item.ID, item.Formats)),
		Rating:       normalize.RatingFromPopularity(item.DownloadCount),
		ExternalData: raw,
	}
	return c.finalize(book)
}

func (c *GutendexClient) mirrorTextURL(id string) string {
	return fmt.Sprintf("%s/cache/epub/%s/pg%s.txt", c.mirrorURL, id, id)
}

func (c *GutendexClient) textURL(id int, formats map[string]string) string {
	for _, f := range gutendexTextFormats {
		if u := formats[f]; u != "" {
			return u
		}
	}
	if id <= 0 {
		return ""
	}
	return c.mirrorTextURL(strconv.Itoa(id))
}

// GetBookContent downloads the plain text of a book, trying the formats the
// catalog lists before falling back to the mirror's cache path.
func (c *GutendexClient) GetBookContent(ctx context.Context, externalID string) (string, bool) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return "", false
	}

	var candidates []string
	var item gutendexBook
	if err := c.getJSON(ctx, c.baseURL+"/books/"+url.PathEscape(externalID), &item); err != nil {
		c.log.Warn().Err(err).Str("ref", externalID).Msg("book lookup failed, trying mirror")
	} else {
		for _, f := range gutendexTextFormats {
			if u := item.Formats[f]; u != "" {
				candidates = append(candidates, u)
			}
		}
	}
	candidates = append(candidates, c.mirrorTextURL(externalID))

	for _, u := range candidates {
		text, err := c.getText(ctx, u)
		if err != nil {
			c.log.Debug().Err(err).Str("url", u).Msg("content candidate failed")
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text, true
		}
	}
	return "", false
}

// gutenbergDisplayName turns "Aurelius, Marcus" into "Marcus Aurelius".
func gutenbergDisplayName(name string) string {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, ", ")
	if len(parts) != 2 {
		return name
	}
	return strings.TrimSpace(parts[1]) + " " + strings.TrimSpace(parts[0])
}
