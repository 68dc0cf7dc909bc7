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
	openLibraryBaseURL   = "https://openlibrary.org"
	openLibraryCoversURL = "https://covers.openlibrary.org"
	openLibraryPageSize  = 100
	openLibraryFields    = "key,title,author_name,subject,cover_i,cover_edition_key,isbn,isbn_13,isbn_10," +
		"first_publish_year,publish_date,publisher,language,number_of_pages_median,first_sentence," +
		"ratings_average,want_to_read_count,edition_count"
)

// OpenLibrary tags languages with MARC codes; options and records use ISO 639-1.
var marcLanguages = map[string]string{
	"en": "eng",
	"fr": "fre",
	"de": "ger",
	"es": "spa",
	"it": "ita",
	"pt": "por",
	"ru": "rus",
	"la": "lat",
	"nl": "dut",
	"zh": "chi",
	"ja": "jpn",
}

func toMARC(lang string) string {
	if code, ok := marcLanguages[lang]; ok {
		return code
	}
	return lang
}

func fromMARC(code string) string {
	for iso, marc := range marcLanguages {
		if marc == code {
			return iso
		}
	}
	return code
}

// OpenLibraryClient imports books from the OpenLibrary search API.
type OpenLibraryClient struct {
	baseClient
	baseURL   string
	coversURL string
}

var _ Adapter = (*OpenLibraryClient)(nil)

// NewOpenLibraryClient creates an OpenLibrary adapter. Covers are always
// linked to the public covers host.
func NewOpenLibraryClient(cfg ClientConfig) *OpenLibraryClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openLibraryBaseURL
	}
	return &OpenLibraryClient{
		baseClient: newBaseClient(entities.SourceOpenLibrary, cfg),
		baseURL:    strings.TrimRight(baseURL, "/"),
		coversURL:  openLibraryCoversURL,
	}
}

type openLibrarySearchResult struct {
	NumFound int               `json:"numFound"`
	Docs     []json.RawMessage `json:"docs"`
}

type openLibrarySearchDoc struct {
	Key                 string   `json:"key"`
	Title               string   `json:"title"`
	AuthorName          []string `json:"author_name"`
	Subject             []string `json:"subject"`
	CoverI              int      `json:"cover_i"`
	CoverEditionKey     string   `json:"cover_edition_key"`
	ISBN                []string `json:"isbn"`
	ISBN13              []string `json:"isbn_13"`
	ISBN10              []string `json:"isbn_10"`
	FirstPublishYear    int      `json:"first_publish_year"`
	PublishDate         []string `json:"publish_date"`
	Publisher           []string `json:"publisher"`
	Language            []string `json:"language"`
	NumberOfPagesMedian int      `json:"number_of_pages_median"`
	FirstSentence       []string `json:"first_sentence"`
	RatingsAverage      float64  `json:"ratings_average"`
	WantToReadCount     int64    `json:"want_to_read_count"`
	EditionCount        int64    `json:"edition_count"`
}

type openLibraryWork struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description any    `json:"description"` // Can be string or {type, value}
	Excerpts    []struct {
		Excerpt string `json:"excerpt"`
	} `json:"excerpts"`
}

func (c *OpenLibraryClient) Search(ctx context.Context, opts entities.ImportOptions) []entities.ImportedBook {
	return c.Fetch(ctx, opts).Books()
}

func (c *OpenLibraryClient) Fetch(ctx context.Context, opts entities.ImportOptions) *Batch {
	pages := planPages(opts.Offset, opts.Limit, openLibraryPageSize, false)
	return c.collect(ctx, opts.Limit, pages, func(ctx context.Context, p page) pageResult {
		var result openLibrarySearchResult
		if err := c.getJSON(ctx, c.searchURL(opts, p), &result); err != nil {
			return pageResult{err: err}
		}

		outcomes := make([]ItemOutcome, 0, len(result.Docs))
		for i, raw := range result.Docs {
			ref := fmt.Sprintf("offset %d", p.Offset+i)
			outcomes = append(outcomes, mapSafely(ref, func() (*entities.ImportedBook, error) {
				return c.mapDoc(raw)
			}))
		}
		return pageResult{outcomes: outcomes, total: result.NumFound}
	})
}

// searchURL builds a search.json query. OpenLibrary needs a query or a
// subject, so an empty option set searches the default category.
func (c *OpenLibraryClient) searchURL(opts entities.ImportOptions, p page) string {
	params := url.Values{}
	if opts.Search != "" {
		params.Set("q", opts.Search)
	}
	if opts.Category != "" {
		params.Set("subject", strings.ToLower(opts.Category))
	}
	if opts.Search == "" && opts.Category == "" {
		params.Set("subject", strings.ToLower(entities.DefaultCategory))
	}
	if opts.Language != "" {
		params.Set("language", toMARC(opts.Language))
	}
	params.Set("fields", openLibraryFields)
	params.Set("limit", strconv.Itoa(p.Size))
	params.Set("offset", strconv.Itoa(p.Offset))
	return c.baseURL + "/search.json?" + params.Encode()
}

func (c *OpenLibraryClient) mapDoc(raw json.RawMessage) (*entities.ImportedBook, error) {
	var doc openLibrarySearchDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode doc: %w", err)
	}

	author := ""
	if len(doc.AuthorName) > 0 {
		author = doc.AuthorName[0]
	}

	description := ""
	if len(doc.FirstSentence) > 0 && !normalize.IsTrivialDescription(doc.FirstSentence[0]) {
		description = doc.FirstSentence[0]
	} else {
		description = normalize.SynthesizeDescription(doc.Title, author, doc.Subject)
	}

	ids := normalize.ISBNsToIdentifiers(doc.ISBN...)
	for _, v := range doc.ISBN13 {
		ids = append(ids, normalize.Identifier{Type: "ISBN_13", Value: v})
	}
	for _, v := range doc.ISBN10 {
		ids = append(ids, normalize.Identifier{Type: "ISBN_10", Value: v})
	}
	isbn := normalize.PickISBN(ids)

	year := normalize.IntPtr(doc.FirstPublishYear)
	if year == nil && len(doc.PublishDate) > 0 {
		year = normalize.ExtractYear(doc.PublishDate[0])
	}

	publisher := ""
	if len(doc.Publisher) > 0 {
		publisher = doc.Publisher[0]
	}
	language := ""
	if len(doc.Language) > 0 {
		language = fromMARC(doc.Language[0])
	}

	rating := doc.RatingsAverage
	if rating <= 0 {
		rating = normalize.RatingFromPopularity(doc.WantToReadCount + doc.EditionCount)
	}

	workID := strings.TrimPrefix(doc.Key, "/works/")
	contentURL := ""
	if workID != "" {
		contentURL = fmt.Sprintf("%s/works/%s.json", openLibraryBaseURL, workID)
	}

	book := &entities.ImportedBook{
		ExternalID:      workID,
		Title:           doc.Title,
		Author:          author,
		Description:     description,
		Category:        normalize.Classify(doc.Subject...),
		Tags:            normalize.BuildTags(doc.Subject, doc.Title+" "+description, c.limits.MaxTags),
		Language:        language,
		ISBN:            isbn,
		Publisher:       normalize.StringPtr(publisher),
		PublicationYear: year,
		TotalPages:      normalize.IntPtr(doc.NumberOfPagesMedian),
		CoverImage:      c.coverURL(doc, isbn),
		ContentURL:      normalize.StringPtr(contentURL),
		Rating:          rating,
		ExternalData:    raw,
	}
	return c.finalize(book)
}

// coverURL prefers the work's own cover id, then its cover edition, then
// the ISBN lookup. All are requested at the large size.
func (c *OpenLibraryClient) coverURL(doc openLibrarySearchDoc, isbn *string) *string {
	var byID, byEdition, byISBN string
	if doc.CoverI > 0 {
		byID = fmt.Sprintf("%s/b/id/%d-L.jpg", c.coversURL, doc.CoverI)
	}
	if doc.CoverEditionKey != "" {
		byEdition = fmt.Sprintf("%s/b/olid/%s-L.jpg", c.coversURL, doc.CoverEditionKey)
	}
	if isbn != nil {
		byISBN = fmt.Sprintf("%s/b/isbn/%s-L.jpg", c.coversURL, *isbn)
	}
	return normalize.BestImage(byID, byEdition, byISBN)
}

// GetBookContent returns the work description, or the first excerpt when
// the work has no description.
func (c *OpenLibraryClient) GetBookContent(ctx context.Context, externalID string) (string, bool) {
	workID := strings.TrimPrefix(strings.TrimSpace(externalID), "/works/")
	if workID == "" {
		return "", false
	}

	var work openLibraryWork
	if err := c.getJSON(ctx, fmt.Sprintf("%s/works/%s.json", c.baseURL, url.PathEscape(workID)), &work); err != nil {
		c.log.Warn().Err(err).Str("ref", workID).Msg("work lookup failed")
		return "", false
	}

	text := describe(work.Description)
	if text == "" && len(work.Excerpts) > 0 {
		text = work.Excerpts[0].Excerpt
	}
	text = normalize.CleanDescription(text, 0)
	return text, text != ""
}

// describe reads an OpenLibrary text field, which is either a plain string
// or a {type, value} object.
func describe(v any) string {
	switch d := v.(type) {
	case string:
		return d
	case map[string]any:
		if val, ok := d["value"].(string); ok {
			return val
		}
	}
	return ""
}
