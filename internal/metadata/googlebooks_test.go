package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/normalize"
)

func newTestGoogleBooksClient(t *testing.T, serverURL, apiKey string) *GoogleBooksClient {
	t.Helper()
	client, err := NewGoogleBooksClient(context.Background(), ClientConfig{
		BaseURL: serverURL,
		APIKey:  apiKey,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGoogleBooksSearch(t *testing.T) {
	var query url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/volumes") {
			http.NotFound(w, r)
			return
		}
		query = r.URL.Query()
		writeJSON(w, http.StatusOK, map[string]any{
			"kind":       "books#volumes",
			"totalItems": 3,
			"items": []map[string]any{
				{
					"id": "v1",
					"volumeInfo": map[string]any{
						"title":      "Thumbnail Only",
						"authors":    []string{"A. Writer"},
						"imageLinks": map[string]string{"thumbnail": "http://books.google.com/books/content?id=v1&zoom=1"},
					},
				},
				{
					"id":         "v2",
					"volumeInfo": map[string]any{"authors": []string{"No Title"}},
				},
				{
					"id": "v3",
					"volumeInfo": map[string]any{
						"title":       "Effective Java",
						"authors":     []string{"Joshua Bloch"},
						"publisher":   "Addison-Wesley",
						"description": "<b>The definitive guide</b> to Java platform best practices.",
						"industryIdentifiers": []map[string]string{
							{"type": "ISBN_10", "identifier": "0134685997"},
							{"type": "ISBN_13", "identifier": "9780134685991"},
						},
						"publishedDate": "2018-01-06",
						"pageCount":     412,
						"averageRating": 4.5,
						"categories":    []string{"Computers"},
						"language":      "en",
						"previewLink":   "http://books.google.com/books?id=v3&printsec=frontcover",
						"imageLinks": map[string]string{
							"smallThumbnail": "http://books.google.com/small",
							"thumbnail":      "http://books.google.com/thumb",
							"large":          "http://books.google.com/large",
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	client := newTestGoogleBooksClient(t, server.URL, "secret")
	batch := client.Fetch(context.Background(), entities.ImportOptions{Search: "java", Category: "Computers", Limit: 5, Language: "en"})

	assert.Equal(t, "java subject:Computers", query.Get("q"))
	assert.Equal(t, "5", query.Get("maxResults"))
	assert.Equal(t, "0", query.Get("startIndex"))
	assert.Equal(t, "en", query.Get("langRestrict"))
	assert.Equal(t, "secret", query.Get("key"))

	books := batch.Books()
	require.Len(t, books, 2)
	require.Len(t, batch.Failures(), 1)
	assert.Equal(t, "v2", batch.Failures()[0].Ref)
	assert.ErrorIs(t, batch.Failures()[0].Err, normalize.ErrMissingTitle)
	assert.Equal(t, 3, batch.ReportedTotal)

	thumb := books[0]
	assert.Equal(t, "v1", thumb.ExternalID)
	require.NotNil(t, thumb.CoverImage)
	assert.Equal(t, "https://books.google.com/books/content?id=v1&zoom=1", *thumb.CoverImage)
	assert.Equal(t, normalize.NeutralRating, thumb.Rating)
	assert.Equal(t, "General", thumb.Category)

	java := books[1]
	assert.Equal(t, entities.SourceGoogleBooks, java.Source)
	assert.Equal(t, "The definitive guide to Java platform best practices.", java.Description)
	assert.Equal(t, "Technology", java.Category)
	assert.Equal(t, 4.5, java.Rating)
	require.NotNil(t, java.ISBN)
	assert.Equal(t, "9780134685991", *java.ISBN)
	require.NotNil(t, java.PublicationYear)
	assert.Equal(t, 2018, *java.PublicationYear)
	require.NotNil(t, java.TotalPages)
	assert.Equal(t, 412, *java.TotalPages)
	require.NotNil(t, java.CoverImage)
	assert.Equal(t, "https://books.google.com/large", *java.CoverImage)
	require.NotNil(t, java.ContentURL)
	assert.True(t, strings.HasPrefix(*java.ContentURL, "https://"))
}

func TestGoogleBooksSearch_QuotaExceeded(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reason string
	}{
		{"too many requests", http.StatusTooManyRequests, "rateLimitExceeded"},
		{"forbidden daily limit", http.StatusForbidden, "dailyLimitExceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]any{
					"error": map[string]any{
						"code":    tt.status,
						"message": "Quota exceeded",
						"errors":  []map[string]string{{"reason": tt.reason, "message": "Quota exceeded"}},
					},
				})
			}))
			defer server.Close()

			client := newTestGoogleBooksClient(t, server.URL, "")
			assert.Empty(t, client.Search(context.Background(), entities.ImportOptions{Search: "go", Limit: 10}))

			batch := client.Fetch(context.Background(), entities.ImportOptions{Search: "go", Limit: 10})
			require.Len(t, batch.RequestErrors, 1)
			assert.ErrorIs(t, batch.RequestErrors[0], ErrQuotaExceeded)
			assert.True(t, IsTransient(batch.RequestErrors[0]))
		})
	}
}

func TestGoogleBooksSearch_ForbiddenWithoutQuotaReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error": map[string]any{
				"code":    403,
				"message": "API key not valid",
				"errors":  []map[string]string{{"reason": "keyInvalid"}},
			},
		})
	}))
	defer server.Close()

	batch := newTestGoogleBooksClient(t, server.URL, "bad").Fetch(context.Background(), entities.ImportOptions{Limit: 1})
	require.Len(t, batch.RequestErrors, 1)
	assert.NotErrorIs(t, batch.RequestErrors[0], ErrQuotaExceeded)
	assert.False(t, IsTransient(batch.RequestErrors[0]))
}

func TestGoogleBooksQuery(t *testing.T) {
	assert.Equal(t, "stoicism", googleBooksQuery(entities.ImportOptions{Search: "stoicism"}))
	assert.Equal(t, "subject:History", googleBooksQuery(entities.ImportOptions{Category: "History"}))
	assert.Equal(t, "subject:general", googleBooksQuery(entities.ImportOptions{}))
}

func TestGoogleBooksGetBookContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/volumes/v3"):
			writeJSON(w, http.StatusOK, map[string]any{
				"id":         "v3",
				"volumeInfo": map[string]any{"title": "Effective Java", "description": "<p>Best practices</p>"},
			})
		case strings.HasSuffix(r.URL.Path, "/volumes/empty"):
			writeJSON(w, http.StatusOK, map[string]any{"id": "empty", "volumeInfo": map[string]any{"title": "Empty"}})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": 404, "message": "not found"}})
		}
	}))
	defer server.Close()

	client := newTestGoogleBooksClient(t, server.URL, "")

	text, ok := client.GetBookContent(context.Background(), "v3")
	assert.True(t, ok)
	assert.Equal(t, "Best practices", text)

	_, ok = client.GetBookContent(context.Background(), "empty")
	assert.False(t, ok)

	_, ok = client.GetBookContent(context.Background(), "missing")
	assert.False(t, ok)
}
