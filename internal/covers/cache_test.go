package covers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/catalogimport/internal/entities"
)

func newTestCache(t *testing.T) *Cache {
	cache, err := NewCache(t.TempDir(), nil, zerolog.Nop())
	require.NoError(t, err)
	return cache
}

func coverBook(externalID, url string) *entities.ImportedBook {
	return &entities.ImportedBook{
		Source:     entities.SourceOpenLibrary,
		ExternalID: externalID,
		Title:      "Meditations",
		CoverImage: &url,
	}
}

func TestNewCache(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "covers")

	cache, err := NewCache(cacheDir, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, cacheDir, cache.CacheDir())

	_, err = os.Stat(cacheDir)
	assert.NoError(t, err, "cache directory should be created")
}

func TestGetCover_NoCover(t *testing.T) {
	cache := newTestCache(t)

	path, err := cache.GetCover(context.Background(), &entities.ImportedBook{ExternalID: "1"})
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = cache.GetCover(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestGetCover_FetchAndCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("fake image data"))
	}))
	defer server.Close()

	cache := newTestCache(t)
	book := coverBook("OL1W", server.URL+"/cover.jpg")

	path1, err := cache.GetCover(context.Background(), book)
	require.NoError(t, err)
	require.NotEmpty(t, path1)

	data, err := os.ReadFile(path1)
	require.NoError(t, err)
	assert.Equal(t, "fake image data", string(data))

	path2, err := cache.GetCover(context.Background(), book)
	require.NoError(t, err)
	assert.Equal(t, path1, path2)
	assert.Equal(t, int32(1), hits.Load(), "second call should be served from disk")
}

func TestGetCover_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cache := newTestCache(t)

	path, err := cache.GetCover(context.Background(), coverBook("OL1W", server.URL+"/missing.jpg"))
	assert.Error(t, err)
	assert.Empty(t, path)

	entries, err := os.ReadDir(cache.CacheDir())
	require.NoError(t, err)
	assert.Empty(t, entries, "failed fetch must not leave files behind")
}

func TestInvalidateCover(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("image"))
	}))
	defer server.Close()

	cache := newTestCache(t)
	book := coverBook("OL1W", server.URL+"/a.jpg")
	other := coverBook("OL2W", server.URL+"/b.jpg")

	path, err := cache.GetCover(context.Background(), book)
	require.NoError(t, err)
	otherPath, err := cache.GetCover(context.Background(), other)
	require.NoError(t, err)

	require.NoError(t, cache.InvalidateCover(book))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(otherPath)
	assert.NoError(t, err)
}

func TestSafeID(t *testing.T) {
	assert.Equal(t, "OL1W", safeID("OL1W"))
	assert.Equal(t, "zyTCAlFPjgYC", safeID("zyTCAlFPjgYC"))

	hashed := safeID("../etc/passwd")
	assert.NotContains(t, hashed, "/")
	assert.Equal(t, hashed, safeID("../etc/passwd"))
}
