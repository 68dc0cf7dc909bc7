// Package covers keeps a local copy of imported books' cover images so the
// HTTP layer can serve them without calling the provider again.
package covers

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mrlokans/catalogimport/internal/entities"
)

const maxCoverBytes = 10 << 20

// Cache handles local caching of book cover images.
type Cache struct {
	cacheDir   string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewCache creates a new cover cache at the specified directory.
func NewCache(cacheDir string, httpClient *http.Client, log zerolog.Logger) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Cache{
		cacheDir:   cacheDir,
		httpClient: httpClient,
		log:        log.With().Str("component", "covers").Logger(),
	}, nil
}

// GetCover returns the cached cover for a book, fetching it on first use.
// Returns an empty path when the book has no cover URL.
func (c *Cache) GetCover(ctx context.Context, book *entities.ImportedBook) (string, error) {
	if book == nil || book.CoverImage == nil || *book.CoverImage == "" {
		return "", nil
	}
	coverURL := *book.CoverImage

	cachePath := filepath.Join(c.cacheDir, c.coverFilename(book, coverURL))
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	if err := c.fetchAndCache(ctx, coverURL, cachePath); err != nil {
		return "", err
	}
	c.log.Debug().
		Str("source", string(book.Source)).
		Str("external_id", book.ExternalID).
		Msg("cover cached")
	return cachePath, nil
}

// InvalidateCover removes every cached cover for a book.
func (c *Cache) InvalidateCover(book *entities.ImportedBook) error {
	pattern := filepath.Join(c.cacheDir, fmt.Sprintf("%s_%s_*", book.Source, safeID(book.ExternalID)))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// CacheDir returns the cache directory path.
func (c *Cache) CacheDir() string {
	return c.cacheDir
}

// coverFilename is unique per provider identity and cover URL, so a changed
// URL after a re-import misses the cache.
func (c *Cache) coverFilename(book *entities.ImportedBook, coverURL string) string {
	hash := sha256.Sum256([]byte(coverURL))
	return fmt.Sprintf("%s_%s_%x.img", book.Source, safeID(book.ExternalID), hash[:8])
}

// safeID hashes external IDs that cannot be used verbatim in a file name.
func safeID(id string) string {
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
			sum := sha256.Sum256([]byte(id))
			return fmt.Sprintf("h%x", sum[:6])
		}
	}
	return id
}

func (c *Cache) fetchAndCache(ctx context.Context, url, cachePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "CatalogImport/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch cover: status %d", resp.StatusCode)
	}

	// Write to a temp file in the same directory, then rename.
	tmpFile, err := os.CreateTemp(c.cacheDir, "cover_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, io.LimitReader(resp.Body, maxCoverBytes)); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, cachePath)
}
