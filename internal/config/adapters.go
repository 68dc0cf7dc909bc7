package config

import (
	"github.com/rs/zerolog"

	"github.com/mrlokans/catalogimport/internal/importers"
	"github.com/mrlokans/catalogimport/internal/metadata"
	"github.com/mrlokans/catalogimport/internal/normalize"
)

// AdapterConfig builds the per-provider adapter settings. All adapters share
// one instrumented HTTP client; each gets its own rate limiter.
func (c *Config) AdapterConfig(log zerolog.Logger) importers.AdapterConfig {
	shared := metadata.ClientConfig{
		HTTPClient:     metadata.NewHTTPClient(c.Import.RequestTimeout),
		RequestTimeout: c.Import.RequestTimeout,
		RateInterval:   c.Import.RateInterval,
		PageWorkers:    c.Import.PageWorkers,
		Limits: normalize.Limits{
			MaxTags:        c.Import.MaxTags,
			MaxDescription: c.Import.MaxDescription,
		},
		Logger: log,
	}

	gutendex := shared
	gutendex.BaseURL = c.Providers.GutendexURL
	gutendex.MirrorURL = c.Providers.GutenbergURL

	openLibrary := shared
	openLibrary.BaseURL = c.Providers.OpenLibraryURL

	googleBooks := shared
	googleBooks.BaseURL = c.Providers.GoogleBooksURL
	googleBooks.APIKey = c.Providers.GoogleBooksKey

	return importers.AdapterConfig{
		Gutendex:    gutendex,
		OpenLibrary: openLibrary,
		GoogleBooks: googleBooks,
	}
}
