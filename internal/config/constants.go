package config

// Default paths and provider endpoints
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./catalog.db"

	// DefaultCoverCacheDir is where fetched cover images are stored
	DefaultCoverCacheDir = "./covers"

	DefaultGutendexURL    = "https://gutendex.com"
	DefaultGutenbergURL   = "https://www.gutenberg.org"
	DefaultOpenLibraryURL = "https://openlibrary.org"
	DefaultGoogleBooksURL = "https://books.googleapis.com"
)
