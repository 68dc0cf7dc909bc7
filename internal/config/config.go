package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/mrlokans/catalogimport/internal/entities"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Log
		Tasks
		Import
		Schedule
		Providers
		Covers
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Log struct {
		Level  string // trace, debug, info, warn, error
		Format string // json or console
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Import struct {
		DefaultLimit   int
		RequestTimeout time.Duration // Deadline for one provider request
		PageWorkers    int           // Concurrent page requests per adapter
		MaxTags        int
		MaxDescription int
		RateInterval   time.Duration // Minimum spacing between requests to one provider
	}
	Schedule struct {
		Enabled  bool
		Cron     string // Cron format: "0 3 * * *" = daily at 03:00
		Sources  []entities.Source
		Category string
		Search   string
		Limit    int
	}
	Providers struct {
		GutendexURL    string
		GutenbergURL   string // Mirror for covers and plain texts
		OpenLibraryURL string
		GoogleBooksURL string
		GoogleBooksKey string
	}
	Covers struct {
		CacheDir string // Empty disables the cover endpoint
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "45m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Import defaults
	v.SetDefault("import_default_limit", 20)
	v.SetDefault("import_request_timeout", "20s")
	v.SetDefault("import_page_workers", 3)
	v.SetDefault("import_max_tags", 8)
	v.SetDefault("import_max_description", 2000)
	v.SetDefault("provider_rate_interval", "100ms")

	// Scheduled import defaults
	v.SetDefault("import_schedule_enabled", false)
	v.SetDefault("import_schedule", "0 3 * * *") // Daily at 03:00
	v.SetDefault("import_schedule_sources", "")
	v.SetDefault("import_schedule_category", "")
	v.SetDefault("import_schedule_search", "")
	v.SetDefault("import_schedule_limit", 0)

	// Provider endpoints
	v.SetDefault("gutendex_base_url", DefaultGutendexURL)
	v.SetDefault("gutenberg_mirror_url", DefaultGutenbergURL)
	v.SetDefault("openlibrary_base_url", DefaultOpenLibraryURL)
	v.SetDefault("google_books_base_url", DefaultGoogleBooksURL)
	v.SetDefault("google_books_api_key", "")

	v.SetDefault("cover_cache_dir", DefaultCoverCacheDir)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Import: Import{
			DefaultLimit:   v.GetInt("IMPORT_DEFAULT_LIMIT"),
			RequestTimeout: v.GetDuration("IMPORT_REQUEST_TIMEOUT"),
			PageWorkers:    v.GetInt("IMPORT_PAGE_WORKERS"),
			MaxTags:        v.GetInt("IMPORT_MAX_TAGS"),
			MaxDescription: v.GetInt("IMPORT_MAX_DESCRIPTION"),
			RateInterval:   v.GetDuration("PROVIDER_RATE_INTERVAL"),
		},
		Schedule: Schedule{
			Enabled:  v.GetBool("IMPORT_SCHEDULE_ENABLED"),
			Cron:     v.GetString("IMPORT_SCHEDULE"),
			Sources:  entities.ParseSources(v.GetString("IMPORT_SCHEDULE_SOURCES")),
			Category: v.GetString("IMPORT_SCHEDULE_CATEGORY"),
			Search:   v.GetString("IMPORT_SCHEDULE_SEARCH"),
			Limit:    v.GetInt("IMPORT_SCHEDULE_LIMIT"),
		},
		Providers: Providers{
			GutendexURL:    v.GetString("GUTENDEX_BASE_URL"),
			GutenbergURL:   v.GetString("GUTENBERG_MIRROR_URL"),
			OpenLibraryURL: v.GetString("OPENLIBRARY_BASE_URL"),
			GoogleBooksURL: v.GetString("GOOGLE_BOOKS_BASE_URL"),
			GoogleBooksKey: v.GetString("GOOGLE_BOOKS_API_KEY"),
		},
		Covers: Covers{
			CacheDir: v.GetString("COVER_CACHE_DIR"),
		},
	}
}

// ScheduledOptions returns the import options used by scheduled runs.
func (s Schedule) ScheduledOptions() entities.ImportOptions {
	return entities.ImportOptions{
		Category: s.Category,
		Search:   s.Search,
		Limit:    s.Limit,
	}
}
