package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mrlokans/catalogimport/internal/config"
	"github.com/mrlokans/catalogimport/internal/database"
	"github.com/mrlokans/catalogimport/internal/database/books"
	"github.com/mrlokans/catalogimport/internal/database/progress"
	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/importers"
	"github.com/mrlokans/catalogimport/internal/logger"
)

// RegistryFactory builds the adapter registry a command imports from.
type RegistryFactory func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*importers.Registry, error)

// DefaultRegistry registers the built-in catalogs configured from cfg.
func DefaultRegistry(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*importers.Registry, error) {
	return importers.NewDefaultRegistry(ctx, cfg.AdapterConfig(log))
}

// ImportCommand runs one import job in the foreground.
type ImportCommand struct {
	Sources      string
	Category     string
	Search       string
	Language     string
	Limit        int
	Offset       int
	DatabasePath string
	DryRun       bool
	JSON         bool
	Verbose      bool

	Out         io.Writer
	NewRegistry RegistryFactory
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{
		Out:         os.Stdout,
		NewRegistry: DefaultRegistry,
	}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)

	fs.StringVar(&cmd.Sources, "sources", "", "Comma-separated sources to import from (default: all)")
	fs.StringVar(&cmd.Category, "category", "", "Category or subject to import")
	fs.StringVar(&cmd.Search, "search", "", "Free-text search query")
	fs.StringVar(&cmd.Language, "language", "", "Two-letter language code (e.g. en)")
	fs.IntVar(&cmd.Limit, "limit", 0, "Maximum number of items requested per source (default: IMPORT_DEFAULT_LIMIT)")
	fs.IntVar(&cmd.Offset, "offset", 0, "Number of items to skip per source")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file for storing imported books")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Fetch and normalize without saving")
	fs.BoolVar(&cmd.JSON, "json", false, "Print the final progress as JSON")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import books from external catalogs into the local database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Import 20 philosophy books from every source:\n")
		fmt.Fprintf(os.Stderr, "  %s import -category Philosophy -limit 20\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Preview a Gutendex search without saving:\n")
		fmt.Fprintf(os.Stderr, "  %s import -sources gutendex -search stoicism -dry-run -verbose\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Limit < 0 {
		return fmt.Errorf("-limit must not be negative")
	}
	if cmd.Offset < 0 {
		return fmt.Errorf("-offset must not be negative")
	}
	return nil
}

// Options returns the import options given on the command line.
func (cmd *ImportCommand) Options() entities.ImportOptions {
	return entities.ImportOptions{
		Category: cmd.Category,
		Search:   cmd.Search,
		Limit:    cmd.Limit,
		Offset:   cmd.Offset,
		Language: cmd.Language,
	}
}

func (cmd *ImportCommand) Run(ctx context.Context) error {
	cfg := config.NewConfig()
	level := "warn"
	if cmd.Verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Format: "console"})

	registry, err := cmd.NewRegistry(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize adapters: %w", err)
	}

	orchestrator := importers.NewOrchestrator(registry, cfg.Import.DefaultLimit, log)

	if !cmd.DryRun {
		absDBPath, err := filepath.Abs(cmd.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to get absolute path for database: %w", err)
		}
		db, err := database.NewDatabase(absDBPath, log)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		orchestrator.SetExporter(books.NewRepository(db.DB))
		orchestrator.SetProgressReporter(progress.NewRepository(db.DB))
		if !cmd.JSON {
			fmt.Fprintf(cmd.Out, "Saving to database: %s\n", absDBPath)
		}
	}

	report, err := orchestrator.Run(ctx, cmd.Options(), entities.ParseSources(cmd.Sources)...)
	if err != nil {
		return err
	}

	if cmd.JSON {
		enc := json.NewEncoder(cmd.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(report.Progress)
	}

	cmd.printReport(report)
	if report.Progress.Status == entities.ImportStatusError {
		return fmt.Errorf("import ended with errors")
	}
	return nil
}

func (cmd *ImportCommand) printReport(report *importers.Report) {
	p := report.Progress

	if cmd.Verbose {
		fmt.Fprintln(cmd.Out, "\n=== Books ===")
		for i, b := range report.Books {
			fmt.Fprintf(cmd.Out, "%d. [%s] \"%s\" by %s (%s)\n", i+1, b.Source, b.Title, b.Author, b.Category)
		}
	}

	fmt.Fprintln(cmd.Out, "\n=== Import Summary ===")
	fmt.Fprintf(cmd.Out, "Job:      %s\n", p.JobID)
	fmt.Fprintf(cmd.Out, "Status:   %s\n", p.Status)
	fmt.Fprintf(cmd.Out, "Total:    %d\n", p.Total)
	fmt.Fprintf(cmd.Out, "Imported: %d\n", p.Imported)
	fmt.Fprintf(cmd.Out, "Failed:   %d\n", p.Failed)
	fmt.Fprintf(cmd.Out, "Skipped:  %d\n", p.Skipped)

	if len(p.Errors) > 0 {
		fmt.Fprintf(cmd.Out, "\n%d errors occurred:\n", len(p.Errors))
		for _, msg := range p.Errors {
			fmt.Fprintf(cmd.Out, "  [ERROR] %s\n", msg)
		}
	}

	if cmd.DryRun {
		fmt.Fprintln(cmd.Out, "\nDry run complete. Use without -dry-run to save.")
	}
}
