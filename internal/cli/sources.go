package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/catalogimport/internal/config"
	"github.com/mrlokans/catalogimport/internal/logger"
)

// SourcesCommand lists the registered sources.
type SourcesCommand struct {
	Out         io.Writer
	NewRegistry RegistryFactory
}

func NewSourcesCommand() *SourcesCommand {
	return &SourcesCommand{Out: os.Stdout, NewRegistry: DefaultRegistry}
}

func (cmd *SourcesCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sources", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sources\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List the catalog sources imports can use.\n")
	}
	return fs.Parse(args)
}

func (cmd *SourcesCommand) Run(ctx context.Context) error {
	cfg := config.NewConfig()
	log := logger.New(logger.Config{Level: "warn", Format: "console"})

	registry, err := cmd.NewRegistry(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize adapters: %w", err)
	}

	for _, source := range registry.ListSupportedSources() {
		fmt.Fprintln(cmd.Out, source)
	}
	return nil
}
