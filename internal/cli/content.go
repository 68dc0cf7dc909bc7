package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mrlokans/catalogimport/internal/config"
	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/logger"
)

// ContentCommand prints the full text or long description of one item.
type ContentCommand struct {
	Source     string
	ExternalID string

	Out         io.Writer
	NewRegistry RegistryFactory
}

func NewContentCommand() *ContentCommand {
	return &ContentCommand{Out: os.Stdout, NewRegistry: DefaultRegistry}
}

func (cmd *ContentCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("content", flag.ContinueOnError)

	fs.StringVar(&cmd.Source, "source", "", "Source the item belongs to (required)")
	fs.StringVar(&cmd.ExternalID, "id", "", "The item's identifier at its source (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s content -source <source> -id <id>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Print the text or long description of one catalog item.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s content -source gutendex -id 2680\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Source == "" || cmd.ExternalID == "" {
		return fmt.Errorf("required flags -source and -id not provided")
	}
	return nil
}

func (cmd *ContentCommand) Run(ctx context.Context) error {
	cfg := config.NewConfig()
	log := logger.New(logger.Config{Level: "warn", Format: "console"})

	registry, err := cmd.NewRegistry(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize adapters: %w", err)
	}

	adapter, err := registry.Get(entities.Source(strings.ToLower(cmd.Source)))
	if err != nil {
		return err
	}

	content, ok := adapter.GetBookContent(ctx, cmd.ExternalID)
	if !ok {
		return fmt.Errorf("no content found for %s/%s", cmd.Source, cmd.ExternalID)
	}
	fmt.Fprintln(cmd.Out, content)
	return nil
}
