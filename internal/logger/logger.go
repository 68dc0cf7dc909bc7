// Package logger builds the process-wide zerolog logger.
//
// Components receive a zerolog.Logger by value and add their own context
// fields; New also installs the logger as zerolog's global log.Logger for
// code paths that have no logger injected.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogFormat defines the available log formats
type LogFormat string

const (
	FormatJSON    LogFormat = "json"
	FormatConsole LogFormat = "console"
)

// ParseLogFormat parses a string into a LogFormat. Unknown values mean JSON.
func ParseLogFormat(format string) LogFormat {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console":
		return FormatConsole
	default:
		return FormatJSON
	}
}

// ParseLevel parses a level name. Unknown or empty values mean info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Config holds the configuration for the logger
type Config struct {
	Level  string
	Format string
	// Output is the output writer (default: os.Stderr)
	Output io.Writer
}

// New creates a logger from cfg and installs it as the global logger.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if ParseLogFormat(cfg.Format) == FormatConsole {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	log.Logger = l
	return l
}
