// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	Level  string
	Format string
	Out    io.Writer
}

// New returns a zerolog logger. Unknown levels fall back to info; any format
// other than "json" writes human-readable console output.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var writer io.Writer = out
	if !strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		}
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Str("app", "postboard").Logger()
}
