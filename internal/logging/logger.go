// Package logging builds the zerolog logger shared by the CLI and server.
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
	Format string // console or json
	Output io.Writer
}

func New(opts Options) zerolog.Logger {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	var zl zerolog.Logger
	if strings.EqualFold(opts.Format, "json") {
		zl = zerolog.New(output)
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339})
	}

	return zl.Level(parseLevel(opts.Level)).With().Timestamp().Str("service", "mepbid").Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
