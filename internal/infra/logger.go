package infra

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the service logger: JSON on stdout, human-readable console
// output at debug level in development.
func NewLogger(appEnv string) zerolog.Logger {
	return newLogger(appEnv, os.Stdout)
}

func newLogger(appEnv string, out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "image4marketing").
		Logger()
}

// newStdLogger routes net/http's internal errors through zerolog.
func newStdLogger(logger zerolog.Logger) *log.Logger {
	return log.New(logger.With().Str("component", "http").Logger(), "", 0)
}
