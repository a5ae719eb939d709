// Package logging contains the logger used across the system and helpers to print leveled messages.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates a new logger writing JSON lines to the given writer at the given level. Unknown levels
// fall back to info. If no writer is given, os.Stdout will be used.
func New(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Discard returns a logger that writes nothing, useful for tests.
func Discard() zerolog.Logger {
	return zerolog.Nop()
}

// StdLogger adapts the given logger to the standard library one, as required by http.Server.
func StdLogger(logger zerolog.Logger) *log.Logger {
	return log.New(logger, "", 0)
}

// PrintlnInfo prints an info message.
func PrintlnInfo(logger zerolog.Logger, v ...interface{}) {
	logger.Info().Msg(fmt.Sprint(v...))
}

// PrintlnWarn prints a warning message.
func PrintlnWarn(logger zerolog.Logger, v ...interface{}) {
	logger.Warn().Msg(fmt.Sprint(v...))
}

// PrintlnError prints an error message.
func PrintlnError(logger zerolog.Logger, v ...interface{}) {
	logger.Error().Msg(fmt.Sprint(v...))
}
