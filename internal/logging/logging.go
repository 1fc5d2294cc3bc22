// Package logging builds the component-tagged zerolog.Logger instances used
// throughout this module, replacing the teacher's bare log.Printf calls
// with the structured, console-formatted style zaesho-r6-dissect-foundry's
// dissect package uses via github.com/rs/zerolog/log.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

// New returns a logger tagged with component (e.g. "recorder", "scheduler",
// "session", "container"), writing human-readable console output to w.
func New(component string, w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

// Default returns New(component, os.Stderr).
func Default(component string) zerolog.Logger {
	return New(component, os.Stderr)
}

// ParseLevel maps a config/CLI level string to a zerolog.Level, defaulting
// to InfoLevel for an empty or unrecognized value rather than erroring --
// a bad log level config shouldn't be fatal to startup.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "none", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
