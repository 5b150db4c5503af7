// Package logging sets up framescriptd's structured logger.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger writing to stderr at the given level
// ("debug", "info", "warn", "error"; unrecognised values fall back to
// info).
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).
		Level(lvl).
		With().
		Timestamp().
		Caller().
		Logger()
}
