// Package logging configures the global zerolog logger. The TUI owns
// stdout, so logs go to a file under the data directory.
package logging

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup points the global logger at <dir>/irachat.log at the given level.
// When the file cannot be opened, logging is disabled rather than allowed
// to corrupt the terminal.
func Setup(dir, level string) func() {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if err := os.MkdirAll(dir, 0755); err != nil {
		zerolog.SetGlobalLevel(zerolog.Disabled)
		return func() {}
	}

	file, err := os.OpenFile(filepath.Join(dir, "irachat.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		zerolog.SetGlobalLevel(zerolog.Disabled)
		return func() {}
	}

	log.Logger = zerolog.New(file).With().Timestamp().Logger()
	return func() { file.Close() }
}
