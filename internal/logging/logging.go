// ABOUTME: Logger construction for the player binary
// ABOUTME: Builds a zerolog logger writing JSON to a file and optionally human-readable lines to a console
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(name string) (zerolog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// New creates a logger writing structured lines to file.
// When console is non-nil, a human-readable copy goes there too.
func New(file io.Writer, console io.Writer, level zerolog.Level) zerolog.Logger {
	var w io.Writer = file
	if console != nil {
		w = zerolog.MultiLevelWriter(file, zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: time.TimeOnly,
		})
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// OpenFile opens path for appending, creating it if needed
func OpenFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}
	return f, nil
}
