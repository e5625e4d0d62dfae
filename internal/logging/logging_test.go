// ABOUTME: Tests for logger construction
// ABOUTME: Verifies level parsing and file/console fan-out
package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
		err  bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{" WARN ", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"loud", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.err {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFileOnly(t *testing.T) {
	var file bytes.Buffer
	logger := New(&file, nil, zerolog.InfoLevel)

	logger.Debug().Msg("hidden")
	logger.Info().Str("track", "abc").Msg("Track loaded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &entry))
	assert.Equal(t, "Track loaded", entry["message"])
	assert.Equal(t, "abc", entry["track"])
	assert.Contains(t, entry, "time")
}

func TestNewWithConsole(t *testing.T) {
	var file, console bytes.Buffer
	logger := New(&file, &console, zerolog.DebugLevel)

	logger.Warn().Msg("Drain abandoned")

	assert.Contains(t, file.String(), `"level":"warn"`)
	assert.Contains(t, console.String(), "Drain abandoned")
	assert.NotContains(t, console.String(), `"level"`)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.log")

	f, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = OpenFile(filepath.Join(t.TempDir(), "missing", "deck.log"))
	assert.Error(t, err)
}
