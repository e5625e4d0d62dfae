// ABOUTME: Player configuration loaded from .env files and DECK_* environment variables
// ABOUTME: Provides defaults that command-line flags override
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names
const (
	EnvBackend         = "DECK_BACKEND"
	EnvBufferSeconds   = "DECK_BUFFER_SECONDS"
	EnvVolume          = "DECK_VOLUME"
	EnvOutputRate      = "DECK_OUTPUT_RATE"
	EnvLogFile         = "DECK_LOG_FILE"
	EnvLogLevel        = "DECK_LOG_LEVEL"
	EnvFramesPerBuffer = "DECK_FRAMES_PER_BUFFER"
)

// Config holds player settings
type Config struct {
	Backend         string
	BufferSeconds   float64
	Volume          float64
	OutputRate      int
	LogFile         string
	LogLevel        string
	FramesPerBuffer int
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Backend:         "malgo",
		BufferSeconds:   2.0,
		Volume:          1.0,
		LogFile:         "resonate-deck.log",
		LogLevel:        "info",
		FramesPerBuffer: 512,
	}
}

// Load reads the given .env files (default ".env"), ignoring missing ones,
// then overlays DECK_* variables onto the defaults.
// Variables already set in the environment win over .env values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	return FromEnv(os.LookupEnv)
}

// FromEnv overlays variables from lookup onto the defaults
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup(EnvBackend); ok && v != "" {
		cfg.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvLogFile); ok && v != "" {
		cfg.LogFile = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}

	var err error
	if cfg.BufferSeconds, err = floatVar(lookup, EnvBufferSeconds, cfg.BufferSeconds); err != nil {
		return Config{}, err
	}
	if cfg.Volume, err = floatVar(lookup, EnvVolume, cfg.Volume); err != nil {
		return Config{}, err
	}
	if cfg.OutputRate, err = intVar(lookup, EnvOutputRate, cfg.OutputRate); err != nil {
		return Config{}, err
	}
	if cfg.FramesPerBuffer, err = intVar(lookup, EnvFramesPerBuffer, cfg.FramesPerBuffer); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// Validate checks value ranges
func (c Config) Validate() error {
	if c.BufferSeconds <= 0 {
		return fmt.Errorf("buffer seconds must be positive, got %g", c.BufferSeconds)
	}
	if c.Volume < 0 || c.Volume > 2 {
		return fmt.Errorf("volume must be between 0 and 2, got %g", c.Volume)
	}
	if c.OutputRate < 0 {
		return fmt.Errorf("output rate must not be negative, got %d", c.OutputRate)
	}
	if c.FramesPerBuffer < 0 {
		return fmt.Errorf("frames per buffer must not be negative, got %d", c.FramesPerBuffer)
	}
	return nil
}

func floatVar(lookup func(string) (string, bool), key string, def float64) (float64, error) {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func intVar(lookup func(string) (string, bool), key string, def int) (int, error) {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return i, nil
}
