// ABOUTME: Decoder registry keyed by file extension
// ABOUTME: Resolves identifiers (paths, URLs, tone specs) into open sources
package decode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// DecodeFunc builds a Source from a seekable stream
type DecodeFunc func(r io.ReadSeeker, logger zerolog.Logger) (Source, error)

// Registry maps file extensions (".flac") to decoders
type Registry struct {
	codecs map[string]DecodeFunc
	logger zerolog.Logger
	mtx    sync.Mutex
}

// NewRegistry creates an empty registry
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		codecs: make(map[string]DecodeFunc),
		logger: logger,
	}
}

// DefaultRegistry creates a registry with every built-in decoder
func DefaultRegistry(logger zerolog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(".mp3", DecodeMP3)
	r.Register(".flac", DecodeFLAC)
	r.Register(".wav", DecodeWAV)
	r.Register(".aif", DecodeAIFF)
	r.Register(".aiff", DecodeAIFF)
	r.Register(".ogg", DecodeVorbis)
	r.Register(".oga", DecodeVorbis)
	r.Register(".pcm", DecodeRawCD)
	r.Register(".raw", DecodeRawCD)
	return r
}

// Register adds or replaces the decoder for ext
func (r *Registry) Register(ext string, d DecodeFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[strings.ToLower(ext)] = d
}

// Get returns the decoder registered for ext
func (r *Registry) Get(ext string) (DecodeFunc, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[strings.ToLower(ext)]
	return d, ok
}

// Open resolves id into a Source.
// Identifiers are "tone:<hz>[:<seconds>]", http(s) URLs (MP3 streams) or file paths.
func (r *Registry) Open(id string) (Source, error) {
	switch {
	case strings.HasPrefix(id, TonePrefix):
		return ParseTone(id)
	case strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://"):
		return OpenHTTPMP3(id, r.logger)
	}

	ext := strings.ToLower(filepath.Ext(id))
	decoder, ok := r.Get(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(id)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	logger := r.logger.With().Str("file", filepath.Base(id)).Logger()
	src, err := decoder(f, logger)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(id), err)
	}

	if err := src.Format().Validate(); err != nil {
		src.Close()
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	logger.Info().Stringer("format", src.Format()).Msg("Loaded audio file")

	return &closingSource{Source: src, closer: f}, nil
}
