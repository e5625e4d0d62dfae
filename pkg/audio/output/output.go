// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends and the backend factory
package output

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
	"github.com/rs/zerolog"
)

// Backend names accepted by New
const (
	BackendMalgo     = "malgo"
	BackendOto       = "oto"
	BackendPortAudio = "portaudio"
	BackendNull      = "null"
)

// DefaultFramesPerBuffer is used when a caller leaves the device period unset
const DefaultFramesPerBuffer = 512

var (
	// ErrNoDevice means the host has no usable playback hardware
	ErrNoDevice = errors.New("no playback device available")

	// ErrBackendUnavailable means the backend was not compiled into this binary
	ErrBackendUnavailable = errors.New("audio backend not available in this build")

	// ErrFormatLocked means the backend cannot be reopened with a different format
	ErrFormatLocked = errors.New("audio backend already initialized with another format")

	// ErrNotOpen is returned when Start is called before Open
	ErrNotOpen = errors.New("output not opened")
)

// RenderFunc fills out with interleaved float32 samples.
// It is called on the device's real-time thread and must fill all of out.
type RenderFunc func(out []float32)

// Device represents an audio output device
type Device interface {
	// Open configures the device for format and registers the render callback.
	// framesPerBuffer of 0 lets the backend choose.
	Open(format audio.Format, framesPerBuffer int, render RenderFunc) error

	// Start begins invoking the render callback
	Start() error

	// Stop halts the callback; Start may be called again afterwards
	Stop() error

	// Close releases output resources
	Close() error

	// Name returns the backend name
	Name() string
}

// New creates an unopened device for the named backend.
// An empty name selects the default malgo backend.
func New(backend string, logger zerolog.Logger) (Device, error) {
	logger = logger.With().Str("backend", backendName(backend)).Logger()

	switch backend {
	case "", BackendMalgo:
		return NewMalgo(logger), nil
	case BackendOto:
		return NewOto(logger), nil
	case BackendPortAudio:
		return NewPortAudio(logger), nil
	case BackendNull:
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("unknown audio backend: %s (supported: malgo, oto, portaudio, null)", backend)
	}
}

func backendName(backend string) string {
	if backend == "" {
		return BackendMalgo
	}
	return backend
}

// periodFrames returns framesPerBuffer or the default when unset
func periodFrames(framesPerBuffer int) int {
	if framesPerBuffer <= 0 {
		return DefaultFramesPerBuffer
	}
	return framesPerBuffer
}
