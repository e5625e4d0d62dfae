//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
	"github.com/rs/zerolog"
)

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio(logger zerolog.Logger) Device {
	return &PortAudio{}
}

// Name returns the backend name
func (p *PortAudio) Name() string { return BackendPortAudio }

// Open always fails without the portaudio build tag
func (p *PortAudio) Open(format audio.Format, framesPerBuffer int, render RenderFunc) error {
	return fmt.Errorf("%w: PortAudio support not enabled (build with -tags portaudio)", ErrBackendUnavailable)
}

// Start always fails without the portaudio build tag
func (p *PortAudio) Start() error {
	return fmt.Errorf("%w: PortAudio support not enabled (build with -tags portaudio)", ErrBackendUnavailable)
}

// Stop is a no-op
func (p *PortAudio) Stop() error { return nil }

// Close is a no-op
func (p *PortAudio) Close() error { return nil }
