//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform audio output using a PortAudio float32 stream callback
package output

import (
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// PortAudio output implementation
type PortAudio struct {
	logger      zerolog.Logger
	stream      *portaudio.Stream
	initialized bool
	running     bool
	mu          sync.Mutex
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio(logger zerolog.Logger) Device {
	return &PortAudio{logger: logger}
}

// Name returns the backend name
func (p *PortAudio) Name() string { return BackendPortAudio }

// Open initializes PortAudio and opens the default output stream
func (p *PortAudio) Open(format audio.Format, framesPerBuffer int, render RenderFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := format.Validate(); err != nil {
		return err
	}

	p.closeStream()

	if !p.initialized {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize portaudio: %w", err)
		}
		p.initialized = true
	}

	info, err := portaudio.DefaultOutputDevice()
	if err != nil || info == nil {
		return fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	stream, err := portaudio.OpenDefaultStream(0, format.Channels, float64(format.SampleRate), periodFrames(framesPerBuffer),
		func(out []float32) {
			render(out)
		})
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	p.stream = stream

	p.logger.Info().
		Str("device", info.Name).
		Int("sample_rate", format.SampleRate).
		Int("channels", format.Channels).
		Msg("Audio output initialized (portaudio/F32)")

	return nil
}

// Start begins playback
func (p *PortAudio) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return ErrNotOpen
	}
	if p.running {
		return nil
	}
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}
	p.running = true
	return nil
}

// Stop halts the stream; it blocks until the callback has returned
func (p *PortAudio) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil || !p.running {
		return nil
	}
	p.running = false
	return p.stream.Stop()
}

// Close releases resources
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeStream()
	if p.initialized {
		p.initialized = false
		return portaudio.Terminate()
	}
	return nil
}

// closeStream must hold p.mu
func (p *PortAudio) closeStream() {
	if p.stream == nil {
		return
	}
	if p.running {
		if err := p.stream.Stop(); err != nil {
			p.logger.Warn().Err(err).Msg("portaudio stream stop error")
		}
		p.running = false
	}
	if err := p.stream.Close(); err != nil {
		p.logger.Warn().Err(err).Msg("portaudio stream close error")
	}
	p.stream = nil
}
