// ABOUTME: Oto-based audio output implementation
// ABOUTME: Feeds a persistent oto player from the render callback as float32 PCM
package output

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"
)

// oto only allows one context per process, so it is shared by every Oto device
var (
	otoMu     sync.Mutex
	otoCtx    *oto.Context
	otoFormat audio.Format
)

// Oto output implementation using oto library
type Oto struct {
	logger  zerolog.Logger
	player  *oto.Player
	running bool
	mu      sync.Mutex
}

// NewOto creates a new Oto output
func NewOto(logger zerolog.Logger) Device {
	return &Oto{logger: logger}
}

// Name returns the backend name
func (o *Oto) Name() string { return BackendOto }

// Open initializes the output device
func (o *Oto) Open(format audio.Format, framesPerBuffer int, render RenderFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := format.Validate(); err != nil {
		return err
	}

	ctx, err := sharedOtoContext(format, framesPerBuffer)
	if err != nil {
		return err
	}

	if o.player != nil {
		o.closePlayer()
	}

	reader := &otoReader{
		render:   render,
		channels: format.Channels,
		scratch:  make([]float32, periodFrames(framesPerBuffer)*format.Channels),
	}
	o.player = ctx.NewPlayer(reader)

	o.logger.Info().
		Int("sample_rate", format.SampleRate).
		Int("channels", format.Channels).
		Msg("Audio output initialized (oto/F32)")

	return nil
}

// sharedOtoContext returns the process-wide context, creating it on first use
func sharedOtoContext(format audio.Format, framesPerBuffer int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		// oto can't reinitialize with another format
		if otoFormat.SampleRate != format.SampleRate || otoFormat.Channels != format.Channels {
			return nil, fmt.Errorf("%w: oto running at %dHz %dch, requested %dHz %dch",
				ErrFormatLocked, otoFormat.SampleRate, otoFormat.Channels, format.SampleRate, format.Channels)
		}
		if err := otoCtx.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume oto context: %w", err)
		}
		return otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(periodFrames(framesPerBuffer)) * time.Second / time.Duration(format.SampleRate),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create oto context: %v", ErrNoDevice, err)
	}
	<-readyChan

	otoCtx = ctx
	otoFormat = format
	return ctx, nil
}

// Start begins playback
func (o *Oto) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotOpen
	}
	if !o.running {
		o.player.Play()
		o.running = true
	}
	return nil
}

// Stop pauses the player; it resumes reading on the next Start
func (o *Oto) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil && o.running {
		o.player.Pause()
		o.running = false
	}
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closePlayer()

	otoMu.Lock()
	defer otoMu.Unlock()
	if otoCtx != nil {
		if err := otoCtx.Suspend(); err != nil {
			o.logger.Warn().Err(err).Msg("oto context suspend error")
		}
	}
	return nil
}

// closePlayer must hold o.mu
func (o *Oto) closePlayer() {
	if o.player == nil {
		return
	}
	if err := o.player.Close(); err != nil {
		o.logger.Warn().Err(err).Msg("oto player close error")
	}
	o.player = nil
	o.running = false
}

// otoReader adapts a RenderFunc to the io.Reader oto pulls from.
// Read runs on oto's mixing goroutine.
type otoReader struct {
	render   RenderFunc
	channels int
	scratch  []float32
}

func (r *otoReader) Read(p []byte) (int, error) {
	frames := len(p) / (4 * r.channels)
	if frames == 0 {
		return 0, nil
	}
	n := frames * r.channels

	// oto usually asks for the same size every time; grow only when it doesn't
	if len(r.scratch) < n {
		r.scratch = make([]float32, n)
	}
	samples := r.scratch[:n]
	r.render(samples)

	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return n * 4, nil
}
