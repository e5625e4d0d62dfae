// ABOUTME: Playback session state machine
// ABOUTME: Load, play, pause, stop and volume control over one track at a time
package deck

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
	"github.com/Resonate-Protocol/resonate-deck/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-deck/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-deck/pkg/audio/ringbuf"
)

// closedDone is handed out by Done when no track is loaded
var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// track is everything one Load owns. The producer goroutine only ever touches
// its own track, never the Session, so Stop can join it while holding the lock.
type track struct {
	id       string
	source   decode.Source
	format   audio.Format
	ring     *ringbuf.Buffer
	renderer *output.Renderer
	device   output.Device
	logger   zerolog.Logger

	written  atomic.Uint64
	paused   atomic.Bool
	finished atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

func (t *track) markDone() {
	t.doneOnce.Do(func() { close(t.done) })
}

// Session plays one track at a time through a lock-free ring buffer
type Session struct {
	config Config
	logger zerolog.Logger
	volume *output.Volume

	mu     sync.Mutex
	state  State
	cur    *track
	cancel context.CancelFunc
	group  *errgroup.Group
	closed bool
}

// NewSession creates an idle session
func NewSession(config Config) (*Session, error) {
	config = config.withDefaults()

	if config.Volume < 0 || config.Volume > output.MaxVolume {
		return nil, fmt.Errorf("invalid volume %.2f (range 0-%.1f)", config.Volume, output.MaxVolume)
	}

	return &Session{
		config: config,
		logger: config.Logger,
		volume: output.NewVolume(float32(config.Volume)),
		state:  StateIdle,
	}, nil
}

// Load opens id and prepares a device for it, stopping any current track first
func (s *Session) Load(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.stopLocked()

	t, err := s.openTrack(id)
	if err != nil {
		s.reportError(err)
		return err
	}

	s.cur = t
	s.setStateLocked(StateLoaded)
	t.logger.Info().
		Str("source", id).
		Stringer("format", t.format).
		Str("backend", t.device.Name()).
		Int("capacity_frames", t.ring.Capacity()-1).
		Msg("Track loaded")
	return nil
}

// openTrack builds the source, ring, renderer and device for id.
// On failure everything opened so far is closed again.
func (s *Session) openTrack(id string) (*track, error) {
	src, err := s.config.Opener.Open(id)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", id, err)
	}
	src = decode.Resampled(src, s.config.OutputRate)

	format := src.Format()
	if err := format.Validate(); err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to open %s: %w", id, err)
	}

	t := &track{
		id:     uuid.New().String(),
		source: src,
		format: format,
		ring:   ringbuf.New(ringbuf.CapacityFor(format.SampleRate, s.config.BufferSeconds), format.Channels),
		done:   make(chan struct{}),
	}
	t.logger = s.logger.With().Str("track", t.id).Logger()
	t.renderer = output.NewRenderer(t.ring, s.volume)

	device, err := s.openDevice(t)
	if err != nil {
		src.Close()
		return nil, err
	}
	t.device = device

	return t, nil
}

// openDevice opens the configured backend, falling back to Null when no device is available
func (s *Session) openDevice(t *track) (output.Device, error) {
	device, err := s.config.NewDevice(s.config.Backend, t.logger)
	if err != nil {
		return nil, err
	}

	err = device.Open(t.format, s.config.FramesPerBuffer, t.renderer.Render)
	if err == nil {
		return device, nil
	}
	device.Close()

	if !errors.Is(err, output.ErrNoDevice) && !errors.Is(err, output.ErrBackendUnavailable) {
		return nil, fmt.Errorf("failed to open %s output: %w", device.Name(), err)
	}

	t.logger.Warn().Err(err).Str("backend", device.Name()).Msg("No playback device, falling back to null output")

	null := output.NewNull()
	if err := null.Open(t.format, s.config.FramesPerBuffer, t.renderer.Render); err != nil {
		return nil, fmt.Errorf("failed to open null output: %w", err)
	}
	return null, nil
}

// Play starts the producer and the device
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle, StateStopping:
		return ErrNotLoaded
	case StatePlaying, StatePaused:
		s.logger.Warn().Str("state", s.state.String()).Msg("Play ignored, already playing")
		return ErrAlreadyPlaying
	}

	t := s.cur
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.produce(gctx, t)
	})

	if err := t.device.Start(); err != nil {
		cancel()
		group.Wait()
		err = fmt.Errorf("failed to start %s output: %w", t.device.Name(), err)
		s.reportError(err)
		return err
	}

	s.cancel = cancel
	s.group = group
	s.setStateLocked(StatePlaying)
	t.logger.Info().Msg("Playback started")
	return nil
}

// Pause halts the device; the producer keeps the ring topped up
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return ErrNotPlaying
	}

	t := s.cur
	t.paused.Store(true)
	if err := t.device.Stop(); err != nil {
		t.paused.Store(false)
		return fmt.Errorf("failed to pause %s output: %w", t.device.Name(), err)
	}

	s.setStateLocked(StatePaused)
	return nil
}

// Resume restarts a paused device
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePaused {
		return ErrNotPlaying
	}

	t := s.cur
	if err := t.device.Start(); err != nil {
		return fmt.Errorf("failed to resume %s output: %w", t.device.Name(), err)
	}
	t.paused.Store(false)

	s.setStateLocked(StatePlaying)
	return nil
}

// Stop ends playback and releases the current track. It is valid in every state.
// When playing, Stop waits for buffered audio to drain (bounded by DrainTimeout
// and StallTimeout) while holding the session lock, so other Session methods
// block until it returns.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
}

func (s *Session) stopLocked() {
	t := s.cur
	if t == nil {
		s.setStateLocked(StateIdle)
		return
	}

	wasPlaying := s.state == StatePlaying
	s.setStateLocked(StateStopping)

	if s.cancel != nil {
		s.cancel()
		// Release a producer blocked inside Pull on network I/O
		decode.Interrupt(t.source)
		if err := s.group.Wait(); err != nil {
			t.logger.Error().Err(err).Msg("Producer exited with error")
		}
		s.cancel, s.group = nil, nil
	}

	// A paused or never-started device cannot drain
	if wasPlaying && !t.paused.Load() {
		if !s.waitDrained(context.Background(), t) {
			t.logger.Warn().Int("buffered_frames", t.ring.Occupied()).Msg("Drain abandoned, discarding buffered audio")
		}
	}

	if err := t.device.Stop(); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to stop output")
	}
	if err := t.device.Close(); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to close output")
	}
	if err := t.source.Close(); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to close source")
	}
	t.markDone()

	t.logger.Info().
		Uint64("played_frames", t.renderer.Played()).
		Uint64("underruns", t.renderer.Underruns()).
		Msg("Track stopped")

	s.cur = nil
	s.setStateLocked(StateIdle)
}

// SetVolume sets the gain, clamped to [0, output.MaxVolume], and returns the stored value
func (s *Session) SetVolume(v float64) float64 {
	return float64(s.volume.Set(float32(v)))
}

// Volume returns the current gain
func (s *Session) Volume() float64 {
	return float64(s.volume.Load())
}

// IsPlaying reports whether audio is being delivered to the device
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state == StatePlaying && !s.cur.finished.Load()
}

// IsFinished reports whether the current track played to its end
func (s *Session) IsFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cur != nil && s.cur.finished.Load()
}

// Done is closed when the current track finishes or is stopped.
// With no track loaded it returns an already closed channel.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil {
		return closedDone
	}
	return s.cur.done
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Format returns the loaded track's format
func (s *Session) Format() audio.Format {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil {
		return audio.Format{}
	}
	return s.cur.format
}

// TrackID returns the loaded track's id, empty when idle
func (s *Session) TrackID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil {
		return ""
	}
	return s.cur.id
}

// Stats returns a snapshot of playback progress
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		State:  s.state,
		Volume: s.Volume(),
	}

	t := s.cur
	if t == nil {
		return stats
	}

	stats.TrackID = t.id
	stats.Format = t.format
	stats.Backend = t.device.Name()
	stats.Finished = t.finished.Load()
	stats.Buffered = t.ring.Occupied()
	stats.Capacity = t.ring.Capacity() - 1
	stats.Written = t.written.Load()
	stats.Played = t.renderer.Played()
	stats.Underruns = t.renderer.Underruns()
	return stats
}

// Close stops playback; the session cannot be used afterwards
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.closed = true
	return nil
}

func (s *Session) setStateLocked(state State) {
	if s.state == state {
		return
	}
	s.state = state

	if s.config.OnStateChange != nil {
		s.config.OnStateChange(state)
	}
}

func (s *Session) reportError(err error) {
	if s.config.OnError != nil {
		s.config.OnError(err)
		return
	}
	s.logger.Error().Err(err).Msg("Session error")
}
