// ABOUTME: Tests for the playback session
// ABOUTME: Drives the state machine with stub sources and hand-pumped devices
package deck

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
	"github.com/Resonate-Protocol/resonate-deck/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-deck/pkg/audio/output"
)

// stubSource emits frames whose every sample is value(frame). total < 0 never ends.
type stubSource struct {
	format audio.Format
	total  int
	pos    int
	value  func(frame int) int32
	closed atomic.Bool
}

func newStubSource(rate, channels, total int) *stubSource {
	return &stubSource{
		format: audio.Format{Codec: "stub", SampleRate: rate, Channels: channels, BitDepth: 24},
		total:  total,
		value:  func(int) int32 { return 1 << 21 }, // 0.25 full scale
	}
}

func (s *stubSource) Format() audio.Format { return s.format }

func (s *stubSource) Pull(dst []int32) int {
	ch := s.format.Channels
	frames := len(dst) / ch
	if s.total >= 0 {
		frames = min(frames, s.total-s.pos)
	}
	for i := 0; i < frames; i++ {
		v := s.value(s.pos + i)
		for c := 0; c < ch; c++ {
			dst[i*ch+c] = v
		}
	}
	s.pos += frames
	return frames * ch
}

func (s *stubSource) Close() error {
	s.closed.Store(true)
	return nil
}

type stubOpener struct {
	sources map[string]decode.Source
}

func (o *stubOpener) Open(id string) (decode.Source, error) {
	src, ok := o.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", decode.ErrUnsupportedFormat, id)
	}
	return src, nil
}

// manualDevice only renders when the test pumps it
type manualDevice struct {
	openErr  error
	startErr error

	mu       sync.Mutex
	render   output.RenderFunc
	channels int
	running  bool
	closed   bool
}

func (d *manualDevice) Name() string { return "manual" }

func (d *manualDevice) Open(format audio.Format, framesPerBuffer int, render output.RenderFunc) error {
	if d.openErr != nil {
		return d.openErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.render = render
	d.channels = format.Channels
	return nil
}

func (d *manualDevice) Start() error {
	if d.startErr != nil {
		return d.startErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = true
	return nil
}

func (d *manualDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	return nil
}

func (d *manualDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	d.closed = true
	return nil
}

// pump renders frames and returns what the device produced
func (d *manualDevice) pump(frames int) []float32 {
	d.mu.Lock()
	render, channels := d.render, d.channels
	d.mu.Unlock()

	out := make([]float32, frames*channels)
	render(out)
	return out
}

func (d *manualDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func testConfig(opener decode.Opener, devices ...output.Device) Config {
	var next atomic.Int32
	return Config{
		Opener: opener,
		NewDevice: func(backend string, logger zerolog.Logger) (output.Device, error) {
			i := int(next.Add(1)) - 1
			if i >= len(devices) {
				return nil, errors.New("no more test devices")
			}
			return devices[i], nil
		},
		BufferSeconds: 0.05,
		BatchSamples:  256,
		RetryInterval: time.Millisecond,
		DrainTimeout:  2 * time.Second,
		StallTimeout:  50 * time.Millisecond,
		Logger:        zerolog.Nop(),
	}
}

func TestSessionStateMachine(t *testing.T) {
	dev := &manualDevice{}
	opener := &stubOpener{sources: map[string]decode.Source{"a": newStubSource(48000, 2, -1)}}
	session, err := NewSession(testConfig(opener, dev))
	require.NoError(t, err)

	assert.Equal(t, StateIdle, session.State())
	assert.ErrorIs(t, session.Play(), ErrNotLoaded)
	assert.ErrorIs(t, session.Pause(), ErrNotPlaying)
	assert.ErrorIs(t, session.Resume(), ErrNotPlaying)

	require.NoError(t, session.Load("a"))
	assert.Equal(t, StateLoaded, session.State())
	assert.False(t, session.IsPlaying())
	assert.NotEmpty(t, session.TrackID())
	assert.ErrorIs(t, session.Pause(), ErrNotPlaying)

	require.NoError(t, session.Play())
	assert.Equal(t, StatePlaying, session.State())
	assert.True(t, session.IsPlaying())
	assert.ErrorIs(t, session.Play(), ErrAlreadyPlaying)

	require.NoError(t, session.Pause())
	assert.Equal(t, StatePaused, session.State())
	assert.False(t, session.IsPlaying())
	assert.ErrorIs(t, session.Play(), ErrAlreadyPlaying)

	require.NoError(t, session.Resume())
	assert.Equal(t, StatePlaying, session.State())

	session.Stop()
	assert.Equal(t, StateIdle, session.State())
	assert.Empty(t, session.TrackID())
	assert.True(t, dev.isClosed())

	// Idempotent
	session.Stop()
	assert.Equal(t, StateIdle, session.State())
}

func TestSessionStopFromLoaded(t *testing.T) {
	src := newStubSource(48000, 2, 100)
	dev := &manualDevice{}
	session, err := NewSession(testConfig(&stubOpener{sources: map[string]decode.Source{"a": src}}, dev))
	require.NoError(t, err)

	require.NoError(t, session.Load("a"))
	done := session.Done()
	session.Stop()

	assert.True(t, src.closed.Load())
	assert.True(t, dev.isClosed())
	assert.False(t, session.IsFinished())
	select {
	case <-done:
	default:
		t.Fatal("expected Done to be closed after stop")
	}
}

func TestSessionLoadFailureStaysIdle(t *testing.T) {
	var reported error
	cfg := testConfig(&stubOpener{})
	cfg.OnError = func(err error) { reported = err }

	session, err := NewSession(cfg)
	require.NoError(t, err)

	err = session.Load("missing.xyz")
	require.Error(t, err)
	assert.ErrorIs(t, err, decode.ErrUnsupportedFormat)
	assert.Equal(t, err, reported)
	assert.Equal(t, StateIdle, session.State())
}

func TestSessionFallsBackToNullOutput(t *testing.T) {
	dev := &manualDevice{openErr: fmt.Errorf("%w: no playback devices", output.ErrNoDevice)}
	opener := &stubOpener{sources: map[string]decode.Source{"a": newStubSource(48000, 2, -1)}}
	session, err := NewSession(testConfig(opener, dev))
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Load("a"))
	assert.Equal(t, output.BackendNull, session.Stats().Backend)
}

func TestSessionDeviceErrorClosesSource(t *testing.T) {
	src := newStubSource(48000, 2, -1)
	dev := &manualDevice{openErr: errors.New("unsupported sample rate")}
	session, err := NewSession(testConfig(&stubOpener{sources: map[string]decode.Source{"a": src}}, dev))
	require.NoError(t, err)

	require.Error(t, session.Load("a"))
	assert.True(t, src.closed.Load())
	assert.Equal(t, StateIdle, session.State())
}

func TestSessionStartFailureStaysLoaded(t *testing.T) {
	dev := &manualDevice{startErr: errors.New("device busy")}
	opener := &stubOpener{sources: map[string]decode.Source{"a": newStubSource(48000, 2, -1)}}
	session, err := NewSession(testConfig(opener, dev))
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Load("a"))
	require.Error(t, session.Play())
	assert.Equal(t, StateLoaded, session.State())
}

func TestSessionImplicitStopOnLoad(t *testing.T) {
	first := newStubSource(48000, 2, -1)
	second := newStubSource(44100, 1, -1)
	devA, devB := &manualDevice{}, &manualDevice{}
	opener := &stubOpener{sources: map[string]decode.Source{"a": first, "b": second}}

	session, err := NewSession(testConfig(opener, devA, devB))
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Load("a"))
	require.NoError(t, session.Play())
	firstID := session.TrackID()
	firstDone := session.Done()

	require.NoError(t, session.Load("b"))
	assert.Equal(t, StateLoaded, session.State())
	assert.NotEqual(t, firstID, session.TrackID())
	assert.Equal(t, 44100, session.Format().SampleRate)
	assert.True(t, first.closed.Load())
	assert.True(t, devA.isClosed())
	assert.False(t, second.closed.Load())

	select {
	case <-firstDone:
	default:
		t.Fatal("expected previous track's Done to be closed")
	}
}

func TestSessionPlaysToCompletion(t *testing.T) {
	const frames = 2400
	cfg := testConfig(&stubOpener{sources: map[string]decode.Source{"a": newStubSource(48000, 2, frames)}})
	cfg.NewDevice = output.New
	cfg.Backend = output.BackendNull
	cfg.FramesPerBuffer = 240

	session, err := NewSession(cfg)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Load("a"))
	require.NoError(t, session.Play())

	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("track did not finish")
	}

	assert.True(t, session.IsFinished())
	assert.False(t, session.IsPlaying())

	stats := session.Stats()
	assert.Equal(t, uint64(frames), stats.Written)
	assert.Equal(t, uint64(frames), stats.Played)
	assert.Zero(t, stats.Buffered)
}

func TestSessionDeliversEveryFrameInOrder(t *testing.T) {
	const frames = 20000 // several times the ring capacity
	src := newStubSource(48000, 2, frames)
	src.value = func(frame int) int32 { return int32(frame%4096) << 8 }

	dev := &manualDevice{}
	session, err := NewSession(testConfig(&stubOpener{sources: map[string]decode.Source{"a": src}}, dev))
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Load("a"))
	done := session.Done()
	require.NoError(t, session.Play())

	var got []float32
	deadline := time.After(10 * time.Second)
	for len(got) < frames*2 {
		select {
		case <-deadline:
			t.Fatalf("only received %d of %d samples", len(got)/2, frames)
		default:
		}

		// Only the frames the renderer took from the ring; the rest is silence padding
		before := session.Stats().Played
		out := dev.pump(128)
		played := int(session.Stats().Played - before)
		got = append(got, out[:played*2]...)
		time.Sleep(100 * time.Microsecond)
	}

	for i := 0; i < frames; i++ {
		want := audio.Int24ToFloat32(int32(i%4096) << 8)
		require.Equal(t, want, got[i*2], "frame %d left", i)
		require.Equal(t, want, got[i*2+1], "frame %d right", i)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("track did not finish after the ring drained")
	}
}

func TestSessionDrainsOnStop(t *testing.T) {
	const frames = 1000 // fewer than the ring holds
	src := newStubSource(48000, 2, frames)
	dev := &manualDevice{}
	cfg := testConfig(&stubOpener{sources: map[string]decode.Source{"a": src}}, dev)
	cfg.StallTimeout = 2 * time.Second

	session, err := NewSession(cfg)
	require.NoError(t, err)

	require.NoError(t, session.Load("a"))
	require.NoError(t, session.Play())
	require.Eventually(t, func() bool {
		return session.Stats().Written == frames
	}, 2*time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		session.Stop()
		close(stopped)
	}()

	nonSilent := 0
	for pumping := true; pumping; {
		select {
		case <-stopped:
			pumping = false
		default:
			for _, v := range dev.pump(64) {
				if v != 0 {
					nonSilent++
				}
			}
			time.Sleep(time.Millisecond)
		}
	}

	assert.Equal(t, frames*2, nonSilent)
	assert.Equal(t, StateIdle, session.State())
	assert.False(t, session.IsFinished())
}

func TestSessionStopIsBoundedWhenDeviceStalls(t *testing.T) {
	dev := &manualDevice{}
	opener := &stubOpener{sources: map[string]decode.Source{"a": newStubSource(48000, 2, -1)}}
	session, err := NewSession(testConfig(opener, dev))
	require.NoError(t, err)

	require.NoError(t, session.Load("a"))
	require.NoError(t, session.Play())
	require.Eventually(t, func() bool {
		stats := session.Stats()
		return stats.Buffered == stats.Capacity
	}, 2*time.Second, time.Millisecond)

	start := time.Now()
	session.Stop()
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StateIdle, session.State())
}

func TestSessionPausedStopSkipsDrain(t *testing.T) {
	dev := &manualDevice{}
	opener := &stubOpener{sources: map[string]decode.Source{"a": newStubSource(48000, 2, -1)}}
	cfg := testConfig(opener, dev)
	cfg.StallTimeout = 5 * time.Second
	cfg.DrainTimeout = 5 * time.Second

	session, err := NewSession(cfg)
	require.NoError(t, err)

	require.NoError(t, session.Load("a"))
	require.NoError(t, session.Play())
	require.NoError(t, session.Pause())

	start := time.Now()
	session.Stop()
	assert.Less(t, time.Since(start), time.Second)
}

func TestSessionVolume(t *testing.T) {
	session, err := NewSession(testConfig(&stubOpener{}))
	require.NoError(t, err)

	assert.Equal(t, DefaultVolume, session.Volume())
	assert.Equal(t, 0.5, session.SetVolume(0.5))
	assert.Equal(t, float64(output.MaxVolume), session.SetVolume(3))
	assert.Equal(t, 0.0, session.SetVolume(-1))
	assert.Equal(t, 0.0, session.Stats().Volume)

	_, err = NewSession(Config{Volume: 5, Opener: &stubOpener{}})
	assert.Error(t, err)
}

func TestSessionStateCallbacks(t *testing.T) {
	var states []State
	cfg := testConfig(&stubOpener{sources: map[string]decode.Source{"a": newStubSource(48000, 2, -1)}}, &manualDevice{})
	cfg.OnStateChange = func(s State) { states = append(states, s) }

	session, err := NewSession(cfg)
	require.NoError(t, err)

	require.NoError(t, session.Load("a"))
	require.NoError(t, session.Play())
	require.NoError(t, session.Pause())
	session.Stop()

	assert.Equal(t, []State{StateLoaded, StatePlaying, StatePaused, StateStopping, StateIdle}, states)
}

func TestSessionOutputRateResamples(t *testing.T) {
	cfg := testConfig(&stubOpener{sources: map[string]decode.Source{"a": newStubSource(44100, 2, -1)}}, &manualDevice{})
	cfg.OutputRate = 48000

	session, err := NewSession(cfg)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Load("a"))
	assert.Equal(t, 48000, session.Format().SampleRate)
}

func TestSessionClosed(t *testing.T) {
	session, err := NewSession(testConfig(&stubOpener{}))
	require.NoError(t, err)

	require.NoError(t, session.Close())
	assert.ErrorIs(t, session.Load("a"), ErrClosed)

	select {
	case <-session.Done():
	default:
		t.Fatal("expected Done to be closed when idle")
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "playing", StatePlaying.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestStatsBufferFill(t *testing.T) {
	assert.Zero(t, Stats{}.BufferFill())
	assert.Equal(t, 0.5, Stats{Buffered: 50, Capacity: 100}.BufferFill())
	assert.Equal(t, 1.5, Stats{Played: 72000, Format: audio.Format{SampleRate: 48000}}.Position())
}

// blockingSource parks in Pull like a stalled network stream until interrupted
type blockingSource struct {
	format      audio.Format
	entered     chan struct{}
	enterOnce   sync.Once
	release     chan struct{}
	releaseOnce sync.Once
}

func newBlockingSource() *blockingSource {
	return &blockingSource{
		format:  audio.Format{Codec: "stub", SampleRate: 48000, Channels: 2, BitDepth: 24},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *blockingSource) Format() audio.Format { return s.format }

func (s *blockingSource) Pull(dst []int32) int {
	s.enterOnce.Do(func() { close(s.entered) })
	<-s.release
	return 0
}

func (s *blockingSource) Interrupt() {
	s.releaseOnce.Do(func() { close(s.release) })
}

func (s *blockingSource) Close() error { return nil }

func TestSessionStopInterruptsBlockedSource(t *testing.T) {
	src := newBlockingSource()
	dev := &manualDevice{}
	session, err := NewSession(testConfig(&stubOpener{sources: map[string]decode.Source{"a": src}}, dev))
	require.NoError(t, err)
	defer src.Interrupt()

	require.NoError(t, session.Load("a"))
	require.NoError(t, session.Play())

	select {
	case <-src.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("producer never pulled")
	}

	stopped := make(chan struct{})
	go func() {
		session.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while the source was blocked")
	}
	assert.Equal(t, StateIdle, session.State())
	assert.True(t, dev.isClosed())
}

// raggedSource returns a frame and a half per Pull
type raggedSource struct {
	format audio.Format
	pulls  int
}

func (s *raggedSource) Format() audio.Format { return s.format }

func (s *raggedSource) Pull(dst []int32) int {
	if s.pulls == 0 || len(dst) < 3 {
		return 0
	}
	s.pulls--
	dst[0], dst[1], dst[2] = 1<<20, 1<<20, 1<<20
	return 3
}

func (s *raggedSource) Close() error { return nil }

func TestSessionDropsPartialFrames(t *testing.T) {
	const pulls = 200
	src := &raggedSource{
		format: audio.Format{Codec: "stub", SampleRate: 48000, Channels: 2, BitDepth: 24},
		pulls:  pulls,
	}
	cfg := testConfig(&stubOpener{sources: map[string]decode.Source{"a": src}})
	cfg.NewDevice = output.New
	cfg.Backend = output.BackendNull
	cfg.FramesPerBuffer = 64

	session, err := NewSession(cfg)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Load("a"))
	require.NoError(t, session.Play())

	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("track with partial frames never finished")
	}

	assert.True(t, session.IsFinished())
	assert.Equal(t, uint64(pulls), session.Stats().Written)
}
