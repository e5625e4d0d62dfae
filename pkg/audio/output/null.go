// ABOUTME: Silent fallback output used when no playback hardware exists
// ABOUTME: Drives the render callback at real-time pace and discards the audio
package output

import (
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
)

// Null consumes audio at the stream's real-time rate without producing sound.
// Upstream code behaves exactly as with real hardware: buffers drain and
// playback finishes on schedule.
type Null struct {
	render   RenderFunc
	channels int
	scratch  []float32
	period   time.Duration
	stop     chan struct{}
	done     chan struct{}
	mu       sync.Mutex
}

// NewNull creates a new silent output
func NewNull() *Null {
	return &Null{}
}

// Name returns the backend name
func (n *Null) Name() string { return BackendNull }

// Open prepares a period-sized scratch buffer
func (n *Null) Open(format audio.Format, framesPerBuffer int, render RenderFunc) error {
	if err := format.Validate(); err != nil {
		return err
	}
	n.stopLoop()

	n.mu.Lock()
	defer n.mu.Unlock()

	frames := periodFrames(framesPerBuffer)
	n.render = render
	n.channels = format.Channels
	n.scratch = make([]float32, frames*format.Channels)
	n.period = format.FramesToDuration(frames)
	return nil
}

// Start launches the pacing goroutine
func (n *Null) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.render == nil {
		return ErrNotOpen
	}
	if n.stop != nil {
		return nil
	}

	n.stop = make(chan struct{})
	n.done = make(chan struct{})
	go n.loop(n.stop, n.done, n.render, n.scratch, n.period)
	return nil
}

func (n *Null) loop(stop <-chan struct{}, done chan<- struct{}, render RenderFunc, scratch []float32, period time.Duration) {
	defer close(done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			render(scratch)
		case <-stop:
			return
		}
	}
}

// Stop halts the pacing goroutine and waits for it to exit
func (n *Null) Stop() error {
	n.stopLoop()
	return nil
}

// Close stops the device
func (n *Null) Close() error {
	n.stopLoop()
	return nil
}

func (n *Null) stopLoop() {
	n.mu.Lock()
	stop, done := n.stop, n.done
	n.stop, n.done = nil, nil
	n.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// Step renders frames synchronously, in period-sized chunks.
// It reports false without rendering while the device is started, since the
// pacing goroutine is then the only permitted consumer.
func (n *Null) Step(frames int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.render == nil || n.stop != nil {
		return false
	}

	for frames > 0 {
		chunk := min(frames, len(n.scratch)/n.channels)
		n.render(n.scratch[:chunk*n.channels])
		frames -= chunk
	}
	return true
}
