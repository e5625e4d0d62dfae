// ABOUTME: Real-time render callback draining the ring buffer
// ABOUTME: Applies volume, pads underruns with silence and keeps lock-free counters
package output

import (
	"sync/atomic"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio/ringbuf"
)

// Renderer is the consumer side of a playback ring buffer.
// Its Render method is safe to hand to any Device as a RenderFunc.
type Renderer struct {
	ring     *ringbuf.Buffer
	volume   *Volume
	channels int

	played    atomic.Uint64 // frames taken from the ring
	requested atomic.Uint64 // frames asked for by the device
	underruns atomic.Uint64 // callbacks that had to pad with silence
}

// NewRenderer creates a renderer reading from ring with the shared volume
func NewRenderer(ring *ringbuf.Buffer, volume *Volume) *Renderer {
	return &Renderer{
		ring:     ring,
		volume:   volume,
		channels: ring.Channels(),
	}
}

// Render fills out completely: buffered audio first, then exact zeros.
// It does not lock, allocate or block.
func (r *Renderer) Render(out []float32) {
	frames := len(out) / r.channels
	n := r.ring.Consume(out, r.volume.Load())

	// Underruns are silent, never stale data
	clear(out[n*r.channels:])

	r.requested.Add(uint64(frames))
	r.played.Add(uint64(n))
	if n < frames {
		r.underruns.Add(1)
	}
}

// Played returns the number of frames delivered to the device
func (r *Renderer) Played() uint64 { return r.played.Load() }

// Requested returns the number of frames the device asked for
func (r *Renderer) Requested() uint64 { return r.requested.Load() }

// Underruns returns the number of callbacks padded with silence
func (r *Renderer) Underruns() uint64 { return r.underruns.Load() }
