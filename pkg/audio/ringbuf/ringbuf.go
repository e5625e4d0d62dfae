// ABOUTME: SPSC ring buffer implementation
// ABOUTME: Atomic head/tail frame counters over a power-of-two float32 arena
package ringbuf

import (
	"math"
	"sync/atomic"
)

// Buffer is a single-producer/single-consumer ring of interleaved frames
type Buffer struct {
	data     []float32
	channels int
	capacity uint64 // frames, power of two
	mask     uint64

	// Padding keeps the producer and consumer counters on separate cache lines
	_    [8]uint64
	head atomic.Uint64 // frames ever written; stored only by the producer
	_    [8]uint64
	tail atomic.Uint64 // frames ever consumed; stored only by the consumer
	_    [8]uint64
}

// New creates a ring holding capacityFrames frames of the given channel count.
// The capacity is rounded up to the next power of two (minimum 2); one frame
// is reserved, so Capacity()-1 frames are usable.
func New(capacityFrames, channels int) *Buffer {
	if channels <= 0 {
		panic("ringbuf: channel count must be positive")
	}
	size := nextPowerOfTwo(uint64(max(capacityFrames, 2)))

	return &Buffer{
		data:     make([]float32, size*uint64(channels)),
		channels: channels,
		capacity: size,
		mask:     size - 1,
	}
}

// CapacityFor returns the frame capacity needed to hold the given number of
// seconds at sampleRate, before power-of-two rounding.
func CapacityFor(sampleRate int, seconds float64) int {
	frames := int(math.Ceil(float64(sampleRate) * seconds))
	if frames < 2 {
		return 2
	}
	return frames
}

// Capacity returns the ring size in frames (a power of two)
func (b *Buffer) Capacity() int { return int(b.capacity) }

// Channels returns the number of samples per frame
func (b *Buffer) Channels() int { return b.channels }

// Occupied returns the number of frames waiting to be consumed.
// From the consumer's side the value can only under-report.
func (b *Buffer) Occupied() int {
	tail := b.tail.Load()
	head := b.head.Load()
	return int(head - tail)
}

// Free returns the number of frames that can be written.
// From the producer's side the value can only under-report.
func (b *Buffer) Free() int {
	head := b.head.Load()
	tail := b.tail.Load()
	return int(b.capacity - 1 - (head - tail))
}

// Write copies as many whole frames from frames as currently fit and returns
// the number of frames written. Only the producer goroutine may call Write.
func (b *Buffer) Write(frames []float32) int {
	count := uint64(len(frames) / b.channels)
	if count == 0 {
		return 0
	}

	head := b.head.Load() // own counter
	tail := b.tail.Load() // publishes consumer progress
	free := b.capacity - 1 - (head - tail)
	if count > free {
		count = free
	}
	if count == 0 {
		return 0
	}

	ch := uint64(b.channels)
	start := head & b.mask
	first := min(count, b.capacity-start)

	copy(b.data[start*ch:(start+first)*ch], frames[:first*ch])
	if first < count {
		copy(b.data[:(count-first)*ch], frames[first*ch:count*ch])
	}

	// Frame data is complete before the new head becomes visible
	b.head.Store(head + count)
	return int(count)
}

// Consume copies up to len(dst)/Channels() frames into dst, scaling every
// sample by gain and clamping it to [-1.0, 1.0]. It returns the number of
// frames read and leaves the rest of dst untouched; callers pad the shortfall
// with silence. Only the consumer goroutine may call Consume.
func (b *Buffer) Consume(dst []float32, gain float32) int {
	want := uint64(len(dst) / b.channels)
	if want == 0 {
		return 0
	}

	tail := b.tail.Load() // own counter
	head := b.head.Load() // frames up to head are fully written
	count := min(want, head-tail)
	if count == 0 {
		return 0
	}

	ch := uint64(b.channels)
	start := tail & b.mask
	first := min(count, b.capacity-start)

	scale(dst[:first*ch], b.data[start*ch:(start+first)*ch], gain)
	if first < count {
		scale(dst[first*ch:count*ch], b.data[:(count-first)*ch], gain)
	}

	// Slots are released only after their samples were copied out
	b.tail.Store(tail + count)
	return int(count)
}

// scale copies src into dst applying gain with a hard clip at full scale
func scale(dst, src []float32, gain float32) {
	for i, s := range src {
		v := s * gain
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		dst[i] = v
	}
}

// nextPowerOfTwo rounds v up to a power of two
func nextPowerOfTwo(v uint64) uint64 {
	if v <= 1 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}
