// ABOUTME: Lock-free single-producer/single-consumer ring buffer for audio frames
// ABOUTME: Shared between the decoding goroutine and the real-time device callback
// Package ringbuf provides a fixed-capacity SPSC ring of interleaved float32
// audio frames.
//
// Exactly one goroutine may call Write (the producer) and exactly one may call
// Consume (the device callback). Neither operation locks, allocates or blocks:
// the producer owns the head counter, the consumer owns the tail counter, and
// both share one contiguous sample arena. Capacity is rounded up to a power of
// two so positions reduce with a bitmask, and one frame is always kept free so
// a full ring can be told apart from an empty one.
//
// Example:
//
//	rb := ringbuf.New(ringbuf.CapacityFor(44100, 2.0), 2)
//
//	// producer goroutine
//	n := rb.Write(frames) // may be < len(frames)/2 when full
//
//	// device callback
//	got := rb.Consume(out, volume)
//	clear(out[got*2:])
package ringbuf
