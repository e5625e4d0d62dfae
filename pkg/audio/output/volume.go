// ABOUTME: Lock-free shared volume scalar
// ABOUTME: Written by control code, read once per render callback
package output

import (
	"math"
	"sync/atomic"
)

// MaxVolume is the largest gain accepted by Volume.
// Values above 1.0 boost; the renderer clips samples at full scale.
const MaxVolume = 2.0

// Volume is a float32 gain shared between control goroutines and the device callback
type Volume struct {
	bits atomic.Uint32
}

// NewVolume creates a volume initialized to v (clamped)
func NewVolume(v float32) *Volume {
	vol := &Volume{}
	vol.Set(v)
	return vol
}

// Set stores v clamped to [0, MaxVolume] and returns the stored value
func (v *Volume) Set(gain float32) float32 {
	if gain < 0 || math.IsNaN(float64(gain)) {
		gain = 0
	}
	if gain > MaxVolume {
		gain = MaxVolume
	}
	v.bits.Store(math.Float32bits(gain))
	return gain
}

// Load returns the current gain
func (v *Volume) Load() float32 {
	return math.Float32frombits(v.bits.Load())
}
