// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats and sample conversions between integer PCM and float frames
package audio

import (
	"fmt"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23

	// fullScale24 maps a 24-bit sample onto [-1.0, 1.0)
	fullScale24 = 8388608.0
)

// Format describes audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// String returns a short human-readable description, e.g. "flac 44100Hz 2ch 16-bit"
func (f Format) String() string {
	return fmt.Sprintf("%s %dHz %dch %d-bit", f.Codec, f.SampleRate, f.Channels, f.BitDepth)
}

// Validate reports whether the format can drive a playback session
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", f.Channels)
	}
	return nil
}

// FramesToDuration converts a frame count at the format's sample rate to wall time
func (f Format) FramesToDuration(frames int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	// Left-shift to position 16-bit value in upper bits
	return int32(sample) << 8
}

// SampleFromDepth scales a signed sample of the given bit depth into the 24-bit range
func SampleFromDepth(sample int32, bitDepth int) int32 {
	switch {
	case bitDepth == 24 || bitDepth <= 0:
		return sample
	case bitDepth < 24:
		return sample << (24 - bitDepth)
	default:
		return sample >> (bitDepth - 24)
	}
}

// Int24ToFloat32 converts a 24-bit sample to a normalized float in [-1.0, 1.0)
func Int24ToFloat32(sample int32) float32 {
	return float32(float64(sample) / fullScale24)
}

// Float32ToInt24 converts a normalized float to the 24-bit range, clipping out-of-range input
func Float32ToInt24(sample float32) int32 {
	v := float64(Clamp(sample)) * fullScale24
	if v > Max24Bit {
		return Max24Bit
	}
	if v < Min24Bit {
		return Min24Bit
	}
	return int32(v)
}

// ConvertToFloat32 converts interleaved 24-bit samples into dst.
// It returns the number of samples converted: min(len(dst), len(src)).
func ConvertToFloat32(dst []float32, src []int32) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = Int24ToFloat32(src[i])
	}
	return n
}

// Clamp limits a sample to [-1.0, 1.0]
func Clamp(sample float32) float32 {
	if sample > 1.0 {
		return 1.0
	}
	if sample < -1.0 {
		return -1.0
	}
	return sample
}
