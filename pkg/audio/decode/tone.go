// ABOUTME: Test tone generator source
// ABOUTME: Generates a sine wave at 50% amplitude, finite or endless
package decode

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
)

const (
	// TonePrefix marks generated-tone identifiers, e.g. "tone:440:2.5"
	TonePrefix = "tone:"

	DefaultToneRate     = 48000
	DefaultToneChannels = 2
	DefaultToneHz       = 440.0
)

// ToneSource generates a sine wave on every channel
type ToneSource struct {
	format      audio.Format
	frequency   float64
	sampleIndex uint64
	totalFrames uint64 // 0 means endless
}

// NewToneSource creates a tone generator. A non-positive seconds value makes it endless.
func NewToneSource(frequency, seconds float64, sampleRate, channels int) *ToneSource {
	s := &ToneSource{
		format: audio.Format{
			Codec:      "tone",
			SampleRate: sampleRate,
			Channels:   channels,
			BitDepth:   24,
		},
		frequency: frequency,
	}
	if seconds > 0 {
		s.totalFrames = uint64(seconds * float64(sampleRate))
	}
	return s
}

// ParseTone builds a ToneSource from "tone:<hz>[:<seconds>]"
func ParseTone(id string) (*ToneSource, error) {
	args := strings.TrimPrefix(id, TonePrefix)
	parts := strings.Split(args, ":")

	freq := DefaultToneHz
	if parts[0] != "" {
		f, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("%w: bad tone frequency %q", ErrInvalidData, parts[0])
		}
		freq = f
	}

	var seconds float64
	if len(parts) > 1 {
		d, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("%w: bad tone duration %q", ErrInvalidData, parts[1])
		}
		seconds = d
	}
	if len(parts) > 2 {
		return nil, fmt.Errorf("%w: tone takes at most frequency and duration", ErrInvalidData)
	}

	return NewToneSource(freq, seconds, DefaultToneRate, DefaultToneChannels), nil
}

// Format returns the generated stream format
func (s *ToneSource) Format() audio.Format { return s.format }

// Pull generates up to len(dst) samples
func (s *ToneSource) Pull(dst []int32) int {
	channels := s.format.Channels
	frames := uint64(len(dst) / channels)
	if s.totalFrames > 0 {
		frames = min(frames, s.totalFrames-s.sampleIndex)
	}

	rate := float64(s.format.SampleRate)
	for i := uint64(0); i < frames; i++ {
		t := float64(s.sampleIndex+i) / rate
		v := int32(math.Sin(2*math.Pi*s.frequency*t) * audio.Max24Bit * 0.5) // 50% volume

		for ch := 0; ch < channels; ch++ {
			dst[int(i)*channels+ch] = v
		}
	}

	s.sampleIndex += frames
	return int(frames) * channels
}

// Close releases resources
func (s *ToneSource) Close() error { return nil }
