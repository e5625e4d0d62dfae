// ABOUTME: Rate-converting source wrapper
// ABOUTME: Presents any source at a fixed output sample rate
package decode

import (
	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
	"github.com/Resonate-Protocol/resonate-deck/pkg/audio/resample"
)

// ResampledSource converts another source to a target sample rate
type ResampledSource struct {
	src       Source
	format    audio.Format
	resampler *resample.Resampler
	in        []int32
	out       []int32
	pending   []int32 // converted samples not yet pulled
	done      bool
}

// Resampled wraps src so it emits targetRate audio.
// src is returned unchanged when it already runs at targetRate or targetRate is unset.
func Resampled(src Source, targetRate int) Source {
	format := src.Format()
	if targetRate <= 0 || format.SampleRate == targetRate {
		return src
	}

	out := format
	out.SampleRate = targetRate

	return &ResampledSource{
		src:       src,
		format:    out,
		resampler: resample.New(format.SampleRate, targetRate, format.Channels),
	}
}

// Format returns the source format at the target rate
func (s *ResampledSource) Format() audio.Format { return s.format }

// Pull fills dst with converted samples
func (s *ResampledSource) Pull(dst []int32) int {
	limit := frameLimit(len(dst), s.format.Channels)
	written := 0

	for written < limit {
		if len(s.pending) == 0 && !s.refill(limit - written) {
			break
		}

		n := copy(dst[written:limit], s.pending)
		s.pending = s.pending[n:]
		written += n
	}

	return written
}

// refill pulls enough input to produce roughly want output samples
func (s *ResampledSource) refill(want int) bool {
	for !s.done {
		need := s.resampler.InputSamplesNeeded(want)
		need = max(frameLimit(need, s.format.Channels), s.format.Channels)
		if cap(s.in) < need {
			s.in = make([]int32, need)
		}

		n := s.src.Pull(s.in[:need])
		if n == 0 {
			s.done = true
			return false
		}

		size := s.resampler.OutputSamplesNeeded(n)
		if cap(s.out) < size {
			s.out = make([]int32, size)
		}
		produced := s.resampler.Resample(s.in[:n], s.out[:size])
		if produced > 0 {
			s.pending = s.out[:produced]
			return true
		}
	}
	return false
}

// Interrupt forwards to the wrapped source
func (s *ResampledSource) Interrupt() { Interrupt(s.src) }

// Close closes the wrapped source
func (s *ResampledSource) Close() error {
	s.done = true
	return s.src.Close()
}
