// ABOUTME: FLAC stream source
// ABOUTME: Decodes FLAC frames with mewkiz/flac and interleaves them into int32 samples
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
	"github.com/mewkiz/flac"
	"github.com/rs/zerolog"
)

// FLACSource decodes a FLAC stream frame by frame
type FLACSource struct {
	stream  *flac.Stream
	format  audio.Format
	block   []int32 // backing storage for the current FLAC frame
	pending []int32 // interleaved samples of block not yet pulled
	done    bool
	logger  zerolog.Logger
}

// DecodeFLAC creates a FLAC source reading from r
func DecodeFLAC(r io.ReadSeeker, logger zerolog.Logger) (Source, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w: flac: %v", ErrInvalidData, err)
	}

	info := stream.Info
	return &FLACSource{
		stream: stream,
		format: audio.Format{
			Codec:      "flac",
			SampleRate: int(info.SampleRate),
			Channels:   int(info.NChannels),
			BitDepth:   int(info.BitsPerSample),
		},
		logger: logger,
	}, nil
}

// Format returns the stream format from STREAMINFO
func (s *FLACSource) Format() audio.Format { return s.format }

// Pull decodes up to len(dst) samples
func (s *FLACSource) Pull(dst []int32) int {
	channels := s.format.Channels
	limit := frameLimit(len(dst), channels)
	written := 0

	for written < limit {
		if len(s.pending) == 0 {
			if s.done || !s.parseNext() {
				break
			}
		}

		n := copy(dst[written:limit], s.pending)
		s.pending = s.pending[n:]
		written += n
	}

	return written
}

// parseNext decodes one FLAC frame into pending
func (s *FLACSource) parseNext() bool {
	frame, err := s.stream.ParseNext()
	if err != nil {
		s.done = true
		if !errors.Is(err, io.EOF) {
			s.logger.Error().Err(err).Msg("FLAC decode error")
		}
		return false
	}

	channels := s.format.Channels
	blockSize := int(frame.BlockSize)
	need := blockSize * channels
	if cap(s.block) < need {
		s.block = make([]int32, need)
	}
	s.pending = s.block[:need]

	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < channels; ch++ {
			s.pending[i*channels+ch] = audio.SampleFromDepth(frame.Subframes[ch].Samples[i], s.format.BitDepth)
		}
	}

	return true
}

// Close releases decoder resources
func (s *FLACSource) Close() error {
	s.done = true
	s.pending = nil
	s.block = nil
	return s.stream.Close()
}
