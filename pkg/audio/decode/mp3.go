// ABOUTME: MP3 stream source
// ABOUTME: Decodes MP3 files and HTTP streams to int32 samples via go-mp3
package decode

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
	"github.com/rs/zerolog"
)

// go-mp3 always produces 16-bit little-endian stereo
const (
	mp3Channels      = 2
	mp3BytesPerFrame = 4
)

// MP3Source decodes an MP3 byte stream
type MP3Source struct {
	decoder *mp3.Decoder
	format  audio.Format
	buf     []byte
	done    bool
	logger  zerolog.Logger
}

// DecodeMP3 creates an MP3 source reading from r
func DecodeMP3(r io.ReadSeeker, logger zerolog.Logger) (Source, error) {
	return newMP3Source(r, logger)
}

func newMP3Source(r io.Reader, logger zerolog.Logger) (*MP3Source, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %v", ErrInvalidData, err)
	}

	return &MP3Source{
		decoder: decoder,
		format: audio.Format{
			Codec:      "mp3",
			SampleRate: decoder.SampleRate(),
			Channels:   mp3Channels,
			BitDepth:   16,
		},
		logger: logger,
	}, nil
}

// Format returns the decoded stream format
func (s *MP3Source) Format() audio.Format { return s.format }

// Pull decodes up to len(dst) samples
func (s *MP3Source) Pull(dst []int32) int {
	if s.done {
		return 0
	}

	frames := len(dst) / mp3Channels
	if frames == 0 {
		return 0
	}

	need := frames * mp3BytesPerFrame
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	n, err := io.ReadFull(s.decoder, buf)
	if err != nil {
		s.done = true
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		case errors.Is(err, context.Canceled):
			s.logger.Debug().Msg("MP3 stream interrupted")
		default:
			s.logger.Error().Err(err).Msg("MP3 decode error")
		}
	}

	n -= n % mp3BytesPerFrame
	samples := n / 2
	for i := 0; i < samples; i++ {
		dst[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}

	return samples
}

// Close releases decoder resources
func (s *MP3Source) Close() error {
	s.done = true
	return nil
}
