// ABOUTME: Headerless PCM stream source
// ABOUTME: Reads little-endian 16-bit or 24-bit PCM with a caller-supplied format
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
	"github.com/rs/zerolog"
)

// CDFormat is the layout of raw CD-DA rips: 44.1kHz stereo 16-bit
var CDFormat = audio.Format{Codec: "pcm", SampleRate: 44100, Channels: 2, BitDepth: 16}

// DecodeRawCD reads headerless CD-DA audio
var DecodeRawCD = RawPCM(CDFormat)

// RawSource reads headerless PCM
type RawSource struct {
	r        io.Reader
	format   audio.Format
	sampleSz int
	buf      []byte
	done     bool
	logger   zerolog.Logger
}

// RawPCM returns a decoder for headerless PCM in the given format
func RawPCM(format audio.Format) DecodeFunc {
	return func(r io.ReadSeeker, logger zerolog.Logger) (Source, error) {
		return NewRawSource(r, format, logger)
	}
}

// NewRawSource creates a raw PCM source reading from r
func NewRawSource(r io.Reader, format audio.Format, logger zerolog.Logger) (*RawSource, error) {
	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("%w: raw %d-bit (supported: 16, 24)", ErrUnsupportedFormat, format.BitDepth)
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	return &RawSource{
		r:        r,
		format:   format,
		sampleSz: format.BitDepth / 8,
		logger:   logger,
	}, nil
}

// Format returns the configured format
func (s *RawSource) Format() audio.Format { return s.format }

// Pull reads up to len(dst) samples
func (s *RawSource) Pull(dst []int32) int {
	limit := frameLimit(len(dst), s.format.Channels)
	if s.done || limit == 0 {
		return 0
	}

	need := limit * s.sampleSz
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	n, err := io.ReadFull(s.r, buf)
	if err != nil {
		s.done = true
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			s.logger.Error().Err(err).Msg("Raw PCM read error")
		}
	}

	samples := frameLimit(n/s.sampleSz, s.format.Channels)
	for i := 0; i < samples; i++ {
		if s.sampleSz == 2 {
			dst[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
			continue
		}
		b := buf[i*3:]
		dst[i] = int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
	}

	return samples
}

// Close releases resources
func (s *RawSource) Close() error {
	s.done = true
	return nil
}
