// ABOUTME: Ogg Vorbis stream source
// ABOUTME: Decodes Vorbis float output into 24-bit int32 samples
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
	"github.com/jfreymuth/oggvorbis"
	"github.com/rs/zerolog"
)

// oggReader is the slice of oggvorbis.Reader the source depends on
type oggReader interface {
	SampleRate() int
	Channels() int
	Read(p []float32) (int, error)
}

// VorbisSource decodes an Ogg Vorbis stream
type VorbisSource struct {
	dec    oggReader
	format audio.Format
	buf    []float32
	done   bool
	logger zerolog.Logger
}

// DecodeVorbis creates a Vorbis source reading from r
func DecodeVorbis(r io.ReadSeeker, logger zerolog.Logger) (Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: vorbis: %v", ErrInvalidData, err)
	}

	return newVorbisSource(dec, logger), nil
}

func newVorbisSource(dec oggReader, logger zerolog.Logger) *VorbisSource {
	return &VorbisSource{
		dec: dec,
		format: audio.Format{
			Codec:      "vorbis",
			SampleRate: dec.SampleRate(),
			Channels:   dec.Channels(),
			BitDepth:   24,
		},
		logger: logger,
	}
}

// Format returns the stream format from the identification header
func (s *VorbisSource) Format() audio.Format { return s.format }

// Pull decodes up to len(dst) samples
func (s *VorbisSource) Pull(dst []int32) int {
	channels := s.format.Channels
	limit := frameLimit(len(dst), channels)
	if s.done || limit == 0 {
		return 0
	}

	if cap(s.buf) < limit {
		s.buf = make([]float32, limit)
	}
	buf := s.buf[:limit]

	// Read may return short counts mid-stream; keep going until full or ended
	written := 0
	for written < limit {
		n, err := s.dec.Read(buf[written:])
		written += n

		if err != nil {
			s.done = true
			if !errors.Is(err, io.EOF) {
				s.logger.Error().Err(err).Msg("Vorbis decode error")
			}
			break
		}
		if n == 0 {
			break
		}
	}

	written = frameLimit(written, channels)
	for i := 0; i < written; i++ {
		dst[i] = audio.Float32ToInt24(buf[i])
	}

	return written
}

// Close releases decoder resources
func (s *VorbisSource) Close() error {
	s.done = true
	return nil
}
