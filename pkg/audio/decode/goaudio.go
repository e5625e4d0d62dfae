// ABOUTME: WAV and AIFF stream sources
// ABOUTME: Wraps go-audio decoders behind the common pull contract
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// pcmReader is satisfied by both wav.Decoder and aiff.Decoder
type pcmReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// PCMSource reads integer PCM from a go-audio decoder
type PCMSource struct {
	dec    pcmReader
	format audio.Format
	intBuf *goaudio.IntBuffer
	done   bool
	logger zerolog.Logger
}

// DecodeWAV creates a WAV source reading from r
func DecodeWAV(r io.ReadSeeker, logger zerolog.Logger) (Source, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a WAV file", ErrInvalidData)
	}

	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("%w: wav: %v", ErrInvalidData, err)
	}

	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: wav audio format %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	return newPCMSource(dec, audio.Format{
		Codec:      "wav",
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}, logger)
}

// DecodeAIFF creates an AIFF source reading from r
func DecodeAIFF(r io.ReadSeeker, logger zerolog.Logger) (Source, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not an AIFF file", ErrInvalidData)
	}

	dec.ReadInfo()

	format := dec.Format()
	if format == nil {
		return nil, fmt.Errorf("%w: aiff header has no format", ErrInvalidData)
	}

	return newPCMSource(dec, audio.Format{
		Codec:      "aiff",
		SampleRate: format.SampleRate,
		Channels:   format.NumChannels,
		BitDepth:   int(dec.BitDepth),
	}, logger)
}

func newPCMSource(dec pcmReader, format audio.Format, logger zerolog.Logger) (*PCMSource, error) {
	switch format.BitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit %s", ErrUnsupportedFormat, format.BitDepth, format.Codec)
	}

	if format.Channels <= 0 || dec.Format() == nil {
		return nil, fmt.Errorf("%w: %s header has no channel layout", ErrInvalidData, format.Codec)
	}

	return &PCMSource{
		dec:    dec,
		format: format,
		logger: logger,
	}, nil
}

// Format returns the stream format from the file header
func (s *PCMSource) Format() audio.Format { return s.format }

// Pull reads up to len(dst) samples
func (s *PCMSource) Pull(dst []int32) int {
	if s.done {
		return 0
	}

	limit := frameLimit(len(dst), s.format.Channels)
	if limit == 0 {
		return 0
	}

	if s.intBuf == nil || cap(s.intBuf.Data) < limit {
		s.intBuf = &goaudio.IntBuffer{
			Data:           make([]int, limit),
			Format:         s.dec.Format(),
			SourceBitDepth: s.format.BitDepth,
		}
	}
	s.intBuf.Data = s.intBuf.Data[:limit]

	n, err := s.dec.PCMBuffer(s.intBuf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		s.logger.Error().Err(err).Str("codec", s.format.Codec).Msg("PCM decode error")
		s.done = true
	}
	if n == 0 {
		s.done = true
		return 0
	}

	n = frameLimit(n, s.format.Channels)
	for i := 0; i < n; i++ {
		dst[i] = audio.SampleFromDepth(int32(s.intBuf.Data[i]), s.format.BitDepth)
	}

	return n
}

// Close releases decoder resources
func (s *PCMSource) Close() error {
	s.done = true
	return nil
}
