// ABOUTME: Source interface definition
// ABOUTME: Common pull contract shared by every decoder
package decode

import (
	"context"
	"errors"
	"io"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
)

var (
	// ErrUnsupportedFormat is returned for identifiers no decoder handles
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrInvalidData is returned when a stream header cannot be parsed
	ErrInvalidData = errors.New("invalid audio data")
)

// Source produces PCM audio on demand
type Source interface {
	// Format returns the stream's native format
	Format() audio.Format

	// Pull fills dst with interleaved int32 samples (24-bit range) and returns
	// how many were written, always a multiple of the channel count.
	// Zero means end of stream or a fatal error.
	Pull(dst []int32) int

	// Close releases decoder resources
	Close() error
}

// Opener opens a Source for a media identifier
type Opener interface {
	Open(id string) (Source, error)
}

// Interrupter is implemented by sources whose Pull can block on I/O.
// Interrupt unblocks a pending Pull, which then reports end of stream.
// It is safe to call from any goroutine and more than once.
type Interrupter interface {
	Interrupt()
}

// Interrupt unblocks src when it supports interruption
func Interrupt(src Source) {
	if i, ok := src.(Interrupter); ok {
		i.Interrupt()
	}
}

// frameLimit trims n down to a whole number of frames
func frameLimit(n, channels int) int {
	return n - n%channels
}

// closingSource closes an underlying reader after the decoder.
// cancel, when set, aborts the request feeding the reader.
type closingSource struct {
	Source
	closer io.Closer
	cancel context.CancelFunc
}

func (s *closingSource) Interrupt() {
	if s.cancel != nil {
		s.cancel()
	}
	Interrupt(s.Source)
}

func (s *closingSource) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	err := s.Source.Close()
	if cerr := s.closer.Close(); err == nil {
		err = cerr
	}
	return err
}
