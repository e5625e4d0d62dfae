// ABOUTME: Session configuration and defaults
// ABOUTME: Buffer sizing, retry pacing, drain bounds and injected collaborators
package deck

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-deck/pkg/audio/output"
)

const (
	DefaultBufferSeconds = 2.0
	DefaultBatchSamples  = 4096
	DefaultRetryInterval = 5 * time.Millisecond
	DefaultStallTimeout  = 500 * time.Millisecond
	DefaultVolume        = 1.0
)

// DeviceFactory creates an unopened output device for a backend name
type DeviceFactory func(backend string, logger zerolog.Logger) (output.Device, error)

// Config holds session configuration
type Config struct {
	// Backend selects the output backend (default: malgo)
	Backend string

	// NewDevice creates output devices (default: output.New)
	NewDevice DeviceFactory

	// Opener resolves media identifiers (default: decode.DefaultRegistry)
	Opener decode.Opener

	// BufferSeconds sizes the ring buffer (default: 2)
	BufferSeconds float64

	// FramesPerBuffer is the device callback period (default: 512)
	FramesPerBuffer int

	// BatchSamples is how many samples the producer pulls at once (default: 4096)
	BatchSamples int

	// RetryInterval is the producer's sleep when the ring is full (default: 5ms)
	RetryInterval time.Duration

	// DrainTimeout bounds the wait for buffered audio to play out
	// (default: buffer length plus one second)
	DrainTimeout time.Duration

	// StallTimeout abandons a drain when the device stops consuming (default: 500ms)
	StallTimeout time.Duration

	// Volume is the initial gain, 0 to output.MaxVolume (default: 1.0)
	Volume float64

	// OutputRate resamples sources to this rate when set
	OutputRate int

	// Logger receives session logs (default: disabled)
	Logger zerolog.Logger

	// OnStateChange is called when the session changes state.
	// Callbacks run with the session lock held and must not call back into it.
	OnStateChange func(State)

	// OnError is called when errors occur (default: log them)
	OnError func(error)
}

// withDefaults returns a copy of c with unset fields filled in
func (c Config) withDefaults() Config {
	if c.NewDevice == nil {
		c.NewDevice = output.New
	}
	if c.Opener == nil {
		c.Opener = decode.DefaultRegistry(c.Logger)
	}
	if c.BufferSeconds <= 0 {
		c.BufferSeconds = DefaultBufferSeconds
	}
	if c.FramesPerBuffer <= 0 {
		c.FramesPerBuffer = output.DefaultFramesPerBuffer
	}
	if c.BatchSamples <= 0 {
		c.BatchSamples = DefaultBatchSamples
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = time.Duration((c.BufferSeconds + 1) * float64(time.Second))
	}
	if c.StallTimeout <= 0 {
		c.StallTimeout = DefaultStallTimeout
	}
	if c.Volume == 0 {
		c.Volume = DefaultVolume
	}
	return c
}
