// ABOUTME: Session state machine values and statistics
// ABOUTME: Defines State, Stats and the control-plane sentinel errors
package deck

import (
	"errors"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
)

var (
	// ErrNotLoaded is returned when playback is requested with no track loaded
	ErrNotLoaded = errors.New("no track loaded")

	// ErrAlreadyPlaying is returned by Play while playing or paused
	ErrAlreadyPlaying = errors.New("already playing")

	// ErrNotPlaying is returned by Pause and Resume outside of playback
	ErrNotPlaying = errors.New("not playing")

	// ErrClosed is returned once the session has been closed
	ErrClosed = errors.New("session closed")
)

// State describes the session lifecycle
type State int

const (
	StateIdle State = iota
	StateLoaded
	StatePlaying
	StatePaused
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of playback progress
type Stats struct {
	State     State
	TrackID   string
	Format    audio.Format
	Backend   string
	Volume    float64
	Finished  bool
	Buffered  int    // frames waiting in the ring
	Capacity  int    // usable ring frames
	Written   uint64 // frames the producer pushed
	Played    uint64 // frames the device consumed
	Underruns uint64 // callbacks padded with silence
}

// BufferFill returns the ring occupancy as a fraction in [0, 1]
func (s Stats) BufferFill() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Buffered) / float64(s.Capacity)
}

// Position returns the played duration
func (s Stats) Position() float64 {
	if s.Format.SampleRate == 0 {
		return 0
	}
	return float64(s.Played) / float64(s.Format.SampleRate)
}
