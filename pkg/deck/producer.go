// ABOUTME: Producer fill loop feeding the ring buffer
// ABOUTME: Pulls, converts and writes batches with bounded retry and drain waits
package deck

import (
	"context"
	"time"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
)

// produce runs the fill loop until the stream ends or ctx is cancelled.
// It never drops frames: a full ring means sleeping and retrying the remainder.
func (s *Session) produce(ctx context.Context, t *track) error {
	channels := t.format.Channels
	batchSamples := max(s.config.BatchSamples-s.config.BatchSamples%channels, channels)

	pcm := make([]int32, batchSamples)
	frames := make([]float32, batchSamples)

	for ctx.Err() == nil {
		n := t.source.Pull(pcm)
		// Partial frames from a misbehaving source would never fit the ring
		n = min(n, len(pcm))
		n -= n % channels
		if n <= 0 {
			break
		}

		audio.ConvertToFloat32(frames, pcm[:n])
		pending := frames[:n]

		for len(pending) > 0 {
			written := t.ring.Write(pending)
			pending = pending[written*channels:]
			t.written.Add(uint64(written))

			if len(pending) == 0 {
				break
			}
			if !sleepCtx(ctx, s.config.RetryInterval) {
				return nil
			}
		}
	}

	if ctx.Err() != nil {
		return nil
	}

	t.logger.Debug().Uint64("written_frames", t.written.Load()).Msg("Source exhausted, draining")

	if !s.waitDrained(ctx, t) {
		if ctx.Err() != nil {
			return nil
		}
		t.logger.Warn().Int("buffered_frames", t.ring.Occupied()).Msg("Drain abandoned at end of track")
	}

	t.finished.Store(true)
	t.markDone()
	t.logger.Info().Uint64("played_frames", t.renderer.Played()).Msg("Track finished")
	return nil
}

// waitDrained polls until the ring is empty. It gives up after DrainTimeout
// of unpaused waiting, or StallTimeout without the consumer making progress.
func (s *Session) waitDrained(ctx context.Context, t *track) bool {
	now := time.Now()
	deadline := now.Add(s.config.DrainTimeout)
	lastMove := now
	last := t.ring.Occupied()

	for {
		occupied := t.ring.Occupied()
		if occupied == 0 {
			return true
		}

		now = time.Now()
		if t.paused.Load() {
			// Paused time does not count against the drain
			deadline = now.Add(s.config.DrainTimeout)
			lastMove = now
		} else {
			if occupied != last {
				last = occupied
				lastMove = now
			}
			if now.After(deadline) || now.Sub(lastMove) > s.config.StallTimeout {
				return false
			}
		}

		if !sleepCtx(ctx, s.config.RetryInterval) {
			return false
		}
	}
}

// sleepCtx waits for d, returning false early if ctx is cancelled
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
