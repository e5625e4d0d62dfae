// ABOUTME: Main player application orchestration
// ABOUTME: Plays a list of tracks through a session and wires it to the TUI
package app

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/Resonate-Protocol/resonate-deck/internal/ui"
	"github.com/Resonate-Protocol/resonate-deck/pkg/deck"
)

const (
	statsInterval        = 500 * time.Millisecond
	runtimeStatsInterval = 2 * time.Second
)

// Config holds player configuration
type Config struct {
	// Tracks are media identifiers played in order
	Tracks []string

	// Session configures the playback session
	Session deck.Config
}

// Player plays a track list
type Player struct {
	config   Config
	session  *deck.Session
	logger   zerolog.Logger
	controls *ui.Controls
	update   func(ui.StatusMsg)

	index   int  // current track
	stopped bool // user pressed stop; wait for play
}

// New creates a new player. controls and update may be nil when running without a TUI.
func New(config Config, controls *ui.Controls, update func(ui.StatusMsg)) (*Player, error) {
	if len(config.Tracks) == 0 {
		return nil, errors.New("no tracks to play")
	}

	session, err := deck.NewSession(config.Session)
	if err != nil {
		return nil, err
	}

	if update == nil {
		update = func(ui.StatusMsg) {}
	}

	return &Player{
		config:   config,
		session:  session,
		logger:   config.Session.Logger,
		controls: controls,
		update:   update,
	}, nil
}

// Session returns the underlying playback session
func (p *Player) Session() *deck.Session {
	return p.session
}

// Run plays every track in order. It returns when the list is exhausted,
// the user quits or ctx is cancelled.
func (p *Player) Run(ctx context.Context) error {
	defer p.session.Close()

	var commands <-chan ui.Command
	var volumes <-chan float64
	var quit <-chan ui.QuitMsg
	if p.controls != nil {
		commands, volumes, quit = p.controls.Commands, p.controls.Volume, p.controls.Quit
	}

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	runtimeTicker := time.NewTicker(runtimeStatsInterval)
	defer runtimeTicker.Stop()

	vol := p.session.Volume()
	p.update(ui.StatusMsg{Volume: &vol})

	if !p.startTrack() {
		return nil
	}

	for {
		var done <-chan struct{}
		if !p.stopped {
			done = p.session.Done()
		}

		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Shutdown requested")
			return nil

		case <-quit:
			p.logger.Info().Msg("Received quit signal from TUI")
			return nil

		case <-done:
			if !p.session.IsFinished() {
				// Stopped underneath us; wait for a play command
				p.stopped = true
				continue
			}
			if !p.advance() {
				p.logger.Info().Msg("Playlist finished")
				return nil
			}

		case cmd := <-commands:
			if !p.handleCommand(cmd) {
				return nil
			}

		case v := <-volumes:
			stored := p.session.SetVolume(v)
			p.logger.Debug().Float64("volume", stored).Msg("Volume change")
			p.update(ui.StatusMsg{Volume: &stored})

		case <-runtimeTicker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			p.update(ui.StatusMsg{
				Goroutines: runtime.NumGoroutine(),
				MemAlloc:   m.Alloc,
				MemSys:     m.Sys,
			})

		case <-ticker.C:
			p.sendStats()
		}
	}
}

// handleCommand applies a TUI transport command. It returns false when the playlist is over.
func (p *Player) handleCommand(cmd ui.Command) bool {
	switch cmd {
	case ui.CommandTogglePause:
		switch p.session.State() {
		case deck.StatePlaying:
			p.reportErr(p.session.Pause())
		case deck.StatePaused:
			p.reportErr(p.session.Resume())
		case deck.StateIdle:
			p.stopped = false
			if !p.startTrack() {
				return false
			}
		}
		p.sendStats()

	case ui.CommandStop:
		p.session.Stop()
		p.stopped = true
		p.sendStats()

	case ui.CommandNext:
		p.stopped = false
		return p.advance()
	}
	return true
}

// advance moves to the next track. It returns false past the end of the list.
func (p *Player) advance() bool {
	p.index++
	return p.startTrack()
}

// startTrack loads and plays the current track, skipping tracks that fail to open
func (p *Player) startTrack() bool {
	for ; p.index < len(p.config.Tracks); p.index++ {
		id := p.config.Tracks[p.index]

		if err := p.session.Load(id); err != nil {
			p.logger.Error().Err(err).Str("source", id).Msg("Skipping track")
			continue
		}
		if err := p.session.Play(); err != nil {
			p.logger.Error().Err(err).Str("source", id).Msg("Skipping track")
			continue
		}

		format := p.session.Format()
		stats := p.session.Stats()
		p.update(ui.StatusMsg{
			State:      stats.State.String(),
			Track:      id,
			TrackIndex: p.index + 1,
			TrackCount: len(p.config.Tracks),
			TrackID:    stats.TrackID,
			Codec:      format.Codec,
			SampleRate: format.SampleRate,
			Channels:   format.Channels,
			BitDepth:   format.BitDepth,
			Backend:    stats.Backend,
		})
		return true
	}

	p.session.Stop()
	return false
}

func (p *Player) sendStats() {
	stats := p.session.Stats()
	p.update(ui.StatusMsg{
		State:     stats.State.String(),
		Buffered:  stats.Buffered,
		Capacity:  stats.Capacity,
		Played:    stats.Played,
		Underruns: stats.Underruns,
		Position:  stats.Position(),
	})
}

func (p *Player) reportErr(err error) {
	if err != nil {
		p.logger.Warn().Err(err).Msg("Transport command failed")
	}
}
