// ABOUTME: Entry point for the Resonate Deck local player
// ABOUTME: Parses CLI flags, sets up logging and plays the given tracks
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/resonate-deck/internal/app"
	"github.com/Resonate-Protocol/resonate-deck/internal/config"
	"github.com/Resonate-Protocol/resonate-deck/internal/logging"
	"github.com/Resonate-Protocol/resonate-deck/internal/ui"
	"github.com/Resonate-Protocol/resonate-deck/internal/version"
	"github.com/Resonate-Protocol/resonate-deck/pkg/deck"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	backend := flag.String("backend", cfg.Backend, "Audio backend: malgo, oto, portaudio, null")
	bufferSeconds := flag.Float64("buffer", cfg.BufferSeconds, "Ring buffer length in seconds")
	volume := flag.Float64("volume", cfg.Volume, "Initial volume (0.0-2.0)")
	outputRate := flag.Int("rate", cfg.OutputRate, "Resample every track to this rate (0 = native)")
	framesPerBuffer := flag.Int("frames", cfg.FramesPerBuffer, "Device callback period in frames")
	logFile := flag.String("log-file", cfg.LogFile, "Log file path")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	noTUI := flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs := flag.Bool("stream-logs", false, "Alias for -no-tui")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <file|url|tone:hz[:seconds]>...\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	tracks := flag.Args()
	if len(tracks) == 0 {
		// Nothing given: play a test tone
		tracks = []string{"tone:440"}
	}

	// Determine if we should use TUI or streaming logs
	useTUI := !(*noTUI || *streamLogs)

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}

	f, err := logging.OpenFile(*logFile)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	// TUI mode logs only to file; streaming mode also logs to stdout
	var console io.Writer
	if !useTUI {
		console = os.Stdout
	}
	logger := logging.New(f, console, level)

	logger.Info().
		Str("version", version.Version).
		Str("backend", *backend).
		Int("tracks", len(tracks)).
		Msgf("Starting %s", version.Product)

	// TUI setup
	var tuiProg *tea.Program
	var controls *ui.Controls

	if useTUI {
		controls = ui.NewControls()
		tuiProg, err = ui.Run(controls)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to start TUI")
		}
	}

	// Helper to update TUI
	updateTUI := func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	player, err := app.New(app.Config{
		Tracks: tracks,
		Session: deck.Config{
			Backend:         *backend,
			BufferSeconds:   *bufferSeconds,
			FramesPerBuffer: *framesPerBuffer,
			Volume:          *volume,
			OutputRate:      *outputRate,
			Logger:          logger,
			OnStateChange: func(state deck.State) {
				updateTUI(ui.StatusMsg{State: state.String()})
			},
			OnError: func(err error) {
				logger.Error().Err(err).Msg("Player error")
			},
		},
	}, controls, updateTUI)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create player")
	}

	// Handle shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tuiDone := make(chan struct{})
	if tuiProg != nil {
		go func() {
			defer close(tuiDone)
			if _, err := tuiProg.Run(); err != nil {
				logger.Error().Err(err).Msg("TUI exited with error")
			}
		}()
	} else {
		close(tuiDone)
	}

	if err := player.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Playback failed")
	}

	if tuiProg != nil {
		tuiProg.Quit()
		select {
		case <-tuiDone:
		case <-time.After(time.Second):
		}
	}

	logger.Info().Msg("Player stopped")
}
