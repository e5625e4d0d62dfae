// ABOUTME: Device probe that plays a test tone on each requested backend
// ABOUTME: Reports delivered frames and underruns so a broken output is easy to spot
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
	"github.com/Resonate-Protocol/resonate-deck/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-deck/pkg/deck"
)

var (
	backends = flag.String("backends", "malgo,oto,portaudio,null", "Comma-separated backends to probe")
	freq     = flag.Float64("freq", 440, "Tone frequency (Hz)")
	seconds  = flag.Float64("seconds", 2, "Tone length per backend")
	volume   = flag.Float64("volume", 0.3, "Playback volume (0.0-2.0)")
	verbose  = flag.Bool("v", false, "Verbose logging")
)

func main() {
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	fmt.Println("=== Resonate Deck Device Probe ===")

	failed := false
	for _, backend := range strings.Split(*backends, ",") {
		backend = strings.TrimSpace(backend)
		if backend == "" {
			continue
		}
		if err := probe(backend, logger); err != nil {
			fmt.Printf("%-10s FAIL  %v\n", backend, err)
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}

// strictDevice hides the sentinels the session treats as "fall back to null output"
type strictDevice struct {
	output.Device
}

func (d strictDevice) Open(format audio.Format, framesPerBuffer int, render output.RenderFunc) error {
	err := d.Device.Open(format, framesPerBuffer, render)
	if errors.Is(err, output.ErrNoDevice) || errors.Is(err, output.ErrBackendUnavailable) {
		return errors.New(err.Error())
	}
	return err
}

// probe plays one tone through a single backend without the null fallback
func probe(backend string, logger zerolog.Logger) error {
	session, err := deck.NewSession(deck.Config{
		Backend: backend,
		Volume:  *volume,
		Logger:  logger.With().Str("backend", backend).Logger(),
		NewDevice: func(name string, logger zerolog.Logger) (output.Device, error) {
			dev, err := output.New(name, logger)
			if err != nil {
				return nil, err
			}
			return strictDevice{dev}, nil
		},
	})
	if err != nil {
		return err
	}
	defer session.Close()

	start := time.Now()
	if err := session.Load(fmt.Sprintf("tone:%g:%g", *freq, *seconds)); err != nil {
		return err
	}
	if err := session.Play(); err != nil {
		return err
	}

	timeout := time.Duration((*seconds + 5) * float64(time.Second))
	select {
	case <-session.Done():
	case <-time.After(timeout):
		session.Stop()
		return fmt.Errorf("playback did not finish within %v", timeout)
	}

	stats := session.Stats()
	status := "OK"
	if stats.Underruns > 0 {
		status = "WARN"
	}
	fmt.Printf("%-10s %-4s  %s  played=%d written=%d underruns=%d elapsed=%v\n",
		backend, status, stats.Format, stats.Played, stats.Written, stats.Underruns,
		time.Since(start).Round(time.Millisecond))
	return nil
}
