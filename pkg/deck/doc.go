// ABOUTME: Playback session package
// ABOUTME: Owns the source, ring buffer and device triple for one track at a time
// Package deck provides a local audio playback session.
//
// A Session pulls PCM from a decode.Source on a producer goroutine, pushes it
// through a lock-free ring buffer and lets an output.Device drain it from its
// real-time callback.
//
// Example:
//
//	session, err := deck.NewSession(deck.Config{
//	    Logger: logger,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	if err := session.Load("/music/track.flac"); err != nil {
//	    log.Fatal(err)
//	}
//	session.Play()
//	<-session.Done()
package deck
