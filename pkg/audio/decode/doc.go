// ABOUTME: Stream source package for file and network audio
// ABOUTME: Provides the Source/Opener contract and decoders for MP3, FLAC, WAV, AIFF, Ogg Vorbis and raw PCM
// Package decode turns media identifiers into pull-based PCM sources.
//
// Supports: MP3 (files and HTTP streams), FLAC, WAV, AIFF, Ogg Vorbis, raw
// 16/24-bit PCM and a generated test tone.
//
// Every Source yields interleaved int32 samples in 24-bit range, always a
// whole number of frames per Pull. A Pull returning 0 means the stream is over:
// either the natural end or a fatal decode error, which the source logs itself.
//
// Example:
//
//	reg := decode.DefaultRegistry(logger)
//	src, err := reg.Open("/music/track.flac")
//	defer src.Close()
//
//	buf := make([]int32, 4096)
//	for n := src.Pull(buf); n > 0; n = src.Pull(buf) {
//	    // buf[:n] holds n/src.Format().Channels frames
//	}
package decode
