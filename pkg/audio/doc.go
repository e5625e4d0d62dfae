// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and the sample conversions shared by decoders and the ring buffer
// Package audio provides fundamental audio types and utilities.
//
// Decoders emit interleaved int32 samples left-justified in the 24-bit range so
// 16-bit and 24-bit sources share one representation. The playback ring buffer
// stores normalized float32 frames in [-1.0, 1.0]; the producer converts between
// the two with ConvertToFloat32 before writing.
//
// Example:
//
//	format := audio.Format{
//	    Codec:      "flac",
//	    SampleRate: 96000,
//	    Channels:   2,
//	    BitDepth:   24,
//	}
//
//	// 16-bit decoder output into the shared representation
//	sample24 := audio.SampleFromInt16(sample16)
//	frame := audio.Int24ToFloat32(sample24)
package audio
