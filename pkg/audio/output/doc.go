// ABOUTME: Audio output package for real-time playback
// ABOUTME: Provides the render callback, volume control and device backends
// Package output bridges the playback ring buffer to audio hardware.
//
// A Renderer is the real-time side of the pipeline: every time the host audio
// API asks for frames it drains the ring buffer, applies the shared Volume and
// pads any shortfall with silence. It never locks, allocates or returns an
// error. Devices own the host API binding and invoke a RenderFunc from their
// own callback thread:
//   - Malgo: miniaudio via malgo (default)
//   - Oto: ebitengine/oto
//   - PortAudio: gordonklaus/portaudio (build with -tags portaudio)
//   - Null: paced silent sink used when no hardware is available
//
// Example:
//
//	rb := ringbuf.New(ringbuf.CapacityFor(48000, 2), 2)
//	vol := output.NewVolume(1.0)
//	r := output.NewRenderer(rb, vol)
//
//	dev, err := output.New(output.BackendMalgo, logger)
//	err = dev.Open(format, 512, r.Render)
//	err = dev.Start()
package output
