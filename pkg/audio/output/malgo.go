// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo with a float32 data callback
package output

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/Resonate-Protocol/resonate-deck/pkg/audio"
	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	logger   zerolog.Logger
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	format   audio.Format
	running  bool
	mu       sync.Mutex
}

// NewMalgo creates a new Malgo output
func NewMalgo(logger zerolog.Logger) Device {
	return &Malgo{logger: logger}
}

// Name returns the backend name
func (m *Malgo) Name() string { return BackendMalgo }

// Open initializes the output device with specified format
func (m *Malgo) Open(format audio.Format, framesPerBuffer int, render RenderFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := format.Validate(); err != nil {
		return err
	}

	// A device is bound to one render callback, so reopening always rebuilds it
	if m.device != nil {
		m.closeDevice()
	}

	// Create malgo context if needed
	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("%w: failed to initialize malgo context: %v", ErrNoDevice, err)
		}
		m.malgoCtx = ctx
	}

	devices, err := m.malgoCtx.Devices(malgo.Playback)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Could not enumerate playback devices")
	} else if len(devices) == 0 {
		return ErrNoDevice
	}

	// Configure device
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(periodFrames(framesPerBuffer))
	deviceConfig.Alsa.NoMMap = 1

	channels := format.Channels
	onSamples := func(pOutputSample, pInputSamples []byte, frameCount uint32) {
		dataCallback(pOutputSample, int(frameCount)*channels, render)
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to initialize playback device: %v", ErrNoDevice, err)
	}

	m.device = device
	m.format = format

	m.logger.Info().
		Int("sample_rate", format.SampleRate).
		Int("channels", format.Channels).
		Int("period_frames", periodFrames(framesPerBuffer)).
		Msg("Audio output initialized (malgo/F32)")

	return nil
}

// dataCallback views the device buffer as float32 samples and renders into it
func dataCallback(pOutput []byte, samples int, render RenderFunc) {
	if samples == 0 || len(pOutput) < samples*4 {
		clear(pOutput)
		return
	}
	out := unsafe.Slice((*float32)(unsafe.Pointer(&pOutput[0])), samples)
	render(out)
}

// Start begins playback
func (m *Malgo) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return ErrNotOpen
	}
	if m.running {
		return nil
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	m.running = true
	return nil
}

// Stop halts playback; the device stays configured
func (m *Malgo) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil || !m.running {
		return nil
	}
	m.running = false
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			m.logger.Warn().Err(err).Msg("malgo context uninit error")
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu)
func (m *Malgo) closeDevice() {
	if m.device == nil {
		return
	}
	if m.running {
		if err := m.device.Stop(); err != nil {
			m.logger.Warn().Err(err).Msg("Device stop error")
		}
		m.running = false
	}
	m.device.Uninit()
	m.device = nil
}
