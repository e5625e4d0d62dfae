// ABOUTME: Tests for audio types
// ABOUTME: Tests sample conversion functions and format helpers
package audio

import (
	"testing"
	"time"
)

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected int32
	}{
		{"zero", 0, 0},
		{"positive", 100, 100 << 8},
		{"negative", -100, -100 << 8},
		{"max", 32767, 32767 << 8},
		{"min", -32768, -32768 << 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected int16
	}{
		{"zero", 0, 0},
		{"positive", 100 << 8, 100},
		{"negative", -100 << 8, -100},
		{"24bit positive", 1000000, 3906}, // 1000000 >> 8 = 3906
		{"24bit negative", -1000000, -3907},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleToInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleFromDepth(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		depth    int
		expected int32
	}{
		{"16-bit max", 32767, 16, 32767 << 8},
		{"16-bit min", -32768, 16, -32768 << 8},
		{"8-bit", 127, 8, 127 << 16},
		{"24-bit passthrough", 0x123456, 24, 0x123456},
		{"32-bit", 1 << 30, 32, 1 << 22},
		{"unknown depth passthrough", 42, 0, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromDepth(tt.input, tt.depth)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestInt24ToFloat32(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected float32
	}{
		{"zero", 0, 0},
		{"min", Min24Bit, -1.0},
		{"half", 1 << 22, 0.5},
		{"negative half", -(1 << 22), -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Int24ToFloat32(tt.input)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}

	if v := Int24ToFloat32(Max24Bit); v >= 1.0 || v < 0.9999 {
		t.Errorf("expected max sample just below 1.0, got %v", v)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected float32
	}{
		{"inside", 0.25, 0.25},
		{"upper bound", 1.0, 1.0},
		{"over", 1.7, 1.0},
		{"under", -3.2, -1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := Clamp(tt.input); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestConvertToFloat32(t *testing.T) {
	src := []int32{0, 1 << 22, -(1 << 22), Min24Bit}
	dst := make([]float32, 3)

	n := ConvertToFloat32(dst, src)
	if n != 3 {
		t.Fatalf("expected 3 samples converted, got %d", n)
	}
	want := []float32{0, 0.5, -0.5}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], dst[i])
		}
	}
}

func TestRoundTrip16Bit(t *testing.T) {
	// Test that 16-bit samples survive round-trip conversion
	samples := []int16{0, 100, -100, 1000, -1000, 32767, -32768}

	for _, original := range samples {
		sample32 := SampleFromInt16(original)
		result := SampleToInt16(sample32)
		if result != original {
			t.Errorf("round-trip failed: %d -> %d -> %d", original, sample32, result)
		}
	}
}

func TestRoundTripFloat(t *testing.T) {
	// 24-bit samples survive a trip through the ring buffer representation
	samples := []int32{0, 100000, -100000, Min24Bit, 1 << 20}

	for _, original := range samples {
		f := Int24ToFloat32(original)
		result := Float32ToInt24(f)
		if result != original {
			t.Errorf("round-trip failed: %d -> %v -> %d", original, f, result)
		}
	}

	if got := Float32ToInt24(1.5); got != Max24Bit {
		t.Errorf("expected clipping to %d, got %d", Max24Bit, got)
	}
}

func TestFormatValidate(t *testing.T) {
	if err := (Format{SampleRate: 44100, Channels: 2}).Validate(); err != nil {
		t.Errorf("expected valid format, got %v", err)
	}
	if err := (Format{SampleRate: 0, Channels: 2}).Validate(); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if err := (Format{SampleRate: 48000, Channels: 0}).Validate(); err == nil {
		t.Error("expected error for zero channels")
	}
}

func TestFramesToDuration(t *testing.T) {
	f := Format{SampleRate: 48000, Channels: 2}
	if d := f.FramesToDuration(24000); d != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", d)
	}
}
