package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"
)

func pcmBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(sample))
	}
	return data
}

func TestDecodePCM16_FrameCount(t *testing.T) {
	tests := []struct {
		name       string
		byteLen    int
		channels   int
		wantFrames int
	}{
		{"mono single frame", 2, 1, 1},
		{"mono many frames", 2000, 1, 1000},
		{"stereo even frames", 8, 2, 2},
		{"stereo partial frame dropped", 6, 2, 1},
		{"empty", 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := DecodePCM16(make([]byte, tt.byteLen), 24000, tt.channels)
			if err != nil {
				t.Fatalf("DecodePCM16 failed: %v", err)
			}
			if buf.NumFrames() != tt.wantFrames {
				t.Errorf("Expected %d frames, got %d", tt.wantFrames, buf.NumFrames())
			}
			if buf.NumChannels() != tt.channels {
				t.Errorf("Expected %d channels, got %d", tt.channels, buf.NumChannels())
			}
		})
	}
}

func TestDecodePCM16_Normalization(t *testing.T) {
	samples := []int16{0, 16384, -16384, 32767, -32768}
	want := []float64{0, 0.5, -0.5, 32767.0 / 32768.0, -1.0}

	buf, err := DecodePCM16(pcmBytes(samples), 24000, 1)
	if err != nil {
		t.Fatalf("DecodePCM16 failed: %v", err)
	}

	got := buf.Channel(0)
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("Sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	// Every output sample must lie in [-1.0, 1.0)
	for i, v := range got {
		if v < -1.0 || v >= 1.0 {
			t.Errorf("Sample %d out of range: %v", i, v)
		}
	}
}

func TestDecodePCM16_Interleaving(t *testing.T) {
	// L0 R0 L1 R1
	samples := []int16{100, -100, 200, -200}

	buf, err := DecodePCM16(pcmBytes(samples), 24000, 2)
	if err != nil {
		t.Fatalf("DecodePCM16 failed: %v", err)
	}

	left := buf.Channel(0)
	right := buf.Channel(1)
	if left[0] != 100.0/32768.0 || left[1] != 200.0/32768.0 {
		t.Errorf("Left channel wrong: %v", left)
	}
	if right[0] != -100.0/32768.0 || right[1] != -200.0/32768.0 {
		t.Errorf("Right channel wrong: %v", right)
	}
}

func TestDecodePCM16_OddLength(t *testing.T) {
	for _, n := range []int{1, 3, 47999} {
		_, err := DecodePCM16(make([]byte, n), 24000, 1)
		if !errors.Is(err, ErrOddByteCount) {
			t.Errorf("Length %d: expected ErrOddByteCount, got %v", n, err)
		}
	}
}

func TestDecodePCM16_InvalidFormat(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		channels   int
	}{
		{"zero sample rate", 0, 1},
		{"negative sample rate", -24000, 1},
		{"zero channels", 24000, 0},
		{"negative channels", 24000, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePCM16(make([]byte, 4), tt.sampleRate, tt.channels)
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Expected ErrInvalidFormat, got %v", err)
			}
		})
	}
}

func TestDecodePCM16_OneSecondAt24kHz(t *testing.T) {
	// 48000 bytes of mono int16 at 24kHz is exactly one second
	buf, err := DecodePCM16(make([]byte, 48000), 24000, 1)
	if err != nil {
		t.Fatalf("DecodePCM16 failed: %v", err)
	}

	if buf.NumFrames() != 24000 {
		t.Errorf("Expected 24000 frames, got %d", buf.NumFrames())
	}
	if buf.Duration() != time.Second {
		t.Errorf("Expected 1s duration, got %v", buf.Duration())
	}
}

func TestEncodePCM16_RoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 1000, -1000, 32767, -32768}
	original := pcmBytes(samples)

	buf, err := DecodePCM16(original, 24000, 1)
	if err != nil {
		t.Fatalf("DecodePCM16 failed: %v", err)
	}

	encoded := EncodePCM16(buf)
	if len(encoded) != len(original) {
		t.Fatalf("Expected %d bytes, got %d", len(original), len(encoded))
	}
	for i := range original {
		if encoded[i] != original[i] {
			t.Errorf("Byte %d: expected %#x, got %#x", i, original[i], encoded[i])
		}
	}
}
