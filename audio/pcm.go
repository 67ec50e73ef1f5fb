// Package audio decodes raw PCM payloads into normalized sample buffers.
package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrOddByteCount is returned when a payload cannot be split into whole
	// 16-bit samples.
	ErrOddByteCount = errors.New("pcm byte length is not a multiple of 2")
	// ErrInvalidFormat is returned for a non-positive sample rate or channel count.
	ErrInvalidFormat = errors.New("invalid pcm format")
)

// Buffer holds decoded audio as normalized float samples, one slice per
// channel. Buffers are immutable after decoding.
type Buffer struct {
	channels   [][]float64
	sampleRate int
}

// DecodePCM16 converts interleaved little-endian signed 16-bit PCM bytes into
// a Buffer. Samples are normalized to [-1.0, 1.0) by dividing by 32768.
// A trailing partial frame (whole samples short of a full frame) is dropped;
// an odd byte count is rejected because it cannot form a single sample.
func DecodePCM16(data []byte, sampleRate, channels int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: channel count %d", ErrInvalidFormat, channels)
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrOddByteCount, len(data))
	}

	sampleCount := len(data) / 2
	frames := sampleCount / channels

	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}

	for frame := 0; frame < frames; frame++ {
		for ch := 0; ch < channels; ch++ {
			offset := (frame*channels + ch) * 2
			sample := int16(uint16(data[offset]) | uint16(data[offset+1])<<8)
			out[ch][frame] = float64(sample) / 32768.0
		}
	}

	return &Buffer{channels: out, sampleRate: sampleRate}, nil
}

// EncodePCM16 converts a Buffer back into interleaved little-endian signed
// 16-bit PCM bytes. Samples outside [-1.0, 1.0) are clamped.
func EncodePCM16(buf *Buffer) []byte {
	frames := buf.NumFrames()
	channels := buf.NumChannels()
	data := make([]byte, frames*channels*2)

	for frame := 0; frame < frames; frame++ {
		for ch := 0; ch < channels; ch++ {
			v := buf.channels[ch][frame] * 32768.0
			if v > 32767 {
				v = 32767
			} else if v < -32768 {
				v = -32768
			}
			sample := uint16(int16(v))
			offset := (frame*channels + ch) * 2
			data[offset] = byte(sample)
			data[offset+1] = byte(sample >> 8)
		}
	}

	return data
}
