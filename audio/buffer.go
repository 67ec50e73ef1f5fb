package audio

import "time"

// NumFrames returns the number of sample frames per channel.
func (b *Buffer) NumFrames() int {
	if len(b.channels) == 0 {
		return 0
	}
	return len(b.channels[0])
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	return len(b.channels)
}

// SampleRate returns the sample rate in Hz.
func (b *Buffer) SampleRate() int {
	return b.sampleRate
}

// Channel returns the samples for one channel. The returned slice must not be
// modified.
func (b *Buffer) Channel(i int) []float64 {
	return b.channels[i]
}

// Duration returns the playback duration of the buffer.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(b.NumFrames()) * time.Second / time.Duration(b.sampleRate)
}
