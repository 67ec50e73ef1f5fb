package playback

import (
	"time"

	"talkback/audio"
)

// Sink turns decoded buffers into playable voices on some output device.
type Sink interface {
	// Prepare creates a voice for the buffer without starting it.
	Prepare(buf *audio.Buffer) (Voice, error)
}

// Voice is one playable unit created by a sink.
type Voice interface {
	// Start begins playback after the given delay. It must not block for the
	// duration of playback.
	Start(delay time.Duration) error
	// Stop halts playback early. Done is still closed.
	Stop() error
	// Done is closed exactly once, when playback finishes or is stopped.
	Done() <-chan struct{}
}
