package playback

import (
	"fmt"
	"time"

	"talkback/audio"
)

// Scheduler places buffers on a sink back-to-back using a shared clock.
// Chunks scheduled in sequence play gapless: each starts at the later of now
// and the end of the previous chunk.
type Scheduler struct {
	sink  Sink
	clock *Clock
}

// NewScheduler creates a scheduler that plays through sink and sequences
// against clock.
func NewScheduler(sink Sink, clock *Clock) *Scheduler {
	return &Scheduler{sink: sink, clock: clock}
}

// Clock returns the shared clock.
func (s *Scheduler) Clock() *Clock {
	return s.clock
}

// Schedule queues buf for playback at the clock cursor and returns a handle
// whose Done channel closes when the chunk finishes.
func (s *Scheduler) Schedule(buf *audio.Buffer) (*Handle, error) {
	voice, err := s.sink.Prepare(buf)
	if err != nil {
		return nil, fmt.Errorf("prepare voice: %w", err)
	}

	duration := buf.Duration()
	start := s.clock.Schedule(duration)

	delay := start - s.clock.Now()
	if delay < 0 {
		delay = 0
	}
	if err := voice.Start(delay); err != nil {
		return nil, fmt.Errorf("start voice: %w", err)
	}

	return &Handle{voice: voice, start: start, duration: duration}, nil
}

// Handle represents one scheduled, in-flight chunk.
type Handle struct {
	voice    Voice
	start    time.Duration
	duration time.Duration
}

// StartTime returns the chunk's scheduled start on the clock timeline.
func (h *Handle) StartTime() time.Duration {
	return h.start
}

// Duration returns the chunk's playback duration.
func (h *Handle) Duration() time.Duration {
	return h.duration
}

// Done is closed exactly once when the chunk finishes playing or is stopped.
func (h *Handle) Done() <-chan struct{} {
	return h.voice.Done()
}

// Stop cancels the chunk early.
func (h *Handle) Stop() error {
	return h.voice.Stop()
}
