// Package playback schedules decoded audio buffers for gapless sequential
// playback against a shared clock.
package playback

import (
	"sync"
	"time"
)

// Clock tracks the earliest time the next chunk may begin, measured on a
// monotonic timeline that starts when the clock is created. The cursor never
// moves backwards except through Reset, which is only valid once a full
// utterance has finished playing.
type Clock struct {
	mu     sync.Mutex
	now    func() time.Duration
	cursor time.Duration
}

// NewClock creates a clock whose timeline starts at zero now.
func NewClock() *Clock {
	epoch := time.Now()
	return &Clock{
		now: func() time.Duration { return time.Since(epoch) },
	}
}

// newClockWithSource is used by tests to drive the timeline manually.
func newClockWithSource(now func() time.Duration) *Clock {
	return &Clock{now: now}
}

// Schedule reserves the next d of playback time and returns the start time of
// the reservation: the later of now and the current cursor. The cursor is
// advanced by exactly d past the start, so back-to-back reservations never
// overlap regardless of how long the caller took to produce the buffer.
func (c *Clock) Schedule(d time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.now()
	if c.cursor > start {
		start = c.cursor
	}
	c.cursor = start + d
	return start
}

// Reset pulls the cursor back to now. Call only after every scheduled chunk
// of the current utterance has completed.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = c.now()
}

// Cursor returns the current cursor position.
func (c *Clock) Cursor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Now returns the current time on the clock's timeline.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now()
}
