package playback

import (
	"errors"
	"testing"
	"time"

	"talkback/audio"
)

// fakeVoice records how it was started and completes on demand.
type fakeVoice struct {
	delay    time.Duration
	started  bool
	stopped  bool
	done     chan struct{}
	startErr error
}

func newFakeVoice() *fakeVoice {
	return &fakeVoice{done: make(chan struct{})}
}

func (v *fakeVoice) Start(delay time.Duration) error {
	if v.startErr != nil {
		return v.startErr
	}
	v.started = true
	v.delay = delay
	return nil
}

func (v *fakeVoice) Stop() error {
	v.stopped = true
	v.complete()
	return nil
}

func (v *fakeVoice) Done() <-chan struct{} { return v.done }

func (v *fakeVoice) complete() {
	select {
	case <-v.done:
	default:
		close(v.done)
	}
}

// fakeSink hands out fakeVoices and remembers them in order.
type fakeSink struct {
	voices     []*fakeVoice
	prepareErr error
}

func (s *fakeSink) Prepare(buf *audio.Buffer) (Voice, error) {
	if s.prepareErr != nil {
		return nil, s.prepareErr
	}
	v := newFakeVoice()
	s.voices = append(s.voices, v)
	return v, nil
}

// bufferOf builds a mono 24kHz buffer with the given playback duration.
func bufferOf(t *testing.T, d time.Duration) *audio.Buffer {
	t.Helper()
	frames := int(d * 24000 / time.Second)
	buf, err := audio.DecodePCM16(make([]byte, frames*2), 24000, 1)
	if err != nil {
		t.Fatalf("DecodePCM16 failed: %v", err)
	}
	return buf
}

func TestClock_ScheduleAdvancesCursor(t *testing.T) {
	now := time.Duration(0)
	clock := newClockWithSource(func() time.Duration { return now })

	start := clock.Schedule(time.Second)
	if start != 0 {
		t.Errorf("Expected start 0, got %v", start)
	}
	if clock.Cursor() != time.Second {
		t.Errorf("Expected cursor 1s, got %v", clock.Cursor())
	}
}

func TestClock_StartsAtLaterOfNowAndCursor(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Duration
		cursor    time.Duration
		duration  time.Duration
		wantStart time.Duration
	}{
		{"cursor ahead of now", 100 * time.Millisecond, 500 * time.Millisecond, time.Second, 500 * time.Millisecond},
		{"now ahead of cursor", 2 * time.Second, time.Second, time.Second, 2 * time.Second},
		{"now equals cursor", time.Second, time.Second, time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newClockWithSource(func() time.Duration { return tt.now })
			clock.cursor = tt.cursor

			start := clock.Schedule(tt.duration)
			if start != tt.wantStart {
				t.Errorf("Expected start %v, got %v", tt.wantStart, start)
			}
			if clock.Cursor() != tt.wantStart+tt.duration {
				t.Errorf("Expected cursor %v, got %v", tt.wantStart+tt.duration, clock.Cursor())
			}
		})
	}
}

func TestClock_Reset(t *testing.T) {
	now := time.Duration(0)
	clock := newClockWithSource(func() time.Duration { return now })

	clock.Schedule(5 * time.Second)
	now = 2 * time.Second
	clock.Reset()

	if clock.Cursor() != 2*time.Second {
		t.Errorf("Expected cursor 2s after reset, got %v", clock.Cursor())
	}
}

func TestScheduler_GaplessSequence(t *testing.T) {
	now := time.Duration(0)
	clock := newClockWithSource(func() time.Duration { return now })
	sink := &fakeSink{}
	scheduler := NewScheduler(sink, clock)

	durations := []time.Duration{
		500 * time.Millisecond,
		100 * time.Millisecond,
		2 * time.Second,
		50 * time.Millisecond,
		time.Second,
	}

	handles := make([]*Handle, 0, len(durations))
	for _, d := range durations {
		h, err := scheduler.Schedule(bufferOf(t, d))
		if err != nil {
			t.Fatalf("Schedule failed: %v", err)
		}
		handles = append(handles, h)
	}

	for i := 1; i < len(handles); i++ {
		prevEnd := handles[i-1].StartTime() + handles[i-1].Duration()
		if handles[i].StartTime() < prevEnd {
			t.Errorf("Chunk %d starts at %v, before previous end %v", i, handles[i].StartTime(), prevEnd)
		}
		// Back-to-back scheduling must not introduce gaps either
		if handles[i].StartTime() != prevEnd {
			t.Errorf("Chunk %d starts at %v, expected exactly %v", i, handles[i].StartTime(), prevEnd)
		}
	}
}

func TestScheduler_SecondUtteranceCarriesCursor(t *testing.T) {
	// Utterance A is 0.5s; B scheduled right after must start at or past 0.5s
	now := time.Duration(0)
	clock := newClockWithSource(func() time.Duration { return now })
	scheduler := NewScheduler(&fakeSink{}, clock)

	if _, err := scheduler.Schedule(bufferOf(t, 500*time.Millisecond)); err != nil {
		t.Fatalf("Schedule A failed: %v", err)
	}
	b, err := scheduler.Schedule(bufferOf(t, time.Second))
	if err != nil {
		t.Fatalf("Schedule B failed: %v", err)
	}

	if b.StartTime() < 500*time.Millisecond {
		t.Errorf("B starts at %v, expected >= 500ms", b.StartTime())
	}
}

func TestScheduler_StartDelay(t *testing.T) {
	now := 100 * time.Millisecond
	clock := newClockWithSource(func() time.Duration { return now })
	clock.cursor = 250 * time.Millisecond
	sink := &fakeSink{}
	scheduler := NewScheduler(sink, clock)

	if _, err := scheduler.Schedule(bufferOf(t, time.Second)); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	voice := sink.voices[0]
	if !voice.started {
		t.Fatal("Voice was not started")
	}
	if voice.delay != 150*time.Millisecond {
		t.Errorf("Expected 150ms delay, got %v", voice.delay)
	}
}

func TestScheduler_NoNegativeDelay(t *testing.T) {
	now := 5 * time.Second
	clock := newClockWithSource(func() time.Duration { return now })
	sink := &fakeSink{}
	scheduler := NewScheduler(sink, clock)

	if _, err := scheduler.Schedule(bufferOf(t, time.Second)); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if sink.voices[0].delay < 0 {
		t.Errorf("Negative start delay: %v", sink.voices[0].delay)
	}
}

func TestScheduler_PrepareError(t *testing.T) {
	wantErr := errors.New("device gone")
	clock := newClockWithSource(func() time.Duration { return 0 })
	scheduler := NewScheduler(&fakeSink{prepareErr: wantErr}, clock)

	_, err := scheduler.Schedule(bufferOf(t, time.Second))
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected prepare error, got %v", err)
	}
	// A failed prepare must not advance the cursor
	if clock.Cursor() != 0 {
		t.Errorf("Cursor moved on failed schedule: %v", clock.Cursor())
	}
}

func TestHandle_Completion(t *testing.T) {
	clock := newClockWithSource(func() time.Duration { return 0 })
	sink := &fakeSink{}
	scheduler := NewScheduler(sink, clock)

	h, err := scheduler.Schedule(bufferOf(t, time.Second))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	select {
	case <-h.Done():
		t.Fatal("Done closed before playback completed")
	default:
	}

	sink.voices[0].complete()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after playback completed")
	}
}

func TestHandle_Stop(t *testing.T) {
	clock := newClockWithSource(func() time.Duration { return 0 })
	sink := &fakeSink{}
	scheduler := NewScheduler(sink, clock)

	h, err := scheduler.Schedule(bufferOf(t, time.Second))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !sink.voices[0].stopped {
		t.Error("Voice was not stopped")
	}

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Stop")
	}
}
