// Package speech turns text into scheduled speech playback, driving the
// synthesis provider, the PCM decoder and the playback scheduler, and
// reporting playback lifecycle to the caller.
package speech

import (
	"context"
	"fmt"
	"sync"

	"talkback/audio"
	"talkback/playback"
)

// Provider synthesizes speech for a piece of text. The returned slice holds
// raw PCM chunks; an empty result is a valid response meaning the provider
// produced no audio.
type Provider interface {
	Synthesize(ctx context.Context, text string) ([][]byte, error)
}

// Callbacks carries the two lifecycle hooks exposed to the UI layer.
// OnStarted fires once decoding succeeded and playback is about to begin,
// never during the network wait. OnEnded fires exactly once per Speak call,
// on every path: success, no-audio and failure.
type Callbacks struct {
	OnStarted func()
	OnEnded   func()
}

// Speaker orchestrates one utterance at a time: synthesize, decode, schedule,
// and track completion. Callers must not overlap Speak calls on one Speaker;
// concurrent utterances against the same clock would corrupt gapless ordering.
type Speaker struct {
	provider   Provider
	scheduler  *playback.Scheduler
	sampleRate int
	channels   int

	mu      sync.Mutex
	status  Status
	handles []*playback.Handle
}

// NewSpeaker creates a speaker for the provider's PCM format.
func NewSpeaker(provider Provider, scheduler *playback.Scheduler, sampleRate, channels int) *Speaker {
	return &Speaker{
		provider:   provider,
		scheduler:  scheduler,
		sampleRate: sampleRate,
		channels:   channels,
		status:     StatusIdle,
	}
}

// Stop interrupts the current utterance. Scheduled voices are stopped and
// complete through the normal path, so OnEnded still fires. No-op when
// nothing is playing.
func (s *Speaker) Stop() {
	s.mu.Lock()
	handles := s.handles
	s.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
}

// Status returns the speaker's current phase.
func (s *Speaker) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Speaker) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Speak synthesizes text and schedules the resulting audio for playback.
// It returns true if any audio was scheduled. When the provider returns no
// audio, OnEnded fires immediately and Speak returns false with a nil error.
// On failure before any chunk was scheduled, OnEnded fires before the error
// is returned, so the lifecycle always reaches its terminal callback.
func (s *Speaker) Speak(ctx context.Context, text string, cb Callbacks) (bool, error) {
	var endOnce sync.Once
	ended := func() {
		endOnce.Do(func() {
			if cb.OnEnded != nil {
				cb.OnEnded()
			}
		})
	}

	s.setStatus(StatusProcessing)

	payloads, err := s.provider.Synthesize(ctx, text)
	if err != nil {
		s.setStatus(StatusError)
		ended()
		return false, fmt.Errorf("synthesize: %w", err)
	}

	if len(payloads) == 0 {
		s.setStatus(StatusIdle)
		ended()
		return false, nil
	}

	// Decode every chunk before touching the clock, so a malformed payload
	// never leaves a half-scheduled utterance behind.
	buffers := make([]*audio.Buffer, 0, len(payloads))
	for _, payload := range payloads {
		buf, err := audio.DecodePCM16(payload, s.sampleRate, s.channels)
		if err != nil {
			s.setStatus(StatusError)
			ended()
			return false, fmt.Errorf("decode audio: %w", err)
		}
		buffers = append(buffers, buf)
	}

	if cb.OnStarted != nil {
		cb.OnStarted()
	}
	s.setStatus(StatusSpeaking)

	handles := make([]*playback.Handle, 0, len(buffers))
	var schedErr error
	for _, buf := range buffers {
		handle, err := s.scheduler.Schedule(buf)
		if err != nil {
			schedErr = fmt.Errorf("schedule audio: %w", err)
			break
		}
		handles = append(handles, handle)
	}

	if len(handles) == 0 {
		s.setStatus(StatusError)
		ended()
		return false, schedErr
	}

	// Register the full active set before watching any handle, so an early
	// completion cannot look like the end of the utterance.
	active := make(map[*playback.Handle]struct{}, len(handles))
	var activeMu sync.Mutex
	for _, handle := range handles {
		active[handle] = struct{}{}
	}

	s.mu.Lock()
	s.handles = handles
	s.mu.Unlock()

	for _, handle := range handles {
		go func(h *playback.Handle) {
			<-h.Done()

			activeMu.Lock()
			delete(active, h)
			remaining := len(active)
			activeMu.Unlock()

			if remaining == 0 {
				s.mu.Lock()
				s.handles = nil
				s.mu.Unlock()
				s.scheduler.Clock().Reset()
				s.setStatus(StatusIdle)
				ended()
			}
		}(handle)
	}

	return true, schedErr
}
