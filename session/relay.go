package session

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"talkback/audio"
	"talkback/messages"
	"talkback/playback"
)

// relaySink is the session's output sink: each prepared voice sends the
// chunk's base64 PCM to the client at its scheduled start, then completes on
// a timer matching the chunk's duration. This models the client's playback
// timeline server-side so lifecycle status tracks real playback time.
type relaySink struct {
	cs *ClientSession
}

func (rs *relaySink) Prepare(buf *audio.Buffer) (playback.Voice, error) {
	data := audio.EncodePCM16(buf)
	if err := rs.cs.Utterance.Append(data); err != nil {
		return nil, fmt.Errorf("buffer utterance audio: %w", err)
	}

	return &relayVoice{
		cs:       rs.cs,
		encoded:  base64.StdEncoding.EncodeToString(data),
		duration: buf.Duration(),
		done:     make(chan struct{}),
	}, nil
}

type relayVoice struct {
	cs       *ClientSession
	encoded  string
	duration time.Duration

	mu       sync.Mutex
	started  bool
	timer    *time.Timer
	stopped  bool
	done     chan struct{}
	doneOnce sync.Once
}

func (v *relayVoice) Start(delay time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.started {
		return fmt.Errorf("voice already started")
	}
	v.started = true
	if v.stopped {
		return nil
	}

	v.timer = time.AfterFunc(delay, func() {
		v.cs.queueMessage(messages.NewAudioMessage(v.cs.ID, v.encoded))

		v.mu.Lock()
		if v.stopped {
			v.mu.Unlock()
			return
		}
		v.timer = time.AfterFunc(v.duration, v.finish)
		v.mu.Unlock()
	})

	return nil
}

func (v *relayVoice) Stop() error {
	v.mu.Lock()
	v.stopped = true
	if v.timer != nil {
		v.timer.Stop()
	}
	v.mu.Unlock()

	v.finish()
	return nil
}

func (v *relayVoice) Done() <-chan struct{} {
	return v.done
}

func (v *relayVoice) finish() {
	v.doneOnce.Do(func() {
		close(v.done)
	})
}
