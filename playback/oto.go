package playback

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"talkback/audio"
)

// OtoSink plays buffers on the local audio device. A process may hold only
// one oto context, so create a single sink and share it.
type OtoSink struct {
	context    *oto.Context
	sampleRate int
	channels   int
}

// NewOtoSink initializes the audio device for the given format and blocks
// until the device is ready.
func NewOtoSink(sampleRate, channels int) (*OtoSink, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("create oto context: %w", err)
	}
	<-ready

	return &OtoSink{context: ctx, sampleRate: sampleRate, channels: channels}, nil
}

// Prepare creates a device voice for buf. The buffer format must match the
// sink's format.
func (s *OtoSink) Prepare(buf *audio.Buffer) (Voice, error) {
	if buf.SampleRate() != s.sampleRate || buf.NumChannels() != s.channels {
		return nil, fmt.Errorf("%w: buffer is %d Hz/%d ch, sink is %d Hz/%d ch",
			audio.ErrInvalidFormat, buf.SampleRate(), buf.NumChannels(), s.sampleRate, s.channels)
	}

	// The PCM bytes must stay referenced until the player is closed.
	data := audio.EncodePCM16(buf)
	player := s.context.NewPlayer(bytes.NewReader(data))

	return &otoVoice{
		player: player,
		data:   data,
		done:   make(chan struct{}),
	}, nil
}

type otoVoice struct {
	player *oto.Player
	data   []byte

	mu       sync.Mutex
	started  bool
	stopped  bool
	done     chan struct{}
	doneOnce sync.Once
}

func (v *otoVoice) Start(delay time.Duration) error {
	v.mu.Lock()
	if v.started {
		v.mu.Unlock()
		return fmt.Errorf("voice already started")
	}
	v.started = true
	v.mu.Unlock()

	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}

		v.mu.Lock()
		if v.stopped {
			v.mu.Unlock()
			return
		}
		v.player.Play()
		v.mu.Unlock()

		// Poll the device until the buffered samples have drained.
		for v.player.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}

		v.finish()
	}()

	return nil
}

func (v *otoVoice) Stop() error {
	v.mu.Lock()
	v.stopped = true
	v.mu.Unlock()

	v.finish()
	return nil
}

func (v *otoVoice) Done() <-chan struct{} {
	return v.done
}

func (v *otoVoice) finish() {
	v.doneOnce.Do(func() {
		v.player.Close()
		close(v.done)
	})
}
