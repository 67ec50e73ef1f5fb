package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"talkback/gemini"
	"talkback/messages"
	"talkback/playback"
	"talkback/speech"
)

const (
	writeBufferSize = 256
	writeTimeout    = 10 * time.Second
)

// ClientSession represents a single chat client's connection. Each session
// owns one playback clock, so utterances spoken on it sequence gapless.
type ClientSession struct {
	ID           string
	ClientConn   *websocket.Conn
	Speaker      *speech.Speaker
	Utterance    *UtteranceBuffer
	CreatedAt    time.Time
	LastActivity time.Time

	keepAlive time.Duration

	// Use channels for non-blocking writes
	writeChan chan *messages.ServerMessage

	mu        sync.RWMutex
	closed    bool
	speaking  bool
	CloseChan chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClientSession creates a session backed by the shared TTS client
func NewClientSession(id string, clientConn *websocket.Conn, tts *gemini.Client, maxBufferSize int, keepAlive time.Duration) *ClientSession {
	ctx, cancel := context.WithCancel(context.Background())

	// Configure WebSocket for better performance
	clientConn.SetReadLimit(512 * 1024) // 512KB max message
	clientConn.EnableWriteCompression(true)
	clientConn.SetCompressionLevel(6)

	cs := &ClientSession{
		ID:           id,
		ClientConn:   clientConn,
		Utterance:    NewUtteranceBuffer(maxBufferSize),
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
		keepAlive:    keepAlive,
		writeChan:    make(chan *messages.ServerMessage, writeBufferSize),
		CloseChan:    make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}

	// The relay sink sends scheduled chunks back over this session's socket.
	scheduler := playback.NewScheduler(&relaySink{cs: cs}, playback.NewClock())
	cs.Speaker = speech.NewSpeaker(tts, scheduler, gemini.SampleRate, gemini.Channels)

	return cs
}

// Start begins the bidirectional message handling
func (cs *ClientSession) Start() {
	go cs.writePump()
	cs.queueMessage(messages.NewStatusMessage(cs.ID, "connected", "Session established"))
	go cs.handleClientMessages()
}

// writePump handles all outgoing messages in a single goroutine
func (cs *ClientSession) writePump() {
	ticker := time.NewTicker(cs.keepAlive)
	defer func() {
		ticker.Stop()
		// Send close message before exiting
		cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
		cs.ClientConn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
	}()

	for {
		select {
		case <-cs.CloseChan:
			return
		case <-ticker.C:
			cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cs.ClientConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg, ok := <-cs.writeChan:
			if !ok {
				// Channel closed, exit gracefully
				return
			}
			if err := cs.writeMessage(msg); err != nil {
				return
			}

			// Drain whatever else is queued before blocking again
			n := len(cs.writeChan)
			for i := 0; i < n; i++ {
				select {
				case msg, ok := <-cs.writeChan:
					if !ok {
						return
					}
					if err := cs.writeMessage(msg); err != nil {
						return
					}
				default:
				}
			}
		}
	}
}

func (cs *ClientSession) writeMessage(msg *messages.ServerMessage) error {
	data, err := messages.Encode(msg)
	if err != nil {
		log.Printf("❌ [%s] Failed to encode %s message: %v", cs.ID[:8], msg.Type, err)
		return nil
	}
	cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return cs.ClientConn.WriteMessage(websocket.TextMessage, data)
}

// queueMessage adds a message to the write queue (non-blocking)
func (cs *ClientSession) queueMessage(msg *messages.ServerMessage) {
	cs.mu.RLock()
	closed := cs.closed
	cs.mu.RUnlock()
	if closed {
		return
	}
	select {
	case cs.writeChan <- msg:
		cs.mu.Lock()
		cs.LastActivity = time.Now()
		cs.mu.Unlock()
	default:
		// Queue full, drop message (shouldn't happen with proper sizing)
	}
}

// Close terminates the session and cleans up resources
func (cs *ClientSession) Close() error {
	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return nil
	}
	cs.closed = true
	cs.mu.Unlock()

	cs.cancel()

	// Close the write channel first to stop writePump
	close(cs.writeChan)

	// Signal close (for other goroutines waiting on this)
	close(cs.CloseChan)

	// Drop any partially relayed utterance
	if cs.Utterance != nil {
		cs.Utterance.Clear()
	}

	// Close client connection - don't write close message as writePump is stopped
	if cs.ClientConn != nil {
		cs.ClientConn.Close()
	}

	return nil
}

func (cs *ClientSession) handleClientMessages() {
	defer cs.Close()

	for {
		select {
		case <-cs.CloseChan:
			return
		default:
			messageType, message, err := cs.ClientConn.ReadMessage()
			if err != nil {
				return
			}

			cs.mu.Lock()
			cs.LastActivity = time.Now()
			cs.mu.Unlock()

			if messageType == websocket.BinaryMessage {
				cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Binary messages are not supported"))
				continue
			}

			clientMsg, err := messages.Decode(message)
			if err != nil {
				cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid message format"))
				continue
			}

			cs.processClientMessage(clientMsg)
		}
	}
}

func (cs *ClientSession) processClientMessage(msg *messages.ClientMessage) {
	switch msg.Type {
	case "text":
		payload, err := messages.DecodePayload[messages.TextPayload](msg.Payload)
		if err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid text payload"))
			return
		}
		if payload.Text == "" {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Empty text"))
			return
		}
		cs.startUtterance(payload.Text)

	case "control":
		payload, err := messages.DecodePayload[messages.ControlPayload](msg.Payload)
		if err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid control payload"))
			return
		}
		cs.handleControlMessage(&payload)

	default:
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Unknown message type: "+msg.Type))
	}
}

func (cs *ClientSession) handleControlMessage(payload *messages.ControlPayload) {
	switch payload.Action {
	case "ping":
		cs.queueMessage(messages.NewStatusMessage(cs.ID, "pong", ""))
	case "stop":
		cs.Speaker.Stop()
	default:
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Unknown control action: "+payload.Action))
	}
}

// startUtterance kicks off one synthesize-and-play cycle. The session allows
// a single in-flight utterance: the speaker's clock sequences chunks within
// one utterance, and overlapping utterances are rejected rather than queued.
func (cs *ClientSession) startUtterance(text string) {
	cs.mu.Lock()
	if cs.speaking {
		cs.mu.Unlock()
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeRateLimited, "An utterance is already playing"))
		return
	}
	cs.speaking = true
	cs.mu.Unlock()

	cs.queueMessage(messages.NewStatusMessage(cs.ID, "processing", ""))
	cs.queueMessage(messages.NewTextMessage(cs.ID, text))

	go func() {
		played, err := cs.Speaker.Speak(cs.ctx, text, speech.Callbacks{
			OnStarted: func() {
				cs.queueMessage(messages.NewStatusMessage(cs.ID, "speaking", ""))
			},
			OnEnded: func() {
				cs.Utterance.Clear()
				cs.mu.Lock()
				cs.speaking = false
				cs.mu.Unlock()
				cs.queueMessage(messages.NewStatusMessage(cs.ID, "turn_complete", ""))
			},
		})

		if err != nil {
			log.Printf("❌ [%s] Synthesis failed: %v", cs.ID[:8], err)
			code := messages.ErrCodeSynthesisError
			if errors.Is(err, ErrBufferFull) {
				code = messages.ErrCodeBufferFull
			}
			cs.queueMessage(messages.NewErrorMessage(cs.ID, code, err.Error()))
			return
		}
		if !played {
			log.Printf("🔇 [%s] No audio returned for utterance", cs.ID[:8])
		}
	}()
}

// IsClosed returns whether the session is closed
func (cs *ClientSession) IsClosed() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.closed
}
