package main

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"talkback/audio"
	"talkback/gemini"
	"talkback/messages"
	"talkback/playback"
)

// Server message mirror with a raw payload for two-stage decoding
type serverMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

func main() {
	// Flags
	serverURL := flag.String("server", "ws://localhost:8080/ws", "WebSocket server URL")
	flag.Parse()

	log.Printf("🔌 Connecting to %s...", *serverURL)

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Println("✅ Connected!")

	// Local playback: decode received PCM and schedule it gapless
	sink, err := playback.NewOtoSink(gemini.SampleRate, gemini.Channels)
	if err != nil {
		log.Fatalf("Failed to open audio device: %v", err)
	}
	scheduler := playback.NewScheduler(sink, playback.NewClock())

	// Handle interrupt
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})

	// Read responses from server
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}

			var msg serverMessage
			if err := sonic.Unmarshal(message, &msg); err != nil {
				log.Println("Parse error:", err)
				continue
			}

			switch msg.Type {
			case messages.TypeAudio:
				var payload messages.AudioResponsePayload
				if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
					continue
				}
				playAudio(scheduler, payload.Data)

			case messages.TypeText:
				var payload messages.TextResponsePayload
				if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
					continue
				}
				fmt.Printf("📝 %s\n", payload.Text)

			case messages.TypeStatus:
				var payload messages.StatusPayload
				if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
					continue
				}
				log.Printf("📊 Status: %s %s", payload.Status, payload.Message)

			case messages.TypeError:
				var payload messages.ErrorPayload
				if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
					continue
				}
				log.Printf("❌ Error [%s]: %s", payload.Code, payload.Message)
			}
		}
	}()

	// Send each typed line as one utterance
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}

			payload, _ := sonic.Marshal(messages.TextPayload{Text: line})
			msg, err := sonic.Marshal(messages.ClientMessage{Type: "text", Payload: payload})
			if err != nil {
				log.Printf("Encode error: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("Send error: %v", err)
				return
			}
		}
	}()

	select {
	case <-done:
		log.Println("Connection closed")
	case <-interrupt:
		log.Println("\n👋 Interrupted, closing...")
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}

// playAudio decodes a base64 PCM chunk and schedules it after whatever is
// already playing.
func playAudio(scheduler *playback.Scheduler, encoded string) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		log.Printf("❌ Invalid base64 audio: %v", err)
		return
	}

	buf, err := audio.DecodePCM16(data, gemini.SampleRate, gemini.Channels)
	if err != nil {
		log.Printf("❌ Failed to decode audio: %v", err)
		return
	}

	if _, err := scheduler.Schedule(buf); err != nil {
		log.Printf("❌ Failed to schedule audio: %v", err)
		return
	}
	log.Printf("🔊 Playing audio: %s of speech", buf.Duration().Round(10*time.Millisecond))
}
