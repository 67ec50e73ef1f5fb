package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"talkback/gemini"
	"talkback/playback"
	"talkback/speech"
)

func main() {
	// Flags
	text := flag.String("text", "", "Text to speak (omit to read lines from stdin)")
	voice := flag.String("voice", "", "Prebuilt voice name (default "+gemini.DefaultVoice+")")
	model := flag.String("model", "", "TTS model name (default "+gemini.DefaultModel+")")
	flag.Parse()

	_ = godotenv.Load()
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY not set")
	}

	ctx := context.Background()

	tts, err := gemini.NewClient(ctx, apiKey, *model, *voice)
	if err != nil {
		log.Fatalf("Failed to create TTS client: %v", err)
	}

	sink, err := playback.NewOtoSink(gemini.SampleRate, gemini.Channels)
	if err != nil {
		log.Fatalf("Failed to open audio device: %v", err)
	}

	scheduler := playback.NewScheduler(sink, playback.NewClock())
	speaker := speech.NewSpeaker(tts, scheduler, gemini.SampleRate, gemini.Channels)

	if *text != "" {
		speak(ctx, speaker, *text)
		return
	}

	// Interactive mode: one utterance per line
	fmt.Println("Type text to speak, Ctrl-D to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		speak(ctx, speaker, line)
	}
}

func speak(ctx context.Context, speaker *speech.Speaker, text string) {
	ended := make(chan struct{})

	played, err := speaker.Speak(ctx, text, speech.Callbacks{
		OnStarted: func() {
			log.Println("🔊 Speaking...")
		},
		OnEnded: func() {
			close(ended)
		},
	})
	if err != nil {
		log.Printf("❌ Synthesis failed: %v", err)
		return
	}
	if !played {
		log.Println("🔇 No audio returned")
		return
	}

	<-ended
	log.Println("✅ Done")
}
