// Package gemini calls the Gemini TTS API to synthesize speech for text.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"

	"google.golang.org/genai"
)

const (
	// DefaultModel is the single-shot TTS model.
	DefaultModel = "gemini-2.5-flash-preview-tts"
	// DefaultVoice is the prebuilt voice used when none is configured.
	// Available voices: Puck, Charon, Kore, Fenrir, Aoede, Leda, Orus, Zephyr
	DefaultVoice = "Zephyr"

	// Gemini TTS returns raw PCM, 16-bit little-endian, 24 kHz mono.
	SampleRate = 24000
	Channels   = 1
)

// ErrRequestFailed wraps network and provider errors from the TTS call.
var ErrRequestFailed = errors.New("tts request failed")

// Client performs text-to-speech requests using the official SDK.
type Client struct {
	client *genai.Client
	model  string
	voice  string
}

// NewClient creates a TTS client for the Gemini API.
func NewClient(ctx context.Context, apiKey, model, voice string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	if model == "" {
		model = DefaultModel
	}
	if voice == "" {
		voice = DefaultVoice
	}

	return &Client{client: client, model: model, voice: voice}, nil
}

// Synthesize requests audio for text and returns the raw PCM chunks from the
// response. An empty result is a valid response shape: the model answered
// without an audio payload.
func (c *Client) Synthesize(ctx context.Context, text string) ([][]byte, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: c.voice,
				},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(text), config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var chunks [][]byte
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				chunks = append(chunks, part.InlineData.Data)
			}
		}
	}

	if len(chunks) == 0 {
		log.Printf("📥 Gemini returned no audio for %q", text)
		return nil, nil
	}

	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	log.Printf("📥 Received from Gemini: %d bytes audio in %d chunk(s)", total, len(chunks))

	return chunks, nil
}
