package openai

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"voice-mascot/internal/domain"
)

type WhisperClient struct {
	client   *goopenai.Client
	model    string
	language string
}

func NewWhisperClient(apiKey, model, language string) *WhisperClient {
	return NewWhisperClientWithURL(apiKey, model, language, DefaultBaseURL)
}

func NewWhisperClientWithURL(apiKey, model, language, baseURL string) *WhisperClient {
	if model == "" {
		model = goopenai.Whisper1
	}
	return &WhisperClient{
		client:   newClient(apiKey, baseURL),
		model:    model,
		language: language,
	}
}

func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    c.model,
		FilePath: audioFilename(audio),
		Reader:   bytes.NewReader(audio),
		Language: c.language,
	})
	if err != nil {
		return "", fmt.Errorf("whisper API: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", domain.ErrNotUnderstood
	}

	return text, nil
}

// audioFilename picks an extension the transcription endpoint accepts,
// based on the container magic bytes.
func audioFilename(audio []byte) string {
	switch {
	case bytes.HasPrefix(audio, []byte("RIFF")):
		return "audio.wav"
	case bytes.HasPrefix(audio, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "audio.webm"
	case bytes.HasPrefix(audio, []byte("OggS")):
		return "audio.ogg"
	case bytes.HasPrefix(audio, []byte("ID3")), len(audio) > 1 && audio[0] == 0xFF && audio[1]&0xE0 == 0xE0:
		return "audio.mp3"
	case len(audio) > 8 && string(audio[4:8]) == "ftyp":
		return "audio.m4a"
	default:
		return "audio.wav"
	}
}
