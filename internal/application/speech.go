package application

import (
	"context"
)

type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type TextToSpeech interface {
	Speak(ctx context.Context, text string) error
}

// NoopTTS is used when speech output is disabled.
type NoopTTS struct{}

func (n *NoopTTS) Speak(_ context.Context, _ string) error {
	return nil
}
