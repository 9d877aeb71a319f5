//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
)

// MicrophoneRecorder stub when portaudio is not available
type MicrophoneRecorder struct {
	logger *slog.Logger
}

func NewMicrophoneRecorder(_ ListenSettings, logger *slog.Logger) *MicrophoneRecorder {
	return &MicrophoneRecorder{logger: logger}
}

func (m *MicrophoneRecorder) Name() string {
	return "microphone"
}

func (m *MicrophoneRecorder) Start(_ context.Context) error {
	return fmt.Errorf("%w: rebuild with -tags portaudio", ErrMicrophoneUnavailable)
}

func (m *MicrophoneRecorder) Stop() error {
	return nil
}

func (m *MicrophoneRecorder) Record(_ context.Context) ([]byte, error) {
	return nil, ErrMicrophoneUnavailable
}
