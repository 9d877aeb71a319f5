//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
)

type MicrophoneRecorder struct {
	settings ListenSettings
	logger   *slog.Logger

	stream   *portaudio.Stream
	buffer   []int16
	recorder *StreamRecorder
}

func NewMicrophoneRecorder(settings ListenSettings, logger *slog.Logger) *MicrophoneRecorder {
	m := &MicrophoneRecorder{
		settings: settings,
		logger:   logger,
		buffer:   make([]int16, settings.FrameSize),
	}
	m.recorder = NewStreamRecorder("microphone", m, settings, logger)
	return m
}

func (m *MicrophoneRecorder) Name() string {
	return "microphone"
}

func (m *MicrophoneRecorder) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	inputChannels := 1
	outputChannels := 0

	stream, err := portaudio.OpenDefaultStream(
		inputChannels,
		outputChannels,
		float64(m.settings.SampleRate),
		m.settings.FrameSize,
		m.buffer,
	)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}

	m.stream = stream
	m.logger.Info("microphone ready", "sampleRate", m.settings.SampleRate)
	return nil
}

func (m *MicrophoneRecorder) Stop() error {
	if m.stream != nil {
		if err := m.stream.Close(); err != nil {
			m.logger.Warn("closing stream", "error", err)
		}
		m.stream = nil
	}
	return portaudio.Terminate()
}

// Record opens the input only for the duration of one utterance so that
// audio between turns is never buffered.
func (m *MicrophoneRecorder) Record(ctx context.Context) ([]byte, error) {
	if m.stream == nil {
		return nil, fmt.Errorf("microphone not started")
	}

	if err := m.stream.Start(); err != nil {
		return nil, fmt.Errorf("starting stream: %w", err)
	}
	defer func() {
		if err := m.stream.Stop(); err != nil {
			m.logger.Warn("stopping stream", "error", err)
		}
	}()

	return m.recorder.Record(ctx)
}

func (m *MicrophoneRecorder) ReadFrame() ([]int16, error) {
	if err := m.stream.Read(); err != nil {
		return nil, fmt.Errorf("reading from stream: %w", err)
	}
	frame := make([]int16, len(m.buffer))
	copy(frame, m.buffer)
	return frame, nil
}
