package audio

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrMicrophoneUnavailable is returned by binaries built without portaudio support.
var ErrMicrophoneUnavailable = errors.New("microphone recorder not available")

// StreamRecorder captures one utterance from a live frame source.
type StreamRecorder struct {
	name     string
	src      FrameSource
	listener *Listener
	settings ListenSettings
	logger   *slog.Logger

	mu sync.Mutex
}

func NewStreamRecorder(name string, src FrameSource, settings ListenSettings, logger *slog.Logger) *StreamRecorder {
	return &StreamRecorder{
		name:     name,
		src:      src,
		listener: NewListener(settings, logger),
		settings: settings,
		logger:   logger,
	}
}

func (r *StreamRecorder) Name() string {
	return r.name
}

func (r *StreamRecorder) Record(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.settings.Calibration > 0 {
		r.logger.Info("adjusting for ambient noise", "duration", r.settings.Calibration)
		if err := r.listener.Calibrate(ctx, r.src, r.settings.Calibration); err != nil {
			return nil, err
		}
	}

	r.logger.Info("listening, speak now", "threshold", r.listener.Threshold())
	samples, err := r.listener.Listen(ctx, r.src, r.settings.Timeout, r.settings.PhraseLimit)
	if err != nil {
		return nil, err
	}

	r.logger.Info("captured phrase", "samples", len(samples))
	return EncodeWAV(samples, r.settings.SampleRate)
}
