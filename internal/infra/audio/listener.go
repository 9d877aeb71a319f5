package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"voice-mascot/internal/domain"
)

const (
	dynamicEnergyDamping = 0.15
	dynamicEnergyRatio   = 1.5
)

// FrameSource yields fixed-size frames of 16-bit mono PCM.
type FrameSource interface {
	ReadFrame() ([]int16, error)
}

type ListenSettings struct {
	SampleRate       int
	FrameSize        int
	EnergyThreshold  float64
	DynamicThreshold bool

	// PauseThreshold is how much silence ends a phrase.
	PauseThreshold time.Duration
	// PhraseThreshold is the shortest sound kept as a phrase.
	PhraseThreshold time.Duration
	// NonSpeaking is the silence kept on each side of the phrase.
	NonSpeaking time.Duration

	Calibration time.Duration
	Timeout     time.Duration
	PhraseLimit time.Duration
}

func DefaultListenSettings() ListenSettings {
	return ListenSettings{
		SampleRate:       16000,
		FrameSize:        1024,
		EnergyThreshold:  3000,
		DynamicThreshold: true,
		PauseThreshold:   800 * time.Millisecond,
		PhraseThreshold:  300 * time.Millisecond,
		NonSpeaking:      500 * time.Millisecond,
		Calibration:      2 * time.Second,
		Timeout:          10 * time.Second,
		PhraseLimit:      10 * time.Second,
	}
}

// Listener detects a single utterance in a frame stream by comparing frame
// energy against a threshold that can follow the ambient noise level.
type Listener struct {
	settings  ListenSettings
	threshold float64
	logger    *slog.Logger
}

func NewListener(settings ListenSettings, logger *slog.Logger) *Listener {
	return &Listener{
		settings:  settings,
		threshold: settings.EnergyThreshold,
		logger:    logger,
	}
}

func (l *Listener) Threshold() float64 {
	return l.threshold
}

func (l *Listener) frameDuration() time.Duration {
	return time.Duration(l.settings.FrameSize) * time.Second / time.Duration(l.settings.SampleRate)
}

func (l *Listener) frames(d time.Duration) int {
	return int(math.Ceil(float64(d) / float64(l.frameDuration())))
}

func (l *Listener) adjust(energy float64) {
	damping := math.Pow(dynamicEnergyDamping, l.frameDuration().Seconds())
	target := energy * dynamicEnergyRatio
	l.threshold = l.threshold*damping + target*(1-damping)
}

// Calibrate reads ambient audio for the given duration and moves the energy
// threshold towards it.
func (l *Listener) Calibrate(ctx context.Context, src FrameSource, duration time.Duration) error {
	var elapsed time.Duration
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		elapsed += l.frameDuration()
		if elapsed > duration {
			break
		}

		frame, err := src.ReadFrame()
		if err != nil {
			return fmt.Errorf("reading frame: %w", err)
		}
		l.adjust(rms(frame))
	}

	l.logger.Debug("calibrated for ambient noise", "threshold", l.threshold)
	return nil
}

// Listen blocks until a phrase has been captured and returns its samples.
// It returns domain.ErrNoSpeech when nothing louder than the threshold starts
// within the timeout.
func (l *Listener) Listen(ctx context.Context, src FrameSource, timeout, phraseLimit time.Duration) ([]int16, error) {
	frameDur := l.frameDuration()
	pauseFrames := l.frames(l.settings.PauseThreshold)
	phraseFrames := l.frames(l.settings.PhraseThreshold)
	nonSpeakingFrames := l.frames(l.settings.NonSpeaking)

	var (
		elapsed    time.Duration
		frames     [][]int16
		pauseCount int
	)

	for {
		frames = frames[:0]

		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			elapsed += frameDur
			if timeout > 0 && elapsed > timeout {
				return nil, domain.ErrNoSpeech
			}

			frame, err := src.ReadFrame()
			if err != nil {
				return nil, fmt.Errorf("reading frame: %w", err)
			}

			frames = append(frames, frame)
			if len(frames) > nonSpeakingFrames {
				frames = frames[1:]
			}

			energy := rms(frame)
			if energy > l.threshold {
				break
			}

			if l.settings.DynamicThreshold {
				l.adjust(energy)
			}
		}

		pauseCount = 0
		phraseCount := 0
		phraseStart := elapsed

		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			elapsed += frameDur
			if phraseLimit > 0 && elapsed-phraseStart > phraseLimit {
				break
			}

			frame, err := src.ReadFrame()
			if err != nil {
				return nil, fmt.Errorf("reading frame: %w", err)
			}

			frames = append(frames, frame)
			phraseCount++

			if rms(frame) > l.threshold {
				pauseCount = 0
			} else {
				pauseCount++
			}

			if pauseCount > pauseFrames {
				break
			}
		}

		phraseCount -= pauseCount
		if phraseCount >= phraseFrames {
			break
		}

		l.logger.Debug("discarding short sound", "frames", phraseCount)
	}

	if trim := pauseCount - nonSpeakingFrames; trim > 0 {
		frames = frames[:len(frames)-trim]
	}

	samples := make([]int16, 0, len(frames)*l.settings.FrameSize)
	for _, f := range frames {
		samples = append(samples, f...)
	}

	return samples, nil
}

func rms(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}
