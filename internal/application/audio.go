package application

import "context"

// Recorder captures a single utterance and returns it as an encoded audio file.
type Recorder interface {
	Record(ctx context.Context) ([]byte, error)
	Name() string
}

type AudioFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func DefaultAudioFormat() AudioFormat {
	return AudioFormat{
		SampleRate: 16000,
		Channels:   1,
		BitDepth:   16,
	}
}
