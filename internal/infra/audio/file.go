package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"voice-mascot/internal/domain"
)

var audioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".webm": true,
	".ogg":  true,
}

// FileRecorder treats each new audio file dropped into a directory as one
// utterance. Consumed files are renamed with a .processed suffix.
type FileRecorder struct {
	dir          string
	timeout      time.Duration
	pollInterval time.Duration

	mu sync.Mutex
}

func NewFileRecorder(dir string, timeout time.Duration) *FileRecorder {
	return &FileRecorder{
		dir:          dir,
		timeout:      timeout,
		pollInterval: 500 * time.Millisecond,
	}
}

func (f *FileRecorder) Name() string {
	return "file"
}

func (f *FileRecorder) Start(_ context.Context) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating audio dir: %w", err)
	}
	return nil
}

func (f *FileRecorder) Stop() error {
	return nil
}

func (f *FileRecorder) Record(ctx context.Context) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	audio, err := f.checkForNewFile()
	if err != nil || audio != nil {
		return audio, err
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, domain.ErrNoSpeech
			}
			return nil, ctx.Err()
		case <-ticker.C:
			audio, err := f.checkForNewFile()
			if err != nil {
				return nil, err
			}
			if audio != nil {
				return audio, nil
			}
		}
	}
}

func (f *FileRecorder) checkForNewFile() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("reading dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !audioExtensions[filepath.Ext(entry.Name())] {
			continue
		}

		path := filepath.Join(f.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", path, err)
		}

		if err := os.Rename(path, path+".processed"); err != nil {
			return nil, fmt.Errorf("marking %s processed: %w", path, err)
		}

		return data, nil
	}

	return nil, nil
}
