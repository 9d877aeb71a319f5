package tts

import (
	"context"
	"sync"

	"voice-mascot/internal/domain"
)

type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Guard lets only one synthesis run at a time. A call made while another is
// speaking returns domain.ErrSpeakerBusy instead of waiting.
type Guard struct {
	next Speaker

	mu       sync.Mutex
	speaking bool
}

func NewGuard(next Speaker) *Guard {
	return &Guard{next: next}
}

func (g *Guard) Speak(ctx context.Context, text string) error {
	g.mu.Lock()
	if g.speaking {
		g.mu.Unlock()
		return domain.ErrSpeakerBusy
	}
	g.speaking = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.speaking = false
		g.mu.Unlock()
	}()

	return g.next.Speak(ctx, text)
}

func (g *Guard) Speaking() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.speaking
}
