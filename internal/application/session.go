package application

import (
	"context"
	"sync"

	"voice-mascot/internal/domain"
)

// Session holds the in-memory state of one interactive chat: the transcript,
// the turn counter and the notices produced by the most recent action.
type Session struct {
	mu sync.RWMutex

	messages        []domain.Message
	lastQuestion    string
	currentResponse string
	turnCounter     int
	notices         []domain.Notice
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) AppendUser(text string) domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := domain.NewMessage(domain.RoleUser, text)
	s.messages = append(s.messages, msg)
	s.lastQuestion = text
	return msg
}

func (s *Session) AppendAssistant(text string) domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := domain.NewMessage(domain.RoleAssistant, text)
	s.messages = append(s.messages, msg)
	s.currentResponse = text
	return msg
}

// CompleteTurn advances the turn counter after a reply has been produced.
func (s *Session) CompleteTurn() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turnCounter++
	return s.turnCounter
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.lastQuestion = ""
	s.currentResponse = ""
	s.turnCounter = 0
	s.notices = nil
}

// Messages returns a copy of the transcript in display order.
func (s *Session) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Session) TurnCounter() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turnCounter
}

// LastQuestion is recorded for display and logging only; repeated utterances
// are not suppressed.
func (s *Session) LastQuestion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastQuestion
}

func (s *Session) CurrentResponse() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentResponse
}

func (s *Session) ResetNotices() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = nil
}

func (s *Session) Notices() []domain.Notice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Notice, len(s.notices))
	copy(out, s.notices)
	return out
}

// Notify implements Notifier by keeping the notice for the next page render.
func (s *Session) Notify(_ context.Context, notice domain.Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, notice)
	return nil
}
