package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"voice-mascot/internal/domain"
)

const (
	msgNoSpeech      = "No speech detected. Please try again and speak clearly."
	msgNotUnderstood = "Could not understand audio. Please speak more clearly."
	msgTurnBusy      = "The mascot is still answering the previous question."
)

// Mascot runs one voice turn at a time: record, transcribe, complete, speak.
type Mascot struct {
	recorder Recorder
	stt      SpeechToText
	chat     ChatCompleter
	tts      TextToSpeech
	session  *Session
	notifier Notifier
	fallback string
	logger   *slog.Logger

	turnMu sync.Mutex
}

type TurnResult struct {
	UserText string `json:"user_text"`
	Reply    string `json:"reply"`
	Fallback bool   `json:"fallback"`
	Spoken   bool   `json:"spoken"`
	Appended int    `json:"appended"`
	Turn     int    `json:"turn"`
}

func NewMascot(
	recorder Recorder,
	stt SpeechToText,
	chat ChatCompleter,
	tts TextToSpeech,
	session *Session,
	notifier Notifier,
	fallback string,
	logger *slog.Logger,
) *Mascot {
	return &Mascot{
		recorder: recorder,
		stt:      stt,
		chat:     chat,
		tts:      tts,
		session:  session,
		notifier: notifier,
		fallback: fallback,
		logger:   logger,
	}
}

func (m *Mascot) Session() *Session {
	return m.session
}

func (m *Mascot) RecorderName() string {
	if m.recorder == nil {
		return "none"
	}
	return m.recorder.Name()
}

// Clear empties the conversation. A turn that is already running finishes
// first so its entries never outlive the reset.
func (m *Mascot) Clear() {
	m.turnMu.Lock()
	defer m.turnMu.Unlock()

	m.session.Clear()
	m.logger.Info("conversation cleared")
}

// VoiceTurn records one utterance with the configured recorder and answers it.
func (m *Mascot) VoiceTurn(ctx context.Context) (*TurnResult, error) {
	if !m.turnMu.TryLock() {
		return nil, m.busy(ctx)
	}
	defer m.turnMu.Unlock()

	m.session.ResetNotices()

	if m.recorder == nil {
		return nil, m.fail(ctx, domain.NoticeError, "An error occurred: no audio recorder configured", fmt.Errorf("no recorder"))
	}

	m.logger.Info("listening", "recorder", m.recorder.Name())
	audio, err := m.recorder.Record(ctx)
	if err != nil {
		return nil, m.recordFailure(ctx, err)
	}

	return m.respond(ctx, audio)
}

// RespondToAudio answers an utterance that was captured elsewhere, e.g. by the browser.
func (m *Mascot) RespondToAudio(ctx context.Context, audio []byte) (*TurnResult, error) {
	if !m.turnMu.TryLock() {
		return nil, m.busy(ctx)
	}
	defer m.turnMu.Unlock()

	m.session.ResetNotices()
	return m.respond(ctx, audio)
}

func (m *Mascot) respond(ctx context.Context, audio []byte) (*TurnResult, error) {
	if len(audio) == 0 {
		return nil, m.recordFailure(ctx, domain.ErrNoSpeech)
	}

	m.logger.Info("received audio", "bytes", len(audio))

	text, err := m.stt.Transcribe(ctx, audio)
	if err != nil {
		if errors.Is(err, domain.ErrNotUnderstood) {
			return nil, m.fail(ctx, domain.NoticeError, msgNotUnderstood, err)
		}
		return nil, m.fail(ctx, domain.NoticeError, fmt.Sprintf("Could not request results; %v", err), fmt.Errorf("transcribing: %w", err))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, m.fail(ctx, domain.NoticeError, msgNotUnderstood, domain.ErrNotUnderstood)
	}

	m.logger.Info("transcribed", "text", text)
	m.session.AppendUser(text)

	result := &TurnResult{UserText: text, Appended: 1}

	reply, err := m.chat.Complete(ctx, text)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("empty reply")
	}
	if err != nil {
		m.logger.Error("getting reply", "error", err)
		m.notify(ctx, domain.NoticeError, fmt.Sprintf("Error getting AI response: %v", err))
		reply = m.fallback
		result.Fallback = true
	}

	m.session.AppendAssistant(reply)
	result.Reply = reply
	result.Appended++

	if err := m.tts.Speak(ctx, reply); err != nil {
		if errors.Is(err, domain.ErrSpeakerBusy) {
			m.logger.Debug("speaker busy, skipping reply audio")
		} else {
			m.logger.Error("speaking reply", "error", err)
			m.notify(ctx, domain.NoticeError, fmt.Sprintf("Error in speech output: %v", err))
		}
	} else {
		result.Spoken = true
	}

	result.Turn = m.session.CompleteTurn()

	m.logger.Info("turn complete",
		"turn", result.Turn,
		"fallback", result.Fallback,
		"spoken", result.Spoken,
	)

	return result, nil
}

func (m *Mascot) recordFailure(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNoSpeech):
		return m.fail(ctx, domain.NoticeWarning, msgNoSpeech, err)
	case errors.Is(err, domain.ErrNotUnderstood):
		return m.fail(ctx, domain.NoticeError, msgNotUnderstood, err)
	default:
		return m.fail(ctx, domain.NoticeError, fmt.Sprintf("An error occurred: %v", err), fmt.Errorf("recording: %w", err))
	}
}

func (m *Mascot) busy(ctx context.Context) error {
	m.notify(ctx, domain.NoticeStatus, msgTurnBusy)
	return domain.ErrTurnInProgress
}

func (m *Mascot) fail(ctx context.Context, level domain.NoticeLevel, text string, err error) error {
	m.logger.Warn("turn abandoned", "error", err)
	m.notify(ctx, level, text)
	return err
}

func (m *Mascot) notify(ctx context.Context, level domain.NoticeLevel, text string) {
	if err := m.notifier.Notify(ctx, domain.Notice{Level: level, Text: text}); err != nil {
		m.logger.Error("notifying", "error", err)
	}
}
