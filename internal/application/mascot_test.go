package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"voice-mascot/internal/application"
	"voice-mascot/internal/domain"
)

const fallbackReply = "I'm having trouble thinking right now. Would you like to hear a cricket joke instead?"

type mockRecorder struct {
	audio   []byte
	err     error
	started chan struct{}
	release chan struct{}
}

func (m *mockRecorder) Name() string { return "mock" }

func (m *mockRecorder) Record(ctx context.Context) ([]byte, error) {
	if m.started != nil {
		close(m.started)
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.audio, m.err
}

type mockSTT struct {
	transcriptions map[string]string
	err            error
	calls          int
}

func (m *mockSTT) Transcribe(_ context.Context, audio []byte) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.transcriptions[string(audio)], nil
}

type mockChat struct {
	replies map[string]string
	err     error
	calls   int
	started chan struct{}
	release chan struct{}
}

func (m *mockChat) Complete(ctx context.Context, text string) (string, error) {
	m.calls++
	if m.started != nil {
		close(m.started)
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	return m.replies[text], nil
}

type mockTTS struct {
	spoken []string
	err    error
}

func (m *mockTTS) Speak(_ context.Context, text string) error {
	if m.err != nil {
		return m.err
	}
	m.spoken = append(m.spoken, text)
	return nil
}

type fixture struct {
	recorder *mockRecorder
	stt      *mockSTT
	chat     *mockChat
	tts      *mockTTS
	session  *application.Session
	mascot   *application.Mascot
}

func newFixture() *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		recorder: &mockRecorder{audio: []byte("howzat")},
		stt: &mockSTT{transcriptions: map[string]string{
			"howzat":    "who won the match",
			"again":     "tell me a joke",
			"  spaces ": "   ",
		}},
		chat: &mockChat{replies: map[string]string{
			"who won the match": "The Royals, by six wickets!",
			"tell me a joke":    "Why did the cricket team go to the bank? To get their balance!",
		}},
		tts:     &mockTTS{},
		session: application.NewSession(),
	}
	f.mascot = application.NewMascot(f.recorder, f.stt, f.chat, f.tts, f.session, f.session, fallbackReply, logger)
	return f
}

func TestMascot_VoiceTurnAppendsUserThenAssistant(t *testing.T) {
	f := newFixture()

	if got := f.session.Len(); got != 0 {
		t.Fatalf("initial transcript length: got %d, want 0", got)
	}

	result, err := f.mascot.VoiceTurn(context.Background())
	if err != nil {
		t.Fatalf("VoiceTurn error: %v", err)
	}

	msgs := f.session.Messages()
	if len(msgs) != 2 {
		t.Fatalf("transcript length: got %d, want 2", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[0].Content != "who won the match" {
		t.Errorf("first message: got %+v", msgs[0])
	}
	if msgs[1].Role != domain.RoleAssistant || msgs[1].Content != "The Royals, by six wickets!" {
		t.Errorf("second message: got %+v", msgs[1])
	}

	if result.Appended != 2 || result.Turn != 1 || !result.Spoken || result.Fallback {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(f.tts.spoken) != 1 || f.tts.spoken[0] != "The Royals, by six wickets!" {
		t.Errorf("spoken: got %v", f.tts.spoken)
	}
	if f.session.LastQuestion() != "who won the match" {
		t.Errorf("last question: got %q", f.session.LastQuestion())
	}
	if f.session.CurrentResponse() != "The Royals, by six wickets!" {
		t.Errorf("current response: got %q", f.session.CurrentResponse())
	}
}

func TestMascot_TranscriptGrowsByTwoPerTurn(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if _, err := f.mascot.RespondToAudio(ctx, []byte("howzat")); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
		if got := f.session.Len(); got != 2*i {
			t.Errorf("after turn %d: got %d messages, want %d", i, got, 2*i)
		}
		if got := f.session.TurnCounter(); got != i {
			t.Errorf("after turn %d: counter %d", i, got)
		}
	}

	// identical utterances are not de-duplicated
	msgs := f.session.Messages()
	if msgs[0].Content != msgs[2].Content {
		t.Errorf("expected repeated question to be kept")
	}
}

func TestMascot_FailuresAppendNothing(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *fixture)
		wantErr   error
		wantLevel domain.NoticeLevel
	}{
		{
			name:      "listen timeout",
			setup:     func(f *fixture) { f.recorder.err = domain.ErrNoSpeech },
			wantErr:   domain.ErrNoSpeech,
			wantLevel: domain.NoticeWarning,
		},
		{
			name:      "empty audio",
			setup:     func(f *fixture) { f.recorder.audio = nil },
			wantErr:   domain.ErrNoSpeech,
			wantLevel: domain.NoticeWarning,
		},
		{
			name:      "not understood",
			setup:     func(f *fixture) { f.stt.err = domain.ErrNotUnderstood },
			wantErr:   domain.ErrNotUnderstood,
			wantLevel: domain.NoticeError,
		},
		{
			name:      "blank transcription",
			setup:     func(f *fixture) { f.recorder.audio = []byte("  spaces ") },
			wantErr:   domain.ErrNotUnderstood,
			wantLevel: domain.NoticeError,
		},
		{
			name:      "transcription request failure",
			setup:     func(f *fixture) { f.stt.err = errors.New("503 service unavailable") },
			wantLevel: domain.NoticeError,
		},
		{
			name:      "microphone failure",
			setup:     func(f *fixture) { f.recorder.err = errors.New("device busy") },
			wantLevel: domain.NoticeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			_, err := f.mascot.VoiceTurn(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error: got %v, want %v", err, tt.wantErr)
			}
			if got := f.session.Len(); got != 0 {
				t.Errorf("transcript length: got %d, want 0", got)
			}
			if got := f.session.TurnCounter(); got != 0 {
				t.Errorf("turn counter: got %d, want 0", got)
			}
			if f.chat.calls != 0 {
				t.Errorf("completion should not be called, got %d calls", f.chat.calls)
			}

			notices := f.session.Notices()
			if len(notices) != 1 || notices[0].Level != tt.wantLevel {
				t.Errorf("notices: got %+v, want one %s", notices, tt.wantLevel)
			}
		})
	}
}

func TestMascot_CompletionFailureUsesFallback(t *testing.T) {
	f := newFixture()
	f.chat.err = errors.New("rate limited")

	result, err := f.mascot.VoiceTurn(context.Background())
	if err != nil {
		t.Fatalf("VoiceTurn error: %v", err)
	}

	msgs := f.session.Messages()
	if len(msgs) != 2 {
		t.Fatalf("transcript length: got %d, want 2", len(msgs))
	}
	if msgs[1].Content != fallbackReply {
		t.Errorf("assistant entry: got %q, want fallback", msgs[1].Content)
	}
	if !result.Fallback {
		t.Error("expected fallback flag")
	}
	if f.session.TurnCounter() != 1 {
		t.Errorf("turn counter: got %d, want 1", f.session.TurnCounter())
	}
	if len(f.tts.spoken) != 1 || f.tts.spoken[0] != fallbackReply {
		t.Errorf("expected fallback to be spoken, got %v", f.tts.spoken)
	}
}

func TestMascot_EmptyCompletionUsesFallback(t *testing.T) {
	f := newFixture()
	f.chat.replies = map[string]string{}

	if _, err := f.mascot.VoiceTurn(context.Background()); err != nil {
		t.Fatalf("VoiceTurn error: %v", err)
	}

	if got := f.session.CurrentResponse(); got != fallbackReply {
		t.Errorf("current response: got %q", got)
	}
}

func TestMascot_SpeechFailureKeepsTranscript(t *testing.T) {
	f := newFixture()
	f.tts.err = errors.New("no audio device")

	result, err := f.mascot.VoiceTurn(context.Background())
	if err != nil {
		t.Fatalf("VoiceTurn error: %v", err)
	}

	msgs := f.session.Messages()
	if len(msgs) != 2 {
		t.Fatalf("transcript length: got %d, want 2", len(msgs))
	}
	if msgs[0].Content != "who won the match" || msgs[1].Content != "The Royals, by six wickets!" {
		t.Errorf("transcript altered: %+v", msgs)
	}
	if result.Spoken {
		t.Error("result should not be marked spoken")
	}

	notices := f.session.Notices()
	if len(notices) != 1 || notices[0].Level != domain.NoticeError {
		t.Errorf("notices: got %+v", notices)
	}
}

func TestMascot_SpeakerBusyIsSilent(t *testing.T) {
	f := newFixture()
	f.tts.err = domain.ErrSpeakerBusy

	if _, err := f.mascot.VoiceTurn(context.Background()); err != nil {
		t.Fatalf("VoiceTurn error: %v", err)
	}
	if n := len(f.session.Notices()); n != 0 {
		t.Errorf("expected no notices, got %d", n)
	}
	if f.session.Len() != 2 {
		t.Errorf("transcript length: got %d, want 2", f.session.Len())
	}
}

func TestMascot_RejectsOverlappingTurns(t *testing.T) {
	f := newFixture()
	f.recorder.started = make(chan struct{})
	f.recorder.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.mascot.VoiceTurn(context.Background())
		done <- err
	}()

	select {
	case <-f.recorder.started:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for recording to start")
	}

	if _, err := f.mascot.RespondToAudio(context.Background(), []byte("again")); !errors.Is(err, domain.ErrTurnInProgress) {
		t.Errorf("overlapping turn: got %v, want ErrTurnInProgress", err)
	}

	close(f.recorder.release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first turn: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for first turn")
	}

	if f.session.Len() != 2 {
		t.Errorf("transcript length: got %d, want 2", f.session.Len())
	}
}

func TestMascot_ClearWaitsForRunningTurn(t *testing.T) {
	f := newFixture()
	f.chat.started = make(chan struct{})
	f.chat.release = make(chan struct{})

	turnDone := make(chan error, 1)
	go func() {
		_, err := f.mascot.VoiceTurn(context.Background())
		turnDone <- err
	}()

	select {
	case <-f.chat.started:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for completion to start")
	}

	clearDone := make(chan struct{})
	go func() {
		f.mascot.Clear()
		close(clearDone)
	}()

	select {
	case <-clearDone:
		t.Fatal("Clear returned while the turn was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(f.chat.release)

	select {
	case err := <-turnDone:
		if err != nil {
			t.Fatalf("turn: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for turn")
	}

	select {
	case <-clearDone:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for Clear")
	}

	if got := f.session.Len(); got != 0 {
		t.Errorf("transcript length after clear: got %d, want 0", got)
	}
	if got := f.session.TurnCounter(); got != 0 {
		t.Errorf("turn counter after clear: got %d, want 0", got)
	}
	if f.session.LastQuestion() != "" || f.session.CurrentResponse() != "" {
		t.Error("clear should drop the last question and response")
	}
	if got := f.tts.spoken; len(got) != 1 || got[0] != "The Royals, by six wickets!" {
		t.Errorf("spoken: got %v", got)
	}

	// the next turn starts from an empty transcript
	f.chat.started, f.chat.release = nil, nil
	if _, err := f.mascot.VoiceTurn(context.Background()); err != nil {
		t.Fatalf("VoiceTurn after clear: %v", err)
	}
	if f.session.Len() != 2 || f.session.TurnCounter() != 1 {
		t.Errorf("after next turn: %d messages, turn %d", f.session.Len(), f.session.TurnCounter())
	}
}

func TestMascot_ClearWithoutTurn(t *testing.T) {
	f := newFixture()
	if _, err := f.mascot.VoiceTurn(context.Background()); err != nil {
		t.Fatalf("VoiceTurn error: %v", err)
	}

	f.mascot.Clear()
	f.mascot.Clear()

	if f.session.Len() != 0 || f.session.TurnCounter() != 0 {
		t.Errorf("after clear: %d messages, turn %d", f.session.Len(), f.session.TurnCounter())
	}
}

func TestMascot_NoticesResetPerTurn(t *testing.T) {
	f := newFixture()
	f.recorder.err = domain.ErrNoSpeech

	_, _ = f.mascot.VoiceTurn(context.Background())
	if len(f.session.Notices()) != 1 {
		t.Fatalf("expected one notice after failed turn")
	}

	f.recorder.err = nil
	if _, err := f.mascot.VoiceTurn(context.Background()); err != nil {
		t.Fatalf("VoiceTurn error: %v", err)
	}
	if n := len(f.session.Notices()); n != 0 {
		t.Errorf("notices after successful turn: got %d, want 0", n)
	}
}
