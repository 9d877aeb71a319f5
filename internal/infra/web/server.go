package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"voice-mascot/internal/application"
	"voice-mascot/internal/domain"
)

const maxAudioBytes = 10 * 1024 * 1024

var errAudioTooLarge = fmt.Errorf("audio upload exceeds %d bytes", maxAudioBytes)

type Settings struct {
	Addr           string
	Title          string
	Caption        string
	MascotName     string
	AllowedOrigins []string
	RateLimit      int
	BrowserCapture bool
	PhraseLimit    time.Duration
}

// Server renders the chat page and turns button presses into voice turns.
type Server struct {
	settings Settings
	mascot   *application.Mascot
	image    *MascotImage
	logger   *slog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	running  bool
	router   chi.Router
}

func NewServer(settings Settings, mascot *application.Mascot, image *MascotImage, logger *slog.Logger) *Server {
	if image == nil {
		image = placeholderImage()
	}
	if settings.RateLimit <= 0 {
		settings.RateLimit = 30
	}

	s := &Server{
		settings: settings,
		mascot:   mascot,
		image:    image,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	limit := httprate.LimitByIP(s.settings.RateLimit, time.Minute)

	r.Get("/", s.handleIndex)
	r.Get("/mascot", s.handleMascot)
	r.Get("/health", s.handleHealth)
	r.With(limit).Post("/voice", s.handleVoice)
	r.With(limit).Post("/clear", s.handleClear)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.settings.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
		r.Get("/transcript", s.handleTranscript)
		r.With(limit).Post("/turn", s.handleTurn)
	})

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves in the background.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ln, err := net.Listen("tcp", s.settings.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.settings.Addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// a turn includes listening, transcription, completion and speech
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("web server starting", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}

	s.running = false
	return nil
}

// Addr reports the bound address, which differs from the configured one when port 0 is used.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return s.settings.Addr
	}
	return s.listener.Addr().String()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	session := s.mascot.Session()

	data := pageData{
		Title:          s.settings.Title,
		Caption:        s.settings.Caption,
		MascotName:     s.settings.MascotName,
		Messages:       session.Messages(),
		Notices:        session.Notices(),
		TurnCounter:    session.TurnCounter(),
		BrowserCapture: s.settings.BrowserCapture,
		PhraseLimitMs:  s.settings.PhraseLimit.Milliseconds(),
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("rendering page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleMascot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", s.image.ContentType)
	_, _ = w.Write(s.image.Data)
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	// the browser drops the pending navigation on reload or Clear; the turn still completes
	if _, err := s.mascot.VoiceTurn(context.WithoutCancel(r.Context())); err != nil {
		s.logger.Info("voice turn ended without reply", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mascot.Clear()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type transcriptResponse struct {
	Messages    []domain.Message `json:"messages"`
	Notices     []domain.Notice  `json:"notices"`
	TurnCounter int              `json:"turn_counter"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, _ *http.Request) {
	session := s.mascot.Session()
	writeJSON(w, http.StatusOK, transcriptResponse{
		Messages:    session.Messages(),
		Notices:     session.Notices(),
		TurnCounter: session.TurnCounter(),
	})
}

type errorResponse struct {
	Error   string          `json:"error"`
	Notices []domain.Notice `json:"notices,omitempty"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	audio, err := readAudio(r)
	if err != nil {
		s.logger.Warn("reading uploaded audio", "error", err)
		status := http.StatusBadRequest
		if errors.Is(err, errAudioTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	result, err := s.mascot.RespondToAudio(context.WithoutCancel(r.Context()), audio)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, domain.ErrTurnInProgress) {
			status = http.StatusConflict
		}
		writeJSON(w, status, errorResponse{
			Error:   err.Error(),
			Notices: s.mascot.Session().Notices(),
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type healthResponse struct {
	Status   string `json:"status"`
	Recorder string `json:"audio_source"`
	Messages int    `json:"messages"`
	Turn     int    `json:"turn"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	session := s.mascot.Session()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Recorder: s.mascot.RecorderName(),
		Messages: session.Len(),
		Turn:     session.TurnCounter(),
	})
}

// readAudio accepts either a multipart upload in the "audio" field or a raw body.
func readAudio(r *http.Request) ([]byte, error) {
	defer r.Body.Close()

	if err := r.ParseMultipartForm(maxAudioBytes); err == nil {
		file, _, err := r.FormFile("audio")
		if err != nil {
			return nil, fmt.Errorf("missing audio field: %w", err)
		}
		defer file.Close()
		return readLimited(file)
	} else if !errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("parsing upload: %w", err)
	}

	return readLimited(r.Body)
}

// readLimited reads one byte past the limit so an oversized upload is
// rejected rather than silently truncated.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	if len(data) > maxAudioBytes {
		return nil, errAudioTooLarge
	}
	return data, nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
