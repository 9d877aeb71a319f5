package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"voice-mascot/config"
	"voice-mascot/internal/application"
	"voice-mascot/internal/domain"
	"voice-mascot/internal/infra/anthropic"
	"voice-mascot/internal/infra/audio"
	"voice-mascot/internal/infra/gemini"
	"voice-mascot/internal/infra/openai"
	"voice-mascot/internal/infra/tts"
	"voice-mascot/internal/infra/web"
)

// recorder is an audio source that holds a device or directory open between turns.
type recorder interface {
	application.Recorder
	Start(ctx context.Context) error
	Stop() error
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envPath := flag.String("env", ".env", "path to dotenv file")
	flag.Parse()

	if err := config.LoadEnv(*envPath); err != nil {
		slog.Error("loading env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, domain.ErrMissingCredential) {
			logger.Error("API key not found. Please check your .env file.", "error", err)
		} else {
			logger.Error("invalid config", "error", err)
		}
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	rec, source, err := startRecorder(ctx, cfg.Audio, logger)
	if err != nil {
		logger.Error("starting audio recorder", "error", err, "source", cfg.Audio.Source)
		os.Exit(1)
	}
	stopRecorder := func() {
		if rec == nil {
			return
		}
		if err := rec.Stop(); err != nil {
			logger.Warn("stopping audio recorder", "error", err)
		}
	}

	var mascotRecorder application.Recorder
	if rec != nil {
		mascotRecorder = rec
	}

	whisperClient := openai.NewWhisperClientWithURL(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.TranscriptionModel,
		cfg.OpenAI.Language,
		cfg.OpenAI.BaseURL,
	)

	session := application.NewSession()

	mascot := application.NewMascot(
		mascotRecorder,
		whisperClient,
		createCompleter(cfg),
		createSpeaker(cfg.TTS, logger),
		session,
		session,
		cfg.Completion.Fallback,
		logger,
	)

	image, err := web.LoadMascotImage(cfg.Mascot.ImagePath)
	if err != nil {
		logger.Warn("Mascot image not found. Using placeholder.", "error", err)
	}

	_, _, _, phraseLimit := cfg.Audio.Durations()

	server := web.NewServer(web.Settings{
		Addr:           cfg.Server.Addr,
		Title:          cfg.Mascot.Title,
		Caption:        cfg.Mascot.Caption,
		MascotName:     cfg.Mascot.Name,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
		BrowserCapture: source == "browser",
		PhraseLimit:    phraseLimit,
	}, mascot, image, logger)

	if err := server.Start(ctx); err != nil {
		logger.Error("starting web server", "error", err)
		stopRecorder()
		os.Exit(1)
	}

	logger.Info("starting voice mascot",
		"addr", server.Addr(),
		"audio_source", source,
		"completion_provider", cfg.Completion.Provider,
		"tts_engine", cfg.TTS.Engine,
	)

	<-ctx.Done()

	if err := server.Stop(); err != nil {
		logger.Error("stopping web server", "error", err)
	}
	stopRecorder()
}

// startRecorder opens the configured audio source and reports the source in
// effect. A binary built without portaudio falls back to browser capture.
func startRecorder(ctx context.Context, cfg config.AudioConfig, logger *slog.Logger) (recorder, string, error) {
	rec := createRecorder(cfg, logger)
	if rec == nil {
		return nil, cfg.Source, nil
	}

	if err := rec.Start(ctx); err != nil {
		if errors.Is(err, audio.ErrMicrophoneUnavailable) {
			logger.Warn("microphone unavailable, recording in the browser instead", "error", err)
			return nil, "browser", nil
		}
		return nil, cfg.Source, err
	}

	return rec, cfg.Source, nil
}

func createRecorder(cfg config.AudioConfig, logger *slog.Logger) recorder {
	pause, calibration, timeout, phraseLimit := cfg.Durations()

	switch cfg.Source {
	case "file":
		return audio.NewFileRecorder(cfg.FileDir, timeout)
	case "browser":
		return nil
	default:
		settings := audio.DefaultListenSettings()
		settings.SampleRate = cfg.SampleRate
		settings.EnergyThreshold = cfg.EnergyThreshold
		settings.DynamicThreshold = *cfg.DynamicThreshold
		settings.PauseThreshold = pause
		settings.Calibration = calibration
		settings.Timeout = timeout
		settings.PhraseLimit = phraseLimit
		return audio.NewMicrophoneRecorder(settings, logger)
	}
}

func createCompleter(cfg *config.Config) application.ChatCompleter {
	c := cfg.Completion

	switch c.Provider {
	case "anthropic":
		return anthropic.NewClaudeClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model, c.SystemPrompt, c.MaxTokens)
	case "gemini":
		return gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model, c.SystemPrompt, c.MaxTokens)
	default:
		return openai.NewChatClientWithURL(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel, c.SystemPrompt, c.MaxTokens, cfg.OpenAI.BaseURL)
	}
}

func createSpeaker(cfg config.TTSConfig, logger *slog.Logger) application.TextToSpeech {
	if cfg.Engine == "none" {
		return &application.NoopTTS{}
	}

	speaker, err := tts.NewLocalSpeaker(tts.Settings{
		Command: cfg.Command,
		Rate:    cfg.Rate,
		Volume:  cfg.Volume,
		Voice:   cfg.Voice,
	}, logger)
	if err != nil {
		logger.Warn("speech output disabled", "error", err)
		return &application.NoopTTS{}
	}

	logger.Info("speech output ready", "engine", speaker.Name())
	return tts.NewGuard(speaker)
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
