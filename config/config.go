package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"voice-mascot/internal/domain"
)

const (
	DefaultSystemPrompt = "You are a friendly Rajasthan Royals cricket mascot. Keep responses short, engaging, and cricket-themed. Include occasional cricket jokes and facts."
	DefaultFallback     = "I'm having trouble thinking right now. Would you like to hear a cricket joke instead?"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Mascot     MascotConfig     `yaml:"mascot"`
	Audio      AudioConfig      `yaml:"audio"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Completion CompletionConfig `yaml:"completion"`
	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	TTS        TTSConfig        `yaml:"tts"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimit      int      `yaml:"rate_limit"`
}

type MascotConfig struct {
	Name      string `yaml:"name"`
	Title     string `yaml:"title"`
	Caption   string `yaml:"caption"`
	ImagePath string `yaml:"image_path"`
}

type AudioConfig struct {
	Source           string  `yaml:"source"`
	FileDir          string  `yaml:"file_dir"`
	SampleRate       int     `yaml:"sample_rate"`
	EnergyThreshold  float64 `yaml:"energy_threshold"`
	DynamicThreshold *bool   `yaml:"dynamic_threshold"`
	PauseThreshold   string  `yaml:"pause_threshold"`
	Calibration      string  `yaml:"calibration"`
	Timeout          string  `yaml:"timeout"`
	PhraseLimit      string  `yaml:"phrase_limit"`
}

type OpenAIConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	TranscriptionModel string `yaml:"transcription_model"`
	Language           string `yaml:"language"`
	ChatModel          string `yaml:"chat_model"`
}

type CompletionConfig struct {
	Provider     string `yaml:"provider"`
	SystemPrompt string `yaml:"system_prompt"`
	MaxTokens    int    `yaml:"max_tokens"`
	Fallback     string `yaml:"fallback"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type TTSConfig struct {
	Engine  string  `yaml:"engine"`
	Command string  `yaml:"command"`
	Rate    int     `yaml:"rate"`
	Volume  float64 `yaml:"volume"`
	Voice   string  `yaml:"voice"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadEnv loads a .env file into the process environment. Variables that are
// already set keep their values. A missing file is not an error.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the YAML config at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.setDefaults()

	return &cfg, nil
}

// Validate checks that every credential the selected services need is present.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY (used for transcription)", domain.ErrMissingCredential)
	}

	switch c.Completion.Provider {
	case "openai":
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("%w: set ANTHROPIC_API_KEY", domain.ErrMissingCredential)
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("%w: set GEMINI_API_KEY", domain.ErrMissingCredential)
		}
	default:
		return fmt.Errorf("unknown completion provider %q", c.Completion.Provider)
	}

	switch c.Audio.Source {
	case "microphone", "browser", "file":
	default:
		return fmt.Errorf("unknown audio source %q", c.Audio.Source)
	}

	for name, value := range map[string]string{
		"audio.pause_threshold": c.Audio.PauseThreshold,
		"audio.calibration":     c.Audio.Calibration,
		"audio.timeout":         c.Audio.Timeout,
		"audio.phrase_limit":    c.Audio.PhraseLimit,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8501"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 30
	}
	if c.Mascot.Name == "" {
		c.Mascot.Name = "Mascot"
	}
	if c.Mascot.Title == "" {
		c.Mascot.Title = "🏏 Voice-Enabled Rajasthan Royals Mascot 🎙️"
	}
	if c.Mascot.Caption == "" {
		c.Mascot.Caption = "Your Rajasthan Royals Mascot"
	}
	if c.Mascot.ImagePath == "" {
		c.Mascot.ImagePath = "1.png"
	}
	if c.Audio.Source == "" {
		c.Audio.Source = "microphone"
	}
	if c.Audio.FileDir == "" {
		c.Audio.FileDir = "./audio"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.EnergyThreshold == 0 {
		c.Audio.EnergyThreshold = 3000
	}
	if c.Audio.DynamicThreshold == nil {
		enabled := true
		c.Audio.DynamicThreshold = &enabled
	}
	if c.Audio.PauseThreshold == "" {
		c.Audio.PauseThreshold = "800ms"
	}
	if c.Audio.Calibration == "" {
		c.Audio.Calibration = "2s"
	}
	if c.Audio.Timeout == "" {
		c.Audio.Timeout = "10s"
	}
	if c.Audio.PhraseLimit == "" {
		c.Audio.PhraseLimit = "10s"
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.OpenAI.TranscriptionModel == "" {
		c.OpenAI.TranscriptionModel = "whisper-1"
	}
	if c.OpenAI.Language == "" {
		c.OpenAI.Language = "en"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-3.5-turbo"
	}
	if c.Completion.Provider == "" {
		c.Completion.Provider = "openai"
	}
	if c.Completion.SystemPrompt == "" {
		c.Completion.SystemPrompt = DefaultSystemPrompt
	}
	if c.Completion.MaxTokens == 0 {
		c.Completion.MaxTokens = 100
	}
	if c.Completion.Fallback == "" {
		c.Completion.Fallback = DefaultFallback
	}
	if c.Anthropic.APIKey == "" {
		c.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.TTS.Engine == "" {
		c.TTS.Engine = "local"
	}
	if c.TTS.Rate == 0 {
		c.TTS.Rate = 150
	}
	if c.TTS.Volume == 0 {
		c.TTS.Volume = 1.0
	}
	if c.TTS.Voice == "" {
		c.TTS.Voice = "female"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Durations returns the parsed audio timings. Call after Validate.
func (a AudioConfig) Durations() (pause, calibration, timeout, phraseLimit time.Duration) {
	pause, _ = time.ParseDuration(a.PauseThreshold)
	calibration, _ = time.ParseDuration(a.Calibration)
	timeout, _ = time.ParseDuration(a.Timeout)
	phraseLimit, _ = time.ParseDuration(a.PhraseLimit)
	return pause, calibration, timeout, phraseLimit
}
