// Package tts speaks replies through a speech synthesizer installed on the host.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// VoiceFemale asks for the engine's female voice, when it has one.
const VoiceFemale = "female"

var knownCommands = []string{"espeak-ng", "espeak", "say"}

type Settings struct {
	Command string
	Rate    int
	Volume  float64
	Voice   string
}

type LocalSpeaker struct {
	path     string
	name     string
	settings Settings
	logger   *slog.Logger
}

// DetectCommand returns the first known synthesizer found on PATH.
func DetectCommand() string {
	for _, name := range knownCommands {
		if _, err := exec.LookPath(name); err == nil {
			return name
		}
	}
	return ""
}

func NewLocalSpeaker(settings Settings, logger *slog.Logger) (*LocalSpeaker, error) {
	command := settings.Command
	if command == "" {
		command = DetectCommand()
	}
	if command == "" {
		return nil, fmt.Errorf("no speech synthesizer found (tried %s)", strings.Join(knownCommands, ", "))
	}

	path, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("locating %s: %w", command, err)
	}

	return &LocalSpeaker{
		path:     path,
		name:     filepath.Base(command),
		settings: settings,
		logger:   logger,
	}, nil
}

func (s *LocalSpeaker) Name() string {
	return s.name
}

func (s *LocalSpeaker) Speak(ctx context.Context, text string) error {
	args := BuildArgs(s.name, s.settings, text)

	s.logger.Debug("speaking", "command", s.name, "chars", len(text))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.path, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("running %s: %w: %s", s.name, err, msg)
		}
		return fmt.Errorf("running %s: %w", s.name, err)
	}

	return nil
}

// BuildArgs maps rate, volume and voice onto the flags of the given synthesizer.
// Unknown commands receive the text as their only argument.
func BuildArgs(command string, settings Settings, text string) []string {
	var args []string

	switch command {
	case "espeak", "espeak-ng":
		if settings.Rate > 0 {
			args = append(args, "-s", strconv.Itoa(settings.Rate))
		}
		if settings.Volume > 0 {
			args = append(args, "-a", strconv.Itoa(int(settings.Volume*100)))
		}
		switch settings.Voice {
		case "":
		case VoiceFemale:
			args = append(args, "-v", "en+f3")
		default:
			args = append(args, "-v", settings.Voice)
		}
		args = append(args, "--", text)

	case "say":
		if settings.Rate > 0 {
			args = append(args, "-r", strconv.Itoa(settings.Rate))
		}
		switch settings.Voice {
		case "":
		case VoiceFemale:
			args = append(args, "-v", "Samantha")
		default:
			args = append(args, "-v", settings.Voice)
		}
		args = append(args, "--", text)

	default:
		args = append(args, text)
	}

	return args
}
