// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"errors"
	"os/exec"
	"runtime"
)

// ErrNoTTSCommand indicates no text-to-speech binary was found.
var ErrNoTTSCommand = errors.New("no text-to-speech command available")

// CommandEngine shells out to a system TTS binary for each utterance.
type CommandEngine struct {
	command string
	args    []string
}

// NewCommandEngine builds an engine around the configured command, or
// auto-detects a platform default when command is empty.
func NewCommandEngine(command string) (Engine, error) {
	if command != "" {
		if _, err := exec.LookPath(command); err != nil {
			return nil, ErrNoTTSCommand
		}
		return &CommandEngine{command: command}, nil
	}

	candidates := []string{"espeak-ng", "espeak"}
	if runtime.GOOS == "darwin" {
		candidates = []string{"say"}
	}
	for _, c := range candidates {
		if _, err := exec.LookPath(c); err == nil {
			return &CommandEngine{command: c}, nil
		}
	}
	return nil, ErrNoTTSCommand
}

// Speak runs the command and waits for it to finish.
func (e *CommandEngine) Speak(text string) error {
	args := append(append([]string{}, e.args...), text)
	return exec.Command(e.command, args...).Run()
}

// Close is a no-op; each utterance is its own process.
func (e *CommandEngine) Close() error { return nil }
