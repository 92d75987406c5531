// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package speech vocalizes assistant replies without blocking the UI.
// Utterances run on background goroutines serialized by a mutex; a failed
// engine is rebuilt lazily before the next utterance.
package speech

import (
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Engine turns text into audio. Speak blocks until the utterance finishes.
type Engine interface {
	Speak(text string) error
	Close() error
}

// Factory builds a fresh engine, used at startup and after a failure.
type Factory func() (Engine, error)

// reinitDelay is how long the sink waits before rebuilding a failed engine.
const reinitDelay = time.Second

// Sink serializes speech output. Speak returns immediately; speakMu
// guarantees utterances never overlap. The enabled flag lives outside the
// mutex so the UI can read and toggle it while an utterance is playing.
type Sink struct {
	speakMu sync.Mutex // engine, broken; held for the length of an utterance
	engine  Engine
	broken  bool

	factory Factory
	enabled atomic.Bool
}

// NewSink creates a sink. A factory error leaves the sink disabled with a
// nil engine; Speak becomes a no-op until a reinit succeeds.
func NewSink(factory Factory, enabled bool) *Sink {
	s := &Sink{factory: factory}
	s.enabled.Store(enabled)
	engine, err := factory()
	if err != nil {
		s.broken = true
		return s
	}
	s.engine = engine
	return s
}

// Enabled reports whether the sink will vocalize. Never blocks, even while
// an utterance is in progress.
func (s *Sink) Enabled() bool {
	return s.enabled.Load()
}

// Toggle flips the enabled state and returns the new value.
func (s *Sink) Toggle() bool {
	for {
		old := s.enabled.Load()
		if s.enabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Speak vocalizes text on a background goroutine. It never blocks the
// caller. A disabled sink or empty text is a no-op. A failed utterance is
// dropped; the engine is rebuilt before the next one.
func (s *Sink) Speak(text string) {
	text = stripForSpeech(text)
	if text == "" {
		return
	}

	go func() {
		s.speakMu.Lock()
		defer s.speakMu.Unlock()

		if !s.enabled.Load() {
			return
		}
		if s.broken {
			// Lazy reinit: give the audio backend a moment, then
			// rebuild from the factory.
			time.Sleep(reinitDelay)
			engine, err := s.factory()
			if err != nil {
				return
			}
			s.engine = engine
			s.broken = false
		}
		if s.engine == nil {
			return
		}

		if err := s.engine.Speak(text); err != nil {
			s.engine.Close()
			s.engine = nil
			s.broken = true
		}
	}()
}

// Close releases the engine. Waits for an in-progress utterance.
func (s *Sink) Close() error {
	s.speakMu.Lock()
	defer s.speakMu.Unlock()
	if s.engine == nil {
		return nil
	}
	err := s.engine.Close()
	s.engine = nil
	return err
}

var (
	fenceRe  = regexp.MustCompile("(?s)```.*?```")
	inlineRe = regexp.MustCompile("`[^`]*`")
)

// stripForSpeech removes markdown that reads badly aloud.
func stripForSpeech(text string) string {
	text = fenceRe.ReplaceAllString(text, "")
	text = inlineRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "*", "")
	text = strings.ReplaceAll(text, "#", "")
	return strings.TrimSpace(text)
}
