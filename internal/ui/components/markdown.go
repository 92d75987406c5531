// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable rendering pieces for the charla TUI.
package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders assistant replies as terminal markdown.
// Renderers are cached per (style, width) because building one is costly.
type MarkdownRenderer struct {
	mu    sync.Mutex
	cache map[mdKey]*glamour.TermRenderer
}

type mdKey struct {
	style string
	width int
}

// NewMarkdownRenderer creates an empty renderer cache.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{cache: make(map[mdKey]*glamour.TermRenderer)}
}

// Render converts markdown to styled terminal text. style is "dark" or
// "light". On any failure the raw text is returned unstyled.
func (m *MarkdownRenderer) Render(text, style string, width int) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	if width < 10 {
		width = 10
	}

	r, err := m.renderer(style, width)
	if err != nil {
		return text
	}

	out, err := r.Render(text)
	if err != nil {
		return text
	}
	// Glamour pads with blank lines top and bottom.
	return strings.Trim(out, "\n")
}

func (m *MarkdownRenderer) renderer(style string, width int) (*glamour.TermRenderer, error) {
	key := mdKey{style: style, width: width}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.cache[key]; ok {
		return r, nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, err
	}
	m.cache[key] = r
	return r, nil
}
