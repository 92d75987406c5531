// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the charla TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application. Two palettes are
// built in; ToggleVariant switches between them at runtime.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Variant is "dark" or "light".
	Variant string

	// ==========================================================================
	// HEADER AND STATUS STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusDesc  lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	MessageBody    lipgloss.Style
	PendingText    lipgloss.Style
	ErrorText      lipgloss.Style
	Timestamp      lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputPrompt lipgloss.Style
	Spinner     lipgloss.Style

	// ==========================================================================
	// MENU AND HISTORY LIST STYLES
	// ==========================================================================

	MenuItem         lipgloss.Style
	MenuItemSelected lipgloss.Style
	MenuHint         lipgloss.Style
	ListTitle        lipgloss.Style
	ListMeta         lipgloss.Style
}

// palette holds the colors that differ between variants.
type palette struct {
	accent    lipgloss.Color
	secondary lipgloss.Color
	text      lipgloss.Color
	muted     lipgloss.Color
	errorC    lipgloss.Color
	surface   lipgloss.Color
}

var darkPalette = palette{
	accent:    lipgloss.Color("86"),  // cyan
	secondary: lipgloss.Color("212"), // pink
	text:      lipgloss.Color("252"),
	muted:     lipgloss.Color("241"),
	errorC:    lipgloss.Color("203"),
	surface:   lipgloss.Color("236"),
}

var lightPalette = palette{
	accent:    lipgloss.Color("31"), // teal
	secondary: lipgloss.Color("161"),
	text:      lipgloss.Color("235"),
	muted:     lipgloss.Color("245"),
	errorC:    lipgloss.Color("160"),
	surface:   lipgloss.Color("254"),
}

// NewTheme builds a theme for the requested variant ("dark" or "light").
func NewTheme(variant string) *Theme {
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}
	t.apply(variant)
	return t
}

// ToggleVariant switches between dark and light and returns the new name.
func (t *Theme) ToggleVariant() string {
	if t.Variant == "dark" {
		t.apply("light")
	} else {
		t.apply("dark")
	}
	return t.Variant
}

func (t *Theme) apply(variant string) {
	p := darkPalette
	if variant == "light" {
		p = lightPalette
	} else {
		variant = "dark"
	}
	t.Variant = variant

	t.Header = lipgloss.NewStyle().
		Foreground(p.accent).
		Bold(true).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(p.text).
		Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(p.muted).
		Background(p.surface).
		Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().
		Foreground(p.accent).
		Bold(true)
	t.StatusDesc = lipgloss.NewStyle().
		Foreground(p.muted)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(p.secondary).
		Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(p.accent).
		Bold(true)
	t.SystemLabel = lipgloss.NewStyle().
		Foreground(p.muted).
		Bold(true)
	t.MessageBody = lipgloss.NewStyle().
		Foreground(p.text)
	t.PendingText = lipgloss.NewStyle().
		Foreground(p.muted).
		Italic(true)
	t.ErrorText = lipgloss.NewStyle().
		Foreground(p.errorC)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(p.muted)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(p.accent).
		Bold(true)
	t.Spinner = lipgloss.NewStyle().
		Foreground(p.secondary)

	t.MenuItem = lipgloss.NewStyle().
		Foreground(p.text).
		Padding(0, 2)
	t.MenuItemSelected = lipgloss.NewStyle().
		Foreground(p.accent).
		Bold(true).
		Padding(0, 2)
	t.MenuHint = lipgloss.NewStyle().
		Foreground(p.muted).
		Padding(0, 2)
	t.ListTitle = lipgloss.NewStyle().
		Foreground(p.text).
		Bold(true)
	t.ListMeta = lipgloss.NewStyle().
		Foreground(p.muted)
}
