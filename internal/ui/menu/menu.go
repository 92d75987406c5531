// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package menu implements the start menu and the archived-conversation
// overlay.
package menu

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/charla-tui/internal/model"
	"github.com/jeranaias/charla-tui/internal/storage"
	"github.com/jeranaias/charla-tui/internal/ui/styles"
	"github.com/jeranaias/charla-tui/internal/util"
)

// =============================================================================
// ACTIONS AND MESSAGES
// =============================================================================

// Action identifies a menu entry.
type Action int

const (
	ActionNewChat Action = iota
	ActionHistory
	ActionToggleVoice
	ActionToggleTheme
	ActionQuit
)

// SelectMsg reports a chosen menu entry.
type SelectMsg struct{ Action Action }

// HistoryChosenMsg reports a picked archived conversation.
type HistoryChosenMsg struct{ Conversation *model.Conversation }

func selectCmd(a Action) tea.Cmd {
	return func() tea.Msg { return SelectMsg{Action: a} }
}

// =============================================================================
// MODEL
// =============================================================================

type entry struct {
	action Action
	label  func(m *Model) string
}

// Model is the menu mode. When showingHistory is set the archived
// conversation list overlays the menu.
type Model struct {
	theme *styles.Theme

	entries []entry
	cursor  int

	showingHistory bool
	history        []storage.StoredConversation
	historyCursor  int

	voiceOn bool
	status  string

	width  int
	height int
}

// New creates the menu.
func New(theme *styles.Theme, voiceOn bool) Model {
	m := Model{theme: theme, voiceOn: voiceOn}
	m.entries = []entry{
		{ActionNewChat, func(*Model) string { return "New chat" }},
		{ActionHistory, func(*Model) string { return "History" }},
		{ActionToggleVoice, func(m *Model) string {
			if m.voiceOn {
				return "Voice: on"
			}
			return "Voice: off"
		}},
		{ActionToggleTheme, func(m *Model) string {
			return "Theme: " + m.theme.Variant
		}},
		{ActionQuit, func(*Model) string { return "Quit" }},
	}
	return m
}

// SetVoice updates the voice label state.
func (m *Model) SetVoice(on bool) { m.voiceOn = on }

// SetTheme swaps the theme.
func (m *Model) SetTheme(theme *styles.Theme) { m.theme = theme }

// SetStatus shows a transient status line under the menu.
func (m *Model) SetStatus(text string) { m.status = text }

// ShowHistory opens the history overlay over the menu.
func (m *Model) ShowHistory(convs []storage.StoredConversation) {
	m.showingHistory = true
	m.history = convs
	// Newest first in the list.
	m.historyCursor = 0
}

// ShowingHistory reports whether the overlay is up.
func (m *Model) ShowingHistory() bool { return m.showingHistory }

// =============================================================================
// UPDATE
// =============================================================================

// Update handles menu-mode messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.showingHistory {
			return m.handleHistoryKey(msg)
		}
		return m.handleMenuKey(msg)
	}
	return m, nil
}

func (m Model) handleMenuKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter":
		m.status = ""
		return m, selectCmd(m.entries[m.cursor].action)
	case "q", "ctrl+c":
		return m, selectCmd(ActionQuit)
	}
	return m, nil
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.showingHistory = false
	case "up", "k":
		if m.historyCursor > 0 {
			m.historyCursor--
		}
	case "down", "j":
		if m.historyCursor < len(m.history)-1 {
			m.historyCursor++
		}
	case "enter":
		if len(m.history) == 0 {
			m.showingHistory = false
			break
		}
		// The list shows newest first; index back into the stored order.
		chosen := m.history[len(m.history)-1-m.historyCursor]
		conv := chosen.ToConversation()
		m.showingHistory = false
		return m, func() tea.Msg { return HistoryChosenMsg{Conversation: conv} }
	}
	return m, nil
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the menu or the history overlay.
func (m Model) View() string {
	if m.showingHistory {
		return m.renderHistory()
	}
	return m.renderMenu()
}

func (m Model) renderMenu() string {
	var sb strings.Builder
	sb.WriteString(m.theme.Header.Render("charla") + "\n\n")

	for i, e := range m.entries {
		label := e.label(&m)
		if i == m.cursor {
			sb.WriteString(m.theme.MenuItemSelected.Render("> " + label))
		} else {
			sb.WriteString(m.theme.MenuItem.Render("  " + label))
		}
		sb.WriteString("\n")
	}

	if m.status != "" {
		sb.WriteString("\n" + m.theme.MenuHint.Render(m.status))
	}
	sb.WriteString("\n" + m.theme.MenuHint.Render("up/down move - enter select - q quit"))

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
	}
	return sb.String()
}

func (m Model) renderHistory() string {
	var sb strings.Builder
	sb.WriteString(m.theme.Header.Render("History") + "\n\n")

	if len(m.history) == 0 {
		sb.WriteString(m.theme.MenuHint.Render("No archived conversations yet."))
	}

	width := m.width - 8
	if width < 30 {
		width = 30
	}

	for i := 0; i < len(m.history); i++ {
		// Newest first.
		sc := m.history[len(m.history)-1-i]
		title := util.TruncateWidth(sc.Title, width/2)
		meta := fmt.Sprintf("%d messages - %s", len(sc.Messages), relativeAge(sc.UpdatedAt))
		preview := sc.Preview(width)

		line := m.theme.ListTitle.Render(title) + "  " + m.theme.ListMeta.Render(meta)
		if i == m.historyCursor {
			sb.WriteString(m.theme.MenuItemSelected.Render("> ") + line)
		} else {
			sb.WriteString("  " + line)
		}
		sb.WriteString("\n    " + m.theme.ListMeta.Render(preview) + "\n")
	}

	sb.WriteString("\n" + m.theme.MenuHint.Render("enter open - esc back"))

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
	}
	return sb.String()
}

func relativeAge(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
