// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package menu

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/charla-tui/internal/model"
	"github.com/jeranaias/charla-tui/internal/storage"
	"github.com/jeranaias/charla-tui/internal/ui/styles"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return cmd()
}

func TestMenuSelection(t *testing.T) {
	m := New(styles.NewTheme("dark"), true)

	// First entry is New chat.
	_, cmd := m.Update(key("enter"))
	msg := runCmd(t, cmd)
	sel, ok := msg.(SelectMsg)
	if !ok || sel.Action != ActionNewChat {
		t.Fatalf("msg = %#v, want SelectMsg{ActionNewChat}", msg)
	}

	// Move down to History.
	m, _ = m.Update(key("down"))
	_, cmd = m.Update(key("enter"))
	msg = runCmd(t, cmd)
	if sel := msg.(SelectMsg); sel.Action != ActionHistory {
		t.Fatalf("action = %v, want ActionHistory", sel.Action)
	}
}

func TestMenuCursorClamps(t *testing.T) {
	m := New(styles.NewTheme("dark"), false)
	for i := 0; i < 20; i++ {
		m, _ = m.Update(key("down"))
	}
	_, cmd := m.Update(key("enter"))
	if sel := runCmd(t, cmd).(SelectMsg); sel.Action != ActionQuit {
		t.Fatalf("action at bottom = %v, want ActionQuit", sel.Action)
	}

	for i := 0; i < 20; i++ {
		m, _ = m.Update(key("up"))
	}
	_, cmd = m.Update(key("enter"))
	if sel := runCmd(t, cmd).(SelectMsg); sel.Action != ActionNewChat {
		t.Fatalf("action at top = %v, want ActionNewChat", sel.Action)
	}
}

func TestQuitKey(t *testing.T) {
	m := New(styles.NewTheme("dark"), false)
	_, cmd := m.Update(key("q"))
	if sel := runCmd(t, cmd).(SelectMsg); sel.Action != ActionQuit {
		t.Fatalf("q key = %v, want ActionQuit", sel.Action)
	}
}

func storedConv(title, lastMsg string, age time.Duration) storage.StoredConversation {
	conv := model.NewConversation()
	conv.AddMessage(model.NewUserMessage(title))
	conv.AddMessage(model.NewAssistantMessage(lastMsg))
	// Round-trip through the archive stored form.
	a := storage.StoredConversation{
		ID:        conv.ID,
		Title:     title,
		UpdatedAt: time.Now().Add(-age),
		Messages: []storage.StoredMessage{
			{Sender: "user", Content: title},
			{Sender: "assistant", Content: lastMsg},
		},
	}
	return a
}

func TestHistoryOverlaySelection(t *testing.T) {
	m := New(styles.NewTheme("dark"), false)
	m.ShowHistory([]storage.StoredConversation{
		storedConv("oldest", "a1", 3*time.Hour),
		storedConv("middle", "a2", 2*time.Hour),
		storedConv("newest", "a3", time.Hour),
	})
	if !m.ShowingHistory() {
		t.Fatal("overlay not showing")
	}

	// Cursor starts on the newest entry.
	m2, cmd := m.Update(key("enter"))
	msg := runCmd(t, cmd)
	chosen, ok := msg.(HistoryChosenMsg)
	if !ok {
		t.Fatalf("msg = %#v, want HistoryChosenMsg", msg)
	}
	if chosen.Conversation.Title != "newest" {
		t.Errorf("chosen = %q, want newest", chosen.Conversation.Title)
	}
	if m2.ShowingHistory() {
		t.Error("overlay still showing after selection")
	}

	// Second item down is the middle conversation.
	m.showingHistory = true
	m, _ = m.Update(key("down"))
	_, cmd = m.Update(key("enter"))
	chosen = runCmd(t, cmd).(HistoryChosenMsg)
	if chosen.Conversation.Title != "middle" {
		t.Errorf("chosen = %q, want middle", chosen.Conversation.Title)
	}
}

func TestHistoryOverlayEscReturns(t *testing.T) {
	m := New(styles.NewTheme("dark"), false)
	m.ShowHistory(nil)
	m, _ = m.Update(key("esc"))
	if m.ShowingHistory() {
		t.Error("overlay still showing after esc")
	}
}

func TestHistoryChosenIsIndependentCopy(t *testing.T) {
	stored := storedConv("title", "answer", time.Hour)
	m := New(styles.NewTheme("dark"), false)
	m.ShowHistory([]storage.StoredConversation{stored})

	_, cmd := m.Update(key("enter"))
	chosen := runCmd(t, cmd).(HistoryChosenMsg)
	chosen.Conversation.Messages[0].Content = "mutated"

	if stored.Messages[0].Content != "title" {
		t.Error("mutation of chosen conversation leaked into stored history")
	}
}
