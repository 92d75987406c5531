// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/charla-tui/internal/cloud"
	"github.com/jeranaias/charla-tui/internal/config"
	"github.com/jeranaias/charla-tui/internal/model"
	"github.com/jeranaias/charla-tui/internal/speech"
	"github.com/jeranaias/charla-tui/internal/storage"
	"github.com/jeranaias/charla-tui/internal/ui/chat"
	"github.com/jeranaias/charla-tui/internal/ui/menu"
	"github.com/jeranaias/charla-tui/internal/ui/styles"
)

// echoGenerator replies with a fixed string.
type echoGenerator struct{ reply string }

func (g *echoGenerator) Chat(ctx context.Context, msgs []model.TranscriptMessage) (*cloud.ChatResponse, error) {
	raw, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": g.reply}},
		},
	})
	if err != nil {
		return nil, err
	}
	var resp cloud.ChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (g *echoGenerator) Model() string { return "echo" }

type silentEngine struct{}

func (silentEngine) Speak(string) error { return nil }
func (silentEngine) Close() error       { return nil }

func newTestApp(t *testing.T) *App {
	t.Helper()
	theme := styles.NewTheme("dark")
	sink := speech.NewSink(func() (speech.Engine, error) { return silentEngine{}, nil }, false)
	archive := storage.NewArchive(filepath.Join(t.TempDir(), "history.json"))

	a := &App{
		cfg:     config.Default(),
		theme:   theme,
		archive: archive,
		sink:    sink,
		menu:    menu.New(theme, false),
		chat:    chat.New(&echoGenerator{reply: "echo reply"}, sink, nil, theme),
	}
	a.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return a
}

// askAndWait submits text through the chat mode and waits for the reply.
func askAndWait(t *testing.T, a *App, text string) {
	t.Helper()
	a.state = StateChat
	for _, r := range text {
		a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	a.Update(tea.KeyMsg{Type: tea.KeyEnter})

	deadline := time.Now().Add(2 * time.Second)
	for a.chat.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("reply never arrived")
		}
		a.Update(chat.PollTickMsg{})
		time.Sleep(time.Millisecond)
	}
}

func TestGreetingOnlyConversationNeverArchived(t *testing.T) {
	a := newTestApp(t)

	// Fresh conversation holds only the greeting; starting a new chat
	// must not archive it.
	a.startNewChat()

	convs, err := a.archive.Load()
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestNewChatArchivesConversationWithReplies(t *testing.T) {
	a := newTestApp(t)
	askAndWait(t, a, "hello")

	oldID := a.chat.Conversation().ID
	a.startNewChat()

	convs, err := a.archive.Load()
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, oldID, convs[0].ID)
	// greeting + user + reply
	assert.Len(t, convs[0].Messages, 3)

	// The live conversation is fresh again.
	assert.NotEqual(t, oldID, a.chat.Conversation().ID)
	assert.Equal(t, 1, a.chat.Conversation().Len())
}

func TestQuitArchivesConversation(t *testing.T) {
	a := newTestApp(t)
	askAndWait(t, a, "remember me")

	_, cmd := a.quit()
	require.NotNil(t, cmd)

	convs, err := a.archive.Load()
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestHistoryRoundTripThroughMenu(t *testing.T) {
	a := newTestApp(t)
	askAndWait(t, a, "first conversation")
	a.startNewChat()

	// Open history from the menu.
	a.state = StateMenu
	a.Update(menu.SelectMsg{Action: menu.ActionHistory})
	require.True(t, a.menu.ShowingHistory())

	// Choose the archived conversation.
	convs, err := a.archive.Load()
	require.NoError(t, err)
	require.Len(t, convs, 1)
	a.Update(menu.HistoryChosenMsg{Conversation: convs[0].ToConversation()})

	assert.Equal(t, StateChat, a.state)
	loaded := a.chat.Conversation()
	assert.Equal(t, 3, loaded.Len())
	assert.Equal(t, "echo reply", loaded.LastMessage().Content)
}

func TestArchiveKeepsOnlyLastThree(t *testing.T) {
	a := newTestApp(t)
	for i := 0; i < 5; i++ {
		askAndWait(t, a, "conversation")
		a.startNewChat()
	}

	convs, err := a.archive.Load()
	require.NoError(t, err)
	assert.Len(t, convs, 3)
}

func TestVoiceToggleInChatPostsSystemMessage(t *testing.T) {
	a := newTestApp(t)
	a.state = StateChat
	before := a.chat.Conversation().Len()

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlV})

	conv := a.chat.Conversation()
	require.Equal(t, before+1, conv.Len())
	assert.Equal(t, model.RoleSystem, conv.LastMessage().Role)
	assert.Equal(t, "Voice on.", conv.LastMessage().Content)
	assert.True(t, a.sink.Enabled())

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlV})
	assert.Equal(t, "Voice off.", conv.LastMessage().Content)
}

func TestThemeToggleFromMenu(t *testing.T) {
	a := newTestApp(t)
	a.Update(menu.SelectMsg{Action: menu.ActionToggleTheme})
	assert.Equal(t, "light", a.theme.Variant)
	a.Update(menu.SelectMsg{Action: menu.ActionToggleTheme})
	assert.Equal(t, "dark", a.theme.Variant)
}

func TestEscReturnsToMenuKeepingConversation(t *testing.T) {
	a := newTestApp(t)
	askAndWait(t, a, "still here")
	convID := a.chat.Conversation().ID

	a.Update(chat.BackToMenuMsg{})
	assert.Equal(t, StateMenu, a.state)

	// Re-entering chat continues the same conversation.
	a.Update(menu.SelectMsg{Action: menu.ActionNewChat})
	assert.Equal(t, StateChat, a.state)
	assert.Equal(t, convID, a.chat.Conversation().ID)
}
