// charla TUI - a terminal chat client with spoken replies.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/charla-tui/internal/cloud"
	"github.com/jeranaias/charla-tui/internal/config"
	"github.com/jeranaias/charla-tui/internal/speech"
	"github.com/jeranaias/charla-tui/internal/storage"
	"github.com/jeranaias/charla-tui/internal/ui/chat"
	"github.com/jeranaias/charla-tui/internal/ui/menu"
	"github.com/jeranaias/charla-tui/internal/ui/styles"
	"github.com/jeranaias/charla-tui/internal/usage"
)

// =============================================================================
// APP STATE
// =============================================================================

// State tracks which mode is active.
type State int

const (
	StateMenu State = iota
	StateChat
)

// ConfigReloadedMsg carries a freshly loaded config from the file watcher.
type ConfigReloadedMsg struct{ Config *config.Config }

// App is the root model: it owns the menu and chat modes and all the
// long-lived services behind them.
type App struct {
	state State
	cfg   *config.Config
	theme *styles.Theme

	menu menu.Model
	chat chat.Model

	archive *storage.Archive
	sink    *speech.Sink
	ledger  *usage.Ledger
	watcher *config.Watcher

	// cfgPath is where theme changes are persisted; empty disables.
	cfgPath string

	width  int
	height int
}

func newApp(cfg *config.Config) (*App, error) {
	theme := styles.NewTheme(cfg.UI.Theme)

	historyPath, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	archive := storage.NewArchive(historyPath)
	archive.Limit = cfg.History.Limit

	sink := speech.NewSink(func() (speech.Engine, error) {
		return speech.NewCommandEngine(cfg.Voice.Command)
	}, cfg.Voice.Enabled)

	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		return nil, fmt.Errorf("resolve api key: %w", err)
	}
	client := cloud.NewClient(cloud.Options{
		BaseURL:           cfg.Backend.BaseURL,
		APIKey:            apiKey,
		Model:             cfg.Backend.Model,
		SystemPrompt:      cfg.Backend.SystemPrompt,
		Temperature:       cfg.Backend.Temperature,
		MaxTokens:         cfg.Backend.MaxTokens,
		RequestsPerMinute: cfg.Backend.RequestsPerMinute,
	})

	// Usage recording is best-effort: a failed open disables it.
	var ledger *usage.Ledger
	if path, err := cfg.UsagePath(); err == nil {
		if l, err := usage.Open(path); err == nil {
			ledger = l
		}
	}

	app := &App{
		cfg:     cfg,
		theme:   theme,
		archive: archive,
		sink:    sink,
		ledger:  ledger,
		menu:    menu.New(theme, sink.Enabled()),
		chat:    chat.New(client, sink, ledger, theme),
	}

	// Live-reload config changes; failure to watch is not fatal.
	if path, err := config.DefaultPath(); err == nil {
		app.cfgPath = path
		if w, err := config.NewWatcher(path, 250*time.Millisecond); err == nil {
			app.watcher = w
		}
	}
	return app, nil
}

// Init satisfies tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.chat.Init()}
	if a.watcher != nil {
		cmds = append(cmds, waitForConfig(a.watcher))
	}
	return tea.Batch(cmds...)
}

// waitForConfig blocks on the watcher's update channel.
func waitForConfig(w *config.Watcher) tea.Cmd {
	return func() tea.Msg {
		cfg, ok := <-w.Updates
		if !ok {
			return nil
		}
		return ConfigReloadedMsg{Config: cfg}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update routes messages to the active mode.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		var cmds []tea.Cmd
		var cmd tea.Cmd
		a.menu, cmd = a.menu.Update(msg)
		cmds = append(cmds, cmd)
		a.chat, cmd = a.chat.Update(msg)
		cmds = append(cmds, cmd)
		return a, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a.quit()
		case "ctrl+n":
			if a.state == StateChat {
				a.startNewChat()
				return a, nil
			}
		case "ctrl+v":
			if a.state == StateChat {
				a.toggleVoiceInChat()
				return a, nil
			}
		}

	case menu.SelectMsg:
		return a.handleMenuSelect(msg)

	case menu.HistoryChosenMsg:
		a.archiveCurrent()
		a.chat.LoadConversation(msg.Conversation)
		a.state = StateChat
		return a, a.chat.Init()

	case chat.BackToMenuMsg:
		a.state = StateMenu
		return a, nil

	case ConfigReloadedMsg:
		a.applyConfig(msg.Config)
		return a, waitForConfig(a.watcher)
	}

	var cmd tea.Cmd
	switch a.state {
	case StateMenu:
		a.menu, cmd = a.menu.Update(msg)
	case StateChat:
		a.chat, cmd = a.chat.Update(msg)
	}
	return a, cmd
}

func (a *App) handleMenuSelect(msg menu.SelectMsg) (tea.Model, tea.Cmd) {
	switch msg.Action {
	case menu.ActionNewChat:
		// Continue the live conversation if one is open; a fresh one is
		// started explicitly with ctrl+n from inside the chat.
		a.state = StateChat
		return a, a.chat.Init()

	case menu.ActionHistory:
		convs, err := a.archive.Load()
		if err != nil {
			a.menu.SetStatus("History could not be read; starting fresh.")
		}
		a.menu.ShowHistory(convs)
		return a, nil

	case menu.ActionToggleVoice:
		on := a.sink.Toggle()
		a.menu.SetVoice(on)
		if on {
			a.menu.SetStatus("Voice enabled.")
		} else {
			a.menu.SetStatus("Voice disabled.")
		}
		return a, nil

	case menu.ActionToggleTheme:
		a.toggleTheme()
		return a, nil

	case menu.ActionQuit:
		return a.quit()
	}
	return a, nil
}

// startNewChat archives the live conversation when it has more than just
// the greeting, then resets to a fresh one.
func (a *App) startNewChat() {
	a.archiveCurrent()
	a.chat.Reset()
}

// archiveCurrent persists the live conversation if it holds more than one
// message. A greeting-only conversation is discarded silently.
func (a *App) archiveCurrent() {
	conv := a.chat.Conversation()
	if conv == nil || conv.Len() <= 1 {
		return
	}
	if err := a.archive.Append(conv); err != nil {
		a.menu.SetStatus("Could not save the conversation to history.")
	}
}

func (a *App) toggleVoiceInChat() {
	if a.sink.Toggle() {
		a.chat.AddSystemNote("Voice on.")
	} else {
		a.chat.AddSystemNote("Voice off.")
	}
	a.menu.SetVoice(a.sink.Enabled())
}

func (a *App) toggleTheme() {
	variant := a.theme.ToggleVariant()
	a.menu.SetTheme(a.theme)
	a.chat.SetTheme(a.theme)
	a.menu.SetStatus("Theme: " + variant)

	// Persist the choice; best-effort.
	a.cfg.UI.Theme = variant
	if a.cfgPath != "" {
		a.cfg.Save(a.cfgPath)
	}
}

func (a *App) applyConfig(cfg *config.Config) {
	a.cfg = cfg
	if cfg.UI.Theme != a.theme.Variant {
		a.theme.ToggleVariant()
		a.menu.SetTheme(a.theme)
		a.chat.SetTheme(a.theme)
	}
	if cfg.Voice.Enabled != a.sink.Enabled() {
		a.sink.Toggle()
		a.menu.SetVoice(a.sink.Enabled())
	}
}

// quit archives the live conversation and shuts down cleanly.
func (a *App) quit() (tea.Model, tea.Cmd) {
	a.archiveCurrent()
	if a.ledger != nil {
		a.ledger.Close()
	}
	if a.watcher != nil {
		a.watcher.Close()
	}
	a.sink.Close()
	return a, tea.Quit
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the active mode.
func (a *App) View() string {
	switch a.state {
	case StateChat:
		return a.chat.View()
	default:
		return a.menu.View()
	}
}

// =============================================================================
// ENTRY POINT
// =============================================================================

func main() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "charla needs an interactive terminal")
		os.Exit(1)
	}

	path, err := config.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
