// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the chatting mode: transcript viewport, input
// line, the placeholder protocol, and per-tick result delivery.
package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/charla-tui/internal/cloud"
	"github.com/jeranaias/charla-tui/internal/dispatch"
	"github.com/jeranaias/charla-tui/internal/model"
	"github.com/jeranaias/charla-tui/internal/speech"
	"github.com/jeranaias/charla-tui/internal/ui/components"
	"github.com/jeranaias/charla-tui/internal/ui/styles"
	"github.com/jeranaias/charla-tui/internal/usage"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// pollInterval is how often the delivery channel is drained while a
	// request is outstanding.
	pollInterval = 80 * time.Millisecond

	// wheelScrollLines per mouse wheel notch.
	wheelScrollLines = 3

	// atBottomEpsilon: being within this many lines of the end still
	// counts as "at bottom" for auto-scroll purposes.
	atBottomEpsilon = 1

	// Greeting seeded into every fresh conversation.
	greeting = "Hi! I'm your assistant. Ask me anything."

	// placeholderText shown while a reply is being generated.
	placeholderText = "Thinking..."

	inputCharLimit = 4096

	// Fixed chrome heights used when sizing the viewport.
	headerHeight    = 2
	inputAreaHeight = 3
	statusBarHeight = 1
)

// Generator produces assistant replies. *cloud.Client satisfies it.
type Generator interface {
	Chat(ctx context.Context, messages []model.TranscriptMessage) (*cloud.ChatResponse, error)
	Model() string
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the chatting mode.
type Model struct {
	conv       *model.Conversation
	dispatcher *dispatch.Dispatcher
	generator  Generator
	sink       *speech.Sink
	ledger     *usage.Ledger // nil disables usage recording
	theme      *styles.Theme

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	markdown *components.MarkdownRenderer

	width  int
	height int
	ready  bool

	// pendingGenID tags the request whose delivery we are waiting for.
	// Deliveries carrying any other tag are stale and discarded.
	pendingGenID string

	// Layout cache: the rendered transcript is rebuilt only when the
	// conversation revision, width, or theme variant changes.
	cachedContent string
	cachedRev     uint64
	cachedWidth   int
	cachedVariant string
	cacheValid    bool
}

// New creates the chat model with a fresh greeted conversation.
func New(gen Generator, sink *speech.Sink, ledger *usage.Ledger, theme *styles.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "> "
	ti.CharLimit = inputCharLimit
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	m := Model{
		dispatcher: dispatch.New(),
		generator:  gen,
		sink:       sink,
		ledger:     ledger,
		theme:      theme,
		input:      ti,
		viewport:   viewport.New(80, 20),
		spinner:    sp,
		markdown:   components.NewMarkdownRenderer(),
	}
	m.conv = newGreetedConversation()
	return m
}

func newGreetedConversation() *model.Conversation {
	conv := model.NewConversation()
	conv.AddMessage(model.NewAssistantMessage(greeting))
	return conv
}

// Init satisfies tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Conversation exposes the live conversation to the root model.
func (m *Model) Conversation() *model.Conversation {
	return m.conv
}

// Busy reports whether a generation request is outstanding.
func (m *Model) Busy() bool {
	return m.pendingGenID != ""
}

// Reset abandons any outstanding request and installs a fresh greeted
// conversation. The caller archives the old one first if it qualifies.
func (m *Model) Reset() {
	m.abandonPending()
	m.conv = newGreetedConversation()
	m.invalidateCache()
	m.input.Reset()
	m.viewport.GotoTop()
}

// LoadConversation replaces the live conversation with a deep copy of the
// given one, abandoning any outstanding request.
func (m *Model) LoadConversation(conv *model.Conversation) {
	m.abandonPending()
	m.conv = conv.Clone()
	m.invalidateCache()
	m.input.Reset()
	m.refreshViewport()
	m.viewport.GotoBottom()
}

// AddSystemNote appends a system message to the transcript (used for
// voice and theme announcements). The scroll offset is kept unless the
// viewport was already at the bottom.
func (m *Model) AddSystemNote(text string) {
	wasAtBottom := m.atBottom()
	m.conv.AddMessage(model.NewSystemMessage(text))
	m.refreshViewport()
	if wasAtBottom {
		m.viewport.GotoBottom()
	}
}

// SetTheme swaps the theme (after a toggle or config reload).
func (m *Model) SetTheme(theme *styles.Theme) {
	m.theme = theme
	m.spinner.Style = theme.Spinner
	m.invalidateCache()
	m.refreshViewport()
}

func (m *Model) abandonPending() {
	if m.pendingGenID != "" {
		m.dispatcher.Abandon()
		m.pendingGenID = ""
	}
	// Drop a pending placeholder so a stale "Thinking..." line never
	// survives into the next view of the conversation.
	if m.conv != nil && m.conv.HasPendingPlaceholder() {
		m.conv.ResolvePlaceholder(placeholderAbandonedText)
	}
}

// placeholderAbandonedText replaces a placeholder whose request was
// abandoned before a result arrived.
const placeholderAbandonedText = "(no reply - request abandoned)"

// =============================================================================
// UPDATE
// =============================================================================

// Update handles chat-mode messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.viewport.LineUp(wheelScrollLines)
		case tea.MouseButtonWheelDown:
			m.viewport.LineDown(wheelScrollLines)
		}
		return m, nil

	case PollTickMsg:
		return m.handlePollTick()

	case spinner.TickMsg:
		if m.Busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m.submit()

	case "esc":
		return m, NewBackToMenuMsg()

	case "pgup":
		m.viewport.LineUp(m.viewport.Height)
		return m, nil
	case "pgdown":
		m.viewport.LineDown(m.viewport.Height)
		return m, nil
	case "home":
		m.viewport.GotoTop()
		return m, nil
	case "end":
		m.viewport.GotoBottom()
		return m, nil
	case "up":
		m.viewport.LineUp(1)
		return m, nil
	case "down":
		m.viewport.LineDown(1)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleResize(width, height int) {
	m.width = width
	m.height = height

	vpHeight := height - headerHeight - inputAreaHeight - statusBarHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	wasAtBottom := m.atBottom()

	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.input.Width = width - 6

	m.invalidateCache()
	m.refreshViewport()
	if wasAtBottom {
		m.viewport.GotoBottom()
	}
	m.ready = true
}

// atBottom reports whether the viewport is within the epsilon of the end.
func (m *Model) atBottom() bool {
	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	return m.viewport.YOffset >= maxOffset-atBottomEpsilon
}

func (m *Model) invalidateCache() {
	m.cacheValid = false
}
