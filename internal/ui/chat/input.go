// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/charla-tui/internal/cloud"
	"github.com/jeranaias/charla-tui/internal/dispatch"
	"github.com/jeranaias/charla-tui/internal/model"
	"github.com/jeranaias/charla-tui/internal/usage"
)

// =============================================================================
// SUBMIT
// =============================================================================

// submit sends the typed message: append user message, append the
// placeholder, start the generation request, snap to bottom.
func (m Model) submit() (Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	// One request at a time; typing is allowed but submit waits.
	if m.Busy() {
		return m, nil
	}

	m.conv.AddMessage(model.NewUserMessage(text))
	if _, err := m.conv.AddPlaceholder(); err != nil {
		// Unreachable while Busy() gates submission; restore the input
		// so nothing is lost.
		return m, nil
	}
	m.input.Reset()

	transcript := m.conv.Transcript()
	gen := m.generator
	genID, err := m.dispatcher.Begin(context.Background(), m.conv.ID,
		func(ctx context.Context) (string, cloud.Usage, error) {
			resp, err := gen.Chat(ctx, transcript)
			if err != nil {
				return "", cloud.Usage{}, err
			}
			return resp.GetContent(), resp.Usage, nil
		})
	if err != nil {
		m.conv.ResolvePlaceholder(cloud.UserMessage(cloud.Classify(err)))
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil
	}
	m.pendingGenID = genID

	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, tea.Batch(m.spinner.Tick, pollTick())
}

// pollTick schedules the next delivery poll.
func pollTick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return PollTickMsg{}
	})
}

// =============================================================================
// DELIVERY
// =============================================================================

// handlePollTick drains at most one delivery. Stale deliveries (tag
// mismatch after a reset or history load) are discarded without touching
// the conversation.
func (m Model) handlePollTick() (Model, tea.Cmd) {
	if !m.Busy() {
		return m, nil
	}

	res, ok := m.dispatcher.Poll()
	if !ok {
		return m, pollTick()
	}
	if res.GenerationID != m.pendingGenID {
		// Stale result from an abandoned request.
		return m, pollTick()
	}

	m.pendingGenID = ""
	wasAtBottom := m.atBottom()

	if res.Err != nil {
		m.conv.ResolvePlaceholder(cloud.UserMessage(res.Category))
	} else {
		m.conv.ResolvePlaceholder(res.Content)
		m.sink.Speak(res.Content)
		m.recordUsage(res)
	}

	m.refreshViewport()
	if wasAtBottom {
		m.viewport.GotoBottom()
	}
	return m, nil
}

func (m *Model) recordUsage(res dispatch.Result) {
	if m.ledger == nil || res.Usage.TotalTokens == 0 {
		return
	}
	// Ledger writes are best-effort; a failure never disturbs the chat.
	m.ledger.Record(usage.Entry{
		GenerationID:     res.GenerationID,
		ConversationID:   res.ConversationID,
		Model:            m.generator.Model(),
		PromptTokens:     res.Usage.PromptTokens,
		CompletionTokens: res.Usage.CompletionTokens,
		TotalTokens:      res.Usage.TotalTokens,
	})
}
