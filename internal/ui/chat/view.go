// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/charla-tui/internal/model"
	"github.com/jeranaias/charla-tui/internal/ui/components"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the chat mode: header, transcript viewport, input area,
// status bar.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.renderHeader()
	input := m.renderInput()
	status := m.renderStatusBar()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		m.viewport.View(),
		input,
		status,
	)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("charla")
	sub := m.theme.StatusDesc.Render(" - " + m.conv.Title)
	return m.theme.Header.Render(title+sub) + "\n"
}

func (m Model) renderInput() string {
	sep := m.theme.StatusDesc.Render(strings.Repeat("-", max(m.width, 1)))
	line := m.input.View()
	if m.Busy() {
		line = m.spinner.View() + " " + m.theme.PendingText.Render("waiting for reply...")
	}
	count := m.theme.StatusDesc.Render(
		fmt.Sprintf("%d/%d", len([]rune(m.input.Value())), inputCharLimit))
	return sep + "\n" + line + "\n" + count
}

func (m Model) renderStatusBar() string {
	voice := "voice off"
	if m.sink != nil && m.sink.Enabled() {
		voice = "voice on"
	}
	parts := []string{
		m.theme.StatusKey.Render("enter") + m.theme.StatusDesc.Render(" send"),
		m.theme.StatusKey.Render("esc") + m.theme.StatusDesc.Render(" menu"),
		m.theme.StatusDesc.Render(voice),
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// refreshViewport rebuilds the transcript when the layout cache is stale
// and pushes it into the viewport.
func (m *Model) refreshViewport() {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}

	if m.cacheValid &&
		m.cachedRev == m.conv.Revision() &&
		m.cachedWidth == width &&
		m.cachedVariant == m.theme.Variant {
		return
	}

	var sb strings.Builder
	for i, msg := range m.conv.Messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.renderMessage(msg, width))
		sb.WriteString("\n")
	}

	m.cachedContent = sb.String()
	m.cachedRev = m.conv.Revision()
	m.cachedWidth = width
	m.cachedVariant = m.theme.Variant
	m.cacheValid = true

	m.viewport.SetContent(m.cachedContent)
}

func (m *Model) renderMessage(msg *model.Message, width int) string {
	ts := m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

	var label string
	switch msg.Role {
	case model.RoleUser:
		label = m.theme.UserLabel.Render(msg.Role.DisplayName())
	case model.RoleSystem:
		label = m.theme.SystemLabel.Render(msg.Role.DisplayName())
	default:
		label = m.theme.AssistantLabel.Render(msg.Role.DisplayName())
	}

	var body string
	switch {
	case msg.Pending:
		body = m.theme.PendingText.Render(placeholderText)
	case msg.Role == model.RoleAssistant:
		body = m.markdown.Render(msg.Content, m.theme.Variant, width-2)
	case msg.Role == model.RoleUser && strings.Contains(msg.Content, "```"):
		// Pasted code in user messages gets fence highlighting without
		// the full markdown pass.
		body = components.HighlightFences(msg.Content, width-2)
	default:
		body = m.theme.MessageBody.Render(msg.Content)
	}

	return label + " " + ts + "\n" + body
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
