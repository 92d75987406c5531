// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// CHAT MESSAGES
// =============================================================================

// PollTickMsg drives the delivery poll while a request is outstanding.
type PollTickMsg struct{}

// BackToMenuMsg asks the root model to leave the chat view.
type BackToMenuMsg struct{}

// NewBackToMenuMsg wraps BackToMenuMsg as a command.
func NewBackToMenuMsg() tea.Cmd {
	return func() tea.Msg { return BackToMenuMsg{} }
}
