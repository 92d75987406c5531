// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the in-session chat data structures: messages,
// conversations, and the placeholder protocol used while a response is
// being generated.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/jeranaias/charla-tui/internal/util"
)

// =============================================================================
// ROLES
// =============================================================================

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// DisplayName returns the label shown in the transcript.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE
// =============================================================================

// Message is a single chat message. Pending marks the assistant placeholder
// that is shown while a generation request is in flight; its content is
// replaced in place when the result arrives.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Pending   bool      `json:"-"`
}

// NewMessage creates a message with a generated ID and current timestamp.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID("msg_"),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func NewUserMessage(content string) *Message      { return NewMessage(RoleUser, content) }
func NewAssistantMessage(content string) *Message { return NewMessage(RoleAssistant, content) }
func NewSystemMessage(content string) *Message    { return NewMessage(RoleSystem, content) }

// Preview returns a single-line rune-safe preview of the content.
func (m *Message) Preview(maxLen int) string {
	return util.TruncateRunes(util.FirstLine(m.Content), maxLen)
}

// generateID returns prefix + 16 hex chars of random data.
func generateID(prefix string) string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fall back to a timestamp; uniqueness is best-effort here.
		return prefix + hex.EncodeToString([]byte(time.Now().Format("150405.000")))[:16]
	}
	return prefix + hex.EncodeToString(b)
}
