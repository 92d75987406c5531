// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"time"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoPlaceholder indicates a resolve was attempted when the last
	// message is not a pending placeholder.
	ErrNoPlaceholder = errors.New("last message is not a pending placeholder")

	// ErrPlaceholderPending indicates a second placeholder was requested
	// while one is already awaiting a result.
	ErrPlaceholderPending = errors.New("a placeholder is already pending")
)

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is an append-only ordered list of messages. Messages are
// never removed; the only in-place mutation allowed is resolving the
// trailing placeholder.
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Messages  []*Message `json:"messages"`

	// revision increments on every mutation so views can invalidate
	// cached layouts cheaply.
	revision uint64
}

// NewConversation creates an empty conversation with a generated ID.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        generateID("conv_"),
		Title:     "New Conversation",
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0, 16),
	}
}

// AddMessage appends a message, refreshes UpdatedAt, and derives the title
// from the first user message.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.revision++
	c.updateTitle()
}

// AddPlaceholder appends a pending assistant message and returns it.
// Only one placeholder may be pending at a time.
func (c *Conversation) AddPlaceholder() (*Message, error) {
	if last := c.LastMessage(); last != nil && last.Pending {
		return nil, ErrPlaceholderPending
	}
	msg := NewAssistantMessage("")
	msg.Pending = true
	c.AddMessage(msg)
	return msg, nil
}

// ResolvePlaceholder replaces the trailing placeholder's content in place
// and clears its pending flag. The message keeps its position and ID.
func (c *Conversation) ResolvePlaceholder(content string) error {
	last := c.LastMessage()
	if last == nil || !last.Pending {
		return ErrNoPlaceholder
	}
	last.Content = content
	last.Pending = false
	last.Timestamp = time.Now()
	c.UpdatedAt = last.Timestamp
	c.revision++
	return nil
}

// HasPendingPlaceholder reports whether the trailing message is awaiting
// a generation result.
func (c *Conversation) HasPendingPlaceholder() bool {
	last := c.LastMessage()
	return last != nil && last.Pending
}

// LastMessage returns the most recent message, or nil when empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// Len returns the number of messages, including any pending placeholder.
func (c *Conversation) Len() int {
	return len(c.Messages)
}

// Revision returns the mutation counter used for layout cache
// invalidation.
func (c *Conversation) Revision() uint64 {
	return c.revision
}

// Transcript returns the ordered wire messages for a generation request.
// The pending placeholder is excluded, as are local system notes: the
// service only ever sees user and assistant turns.
type TranscriptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Conversation) Transcript() []TranscriptMessage {
	out := make([]TranscriptMessage, 0, len(c.Messages))
	for _, msg := range c.Messages {
		if msg.Pending || msg.Role == RoleSystem {
			continue
		}
		out = append(out, TranscriptMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}

// Clone returns a deep copy. Messages are copied by value so mutating the
// clone never aliases the original.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Messages:  make([]*Message, len(c.Messages)),
	}
	for i, msg := range c.Messages {
		msgCopy := *msg
		clone.Messages[i] = &msgCopy
	}
	return clone
}

// updateTitle derives the title from the first user message.
func (c *Conversation) updateTitle() {
	if c.Title != "New Conversation" {
		return
	}
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			c.Title = msg.Preview(50)
			return
		}
	}
}
