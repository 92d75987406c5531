// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"strings"
	"testing"
)

func TestNewMessageIDs(t *testing.T) {
	m := NewUserMessage("hi")
	if !strings.HasPrefix(m.ID, "msg_") {
		t.Errorf("message ID = %q, want msg_ prefix", m.ID)
	}
	if m.Role != RoleUser {
		t.Errorf("role = %q, want %q", m.Role, RoleUser)
	}

	c := NewConversation()
	if !strings.HasPrefix(c.ID, "conv_") {
		t.Errorf("conversation ID = %q, want conv_ prefix", c.ID)
	}
}

func TestRoleDisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Assistant"},
		{RoleSystem, "System"},
		{Role("tool"), "tool"},
	}
	for _, tt := range tests {
		if got := tt.role.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestTitleFromFirstUserMessage(t *testing.T) {
	c := NewConversation()
	c.AddMessage(NewAssistantMessage("Welcome!"))
	if c.Title != "New Conversation" {
		t.Errorf("title after greeting = %q, want unchanged", c.Title)
	}

	c.AddMessage(NewUserMessage("tell me about sorting algorithms"))
	if c.Title != "tell me about sorting algorithms" {
		t.Errorf("title = %q", c.Title)
	}

	c.AddMessage(NewUserMessage("something else entirely"))
	if c.Title != "tell me about sorting algorithms" {
		t.Errorf("title changed on second user message: %q", c.Title)
	}
}

func TestPlaceholderProtocol(t *testing.T) {
	c := NewConversation()
	c.AddMessage(NewUserMessage("question"))

	ph, err := c.AddPlaceholder()
	if err != nil {
		t.Fatalf("AddPlaceholder failed: %v", err)
	}
	if !ph.Pending || ph.Role != RoleAssistant {
		t.Errorf("placeholder = %+v, want pending assistant", ph)
	}
	if !c.HasPendingPlaceholder() {
		t.Error("HasPendingPlaceholder = false, want true")
	}

	// A second placeholder is rejected while one is pending.
	if _, err := c.AddPlaceholder(); !errors.Is(err, ErrPlaceholderPending) {
		t.Errorf("second AddPlaceholder err = %v, want ErrPlaceholderPending", err)
	}

	id := ph.ID
	if err := c.ResolvePlaceholder("the answer"); err != nil {
		t.Fatalf("ResolvePlaceholder failed: %v", err)
	}
	last := c.LastMessage()
	if last.ID != id {
		t.Errorf("resolved message ID = %q, want %q (replaced in place)", last.ID, id)
	}
	if last.Content != "the answer" || last.Pending {
		t.Errorf("resolved message = %+v", last)
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
}

func TestResolveWithoutPlaceholder(t *testing.T) {
	c := NewConversation()
	if err := c.ResolvePlaceholder("x"); !errors.Is(err, ErrNoPlaceholder) {
		t.Errorf("resolve on empty err = %v, want ErrNoPlaceholder", err)
	}

	c.AddMessage(NewUserMessage("hi"))
	if err := c.ResolvePlaceholder("x"); !errors.Is(err, ErrNoPlaceholder) {
		t.Errorf("resolve with non-pending last err = %v, want ErrNoPlaceholder", err)
	}
}

func TestTranscriptExcludesPlaceholder(t *testing.T) {
	c := NewConversation()
	c.AddMessage(NewAssistantMessage("Welcome!"))
	c.AddMessage(NewUserMessage("hello"))
	if _, err := c.AddPlaceholder(); err != nil {
		t.Fatalf("AddPlaceholder failed: %v", err)
	}

	tr := c.Transcript()
	if len(tr) != 2 {
		t.Fatalf("transcript len = %d, want 2", len(tr))
	}
	if tr[0].Role != "assistant" || tr[0].Content != "Welcome!" {
		t.Errorf("transcript[0] = %+v", tr[0])
	}
	if tr[1].Role != "user" || tr[1].Content != "hello" {
		t.Errorf("transcript[1] = %+v", tr[1])
	}
}

func TestTranscriptExcludesSystemNotes(t *testing.T) {
	c := NewConversation()
	c.AddMessage(NewAssistantMessage("Welcome!"))
	c.AddMessage(NewSystemMessage("Voice on."))
	c.AddMessage(NewUserMessage("hello"))
	c.AddMessage(NewSystemMessage("Voice off."))

	tr := c.Transcript()
	if len(tr) != 2 {
		t.Fatalf("transcript len = %d, want 2", len(tr))
	}
	for _, m := range tr {
		if m.Role == "system" {
			t.Errorf("system note leaked into transcript: %+v", m)
		}
	}
	if tr[0].Content != "Welcome!" || tr[1].Content != "hello" {
		t.Errorf("transcript = %+v", tr)
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := NewConversation()
	c.AddMessage(NewUserMessage("original"))

	clone := c.Clone()
	clone.Messages[0].Content = "mutated"
	clone.AddMessage(NewUserMessage("extra"))

	if c.Messages[0].Content != "original" {
		t.Errorf("clone mutation leaked into original: %q", c.Messages[0].Content)
	}
	if c.Len() != 1 {
		t.Errorf("original len = %d after clone append, want 1", c.Len())
	}
}

func TestRevisionBumpsOnMutation(t *testing.T) {
	c := NewConversation()
	r0 := c.Revision()
	c.AddMessage(NewUserMessage("hi"))
	r1 := c.Revision()
	if r1 == r0 {
		t.Error("revision did not change on append")
	}
	if _, err := c.AddPlaceholder(); err != nil {
		t.Fatalf("AddPlaceholder failed: %v", err)
	}
	r2 := c.Revision()
	if err := c.ResolvePlaceholder("done"); err != nil {
		t.Fatalf("ResolvePlaceholder failed: %v", err)
	}
	if c.Revision() == r2 {
		t.Error("revision did not change on resolve")
	}
}

func TestMessagePreview(t *testing.T) {
	m := NewAssistantMessage("  first line here\nsecond line")
	if got := m.Preview(50); got != "first line here" {
		t.Errorf("Preview = %q", got)
	}
	if got := m.Preview(10); got != "first l..." {
		t.Errorf("Preview truncated = %q", got)
	}
}
