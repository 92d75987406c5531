// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the history archive: a single JSON document
// holding the most recent conversations, written atomically.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/charla-tui/internal/model"
	"github.com/jeranaias/charla-tui/internal/util"
)

// DefaultLimit is how many conversations the archive retains.
const DefaultLimit = 3

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrCorruptArchive wraps a parse failure on load. Callers treat the
	// archive as empty and may log the error; startup never fails on it.
	ErrCorruptArchive = errors.New("history archive is corrupt")
)

// =============================================================================
// STORED FORM
// =============================================================================

// StoredMessage is the on-disk record for one message.
type StoredMessage struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// StoredConversation is the on-disk record for one archived conversation.
type StoredConversation struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Messages  []StoredMessage `json:"messages"`
}

// toStored converts a live conversation, dropping any pending placeholder.
func toStored(conv *model.Conversation) StoredConversation {
	sc := StoredConversation{
		ID:        conv.ID,
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
		Messages:  make([]StoredMessage, 0, len(conv.Messages)),
	}
	for _, msg := range conv.Messages {
		if msg.Pending {
			continue
		}
		sc.Messages = append(sc.Messages, StoredMessage{
			Sender:    string(msg.Role),
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		})
	}
	return sc
}

// ToConversation rebuilds a live conversation from the stored form.
func (sc StoredConversation) ToConversation() *model.Conversation {
	conv := &model.Conversation{
		ID:        sc.ID,
		Title:     sc.Title,
		CreatedAt: sc.CreatedAt,
		UpdatedAt: sc.UpdatedAt,
		Messages:  make([]*model.Message, 0, len(sc.Messages)),
	}
	for _, sm := range sc.Messages {
		msg := model.NewMessage(model.Role(sm.Sender), sm.Content)
		msg.Timestamp = sm.Timestamp
		conv.Messages = append(conv.Messages, msg)
	}
	return conv
}

// Preview returns a one-line preview of the last message for list views.
func (sc StoredConversation) Preview(maxLen int) string {
	if len(sc.Messages) == 0 {
		return ""
	}
	last := sc.Messages[len(sc.Messages)-1]
	return util.TruncateRunes(util.FirstLine(last.Content), maxLen)
}

// =============================================================================
// ARCHIVE
// =============================================================================

// Archive persists the last N conversations to a single JSON file.
// Truncation happens on insert: an Append that pushes the count past the
// limit drops the oldest entries before the write hits disk.
type Archive struct {
	Path  string
	Limit int
}

// NewArchive creates an archive at path with the default retention limit.
func NewArchive(path string) *Archive {
	return &Archive{Path: path, Limit: DefaultLimit}
}

// Load reads the archive. A missing file yields an empty slice and no
// error. A malformed file yields an empty slice and an error wrapping
// ErrCorruptArchive; the caller decides whether to surface it.
func (a *Archive) Load() ([]StoredConversation, error) {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []StoredConversation{}, nil
		}
		return []StoredConversation{}, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	var convs []StoredConversation
	if err := json.Unmarshal(data, &convs); err != nil {
		return []StoredConversation{}, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	// Older files may carry more entries than the current limit.
	return a.truncate(convs), nil
}

// Append archives a conversation at the end of the list, truncates to the
// retention limit, and writes the whole document atomically. Conversations
// whose stored form has one message or fewer (the greeting alone, or a
// greeting plus an unresolved placeholder) are not worth keeping: Append
// no-ops on them.
func (a *Archive) Append(conv *model.Conversation) error {
	stored := toStored(conv)
	if len(stored.Messages) <= 1 {
		return nil
	}

	convs, err := a.Load()
	if err != nil {
		// A corrupt file is replaced rather than propagated.
		convs = []StoredConversation{}
	}

	convs = a.truncate(append(convs, stored))
	return a.write(convs)
}

// write marshals and atomically replaces the archive file.
func (a *Archive) write(convs []StoredConversation) error {
	data, err := json.MarshalIndent(convs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive: %w", err)
	}
	if err := util.AtomicWriteFile(a.Path, data, 0644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

func (a *Archive) truncate(convs []StoredConversation) []StoredConversation {
	limit := a.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(convs) > limit {
		convs = convs[len(convs)-limit:]
	}
	return convs
}
