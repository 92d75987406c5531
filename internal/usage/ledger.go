// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package usage records token usage per completed generation in a local
// SQLite database so spend can be inspected across sessions.
package usage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("usage ledger is closed")

const schema = `
CREATE TABLE IF NOT EXISTS generations (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	generation_id   TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	model           TEXT NOT NULL,
	prompt_tokens   INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	total_tokens    INTEGER NOT NULL,
	created_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generations_conv ON generations(conversation_id);
`

// Entry is one recorded generation.
type Entry struct {
	GenerationID     string
	ConversationID   string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CreatedAt        time.Time
}

// Totals aggregates recorded usage.
type Totals struct {
	Generations      int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Ledger persists usage entries to SQLite.
type Ledger struct {
	db *sql.DB
}

// Open creates or opens the ledger database at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Record inserts one entry. A zero CreatedAt is filled with now.
func (l *Ledger) Record(e Entry) error {
	if l.db == nil {
		return ErrClosed
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := l.db.Exec(
		`INSERT INTO generations
		 (generation_id, conversation_id, model, prompt_tokens, completion_tokens, total_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.GenerationID, e.ConversationID, e.Model,
		e.PromptTokens, e.CompletionTokens, e.TotalTokens, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// TotalsFor aggregates usage for one conversation; an empty ID aggregates
// everything.
func (l *Ledger) TotalsFor(conversationID string) (Totals, error) {
	if l.db == nil {
		return Totals{}, ErrClosed
	}

	query := `SELECT COUNT(*),
		COALESCE(SUM(prompt_tokens), 0),
		COALESCE(SUM(completion_tokens), 0),
		COALESCE(SUM(total_tokens), 0)
		FROM generations`
	args := []any{}
	if conversationID != "" {
		query += ` WHERE conversation_id = ?`
		args = append(args, conversationID)
	}

	var t Totals
	err := l.db.QueryRow(query, args...).Scan(
		&t.Generations, &t.PromptTokens, &t.CompletionTokens, &t.TotalTokens)
	if err != nil {
		return Totals{}, fmt.Errorf("query usage totals: %w", err)
	}
	return t, nil
}

// Close releases the database handle.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}
