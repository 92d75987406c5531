// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch manages the single outstanding generation request and
// delivers its result to the UI loop through a non-blocking channel that
// is drained once per tick.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/charla-tui/internal/cloud"
)

// ErrRequestInFlight is returned by Begin while a request is outstanding.
var ErrRequestInFlight = errors.New("a generation request is already in flight")

// Result is what a completed generation delivers. Exactly one of Content
// or Err is meaningful; Category classifies Err for display.
type Result struct {
	// GenerationID tags the request this result answers. The controller
	// drops results whose ID no longer matches its pending request.
	GenerationID string

	// ConversationID is the conversation the request was made for.
	ConversationID string

	Content  string
	Usage    cloud.Usage
	Err      error
	Category cloud.Category
}

// RequestFunc performs the actual generation call.
type RequestFunc func(ctx context.Context) (string, cloud.Usage, error)

// Dispatcher runs at most one generation request at a time. Completed
// results land on a buffered channel; the UI polls it once per tick so
// delivery never blocks either side.
type Dispatcher struct {
	mu      sync.Mutex
	pending string // generation ID of the outstanding request, "" if none
	cancel  context.CancelFunc

	results chan Result
}

// New creates a dispatcher. The result buffer is sized so a completing
// worker never blocks even if the UI is mid-tick.
func New() *Dispatcher {
	return &Dispatcher{
		results: make(chan Result, 4),
	}
}

// Begin starts a generation request for the given conversation. It
// returns the generation ID used to match the delivery, or
// ErrRequestInFlight if one is already outstanding.
func (d *Dispatcher) Begin(ctx context.Context, conversationID string, fn RequestFunc) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != "" {
		return "", ErrRequestInFlight
	}

	genID := uuid.NewString()
	reqCtx, cancel := context.WithCancel(ctx)
	d.pending = genID
	d.cancel = cancel

	go d.run(reqCtx, genID, conversationID, fn)
	return genID, nil
}

func (d *Dispatcher) run(ctx context.Context, genID, conversationID string, fn RequestFunc) {
	content, usage, err := fn(ctx)

	res := Result{
		GenerationID:   genID,
		ConversationID: conversationID,
		Content:        content,
		Usage:          usage,
		Err:            err,
	}
	if err != nil {
		res.Category = cloud.Classify(err)
	}

	d.mu.Lock()
	if d.pending == genID {
		d.pending = ""
		d.cancel = nil
	}
	d.mu.Unlock()

	// Non-blocking send. With one outstanding request the buffer cannot
	// fill; if it somehow does, the result is dropped rather than
	// deadlocking a background goroutine.
	select {
	case d.results <- res:
	default:
	}
}

// Poll performs one non-blocking receive. The UI calls this once per
// tick, so at most one result is applied per frame.
func (d *Dispatcher) Poll() (Result, bool) {
	select {
	case res := <-d.results:
		return res, true
	default:
		return Result{}, false
	}
}

// Busy reports whether a request is outstanding.
func (d *Dispatcher) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != ""
}

// Abandon cancels the outstanding request, if any, and clears the pending
// tag. The worker may still deliver a result; its generation ID no longer
// matches anything, so the controller discards it as stale.
func (d *Dispatcher) Abandon() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.pending = ""
}
