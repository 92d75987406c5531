// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"errors"
	"strings"
)

// Category buckets a generation failure for user-facing handling.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryQuota
	CategoryRateLimited
	CategoryNotFound
	CategoryUnauthorized
	CategoryConflict
	CategoryServer
	CategoryUpstream
)

// String returns the category name (used in logs and the usage ledger).
func (c Category) String() string {
	switch c {
	case CategoryQuota:
		return "quota"
	case CategoryRateLimited:
		return "rate_limited"
	case CategoryNotFound:
		return "not_found"
	case CategoryUnauthorized:
		return "unauthorized"
	case CategoryConflict:
		return "conflict"
	case CategoryServer:
		return "server"
	case CategoryUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Classify buckets an error. Wrapped sentinels from this package are
// checked first; anything else falls back to substring matching so that
// errors surfaced by other transports still classify usefully.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	switch {
	case errors.Is(err, ErrQuotaExhausted):
		return CategoryQuota
	case errors.Is(err, ErrRateLimited):
		return CategoryRateLimited
	case errors.Is(err, ErrModelNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrAuthFailed):
		return CategoryUnauthorized
	case errors.Is(err, ErrConflict):
		return CategoryConflict
	case errors.Is(err, ErrUpstreamUnavailable):
		return CategoryUpstream
	case errors.Is(err, ErrServer):
		return CategoryServer
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "403") && strings.Contains(msg, "insufficient_resource"):
		return CategoryQuota
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "busy"):
		return CategoryRateLimited
	case strings.Contains(msg, "404"):
		return CategoryNotFound
	case strings.Contains(msg, "401"):
		return CategoryUnauthorized
	case strings.Contains(msg, "409"):
		return CategoryConflict
	case strings.Contains(msg, "502") || strings.Contains(msg, "503") || strings.Contains(msg, "504"):
		return CategoryUpstream
	case strings.Contains(msg, "500"):
		return CategoryServer
	default:
		return CategoryUnknown
	}
}

// UserMessage renders the transcript line shown when generation fails.
func UserMessage(c Category) string {
	switch c {
	case CategoryQuota:
		return "The account is out of credit. Top up or switch to a free model."
	case CategoryRateLimited:
		return "The model is busy right now. Wait a moment and try again."
	case CategoryNotFound:
		return "That model was not found. Check the model name in your config."
	case CategoryUnauthorized:
		return "Authentication failed. Check your API key."
	case CategoryConflict:
		return "The request conflicted with the server state. Try again."
	case CategoryUpstream:
		return "The model provider is temporarily unavailable. Try again shortly."
	case CategoryServer:
		return "The backend hit an internal error. Try again shortly."
	default:
		return "Something went wrong generating a reply. Try again."
	}
}
