// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud implements the chat-completions client used to generate
// assistant replies, with retry, client-side rate limiting, and error
// classification for user-facing messages.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/charla-tui/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultBaseURL points at a local OpenAI-compatible endpoint.
	DefaultBaseURL = "http://localhost:8080/v1"

	// DefaultTimeout bounds a single generation request.
	DefaultTimeout = 120 * time.Second

	// maxResponseSize caps how much of a response body is read (10MB).
	maxResponseSize = 10 * 1024 * 1024

	// maxRetries for transient failures.
	maxRetries = 3

	// baseBackoff is the initial retry delay; doubles per attempt.
	baseBackoff = 500 * time.Millisecond

	// maxBackoff caps the retry delay.
	maxBackoff = 10 * time.Second
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrAuthFailed          = errors.New("authentication failed: check your API key")
	ErrQuotaExhausted      = errors.New("quota exhausted: the account has no remaining credit")
	ErrModelNotFound       = errors.New("model not found")
	ErrConflict            = errors.New("request conflicts with server state")
	ErrRateLimited         = errors.New("rate limited by the backend")
	ErrServer              = errors.New("backend server error")
	ErrUpstreamUnavailable = errors.New("upstream model provider unavailable")
)

// APIError carries the raw status and message from a failed request.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatRequest is an OpenAI-compatible completion request.
type ChatRequest struct {
	Model       string                    `json:"model"`
	Messages    []model.TranscriptMessage `json:"messages"`
	Stream      bool                      `json:"stream"`
	Temperature float64                   `json:"temperature,omitempty"`
	MaxTokens   int                       `json:"max_tokens,omitempty"`
}

// ChatResponse is an OpenAI-compatible completion response.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Usage reports token counts for a completed request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GetContent returns the first choice's content, or empty.
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	systemPrompt string
	temperature  float64
	maxTokens    int
	httpClient   *http.Client
	limiter      *rate.Limiter
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration

	// RequestsPerMinute throttles outgoing requests; 0 disables.
	RequestsPerMinute int
}

// NewClient creates a generation client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 256
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		model:        opts.Model,
		systemPrompt: opts.SystemPrompt,
		temperature:  opts.Temperature,
		maxTokens:    opts.MaxTokens,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		limiter:      limiter,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Chat sends the transcript and returns the completion. The system prompt,
// when configured, is prepended. Transient failures are retried with
// exponential backoff.
func (c *Client) Chat(ctx context.Context, messages []model.TranscriptMessage) (*ChatResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	wire := messages
	if c.systemPrompt != "" {
		wire = make([]model.TranscriptMessage, 0, len(messages)+1)
		wire = append(wire, model.TranscriptMessage{Role: "system", Content: c.systemPrompt})
		wire = append(wire, messages...)
	}

	req := ChatRequest{
		Model:       c.model,
		Messages:    wire,
		Stream:      false,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}

		resp, err := c.send(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, c.statusError(httpResp.StatusCode, data)
	}

	var resp ChatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// statusError maps an HTTP status to a wrapped sentinel error.
func (c *Client) statusError(status int, body []byte) error {
	apiErr := &APIError{Status: status, Message: strings.TrimSpace(string(body))}

	var parsed struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
		apiErr.Code = parsed.Error.Code
		apiErr.Message = parsed.Error.Message
	}

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", ErrAuthFailed, apiErr)
	case status == http.StatusPaymentRequired:
		return fmt.Errorf("%w: %v", ErrQuotaExhausted, apiErr)
	case status == http.StatusForbidden && strings.Contains(apiErr.Message, "insufficient_resource"):
		return fmt.Errorf("%w: %v", ErrQuotaExhausted, apiErr)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrModelNotFound, apiErr)
	case status == http.StatusConflict:
		return fmt.Errorf("%w: %v", ErrConflict, apiErr)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimited, apiErr)
	case status == http.StatusBadGateway ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, apiErr)
	case status >= 500:
		return fmt.Errorf("%w: %v", ErrServer, apiErr)
	default:
		return apiErr
	}
}

// isRetryable reports whether a request should be retried.
func isRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServer) ||
		errors.Is(err, ErrUpstreamUnavailable)
}

// backoff returns the delay before the given attempt (1-based).
func backoff(attempt int) time.Duration {
	d := baseBackoff * time.Duration(1<<uint(attempt-1))
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
