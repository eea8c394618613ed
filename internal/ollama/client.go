// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/privchat/privchat-tui/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama HTTP API.
type ClientError struct {
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles streaming chat against the Ollama HTTP API.
// Safe for concurrent use.
type Client struct {
	baseURL string

	// No Timeout: streams are open-ended. Lifetime is governed by the
	// request context.
	httpClient *http.Client
}

// NewClient creates a client for the given base URL. An empty URL
// falls back to DefaultURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// TokenCallback receives each streamed content chunk, in order, on the
// goroutine that called ChatStream.
type TokenCallback func(token string)

// ChatStream sends a streaming chat request and invokes the callback
// for every content chunk until the model signals done. Returns
// ctx.Err() when the context is cancelled mid-stream.
func (c *Client) ChatStream(ctx context.Context, req model.GenerationRequest, callback TokenCallback) error {
	body, err := json.Marshal(buildChatRequest(req))
	if err != nil {
		return &ClientError{Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return &ClientError{Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ctx.Err()
		}
		return &ClientError{Message: "backend unreachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return &ClientError{Message: apiErr.Error}
		}
		return &ClientError{Message: "chat request failed: " + resp.Status}
	}

	reader := NewStreamReader(resp.Body)
	return reader.Process(ctx, callback)
}

// buildChatRequest converts a request snapshot to the wire format.
func buildChatRequest(req model.GenerationRequest) ChatRequest {
	messages := make([]ChatMessage, 0, len(req.Turns))
	for _, turn := range req.Turns {
		messages = append(messages, ChatMessage{
			Role:    turn.Role.String(),
			Content: turn.Content,
		})
	}
	return ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
		Options: &ChatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
}
