// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
)

// Generation parameter bounds.
const (
	MinTemperature = 0.0
	MaxTemperature = 1.0
	MinMaxTokens   = 128
	MaxMaxTokens   = 512
)

// StateError reports an operation applied to a conversation in the
// wrong shape, such as streaming into a turn that is not an assistant
// placeholder.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("conversation: %s: %s", e.Op, e.Reason)
}

// IsState reports whether err is a conversation state error.
func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is an ordered message history. It is owned by the
// presentation loop and is not safe for concurrent use; worker
// goroutines only ever see immutable Request snapshots.
type Conversation struct {
	Messages []*Message
}

// NewConversation creates a conversation seeded with a system prompt.
// An empty prompt starts the history empty.
func NewConversation(systemPrompt string) *Conversation {
	c := &Conversation{}
	if systemPrompt != "" {
		c.Messages = append(c.Messages, NewSystemMessage(systemPrompt))
	}
	return c
}

// Len returns the number of turns in the history.
func (c *Conversation) Len() int {
	return len(c.Messages)
}

// History returns the underlying message slice. Callers must not
// mutate it; use the Add/Update methods.
func (c *Conversation) History() []*Message {
	return c.Messages
}

// Last returns the most recent turn, or nil when the history is empty.
func (c *Conversation) Last() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// AddUserMessage appends a user turn and returns it.
func (c *Conversation) AddUserMessage(content string) *Message {
	m := NewUserMessage(content)
	c.Messages = append(c.Messages, m)
	return m
}

// AddAssistantPlaceholder appends an empty streaming assistant turn
// and returns it.
func (c *Conversation) AddAssistantPlaceholder() *Message {
	m := NewAssistantMessage()
	c.Messages = append(c.Messages, m)
	return m
}

// ReplaceSystemPrompt discards the entire history and starts over with
// a single system turn carrying the new prompt. Switching persona
// mid-conversation would poison the context otherwise.
func (c *Conversation) ReplaceSystemPrompt(prompt string) {
	c.Messages = c.Messages[:0]
	if prompt != "" {
		c.Messages = append(c.Messages, NewSystemMessage(prompt))
	}
}

// AppendToLast appends a streamed token to the trailing assistant
// placeholder.
func (c *Conversation) AppendToLast(token string) error {
	last := c.Last()
	if last == nil {
		return &StateError{Op: "append", Reason: "empty history"}
	}
	if last.Role != RoleAssistant || !last.IsStreaming {
		return &StateError{Op: "append", Reason: "last turn is not a streaming assistant message"}
	}
	last.AppendToken(token)
	return nil
}

// UpdateLast replaces the content of the trailing assistant turn.
func (c *Conversation) UpdateLast(content string) error {
	last := c.Last()
	if last == nil {
		return &StateError{Op: "update", Reason: "empty history"}
	}
	if last.Role != RoleAssistant {
		return &StateError{Op: "update", Reason: "last turn is not an assistant message"}
	}
	if last.IsStreaming {
		last.stream.Reset()
		last.stream.WriteString(content)
		return nil
	}
	last.Content = content
	return nil
}

// FinalizeLast ends streaming on the trailing assistant turn, if any.
func (c *Conversation) FinalizeLast() {
	if last := c.Last(); last != nil && last.Role == RoleAssistant {
		last.FinalizeStream()
	}
}

// =============================================================================
// GENERATION REQUEST
// =============================================================================

// Turn is one message in a request snapshot.
type Turn struct {
	Role    Role
	Content string
}

// GenerationRequest is an immutable snapshot of the conversation plus
// generation parameters, safe to hand to a worker goroutine.
type GenerationRequest struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Turns       []Turn
}

// Request snapshots the history into a GenerationRequest. Temperature
// and maxTokens are clamped to their valid ranges; empty turns (such
// as the assistant placeholder, when the snapshot is taken after it
// was appended) are skipped.
func (c *Conversation) Request(modelID string, temperature float64, maxTokens int) GenerationRequest {
	if temperature < MinTemperature {
		temperature = MinTemperature
	}
	if temperature > MaxTemperature {
		temperature = MaxTemperature
	}
	if maxTokens < MinMaxTokens {
		maxTokens = MinMaxTokens
	}
	if maxTokens > MaxMaxTokens {
		maxTokens = MaxMaxTokens
	}

	turns := make([]Turn, 0, len(c.Messages))
	for _, m := range c.Messages {
		content := m.GetDisplayContent()
		if content == "" {
			continue
		}
		turns = append(turns, Turn{Role: m.Role, Content: content})
	}

	return GenerationRequest{
		Model:       modelID,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Turns:       turns,
	}
}
