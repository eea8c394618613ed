// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
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
// MESSAGE TYPE
// =============================================================================

// Message is a single turn in the conversation. A streaming assistant
// message is appended empty and mutated in place as chunks arrive;
// strings.Builder avoids quadratic allocations while streaming.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time

	IsStreaming bool
	stream      strings.Builder
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// NewAssistantMessage creates an empty streaming assistant message.
func NewAssistantMessage() *Message {
	return &Message{
		ID:          generateID(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// AppendToken appends a streamed chunk. No-op once finalized.
func (m *Message) AppendToken(token string) {
	if m.IsStreaming {
		m.stream.WriteString(token)
	}
}

// FinalizeStream merges streamed content into Content and ends
// streaming. Idempotent.
func (m *Message) FinalizeStream() {
	if !m.IsStreaming {
		return
	}
	m.Content = m.stream.String()
	m.stream.Reset()
	m.IsStreaming = false
}

// GetDisplayContent returns the content to display, streamed or final.
func (m *Message) GetDisplayContent() string {
	if m.IsStreaming {
		return m.stream.String()
	}
	return m.Content
}

// IsEmpty reports whether the message has no content yet.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.stream.Len() == 0
}

// generateID creates a unique message ID.
func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}
