// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"sync"
)

// =============================================================================
// TOKEN STATE
// =============================================================================

// TokenState is the lifecycle state of a cancellation token.
type TokenState int

const (
	// TokenActive means the operation is live.
	TokenActive TokenState = iota

	// TokenCancelled means the operation was abandoned before it
	// completed.
	TokenCancelled

	// TokenFinished means the operation ran to its natural end.
	TokenFinished
)

// String returns the string representation of the token state.
func (s TokenState) String() string {
	switch s {
	case TokenActive:
		return "Active"
	case TokenCancelled:
		return "Cancelled"
	case TokenFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// =============================================================================
// TOKEN
// =============================================================================

// Token is a tri-state cancellation token shared between the
// supervisor and an operation's worker goroutine. Transitions are
// one-way: the first of Cancel or Finish wins and later calls are
// no-ops. Both transitions release Done waiters.
type Token struct {
	mu     sync.Mutex
	state  TokenState
	ctx    context.Context
	cancel context.CancelFunc
}

// NewToken creates an active token.
func NewToken() *Token {
	ctx, cancel := context.WithCancel(context.Background())
	return &Token{
		state:  TokenActive,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Cancel marks the token cancelled. Returns true if this call made
// the transition, false if the token had already left Active.
func (t *Token) Cancel() bool {
	return t.transition(TokenCancelled)
}

// Finish marks the token finished. Returns true if this call made
// the transition, false if the token had already left Active.
func (t *Token) Finish() bool {
	return t.transition(TokenFinished)
}

func (t *Token) transition(to TokenState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TokenActive {
		return false
	}
	t.state = to
	t.cancel()
	return true
}

// State returns the current token state.
func (t *Token) State() TokenState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Cancelled reports whether the token was cancelled (not finished).
func (t *Token) Cancelled() bool {
	return t.State() == TokenCancelled
}

// Context returns a context that is cancelled when the token leaves
// Active, for handing to blocking calls.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Done returns a channel closed when the token leaves Active.
func (t *Token) Done() <-chan struct{} {
	return t.ctx.Done()
}
