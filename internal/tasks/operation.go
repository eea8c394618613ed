// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"sync"

	"github.com/google/uuid"

	"github.com/privchat/privchat-tui/internal/runner"
)

// =============================================================================
// OPERATION KIND
// =============================================================================

// Kind identifies the category of a background operation. The
// supervisor keeps at most one live operation per kind.
type Kind int

const (
	// KindHealthCheck verifies the backend is reachable, starting it
	// if needed.
	KindHealthCheck Kind = iota

	// KindAssetPull downloads a model, reporting progress.
	KindAssetPull

	// KindInferenceStream runs a streaming chat completion.
	KindInferenceStream
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindHealthCheck:
		return "health-check"
	case KindAssetPull:
		return "asset-pull"
	case KindInferenceStream:
		return "inference"
	default:
		return "unknown"
	}
}

// =============================================================================
// OPERATION STATE
// =============================================================================

// State is the lifecycle state of an operation.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateSucceeded
	StateCancelled
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateSucceeded:
		return "Succeeded"
	case StateCancelled:
		return "Cancelled"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateCancelled || s == StateFailed
}

// =============================================================================
// OPERATION
// =============================================================================

// Operation is one supervised background task. Its ID tags every
// event it posts, so the presentation layer can route drained events
// back to whatever launched it.
type Operation struct {
	id     string
	kind   Kind
	target string
	token  *Token

	mu    sync.Mutex
	state State
	proc  *runner.Handle
}

func newOperation(kind Kind, target string) *Operation {
	return &Operation{
		id:     uuid.New().String(),
		kind:   kind,
		target: target,
		token:  NewToken(),
		state:  StateStarting,
	}
}

// ID returns the unique operation ID.
func (o *Operation) ID() string {
	return o.id
}

// Kind returns the operation kind.
func (o *Operation) Kind() Kind {
	return o.kind
}

// Target returns what the operation acts on (a model name, or empty).
func (o *Operation) Target() string {
	return o.target
}

// Token returns the operation's cancellation token.
func (o *Operation) Token() *Token {
	return o.token
}

// State returns the current lifecycle state.
func (o *Operation) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// setRunning moves the operation from Starting to Running.
func (o *Operation) setRunning() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateStarting {
		o.state = StateRunning
	}
}

// attachProcess records the live process so Cancel can terminate it.
func (o *Operation) attachProcess(h *runner.Handle) {
	o.mu.Lock()
	o.proc = h
	o.mu.Unlock()

	// Cancel may have raced ahead of the attach.
	if o.token.Cancelled() {
		h.Terminate()
	}
}

// Cancel requests cooperative cancellation: the token flips to
// Cancelled and any attached process is asked to terminate. The
// worker goroutine notices and reports the terminal event; Cancel
// itself never blocks on the operation winding down.
func (o *Operation) Cancel() {
	if !o.token.Cancel() {
		return
	}
	o.mu.Lock()
	proc := o.proc
	o.mu.Unlock()
	if proc != nil {
		proc.Terminate()
	}
}

// finish moves the operation to a terminal state exactly once.
// Returns false if a terminal state was already recorded.
func (o *Operation) finish(s State) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Terminal() {
		return false
	}
	o.state = s
	return true
}
