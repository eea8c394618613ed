// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import "github.com/privchat/privchat-tui/internal/progress"

// =============================================================================
// OUTCOMES
// =============================================================================

// Outcome is the terminal result of one background operation.
// Cancellation is a first-class outcome, not an error.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeCancelled
	OutcomeFailed
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "Succeeded"
	case OutcomeCancelled:
		return "Cancelled"
	case OutcomeFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// =============================================================================
// EVENT TYPES
// =============================================================================

// Event is anything a background operation reports to the UI.
// Every event is tagged with the ID of the task that produced it.
type Event interface {
	Task() string
}

// LogEvent carries a human-readable status line.
type LogEvent struct {
	TaskID  string
	Message string
}

func (e LogEvent) Task() string { return e.TaskID }

// ProgressEvent carries the latest parsed progress snapshot.
type ProgressEvent struct {
	TaskID   string
	Snapshot progress.Snapshot
}

func (e ProgressEvent) Task() string { return e.TaskID }

// ChunkEvent carries one incremental text fragment of a streaming
// reply.
type ChunkEvent struct {
	TaskID string
	Token  string
}

func (e ChunkEvent) Task() string { return e.TaskID }

// TerminalEvent is the single final event of an operation. Err is set
// only for OutcomeFailed; Message is a displayable summary for all
// outcomes.
type TerminalEvent struct {
	TaskID  string
	Outcome Outcome
	Err     error
	Message string
}

func (e TerminalEvent) Task() string { return e.TaskID }
