// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/privchat/privchat-tui/internal/events"
	"github.com/privchat/privchat-tui/internal/model"
	"github.com/privchat/privchat-tui/internal/ollama"
	"github.com/privchat/privchat-tui/internal/progress"
	"github.com/privchat/privchat-tui/internal/runner"
)

// Timeouts for the backend health check.
const (
	// DefaultProbeTimeout bounds a single `ollama list` probe.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultStartupTimeout bounds waiting for a freshly started
	// daemon to answer its first probe.
	DefaultStartupTimeout = 10 * time.Second
)

// =============================================================================
// SUPERVISOR
// =============================================================================

// Supervisor owns the background operations. It is the sole mutator
// of the active-operation table; worker goroutines report back only
// through the event channel and the terminal() path.
type Supervisor struct {
	backend ollama.Backend
	client  *ollama.Client
	events  *events.Channel
	log     zerolog.Logger

	probeTimeout   time.Duration
	startupTimeout time.Duration

	mu     sync.Mutex
	active map[Kind]*Operation
}

// NewSupervisor creates a supervisor posting to the given channel.
func NewSupervisor(backend ollama.Backend, ch *events.Channel, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		backend:        backend,
		client:         backend.Client(),
		events:         ch,
		log:            log.With().Str("component", "supervisor").Logger(),
		probeTimeout:   DefaultProbeTimeout,
		startupTimeout: DefaultStartupTimeout,
		active:         make(map[Kind]*Operation),
	}
}

// SetTimeouts overrides the health-check timeouts. Zero values keep
// the defaults.
func (s *Supervisor) SetTimeouts(probe, startup time.Duration) {
	if probe > 0 {
		s.probeTimeout = probe
	}
	if startup > 0 {
		s.startupTimeout = startup
	}
}

// begin registers a new operation of the given kind, superseding any
// live operation of that kind. The superseded operation is cancelled
// and unregistered immediately; its goroutine notices via its token
// and reports a cancelled terminal event on its own time.
func (s *Supervisor) begin(kind Kind, target string) *Operation {
	op := newOperation(kind, target)

	s.mu.Lock()
	prev := s.active[kind]
	s.active[kind] = op
	s.mu.Unlock()

	if prev != nil {
		s.log.Info().
			Str("kind", kind.String()).
			Str("superseded", prev.ID()).
			Str("by", op.ID()).
			Msg("operation superseded")
		prev.Cancel()
	}

	s.log.Info().
		Str("kind", kind.String()).
		Str("op", op.ID()).
		Str("target", target).
		Msg("operation started")
	return op
}

// terminal records the operation's terminal state and posts its one
// terminal event. The exactly-once guard lives in Operation.finish;
// late callers are dropped here.
func (s *Supervisor) terminal(op *Operation, st State, err error, msg string) {
	if !op.finish(st) {
		return
	}

	// Settle the token so Done waiters are released even when the
	// operation ended without being cancelled.
	if st == StateCancelled {
		op.token.Cancel()
	} else {
		op.token.Finish()
	}

	s.mu.Lock()
	if s.active[op.kind] == op {
		delete(s.active, op.kind)
	}
	s.mu.Unlock()

	var outcome events.Outcome
	switch st {
	case StateSucceeded:
		outcome = events.OutcomeSucceeded
	case StateCancelled:
		outcome = events.OutcomeCancelled
	default:
		outcome = events.OutcomeFailed
	}

	ev := s.log.Info()
	if st == StateFailed {
		ev = s.log.Error().Err(err)
	}
	ev.Str("kind", op.kind.String()).
		Str("op", op.ID()).
		Str("state", st.String()).
		Msg("operation finished")

	s.events.Post(events.TerminalEvent{
		TaskID:  op.ID(),
		Outcome: outcome,
		Err:     err,
		Message: msg,
	})
}

// ActiveState returns the state of the live operation of a kind, or
// false when none is live.
func (s *Supervisor) ActiveState(kind Kind) (State, bool) {
	s.mu.Lock()
	op := s.active[kind]
	s.mu.Unlock()
	if op == nil {
		return 0, false
	}
	return op.State(), true
}

// CancelAll cancels every live operation. Used at shutdown.
func (s *Supervisor) CancelAll() {
	s.mu.Lock()
	ops := make([]*Operation, 0, len(s.active))
	for _, op := range s.active {
		ops = append(ops, op)
	}
	s.mu.Unlock()

	for _, op := range ops {
		op.Cancel()
	}
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// StartHealthCheck probes the backend and, if the probe fails, starts
// the daemon and waits for it to come up. A missing executable is
// fatal and reported as a failed terminal event.
func (s *Supervisor) StartHealthCheck() *Operation {
	op := s.begin(KindHealthCheck, "")
	go s.runHealthCheck(op)
	return op
}

func (s *Supervisor) runHealthCheck(op *Operation) {
	op.setRunning()
	s.events.Post(events.LogEvent{TaskID: op.ID(), Message: "checking backend"})

	ok, err := s.probe(op)
	if err != nil {
		// Executable missing or not runnable. Nothing to retry.
		s.terminal(op, StateFailed, err, "backend unavailable")
		return
	}
	if op.token.Cancelled() {
		s.terminal(op, StateCancelled, nil, "health check cancelled")
		return
	}
	if ok {
		s.terminal(op, StateSucceeded, nil, "backend ready")
		return
	}

	// Daemon not running. Start it detached and poll until it answers
	// or the startup window closes.
	exe, args := s.backend.ServeCommand()
	pid, err := runner.StartDetached(exe, args...)
	if err != nil {
		s.terminal(op, StateFailed, err, "backend unavailable")
		return
	}
	s.log.Info().Int("pid", pid).Msg("backend daemon started")
	s.events.Post(events.LogEvent{TaskID: op.ID(), Message: "starting backend"})

	deadline := time.Now().Add(s.startupTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-op.token.Done():
			s.terminal(op, StateCancelled, nil, "health check cancelled")
			return
		case <-time.After(500 * time.Millisecond):
		}

		ok, err := s.probe(op)
		if err != nil {
			s.terminal(op, StateFailed, err, "backend unavailable")
			return
		}
		if ok {
			s.terminal(op, StateSucceeded, nil, "backend ready")
			return
		}
	}

	s.terminal(op, StateFailed,
		fmt.Errorf("backend did not come up within %s", s.startupTimeout),
		"backend unavailable")
}

// probe runs the probe command once. Returns (false, nil) when the
// command ran but exited non-zero, and a non-nil error only when it
// could not be launched.
func (s *Supervisor) probe(op *Operation) (bool, error) {
	exe, args := s.backend.ProbeCommand()
	h, err := runner.Start(exe, args...)
	if err != nil {
		return false, err
	}

	timer := time.AfterFunc(s.probeTimeout, h.Terminate)
	defer timer.Stop()

	// Stop the probe early if the operation is cancelled under it.
	stop := context.AfterFunc(op.token.Context(), h.Terminate)
	defer stop()

	if err := h.Wait(); err != nil {
		if runner.IsLaunch(err) {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// =============================================================================
// ASSET PULL
// =============================================================================

// StartAssetPull downloads a model via the backend CLI, posting
// progress events parsed from its output. A launch failure is retried
// once before failing the operation.
func (s *Supervisor) StartAssetPull(modelName string) *Operation {
	op := s.begin(KindAssetPull, modelName)
	go s.runAssetPull(op)
	return op
}

func (s *Supervisor) runAssetPull(op *Operation) {
	exe, args := s.backend.PullCommand(op.target)

	h, err := runner.Start(exe, args...)
	if err != nil && runner.IsLaunch(err) && !op.token.Cancelled() {
		// One retry covers transient launch failures (PATH races,
		// fork pressure). A second failure is real.
		s.log.Warn().Err(err).Str("model", op.target).Msg("pull launch failed, retrying")
		h, err = runner.Start(exe, args...)
	}
	if err != nil {
		s.terminal(op, StateFailed, err, "pull failed: "+op.target)
		return
	}

	op.attachProcess(h)
	op.setRunning()
	s.events.Post(events.LogEvent{TaskID: op.ID(), Message: "pulling " + op.target})

	parser := progress.NewParser()
	for line := range h.Lines() {
		if op.token.Cancelled() {
			break
		}
		snap := parser.Consume(line)
		s.events.Post(events.ProgressEvent{TaskID: op.ID(), Snapshot: snap})
	}

	err = h.Wait()

	// Supersession beats a clean exit: a pull that finished after it
	// was abandoned still reports cancelled.
	if op.token.Cancelled() {
		s.terminal(op, StateCancelled, nil, "pull cancelled: "+op.target)
		return
	}
	if err != nil {
		s.terminal(op, StateFailed, err, "pull failed: "+op.target)
		return
	}

	final := parser.Last()
	final.Percent = 100
	s.events.Post(events.ProgressEvent{TaskID: op.ID(), Snapshot: final})
	s.terminal(op, StateSucceeded, nil, "model ready: "+op.target)
}

// =============================================================================
// INFERENCE STREAM
// =============================================================================

// StartInference runs a streaming chat completion against the HTTP
// API, posting each content chunk as it arrives.
func (s *Supervisor) StartInference(req model.GenerationRequest) *Operation {
	op := s.begin(KindInferenceStream, req.Model)
	go s.runInference(op, req)
	return op
}

func (s *Supervisor) runInference(op *Operation, req model.GenerationRequest) {
	op.setRunning()

	err := s.client.ChatStream(op.token.Context(), req, func(token string) {
		s.events.Post(events.ChunkEvent{TaskID: op.ID(), Token: token})
	})

	if op.token.Cancelled() || errors.Is(err, context.Canceled) {
		s.terminal(op, StateCancelled, nil, "generation cancelled")
		return
	}
	if err != nil {
		s.terminal(op, StateFailed, err, "generation failed")
		return
	}
	s.terminal(op, StateSucceeded, nil, "")
}
