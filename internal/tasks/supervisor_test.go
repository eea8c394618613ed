// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privchat/privchat-tui/internal/events"
	"github.com/privchat/privchat-tui/internal/model"
	"github.com/privchat/privchat-tui/internal/ollama"
	"github.com/privchat/privchat-tui/internal/runner"
)

// fakeBackend writes a shell script standing in for the ollama CLI.
func fakeBackend(t *testing.T, script string) ollama.Backend {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	path := filepath.Join(t.TempDir(), "ollama")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return ollama.NewBackend(path, "")
}

func newTestSupervisor(t *testing.T, backend ollama.Backend) (*Supervisor, *events.Channel) {
	t.Helper()
	ch := events.NewChannel()
	sup := NewSupervisor(backend, ch, zerolog.Nop())
	sup.SetTimeouts(2*time.Second, 3*time.Second)
	return sup, ch
}

// collectUntilTerminal drains events until the operation's terminal
// event arrives.
func collectUntilTerminal(t *testing.T, ch *events.Channel, opID string) ([]events.Event, events.TerminalEvent) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	var collected []events.Event
	for {
		select {
		case <-ch.Ready():
		case <-deadline:
			t.Fatalf("no terminal event for operation %s", opID)
		}
		for _, ev := range ch.Drain() {
			collected = append(collected, ev)
			if te, ok := ev.(events.TerminalEvent); ok && te.TaskID == opID {
				return collected, te
			}
		}
	}
}

// =============================================================================
// ASSET PULL
// =============================================================================

func TestAssetPullSuccess(t *testing.T) {
	backend := fakeBackend(t, `
case "$1" in
pull)
  echo "pulling manifest"
  echo "10%"
  echo "5.0 MB / 50.0 MB"
  echo "80%"
  exit 0
  ;;
esac
exit 1`)
	sup, ch := newTestSupervisor(t, backend)

	op := sup.StartAssetPull("tinyllama")
	collected, term := collectUntilTerminal(t, ch, op.ID())

	assert.Equal(t, events.OutcomeSucceeded, term.Outcome)
	assert.NoError(t, term.Err)
	assert.Contains(t, term.Message, "tinyllama")
	assert.Equal(t, StateSucceeded, op.State())

	var snaps []int
	for _, ev := range collected {
		if pe, ok := ev.(events.ProgressEvent); ok && pe.TaskID == op.ID() {
			snaps = append(snaps, pe.Snapshot.Percent)
		}
	}
	require.NotEmpty(t, snaps)
	assert.Equal(t, 100, snaps[len(snaps)-1], "final progress event must report 100")

	_, live := sup.ActiveState(KindAssetPull)
	assert.False(t, live, "operation must be unregistered after terminal")
}

func TestAssetPullExitFailure(t *testing.T) {
	backend := fakeBackend(t, `echo "no such model" ; exit 1`)
	sup, ch := newTestSupervisor(t, backend)

	op := sup.StartAssetPull("nope")
	_, term := collectUntilTerminal(t, ch, op.ID())

	assert.Equal(t, events.OutcomeFailed, term.Outcome)
	require.Error(t, term.Err)
	assert.True(t, runner.IsExecution(term.Err))
}

func TestAssetPullLaunchFailure(t *testing.T) {
	backend := ollama.NewBackend(filepath.Join(t.TempDir(), "missing"), "")
	sup, ch := newTestSupervisor(t, backend)

	op := sup.StartAssetPull("tinyllama")
	collected, term := collectUntilTerminal(t, ch, op.ID())

	assert.Equal(t, events.OutcomeFailed, term.Outcome)
	require.Error(t, term.Err)
	assert.True(t, runner.IsLaunch(term.Err))

	terminals := 0
	for _, ev := range collected {
		if te, ok := ev.(events.TerminalEvent); ok && te.TaskID == op.ID() {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals, "launch failure must produce exactly one terminal event")
}

func TestAssetPullSupersession(t *testing.T) {
	backend := fakeBackend(t, `
case "$2" in
slow)
  echo "10%"
  exec sleep 30
  ;;
fast)
  echo "100%"
  exit 0
  ;;
esac
exit 1`)
	sup, ch := newTestSupervisor(t, backend)

	first := sup.StartAssetPull("slow")

	// Let the first pull reach its process before superseding it.
	waitForState(t, first, StateRunning)

	second := sup.StartAssetPull("fast")

	_, term1 := collectUntilTerminal(t, ch, first.ID())
	assert.Equal(t, events.OutcomeCancelled, term1.Outcome)

	_, term2 := collectUntilTerminal(t, ch, second.ID())
	assert.Equal(t, events.OutcomeSucceeded, term2.Outcome)
}

func TestAssetPullCancelledCleanExitReportsCancelled(t *testing.T) {
	backend := fakeBackend(t, `echo "100%" ; exit 0`)
	sup, ch := newTestSupervisor(t, backend)

	op := sup.StartAssetPull("tinyllama")
	op.Cancel()
	_, term := collectUntilTerminal(t, ch, op.ID())

	// The process may well have exited 0 before noticing, but the
	// supersession rule wins.
	assert.Equal(t, events.OutcomeCancelled, term.Outcome)
}

func waitForState(t *testing.T, op *Operation, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if op.State() == want || op.State().Terminal() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("operation never reached %v (stuck at %v)", want, op.State())
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

func TestHealthCheckBackendRunning(t *testing.T) {
	backend := fakeBackend(t, `
case "$1" in
list) exit 0 ;;
esac
exit 1`)
	sup, ch := newTestSupervisor(t, backend)

	op := sup.StartHealthCheck()
	_, term := collectUntilTerminal(t, ch, op.ID())

	assert.Equal(t, events.OutcomeSucceeded, term.Outcome)
	assert.Contains(t, term.Message, "ready")
}

func TestHealthCheckStartsDaemon(t *testing.T) {
	// The probe fails until the serve command drops a marker file.
	dir := t.TempDir()
	marker := filepath.Join(dir, "up")
	backend := fakeBackend(t, `
case "$1" in
list)
  test -f `+marker+`
  exit $?
  ;;
serve)
  touch `+marker+`
  exec sleep 30
  ;;
esac
exit 1`)
	sup, ch := newTestSupervisor(t, backend)

	op := sup.StartHealthCheck()
	_, term := collectUntilTerminal(t, ch, op.ID())

	assert.Equal(t, events.OutcomeSucceeded, term.Outcome)
}

func TestHealthCheckMissingExecutableIsFatal(t *testing.T) {
	backend := ollama.NewBackend(filepath.Join(t.TempDir(), "missing"), "")
	sup, ch := newTestSupervisor(t, backend)

	op := sup.StartHealthCheck()
	_, term := collectUntilTerminal(t, ch, op.ID())

	assert.Equal(t, events.OutcomeFailed, term.Outcome)
	require.Error(t, term.Err)
	assert.True(t, runner.IsLaunch(term.Err))
}

// =============================================================================
// INFERENCE
// =============================================================================

func inferenceBackend(t *testing.T, handler http.HandlerFunc) (ollama.Backend, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return ollama.NewBackend("ollama", srv.URL), srv
}

func TestInferenceStreamsChunks(t *testing.T) {
	backend, _ := inferenceBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"content":"Hel"},"done":false}` + "\n"))
		w.Write([]byte(`{"message":{"content":"lo"},"done":true}` + "\n"))
	})
	sup, ch := newTestSupervisor(t, backend)

	conv := model.NewConversation("sys")
	conv.AddUserMessage("hi")
	op := sup.StartInference(conv.Request("m", 0.3, 256))

	collected, term := collectUntilTerminal(t, ch, op.ID())
	assert.Equal(t, events.OutcomeSucceeded, term.Outcome)

	var text string
	for _, ev := range collected {
		if ce, ok := ev.(events.ChunkEvent); ok && ce.TaskID == op.ID() {
			text += ce.Token
		}
	}
	assert.Equal(t, "Hello", text)
}

func TestInferenceCancelled(t *testing.T) {
	started := make(chan struct{})
	backend, _ := inferenceBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"content":"x"},"done":false}` + "\n"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		close(started)
		// Hold the stream open until the client goes away.
		<-r.Context().Done()
	})
	sup, ch := newTestSupervisor(t, backend)

	conv := model.NewConversation("")
	conv.AddUserMessage("hi")
	op := sup.StartInference(conv.Request("m", 0.3, 256))

	<-started
	op.Cancel()

	_, term := collectUntilTerminal(t, ch, op.ID())
	assert.Equal(t, events.OutcomeCancelled, term.Outcome)
	assert.NoError(t, term.Err)
}

func TestInferenceBackendError(t *testing.T) {
	backend, _ := inferenceBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	})
	sup, ch := newTestSupervisor(t, backend)

	conv := model.NewConversation("")
	conv.AddUserMessage("hi")
	op := sup.StartInference(conv.Request("m", 0.3, 256))

	_, term := collectUntilTerminal(t, ch, op.ID())
	assert.Equal(t, events.OutcomeFailed, term.Outcome)
	require.Error(t, term.Err)
}

// =============================================================================
// SUPERVISOR STATE
// =============================================================================

func TestDifferentKindsRunConcurrently(t *testing.T) {
	backend := fakeBackend(t, `
case "$1" in
list) exit 0 ;;
pull) echo "10%" ; exit 0 ;;
esac
exit 1`)
	sup, ch := newTestSupervisor(t, backend)

	hc := sup.StartHealthCheck()
	pull := sup.StartAssetPull("tinyllama")

	_, termHC := collectUntilTerminal(t, ch, hc.ID())
	assert.Equal(t, events.OutcomeSucceeded, termHC.Outcome)

	_, termPull := collectUntilTerminal(t, ch, pull.ID())
	assert.Equal(t, events.OutcomeSucceeded, termPull.Outcome)
}

func TestCancelAll(t *testing.T) {
	backend := fakeBackend(t, `echo "10%" ; exec sleep 30`)
	sup, ch := newTestSupervisor(t, backend)

	op := sup.StartAssetPull("slow")
	waitForState(t, op, StateRunning)

	sup.CancelAll()
	_, term := collectUntilTerminal(t, ch, op.ID())
	assert.Equal(t, events.OutcomeCancelled, term.Outcome)
}
