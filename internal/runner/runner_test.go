// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows

package runner

import (
	"errors"
	"testing"
	"time"
)

func TestStartUnknownCommand(t *testing.T) {
	_, err := Start("privchat-no-such-command-xyz")
	if err == nil {
		t.Fatal("expected an error for an unknown command")
	}
	var le *LaunchError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LaunchError, got %T: %v", err, err)
	}
	if !IsLaunch(err) {
		t.Error("IsLaunch should report true")
	}
}

func TestLinesAndWaitSuccess(t *testing.T) {
	h, err := Start("sh", "-c", "echo one; echo two 1>&2; echo three")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var got []string
	for line := range h.Lines() {
		got = append(got, line)
	}
	if err := h.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 merged lines, got %d: %q", len(got), got)
	}
	// stdout ordering is preserved; stderr interleaves at write order
	// through the shared pipe.
	if got[0] != "one" {
		t.Errorf("first line = %q, want %q", got[0], "one")
	}
}

func TestWaitNonZeroExit(t *testing.T) {
	h, err := Start("sh", "-c", "echo broken manifest; exit 3")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	for range h.Lines() {
	}

	err = h.Wait()
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *ExecutionError, got %T: %v", err, err)
	}
	if ee.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", ee.ExitCode)
	}
	if ee.Tail != "broken manifest" {
		t.Errorf("Tail = %q, want diagnostic line", ee.Tail)
	}
}

func TestWaitDrainsUnconsumedOutput(t *testing.T) {
	h, err := Start("sh", "-c", "seq 1 500")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Read one line, then stop consuming; Wait must not deadlock.
	<-h.Lines()
	if err := h.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestTerminateStopsHungProcess(t *testing.T) {
	h, err := Start("sh", "-c", "echo started; exec sleep 60")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-h.Lines()

	h.Terminate()

	done := make(chan error, 1)
	go func() { done <- h.Wait() }()
	select {
	case err := <-done:
		var ee *ExecutionError
		if !errors.As(err, &ee) {
			t.Fatalf("expected *ExecutionError after terminate, got %v", err)
		}
		if ee.ExitCode >= 0 && ee.ExitCode != 143 {
			t.Errorf("unexpected exit code %d for terminated process", ee.ExitCode)
		}
	case <-time.After(TerminateGrace + 5*time.Second):
		t.Fatal("process was not stopped within the grace period")
	}
}

func TestWaitIdempotent(t *testing.T) {
	h, err := Start("sh", "-c", "exit 1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := h.Wait()
	second := h.Wait()
	if first == nil || second == nil {
		t.Fatal("expected errors from both Wait calls")
	}
	if first != second {
		t.Error("Wait should return the same error on repeated calls")
	}
}

func TestStartDetached(t *testing.T) {
	pid, err := StartDetached("sh", "-c", "exit 0")
	if err != nil {
		t.Fatalf("StartDetached: %v", err)
	}
	if pid <= 0 {
		t.Errorf("pid = %d, want > 0", pid)
	}

	if _, err := StartDetached("privchat-no-such-command-xyz"); !IsLaunch(err) {
		t.Errorf("expected LaunchError, got %v", err)
	}
}
