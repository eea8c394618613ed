// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package runner

import (
	"bufio"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// TerminateGrace is how long a terminated process gets to exit on its
// own before it is force-killed.
const TerminateGrace = 3 * time.Second

// tailLines is the number of recent output lines kept for diagnostics.
const tailLines = 20

// maxLineBytes bounds a single output line; pull progress lines are
// short, but model manifests can emit long JSON-ish lines.
const maxLineBytes = 1024 * 1024

// =============================================================================
// HANDLE
// =============================================================================

// Handle is one running (or finished) external process. stdout and
// stderr are merged into a single line stream.
type Handle struct {
	name string
	cmd  *exec.Cmd
	out  *os.File

	lines      chan string
	readerDone chan struct{}

	tailMu sync.Mutex
	tail   []string

	termMu    sync.Mutex
	termOnce  sync.Once
	killTimer *time.Timer

	waitOnce sync.Once
	waitErr  error
}

// Start launches a child process with stdout and stderr merged into one
// readable stream. It returns a *LaunchError if the executable cannot
// be found or spawned.
func Start(name string, args ...string) (*Handle, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, &LaunchError{Command: name, Err: err}
	}

	cmd := exec.Command(path, args...)
	cmd.Env = os.Environ()
	cmd.Stdin = nil
	setSysProcAttr(cmd)

	// One pipe for both streams keeps output in write order and gives
	// us a single read end to release.
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, &LaunchError{Command: name, Err: err}
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, &LaunchError{Command: name, Err: err}
	}

	// The child holds the write end now; closing ours guarantees the
	// reader sees EOF when the child exits.
	pw.Close()

	h := &Handle{
		name:       name,
		cmd:        cmd,
		out:        pr,
		lines:      make(chan string),
		readerDone: make(chan struct{}),
	}
	go h.readLoop()
	return h, nil
}

// StartDetached launches a process that outlives this program, with no
// captured I/O. Used to daemonize the backend server. Returns the pid.
func StartDetached(name string, args ...string) (int, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return 0, &LaunchError{Command: name, Err: err}
	}

	cmd := exec.Command(path, args...)
	cmd.Env = os.Environ()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return 0, &LaunchError{Command: name, Err: err}
	}

	pid := cmd.Process.Pid
	// Release so the child keeps running after we exit. A failed
	// release is non-fatal: the process is already independent.
	_ = cmd.Process.Release()
	return pid, nil
}

// =============================================================================
// OUTPUT STREAM
// =============================================================================

// readLoop pumps the merged output pipe into the lines channel.
// It is the only closer of the read end, so I/O handles are released
// exactly once no matter how the process ends.
func (h *Handle) readLoop() {
	defer close(h.readerDone)
	defer h.out.Close()
	defer close(h.lines)

	sc := bufio.NewScanner(h.out)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Text()
		h.recordTail(line)
		h.lines <- line
	}
}

// Lines returns the merged output stream. The channel is closed when
// the process closes its output. Consume it until closed, or stop and
// call Wait, which drains the remainder. Do not do both concurrently.
func (h *Handle) Lines() <-chan string {
	return h.lines
}

func (h *Handle) recordTail(line string) {
	h.tailMu.Lock()
	defer h.tailMu.Unlock()
	h.tail = append(h.tail, line)
	if len(h.tail) > tailLines {
		h.tail = h.tail[len(h.tail)-tailLines:]
	}
}

// Tail returns the most recent output lines, newline-joined.
func (h *Handle) Tail() string {
	h.tailMu.Lock()
	defer h.tailMu.Unlock()
	return strings.Join(h.tail, "\n")
}

// =============================================================================
// TERMINATION
// =============================================================================

// Terminate requests graceful shutdown and arms a timer that
// force-kills the process if it has not exited within TerminateGrace.
// Safe to call multiple times and after exit.
func (h *Handle) Terminate() {
	h.termOnce.Do(func() {
		if h.cmd.Process == nil {
			return
		}
		_ = terminate(h.cmd)
		h.termMu.Lock()
		h.killTimer = time.AfterFunc(TerminateGrace, h.Kill)
		h.termMu.Unlock()
	})
}

// Kill forces immediate termination. Safe to call after exit.
func (h *Handle) Kill() {
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
}

// =============================================================================
// EXIT STATUS
// =============================================================================

// Wait blocks until the process exits and returns nil on success or an
// *ExecutionError carrying the exit code (or -1 if signal-killed) and
// the output tail. Wait drains any unconsumed output lines first, so it
// is safe to stop reading Lines early. Idempotent.
func (h *Handle) Wait() error {
	h.waitOnce.Do(func() {
		// Release the read loop if the consumer stopped early.
		go func() {
			for range h.lines {
			}
		}()
		<-h.readerDone

		err := h.cmd.Wait()

		h.termMu.Lock()
		if h.killTimer != nil {
			h.killTimer.Stop()
		}
		h.termMu.Unlock()

		if err == nil {
			return
		}
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		h.waitErr = &ExecutionError{
			Command:  h.name,
			ExitCode: code,
			Tail:     h.Tail(),
			Err:      err,
		}
	})
	return h.waitErr
}
