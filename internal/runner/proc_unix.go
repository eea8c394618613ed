// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows
// +build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr puts the child in its own process group so it can be
// signalled independently of our terminal session.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// terminate requests graceful shutdown via SIGTERM.
func terminate(cmd *exec.Cmd) error {
	return cmd.Process.Signal(syscall.SIGTERM)
}
