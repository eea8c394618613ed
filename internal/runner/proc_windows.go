// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows
// +build windows

package runner

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr hides the console window the child would otherwise
// flash on Windows.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow: true,
	}
}

// terminate has no graceful signal on Windows; kill outright.
func terminate(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
