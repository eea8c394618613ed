// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package runner launches external backend processes and exposes their
// combined stdout/stderr as a line stream.
//
// A Handle represents one execution: Start spawns the process, Lines
// yields its merged output until the process closes it, Terminate asks
// it to stop (force-killing after a grace period), and Wait reaps the
// exit status. Handles are single-use; a new Start call is required per
// execution.
package runner
