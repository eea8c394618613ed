// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events is the boundary between background workers and the
// single-threaded presentation loop.
//
// Workers Post events from any goroutine; the presentation loop alone
// calls Drain. Events for a given task are delivered in the order they
// were posted, never lost and never duplicated. The queue is unbounded:
// event volume is capped by the line rate of subprocess output, so
// back-pressure is not a concern here.
package events
