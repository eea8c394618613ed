// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks supervises the background operations the chat client
// runs against its backend: the health check, model pulls, and
// streaming inference.
//
// At most one operation of each kind is live at a time. Starting a new
// operation of a kind supersedes the previous one: it is cancelled and
// replaced immediately, without waiting for its goroutine to unwind.
// Every operation reports exactly one terminal event (succeeded,
// cancelled, or failed) on the shared event channel, and a superseded
// operation reports cancelled even if its process happened to exit
// cleanly first.
//
// Cancellation is cooperative, through a tri-state Token: cancel and
// finish both release waiters, but only cancel marks the operation as
// abandoned. Tokens are one-way; the first transition wins.
package tasks
