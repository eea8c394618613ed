// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the conversation:
// roles, messages, the ordered history, and the immutable request
// snapshot handed to the inference stream.
//
// The conversation is owned by the presentation loop and is not
// goroutine-safe; background workers only ever see Request snapshots.
package model
