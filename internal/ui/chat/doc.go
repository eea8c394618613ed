// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view.
//
// The Update loop is the presentation context: it owns the
// conversation and all view state. Background operations never touch
// the UI directly; they post to the shared event channel, and the view
// drains it from Update when its ready signal fires. Drained events
// are routed by task ID to the operation that produced them.
package chat
