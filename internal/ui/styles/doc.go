// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for the privchat TUI.
//
// Two palettes are defined, night and day, mirroring the theme toggle
// in the chat view. All lipgloss styles hang off a Theme so the whole
// look switches atomically.
package styles
