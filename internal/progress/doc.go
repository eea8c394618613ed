// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package progress extracts structured download progress from the
// unstructured text a backend pull command prints.
//
// Parsing is deliberately tolerant: lines that match nothing are not
// errors, they simply re-emit the last known snapshot so the UI always
// has a current value to render.
package progress
