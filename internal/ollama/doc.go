// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama talks to a local Ollama backend two ways: the CLI
// surface (the commands used to probe it, start it, and pull models)
// and the HTTP API used for streaming chat.
//
// The CLI surface is expressed as argument vectors so the supervisor
// can run them under its own process handling; this package never
// launches processes itself. The HTTP client streams NDJSON chat
// responses and delivers content chunks through a callback, with
// cancellation via context.
package ollama
