// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

// Defaults for a stock local install.
//
// The explicit IPv4 address avoids IPv6 resolution issues with
// "localhost" on Windows.
const (
	DefaultExe = "ollama"
	DefaultURL = "http://127.0.0.1:11434"
)

// Backend describes how to reach a local Ollama install: the
// executable for CLI operations and the base URL for the HTTP API.
type Backend struct {
	Exe string
	URL string
}

// NewBackend fills in defaults for empty fields.
func NewBackend(exe, url string) Backend {
	if exe == "" {
		exe = DefaultExe
	}
	if url == "" {
		url = DefaultURL
	}
	return Backend{Exe: exe, URL: url}
}

// ProbeCommand returns the command that succeeds only when the daemon
// is up. `ollama list` exits non-zero when it cannot reach the server.
func (b Backend) ProbeCommand() (string, []string) {
	return b.Exe, []string{"list"}
}

// ServeCommand returns the command that runs the daemon in the
// foreground. Callers are expected to detach it.
func (b Backend) ServeCommand() (string, []string) {
	return b.Exe, []string{"serve"}
}

// PullCommand returns the command that downloads a model, emitting
// progress lines on stderr.
func (b Backend) PullCommand(model string) (string, []string) {
	return b.Exe, []string{"pull", model}
}

// Client returns an HTTP client bound to this backend's URL.
func (b Backend) Client() *Client {
	return NewClient(b.URL)
}
