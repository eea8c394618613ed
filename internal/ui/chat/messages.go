// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/privchat/privchat-tui/internal/config"
	"github.com/privchat/privchat-tui/internal/events"
)

// EventsReadyMsg signals that the event channel has something to
// drain. The drain happens in Update, never here.
type EventsReadyMsg struct{}

// ConfigReloadedMsg delivers a freshly loaded config after the file
// changed on disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// waitForEvents blocks until the event channel signals readiness. The
// returned command is re-issued after every drain so the pipeline
// keeps flowing.
func waitForEvents(ch *events.Channel) tea.Cmd {
	return func() tea.Msg {
		<-ch.Ready()
		return EventsReadyMsg{}
	}
}
