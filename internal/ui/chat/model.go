// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"github.com/privchat/privchat-tui/internal/config"
	"github.com/privchat/privchat-tui/internal/events"
	"github.com/privchat/privchat-tui/internal/model"
	prog "github.com/privchat/privchat-tui/internal/progress"
	"github.com/privchat/privchat-tui/internal/tasks"
	"github.com/privchat/privchat-tui/internal/ui/styles"
)

// phase is the top-level view state.
type phase int

const (
	phaseBooting phase = iota
	phaseReady
	phaseStreaming
	phaseFatal
)

// statusKind colors the status line.
type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusWarning
	statusError
)

// Model is the Bubble Tea model for the chat view.
type Model struct {
	cfg   *config.Config
	theme *styles.Theme
	sup   *tasks.Supervisor
	ch    *events.Channel
	log   zerolog.Logger

	conv *model.Conversation

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model
	bar      progress.Model
	renderer *glamour.TermRenderer

	width  int
	height int

	phase      phase
	status     string
	statusKind statusKind
	fatalErr   error

	modelIdx int
	roleIdx  int

	// Live operations, routed by ID when events are drained.
	healthOp *tasks.Operation
	pullOp   *tasks.Operation
	chatOp   *tasks.Operation

	pullSnap   prog.Snapshot
	modelReady bool
}

// New creates the chat view and kicks off the backend health check.
func New(cfg *config.Config, sup *tasks.Supervisor, ch *events.Channel, log zerolog.Logger) *Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 4000
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	theme := styles.NewTheme(cfg.UI.DarkTheme)
	spin.Style = theme.Spinner

	m := &Model{
		cfg:      cfg,
		theme:    theme,
		sup:      sup,
		ch:       ch,
		log:      log.With().Str("component", "chat").Logger(),
		conv:     model.NewConversation(cfg.RolePrompt(cfg.DefaultRole)),
		input:    input,
		spin:     spin,
		bar:      progress.New(progress.WithDefaultGradient()),
		phase:    phaseBooting,
		status:   "checking backend...",
		modelIdx: indexOf(cfg.Models, cfg.DefaultModel),
		roleIdx:  roleIndexOf(cfg.Roles, cfg.DefaultRole),
	}

	m.healthOp = sup.StartHealthCheck()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spin.Tick,
		textinput.Blink,
		waitForEvents(m.ch),
	)
}

// currentModel returns the selected model name.
func (m *Model) currentModel() string {
	if len(m.cfg.Models) == 0 {
		return m.cfg.DefaultModel
	}
	return m.cfg.Models[m.modelIdx%len(m.cfg.Models)]
}

// currentRole returns the selected persona.
func (m *Model) currentRole() config.Role {
	if len(m.cfg.Roles) == 0 {
		return config.Role{}
	}
	return m.cfg.Roles[m.roleIdx%len(m.cfg.Roles)]
}

// setStatus updates the status line.
func (m *Model) setStatus(kind statusKind, text string) {
	m.statusKind = kind
	m.status = text
}

func indexOf(items []string, want string) int {
	for i, it := range items {
		if it == want {
			return i
		}
	}
	return 0
}

func roleIndexOf(roles []config.Role, want string) int {
	for i, r := range roles {
		if r.Name == want {
			return i
		}
	}
	return 0
}
