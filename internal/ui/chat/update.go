// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/privchat/privchat-tui/internal/config"
	"github.com/privchat/privchat-tui/internal/events"
	prog "github.com/privchat/privchat-tui/internal/progress"
	"github.com/privchat/privchat-tui/internal/tasks"
	"github.com/privchat/privchat-tui/internal/ui/styles"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventsReadyMsg:
		for _, ev := range m.ch.Drain() {
			m.applyEvent(ev)
		}
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, waitForEvents(m.ch)

	case ConfigReloadedMsg:
		m.applyConfig(msg.Config)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// WINDOW AND KEYS
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 2
	footerHeight := 4
	vpHeight := msg.Height - headerHeight - footerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = msg.Width
	m.viewport.Height = vpHeight
	m.input.Width = msg.Width - 4
	m.bar.Width = msg.Width / 3

	// Markdown wraps to the window, so the renderer follows resizes.
	wrap := msg.Width - 4
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		m.renderer = renderer
	}

	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.sup.CancelAll()
		return m, tea.Quit

	case "q":
		if m.phase == phaseFatal {
			return m, tea.Quit
		}

	case "enter":
		return m.submit()

	case "esc":
		if m.phase == phaseStreaming && m.chatOp != nil {
			m.chatOp.Cancel()
			m.setStatus(statusWarning, "stopping generation...")
			return m, nil
		}

	case "ctrl+p":
		return m.cycleModel()

	case "ctrl+r":
		return m.cycleRole()

	case "ctrl+t":
		m.theme = m.theme.Toggle()
		m.spin.Style = m.theme.Spinner
		m.setStatus(statusInfo, "theme: "+m.theme.Name())
		m.refreshViewport()
		return m, nil

	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.phase == phaseFatal {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the typed message to the model.
func (m *Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.phase != phaseReady {
		m.setStatus(statusWarning, "busy, hang on")
		return m, nil
	}
	if !m.modelReady {
		m.setStatus(statusWarning, "model not pulled yet")
		return m, nil
	}

	m.conv.AddUserMessage(text)

	// Snapshot before the placeholder so the empty assistant turn
	// never reaches the backend.
	req := m.conv.Request(m.currentModel(), m.cfg.Generation.Temperature, m.cfg.Generation.MaxTokens)
	m.conv.AddAssistantPlaceholder()

	m.chatOp = m.sup.StartInference(req)
	m.phase = phaseStreaming
	m.setStatus(statusInfo, "generating...")

	m.input.Reset()
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, nil
}

// cycleModel selects the next model in the catalog and pulls it.
// Starting the pull supersedes any pull in flight.
func (m *Model) cycleModel() (tea.Model, tea.Cmd) {
	if len(m.cfg.Models) == 0 || m.phase == phaseBooting || m.phase == phaseFatal {
		return m, nil
	}
	m.modelIdx = (m.modelIdx + 1) % len(m.cfg.Models)
	m.modelReady = false
	m.pullSnap = prog.Snapshot{}
	m.pullOp = m.sup.StartAssetPull(m.currentModel())
	m.setStatus(statusInfo, "pulling "+m.currentModel())
	return m, nil
}

// cycleRole selects the next persona. The history restarts from a
// fresh system turn so the old persona cannot bleed through.
func (m *Model) cycleRole() (tea.Model, tea.Cmd) {
	if len(m.cfg.Roles) == 0 || m.phase == phaseFatal {
		return m, nil
	}
	if m.phase == phaseStreaming && m.chatOp != nil {
		m.chatOp.Cancel()
		m.phase = phaseReady
		m.chatOp = nil
	}
	m.roleIdx = (m.roleIdx + 1) % len(m.cfg.Roles)
	role := m.currentRole()
	m.conv.ReplaceSystemPrompt(role.Prompt)
	m.setStatus(statusInfo, "role: "+role.Name)
	m.refreshViewport()
	return m, nil
}

// applyConfig swaps in a reloaded config, keeping the current model
// and role selections when they still exist.
func (m *Model) applyConfig(cfg *config.Config) {
	curModel := m.currentModel()
	curRole := m.currentRole().Name

	m.cfg = cfg
	m.modelIdx = indexOf(cfg.Models, curModel)
	m.roleIdx = roleIndexOf(cfg.Roles, curRole)
	if m.theme.Dark != cfg.UI.DarkTheme {
		m.theme = styles.NewTheme(cfg.UI.DarkTheme)
		m.spin.Style = m.theme.Spinner
	}
	m.setStatus(statusInfo, "config reloaded")
	m.refreshViewport()
}

// =============================================================================
// EVENT ROUTING
// =============================================================================

// applyEvent routes one drained event by task ID.
func (m *Model) applyEvent(ev events.Event) {
	switch ev := ev.(type) {
	case events.LogEvent:
		if m.isLive(ev.TaskID) {
			m.setStatus(statusInfo, ev.Message)
		}

	case events.ProgressEvent:
		if m.pullOp != nil && ev.TaskID == m.pullOp.ID() {
			m.pullSnap = ev.Snapshot
		}

	case events.ChunkEvent:
		if m.chatOp != nil && ev.TaskID == m.chatOp.ID() {
			if err := m.conv.AppendToLast(ev.Token); err != nil {
				m.log.Warn().Err(err).Msg("dropped stream token")
			}
		}

	case events.TerminalEvent:
		m.applyTerminal(ev)
	}
}

func (m *Model) applyTerminal(ev events.TerminalEvent) {
	switch {
	case m.healthOp != nil && ev.TaskID == m.healthOp.ID():
		m.healthOp = nil
		if ev.Outcome != events.OutcomeSucceeded {
			m.phase = phaseFatal
			m.fatalErr = ev.Err
			return
		}
		m.phase = phaseReady
		m.setStatus(statusSuccess, ev.Message)
		// The backend is up; make sure the selected model is local.
		m.pullOp = m.sup.StartAssetPull(m.currentModel())

	case m.pullOp != nil && ev.TaskID == m.pullOp.ID():
		m.pullOp = nil
		switch ev.Outcome {
		case events.OutcomeSucceeded:
			m.modelReady = true
			m.setStatus(statusSuccess, ev.Message)
		case events.OutcomeCancelled:
			m.setStatus(statusWarning, ev.Message)
		default:
			m.setStatus(statusError, terminalError(ev))
		}

	case m.chatOp != nil && ev.TaskID == m.chatOp.ID():
		m.chatOp = nil
		m.conv.FinalizeLast()
		m.phase = phaseReady
		switch ev.Outcome {
		case events.OutcomeSucceeded:
			m.setStatus(statusInfo, "")
		case events.OutcomeCancelled:
			m.setStatus(statusWarning, "generation stopped")
		default:
			m.setStatus(statusError, terminalError(ev))
		}

	default:
		// Terminal event for a superseded operation. Its state is
		// already obsolete; just log it.
		m.log.Debug().
			Str("op", ev.TaskID).
			Str("outcome", ev.Outcome.String()).
			Msg("terminal event for superseded operation")
	}
}

// isLive reports whether the task ID belongs to a tracked operation.
func (m *Model) isLive(taskID string) bool {
	for _, op := range []*tasks.Operation{m.healthOp, m.pullOp, m.chatOp} {
		if op != nil && op.ID() == taskID {
			return true
		}
	}
	return false
}

func terminalError(ev events.TerminalEvent) string {
	if ev.Err != nil {
		return ev.Message + ": " + ev.Err.Error()
	}
	return ev.Message
}
