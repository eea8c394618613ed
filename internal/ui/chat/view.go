// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/privchat/privchat-tui/internal/model"
	"github.com/privchat/privchat-tui/internal/util"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.phase == phaseFatal {
		return m.viewFatal()
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.viewStatus())
	b.WriteString("\n")
	b.WriteString(m.viewInput())
	b.WriteString("\n")
	b.WriteString(m.viewHelp())
	return b.String()
}

func (m *Model) viewHeader() string {
	title := m.theme.Header.Render("privchat")
	modelName := m.theme.HeaderModel.Render(m.currentModel())
	role := m.theme.HeaderRole.Render(m.currentRole().Name + " · " + m.theme.Name())
	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", modelName, "  ", role)
}

func (m *Model) viewStatus() string {
	var parts []string

	busy := m.phase == phaseBooting || m.phase == phaseStreaming || m.pullOp != nil
	if busy {
		parts = append(parts, m.spin.View())
	}

	if m.status != "" {
		style := m.theme.Status
		switch m.statusKind {
		case statusSuccess:
			style = m.theme.StatusSuccess
		case statusWarning:
			style = m.theme.StatusWarning
		case statusError:
			style = m.theme.StatusError
		}
		parts = append(parts, style.Render(util.TruncateWidth(m.status, m.width-20)))
	}

	if m.pullOp != nil {
		parts = append(parts,
			m.bar.ViewAs(float64(m.pullSnap.Percent)/100),
			m.theme.ProgressLabel.Render(m.pullSnap.Label()),
		)
	}

	return strings.Join(parts, " ")
}

func (m *Model) viewInput() string {
	return m.theme.InputPrompt.Render("> ") + m.input.View()
}

func (m *Model) viewHelp() string {
	keys := [][2]string{
		{"enter", "send"},
		{"esc", "stop"},
		{"^p", "model"},
		{"^r", "role"},
		{"^t", "theme"},
		{"^c", "quit"},
	}
	var parts []string
	for _, k := range keys {
		parts = append(parts, m.theme.HelpKey.Render(k[0])+" "+m.theme.HelpDesc.Render(k[1]))
	}
	return m.theme.HelpDesc.Render("  ") + strings.Join(parts, m.theme.HelpDesc.Render("  ·  "))
}

func (m *Model) viewFatal() string {
	msg := "backend unavailable"
	if m.fatalErr != nil {
		msg = m.fatalErr.Error()
	}
	box := m.theme.FatalBox.Render(
		"privchat could not reach its backend\n\n" +
			msg + "\n\n" +
			"Is Ollama installed? (https://ollama.com)\n" +
			"Press q to quit.",
	)
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

// =============================================================================
// CONVERSATION RENDERING
// =============================================================================

// refreshViewport re-renders the history into the viewport.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderConversation())
}

func (m *Model) renderConversation() string {
	var b strings.Builder
	for _, msg := range m.conv.History() {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderMessage(msg *model.Message) string {
	switch msg.Role {
	case model.RoleSystem:
		return m.theme.SystemLabel.Render("· " + util.TruncateRunes(util.FirstLine(msg.Content), 80))

	case model.RoleUser:
		return m.theme.UserLabel.Render(msg.Role.DisplayName()) + "\n" +
			m.theme.MessageBody.Render(msg.Content) + "\n"

	case model.RoleAssistant:
		label := m.theme.AssistantLabel.Render(msg.Role.DisplayName())
		if msg.IsStreaming {
			// Plain text while streaming; markdown is rendered once
			// the message is final.
			body := msg.GetDisplayContent()
			if body == "" {
				return label + " " + m.spin.View() + "\n"
			}
			return label + "\n" + m.theme.MessageBody.Render(body) +
				m.theme.StreamCursor.Render("▌") + "\n"
		}
		return label + "\n" + m.renderMarkdown(msg.Content) + "\n"
	}
	return ""
}

// renderMarkdown renders finalized assistant content, falling back to
// plain text when the renderer is unavailable or fails.
func (m *Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return m.theme.MessageBody.Render(content)
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return m.theme.MessageBody.Render(content)
	}
	return strings.TrimRight(out, "\n")
}
