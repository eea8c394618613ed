// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// PALETTES
// =============================================================================

// palette holds the raw colors for one theme variant.
type palette struct {
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Surface    lipgloss.Color
	UserFg     lipgloss.Color
	AssistFg   lipgloss.Color
	SystemFg   lipgloss.Color
	SuccessFg  lipgloss.Color
	WarningFg  lipgloss.Color
	ErrorFg    lipgloss.Color
	ProgressFg lipgloss.Color
}

var nightPalette = palette{
	Accent:     lipgloss.Color("#7C3AED"),
	Secondary:  lipgloss.Color("#22D3EE"),
	Text:       lipgloss.Color("#E5E7EB"),
	Muted:      lipgloss.Color("#6B7280"),
	Surface:    lipgloss.Color("#1F2937"),
	UserFg:     lipgloss.Color("#22D3EE"),
	AssistFg:   lipgloss.Color("#A78BFA"),
	SystemFg:   lipgloss.Color("#9CA3AF"),
	SuccessFg:  lipgloss.Color("#34D399"),
	WarningFg:  lipgloss.Color("#FBBF24"),
	ErrorFg:    lipgloss.Color("#F87171"),
	ProgressFg: lipgloss.Color("#34D399"),
}

var dayPalette = palette{
	Accent:     lipgloss.Color("#6D28D9"),
	Secondary:  lipgloss.Color("#0E7490"),
	Text:       lipgloss.Color("#111827"),
	Muted:      lipgloss.Color("#6B7280"),
	Surface:    lipgloss.Color("#F3F4F6"),
	UserFg:     lipgloss.Color("#0E7490"),
	AssistFg:   lipgloss.Color("#6D28D9"),
	SystemFg:   lipgloss.Color("#4B5563"),
	SuccessFg:  lipgloss.Color("#059669"),
	WarningFg:  lipgloss.Color("#B45309"),
	ErrorFg:    lipgloss.Color("#DC2626"),
	ProgressFg: lipgloss.Color("#059669"),
}

// =============================================================================
// THEME
// =============================================================================

// Theme holds the styled components for the application.
type Theme struct {
	Dark         bool
	ColorProfile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderModel lipgloss.Style
	HeaderRole  lipgloss.Style

	// Message labels and bodies
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	MessageBody    lipgloss.Style
	StreamCursor   lipgloss.Style

	// Status line
	Status        lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style
	ProgressLabel lipgloss.Style
	Spinner       lipgloss.Style

	// Input area
	InputPrompt lipgloss.Style
	InputText   lipgloss.Style

	// Help line
	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style

	// Fatal error screen
	FatalBox lipgloss.Style
}

// NewTheme creates a theme for the given variant.
func NewTheme(dark bool) *Theme {
	t := &Theme{
		Dark:         dark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// Toggle returns the theme's opposite variant.
func (t *Theme) Toggle() *Theme {
	return NewTheme(!t.Dark)
}

// Name returns the variant name for display.
func (t *Theme) Name() string {
	if t.Dark {
		return "night"
	}
	return "day"
}

// initStyles initializes all lipgloss styles from the active palette.
func (t *Theme) initStyles() {
	p := dayPalette
	if t.Dark {
		p = nightPalette
	}

	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(p.Muted).
		Padding(0, 1)

	t.HeaderModel = lipgloss.NewStyle().
		Foreground(p.Secondary).
		Bold(true)

	t.HeaderRole = lipgloss.NewStyle().
		Foreground(p.Muted).
		Italic(true)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(p.UserFg).
		Bold(true)

	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(p.AssistFg).
		Bold(true)

	t.SystemLabel = lipgloss.NewStyle().
		Foreground(p.SystemFg).
		Italic(true)

	t.MessageBody = lipgloss.NewStyle().
		Foreground(p.Text)

	t.StreamCursor = lipgloss.NewStyle().
		Foreground(p.Accent).
		Blink(true)

	t.Status = lipgloss.NewStyle().
		Foreground(p.Muted).
		Padding(0, 1)

	t.StatusSuccess = lipgloss.NewStyle().
		Foreground(p.SuccessFg)

	t.StatusWarning = lipgloss.NewStyle().
		Foreground(p.WarningFg)

	t.StatusError = lipgloss.NewStyle().
		Foreground(p.ErrorFg).
		Bold(true)

	t.ProgressLabel = lipgloss.NewStyle().
		Foreground(p.ProgressFg)

	t.Spinner = lipgloss.NewStyle().
		Foreground(p.Accent)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(p.Secondary).
		Bold(true)

	t.InputText = lipgloss.NewStyle().
		Foreground(p.Text)

	t.HelpKey = lipgloss.NewStyle().
		Foreground(p.Secondary).
		Bold(true)

	t.HelpDesc = lipgloss.NewStyle().
		Foreground(p.Muted)

	t.FatalBox = lipgloss.NewStyle().
		Foreground(p.ErrorFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.ErrorFg).
		Padding(1, 2)
}
