// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components of the chat client.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER / STATUS STYLES
	// ==========================================================================

	Header       lipgloss.Style
	HeaderTitle  lipgloss.Style
	HeaderModel  lipgloss.Style
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	RoleLabel       lipgloss.Style
	TypingDots      lipgloss.Style

	// ==========================================================================
	// REASONING STYLES
	// ==========================================================================

	ReasoningHeader lipgloss.Style
	ReasoningBody   lipgloss.Style
	ReasoningToggle lipgloss.Style
	Redacted        lipgloss.Style
	Spinner         lipgloss.Style

	// ==========================================================================
	// TOOL STYLES
	// ==========================================================================

	ToolCall   lipgloss.Style
	ToolResult lipgloss.Style

	// ==========================================================================
	// INPUT / ERROR STYLES
	// ==========================================================================

	InputPrompt lipgloss.Style
	ErrorBox    lipgloss.Style
	Muted       lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()

	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header and status bar
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.HeaderModel = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Message bubbles
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1).
		MarginLeft(4)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1).
		MarginRight(4)

	t.RoleLabel = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)

	t.TypingDots = lipgloss.NewStyle().
		Foreground(Purple)

	// Reasoning
	t.ReasoningHeader = lipgloss.NewStyle().
		Foreground(ReasoningFg).
		Italic(true)

	t.ReasoningBody = lipgloss.NewStyle().
		Foreground(ReasoningFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ReasoningBorder).
		BorderLeft(true).
		PaddingLeft(1)

	t.ReasoningToggle = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Redacted = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	// Tools
	t.ToolCall = lipgloss.NewStyle().
		Foreground(Amber)

	t.ToolResult = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Emerald).
		BorderLeft(true).
		PaddingLeft(1)

	// Input and errors
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ErrorBox = lipgloss.NewStyle().
		Foreground(Rose).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Rose).
		BorderLeft(true).
		PaddingLeft(1)

	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// BubbleWidth returns the content width for message bubbles, capped at
// wrap columns. Borders, padding and margin take 8 columns.
func (t *Theme) BubbleWidth(wrap int) int {
	w := t.Width - 8
	if wrap > 0 && w > wrap {
		w = wrap
	}
	if w < 20 {
		w = 20
	}
	return w
}
