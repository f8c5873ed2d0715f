// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gokkerz/roulette/internal/ui/styles"
)

// =============================================================================
// TYPING INDICATOR
// =============================================================================

// TypingIndicator animates the typing placeholder. It also drives the
// reasoning spinner frame so a single tick source serves both.
type TypingIndicator struct {
	dots      spinner.Model
	reasoning spinner.Model
}

// NewTypingIndicator creates a typing indicator styled by theme.
func NewTypingIndicator(theme *styles.Theme) TypingIndicator {
	dots := spinner.New()
	dots.Spinner = styles.TypingDots.Spinner()

	reasoning := spinner.New()
	reasoning.Spinner = styles.ReasoningSpinner.Spinner()

	if theme != nil {
		dots.Style = theme.TypingDots
		reasoning.Style = theme.Spinner
	}
	return TypingIndicator{dots: dots, reasoning: reasoning}
}

// Tick starts both animations.
func (t TypingIndicator) Tick() tea.Cmd {
	return tea.Batch(t.dots.Tick, t.reasoning.Tick)
}

// Update advances whichever spinner the tick belongs to. Ticks for other
// spinners are ignored by bubbles.
func (t TypingIndicator) Update(msg tea.Msg) (TypingIndicator, tea.Cmd) {
	var cmdDots, cmdReasoning tea.Cmd
	t.dots, cmdDots = t.dots.Update(msg)
	t.reasoning, cmdReasoning = t.reasoning.Update(msg)
	return t, tea.Batch(cmdDots, cmdReasoning)
}

// Dots returns the current typing frame.
func (t TypingIndicator) Dots() string {
	return t.dots.View()
}

// ReasoningFrame returns the current reasoning spinner frame.
func (t TypingIndicator) ReasoningFrame() string {
	return t.reasoning.View()
}
