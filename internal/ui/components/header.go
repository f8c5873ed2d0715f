// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gokkerz/roulette/internal/ui/styles"
	"github.com/gokkerz/roulette/internal/util"
)

// =============================================================================
// HEADER
// =============================================================================

// RenderHeader renders the title line with the model name right-aligned.
func RenderHeader(theme *styles.Theme, title, modelName string, width int) string {
	left := theme.HeaderTitle.Render(title)
	right := theme.HeaderModel.Render(modelName)

	gap := width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		right = theme.HeaderModel.Render(util.TruncateWidth(modelName, max(width-4-lipgloss.Width(left), 1)))
		gap = 1
	}
	return theme.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// STATUS LINE
// =============================================================================

// Shortcut is one key hint in the status line.
type Shortcut struct {
	Key  string
	Desc string
}

// RenderStatusLine renders status text followed by key hints, dropping
// hints from the end until the line fits.
func RenderStatusLine(theme *styles.Theme, status string, shortcuts []Shortcut, width int) string {
	hints := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		hints = append(hints, theme.ShortcutKey.Render(s.Key)+" "+theme.ShortcutDesc.Render(s.Desc))
	}

	for len(hints) > 0 {
		line := status + "  " + strings.Join(hints, "  ")
		if lipgloss.Width(line)+2 <= width {
			return theme.StatusBar.Width(width).Render(line)
		}
		hints = hints[:len(hints)-1]
	}
	return theme.StatusBar.Width(width).Render(util.TruncateWidth(status, max(width-2, 1)))
}
