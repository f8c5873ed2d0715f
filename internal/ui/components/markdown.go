// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// Markdown renders markdown for terminal display with glamour. Renderers
// are built lazily per wrap width. Safe for concurrent use.
type Markdown struct {
	mu        sync.Mutex
	style     string
	renderers map[int]*glamour.TermRenderer
}

// NewMarkdown creates a markdown renderer. An empty style selects glamour's
// auto style (dark or light by terminal background).
func NewMarkdown(style string) *Markdown {
	return &Markdown{style: style, renderers: make(map[int]*glamour.TermRenderer)}
}

func (m *Markdown) renderer(width int) *glamour.TermRenderer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.renderers[width]; ok {
		return r
	}

	styleOpt := glamour.WithAutoStyle()
	if m.style != "" {
		styleOpt = glamour.WithStandardStyle(m.style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		// Cache the failure so plain text is used from now on
		r = nil
	}
	m.renderers[width] = r
	return r
}

// Render renders content wrapped at width. It falls back to word-wrapped
// plain text when glamour cannot render.
func (m *Markdown) Render(content string, width int) string {
	if content == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}

	if m != nil {
		if r := m.renderer(width); r != nil {
			if out, err := r.Render(content); err == nil {
				return strings.Trim(out, "\n")
			}
		}
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}
