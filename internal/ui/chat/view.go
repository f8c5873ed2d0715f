// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/gokkerz/roulette/internal/model"
	"github.com/gokkerz/roulette/internal/ui/components"
)

// Title is shown in the header.
const Title = "Roul Ette"

// Rows used by the header, status line and input.
const chromeHeight = 4

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.opts.Theme.SetSize(width, height)

	m.viewport.Width = width
	m.viewport.Height = max(height-chromeHeight, 1)
	m.input.Width = max(width-4, 10)
	m.ready = true
	m.refresh()
}

// refresh re-renders the visible messages into the viewport. Bubbles whose
// props did not change come from the cache.
func (m *Model) refresh() {
	wrap := m.opts.Theme.BubbleWidth(m.opts.WordWrap)

	msgs := m.conv.Messages
	if len(msgs) > m.opts.MaxVisible {
		msgs = msgs[len(msgs)-m.opts.MaxVisible:]
	}

	keep := make(map[string]bool, len(msgs))
	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		keep[msg.ID] = true
		props := components.NewBubbleProps(msg, m.gate.Holds(msg.ID), m.disclosures[msg.ID], m.anim, wrap)
		block := m.cache.Render(msg.ID, props, m.bubble.Render)
		if text, ok := m.errs[msg.ID]; ok {
			block = lipgloss.JoinVertical(lipgloss.Left, block, m.opts.Theme.ErrorBox.Render(text))
		}
		blocks = append(blocks, m.align(msg, block))
	}
	m.cache.Retain(keep)
	for id := range m.disclosures {
		if !keep[id] {
			delete(m.disclosures, id)
		}
	}
	for id := range m.errs {
		if !keep[id] {
			delete(m.errs, id)
		}
	}

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
	if atBottom || m.streaming {
		m.viewport.GotoBottom()
	}
}

func (m *Model) align(msg *model.ConversationMessage, block string) string {
	if msg.Role != model.RoleUser || m.width == 0 {
		return block
	}
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, block)
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Laden..."
	}

	header := components.RenderHeader(m.opts.Theme, Title, m.modelName(), m.width)
	status := components.RenderStatusLine(m.opts.Theme, m.status, m.shortcuts(), m.width)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		status,
		m.input.View(),
	)
}

func (m Model) modelName() string {
	info, err := model.Supported.Resolve(m.opts.Model)
	if err != nil {
		return m.opts.Model.String()
	}
	return info.Name
}

func (m Model) shortcuts() []components.Shortcut {
	first := m.keys.Submit
	if m.streaming {
		first = m.keys.Cancel
	}
	bindings := []key.Binding{first, m.keys.ToggleReasoning, m.keys.Clear, m.keys.Quit}

	out := make([]components.Shortcut, len(bindings))
	for i, b := range bindings {
		out[i] = components.Shortcut{Key: b.Help().Key, Desc: b.Help().Desc}
	}
	return out
}
