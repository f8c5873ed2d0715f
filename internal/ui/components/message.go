// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gokkerz/roulette/internal/model"
	"github.com/gokkerz/roulette/internal/ui/styles"
)

// =============================================================================
// MESSAGE BUBBLE COMPONENT
// =============================================================================

// BubbleProps is everything a bubble's output depends on. Two deep-equal
// props render identically.
type BubbleProps struct {
	Message model.ConversationMessage

	// Typing holds back the text behind the typing indicator
	Typing bool

	// Reasoning holds one disclosure per reasoning part, in part order
	Reasoning []ReasoningDisclosure

	// Dots and Frame are animation frames, set only while they are shown
	Dots  string
	Frame string

	// Width is the content width in cells
	Width int
}

// NewBubbleProps builds props for msg. Animation frames are copied from
// anim only when the bubble shows them, so idle bubbles stay equal across
// ticks.
func NewBubbleProps(msg *model.ConversationMessage, typing bool, reasoning []ReasoningDisclosure, anim TypingIndicator, width int) BubbleProps {
	p := BubbleProps{
		Message:   *msg,
		Typing:    typing,
		Reasoning: reasoning,
		Width:     width,
	}
	if typing {
		p.Dots = anim.Dots()
	}
	for _, d := range reasoning {
		if d.Reasoning {
			p.Frame = anim.ReasoningFrame()
			break
		}
	}
	return p
}

// MessageBubble renders conversation messages.
type MessageBubble struct {
	theme *styles.Theme
	md    *Markdown
}

// NewMessageBubble creates a bubble renderer.
func NewMessageBubble(theme *styles.Theme, md *Markdown) *MessageBubble {
	return &MessageBubble{theme: theme, md: md}
}

// Render renders one message.
func (b *MessageBubble) Render(p BubbleProps) string {
	label := b.theme.RoleLabel.Render(p.Message.Role.DisplayName())

	if p.Message.Role == model.RoleUser {
		body := b.md.Render(p.Message.Text(), p.Width)
		return lipgloss.JoinVertical(lipgloss.Right, label, b.theme.UserBubble.Render(body))
	}

	body := b.renderAssistant(p)
	return lipgloss.JoinVertical(lipgloss.Left, label, b.theme.AssistantBubble.Render(body))
}

func (b *MessageBubble) renderAssistant(p BubbleProps) string {
	var blocks []string
	reasoningIdx := 0

	for _, part := range p.Message.Normalized() {
		switch part.Type {
		case model.PartReasoning:
			var d ReasoningDisclosure
			if reasoningIdx < len(p.Reasoning) {
				d = p.Reasoning[reasoningIdx]
			}
			reasoningIdx++
			blocks = append(blocks, RenderReasoning(part, d, p.Frame, b.md, b.theme, p.Width))

		case model.PartText:
			if p.Typing || part.Text == "" {
				continue
			}
			blocks = append(blocks, b.md.Render(part.Text, p.Width))

		case model.PartToolInvocation:
			blocks = append(blocks, RenderToolInvocation(part.ToolInvocation, b.theme, p.Width))
		}
	}

	if p.Typing {
		blocks = append(blocks, p.Dots)
	}
	if len(blocks) == 0 {
		return b.theme.Muted.Render("…")
	}
	return strings.Join(blocks, "\n\n")
}
