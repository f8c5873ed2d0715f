// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/gokkerz/roulette/internal/model"
	"github.com/gokkerz/roulette/internal/ui/styles"
)

// =============================================================================
// REASONING DISCLOSURE
// =============================================================================

const (
	// ReasoningActiveHeader is shown while reasoning text is arriving.
	ReasoningActiveHeader = "Reasoning"

	// ReasoningDoneHeader is the collapsed summary once streaming ends.
	ReasoningDoneHeader = "Reasoned for a few seconds"

	// RedactedPlaceholder stands in for redacted reasoning details.
	RedactedPlaceholder = "<redacted>"
)

// ReasoningDisclosure is the expand/collapse state of one reasoning block.
// The zero value is collapsed and idle.
//
// Expansion follows the reasoning flag whenever it changes: the block opens
// when reasoning starts and closes when it stops. In between, only Toggle
// changes it, and a toggle is honoured only when reasoning has stopped.
type ReasoningDisclosure struct {
	Expanded  bool
	Reasoning bool
}

// Sync applies the current reasoning flag.
func (d *ReasoningDisclosure) Sync(reasoning bool) {
	if reasoning == d.Reasoning {
		return
	}
	d.Reasoning = reasoning
	d.Expanded = reasoning
}

// Toggle flips expansion. It reports false and does nothing while
// reasoning is in progress.
func (d *ReasoningDisclosure) Toggle() bool {
	if d.Reasoning {
		return false
	}
	d.Expanded = !d.Expanded
	return true
}

// RenderReasoning renders a reasoning part under disclosure state d.
// frame is the current spinner frame, shown while reasoning.
func RenderReasoning(part model.Part, d ReasoningDisclosure, frame string, md *Markdown, theme *styles.Theme, width int) string {
	var header string
	if d.Reasoning {
		header = theme.ReasoningHeader.Render(ReasoningActiveHeader) + " " + frame
	} else {
		chevron := "▸"
		if d.Expanded {
			chevron = "▾"
		}
		header = theme.ReasoningHeader.Render(ReasoningDoneHeader) + " " +
			theme.ReasoningToggle.Render(chevron+" ctrl+r")
	}

	if !d.Expanded {
		return header
	}

	body := reasoningBody(part, md, theme, width-2)
	if body == "" {
		return header
	}
	return header + "\n" + theme.ReasoningBody.Render(body)
}

func reasoningBody(part model.Part, md *Markdown, theme *styles.Theme, width int) string {
	details := part.Details
	if len(details) == 0 && part.Reasoning != "" {
		details = []model.ReasoningDetail{{Type: model.DetailText, Text: part.Reasoning}}
	}

	blocks := make([]string, 0, len(details))
	for _, detail := range details {
		switch detail.Type {
		case model.DetailRedacted:
			blocks = append(blocks, theme.Redacted.Render(RedactedPlaceholder))
		default:
			if detail.Text != "" {
				blocks = append(blocks, md.Render(detail.Text, width))
			}
		}
	}
	return strings.Join(blocks, "\n\n")
}
