// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/gokkerz/roulette/internal/model"
	"github.com/gokkerz/roulette/internal/ui/styles"
	"github.com/gokkerz/roulette/internal/util"
)

// =============================================================================
// TOOL INVOCATION VIEW
// =============================================================================

// maxToolResultLines caps the rendered result preview.
const maxToolResultLines = 8

// RenderToolInvocation renders a tool call and, once known, its result.
func RenderToolInvocation(inv *model.ToolInvocation, theme *styles.Theme, width int) string {
	if inv == nil {
		return ""
	}

	call := fmt.Sprintf("⚙ %s(%s)", inv.ToolName, compactArgs(inv.Args))
	call = util.TruncateWidth(call, width)

	if inv.State != model.ToolStateResult {
		return theme.ToolCall.Render(call + " …")
	}

	preview := resultPreview(inv.Result, maxToolResultLines)
	return theme.ToolCall.Render(call) + "\n" + theme.ToolResult.Render(HighlightJSON(preview))
}

// compactArgs renders arguments as "k=v, k=v" in document order.
func compactArgs(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	s := strings.TrimSuffix(strings.TrimPrefix(compact.String(), "{"), "}")
	s = strings.ReplaceAll(s, `":`, "=")
	s = strings.ReplaceAll(s, `"`, "")
	return strings.ReplaceAll(s, ",", ", ")
}

// resultPreview indents the result and keeps at most maxLines lines.
func resultPreview(raw json.RawMessage, maxLines int) string {
	if len(raw) == 0 {
		return "null"
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return util.TruncateRunes(string(raw), 200)
	}

	lines := strings.Split(pretty.String(), "\n")
	if len(lines) <= maxLines {
		return pretty.String()
	}
	more := len(lines) - maxLines
	return strings.Join(lines[:maxLines], "\n") + fmt.Sprintf("\n… %d more lines", more)
}
