// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"

	"github.com/gokkerz/roulette/internal/model"
)

// Apply folds e into msg and reports whether the message content changed.
// Parts are appended in event order; step, error and done events carry no
// content and leave msg untouched.
func Apply(msg *model.ConversationMessage, e Event) bool {
	switch e.Kind {
	case KindTextDelta:
		if e.Text == "" {
			return false
		}
		msg.AppendText(e.Text)
		return true
	case KindReasoningDelta:
		if e.Text == "" {
			return false
		}
		msg.AppendReasoning(e.Text)
		return true
	case KindRedactedReasoning:
		msg.AppendRedactedReasoning(e.Data)
		return true
	case KindToolCall:
		msg.AddToolCall(e.ToolCallID, e.ToolName, json.RawMessage(e.Args))
		return true
	case KindToolResult:
		return msg.SetToolResult(e.ToolCallID, json.RawMessage(e.Result))
	default:
		return false
	}
}
