// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/gokkerz/roulette/internal/model"
	"github.com/gokkerz/roulette/internal/provider"
)

// toProviderMessages converts a conversation history into model context.
// Reasoning is not sent back. A completed tool invocation becomes an
// assistant tool call followed by its tool result; text after it opens a
// new assistant message so the original order survives. Invocations that
// never got a result are dropped.
func toProviderMessages(history []model.ConversationMessage) []provider.Message {
	out := make([]provider.Message, 0, len(history))

	for i := range history {
		m := &history[i]
		if m.Role == model.RoleUser {
			out = append(out, provider.Message{Role: provider.RoleUser, Content: m.Text()})
			continue
		}

		var text strings.Builder
		var calls []provider.ToolCall
		var results []provider.Message
		flush := func() {
			if text.Len() == 0 && len(calls) == 0 {
				return
			}
			out = append(out, provider.Message{
				Role:      provider.RoleAssistant,
				Content:   text.String(),
				ToolCalls: calls,
			})
			out = append(out, results...)
			text.Reset()
			calls, results = nil, nil
		}

		for _, p := range m.Normalized() {
			switch p.Type {
			case model.PartText:
				if len(calls) > 0 {
					flush()
				}
				text.WriteString(p.Text)
			case model.PartToolInvocation:
				inv := p.ToolInvocation
				if inv == nil || inv.State != model.ToolStateResult {
					continue
				}
				calls = append(calls, provider.ToolCall{
					ID:        inv.ToolCallID,
					Name:      inv.ToolName,
					Arguments: []byte(inv.Args),
				})
				results = append(results, provider.Message{
					Role:       provider.RoleTool,
					Content:    string(inv.Result),
					ToolCallID: inv.ToolCallID,
					Name:       inv.ToolName,
				})
			}
		}
		flush()
	}
	return out
}

// messageLength counts the bytes of every text-bearing part.
func messageLength(m *model.ConversationMessage) int {
	n := 0
	for _, p := range m.Normalized() {
		n += len(p.Text) + len(p.Reasoning)
		if p.ToolInvocation != nil {
			n += len(p.ToolInvocation.Args) + len(p.ToolInvocation.Result)
		}
	}
	return n
}
