// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream implements the line-framed data stream spoken between the
// chat endpoint and its clients.
//
// Each frame is one line of the form CODE:JSON, where CODE is a single
// character selecting the event kind. Frames are written and flushed one at
// a time, in the order the provider produced them.
//
//	f:{"messageId":"01J..."}
//	g:"Even nadenken"
//	0:"Hoi! "
//	9:{"toolCallId":"call_1","toolName":"getWeather","args":{...}}
//	a:{"toolCallId":"call_1","result":{...}}
//	e:{"finishReason":"tool-calls","usage":{...},"isContinued":false}
//	d:{"finishReason":"stop","usage":{...}}
package stream

import (
	"github.com/goccy/go-json"
)

// =============================================================================
// EVENT KINDS
// =============================================================================

// Kind discriminates Event variants.
type Kind string

const (
	KindStepStart         Kind = "step-start"
	KindTextDelta         Kind = "text-delta"
	KindReasoningDelta    Kind = "reasoning-delta"
	KindRedactedReasoning Kind = "redacted-reasoning"
	KindToolCall          Kind = "tool-call"
	KindToolResult        Kind = "tool-result"
	KindStepFinish        Kind = "step-finish"
	KindError             Kind = "error"
	KindDone              Kind = "done"
)

// FinishReason explains why a step or the whole exchange ended.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishLength    FinishReason = "length"
	FinishToolCalls FinishReason = "tool-calls"
	FinishError     FinishReason = "error"
	FinishTimeout   FinishReason = "timeout"
	FinishUnknown   FinishReason = "unknown"
)

// Usage is token accounting for a step or exchange.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// Add returns the sum of two usages.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
	}
}

// Total returns prompt plus completion tokens.
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// =============================================================================
// EVENT
// =============================================================================

// Event is one incremental unit of an exchange. Kind selects which fields
// are meaningful:
//
//	step-start          MessageID
//	text-delta          Text
//	reasoning-delta     Text
//	redacted-reasoning  Data
//	tool-call           ToolCallID, ToolName, Args
//	tool-result         ToolCallID, Result
//	step-finish         FinishReason, Usage, IsContinued
//	error               Text
//	done                FinishReason, Usage
type Event struct {
	Kind         Kind
	Text         string
	Data         string
	MessageID    string
	ToolCallID   string
	ToolName     string
	Args         json.RawMessage
	Result       json.RawMessage
	FinishReason FinishReason
	Usage        Usage
	IsContinued  bool
}

// IsTerminal reports whether no further events follow.
func (e Event) IsTerminal() bool {
	return e.Kind == KindDone
}

// StepStart opens a model step.
func StepStart(messageID string) Event {
	return Event{Kind: KindStepStart, MessageID: messageID}
}

// TextDelta carries answer text.
func TextDelta(text string) Event {
	return Event{Kind: KindTextDelta, Text: text}
}

// ReasoningDelta carries reasoning text.
func ReasoningDelta(text string) Event {
	return Event{Kind: KindReasoningDelta, Text: text}
}

// RedactedReasoning carries an opaque reasoning block.
func RedactedReasoning(data string) Event {
	return Event{Kind: KindRedactedReasoning, Data: data}
}

// ToolCall announces a tool invocation requested by the model.
func ToolCall(id, name string, args json.RawMessage) Event {
	return Event{Kind: KindToolCall, ToolCallID: id, ToolName: name, Args: args}
}

// ToolResult carries the output of an executed tool.
func ToolResult(id, name string, result json.RawMessage) Event {
	return Event{Kind: KindToolResult, ToolCallID: id, ToolName: name, Result: result}
}

// StepFinish closes a model step.
func StepFinish(reason FinishReason, usage Usage, continued bool) Event {
	return Event{Kind: KindStepFinish, FinishReason: reason, Usage: usage, IsContinued: continued}
}

// Error carries a user-presentable failure message.
func Error(message string) Event {
	return Event{Kind: KindError, Text: message}
}

// Done terminates the stream.
func Done(reason FinishReason, usage Usage) Event {
	return Event{Kind: KindDone, FinishReason: reason, Usage: usage}
}
