// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider binds model identifiers to streaming language model
// backends.
//
// A LanguageModel runs one model step: it streams text and reasoning
// deltas through an emit callback, then reports the step's finish reason,
// requested tool calls and token usage. The multi-step tool loop lives in
// the chat package.
//
// Two backends are available:
//   - OpenAIClient: native streaming client for OpenAI-compatible
//     chat completion APIs (Groq by default)
//   - LangChainModel: any langchaingo llms.Model
package provider

import (
	"context"
	"strings"

	"github.com/goccy/go-json"

	"github.com/gokkerz/roulette/internal/stream"
)

// =============================================================================
// INVOCATION TYPES
// =============================================================================

// Role is the sender of a provider message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// toolArguments returns raw as tool call arguments. Blank or malformed JSON
// becomes an empty object so the call still reaches the executor, which
// then reports the missing arguments to the model.
func toolArguments(raw string) json.RawMessage {
	raw = strings.TrimSpace(raw)
	if raw == "" || !json.Valid([]byte(raw)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(raw)
}

// Message is one entry of the model context.
type Message struct {
	Role    Role
	Content string

	// ToolCalls is set on assistant messages that requested tools
	ToolCalls []ToolCall

	// ToolCallID and Name are set on tool result messages
	ToolCallID string
	Name       string
}

// ToolSpec describes a tool offered to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Call is the input of one model step.
type Call struct {
	// System is the fixed instruction, sent unmodified
	System string

	// Messages is the conversation so far, including earlier tool rounds
	Messages []Message

	// Tools are the tools the model may call
	Tools []ToolSpec
}

// =============================================================================
// OUTPUT TYPES
// =============================================================================

// DeltaKind discriminates streamed deltas.
type DeltaKind int

const (
	DeltaText DeltaKind = iota
	DeltaReasoning
	DeltaRedacted
)

// String returns the delta kind name.
func (k DeltaKind) String() string {
	switch k {
	case DeltaText:
		return "text"
	case DeltaReasoning:
		return "reasoning"
	case DeltaRedacted:
		return "redacted"
	default:
		return "unknown"
	}
}

// Delta is one streamed increment. For DeltaRedacted, Text holds the
// opaque provider data.
type Delta struct {
	Kind DeltaKind
	Text string
}

// EmitFunc receives deltas in provider order. A non-nil error aborts the
// step and is returned from Stream.
type EmitFunc func(Delta) error

// StepResult summarises a completed step.
type StepResult struct {
	FinishReason stream.FinishReason
	ToolCalls    []ToolCall
	Usage        stream.Usage
}

// =============================================================================
// LANGUAGE MODEL
// =============================================================================

// LanguageModel runs model steps for one bound model.
type LanguageModel interface {
	// Stream runs one step. It must return promptly once ctx is done.
	Stream(ctx context.Context, call Call, emit EmitFunc) (*StepResult, error)
}

// finishReasonFrom maps provider finish reasons onto stream finish reasons.
func finishReasonFrom(raw string, hasToolCalls bool) stream.FinishReason {
	switch raw {
	case "stop", "end_turn", "eos":
		if hasToolCalls {
			return stream.FinishToolCalls
		}
		return stream.FinishStop
	case "length", "max_tokens":
		return stream.FinishLength
	case "tool_calls", "function_call", "tool_use":
		return stream.FinishToolCalls
	case "":
		if hasToolCalls {
			return stream.FinishToolCalls
		}
		return stream.FinishStop
	default:
		return stream.FinishUnknown
	}
}

// unconfigured fails every step with ErrNotConfigured.
type unconfigured struct{}

func (unconfigured) Stream(context.Context, Call, EmitFunc) (*StepResult, error) {
	return nil, ErrNotConfigured
}
