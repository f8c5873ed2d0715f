// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "Jij"
	case RoleAssistant:
		return "Roul Ette"
	default:
		return string(r)
	}
}

// Valid reports whether the role may appear in a conversation history.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// CONTENT PARTS
// =============================================================================

// PartType discriminates the Part variants.
type PartType string

const (
	PartText           PartType = "text"
	PartReasoning      PartType = "reasoning"
	PartToolInvocation PartType = "tool-invocation"
)

// DetailType discriminates reasoning detail entries.
type DetailType string

const (
	DetailText     DetailType = "text"
	DetailRedacted DetailType = "redacted"
)

// ReasoningDetail is one entry of a reasoning part: either visible text or a
// redacted marker carrying opaque provider data.
type ReasoningDetail struct {
	Type DetailType `json:"type"`
	Text string     `json:"text,omitempty"`
	Data string     `json:"data,omitempty"`
}

// ToolState is the lifecycle state of a tool invocation part.
type ToolState string

const (
	ToolStateCall   ToolState = "call"
	ToolStateResult ToolState = "result"
)

// ToolInvocation records a tool call made by the assistant and, once known,
// its result.
type ToolInvocation struct {
	State      ToolState       `json:"state"`
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// Part is a single piece of message content. Type selects which fields are
// meaningful:
//
//	text            Text
//	reasoning       Reasoning (summary) and Details
//	tool-invocation ToolInvocation
type Part struct {
	Type           PartType          `json:"type"`
	Text           string            `json:"text,omitempty"`
	Reasoning      string            `json:"reasoning,omitempty"`
	Details        []ReasoningDetail `json:"details,omitempty"`
	ToolInvocation *ToolInvocation   `json:"toolInvocation,omitempty"`
}

// TextPart creates a text part.
func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

// ReasoningPart creates a reasoning part with a single text detail.
func ReasoningPart(text string) Part {
	return Part{
		Type:      PartReasoning,
		Reasoning: text,
		Details:   []ReasoningDetail{{Type: DetailText, Text: text}},
	}
}

// Validate checks that the part is a known variant with consistent fields.
func (p Part) Validate() error {
	switch p.Type {
	case PartText:
		return nil
	case PartReasoning:
		for i, d := range p.Details {
			if d.Type != DetailText && d.Type != DetailRedacted {
				return fmt.Errorf("reasoning detail %d has unknown type %q", i, d.Type)
			}
		}
		return nil
	case PartToolInvocation:
		if p.ToolInvocation == nil {
			return fmt.Errorf("tool-invocation part has no invocation")
		}
		if p.ToolInvocation.ToolCallID == "" || p.ToolInvocation.ToolName == "" {
			return fmt.Errorf("tool-invocation part needs toolCallId and toolName")
		}
		return nil
	default:
		return fmt.Errorf("unknown part type %q", p.Type)
	}
}

// clone returns a deep copy of the part. Nil and empty slices stay
// distinct so a clone is deep-equal to its source.
func (p Part) clone() Part {
	out := p
	if p.Details != nil {
		out.Details = make([]ReasoningDetail, len(p.Details))
		copy(out.Details, p.Details)
	}
	if p.ToolInvocation != nil {
		inv := *p.ToolInvocation
		inv.Args = cloneRaw(p.ToolInvocation.Args)
		inv.Result = cloneRaw(p.ToolInvocation.Result)
		out.ToolInvocation = &inv
	}
	return out
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

// =============================================================================
// CONVERSATION MESSAGE
// =============================================================================

// ConversationMessage is one turn of a conversation. Parts are kept in the
// order they were produced and are never reordered.
type ConversationMessage struct {
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Parts     []Part    `json:"parts,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// NewMessage creates a message with a generated ID and a single text part.
func NewMessage(role Role, text string) *ConversationMessage {
	m := &ConversationMessage{
		ID:        uuid.NewString(),
		Role:      role,
		CreatedAt: time.Now(),
	}
	if text != "" {
		m.Content = text
		m.Parts = []Part{TextPart(text)}
	}
	return m
}

// NewUserMessage creates a new user message.
func NewUserMessage(text string) *ConversationMessage {
	return NewMessage(RoleUser, text)
}

// NewAssistantMessage creates an empty assistant message ready for streaming.
func NewAssistantMessage() *ConversationMessage {
	return NewMessage(RoleAssistant, "")
}

// Normalized returns the message parts, falling back to a single text part
// built from Content when the message carries no parts.
func (m *ConversationMessage) Normalized() []Part {
	if len(m.Parts) > 0 {
		return m.Parts
	}
	if m.Content == "" {
		return nil
	}
	return []Part{TextPart(m.Content)}
}

// Text returns the concatenated text parts.
func (m *ConversationMessage) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// HasReasoning reports whether the message contains a reasoning part.
func (m *ConversationMessage) HasReasoning() bool {
	for _, p := range m.Parts {
		if p.Type == PartReasoning {
			return true
		}
	}
	return false
}

// Validate checks the role and every part.
func (m *ConversationMessage) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("invalid role %q: must be user or assistant", m.Role)
	}
	for i, p := range m.Parts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the message.
func (m *ConversationMessage) Clone() *ConversationMessage {
	if m == nil {
		return nil
	}
	out := *m
	if m.Parts != nil {
		out.Parts = make([]Part, len(m.Parts))
		for i, p := range m.Parts {
			out.Parts[i] = p.clone()
		}
	}
	return &out
}

// =============================================================================
// STREAMING MUTATORS
// =============================================================================

// AppendText appends a text delta. Consecutive deltas extend the trailing
// text part; a delta after any other part type opens a new text part.
func (m *ConversationMessage) AppendText(delta string) {
	if delta == "" {
		return
	}
	m.Content += delta
	if n := len(m.Parts); n > 0 && m.Parts[n-1].Type == PartText {
		m.Parts[n-1].Text += delta
		return
	}
	m.Parts = append(m.Parts, TextPart(delta))
}

// AppendReasoning appends a reasoning delta to the trailing reasoning part,
// opening one if needed. The summary and the last text detail both grow.
func (m *ConversationMessage) AppendReasoning(delta string) {
	if delta == "" {
		return
	}
	p := m.trailingReasoning()
	p.Reasoning += delta
	if n := len(p.Details); n > 0 && p.Details[n-1].Type == DetailText {
		p.Details[n-1].Text += delta
		return
	}
	p.Details = append(p.Details, ReasoningDetail{Type: DetailText, Text: delta})
}

// AppendRedactedReasoning records a redacted reasoning entry.
func (m *ConversationMessage) AppendRedactedReasoning(data string) {
	p := m.trailingReasoning()
	p.Details = append(p.Details, ReasoningDetail{Type: DetailRedacted, Data: data})
}

func (m *ConversationMessage) trailingReasoning() *Part {
	if n := len(m.Parts); n > 0 && m.Parts[n-1].Type == PartReasoning {
		return &m.Parts[n-1]
	}
	m.Parts = append(m.Parts, Part{Type: PartReasoning})
	return &m.Parts[len(m.Parts)-1]
}

// AddToolCall records a tool call in state "call".
func (m *ConversationMessage) AddToolCall(id, name string, args json.RawMessage) {
	m.Parts = append(m.Parts, Part{
		Type: PartToolInvocation,
		ToolInvocation: &ToolInvocation{
			State:      ToolStateCall,
			ToolCallID: id,
			ToolName:   name,
			Args:       args,
		},
	})
}

// SetToolResult moves the matching tool invocation to state "result".
// Returns false when no invocation with that ID exists.
func (m *ConversationMessage) SetToolResult(id string, result json.RawMessage) bool {
	for i := range m.Parts {
		inv := m.Parts[i].ToolInvocation
		if m.Parts[i].Type == PartToolInvocation && inv != nil && inv.ToolCallID == id {
			inv.State = ToolStateResult
			inv.Result = result
			return true
		}
	}
	return false
}
