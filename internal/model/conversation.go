// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the client-side history of one chat. It holds at most one
// actively streaming assistant message, always the last one.
type Conversation struct {
	ID        string
	Model     ID
	Messages  []*ConversationMessage
	CreatedAt time.Time

	streaming bool
}

// NewConversation creates an empty conversation for the default model.
func NewConversation() *Conversation {
	return NewConversationWithModel(DefaultModel)
}

// NewConversationWithModel creates an empty conversation for the given model.
func NewConversationWithModel(id ID) *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		Model:     id,
		CreatedAt: time.Now(),
	}
}

// AddUserMessage appends a user message and returns it.
func (c *Conversation) AddUserMessage(text string) *ConversationMessage {
	msg := NewUserMessage(text)
	c.Messages = append(c.Messages, msg)
	return msg
}

// StartAssistantMessage appends an empty assistant message and marks it as
// the actively streaming one.
func (c *Conversation) StartAssistantMessage() *ConversationMessage {
	msg := NewAssistantMessage()
	c.Messages = append(c.Messages, msg)
	c.streaming = true
	return msg
}

// FinishStreaming marks the trailing assistant message as complete.
func (c *Conversation) FinishStreaming() {
	c.streaming = false
}

// IsStreaming reports whether the trailing assistant message is streaming.
func (c *Conversation) IsStreaming() bool {
	return c.streaming
}

// Last returns the last message, or nil.
func (c *Conversation) Last() *ConversationMessage {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// IsActive reports whether msg is the actively streaming message.
func (c *Conversation) IsActive(msg *ConversationMessage) bool {
	return c.streaming && msg != nil && msg.Role == RoleAssistant && c.Last() == msg
}

// ByID returns the message with the given ID, or nil.
func (c *Conversation) ByID(id string) *ConversationMessage {
	for _, m := range c.Messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// History returns deep copies of every message that carries content, in
// order, for sending to the endpoint.
func (c *Conversation) History() []ConversationMessage {
	out := make([]ConversationMessage, 0, len(c.Messages))
	for _, m := range c.Messages {
		if len(m.Normalized()) == 0 {
			continue
		}
		out = append(out, *m.Clone())
	}
	return out
}

// RemoveLast drops the trailing message. Used when a request fails before
// the assistant produced anything.
func (c *Conversation) RemoveLast() {
	if len(c.Messages) == 0 {
		return
	}
	c.Messages = c.Messages[:len(c.Messages)-1]
	c.streaming = false
}

// Trim keeps only the last n messages. The streaming message, being last,
// is never dropped while n > 0.
func (c *Conversation) Trim(n int) {
	if n <= 0 || len(c.Messages) <= n {
		return
	}
	drop := len(c.Messages) - n
	kept := make([]*ConversationMessage, n)
	copy(kept, c.Messages[drop:])
	c.Messages = kept
}

// Clear removes every message.
func (c *Conversation) Clear() {
	c.Messages = nil
	c.streaming = false
}
