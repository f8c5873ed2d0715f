// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// TYPING GATE
// =============================================================================

// GateState is the typing gate state of the streaming assistant message.
type GateState int

const (
	// GateIdle: no message is gated
	GateIdle GateState = iota
	// GateTyping: the gated message shows the typing indicator
	GateTyping
	// GateRevealed: the gated message shows its accumulated text
	GateRevealed
)

// String returns the state name.
func (s GateState) String() string {
	switch s {
	case GateIdle:
		return "idle"
	case GateTyping:
		return "typing"
	case GateRevealed:
		return "revealed"
	default:
		return "unknown"
	}
}

// RevealMsg fires when a gate timer expires. It is honoured only if Gen is
// still the gate's current generation.
type RevealMsg struct {
	MessageID string
	Gen       uint64
}

// TypingGate holds back the text of the actively streaming assistant
// message for a fixed delay after the stream starts. Only one message is
// gated at a time; every other message is revealed.
//
// Pending timers are never stopped. Each arm bumps the generation, and a
// RevealMsg from an older generation is ignored, which cancels it.
type TypingGate struct {
	delay     time.Duration
	state     GateState
	messageID string
	started   time.Time
	gen       uint64
	now       func() time.Time
	tick      func(time.Duration, func(time.Time) tea.Msg) tea.Cmd
}

// NewTypingGate creates an idle gate.
func NewTypingGate(delay time.Duration) *TypingGate {
	return &TypingGate{delay: delay, now: time.Now, tick: tea.Tick}
}

// Delay returns the configured delay.
func (g *TypingGate) Delay() time.Duration {
	return g.delay
}

// State returns the current state.
func (g *TypingGate) State() GateState {
	return g.state
}

// MessageID returns the gated message, if any.
func (g *TypingGate) MessageID() string {
	return g.messageID
}

// Holds reports whether the text of message id is held back.
func (g *TypingGate) Holds(id string) bool {
	return g.state == GateTyping && g.messageID == id
}

// Start gates message id, which just became the actively streaming
// message, and arms the reveal timer.
func (g *TypingGate) Start(id string) tea.Cmd {
	g.messageID = id
	g.started = g.now()
	if g.delay <= 0 {
		g.gen++
		g.state = GateRevealed
		return nil
	}
	g.state = GateTyping
	return g.arm(g.delay)
}

// Update re-evaluates the gate after message id changed. A message that is
// no longer actively streaming is revealed at once. While typing, the
// pending timer is replaced by one for the remaining window, so the reveal
// still lands exactly delay after Start.
func (g *TypingGate) Update(id string, active bool) tea.Cmd {
	if id != g.messageID || g.state != GateTyping {
		return nil
	}
	if !active {
		g.reveal()
		return nil
	}

	remaining := g.delay - g.now().Sub(g.started)
	if remaining <= 0 {
		g.reveal()
		return nil
	}
	return g.arm(remaining)
}

// Handle applies a timer message and reports whether it revealed the
// message. Stale timers are ignored.
func (g *TypingGate) Handle(msg RevealMsg) bool {
	if msg.Gen != g.gen || msg.MessageID != g.messageID || g.state != GateTyping {
		return false
	}
	g.reveal()
	return true
}

// Cancel drops the gate, invalidating any pending timer. Used when the
// view goes away or the conversation is cleared.
func (g *TypingGate) Cancel() {
	g.gen++
	g.state = GateIdle
	g.messageID = ""
}

func (g *TypingGate) reveal() {
	g.gen++
	g.state = GateRevealed
}

func (g *TypingGate) arm(d time.Duration) tea.Cmd {
	g.gen++
	msg := RevealMsg{MessageID: g.messageID, Gen: g.gen}
	return g.tick(d, func(time.Time) tea.Msg { return msg })
}
