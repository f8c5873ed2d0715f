// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGate(delay time.Duration) (*TypingGate, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	g := NewTypingGate(delay)
	g.now = clock.now
	return g, clock
}

func TestTypingGate_RevealsAfterDelay(t *testing.T) {
	g, _ := newTestGate(4 * time.Second)

	if cmd := g.Start("m1"); cmd == nil {
		t.Fatal("Start() should arm a timer")
	}
	if !g.Holds("m1") || g.State() != GateTyping {
		t.Fatalf("state = %v, want typing", g.State())
	}
	if g.Holds("other") {
		t.Error("Holds() should only cover the gated message")
	}

	if !g.Handle(RevealMsg{MessageID: "m1", Gen: g.gen}) {
		t.Fatal("Handle() of the current timer should reveal")
	}
	if g.State() != GateRevealed || g.Holds("m1") {
		t.Errorf("state = %v, want revealed", g.State())
	}
}

// recordTicks replaces the gate's timer with one that fires at once and
// records every armed duration.
func recordTicks(g *TypingGate) *[]time.Duration {
	var armed []time.Duration
	g.tick = func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
		armed = append(armed, d)
		return func() tea.Msg { return fn(time.Time{}) }
	}
	return &armed
}

func TestTypingGate_ArmsConfiguredDelay(t *testing.T) {
	g, clock := newTestGate(DefaultTypingDelay)
	armed := recordTicks(g)

	cmd := g.Start("m1")
	if cmd == nil {
		t.Fatal("Start() should arm a timer")
	}
	if len(*armed) != 1 || (*armed)[0] != g.Delay() {
		t.Fatalf("armed = %v, want [%v]", *armed, g.Delay())
	}
	if g.Delay() != 4*time.Second {
		t.Errorf("Delay() = %v, want 4s", g.Delay())
	}

	clock.advance(1500 * time.Millisecond)
	next := g.Update("m1", true)
	if len(*armed) != 2 || (*armed)[1] != 2500*time.Millisecond {
		t.Fatalf("armed = %v, want re-arm for the remaining 2.5s", *armed)
	}

	if g.Handle(cmd().(RevealMsg)) {
		t.Error("the replaced timer should not reveal")
	}
	if !g.Handle(next().(RevealMsg)) {
		t.Error("the current timer should reveal")
	}
}

func TestTypingGate_StartCommandFires(t *testing.T) {
	g, _ := newTestGate(20 * time.Millisecond)
	cmd := g.Start("m1")
	if cmd == nil {
		t.Fatal("Start() should arm a timer")
	}

	begin := time.Now()
	got := cmd()
	msg, ok := got.(RevealMsg)
	if !ok {
		t.Fatalf("command produced %T, want RevealMsg", got)
	}
	if elapsed := time.Since(begin); elapsed < 15*time.Millisecond {
		t.Errorf("timer fired after %v, want about 20ms", elapsed)
	}
	if !g.Handle(msg) {
		t.Error("Handle() of the fired timer should reveal")
	}
}

func TestTypingGate_ZeroDelay(t *testing.T) {
	g, _ := newTestGate(0)
	if cmd := g.Start("m1"); cmd != nil {
		t.Error("Start() with zero delay should not arm a timer")
	}
	if g.State() != GateRevealed {
		t.Errorf("state = %v, want revealed", g.State())
	}
}

func TestTypingGate_StaleTimersIgnored(t *testing.T) {
	g, clock := newTestGate(4 * time.Second)
	g.Start("m1")
	first := g.gen

	clock.advance(time.Second)
	if cmd := g.Update("m1", true); cmd == nil {
		t.Fatal("Update() inside the window should re-arm")
	}

	if g.Handle(RevealMsg{MessageID: "m1", Gen: first}) {
		t.Error("timer from an older generation revealed the message")
	}
	if !g.Holds("m1") {
		t.Error("stale timer changed the state")
	}
	if !g.Handle(RevealMsg{MessageID: "m1", Gen: g.gen}) {
		t.Error("current timer should reveal")
	}
}

func TestTypingGate_UpdateKeepsOriginalDeadline(t *testing.T) {
	g, clock := newTestGate(4 * time.Second)
	g.Start("m1")

	clock.advance(3 * time.Second)
	if cmd := g.Update("m1", true); cmd == nil {
		t.Fatal("Update() with time remaining should re-arm")
	}
	if !g.Holds("m1") {
		t.Fatal("message revealed before the window ended")
	}

	clock.advance(time.Second)
	if cmd := g.Update("m1", true); cmd != nil {
		t.Error("Update() past the window should not arm a timer")
	}
	if g.State() != GateRevealed {
		t.Errorf("state = %v, want revealed once the window has passed", g.State())
	}
}

func TestTypingGate_InactiveRevealsImmediately(t *testing.T) {
	g, _ := newTestGate(4 * time.Second)
	g.Start("m1")

	if cmd := g.Update("m1", false); cmd != nil {
		t.Error("Update() of a finished message should not arm a timer")
	}
	if g.State() != GateRevealed {
		t.Errorf("state = %v, want revealed", g.State())
	}
}

func TestTypingGate_OtherMessageIgnored(t *testing.T) {
	g, _ := newTestGate(4 * time.Second)
	g.Start("m1")

	if cmd := g.Update("m2", false); cmd != nil {
		t.Error("Update() of another message returned a command")
	}
	if !g.Holds("m1") {
		t.Error("Update() of another message changed the gate")
	}
}

func TestTypingGate_Cancel(t *testing.T) {
	g, _ := newTestGate(4 * time.Second)
	g.Start("m1")
	gen := g.gen

	g.Cancel()
	if g.State() != GateIdle || g.MessageID() != "" {
		t.Errorf("after Cancel() state = %v id = %q", g.State(), g.MessageID())
	}
	if g.Handle(RevealMsg{MessageID: "m1", Gen: gen}) {
		t.Error("timer armed before Cancel() revealed")
	}
}

func TestGateState_String(t *testing.T) {
	tests := map[GateState]string{
		GateIdle:      "idle",
		GateTyping:    "typing",
		GateRevealed:  "revealed",
		GateState(42): "unknown",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("GateState(%d).String() = %q, want %q", s, s.String(), want)
		}
	}
}
