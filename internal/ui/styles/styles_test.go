// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"
)

func TestTypingDots_Timing(t *testing.T) {
	if TypingDots.Duration() != 200*time.Millisecond {
		t.Errorf("Duration() = %v, want 200ms", TypingDots.Duration())
	}
	if TypingDots.Loop() != time.Second {
		t.Errorf("Loop() = %v, want 1s", TypingDots.Loop())
	}

	// Dot i is lit in frame i, so phases are 0, 0.2 and 0.4s
	for i := 0; i < 3; i++ {
		dots := strings.Fields(TypingDots.Frames[i])
		if len(dots) != 3 {
			t.Fatalf("frame %d has %d dots", i, len(dots))
		}
		for j, d := range dots {
			lit := d == "●"
			if lit != (i == j) {
				t.Errorf("frame %d dot %d lit = %v", i, j, lit)
			}
		}
	}

	sp := TypingDots.Spinner()
	if sp.FPS != 200*time.Millisecond || len(sp.Frames) != 5 {
		t.Errorf("Spinner() = %+v", sp)
	}
}

func TestSpinnerConfig_ZeroFPS(t *testing.T) {
	if got := (SpinnerConfig{}).Duration(); got != time.Second {
		t.Errorf("Duration() = %v, want 1s", got)
	}
}

func TestTheme_BubbleWidth(t *testing.T) {
	theme := &Theme{}
	theme.initStyles()

	tests := []struct {
		width, wrap, want int
	}{
		{width: 120, wrap: 80, want: 80},
		{width: 60, wrap: 80, want: 52},
		{width: 10, wrap: 80, want: 20},
		{width: 200, wrap: 0, want: 192},
	}

	for _, tc := range tests {
		theme.SetSize(tc.width, 40)
		if got := theme.BubbleWidth(tc.wrap); got != tc.want {
			t.Errorf("BubbleWidth(%d) at width %d = %d, want %d", tc.wrap, tc.width, got, tc.want)
		}
	}
}

func TestTheme_Render(t *testing.T) {
	theme := &Theme{}
	theme.initStyles()

	out := theme.ReasoningHeader.Render("Reasoning")
	if !strings.Contains(out, "Reasoning") {
		t.Errorf("ReasoningHeader.Render() = %q", out)
	}
}
