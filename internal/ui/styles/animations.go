// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// =============================================================================
// SPINNER ANIMATIONS
// =============================================================================

// SpinnerConfig holds the configuration for a spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// Duration returns the duration for each frame.
func (s SpinnerConfig) Duration() time.Duration {
	if s.FPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(s.FPS)
}

// Loop returns the duration of one full cycle.
func (s SpinnerConfig) Loop() time.Duration {
	return s.Duration() * time.Duration(len(s.Frames))
}

// Spinner converts the config into a bubbles spinner definition.
func (s SpinnerConfig) Spinner() spinner.Spinner {
	return spinner.Spinner{Frames: s.Frames, FPS: s.Duration()}
}

// TypingDots is the typing placeholder: three dots pulsing in turn with
// 0.2s phase offsets over a 1s loop.
var TypingDots = SpinnerConfig{
	Frames: []string{"● • •", "• ● •", "• • ●", "• • •", "• • •"},
	FPS:    5,
}

// ReasoningSpinner marks a reasoning block that is still receiving text.
var ReasoningSpinner = SpinnerConfig{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    10,
}
