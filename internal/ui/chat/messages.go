// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/gokkerz/roulette/internal/stream"

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamEventMsg delivers one decoded stream event for a message.
type StreamEventMsg struct {
	MessageID string
	Event     stream.Event
}

// StreamDoneMsg signals that the stream for a message ended. Err is nil
// after a done event.
type StreamDoneMsg struct {
	MessageID string
	Err       error
}
