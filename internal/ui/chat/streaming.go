// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gokkerz/roulette/internal/stream"
)

// =============================================================================
// STREAM RUNNER
// =============================================================================

// Sender delivers messages into the running program. *tea.Program
// implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// StreamRunner posts a conversation and relays every event into the
// program as a StreamEventMsg.
type StreamRunner struct {
	client *stream.Client
	sender Sender
}

// NewStreamRunner creates a runner for client.
func NewStreamRunner(client *stream.Client) *StreamRunner {
	return &StreamRunner{client: client}
}

// Attach sets the program events are sent to. It must be called before
// the first stream starts.
func (r *StreamRunner) Attach(s Sender) {
	r.sender = s
}

// Command returns a tea.Cmd that streams req for message id. Events are
// sent as they arrive; the command's own result is the StreamDoneMsg, which
// the program receives after every event.
func (r *StreamRunner) Command(ctx context.Context, id string, req stream.Request) tea.Cmd {
	return func() tea.Msg {
		return StreamDoneMsg{MessageID: id, Err: r.Run(ctx, id, req)}
	}
}

// Run streams req for message id, blocking until the stream ends.
func (r *StreamRunner) Run(ctx context.Context, id string, req stream.Request) error {
	if r.client == nil || r.sender == nil {
		return errNotAttached
	}
	return r.client.Stream(ctx, req, func(e stream.Event) error {
		r.sender.Send(StreamEventMsg{MessageID: id, Event: e})
		return nil
	})
}
