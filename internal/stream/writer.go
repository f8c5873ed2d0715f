// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"io"
	"net/http"
	"sync"
)

// Response headers identifying the protocol.
const (
	ContentType    = "text/plain; charset=utf-8"
	ProtocolHeader = "X-Vercel-AI-Data-Stream"
	ProtocolV1     = "v1"
)

// SetHeaders prepares a response for streaming. Call before the first write.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", ContentType)
	h.Set(ProtocolHeader, ProtocolV1)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

type flusher interface {
	Flush()
}

// Writer encodes events onto an io.Writer, flushing after every frame when
// the destination supports it. Safe for concurrent use. The first write
// error sticks and is returned from every later call.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	flush  flusher
	err    error
	frames int
}

// NewWriter wraps w. An http.ResponseWriter that implements http.Flusher is
// flushed per frame.
func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: w}
	if f, ok := w.(flusher); ok {
		sw.flush = f
	}
	return sw
}

// Write sends one event.
func (w *Writer) Write(e Event) error {
	frame, err := Encode(e)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}
	if _, err := w.w.Write(frame); err != nil {
		w.err = err
		return err
	}
	w.frames++
	if w.flush != nil {
		w.flush.Flush()
	}
	return nil
}

// Frames returns the number of frames written.
func (w *Writer) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Err returns the sticky write error, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
