// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"sync"

	"github.com/gokkerz/roulette/internal/stream"
)

// EventWriter receives the events of one exchange in order.
// *stream.Writer implements it.
type EventWriter interface {
	Write(stream.Event) error
}

// errSealed is returned to a model that emits after its exchange ended.
var errSealed = errors.New("exchange already finished")

// sink serialises writes from the model goroutine and the exchange
// goroutine. Once sealed, model emissions are dropped and only the
// terminal events written through finish reach the client.
type sink struct {
	mu     sync.Mutex
	w      EventWriter
	sealed bool
	err    error
}

func newSink(w EventWriter) *sink {
	return &sink{w: w}
}

// emit writes one event unless the sink is sealed or the client is gone.
func (s *sink) emit(e stream.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return errSealed
	}
	return s.writeLocked(e)
}

// writeLocked writes e. Only client write errors stick; an event that
// fails to encode leaves the connection usable for the error frames.
func (s *sink) writeLocked(e stream.Event) error {
	if s.err != nil {
		return s.err
	}
	if err := s.w.Write(e); err != nil {
		var encErr *stream.EncodeError
		if !errors.As(err, &encErr) {
			s.err = err
		}
		return err
	}
	return nil
}

// seal drops every later emission.
func (s *sink) seal() {
	s.mu.Lock()
	s.sealed = true
	s.mu.Unlock()
}

// finish seals the sink and writes the terminal events.
func (s *sink) finish(events ...stream.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
	for _, e := range events {
		if s.writeLocked(e) != nil && s.err != nil {
			return
		}
	}
}

// writeErr returns the first client write error.
func (s *sink) writeErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
