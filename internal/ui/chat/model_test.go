// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokkerz/roulette/internal/model"
	"github.com/gokkerz/roulette/internal/stream"
	"github.com/gokkerz/roulette/internal/ui/components"
)

// =============================================================================
// HELPERS
// =============================================================================

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *recordingSender) take() []tea.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.msgs
	s.msgs = nil
	return out
}

func newTestModel(t *testing.T, url string, delay time.Duration) (Model, *recordingSender) {
	t.Helper()
	sender := &recordingSender{}
	runner := NewStreamRunner(stream.NewClient(url))
	runner.Attach(sender)

	m := New(runner, Options{
		TypingDelay: delay,
		Markdown:    components.NewMarkdown("notty"),
	})
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, sender
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok, "Update() returned %T", next)
	return out
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok, "Update() returned %T", next)
	return out, cmd
}

// drain runs cmd and every command it batches, returning the messages.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func submitText(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	return updateCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func streamServer(t *testing.T, got *stream.Request, events ...stream.Event) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		stream.SetHeaders(w.Header())
		sw := stream.NewWriter(w)
		for _, e := range events {
			sw.Write(e)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func TestModel_SubmitStreamsReply(t *testing.T) {
	var req stream.Request
	srv := streamServer(t, &req,
		stream.StepStart("msg-1"),
		stream.ReasoningDelta("even denken"),
		stream.TextDelta("Hallo "),
		stream.TextDelta("daar!"),
		stream.StepFinish(stream.FinishStop, stream.Usage{PromptTokens: 3, CompletionTokens: 2}, false),
		stream.Done(stream.FinishStop, stream.Usage{PromptTokens: 3, CompletionTokens: 2}),
	)
	m, sender := newTestModel(t, srv.URL, 0)

	m, cmd := submitText(t, m, "Hoi")
	require.NotNil(t, cmd)
	require.Len(t, m.conv.Messages, 2)
	assert.True(t, m.Streaming())
	assert.Empty(t, m.input.Value())

	reply := m.conv.Last()
	done := drain(cmd)

	for _, msg := range sender.take() {
		m = update(t, m, msg)
	}
	assert.True(t, m.Streaming(), "events alone should not finish the stream")
	for _, msg := range done {
		m = update(t, m, msg)
	}

	assert.False(t, m.Streaming())
	assert.False(t, m.conv.IsStreaming())
	assert.Equal(t, "Hallo daar!", reply.Text())
	assert.True(t, reply.HasReasoning())
	assert.Equal(t, GateRevealed, m.gate.State())
	assert.Empty(t, m.errs)

	require.Len(t, req.Messages, 1)
	assert.Equal(t, model.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "Hoi", req.Messages[0].Text())
	assert.Equal(t, m.conv.ID, req.ID)

	assert.Contains(t, m.View(), "Hallo daar!")
}

func TestModel_EmptyInputIgnored(t *testing.T) {
	m, _ := newTestModel(t, "http://127.0.0.1:0", 0)

	m, cmd := submitText(t, m, "   ")
	assert.Nil(t, cmd)
	assert.Empty(t, m.conv.Messages)
}

func TestModel_SubmitWhileStreamingIgnored(t *testing.T) {
	m, _ := newTestModel(t, "http://127.0.0.1:0", 0)

	m, _ = submitText(t, m, "een")
	m, cmd := submitText(t, m, "twee")
	assert.Nil(t, cmd)
	assert.Len(t, m.conv.Messages, 2)
}

func TestModel_ServerErrorShown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(stream.ErrorBody{Error: stream.ErrorDetail{
			Message: "Rustig aan, probeer het zo weer.",
			Type:    "rate_limit_error",
		}})
	}))
	t.Cleanup(srv.Close)

	m, _ := newTestModel(t, srv.URL, 0)
	m, cmd := submitText(t, m, "Hoi")
	reply := m.conv.Last()

	for _, msg := range drain(cmd) {
		m = update(t, m, msg)
	}

	assert.False(t, m.Streaming())
	assert.Equal(t, "Rustig aan, probeer het zo weer.", m.errs[reply.ID])
	assert.Contains(t, m.View(), "Rustig aan")
}

func TestModel_ErrorEventShown(t *testing.T) {
	m, _ := newTestModel(t, "http://127.0.0.1:0", 0)
	m, _ = submitText(t, m, "Hoi")
	id := m.conv.Last().ID

	m = update(t, m, StreamEventMsg{MessageID: id, Event: stream.Error("Er ging iets mis.")})
	assert.Equal(t, "Er ging iets mis.", m.errs[id])
}

func TestModel_CancelStopsStream(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stream.SetHeaders(w.Header())
		stream.NewWriter(w).Write(stream.StepStart("msg-1"))
		close(started)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	m, _ := newTestModel(t, srv.URL, 0)
	m, cmd := submitText(t, m, "Hoi")
	reply := m.conv.Last()

	result := make(chan []tea.Msg, 1)
	go func() { result <- drain(cmd) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("stream never reached the server")
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "stopping", m.status)

	var done []tea.Msg
	select {
	case done = <-result:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
	for _, msg := range done {
		m = update(t, m, msg)
	}

	assert.False(t, m.Streaming())
	assert.Equal(t, msgStopped, m.errs[reply.ID])
}

func TestModel_StaleMessagesIgnored(t *testing.T) {
	m, _ := newTestModel(t, "http://127.0.0.1:0", 0)
	m, _ = submitText(t, m, "Hoi")
	old := m.conv.Last().ID

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	require.Empty(t, m.conv.Messages)
	assert.False(t, m.Streaming())

	m = update(t, m, StreamEventMsg{MessageID: old, Event: stream.TextDelta("te laat")})
	m = update(t, m, StreamDoneMsg{MessageID: old})
	assert.Empty(t, m.conv.Messages)
	assert.Empty(t, m.errs)
}

// =============================================================================
// TYPING GATE TESTS
// =============================================================================

func TestModel_TypingGateHoldsText(t *testing.T) {
	m, _ := newTestModel(t, "http://127.0.0.1:0", time.Hour)
	m, _ = submitText(t, m, "Hoi")
	id := m.conv.Last().ID

	require.True(t, m.gate.Holds(id))

	m = update(t, m, StreamEventMsg{MessageID: id, Event: stream.TextDelta("geheime tekst")})
	assert.True(t, m.gate.Holds(id), "content should not end the typing window")
	assert.NotContains(t, m.View(), "geheime tekst")

	m = update(t, m, StreamDoneMsg{MessageID: id})
	assert.False(t, m.gate.Holds(id))
	assert.Contains(t, m.View(), "geheime tekst")
}

func TestModel_RevealMsg(t *testing.T) {
	m, _ := newTestModel(t, "http://127.0.0.1:0", time.Hour)
	m, _ = submitText(t, m, "Hoi")
	id := m.conv.Last().ID
	m = update(t, m, StreamEventMsg{MessageID: id, Event: stream.TextDelta("zichtbaar")})

	m = update(t, m, RevealMsg{MessageID: id, Gen: m.gate.gen - 1})
	assert.True(t, m.gate.Holds(id), "stale timer revealed the message")

	m = update(t, m, RevealMsg{MessageID: id, Gen: m.gate.gen})
	assert.False(t, m.gate.Holds(id))
	assert.True(t, m.Streaming(), "reveal should not end the stream")
	assert.Contains(t, m.View(), "zichtbaar")
}

// =============================================================================
// REASONING TESTS
// =============================================================================

func TestModel_ReasoningDisclosureFollowsStream(t *testing.T) {
	m, _ := newTestModel(t, "http://127.0.0.1:0", 0)
	m, _ = submitText(t, m, "Hoi")
	id := m.conv.Last().ID

	m = update(t, m, StreamEventMsg{MessageID: id, Event: stream.ReasoningDelta("denken")})
	require.Len(t, m.disclosures[id], 1)
	assert.True(t, m.disclosures[id][0].Expanded, "should expand while reasoning")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.True(t, m.disclosures[id][0].Expanded, "toggle should be refused while reasoning")

	m = update(t, m, StreamEventMsg{MessageID: id, Event: stream.TextDelta("Antwoord")})
	assert.False(t, m.disclosures[id][0].Expanded, "should collapse once text follows")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.True(t, m.disclosures[id][0].Expanded, "toggle should expand")

	m = update(t, m, StreamDoneMsg{MessageID: id})
	assert.True(t, m.disclosures[id][0].Expanded, "manual expansion should persist")
}

// =============================================================================
// LAYOUT TESTS
// =============================================================================

func TestModel_TrimsToMaxVisible(t *testing.T) {
	sender := &recordingSender{}
	runner := NewStreamRunner(stream.NewClient("http://127.0.0.1:0"))
	runner.Attach(sender)
	m := New(runner, Options{TypingDelay: 0, MaxVisible: 3, Markdown: components.NewMarkdown("notty")})

	for i := 0; i < 5; i++ {
		m, _ = submitText(t, m, fmt.Sprintf("vraag %d", i))
		m = update(t, m, StreamDoneMsg{MessageID: m.conv.Last().ID})
		assert.LessOrEqual(t, len(m.conv.Messages), 3)
	}
	assert.Equal(t, "vraag 4", m.conv.Messages[len(m.conv.Messages)-2].Text())
}

func TestModel_TrimDiscardsRenderState(t *testing.T) {
	sender := &recordingSender{}
	runner := NewStreamRunner(stream.NewClient("http://127.0.0.1:0"))
	runner.Attach(sender)
	m := New(runner, Options{TypingDelay: 0, MaxVisible: 3, Markdown: components.NewMarkdown("notty")})
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})

	var first string
	for i := 0; i < 5; i++ {
		m, _ = submitText(t, m, fmt.Sprintf("vraag %d", i))
		id := m.conv.Last().ID
		if first == "" {
			first = id
		}
		m = update(t, m, StreamEventMsg{MessageID: id, Event: stream.ReasoningDelta("denken")})
		m = update(t, m, StreamDoneMsg{MessageID: id, Err: errors.New("connection refused")})
	}
	assert.NotContains(t, m.errs, first)
	assert.NotContains(t, m.disclosures, first)

	live := make(map[string]bool)
	for _, msg := range m.conv.Messages {
		live[msg.ID] = true
	}
	for id := range m.disclosures {
		assert.True(t, live[id], "disclosure kept for dropped message %s", id)
	}
	for id := range m.errs {
		assert.True(t, live[id], "error kept for dropped message %s", id)
	}
	assert.Len(t, m.errs, 2, "the two visible replies keep their errors")
	assert.Len(t, m.disclosures, 2)
	assert.Equal(t, m.cache.Len(), len(m.conv.Messages))
}

func TestModel_CacheReusesUnchangedBubbles(t *testing.T) {
	m, _ := newTestModel(t, "http://127.0.0.1:0", 0)
	m, _ = submitText(t, m, "Hoi")
	id := m.conv.Last().ID

	m = update(t, m, StreamEventMsg{MessageID: id, Event: stream.TextDelta("a")})
	before := m.cache.Renders()

	m = update(t, m, StreamEventMsg{MessageID: id, Event: stream.TextDelta("b")})
	assert.Equal(t, before+1, m.cache.Renders(), "only the streaming bubble should re-render")
}

func TestModel_ViewBeforeResize(t *testing.T) {
	m := New(NewStreamRunner(nil), Options{Markdown: components.NewMarkdown("notty")})
	assert.Equal(t, "Laden...", m.View())
}

func TestStreamRunner_NotAttached(t *testing.T) {
	runner := NewStreamRunner(stream.NewClient("http://127.0.0.1:0"))
	err := runner.Run(context.Background(), "m1", stream.Request{})
	assert.ErrorIs(t, err, errNotAttached)
}

// =============================================================================
// ERROR MAPPING TESTS
// =============================================================================

func TestClientErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "server message", err: &stream.HTTPError{Status: 400, Message: "Onbekend model."}, want: "Onbekend model."},
		{name: "wrapped server message", err: fmt.Errorf("stream: %w", &stream.HTTPError{Status: 500, Message: "Oeps."}), want: "Oeps."},
		{name: "canceled", err: context.Canceled, want: msgStopped},
		{name: "truncated", err: stream.ErrTruncated, want: msgTruncated},
		{name: "network", err: errors.New("dial tcp: connection refused"), want: msgUnreachable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, clientErrorMessage(tc.err))
		})
	}
}

func TestKeyMap_HelpKeys(t *testing.T) {
	km := DefaultKeyMap()
	var keys []string
	for _, b := range []interface{ Keys() []string }{km.Submit, km.Cancel, km.ToggleReasoning, km.Clear, km.Quit} {
		keys = append(keys, strings.Join(b.Keys(), ","))
	}
	assert.Equal(t, []string{"enter", "esc", "ctrl+r", "ctrl+l", "ctrl+c"}, keys)
}
