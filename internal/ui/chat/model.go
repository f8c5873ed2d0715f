// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr"

	"github.com/gokkerz/roulette/internal/model"
	"github.com/gokkerz/roulette/internal/stream"
	"github.com/gokkerz/roulette/internal/ui/components"
	"github.com/gokkerz/roulette/internal/ui/styles"
)

var errNotAttached = errors.New("stream runner is not attached to a program")

// Client-side failure texts.
const (
	msgStopped     = "Stopped."
	msgTruncated   = "The connection closed before the answer was complete."
	msgUnreachable = "Could not reach the chat server."
)

// Layout defaults.
const (
	DefaultTypingDelay = 4 * time.Second
	DefaultMaxVisible  = 50
	DefaultWordWrap    = 80
)

// Options configures the chat view.
type Options struct {
	// Model is sent as selectedModel; empty selects the server default
	Model model.ID

	// TypingDelay is how long a new reply is held behind the typing
	// indicator
	TypingDelay time.Duration

	// MaxVisible caps the conversation length kept and rendered
	MaxVisible int

	// WordWrap caps the bubble content width
	WordWrap int

	Theme    *styles.Theme
	Markdown *components.Markdown
	Logger   logr.Logger
}

func (o *Options) setDefaults() {
	if o.TypingDelay < 0 {
		o.TypingDelay = DefaultTypingDelay
	}
	if o.MaxVisible <= 0 {
		o.MaxVisible = DefaultMaxVisible
	}
	if o.WordWrap <= 0 {
		o.WordWrap = DefaultWordWrap
	}
	if o.Theme == nil {
		o.Theme = styles.NewTheme()
	}
	if o.Markdown == nil {
		o.Markdown = components.NewMarkdown("")
	}
	if o.Logger.GetSink() == nil {
		o.Logger = logr.Discard()
	}
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the bubbletea model of the chat view. Reference-typed state is
// shared between the copies bubbletea makes on every update.
type Model struct {
	opts   Options
	runner *StreamRunner
	keys   KeyMap

	conv        *model.Conversation
	gate        *TypingGate
	disclosures map[string][]components.ReasoningDisclosure
	errs        map[string]string

	cache  *components.BubbleCache
	bubble *components.MessageBubble
	anim   components.TypingIndicator

	input    textinput.Model
	viewport viewport.Model

	cancelMgr *cancelManager
	streaming bool
	status    string

	width  int
	height int
	ready  bool
}

// New creates the chat view. A zero TypingDelay disables the typing gate;
// a negative one selects the default.
func New(runner *StreamRunner, opts Options) Model {
	opts.setDefaults()

	input := textinput.New()
	input.Placeholder = "Vraag Roul Ette iets..."
	input.Prompt = opts.Theme.InputPrompt.Render("› ")
	input.CharLimit = 4000
	input.Focus()

	return Model{
		opts:        opts,
		runner:      runner,
		keys:        DefaultKeyMap(),
		conv:        model.NewConversationWithModel(opts.Model),
		gate:        NewTypingGate(opts.TypingDelay),
		disclosures: make(map[string][]components.ReasoningDisclosure),
		errs:        make(map[string]string),
		cache:       components.NewBubbleCache(),
		bubble:      components.NewMessageBubble(opts.Theme, opts.Markdown),
		anim:        components.NewTypingIndicator(opts.Theme),
		input:       input,
		viewport:    viewport.New(80, 20),
		cancelMgr:   newCancelManager(),
		status:      "ready",
	}
}

// Conversation returns the conversation shown by the view.
func (m Model) Conversation() *model.Conversation {
	return m.conv
}

// Gate returns the typing gate.
func (m Model) Gate() *TypingGate {
	return m.gate
}

// Streaming reports whether a reply is streaming.
func (m Model) Streaming() bool {
	return m.streaming
}

// Init starts the cursor blink and the animations.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.anim.Tick())
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamEventMsg:
		cmd := m.handleEvent(msg)
		return m, cmd

	case StreamDoneMsg:
		m.handleDone(msg)
		return m, nil

	case RevealMsg:
		if m.gate.Handle(msg) {
			m.opts.Logger.V(1).Info("TYPING_REVEALED", "message", msg.MessageID)
			m.refresh()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.anim, cmd = m.anim.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelMgr.cancel()
		m.gate.Cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		cmd := m.submit()
		return m, cmd

	case key.Matches(msg, m.keys.Cancel):
		if m.streaming {
			m.cancelMgr.cancel()
			m.status = "stopping"
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleReasoning):
		if m.toggleReasoning() {
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.clear()
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input as a new user message and starts streaming the
// reply into a fresh assistant message.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.streaming {
		return nil
	}
	m.input.Reset()

	m.conv.AddUserMessage(text)
	m.conv.Trim(m.opts.MaxVisible - 1)
	req := stream.Request{
		ID:            m.conv.ID,
		Messages:      m.conv.History(),
		SelectedModel: m.opts.Model,
	}

	reply := m.conv.StartAssistantMessage()
	m.streaming = true
	m.status = "streaming"

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)

	m.opts.Logger.V(1).Info("STREAM_START", "message", reply.ID, "history", len(req.Messages))

	gateCmd := m.gate.Start(reply.ID)
	m.refresh()
	return tea.Batch(gateCmd, m.runner.Command(ctx, reply.ID, req))
}

func (m *Model) handleEvent(msg StreamEventMsg) tea.Cmd {
	target := m.conv.ByID(msg.MessageID)
	if target == nil || !m.conv.IsActive(target) {
		return nil
	}

	var cmd tea.Cmd
	if stream.Apply(target, msg.Event) {
		cmd = m.gate.Update(target.ID, true)
	}

	switch msg.Event.Kind {
	case stream.KindError:
		m.errs[target.ID] = msg.Event.Text
	case stream.KindToolCall:
		m.status = "calling " + msg.Event.ToolName
	case stream.KindTextDelta, stream.KindReasoningDelta:
		m.status = "streaming"
	}

	m.syncDisclosures(target)
	m.refresh()
	return cmd
}

func (m *Model) handleDone(msg StreamDoneMsg) {
	target := m.conv.ByID(msg.MessageID)
	if target == nil || !m.conv.IsActive(target) {
		return
	}

	m.conv.FinishStreaming()
	m.streaming = false
	m.cancelMgr.cancel()
	m.gate.Update(target.ID, false)
	m.syncDisclosures(target)

	m.status = "ready"
	if msg.Err != nil {
		m.errs[target.ID] = clientErrorMessage(msg.Err)
		m.opts.Logger.V(1).Info("STREAM_FAILED", "message", target.ID, "error", msg.Err.Error())
	}
	m.refresh()
}

// clientErrorMessage maps a stream failure to the text shown under the
// reply. Server-provided messages are shown as is.
func clientErrorMessage(err error) string {
	var httpErr *stream.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Message
	case errors.Is(err, context.Canceled):
		return msgStopped
	case errors.Is(err, stream.ErrTruncated):
		return msgTruncated
	default:
		return msgUnreachable
	}
}

// syncDisclosures updates the reasoning disclosures of msg. A reasoning
// block counts as reasoning while its message streams and it is the
// message's last part.
func (m *Model) syncDisclosures(msg *model.ConversationMessage) {
	parts := msg.Normalized()
	active := m.conv.IsActive(msg)

	ds := m.disclosures[msg.ID]
	idx := 0
	for i, part := range parts {
		if part.Type != model.PartReasoning {
			continue
		}
		if idx == len(ds) {
			ds = append(ds, components.ReasoningDisclosure{})
		}
		ds[idx].Sync(active && i == len(parts)-1)
		idx++
	}
	if len(ds) > 0 {
		m.disclosures[msg.ID] = ds
	}
}

// toggleReasoning toggles the last reasoning block of the most recent
// message that has one.
func (m *Model) toggleReasoning() bool {
	for i := len(m.conv.Messages) - 1; i >= 0; i-- {
		msg := m.conv.Messages[i]
		if !msg.HasReasoning() {
			continue
		}
		m.syncDisclosures(msg)
		ds := m.disclosures[msg.ID]
		return ds[len(ds)-1].Toggle()
	}
	return false
}

func (m *Model) clear() {
	m.cancelMgr.cancel()
	m.gate.Cancel()
	m.conv.Clear()
	m.streaming = false
	m.status = "ready"
	m.disclosures = make(map[string][]components.ReasoningDisclosure)
	m.errs = make(map[string]string)
	m.cache.Reset()
	m.refresh()
}
