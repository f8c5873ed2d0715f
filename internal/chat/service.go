// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/oklog/ulid/v2"

	"github.com/gokkerz/roulette/internal/config"
	"github.com/gokkerz/roulette/internal/logging"
	"github.com/gokkerz/roulette/internal/model"
	"github.com/gokkerz/roulette/internal/provider"
	"github.com/gokkerz/roulette/internal/stream"
	"github.com/gokkerz/roulette/internal/telemetry"
	"github.com/gokkerz/roulette/internal/tools"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service runs chat exchanges. It holds only immutable configuration and
// may serve any number of exchanges concurrently.
type Service struct {
	providers   *provider.Registry
	executor    *tools.Executor
	persona     string
	timeout     time.Duration
	maxSteps    int
	maxMessages int
	maxLength   int
	recorder    *telemetry.Recorder
	log         logr.Logger
}

// NewService creates a service. A nil executor offers the model no tools.
func NewService(providers *provider.Registry, executor *tools.Executor, persona string, cfg config.ChatConfig) *Service {
	if executor == nil {
		empty, _ := tools.NewRegistry()
		executor = tools.NewExecutor(empty)
	}
	s := &Service{
		providers:   providers,
		executor:    executor,
		persona:     persona,
		timeout:     cfg.Timeout(),
		maxSteps:    cfg.MaxSteps,
		maxMessages: cfg.MaxMessages,
		maxLength:   cfg.MaxMessageLength,
		log:         logr.Discard(),
	}
	if s.timeout <= 0 {
		s.timeout = config.Default().Chat.Timeout()
	}
	if s.maxSteps <= 0 {
		s.maxSteps = 1
	}
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(log logr.Logger) *Service {
	s.log = log
	return s
}

// WithRecorder sets the telemetry recorder.
func (s *Service) WithRecorder(rec *telemetry.Recorder) *Service {
	s.recorder = rec
	return s
}

// WithTimeout overrides the exchange budget.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Timeout returns the exchange budget.
func (s *Service) Timeout() time.Duration {
	return s.timeout
}

// Models returns the supported models.
func (s *Service) Models() *model.Registry {
	return s.providers.Models()
}

// =============================================================================
// VALIDATION
// =============================================================================

// Exchange is a validated request ready to stream.
type Exchange struct {
	ID       string
	Model    model.ModelInfo
	lm       provider.LanguageModel
	messages []provider.Message
}

// Validate checks a request and binds its model. It never contacts the
// provider; every failure is an *InputError.
func (s *Service) Validate(req stream.Request) (*Exchange, error) {
	if len(req.Messages) == 0 {
		return nil, inputErrorf(CodeEmptyMessages, nil, "messages must not be empty")
	}
	if s.maxMessages > 0 && len(req.Messages) > s.maxMessages {
		return nil, inputErrorf(CodeTooManyMessages, nil, "too many messages: %d (max %d)", len(req.Messages), s.maxMessages)
	}

	for i := range req.Messages {
		m := &req.Messages[i]
		if !m.Role.Valid() {
			return nil, inputErrorf(CodeInvalidRole, nil, "message %d: role %q is not allowed", i, m.Role)
		}
		if err := m.Validate(); err != nil {
			return nil, inputErrorf(CodeInvalidMessage, err, "message %d: %v", i, err)
		}
		if s.maxLength > 0 && messageLength(m) > s.maxLength {
			return nil, inputErrorf(CodeMessageTooLong, nil, "message %d exceeds %d bytes", i, s.maxLength)
		}
	}

	info, lm, err := s.providers.Resolve(req.SelectedModel)
	if err != nil {
		var unsupported *model.UnsupportedModelError
		if errors.As(err, &unsupported) {
			return nil, inputErrorf(CodeUnsupportedModel, err, "unsupported model %q", unsupported.ID)
		}
		return nil, inputErrorf(CodeUnsupportedModel, err, "model selection failed")
	}

	return &Exchange{
		ID:       telemetry.NewID(),
		Model:    info,
		lm:       lm,
		messages: toProviderMessages(req.Messages),
	}, nil
}

// =============================================================================
// STREAMING
// =============================================================================

// Stream runs a validated exchange, writing every event to w. It always
// ends with a done event unless the client went away, and reports how the
// exchange ended. ctx is the request context: cancelling it is treated as
// a client disconnect.
func (s *Service) Stream(ctx context.Context, ex *Exchange, w EventWriter) telemetry.Outcome {
	start := time.Now()
	rec := telemetry.Exchange{
		ID:        ex.ID,
		Model:     string(ex.Model.ID),
		StartedAt: start,
	}

	s.log.V(1).Info("EXCHANGE_START", "id", ex.ID, "model", ex.Model.ID, "messages", len(ex.messages))

	budget, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out := newSink(w)
	rec.Outcome = s.run(ctx, budget, ex, out, &rec)
	rec.Duration = time.Since(start)

	if s.recorder != nil {
		s.recorder.Record(rec)
	}
	return rec.Outcome
}

func (s *Service) run(parent, ctx context.Context, ex *Exchange, out *sink, rec *telemetry.Exchange) telemetry.Outcome {
	messages := append([]provider.Message(nil), ex.messages...)
	specs := s.toolSpecs()

	for step := 1; ; step++ {
		if err := out.emit(stream.StepStart(newMessageID())); err != nil {
			return s.fail(parent, ctx, ex, out, rec, err)
		}

		call := provider.Call{System: s.persona, Messages: messages, Tools: specs}
		res, text, err := s.step(ctx, ex.lm, call, out)
		rec.Steps++
		if err != nil {
			return s.fail(parent, ctx, ex, out, rec, err)
		}
		rec.Usage = rec.Usage.Add(res.Usage)

		if len(res.ToolCalls) > 0 {
			results, err := s.runTools(ctx, res.ToolCalls, out)
			rec.ToolCalls += len(res.ToolCalls)
			if err != nil {
				return s.fail(parent, ctx, ex, out, rec, err)
			}
			messages = append(messages, provider.Message{
				Role:      provider.RoleAssistant,
				Content:   text,
				ToolCalls: res.ToolCalls,
			})
			messages = append(messages, results...)
		}

		more := len(res.ToolCalls) > 0 && step < s.maxSteps
		if err := out.emit(stream.StepFinish(res.FinishReason, res.Usage, more)); err != nil {
			return s.fail(parent, ctx, ex, out, rec, err)
		}
		s.log.V(1).Info("STEP_COMPLETE", "id", ex.ID, "step", step, "finish", string(res.FinishReason), "tool_calls", len(res.ToolCalls))

		if !more {
			out.finish(stream.Done(res.FinishReason, rec.Usage))
			if err := out.writeErr(); err != nil {
				return s.fail(parent, ctx, ex, out, rec, err)
			}
			return telemetry.OutcomeOK
		}
	}
}

// step runs one model step in its own goroutine so a model that ignores
// cancellation cannot hold the exchange past its budget. It returns the
// step's answer text for the follow-up context.
func (s *Service) step(ctx context.Context, lm provider.LanguageModel, call provider.Call, out *sink) (*provider.StepResult, string, error) {
	type outcome struct {
		res  *provider.StepResult
		text string
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		var text strings.Builder
		res, err := lm.Stream(ctx, call, func(d provider.Delta) error {
			switch d.Kind {
			case provider.DeltaText:
				text.WriteString(d.Text)
				return out.emit(stream.TextDelta(d.Text))
			case provider.DeltaReasoning:
				return out.emit(stream.ReasoningDelta(d.Text))
			case provider.DeltaRedacted:
				return out.emit(stream.RedactedReasoning(d.Text))
			default:
				return nil
			}
		})
		if err == nil && res == nil {
			err = errors.New("model returned no step result")
		}
		done <- outcome{res: res, text: text.String(), err: err}
	}()

	select {
	case o := <-done:
		return o.res, o.text, o.err
	case <-ctx.Done():
		// Late emissions from the abandoned goroutine are dropped
		out.seal()
		return nil, "", ctx.Err()
	}
}

// runTools relays the calls, executes them concurrently and relays the
// results in call order.
func (s *Service) runTools(ctx context.Context, calls []provider.ToolCall, out *sink) ([]provider.Message, error) {
	pending := make([]tools.Call, len(calls))
	for i, c := range calls {
		if err := out.emit(stream.ToolCall(c.ID, c.Name, c.Arguments)); err != nil {
			return nil, err
		}
		pending[i] = tools.Call{ID: c.ID, Name: c.Name, Args: c.Arguments}
	}

	results := s.executor.ExecuteAll(ctx, pending)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msgs := make([]provider.Message, len(calls))
	for i, c := range calls {
		payload := results[i].JSON()
		if err := out.emit(stream.ToolResult(c.ID, c.Name, payload)); err != nil {
			return nil, err
		}
		msgs[i] = provider.Message{
			Role:       provider.RoleTool,
			Content:    string(payload),
			ToolCallID: c.ID,
			Name:       c.Name,
		}
	}
	return msgs, nil
}

// fail ends the exchange for err and classifies the outcome. The client
// gets a mapped message and a done event; nothing is written after a
// disconnect.
func (s *Service) fail(parent, ctx context.Context, ex *Exchange, out *sink, rec *telemetry.Exchange, err error) telemetry.Outcome {
	switch {
	case parent.Err() != nil || out.writeErr() != nil:
		out.seal()
		s.log.Info("EXCHANGE_CANCELLED", "id", ex.ID, "model", ex.Model.ID, "steps", rec.Steps)
		return telemetry.OutcomeCancelled

	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		logging.Warn(s.log, "EXCHANGE_TIMEOUT", "id", ex.ID, "model", ex.Model.ID, "budget", s.timeout, "steps", rec.Steps)
		out.finish(stream.Error(MsgTimeout), stream.Done(stream.FinishTimeout, rec.Usage))
		return telemetry.OutcomeTimeout
	}

	out.finish(stream.Error(ErrorMessage(err)), stream.Done(stream.FinishError, rec.Usage))
	if IsRateLimit(err) {
		logging.Warn(s.log, "EXCHANGE_RATE_LIMITED", "id", ex.ID, "model", ex.Model.ID, "error", err.Error())
		return telemetry.OutcomeRateLimited
	}
	s.log.Error(err, "EXCHANGE_ERROR", "id", ex.ID, "model", ex.Model.ID, "steps", rec.Steps)
	return telemetry.OutcomeError
}

func (s *Service) toolSpecs() []provider.ToolSpec {
	all := s.executor.Registry().All()
	if len(all) == 0 {
		return nil
	}
	specs := make([]provider.ToolSpec, len(all))
	for i, t := range all {
		specs[i] = provider.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Schema.JSONSchema(),
		}
	}
	return specs
}

func newMessageID() string {
	return "msg-" + strings.ToLower(ulid.Make().String())
}
