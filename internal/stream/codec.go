// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Frame type codes.
const (
	CodeText              = '0'
	CodeError             = '3'
	CodeToolCall          = '9'
	CodeToolResult        = 'a'
	CodeDone              = 'd'
	CodeStepFinish        = 'e'
	CodeStepStart         = 'f'
	CodeReasoning         = 'g'
	CodeRedactedReasoning = 'i'
)

// ErrMalformedFrame is returned for a line that is not CODE:JSON.
var ErrMalformedFrame = errors.New("malformed stream frame")

// UnknownCodeError is returned for a well-formed frame with a code this
// package does not handle. Readers skip these.
type UnknownCodeError struct {
	Code byte
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown stream frame code %q", e.Code)
}

type stepStartPayload struct {
	MessageID string `json:"messageId"`
}

type redactedPayload struct {
	Data string `json:"data"`
}

type toolCallPayload struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args"`
}

type toolResultPayload struct {
	ToolCallID string          `json:"toolCallId"`
	Result     json.RawMessage `json:"result"`
}

type stepFinishPayload struct {
	FinishReason FinishReason `json:"finishReason"`
	Usage        Usage        `json:"usage"`
	IsContinued  bool         `json:"isContinued"`
}

type donePayload struct {
	FinishReason FinishReason `json:"finishReason"`
	Usage        Usage        `json:"usage"`
}

var emptyObject = json.RawMessage(`{}`)

func orEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return emptyObject
	}
	return raw
}

// EncodeError reports an event that cannot be rendered as a frame. Nothing
// was written, so the stream itself is still usable.
type EncodeError struct {
	Kind Kind
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s frame: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying marshal error.
func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Encode renders e as a single newline-terminated frame.
func Encode(e Event) ([]byte, error) {
	var code byte
	var payload any

	switch e.Kind {
	case KindStepStart:
		code, payload = CodeStepStart, stepStartPayload{MessageID: e.MessageID}
	case KindTextDelta:
		code, payload = CodeText, e.Text
	case KindReasoningDelta:
		code, payload = CodeReasoning, e.Text
	case KindRedactedReasoning:
		code, payload = CodeRedactedReasoning, redactedPayload{Data: e.Data}
	case KindToolCall:
		code, payload = CodeToolCall, toolCallPayload{ToolCallID: e.ToolCallID, ToolName: e.ToolName, Args: orEmpty(e.Args)}
	case KindToolResult:
		code, payload = CodeToolResult, toolResultPayload{ToolCallID: e.ToolCallID, Result: orEmpty(e.Result)}
	case KindStepFinish:
		code, payload = CodeStepFinish, stepFinishPayload{FinishReason: e.FinishReason, Usage: e.Usage, IsContinued: e.IsContinued}
	case KindError:
		code, payload = CodeError, e.Text
	case KindDone:
		code, payload = CodeDone, donePayload{FinishReason: e.FinishReason, Usage: e.Usage}
	default:
		return nil, &EncodeError{Kind: e.Kind, Err: fmt.Errorf("unknown event kind")}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &EncodeError{Kind: e.Kind, Err: err}
	}

	frame := make([]byte, 0, len(body)+3)
	frame = append(frame, code, ':')
	frame = append(frame, body...)
	frame = append(frame, '\n')
	return frame, nil
}

// Decode parses one frame line. Trailing CR/LF is ignored.
func Decode(line []byte) (Event, error) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) < 2 || line[1] != ':' {
		return Event{}, ErrMalformedFrame
	}
	code, body := line[0], line[2:]

	var e Event
	var err error
	switch code {
	case CodeStepStart:
		var p stepStartPayload
		err = json.Unmarshal(body, &p)
		e = StepStart(p.MessageID)
	case CodeText:
		var s string
		err = json.Unmarshal(body, &s)
		e = TextDelta(s)
	case CodeReasoning:
		var s string
		err = json.Unmarshal(body, &s)
		e = ReasoningDelta(s)
	case CodeRedactedReasoning:
		var p redactedPayload
		err = json.Unmarshal(body, &p)
		e = RedactedReasoning(p.Data)
	case CodeToolCall:
		var p toolCallPayload
		err = json.Unmarshal(body, &p)
		e = ToolCall(p.ToolCallID, p.ToolName, p.Args)
	case CodeToolResult:
		var p toolResultPayload
		err = json.Unmarshal(body, &p)
		e = ToolResult(p.ToolCallID, "", p.Result)
	case CodeStepFinish:
		var p stepFinishPayload
		err = json.Unmarshal(body, &p)
		e = StepFinish(p.FinishReason, p.Usage, p.IsContinued)
	case CodeError:
		var s string
		err = json.Unmarshal(body, &s)
		e = Error(s)
	case CodeDone:
		var p donePayload
		err = json.Unmarshal(body, &p)
		e = Done(p.FinishReason, p.Usage)
	default:
		return Event{}, &UnknownCodeError{Code: code}
	}

	if err != nil {
		return Event{}, fmt.Errorf("%w: %c: %v", ErrMalformedFrame, code, err)
	}
	return e, nil
}
