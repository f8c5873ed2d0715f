// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"
)

// Client-facing failure messages.
const (
	MsgRateLimited = "Rate limit exceeded. Please try again later."
	MsgGeneric     = "An error occurred."
	MsgTimeout     = "The request timed out. Please try again."
)

// rateLimitMarker is matched against provider error text.
const rateLimitMarker = "Rate limit"

// Input error codes.
const (
	CodeInvalidBody      = "invalid_body"
	CodeEmptyMessages    = "empty_messages"
	CodeTooManyMessages  = "too_many_messages"
	CodeInvalidRole      = "invalid_role"
	CodeInvalidMessage   = "invalid_message"
	CodeMessageTooLong   = "message_too_long"
	CodeUnsupportedModel = "unsupported_model"
)

// InputError rejects a request before any provider call.
type InputError struct {
	Code    string
	Message string
	Err     error
}

func (e *InputError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *InputError) Unwrap() error {
	return e.Err
}

func inputErrorf(code string, err error, format string, args ...any) *InputError {
	return &InputError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// AsInputError returns the InputError in err's chain, if any.
func AsInputError(err error) (*InputError, bool) {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// IsRateLimit reports whether a provider error is a rate limit.
func IsRateLimit(err error) bool {
	return err != nil && strings.Contains(err.Error(), rateLimitMarker)
}

// ErrorMessage maps a provider error onto the text shown to the client.
// Only rate limits are distinguished; every other failure is generic.
func ErrorMessage(err error) string {
	if IsRateLimit(err) {
		return MsgRateLimited
	}
	return MsgGeneric
}
