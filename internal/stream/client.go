// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/goccy/go-json"

	"github.com/gokkerz/roulette/internal/model"
)

// =============================================================================
// REQUEST / ERROR TYPES
// =============================================================================

// Request is the body of POST /api/chat.
type Request struct {
	// ID optionally identifies the conversation
	ID string `json:"id,omitempty"`

	// Messages is the full ordered history
	Messages []model.ConversationMessage `json:"messages"`

	// SelectedModel picks the model; empty selects the default
	SelectedModel model.ID `json:"selectedModel"`
}

// ErrorBody is the JSON body of a rejected request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a rejected request.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// HTTPError is returned when the endpoint rejects a request before
// streaming.
type HTTPError struct {
	Status  int
	Message string
	Code    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat endpoint returned %d", e.Status)
	}
	return fmt.Sprintf("chat endpoint returned %d: %s", e.Status, e.Message)
}

// ErrTruncated is returned when the stream ends without a done frame.
var ErrTruncated = errors.New("stream ended before completion")

// =============================================================================
// CLIENT
// =============================================================================

// sharedStreamingClient has no timeout; streams are bounded by context.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Client posts conversations to a chat endpoint and decodes the reply.
type Client struct {
	url        string
	httpClient *http.Client
	log        logr.Logger
}

// NewClient creates a client for the endpoint at url
// (e.g. http://127.0.0.1:8787/api/chat).
func NewClient(url string) *Client {
	return &Client{
		url:        url,
		httpClient: sharedStreamingClient,
		log:        logr.Discard(),
	}
}

// WithHTTPClient sets the HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(log logr.Logger) *Client {
	c.log = log
	return c
}

// URL returns the endpoint URL.
func (c *Client) URL() string {
	return c.url
}

// Stream posts req and calls fn for every event in order. It returns nil
// after the done event, the error returned by fn, an *HTTPError when the
// endpoint rejects the request, or ErrTruncated when the body ends early.
func (c *Client) Stream(ctx context.Context, req Request, fn func(Event) error) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", ContentType)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeHTTPError(resp)
	}
	if v := resp.Header.Get(ProtocolHeader); v != "" && v != ProtocolV1 {
		return fmt.Errorf("unsupported stream protocol %q", v)
	}

	reader := NewReader(resp.Body)
	frames := 0
	for {
		e, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.log.V(1).Info("STREAM_TRUNCATED", "frames", frames, "duration", time.Since(start))
				return ErrTruncated
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("read stream: %w", err)
		}
		frames++

		if err := fn(e); err != nil {
			return err
		}
		if e.IsTerminal() {
			c.log.V(1).Info("STREAM_COMPLETE", "frames", frames, "finish", e.FinishReason, "duration", time.Since(start))
			return nil
		}
	}
}

func decodeHTTPError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var body ErrorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		return &HTTPError{Status: resp.StatusCode, Message: body.Error.Message, Code: body.Error.Code}
	}
	return &HTTPError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
}
