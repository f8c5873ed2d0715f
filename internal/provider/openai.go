// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/goccy/go-json"

	"github.com/gokkerz/roulette/internal/stream"
)

// Configuration constants for OpenAI-compatible APIs.
const (
	// DefaultBaseURL is the Groq OpenAI-compatible API root.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 * 1024
)

// sharedStreamingClient is used for streaming requests (no timeout,
// context-controlled).
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type chatRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	Tools         []chatTool     `json:"tools,omitempty"`
	Stream        bool           `json:"stream"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatToolCall struct {
	Index    *int   `json:"index,omitempty"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type reasoningDetail struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Data string `json:"data"`
}

// streamChunk is one chat.completion.chunk event.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content          string            `json:"content"`
			Reasoning        string            `json:"reasoning"`
			ReasoningContent string            `json:"reasoning_content"`
			ReasoningDetails []reasoningDetail `json:"reasoning_details"`
			ToolCalls        []chatToolCall    `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage"`
	XGroq *struct {
		Usage *chatUsage `json:"usage"`
	} `json:"x_groq"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// OpenAIClient streams chat completions from an OpenAI-compatible API.
// It performs no retries: a failed step fails the exchange.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        logr.Logger
}

// NewOpenAIClient creates a client for the API rooted at baseURL.
func NewOpenAIClient(baseURL, apiKey string) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OpenAIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: sharedStreamingClient,
		log:        logr.Discard(),
	}
}

// WithHTTPClient sets the HTTP client.
func (c *OpenAIClient) WithHTTPClient(hc *http.Client) *OpenAIClient {
	c.httpClient = hc
	return c
}

// WithLogger sets the logger.
func (c *OpenAIClient) WithLogger(log logr.Logger) *OpenAIClient {
	c.log = log
	return c
}

// IsConfigured reports whether an API key is set.
func (c *OpenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Model returns a LanguageModel bound to the named model.
func (c *OpenAIClient) Model(name string) LanguageModel {
	return &openAIModel{client: c, name: name}
}

type openAIModel struct {
	client *OpenAIClient
	name   string
}

func (m *openAIModel) Stream(ctx context.Context, call Call, emit EmitFunc) (*StepResult, error) {
	return m.client.stream(ctx, m.name, call, emit)
}

func (c *OpenAIClient) stream(ctx context.Context, modelName string, call Call, emit EmitFunc) (*StepResult, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(buildChatRequest(modelName, call))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.V(1).Info("PROVIDER_RESPONSE", "model", modelName, "status", resp.StatusCode, "latency", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, handleErrorResponse(resp, data)
	}

	return processStream(ctx, resp.Body, emit)
}

func buildChatRequest(modelName string, call Call) chatRequest {
	req := chatRequest{
		Model:         modelName,
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	}

	if call.System != "" {
		req.Messages = append(req.Messages, chatMessage{Role: string(RoleSystem), Content: call.System})
	}
	for _, m := range call.Messages {
		cm := chatMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, tc := range m.ToolCalls {
			var wire chatToolCall
			wire.ID = tc.ID
			wire.Type = "function"
			wire.Function.Name = tc.Name
			wire.Function.Arguments = string(tc.Arguments)
			if wire.Function.Arguments == "" {
				wire.Function.Arguments = "{}"
			}
			cm.ToolCalls = append(cm.ToolCalls, wire)
		}
		req.Messages = append(req.Messages, cm)
	}
	for _, t := range call.Tools {
		req.Tools = append(req.Tools, chatTool{
			Type:     "function",
			Function: chatFunction{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
		})
	}
	return req
}

// toolCallBuilder accumulates one tool call spread over several chunks.
type toolCallBuilder struct {
	id   string
	name string
	args strings.Builder
}

// processStream reads the SSE body, emitting deltas in arrival order.
func processStream(ctx context.Context, body io.Reader, emit EmitFunc) (*StepResult, error) {
	reader := NewSSEReader(body)

	var partial strings.Builder
	var finish string
	var usage stream.Usage
	calls := make(map[int]*toolCallBuilder)

	fail := func(err error) (*StepResult, error) {
		return nil, &StreamError{Partial: partial.String(), Err: err}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return fail(err)
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed chunks
			continue
		}

		if chunk.Error != nil {
			msg := chunk.Error.Message
			if strings.Contains(msg, "Rate limit") || chunk.Error.Type == "rate_limit_exceeded" {
				return fail(&RateLimitError{Message: msg})
			}
			return fail(&APIError{Type: chunk.Error.Type, Message: msg})
		}

		if chunk.Usage != nil {
			usage = stream.Usage{PromptTokens: chunk.Usage.PromptTokens, CompletionTokens: chunk.Usage.CompletionTokens}
		} else if chunk.XGroq != nil && chunk.XGroq.Usage != nil {
			usage = stream.Usage{PromptTokens: chunk.XGroq.Usage.PromptTokens, CompletionTokens: chunk.XGroq.Usage.CompletionTokens}
		}

		for _, choice := range chunk.Choices {
			d := choice.Delta

			reasoning := d.Reasoning
			if reasoning == "" {
				reasoning = d.ReasoningContent
			}
			if reasoning != "" {
				if err := emit(Delta{Kind: DeltaReasoning, Text: reasoning}); err != nil {
					return nil, err
				}
			}
			for _, rd := range d.ReasoningDetails {
				if rd.Type == "reasoning.encrypted" || rd.Type == "reasoning.redacted" {
					if err := emit(Delta{Kind: DeltaRedacted, Text: rd.Data}); err != nil {
						return nil, err
					}
				}
			}

			if d.Content != "" {
				partial.WriteString(d.Content)
				if err := emit(Delta{Kind: DeltaText, Text: d.Content}); err != nil {
					return nil, err
				}
			}

			for i, tc := range d.ToolCalls {
				idx := i
				if tc.Index != nil {
					idx = *tc.Index
				}
				b, ok := calls[idx]
				if !ok {
					b = &toolCallBuilder{}
					calls[idx] = b
				}
				if tc.ID != "" {
					b.id = tc.ID
				}
				if tc.Function.Name != "" {
					b.name = tc.Function.Name
				}
				b.args.WriteString(tc.Function.Arguments)
			}

			if choice.FinishReason != nil && *choice.FinishReason != "" {
				finish = *choice.FinishReason
			}
		}
	}

	toolCalls := collectToolCalls(calls)
	return &StepResult{
		FinishReason: finishReasonFrom(finish, len(toolCalls) > 0),
		ToolCalls:    toolCalls,
		Usage:        usage,
	}, nil
}

func collectToolCalls(calls map[int]*toolCallBuilder) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(calls))
	for idx := range calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	out := make([]ToolCall, 0, len(indexes))
	for _, idx := range indexes {
		b := calls[idx]
		out = append(out, ToolCall{ID: b.id, Name: b.name, Arguments: toolArguments(b.args.String())})
	}
	return out
}
