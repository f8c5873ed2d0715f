// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/gokkerz/roulette/internal/stream"
)

// LangChainModel adapts a langchaingo llms.Model. Text is relayed through
// the streaming callback when the backend streams, and emitted in one
// piece from the response otherwise. langchaingo surfaces no reasoning
// channel, so this backend never emits reasoning deltas.
type LangChainModel struct {
	llm  llms.Model
	name string
}

// NewLangChainModel binds llm to the named model.
func NewLangChainModel(llm llms.Model, name string) *LangChainModel {
	return &LangChainModel{llm: llm, name: name}
}

// NewLangChainOpenAI builds a langchaingo OpenAI-compatible model for the
// API at baseURL.
func NewLangChainOpenAI(baseURL, apiKey, name string) (*LangChainModel, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(name),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchain model: %w", err)
	}
	return NewLangChainModel(llm, name), nil
}

// Stream runs one step through GenerateContent.
func (m *LangChainModel) Stream(ctx context.Context, call Call, emit EmitFunc) (*StepResult, error) {
	streamed := false
	options := []llms.CallOption{
		llms.WithModel(m.name),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			streamed = true
			return emit(Delta{Kind: DeltaText, Text: string(chunk)})
		}),
	}
	if len(call.Tools) > 0 {
		options = append(options, llms.WithTools(toLangChainTools(call.Tools)))
	}

	resp, err := m.llm.GenerateContent(ctx, toLangChainMessages(call), options...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if strings.Contains(err.Error(), "429") {
			return nil, &RateLimitError{Message: err.Error()}
		}
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &APIError{Message: "empty response"}
	}

	var toolCalls []ToolCall
	for _, choice := range resp.Choices {
		if !streamed && choice.Content != "" {
			if err := emit(Delta{Kind: DeltaText, Text: choice.Content}); err != nil {
				return nil, err
			}
		}
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			toolCalls = append(toolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.FunctionCall.Name,
				Arguments: toolArguments(tc.FunctionCall.Arguments),
			})
		}
	}

	first := resp.Choices[0]
	return &StepResult{
		FinishReason: finishReasonFrom(first.StopReason, len(toolCalls) > 0),
		ToolCalls:    toolCalls,
		Usage: stream.Usage{
			PromptTokens:     generationInt(first.GenerationInfo, "PromptTokens", "InputTokens"),
			CompletionTokens: generationInt(first.GenerationInfo, "CompletionTokens", "OutputTokens"),
		},
	}, nil
}

func toLangChainMessages(call Call) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(call.Messages)+1)
	if call.System != "" {
		out = append(out, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(call.System)},
		})
	}

	for _, m := range call.Messages {
		switch m.Role {
		case RoleUser:
			out = append(out, llms.MessageContent{
				Role:  llms.ChatMessageTypeHuman,
				Parts: []llms.ContentPart{llms.TextPart(m.Content)},
			})
		case RoleAssistant:
			msg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if m.Content != "" {
				msg.Parts = append(msg.Parts, llms.TextPart(m.Content))
			}
			for _, tc := range m.ToolCalls {
				msg.Parts = append(msg.Parts, llms.ToolCall{
					ID:   tc.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			out = append(out, msg)
		case RoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: m.ToolCallID,
						Name:       m.Name,
						Content:    m.Content,
					},
				},
			})
		case RoleSystem:
			out = append(out, llms.MessageContent{
				Role:  llms.ChatMessageTypeSystem,
				Parts: []llms.ContentPart{llms.TextPart(m.Content)},
			})
		}
	}
	return out
}

func toLangChainTools(specs []ToolSpec) []llms.Tool {
	out := make([]llms.Tool, 0, len(specs))
	for _, s := range specs {
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}
	return out
}

// generationInt reads the first present key of a GenerationInfo map.
func generationInt(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
