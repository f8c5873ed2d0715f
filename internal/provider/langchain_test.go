// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/gokkerz/roulette/internal/stream"
)

type mockModel struct {
	mock.Mock
}

func (m *mockModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	args := m.Called(ctx, prompt, options)
	return args.String(0), args.Error(1)
}

func (m *mockModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	args := m.Called(ctx, messages, options)
	resp, _ := args.Get(0).(*llms.ContentResponse)
	return resp, args.Error(1)
}

func callOptions(options []llms.CallOption) llms.CallOptions {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	return opts
}

func TestLangChain_StreamsChunks(t *testing.T) {
	mm := new(mockModel)
	resp := &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        "Hoi daar",
		StopReason:     "stop",
		GenerationInfo: map[string]any{"PromptTokens": 10, "CompletionTokens": 2},
	}}}

	mm.On("GenerateContent", mock.Anything, mock.MatchedBy(func(msgs []llms.MessageContent) bool {
		return len(msgs) == 2 &&
			msgs[0].Role == llms.ChatMessageTypeSystem &&
			msgs[1].Role == llms.ChatMessageTypeHuman
	}), mock.Anything).Run(func(args mock.Arguments) {
		opts := callOptions(args.Get(2).([]llms.CallOption))
		require.NotNil(t, opts.StreamingFunc)
		assert.Equal(t, "llama", opts.Model)
		require.NoError(t, opts.StreamingFunc(context.Background(), []byte("Hoi")))
		require.NoError(t, opts.StreamingFunc(context.Background(), []byte(" daar")))
	}).Return(resp, nil)

	lm := NewLangChainModel(mm, "llama")
	deltas, res, err := collect(t, lm, Call{
		System:   "persona",
		Messages: []Message{{Role: RoleUser, Content: "hallo"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []Delta{{Kind: DeltaText, Text: "Hoi"}, {Kind: DeltaText, Text: " daar"}}, deltas)
	assert.Equal(t, stream.FinishStop, res.FinishReason)
	assert.Equal(t, stream.Usage{PromptTokens: 10, CompletionTokens: 2}, res.Usage)
	mm.AssertExpectations(t)
}

func TestLangChain_FallsBackToContent(t *testing.T) {
	mm := new(mockModel)
	resp := &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "in een keer", StopReason: "stop"}}}
	mm.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return(resp, nil)

	deltas, _, err := collect(t, NewLangChainModel(mm, "llama"), Call{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	require.NoError(t, err)
	assert.Equal(t, []Delta{{Kind: DeltaText, Text: "in een keer"}}, deltas)
}

func TestLangChain_ToolCalls(t *testing.T) {
	mm := new(mockModel)
	resp := &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:           "call_1",
			FunctionCall: &llms.FunctionCall{Name: "getWeather", Arguments: `{"latitude":52.1,"longitude":4.3}`},
		}},
	}}}

	mm.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		opts := callOptions(args.Get(2).([]llms.CallOption))
		require.Len(t, opts.Tools, 1)
		assert.Equal(t, "getWeather", opts.Tools[0].Function.Name)
	}).Return(resp, nil)

	_, res, err := collect(t, NewLangChainModel(mm, "llama"), Call{
		Messages: []Message{{Role: RoleUser, Content: "weer?"}},
		Tools:    []ToolSpec{{Name: "getWeather", Parameters: map[string]any{"type": "object"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, stream.FinishToolCalls, res.FinishReason)
	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, "call_1", res.ToolCalls[0].ID)
	assert.JSONEq(t, `{"latitude":52.1,"longitude":4.3}`, string(res.ToolCalls[0].Arguments))
}

func TestLangChain_Errors(t *testing.T) {
	t.Run("rate limit", func(t *testing.T) {
		mm := new(mockModel)
		mm.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("API returned unexpected status code: 429"))

		_, _, err := collect(t, NewLangChainModel(mm, "llama"), Call{})
		assert.ErrorIs(t, err, ErrRateLimited)
	})

	t.Run("empty response", func(t *testing.T) {
		mm := new(mockModel)
		mm.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
			Return(&llms.ContentResponse{}, nil)

		_, _, err := collect(t, NewLangChainModel(mm, "llama"), Call{})
		var apiErr *APIError
		assert.ErrorAs(t, err, &apiErr)
	})

	t.Run("context", func(t *testing.T) {
		mm := new(mockModel)
		mm.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("transport closed"))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewLangChainModel(mm, "llama").Stream(ctx, Call{}, func(Delta) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestToLangChainMessages_ToolRound(t *testing.T) {
	msgs := toLangChainMessages(Call{Messages: []Message{
		{Role: RoleUser, Content: "weer?"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "getWeather", Arguments: []byte(`{}`)}}},
		{Role: RoleTool, ToolCallID: "c1", Name: "getWeather", Content: `{"t":1}`},
	}})

	require.Len(t, msgs, 3)
	assert.Equal(t, llms.ChatMessageTypeAI, msgs[1].Role)
	call, ok := msgs[1].Parts[0].(llms.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "c1", call.ID)

	assert.Equal(t, llms.ChatMessageTypeTool, msgs[2].Role)
	resp, ok := msgs[2].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, `{"t":1}`, resp.Content)
}
