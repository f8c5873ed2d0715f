// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestNewRegistry(t *testing.T) {
	noop := ToolExecutorFunc(func(context.Context, map[string]any) (Result, error) { return Result{}, nil })

	_, err := NewRegistry(&Tool{Name: "a", Executor: noop}, &Tool{Name: "a", Executor: noop})
	assert.Error(t, err, "duplicate names")

	_, err = NewRegistry(&Tool{Name: "a"})
	assert.Error(t, err, "missing executor")

	_, err = NewRegistry(&Tool{Executor: noop})
	assert.Error(t, err, "missing name")

	r, err := NewRegistry(&Tool{Name: "b", Executor: noop}, &Tool{Name: "a", Executor: noop})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.Nil(t, r.Get("c"))
}

func TestBuiltins(t *testing.T) {
	r, err := Builtins("")
	require.NoError(t, err)
	assert.Equal(t, []string{WeatherToolName}, r.Names())
}

func TestSchema_JSONSchema(t *testing.T) {
	s := WeatherTool(nil).Schema.JSONSchema()

	assert.Equal(t, "object", s["type"])
	assert.Equal(t, []string{"latitude", "longitude"}, s["required"])

	props := s["properties"].(map[string]any)
	lat := props["latitude"].(map[string]any)
	assert.Equal(t, "number", lat["type"])
	assert.Equal(t, -90.0, lat["minimum"])
	assert.Equal(t, 90.0, lat["maximum"])
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidateToolArgs(t *testing.T) {
	schema := &WeatherTool(nil).Schema

	tests := []struct {
		name      string
		args      map[string]any
		wantParam string
	}{
		{name: "valid", args: map[string]any{"latitude": 52.37, "longitude": 4.89}},
		{name: "missing", args: map[string]any{"latitude": 52.37}, wantParam: "longitude"},
		{name: "null", args: map[string]any{"latitude": nil, "longitude": 1.0}, wantParam: "latitude"},
		{name: "string", args: map[string]any{"latitude": "52", "longitude": 1.0}, wantParam: "latitude"},
		{name: "too high", args: map[string]any{"latitude": 91.0, "longitude": 1.0}, wantParam: "latitude"},
		{name: "too low", args: map[string]any{"latitude": 0.0, "longitude": -181.0}, wantParam: "longitude"},
		{name: "edge", args: map[string]any{"latitude": -90.0, "longitude": 180.0}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateToolArgs(schema, tc.args)
			if tc.wantParam == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "error = %v", err)
			assert.Equal(t, tc.wantParam, verr.Param)
		})
	}
}

// =============================================================================
// EXECUTOR TESTS
// =============================================================================

func echoTool(name string, delay time.Duration) *Tool {
	return &Tool{
		Name: name,
		Schema: Schema{Parameters: []Parameter{
			{Name: "n", Type: "number", Required: true},
		}},
		Executor: ToolExecutorFunc(func(ctx context.Context, params map[string]any) (Result, error) {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
			out, _ := json.Marshal(map[string]any{"tool": name, "n": params["n"]})
			return Result{Success: true, Output: out}, nil
		}),
	}
}

func TestExecutor_Execute(t *testing.T) {
	r, err := NewRegistry(echoTool("echo", 0))
	require.NoError(t, err)
	exec := NewExecutor(r)

	res := exec.Execute(context.Background(), Call{ID: "1", Name: "echo", Args: json.RawMessage(`{"n":3}`)})
	require.True(t, res.Success, res.Error)
	assert.JSONEq(t, `{"tool":"echo","n":3}`, string(res.JSON()))

	res = exec.Execute(context.Background(), Call{ID: "2", Name: "nope"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown tool")
	assert.JSONEq(t, `{"error":"unknown tool: nope"}`, string(res.JSON()))

	res = exec.Execute(context.Background(), Call{ID: "3", Name: "echo", Args: json.RawMessage(`{"n":`)})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid arguments")

	res = exec.Execute(context.Background(), Call{ID: "4", Name: "echo", Args: json.RawMessage(`{}`)})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "parameter validation failed")
}

func TestExecutor_Timeout(t *testing.T) {
	stuck := &Tool{
		Name: "stuck",
		Executor: ToolExecutorFunc(func(ctx context.Context, params map[string]any) (Result, error) {
			time.Sleep(time.Second)
			return Result{Success: true}, nil
		}),
	}
	r, err := NewRegistry(stuck)
	require.NoError(t, err)

	start := time.Now()
	res := NewExecutor(r).WithTimeout(20*time.Millisecond).Execute(context.Background(), Call{Name: "stuck"})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "timed out")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestExecutor_OutputCap(t *testing.T) {
	big := &Tool{
		Name: "big",
		Executor: ToolExecutorFunc(func(context.Context, map[string]any) (Result, error) {
			return Result{Success: true, Output: json.RawMessage(`"` + strings.Repeat("x", 100) + `"`)}, nil
		}),
	}
	r, err := NewRegistry(big)
	require.NoError(t, err)

	res := NewExecutor(r).WithMaxOutputSize(10).Execute(context.Background(), Call{Name: "big"})
	assert.False(t, res.Success)
	assert.True(t, res.Truncated)
	assert.True(t, json.Valid(res.JSON()))
}

func TestExecutor_ExecuteAllPreservesOrder(t *testing.T) {
	r, err := NewRegistry(echoTool("slow", 100*time.Millisecond), echoTool("fast", 0))
	require.NoError(t, err)

	calls := []Call{
		{ID: "a", Name: "slow", Args: json.RawMessage(`{"n":1}`)},
		{ID: "b", Name: "fast", Args: json.RawMessage(`{"n":2}`)},
		{ID: "c", Name: "slow", Args: json.RawMessage(`{"n":3}`)},
	}

	start := time.Now()
	results := NewExecutor(r).ExecuteAll(context.Background(), calls)
	elapsed := time.Since(start)

	require.Len(t, results, 3)
	assert.JSONEq(t, `{"tool":"slow","n":1}`, string(results[0].Output))
	assert.JSONEq(t, `{"tool":"fast","n":2}`, string(results[1].Output))
	assert.JSONEq(t, `{"tool":"slow","n":3}`, string(results[2].Output))
	assert.Less(t, elapsed, 190*time.Millisecond, "calls should run concurrently")
}

// =============================================================================
// WEATHER TESTS
// =============================================================================

func TestWeatherExecutor(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "52.37", q.Get("latitude"))
		assert.Equal(t, "4.89", q.Get("longitude"))
		assert.Equal(t, "temperature_2m", q.Get("current"))
		assert.Equal(t, "temperature_2m", q.Get("hourly"))
		assert.Equal(t, "sunrise,sunset", q.Get("daily"))
		assert.Equal(t, "auto", q.Get("timezone"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"current":{"temperature_2m":18.2}}`))
	}))
	defer srv.Close()

	r, err := NewRegistry(WeatherTool(NewWeatherExecutor(srv.URL).WithHTTPClient(srv.Client())))
	require.NoError(t, err)

	res := NewExecutor(r).Execute(context.Background(), Call{
		ID:   "call_1",
		Name: WeatherToolName,
		Args: json.RawMessage(`{"latitude":52.37,"longitude":4.89}`),
	})
	require.True(t, res.Success, res.Error)
	assert.JSONEq(t, `{"current":{"temperature_2m":18.2}}`, string(res.Output))
	assert.Equal(t, int32(1), hits.Load())
}

func TestWeatherExecutor_UpstreamFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name:    "status",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			want:    "returned 502",
		},
		{
			name:    "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>")) },
			want:    "invalid JSON",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			exec := NewWeatherExecutor(srv.URL).WithHTTPClient(srv.Client())
			_, err := exec.Execute(context.Background(), map[string]any{"latitude": 1.0, "longitude": 2.0})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestWeatherExecutor_RateLimit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	exec := NewWeatherExecutor(srv.URL).WithHTTPClient(srv.Client()).WithRateLimit(0.1, 1)
	params := map[string]any{"latitude": 1.0, "longitude": 2.0}

	_, err := exec.Execute(context.Background(), params)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = exec.Execute(ctx, params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, int32(1), hits.Load(), "throttled call must not reach upstream")

	exec.WithRateLimit(0, 0)
	_, err = exec.Execute(context.Background(), params)
	assert.NoError(t, err)
}
