// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// TOOL CALL
// =============================================================================

// Call is one tool invocation requested by the model.
type Call struct {
	// ID is the provider-assigned call ID, echoed in the result
	ID string

	// Name is the tool name
	Name string

	// Args is the JSON argument object as produced by the model
	Args json.RawMessage
}

// =============================================================================
// EXECUTOR
// =============================================================================

// DefaultToolTimeout is applied when neither the executor nor the context
// sets a deadline.
const DefaultToolTimeout = 30 * time.Second

// DefaultMaxOutputSize caps a single tool result (256KB).
const DefaultMaxOutputSize = 256 * 1024

// Executor runs model tool calls against a registry.
type Executor struct {
	registry      *Registry
	timeout       time.Duration
	maxOutputSize int
	log           logr.Logger
}

// NewExecutor creates a new tool executor with the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{
		registry:      registry,
		timeout:       DefaultToolTimeout,
		maxOutputSize: DefaultMaxOutputSize,
		log:           logr.Discard(),
	}
}

// WithTimeout sets the per-call timeout.
func (e *Executor) WithTimeout(d time.Duration) *Executor {
	if d > 0 {
		e.timeout = d
	}
	return e
}

// WithMaxOutputSize sets the result size cap in bytes.
func (e *Executor) WithMaxOutputSize(n int) *Executor {
	if n > 0 {
		e.maxOutputSize = n
	}
	return e
}

// WithLogger sets the logger.
func (e *Executor) WithLogger(log logr.Logger) *Executor {
	e.log = log
	return e
}

// Registry returns the tool registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute runs one call. Failures are reported in the Result, never as a
// Go error: the model receives them as a tool result and carries on.
func (e *Executor) Execute(ctx context.Context, call Call) Result {
	start := time.Now()

	result := e.execute(ctx, call)
	result.Duration = time.Since(start)

	if result.Success {
		e.log.Info("TOOL_EXECUTE", "tool", call.Name, "call_id", call.ID, "duration", result.Duration, "bytes", len(result.Output))
	} else {
		e.log.Info("TOOL_FAILED", "tool", call.Name, "call_id", call.ID, "duration", result.Duration, "error", result.Error)
	}
	return result
}

func (e *Executor) execute(ctx context.Context, call Call) Result {
	tool := e.registry.Get(call.Name)
	if tool == nil {
		return Result{Error: "unknown tool: " + call.Name}
	}

	params, err := decodeArgs(call.Args)
	if err != nil {
		return Result{Error: "invalid arguments: " + err.Error()}
	}

	if err := ValidateToolArgs(&tool.Schema, params); err != nil {
		return Result{Error: "parameter validation failed: " + err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// Run in a goroutine so an executor that ignores ctx cannot hold the
	// exchange past its deadline
	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := tool.Executor.Execute(ctx, params)
		done <- outcome{r, err}
	}()

	var result Result
	select {
	case o := <-done:
		if o.err != nil {
			result = Result{Error: o.err.Error()}
		} else {
			result = o.result
		}
	case <-ctx.Done():
		result = Result{Error: "tool execution timed out: " + ctx.Err().Error()}
	}

	if len(result.Output) > e.maxOutputSize {
		// Cutting JSON would hand the model invalid input
		result = Result{
			Error:     fmt.Sprintf("tool output exceeded %d bytes", e.maxOutputSize),
			Truncated: true,
		}
	}
	return result
}

// ExecuteAll runs calls concurrently and returns their results in call
// order. Cancelling ctx aborts every pending call.
func (e *Executor) ExecuteAll(ctx context.Context, calls []Call) []Result {
	results := make([]Result, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = e.Execute(gctx, call)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func decodeArgs(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError reports an argument that does not match the schema.
type ValidationError struct {
	Param   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Param, e.Message)
}

// ValidateToolArgs validates arguments against a schema: required
// parameters, JSON types and numeric bounds.
func ValidateToolArgs(schema *Schema, args map[string]any) error {
	if schema == nil {
		return nil
	}

	for _, param := range schema.Parameters {
		val, exists := args[param.Name]

		if param.Required && (!exists || val == nil) {
			return &ValidationError{Param: param.Name, Message: "missing required argument"}
		}
		if !exists || val == nil {
			continue
		}

		if err := validateArgType(param, val); err != nil {
			return err
		}
		if param.Type == "number" {
			if err := validateNumericBounds(param, val.(float64)); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateArgType validates the type of a decoded JSON argument.
func validateArgType(param Parameter, val any) error {
	ok := true
	switch param.Type {
	case "string":
		_, ok = val.(string)
	case "number":
		_, ok = val.(float64)
	case "boolean":
		_, ok = val.(bool)
	case "array":
		_, ok = val.([]any)
	case "object":
		_, ok = val.(map[string]any)
	}
	if !ok {
		return &ValidationError{Param: param.Name, Message: "expected " + param.Type + " type"}
	}
	return nil
}

// validateNumericBounds checks a number against the parameter's bounds.
func validateNumericBounds(param Parameter, v float64) error {
	if param.Minimum != nil && v < *param.Minimum {
		return &ValidationError{Param: param.Name, Message: fmt.Sprintf("must be >= %g", *param.Minimum)}
	}
	if param.Maximum != nil && v > *param.Maximum {
		return &ValidationError{Param: param.Name, Message: fmt.Sprintf("must be <= %g", *param.Maximum)}
	}
	return nil
}
