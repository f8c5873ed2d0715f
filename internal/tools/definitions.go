// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// =============================================================================
// TOOL DEFINITION
// =============================================================================

// Tool represents an executable tool.
type Tool struct {
	// Name is the identifier the model calls the tool by (e.g. "getWeather")
	Name string

	// Description tells the model when to use the tool
	Description string

	// Schema defines the tool's parameters
	Schema Schema

	// Executor handles the actual execution
	Executor ToolExecutor
}

// Schema defines a tool's parameters.
type Schema struct {
	Parameters []Parameter
}

// Parameter defines a single tool parameter.
type Parameter struct {
	// Name of the parameter
	Name string

	// Type is the JSON type ("string", "number", "boolean", "array", "object")
	Type string

	// Required indicates if the parameter must be provided
	Required bool

	// Description explains the parameter
	Description string

	// Minimum and Maximum bound numeric parameters when set
	Minimum *float64
	Maximum *float64
}

// Bound returns a pointer to v, for Parameter.Minimum and Maximum.
func Bound(v float64) *float64 {
	return &v
}

// JSONSchema renders the schema as a JSON Schema object for the provider.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Parameters))
	required := make([]string, 0, len(s.Parameters))

	for _, p := range s.Parameters {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			prop["maximum"] = *p.Maximum
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// =============================================================================
// TOOL EXECUTOR INTERFACE
// =============================================================================

// ToolExecutor is the interface for individual tool execution.
type ToolExecutor interface {
	Execute(ctx context.Context, params map[string]any) (Result, error)
}

// ToolExecutorFunc adapts a function to ToolExecutor.
type ToolExecutorFunc func(ctx context.Context, params map[string]any) (Result, error)

// Execute calls f.
func (f ToolExecutorFunc) Execute(ctx context.Context, params map[string]any) (Result, error) {
	return f(ctx, params)
}

// Result holds the outcome of a tool execution.
type Result struct {
	// Success indicates if the tool executed successfully
	Success bool

	// Output is the tool's JSON output (for successful execution)
	Output json.RawMessage

	// Error is the error message (for failed execution)
	Error string

	// Duration is how long execution took
	Duration time.Duration

	// Truncated indicates output was dropped for exceeding the size cap
	Truncated bool
}

type errorPayload struct {
	Error string `json:"error"`
}

// JSON returns what the model sees: the output on success, otherwise an
// {"error": "..."} object.
func (r Result) JSON() json.RawMessage {
	if r.Success && len(r.Output) > 0 {
		return r.Output
	}
	msg := r.Error
	if msg == "" {
		msg = "tool produced no output"
	}
	data, err := json.Marshal(errorPayload{Error: msg})
	if err != nil {
		return json.RawMessage(`{"error":"tool failed"}`)
	}
	return data
}

// =============================================================================
// TOOL REGISTRY
// =============================================================================

// Registry holds all available tools. It is filled at construction and
// read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	tools map[string]*Tool
}

// NewRegistry creates a registry holding tools. Names must be unique and
// every tool needs an executor.
func NewRegistry(tools ...*Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]*Tool, len(tools))}
	for _, t := range tools {
		if t == nil || t.Name == "" {
			return nil, fmt.Errorf("tool registry: tool without a name")
		}
		if t.Executor == nil {
			return nil, fmt.Errorf("tool registry: tool %q has no executor", t.Name)
		}
		if _, dup := r.tools[t.Name]; dup {
			return nil, fmt.Errorf("tool registry: duplicate tool %q", t.Name)
		}
		r.tools[t.Name] = t
	}
	return r, nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// All returns all registered tools sorted by name.
func (r *Registry) All() []*Tool {
	result := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Names returns the registered tool names sorted.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name
	}
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}
