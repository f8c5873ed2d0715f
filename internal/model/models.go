// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"sort"
)

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ID identifies a supported language model.
type ID string

// String returns the identifier as a string.
func (id ID) String() string {
	return string(id)
}

// ModelInfo contains information about a supported model.
type ModelInfo struct {
	// ID is the model identifier sent to the provider
	ID ID `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Provider identifies the hosting service
	Provider string `json:"provider"`

	// MaxTokens is the context window size
	MaxTokens int `json:"max_tokens"`

	// Reasoning is true when the model may emit a reasoning channel
	Reasoning bool `json:"reasoning"`

	// ToolCalling is true when the model accepts tool definitions
	ToolCalling bool `json:"tool_calling"`
}

// =============================================================================
// MODEL REGISTRY
// =============================================================================

// LlamaScout is the only model served at the moment.
const LlamaScout ID = "meta-llama/llama-4-scout-17b-16e-instruct"

// DefaultModel is used when a request leaves the selection empty.
const DefaultModel = LlamaScout

// Registry is an immutable table of supported models.
type Registry struct {
	models       map[ID]ModelInfo
	defaultModel ID
}

// NewRegistry builds a registry. The default model must be one of the
// entries and IDs must be unique.
func NewRegistry(defaultModel ID, models ...ModelInfo) (*Registry, error) {
	r := &Registry{
		models:       make(map[ID]ModelInfo, len(models)),
		defaultModel: defaultModel,
	}
	for _, m := range models {
		if m.ID == "" {
			return nil, fmt.Errorf("model registry: empty model id")
		}
		if _, dup := r.models[m.ID]; dup {
			return nil, fmt.Errorf("model registry: duplicate model %q", m.ID)
		}
		r.models[m.ID] = m
	}
	if _, ok := r.models[defaultModel]; !ok {
		return nil, fmt.Errorf("model registry: default model %q is not registered", defaultModel)
	}
	return r, nil
}

// Supported is the static registry of models this service accepts.
var Supported = mustRegistry(DefaultModel, ModelInfo{
	ID:          LlamaScout,
	Name:        "Llama 4 Scout 17B 16E Instruct",
	Provider:    "Groq",
	MaxTokens:   131072,
	ToolCalling: true,
})

func mustRegistry(def ID, models ...ModelInfo) *Registry {
	r, err := NewRegistry(def, models...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the model with the given ID.
func (r *Registry) Lookup(id ID) (ModelInfo, bool) {
	m, ok := r.models[id]
	return m, ok
}

// IsSupported reports whether id is in the registry.
func (r *Registry) IsSupported(id ID) bool {
	_, ok := r.models[id]
	return ok
}

// Resolve maps an empty selection to the default model and rejects any
// identifier outside the registry.
func (r *Registry) Resolve(id ID) (ModelInfo, error) {
	if id == "" {
		id = r.defaultModel
	}
	m, ok := r.models[id]
	if !ok {
		return ModelInfo{}, &UnsupportedModelError{ID: id}
	}
	return m, nil
}

// Default returns the default model ID.
func (r *Registry) Default() ID {
	return r.defaultModel
}

// All returns every model sorted by ID.
func (r *Registry) All() []ModelInfo {
	out := make([]ModelInfo, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns every model ID sorted.
func (r *Registry) IDs() []ID {
	all := r.All()
	ids := make([]ID, len(all))
	for i, m := range all {
		ids[i] = m.ID
	}
	return ids
}

// UnsupportedModelError is returned for a selection outside the registry.
type UnsupportedModelError struct {
	ID ID
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported model %q", e.ID)
}
