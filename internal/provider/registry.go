// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/gokkerz/roulette/internal/config"
	"github.com/gokkerz/roulette/internal/model"
)

// Registry maps every supported model to its LanguageModel. It is
// validated at construction and immutable afterwards.
type Registry struct {
	models     *model.Registry
	bindings   map[model.ID]LanguageModel
	configured bool
}

// NewRegistry binds models to backends. It fails when a supported model has
// no binding or a binding names a model outside the registry.
func NewRegistry(models *model.Registry, bindings map[model.ID]LanguageModel) (*Registry, error) {
	r := &Registry{
		models:     models,
		bindings:   make(map[model.ID]LanguageModel, len(bindings)),
		configured: true,
	}
	for id, lm := range bindings {
		if !models.IsSupported(id) {
			return nil, fmt.Errorf("provider registry: binding for unsupported model %q", id)
		}
		if lm == nil {
			return nil, fmt.Errorf("provider registry: nil binding for model %q", id)
		}
		r.bindings[id] = lm
	}
	for _, id := range models.IDs() {
		if _, ok := r.bindings[id]; !ok {
			return nil, fmt.Errorf("provider registry: %w %q", ErrUnboundModel, id)
		}
	}
	return r, nil
}

// Resolve validates a model selection and returns its binding. An empty
// selection picks the default model.
func (r *Registry) Resolve(id model.ID) (model.ModelInfo, LanguageModel, error) {
	info, err := r.models.Resolve(id)
	if err != nil {
		return model.ModelInfo{}, nil, err
	}
	return info, r.bindings[info.ID], nil
}

// Models returns the model registry.
func (r *Registry) Models() *model.Registry {
	return r.models
}

// Configured reports whether the backend has credentials.
func (r *Registry) Configured() bool {
	return r.configured
}

// FromConfig binds every supported model to the configured backend.
func FromConfig(cfg config.ProviderConfig, models *model.Registry, log logr.Logger) (*Registry, error) {
	apiKey := cfg.ResolvedAPIKey()
	bindings := make(map[model.ID]LanguageModel)

	switch cfg.Backend {
	case "", "openai":
		client := NewOpenAIClient(cfg.BaseURL, apiKey).WithLogger(log)
		for _, id := range models.IDs() {
			bindings[id] = client.Model(string(id))
		}
	case "langchain":
		for _, id := range models.IDs() {
			if apiKey == "" {
				// Fail per request, like the native backend
				bindings[id] = unconfigured{}
				continue
			}
			lm, err := NewLangChainOpenAI(cfg.BaseURL, apiKey, string(id))
			if err != nil {
				return nil, err
			}
			bindings[id] = lm
		}
	default:
		return nil, fmt.Errorf("unknown provider backend %q", cfg.Backend)
	}

	r, err := NewRegistry(models, bindings)
	if err != nil {
		return nil, err
	}
	r.configured = apiKey != ""
	return r, nil
}
