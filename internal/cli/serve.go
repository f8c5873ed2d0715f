// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - The serve command: wires the chat endpoint and runs it until
// the context is cancelled.
package cli

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/gokkerz/roulette/internal/chat"
	"github.com/gokkerz/roulette/internal/config"
	"github.com/gokkerz/roulette/internal/logging"
	"github.com/gokkerz/roulette/internal/model"
	"github.com/gokkerz/roulette/internal/prompt"
	"github.com/gokkerz/roulette/internal/provider"
	"github.com/gokkerz/roulette/internal/server"
	"github.com/gokkerz/roulette/internal/telemetry"
	"github.com/gokkerz/roulette/internal/tools"
)

// BuildServer assembles the chat endpoint from cfg: persona, provider
// bindings, tools, telemetry and the HTTP server. Static configuration is
// resolved here once and never changes afterwards.
func BuildServer(cfg *config.Config, log logr.Logger) (*server.Server, error) {
	persona, err := prompt.Persona(cfg.Chat.PersonaVersion)
	if err != nil {
		return nil, err
	}

	providers, err := provider.FromConfig(cfg.Provider, model.Supported, log.WithName("provider"))
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	if !providers.Configured() {
		logging.Warn(log, "PROVIDER_NOT_CONFIGURED", "backend", cfg.Provider.Backend, "api_key_env", cfg.Provider.APIKeyEnv)
	}

	registry, err := tools.Builtins(cfg.Tools.WeatherBaseURL)
	if err != nil {
		return nil, fmt.Errorf("tools: %w", err)
	}
	executor := tools.NewExecutor(registry).
		WithTimeout(cfg.Tools.Timeout()).
		WithLogger(log.WithName("tools"))

	recorder := telemetry.NewRecorder(log.WithName("telemetry"))
	svc := chat.NewService(providers, executor, persona, cfg.Chat).
		WithLogger(log.WithName("chat")).
		WithRecorder(recorder)

	srv := server.New(cfg.Server, svc).
		WithLogger(log.WithName("server")).
		WithRecorder(recorder).
		WithVersion(Version).
		WithProviderConfigured(providers.Configured())
	return srv, nil
}

func (a *App) runServe(ctx context.Context, cfg *config.Config, log logr.Logger) error {
	srv, err := BuildServer(cfg, log)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
