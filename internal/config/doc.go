// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for roulette.
//
// Supports TOML, JSON and YAML configuration formats, with defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ProviderConfig: Language model backend selection and credentials
//   - ChatConfig: Exchange budget, step cap and persona version
//   - UIConfig: Typing indicator window and render bounds
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (ROULETTE_*)
//   - ~/.roulette/config.toml
//   - ~/.roulette/config.json
//   - ~/.roulette/config.yaml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//
// The loaded value is passed explicitly to the components that need it:
//
//	svc := chat.NewService(providers, exec, persona, cfg.Chat)
package config
