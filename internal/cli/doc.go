// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the command handlers of
// roulette.
//
// # Key Types
//
//   - Command: the available commands
//   - Args: the parsed command line with the global flags
//   - App: runs a command against its output streams
//   - ArgParser: flag and positional splitting shared by all commands
//
// # Commands
//
//   - chat: interactive chat view (default)
//   - serve: the streaming chat endpoint
//   - ask: one question, streamed answer
//   - models: supported models
//   - config: show, path, init
//   - version, help
//
// Commands that print structured data accept --json.
//
// # Usage
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	err := cli.NewApp().Run(ctx, os.Args[1:])
package cli
