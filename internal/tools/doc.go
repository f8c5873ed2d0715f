// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the callable tools the model may invoke mid-stream.
//
// The registry is built once at startup and is immutable afterwards. The
// executor validates arguments against each tool's schema, bounds every run
// with a timeout, and runs the calls of one model step concurrently.
//
// # Key Types
//
//   - Tool: name, description, parameter schema and executor
//   - Registry: static name to tool table
//   - Executor: validated, time-bounded execution of model tool calls
//   - Result: tool output as JSON, or an error message for the model
//
// # Available Tools
//
//   - getWeather: current, hourly and daily forecast from Open-Meteo
package tools
