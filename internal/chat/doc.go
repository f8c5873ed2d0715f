// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs streaming chat exchanges.
//
// A Service validates an incoming request, then drives the bound language
// model through one or more steps, relaying every delta to an EventWriter
// as it arrives. When the model requests tools, the calls are relayed,
// executed, relayed again as results and fed back to the model for the
// next step, up to the configured step limit.
//
// # Exchange Lifecycle
//
//	ex, err := svc.Validate(req)      // InputError before any provider call
//	svc.Stream(ctx, ex, writer)       // f 0 g 9 a e ... d
//
// Every exchange has a hard wall-clock budget. A model that overruns it is
// abandoned: its late deltas are dropped and the client receives a timeout
// error followed by a done event with finish reason "timeout".
//
// # Error Mapping
//
// Provider failures never reach the client verbatim:
//   - text containing "Rate limit" becomes MsgRateLimited
//   - the budget running out becomes MsgTimeout
//   - anything else is logged and becomes MsgGeneric
package chat
