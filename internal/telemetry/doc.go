// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records per-exchange statistics for the chat endpoint.
//
// Every exchange produces one Exchange record: model, step count, tool
// calls, token usage, duration and outcome. The Recorder keeps running
// totals plus the most recent records in memory and logs an
// EXCHANGE_COMPLETE line per record.
//
// # Usage
//
//	rec := telemetry.NewRecorder(log)
//	rec.Record(telemetry.Exchange{ID: telemetry.NewID(), Model: "...", Outcome: telemetry.OutcomeOK})
//	snap := rec.Snapshot()
//
// # Privacy
//
// Message content is never recorded, only counts and timings.
package telemetry
