// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/gokkerz/roulette/internal/stream"
)

func TestRecorder_Record(t *testing.T) {
	rec := NewRecorder(logr.Discard())

	rec.Record(Exchange{Model: "m", Steps: 2, ToolCalls: 1, Usage: stream.Usage{PromptTokens: 10, CompletionTokens: 5}, Duration: 2 * time.Second, Outcome: OutcomeOK})
	rec.Record(Exchange{Model: "m", Steps: 1, Duration: 4 * time.Second, Outcome: OutcomeTimeout})

	snap := rec.Snapshot()
	if snap.Exchanges != 2 {
		t.Errorf("Exchanges = %d, want 2", snap.Exchanges)
	}
	if snap.ByOutcome[OutcomeOK] != 1 || snap.ByOutcome[OutcomeTimeout] != 1 {
		t.Errorf("ByOutcome = %v", snap.ByOutcome)
	}
	if snap.Usage.Total() != 15 {
		t.Errorf("Usage = %+v", snap.Usage)
	}
	if snap.Steps != 3 || snap.ToolCalls != 1 {
		t.Errorf("Steps = %d, ToolCalls = %d", snap.Steps, snap.ToolCalls)
	}
	if snap.AvgDuration != 3*time.Second {
		t.Errorf("AvgDuration = %v, want 3s", snap.AvgDuration)
	}
	if len(snap.Recent) != 2 || snap.Recent[0].Outcome != OutcomeTimeout {
		t.Errorf("Recent = %+v, want newest first", snap.Recent)
	}
	if snap.Recent[1].ID == "" {
		t.Error("Record() should assign an ID")
	}
}

func TestRecorder_RecentLimit(t *testing.T) {
	rec := NewRecorder(logr.Discard()).WithRecentLimit(3)
	for i := 0; i < 5; i++ {
		rec.Record(Exchange{Steps: i, Outcome: OutcomeOK})
	}

	snap := rec.Snapshot()
	if len(snap.Recent) != 3 {
		t.Fatalf("len(Recent) = %d, want 3", len(snap.Recent))
	}
	if snap.Recent[0].Steps != 4 || snap.Recent[2].Steps != 2 {
		t.Errorf("Recent = %+v", snap.Recent)
	}
	if snap.Exchanges != 5 {
		t.Errorf("Exchanges = %d, want 5", snap.Exchanges)
	}
}

func TestRecorder_SnapshotIsCopy(t *testing.T) {
	rec := NewRecorder(logr.Discard())
	rec.Record(Exchange{Outcome: OutcomeError})

	snap := rec.Snapshot()
	snap.ByOutcome[OutcomeError] = 99
	snap.Recent[0].Outcome = OutcomeOK

	again := rec.Snapshot()
	if again.ByOutcome[OutcomeError] != 1 || again.Recent[0].Outcome != OutcomeError {
		t.Error("Snapshot() shares state with the recorder")
	}
}

func TestRecorder_Concurrent(t *testing.T) {
	rec := NewRecorder(logr.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Record(Exchange{Steps: 1, Outcome: OutcomeOK})
			_ = rec.Snapshot()
		}()
	}
	wg.Wait()

	if got := rec.Snapshot().Steps; got != 50 {
		t.Errorf("Steps = %d, want 50", got)
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 26 {
			t.Fatalf("NewID() = %q, want 26 chars", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
