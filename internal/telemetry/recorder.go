// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/oklog/ulid/v2"

	"github.com/gokkerz/roulette/internal/stream"
)

// =============================================================================
// EXCHANGE RECORD
// =============================================================================

// Outcome classifies how an exchange ended.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeRejected    Outcome = "rejected"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeError       Outcome = "error"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeCancelled   Outcome = "cancelled"
)

// Exchange is the record of one chat request.
type Exchange struct {
	ID        string        `json:"id"`
	Model     string        `json:"model"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Steps     int           `json:"steps"`
	ToolCalls int           `json:"tool_calls"`
	Usage     stream.Usage  `json:"usage"`
	Outcome   Outcome       `json:"outcome"`
}

// NewID returns a new time-ordered exchange ID.
func NewID() string {
	return ulid.Make().String()
}

// =============================================================================
// RECORDER
// =============================================================================

// DefaultRecentLimit is the number of records kept for the snapshot.
const DefaultRecentLimit = 20

// Recorder aggregates exchange records. Safe for concurrent use.
type Recorder struct {
	mu          sync.RWMutex
	since       time.Time
	exchanges   int
	byOutcome   map[Outcome]int
	usage       stream.Usage
	steps       int
	toolCalls   int
	duration    time.Duration
	recent      []Exchange
	recentLimit int
	log         logr.Logger
}

// Snapshot is a point-in-time copy of the recorder state.
type Snapshot struct {
	Since       time.Time       `json:"since"`
	Exchanges   int             `json:"exchanges"`
	ByOutcome   map[Outcome]int `json:"by_outcome"`
	Usage       stream.Usage    `json:"usage"`
	Steps       int             `json:"steps"`
	ToolCalls   int             `json:"tool_calls"`
	AvgDuration time.Duration   `json:"avg_duration"`
	Recent      []Exchange      `json:"recent"`
}

// NewRecorder creates an empty recorder.
func NewRecorder(log logr.Logger) *Recorder {
	return &Recorder{
		since:       time.Now(),
		byOutcome:   make(map[Outcome]int),
		recentLimit: DefaultRecentLimit,
		log:         log,
	}
}

// WithRecentLimit sets how many records the snapshot lists.
func (r *Recorder) WithRecentLimit(n int) *Recorder {
	if n > 0 {
		r.recentLimit = n
	}
	return r
}

// Record adds one exchange.
func (r *Recorder) Record(e Exchange) {
	if e.ID == "" {
		e.ID = NewID()
	}

	r.mu.Lock()
	r.exchanges++
	r.byOutcome[e.Outcome]++
	r.usage = r.usage.Add(e.Usage)
	r.steps += e.Steps
	r.toolCalls += e.ToolCalls
	r.duration += e.Duration

	r.recent = append(r.recent, e)
	if len(r.recent) > r.recentLimit {
		r.recent = r.recent[len(r.recent)-r.recentLimit:]
	}
	r.mu.Unlock()

	r.log.Info("EXCHANGE_COMPLETE",
		"id", e.ID,
		"model", e.Model,
		"outcome", string(e.Outcome),
		"steps", e.Steps,
		"tool_calls", e.ToolCalls,
		"prompt_tokens", e.Usage.PromptTokens,
		"completion_tokens", e.Usage.CompletionTokens,
		"duration", e.Duration)
}

// Snapshot returns a copy of the current totals, newest record first.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Since:     r.since,
		Exchanges: r.exchanges,
		ByOutcome: make(map[Outcome]int, len(r.byOutcome)),
		Usage:     r.usage,
		Steps:     r.steps,
		ToolCalls: r.toolCalls,
		Recent:    make([]Exchange, 0, len(r.recent)),
	}
	for k, v := range r.byOutcome {
		snap.ByOutcome[k] = v
	}
	if r.exchanges > 0 {
		snap.AvgDuration = r.duration / time.Duration(r.exchanges)
	}
	for i := len(r.recent) - 1; i >= 0; i-- {
		snap.Recent = append(snap.Recent, r.recent[i])
	}
	return snap
}
