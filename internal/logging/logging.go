// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the process logger.
//
// Every component takes a logr.Logger. Messages are uppercase event names
// (REQUEST, EXCHANGE_COMPLETE, TOOL_EXECUTE, ...) followed by key/value
// pairs, rendered by log/slog as text or JSON.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-logr/logr"
)

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn, error
	Level string
	// Format is "text" or "json"
	Format string
	// Name is attached as the logger name, e.g. "server"
	Name string
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// New returns a logr.Logger writing to w.
//
// logr verbosity V(n) maps to slog level -n, so V(1) lines only appear
// when Level is debug.
func New(w io.Writer, opts Options) (logr.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return logr.Discard(), err
	}

	hopts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		handler = slog.NewTextHandler(w, hopts)
	case "json":
		handler = slog.NewJSONHandler(w, hopts)
	default:
		return logr.Discard(), fmt.Errorf("unknown log format %q", opts.Format)
	}

	log := logr.FromSlogHandler(handler)
	if opts.Name != "" {
		log = log.WithName(opts.Name)
	}
	return log, nil
}

// Warn logs msg at slog's warn level when the sink supports it, and as a
// plain info line otherwise. logr has no warn level of its own.
func Warn(log logr.Logger, msg string, kv ...any) {
	if h := logr.ToSlogHandler(log); h != nil {
		slog.New(h).Warn(msg, kv...)
		return
	}
	log.Info(msg, kv...)
}
