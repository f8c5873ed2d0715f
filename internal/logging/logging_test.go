// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", want: slog.LevelInfo, wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Options{Level: "info", Format: "text", Name: "server"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	log.Info("REQUEST", "method", "POST", "path", "/api/chat")
	log.V(1).Info("FRAME", "code", "0")

	out := buf.String()
	if !strings.Contains(out, "msg=REQUEST") || !strings.Contains(out, "path=/api/chat") {
		t.Errorf("text output = %q", out)
	}
	if strings.Contains(out, "FRAME") {
		t.Error("V(1) line written at info level")
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Options{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	log.Error(errors.New("boom"), "EXCHANGE_FAILED", "model", "m")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "EXCHANGE_FAILED" || rec["model"] != "m" {
		t.Errorf("record = %v", rec)
	}
}

func TestNew_BadFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, Options{Format: "xml"}); err == nil {
		t.Error("New() should reject an unknown format")
	}
}

func TestWarn(t *testing.T) {
	var buf bytes.Buffer
	log, _ := New(&buf, Options{Level: "warn"})

	log.Info("HIDDEN")
	Warn(log, "SLOW_TOOL", "tool", "getWeather")

	out := buf.String()
	if strings.Contains(out, "HIDDEN") {
		t.Error("info line written at warn level")
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "SLOW_TOOL") {
		t.Errorf("output = %q", out)
	}
}
