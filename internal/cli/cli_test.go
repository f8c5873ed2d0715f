// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokkerz/roulette/internal/config"
	"github.com/gokkerz/roulette/internal/model"
	"github.com/gokkerz/roulette/internal/server"
	"github.com/gokkerz/roulette/internal/stream"
)

// =============================================================================
// HELPERS
// =============================================================================

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{"ROULETTE_SERVER_URL", "ROULETTE_MODEL", "ROULETTE_LOG_LEVEL", "ROULETTE_LOG_FORMAT", "GROQ_API_KEY"} {
		t.Setenv(name, "")
	}
}

func newTestApp(stdin string) (*App, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &App{Stdin: strings.NewReader(stdin), Stdout: &stdout, Stderr: &stderr}, &stdout, &stderr
}

func chatServer(t *testing.T, got *stream.Request, events ...stream.Event) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		stream.SetHeaders(w.Header())
		sw := stream.NewWriter(w)
		for _, e := range events {
			sw.Write(e)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// =============================================================================
// ARG PARSER TESTS
// =============================================================================

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"ask", "--model", "x", "--server=http://h", "-v", "hoi", "daar", "--json=false"}, "v", "json")

	assert.Equal(t, "ask", p.Subcommand())
	assert.Equal(t, "x", p.Flag("model", "m"))
	assert.Equal(t, "http://h", p.Flag("server"))
	assert.True(t, p.BoolFlag("v"))
	assert.False(t, p.BoolFlag("json"))
	assert.True(t, p.HasFlag("json"))
	assert.Equal(t, []string{"hoi", "daar"}, p.PositionalFrom(1))
	assert.Equal(t, "", p.Positional(9))
	assert.Equal(t, "fallback", p.FlagOrDefault("missing", "fallback"))
}

func TestArgParser_DoubleDash(t *testing.T) {
	p := NewArgParser([]string{"ask", "--", "-1", "is", "negatief"})
	assert.Equal(t, []string{"ask", "-1", "is", "negatief"}, p.PositionalFrom(0))
}

func TestArgParser_FlagInt(t *testing.T) {
	p := NewArgParser([]string{"--port", "8080", "--bad", "x"})
	n, err := p.FlagInt("port")
	require.NoError(t, err)
	assert.Equal(t, 8080, n)

	_, err = p.FlagInt("bad")
	assert.Error(t, err)
	_, err = p.FlagInt("missing")
	assert.Error(t, err)
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"true", "YES", "y", "1", "on"} {
		b, err := ParseBoolString(s)
		assert.NoError(t, err, s)
		assert.True(t, b, s)
	}
	for _, s := range []string{"false", "No", "n", "0", "off"} {
		b, err := ParseBoolString(s)
		assert.NoError(t, err, s)
		assert.False(t, b, s)
	}
	_, err := ParseBoolString("misschien")
	assert.Error(t, err)
}

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		want    Command
		rest    []string
		verbose bool
	}{
		{name: "no command", argv: nil, want: CmdChat},
		{name: "serve", argv: []string{"serve"}, want: CmdServe},
		{name: "verbose before command", argv: []string{"-v", "ask", "hoi"}, want: CmdAsk, rest: []string{"hoi"}, verbose: true},
		{name: "help flag", argv: []string{"ask", "--help"}, want: CmdHelp},
		{name: "version flag", argv: []string{"--version"}, want: CmdVersion},
		{name: "models", argv: []string{"models", "--json"}, want: CmdModels},
		{name: "config init", argv: []string{"config", "init", "--force"}, want: CmdConfig, rest: []string{"init"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args, err := Parse(tc.argv)
			require.NoError(t, err)
			assert.Equal(t, tc.want, args.Command)
			assert.Equal(t, tc.verbose, args.Verbose)
			if tc.rest != nil {
				assert.Equal(t, tc.rest, args.Rest)
			}
		})
	}
}

func TestParse_GlobalFlags(t *testing.T) {
	args, err := Parse([]string{"chat", "--config", "/tmp/x.toml", "-m", "some-model", "--server", "http://h/api/chat"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.toml", args.ConfigPath)
	assert.Equal(t, "some-model", args.Model)
	assert.Equal(t, "http://h/api/chat", args.ServerURL)
}

func TestParse_UnknownCommand(t *testing.T) {
	_, err := Parse([]string{"serv"})
	require.Error(t, err)
	assert.True(t, IsUsageError(err))

	var unknown *UnknownCommandError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "serve", unknown.Suggestion)

	_, err = Parse([]string{"xyzzyplugh"})
	require.ErrorAs(t, err, &unknown)
	assert.Empty(t, unknown.Suggestion)
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "serve", CmdServe.String())
	assert.Equal(t, "unknown", Command(99).String())
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("ask", "ask"))
	assert.Equal(t, 1, levenshtein("serv", "serve"))
	assert.Equal(t, 3, levenshtein("", "abc"))
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

func TestApp_Help(t *testing.T) {
	app, stdout, _ := newTestApp("")
	require.NoError(t, app.Run(context.Background(), []string{"help"}))
	assert.Contains(t, stdout.String(), "roulette serve")
}

func TestApp_VersionJSON(t *testing.T) {
	app, stdout, _ := newTestApp("")
	require.NoError(t, app.Run(context.Background(), []string{"version", "--json"}))

	var resp struct {
		Success bool        `json:"success"`
		Data    VersionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, Version, resp.Data.Version)
}

func TestApp_Models(t *testing.T) {
	isolate(t)
	app, stdout, _ := newTestApp("")
	require.NoError(t, app.Run(context.Background(), []string{"models"}))

	out := stdout.String()
	assert.Contains(t, out, string(model.LlamaScout)+" *")
	assert.Contains(t, out, "Groq")
}

func TestApp_ConfigInitShow(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	app, stdout, _ := newTestApp("")
	require.NoError(t, app.Run(context.Background(), []string{"config", "init", "--config", path}))
	assert.Contains(t, stdout.String(), path)
	_, err := os.Stat(path)
	require.NoError(t, err)

	err = app.Run(context.Background(), []string{"config", "init", "--config", path})
	assert.ErrorContains(t, err, "already exists")
	require.NoError(t, app.Run(context.Background(), []string{"config", "init", "--config", path, "--force"}))

	stdout.Reset()
	require.NoError(t, app.Run(context.Background(), []string{"config", "show", "--config", path}))
	assert.Contains(t, stdout.String(), "port = 8787")

	stdout.Reset()
	require.NoError(t, app.Run(context.Background(), []string{"config", "path", "--config", path}))
	assert.Equal(t, path+"\n", stdout.String())
}

func TestApp_ConfigShowMasksKey(t *testing.T) {
	isolate(t)
	t.Setenv("ROULETTE_API_KEY", "gsk_supersecret")

	app, stdout, _ := newTestApp("")
	require.NoError(t, app.Run(context.Background(), []string{"config", "--json"}))
	assert.NotContains(t, stdout.String(), "gsk_supersecret")
	assert.Contains(t, stdout.String(), maskedSecret)
}

func TestApp_AskStreamsText(t *testing.T) {
	isolate(t)
	var req stream.Request
	srv := chatServer(t, &req,
		stream.StepStart("msg-1"),
		stream.TextDelta("Het is "),
		stream.TextDelta("zonnig."),
		stream.Done(stream.FinishStop, stream.Usage{PromptTokens: 5, CompletionTokens: 3}),
	)

	app, stdout, _ := newTestApp("")
	err := app.Run(context.Background(), []string{"ask", "--server", srv.URL, "Hoe", "is", "het", "weer?"})
	require.NoError(t, err)

	assert.Equal(t, "Het is zonnig.\n", stdout.String())
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "Hoe is het weer?", req.Messages[0].Text())
	assert.Equal(t, model.ID(""), req.SelectedModel)
}

func TestApp_AskReadsStdin(t *testing.T) {
	isolate(t)
	var req stream.Request
	srv := chatServer(t, &req, stream.TextDelta("ok"), stream.Done(stream.FinishStop, stream.Usage{}))

	app, _, _ := newTestApp("  vraag via stdin\n")
	require.NoError(t, app.Run(context.Background(), []string{"ask", "--server", srv.URL}))
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "vraag via stdin", req.Messages[0].Text())
}

func TestApp_AskJSON(t *testing.T) {
	isolate(t)
	srv := chatServer(t, nil,
		stream.ReasoningDelta("even nadenken"),
		stream.TextDelta("Hoi!"),
		stream.Done(stream.FinishStop, stream.Usage{PromptTokens: 2, CompletionTokens: 1}),
	)

	app, stdout, _ := newTestApp("")
	require.NoError(t, app.Run(context.Background(), []string{"ask", "--json", "--server", srv.URL, "Hoi"}))

	var resp struct {
		Success bool      `json:"success"`
		Data    AskResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Hoi!", resp.Data.Message.Text())
	assert.True(t, resp.Data.Message.HasReasoning())
	assert.Equal(t, stream.FinishStop, resp.Data.FinishReason)
	assert.Equal(t, 3, resp.Data.Usage.Total())
}

func TestApp_AskErrorEvent(t *testing.T) {
	isolate(t)
	srv := chatServer(t, nil,
		stream.Error("Rate limit exceeded. Please try again later."),
		stream.Done(stream.FinishError, stream.Usage{}),
	)

	app, _, _ := newTestApp("")
	err := app.Run(context.Background(), []string{"ask", "--server", srv.URL, "Hoi"})
	assert.EqualError(t, err, "Rate limit exceeded. Please try again later.")
}

func TestApp_AskRejected(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(stream.ErrorBody{Error: stream.ErrorDetail{Message: "Unsupported model.", Type: "invalid_request_error"}})
	}))
	t.Cleanup(srv.Close)

	app, _, _ := newTestApp("")
	err := app.Run(context.Background(), []string{"ask", "--server", srv.URL, "--model", "gpt-4o", "Hoi"})
	assert.EqualError(t, err, "Unsupported model.")
}

func TestApp_AskWithoutQuestion(t *testing.T) {
	isolate(t)
	app, _, _ := newTestApp("")
	err := app.Run(context.Background(), []string{"ask"})
	require.Error(t, err)
	assert.True(t, IsUsageError(err))
}

// =============================================================================
// SERVE WIRING TESTS
// =============================================================================

func TestBuildServer(t *testing.T) {
	isolate(t)
	cfg := config.Default()

	srv, err := BuildServer(cfg, logr.Discard())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health server.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.False(t, health.ProviderConfigured)
	assert.Equal(t, "degraded", health.Status)
}

func TestBuildServer_UnknownPersona(t *testing.T) {
	isolate(t)
	cfg := config.Default()
	cfg.Chat.PersonaVersion = "v999"

	_, err := BuildServer(cfg, logr.Discard())
	assert.Error(t, err)
}
