// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and dispatch for roulette.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"

	"github.com/go-logr/logr"

	"github.com/gokkerz/roulette/internal/config"
	"github.com/gokkerz/roulette/internal/logging"
)

// Version information (can be overridden at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// COMMANDS
// =============================================================================

// Command is the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdServe
	CmdAsk
	CmdModels
	CmdConfig
	CmdVersion
	CmdHelp
)

var commandNames = map[string]Command{
	"chat":    CmdChat,
	"serve":   CmdServe,
	"ask":     CmdAsk,
	"models":  CmdModels,
	"config":  CmdConfig,
	"version": CmdVersion,
	"help":    CmdHelp,
}

// String returns the command name.
func (c Command) String() string {
	for name, cmd := range commandNames {
		if cmd == c {
			return name
		}
	}
	return "unknown"
}

// globalBoolFlags take no value.
var globalBoolFlags = []string{"v", "verbose", "json", "h", "help", "version", "raw", "force"}

// Args is the parsed command line.
type Args struct {
	Command Command

	// ConfigPath is --config; empty loads ~/.roulette/config.*
	ConfigPath string

	// Model is --model, sent as selectedModel
	Model string

	// ServerURL is --server, the chat endpoint used by chat and ask
	ServerURL string

	Verbose bool
	JSON    bool

	// Rest holds the positionals after the command
	Rest []string

	parser *ArgParser
}

// UnknownCommandError is returned for a command name that does not exist.
type UnknownCommandError struct {
	Name       string
	Suggestion string
}

func (e *UnknownCommandError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown command %q (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown command %q", e.Name)
}

// Parse parses argv without the program name. No command starts the chat
// view.
func Parse(argv []string) (Args, error) {
	p := NewArgParser(argv, globalBoolFlags...)
	args := Args{
		Command:    CmdChat,
		ConfigPath: p.Flag("config", "c"),
		Model:      p.Flag("model", "m"),
		ServerURL:  p.Flag("server", "s"),
		Verbose:    p.BoolFlag("v", "verbose"),
		JSON:       p.BoolFlag("json"),
		parser:     p,
	}

	switch {
	case p.BoolFlag("h", "help"):
		args.Command = CmdHelp
		return args, nil
	case p.BoolFlag("version"):
		args.Command = CmdVersion
		return args, nil
	}

	name := p.Subcommand()
	if name == "" {
		return args, nil
	}
	cmd, ok := commandNames[name]
	if !ok {
		return args, &UnknownCommandError{Name: name, Suggestion: suggestCommand(name)}
	}
	args.Command = cmd
	args.Rest = p.PositionalFrom(1)
	return args, nil
}

// suggestCommand returns the closest command name within two edits.
func suggestCommand(name string) string {
	names := make([]string, 0, len(commandNames))
	for n := range commandNames {
		names = append(names, n)
	}
	sort.Strings(names)

	best, bestDist := "", 3
	for _, n := range names {
		if d := levenshtein(name, n); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

func levenshtein(a, b string) int {
	prev := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur := make([]int, len(b)+1)
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev = cur
	}
	return prev[len(b)]
}

// =============================================================================
// APP
// =============================================================================

// App runs commands against its output streams.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewApp returns an App on the process streams.
func NewApp() *App {
	return &App{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run parses argv and executes the command until it finishes or ctx is
// cancelled.
func (a *App) Run(ctx context.Context, argv []string) error {
	args, err := Parse(argv)
	if err != nil {
		return err
	}

	switch args.Command {
	case CmdHelp:
		a.printUsage()
		return nil
	case CmdVersion:
		return a.runVersion(args)
	case CmdConfig:
		// init and path must work without a loadable config file
		switch args.parser.Positional(1) {
		case "init":
			return a.initConfig(args)
		case "path":
			return a.configPath(args)
		}
	}

	cfg, err := a.loadConfig(args)
	if err != nil {
		return err
	}
	log, err := a.logger(cfg)
	if err != nil {
		return err
	}

	switch args.Command {
	case CmdServe:
		return a.runServe(ctx, cfg, log)
	case CmdAsk:
		return a.runAsk(ctx, cfg, args, log)
	case CmdModels:
		return a.runModels(args)
	case CmdConfig:
		return a.runConfig(cfg, args)
	default:
		return a.runChat(ctx, cfg, args)
	}
}

// loadConfig loads the configuration and applies the global flags on top.
func (a *App) loadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, err
		}
		if err != nil {
			fmt.Fprintf(a.Stderr, "Warning: %v (using defaults)\n", err)
		}
	}

	if args.ServerURL != "" {
		cfg.Client.ServerURL = args.ServerURL
	}
	if args.Verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (a *App) logger(cfg *config.Config) (logr.Logger, error) {
	log, err := logging.New(a.Stderr, logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Name:   "roulette",
	})
	if err != nil {
		return logr.Discard(), fmt.Errorf("logging: %w", err)
	}
	return log, nil
}

// =============================================================================
// VERSION AND HELP
// =============================================================================

// VersionInfo is the output of the version command.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func currentVersion() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (a *App) runVersion(args Args) error {
	info := currentVersion()
	if args.JSON {
		return NewJSONResponse("version", info).Print(a.Stdout)
	}
	fmt.Fprintf(a.Stdout, "roulette %s\n", info.Version)
	fmt.Fprintf(a.Stdout, "  commit: %s\n", info.GitCommit)
	fmt.Fprintf(a.Stdout, "  built:  %s\n", info.BuildDate)
	fmt.Fprintf(a.Stdout, "  go:     %s (%s)\n", info.GoVersion, info.Platform)
	return nil
}

const usageText = `roulette - chat with Roul Ette

Usage:
  roulette [command] [flags]

Commands:
  chat                 Open the chat view (default)
  serve                Run the streaming chat endpoint
  ask <question>       Ask one question and print the streamed answer
  models               List the supported models
  config [show|path|init]
                       Show, locate or write the configuration
  version              Print version information
  help                 Show this help

Global flags:
  -c, --config FILE    Config file (default ~/.roulette/config.toml)
  -m, --model ID       Model to request (default: server default)
  -s, --server URL     Chat endpoint for chat and ask
  -v, --verbose        Debug logging
      --json           Machine-readable output where supported

Examples:
  roulette serve
  roulette ask "Wat voor weer is het in Amsterdam?"
  roulette chat --server http://localhost:8787/api/chat
`

func (a *App) printUsage() {
	fmt.Fprint(a.Stdout, usageText)
}

// usageError reports a malformed command line.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return "usage: " + e.msg
}

// IsUsageError reports whether err stems from a malformed command line.
func IsUsageError(err error) bool {
	var unknown *UnknownCommandError
	var usage *usageError
	return errors.As(err, &unknown) || errors.As(err, &usage)
}
