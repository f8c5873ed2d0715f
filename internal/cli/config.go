// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - The config command: show, path and init.
//
// Examples:
//
//	roulette config            # same as "config show"
//	roulette config path
//	roulette config init --force
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/gokkerz/roulette/internal/config"
)

const maskedSecret = "********"

func (a *App) runConfig(cfg *config.Config, args Args) error {
	sub := "show"
	if len(args.Rest) > 0 {
		sub = args.Rest[0]
	}

	switch sub {
	case "show":
		return a.showConfig(cfg, args.JSON)
	case "path":
		return a.configPath(args)
	case "init":
		return a.initConfig(args)
	default:
		return &usageError{msg: "roulette config [show|path|init]"}
	}
}

// showConfig prints the effective configuration with the API key masked.
func (a *App) showConfig(cfg *config.Config, asJSON bool) error {
	out := *cfg
	if out.Provider.APIKey != "" {
		out.Provider.APIKey = maskedSecret
	}
	if asJSON {
		return NewJSONResponse("config", out).Print(a.Stdout)
	}
	return toml.NewEncoder(a.Stdout).Encode(out)
}

func (a *App) configPath(args Args) error {
	if args.ConfigPath != "" {
		fmt.Fprintln(a.Stdout, args.ConfigPath)
		return nil
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.Stdout, path)
	return nil
}

// initConfig writes the default configuration. An existing file is kept
// unless --force is given.
func (a *App) initConfig(args Args) error {
	path := args.ConfigPath
	if path == "" {
		var err error
		if path, err = config.ConfigPathTOML(); err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil && !args.parser.BoolFlag("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := config.SaveTOML(config.Default(), path); err != nil {
		return err
	}
	fmt.Fprintf(a.Stdout, "Wrote %s\n", path)
	return nil
}
