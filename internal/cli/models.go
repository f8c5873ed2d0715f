// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - The models command: lists the supported models.
package cli

import (
	"fmt"
	"strconv"

	"github.com/gokkerz/roulette/internal/model"
	"github.com/gokkerz/roulette/internal/util"
)

func (a *App) runModels(args Args) error {
	models := model.Supported.All()
	if args.JSON {
		return NewJSONResponse("models", map[string]any{
			"default": model.Supported.Default(),
			"models":  models,
		}).Print(a.Stdout)
	}

	defaultID := model.Supported.Default()
	label := func(m model.ModelInfo) string {
		if m.ID == defaultID {
			return m.ID.String() + " *"
		}
		return m.ID.String()
	}

	idWidth := len("MODEL")
	for _, m := range models {
		idWidth = max(idWidth, util.StringWidth(label(m)))
	}

	fmt.Fprintf(a.Stdout, "%s  %-10s  %-9s  %s\n", util.PadRight("MODEL", idWidth), "PROVIDER", "CONTEXT", "NAME")
	for _, m := range models {
		fmt.Fprintf(a.Stdout, "%s  %-10s  %-9s  %s\n",
			util.PadRight(label(m), idWidth), m.Provider, strconv.Itoa(m.MaxTokens), m.Name)
	}
	return nil
}
