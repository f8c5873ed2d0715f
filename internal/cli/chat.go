// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - The chat command: the interactive terminal chat view.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr"

	"github.com/gokkerz/roulette/internal/config"
	"github.com/gokkerz/roulette/internal/logging"
	"github.com/gokkerz/roulette/internal/model"
	"github.com/gokkerz/roulette/internal/stream"
	uichat "github.com/gokkerz/roulette/internal/ui/chat"
	"github.com/gokkerz/roulette/internal/ui/components"
	"github.com/gokkerz/roulette/internal/ui/styles"
)

// chatLogFile receives log output while the chat view owns the terminal.
const chatLogFile = "chat.log"

func (a *App) runChat(ctx context.Context, cfg *config.Config, args Args) error {
	log, closeLog, err := a.chatLogger(cfg, args.Verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	mdStyle := ""
	if colorDisabled() {
		mdStyle = "notty"
	}

	client := stream.NewClient(cfg.Client.ServerURL).WithLogger(log.WithName("client"))
	runner := uichat.NewStreamRunner(client)
	view := uichat.New(runner, uichat.Options{
		Model:       model.ID(args.Model),
		TypingDelay: cfg.UI.TypingDelay(),
		MaxVisible:  cfg.UI.MaxVisibleMessages,
		WordWrap:    cfg.UI.WordWrap,
		Theme:       styles.NewTheme(),
		Markdown:    components.NewMarkdown(mdStyle),
		Logger:      log.WithName("ui"),
	})

	p := tea.NewProgram(view, tea.WithAltScreen())
	runner.Attach(p)

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			p.Quit()
		case <-stopped:
		}
	}()

	log.Info("CHAT_START", "server", cfg.Client.ServerURL, "model", args.Model)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

// chatLogger sends logs to ~/.roulette/chat.log, since stderr is hidden
// behind the alternate screen. Without --verbose nothing is logged.
func (a *App) chatLogger(cfg *config.Config, verbose bool) (logr.Logger, func(), error) {
	if !verbose {
		return logr.Discard(), func() {}, nil
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return logr.Discard(), nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return logr.Discard(), nil, fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, chatLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return logr.Discard(), nil, fmt.Errorf("open chat log: %w", err)
	}

	log, err := logging.New(f, logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Name: "roulette"})
	if err != nil {
		f.Close()
		return logr.Discard(), nil, err
	}
	fmt.Fprintf(a.Stderr, "Logging to %s\n", f.Name())
	return log, func() { f.Close() }, nil
}
