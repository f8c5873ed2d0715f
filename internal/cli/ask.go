// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - The ask command: sends one question and prints the streamed
// answer.
//
// On a terminal the answer is rendered as markdown once complete. When
// piped, text deltas are written as they arrive.
//
// Examples:
//
//	roulette ask "Wat voor weer is het in Utrecht?"
//	echo "Vertel een mop" | roulette ask
//	roulette ask --json "Hoi"
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"

	"github.com/gokkerz/roulette/internal/config"
	"github.com/gokkerz/roulette/internal/model"
	"github.com/gokkerz/roulette/internal/stream"
	"github.com/gokkerz/roulette/internal/ui/components"
	"github.com/gokkerz/roulette/internal/ui/styles"
	"github.com/gokkerz/roulette/internal/util"
)

// maxStdinQuestion caps a question read from stdin.
const maxStdinQuestion = 100000

// AskResult is the --json output of ask.
type AskResult struct {
	Model        model.ID                  `json:"model,omitempty"`
	Message      model.ConversationMessage `json:"message"`
	FinishReason stream.FinishReason       `json:"finish_reason"`
	Usage        stream.Usage              `json:"usage"`
}

func (a *App) runAsk(ctx context.Context, cfg *config.Config, args Args, log logr.Logger) error {
	question, err := a.question(args)
	if err != nil {
		return err
	}

	conv := model.NewConversationWithModel(model.ID(args.Model))
	conv.AddUserMessage(question)
	req := stream.Request{
		ID:            conv.ID,
		Messages:      conv.History(),
		SelectedModel: model.ID(args.Model),
	}
	reply := conv.StartAssistantMessage()

	pretty := isTerminal(a.Stdout) && !args.JSON && !args.parser.BoolFlag("raw")
	theme := styles.NewTheme()

	var (
		finish   stream.FinishReason
		usage    stream.Usage
		errorMsg string
	)
	client := stream.NewClient(cfg.Client.ServerURL).WithLogger(log.WithName("client"))
	log.V(1).Info("ASK_START", "server", client.URL(), "question", util.TruncateRunes(question, 80))

	err = client.Stream(ctx, req, func(e stream.Event) error {
		stream.Apply(reply, e)

		switch e.Kind {
		case stream.KindTextDelta:
			if !pretty && !args.JSON {
				_, werr := io.WriteString(a.Stdout, e.Text)
				return werr
			}
		case stream.KindReasoningDelta:
			if args.Verbose && !args.JSON {
				fmt.Fprint(a.Stderr, theme.ReasoningBody.Render(e.Text))
			}
		case stream.KindToolCall:
			if !args.JSON {
				fmt.Fprintf(a.Stderr, "⚙ %s %s\n", e.ToolName, util.TruncateRunes(string(e.Args), 120))
			}
		case stream.KindError:
			errorMsg = e.Text
		case stream.KindDone:
			finish, usage = e.FinishReason, e.Usage
		}
		return nil
	})
	conv.FinishStreaming()

	if err != nil {
		var httpErr *stream.HTTPError
		if errors.As(err, &httpErr) && httpErr.Message != "" {
			return errors.New(httpErr.Message)
		}
		return fmt.Errorf("ask: %w", err)
	}

	if args.JSON {
		return NewJSONResponse("ask", AskResult{
			Model:        model.ID(args.Model),
			Message:      *reply,
			FinishReason: finish,
			Usage:        usage,
		}).Print(a.Stdout)
	}

	switch {
	case pretty:
		md := components.NewMarkdown("")
		fmt.Fprintln(a.Stdout, md.Render(reply.Text(), terminalWidth(a.Stdout)-4))
	case reply.Text() != "":
		fmt.Fprintln(a.Stdout)
	}

	if errorMsg != "" {
		return errors.New(errorMsg)
	}
	log.V(1).Info("ASK_COMPLETE", "finish_reason", finish, "prompt_tokens", usage.PromptTokens, "completion_tokens", usage.CompletionTokens)
	return nil
}

// question returns the positional arguments, or stdin when none are given
// and stdin is not a terminal.
func (a *App) question(args Args) (string, error) {
	q := strings.TrimSpace(strings.Join(args.Rest, " "))
	if q == "" && a.Stdin != nil && !isTerminalReader(a.Stdin) {
		data, err := io.ReadAll(io.LimitReader(a.Stdin, maxStdinQuestion))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		q = strings.TrimSpace(string(data))
	}
	if q == "" {
		return "", &usageError{msg: "roulette ask <question>"}
	}
	return q, nil
}
