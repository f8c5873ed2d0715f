// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the terminal chat view of roulette.
//
// The view keeps a model.Conversation, posts it to the chat endpoint on
// every submit and folds the streamed events into the trailing assistant
// message as they arrive.
//
// # Components
//
//   - Model: the bubbletea model; owns the conversation and the layout
//   - StreamRunner: runs one stream and relays its events into the program
//   - TypingGate: holds a new reply behind the typing indicator for a
//     fixed window after the stream starts
//   - KeyMap: keyboard bindings
//
// Rendering goes through components.BubbleCache, so a message is only
// re-rendered when something it depends on changed.
//
// # Usage
//
//	runner := chat.NewStreamRunner(stream.NewClient(url))
//	p := tea.NewProgram(chat.New(runner, chat.Options{}), tea.WithAltScreen())
//	runner.Attach(p)
//	_, err := p.Run()
package chat
