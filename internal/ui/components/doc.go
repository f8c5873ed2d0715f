// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual pieces of the roulette chat
// client. Components are pure renderers: state that changes over time
// (typing gate, streaming flags) is owned by the chat model and passed in.
//
// # Components
//
//   - MessageBubble: renders one conversation message from BubbleProps
//   - BubbleCache: skips re-rendering bubbles whose props are unchanged
//   - ReasoningDisclosure: expand/collapse state of a reasoning block
//   - TypingIndicator: three pulsing dots shown while a reply is held back
//   - Markdown: glamour renderer for message and reasoning text
//   - Header, StatusLine: chrome around the conversation
package components
