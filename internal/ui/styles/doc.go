// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling of the roulette chat client.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
//
// # Files
//
//   - colors.go: color palette
//   - theme.go: Theme with the lip gloss styles used by components
//   - animations.go: spinner definitions (typing dots, reasoning)
//
// # Usage
//
//	theme := styles.NewTheme()
//	theme.SetSize(width, height)
//	bubble := theme.AssistantBubble.Width(theme.BubbleWidth(80)).Render(text)
package styles
