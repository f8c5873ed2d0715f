// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across roulette.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation for log previews
//   - TruncateWidth: display-width truncation for terminal cells
//   - StringWidth, PadRight: column arithmetic backed by go-runewidth
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	preview := util.TruncateRunes(msg.Content, 80)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
