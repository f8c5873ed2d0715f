// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the domain types shared by the chat endpoint and the
// terminal client.
//
// # Key Types
//
//   - ConversationMessage: one turn with a role and an ordered list of parts
//   - Part: tagged content variant (text, reasoning, tool invocation)
//   - Conversation: client-side container that applies streamed deltas
//   - Registry: the static table of supported models
//
// # Usage
//
// Build a request history:
//
//	conv := model.NewConversation()
//	conv.AddUserMessage("Welke casino's zijn legaal?")
//	msg := conv.StartAssistantMessage()
//	msg.AppendText("Goeie vraag! ")
//
// Check a model selection:
//
//	info, ok := model.Supported.Lookup("meta-llama/llama-4-scout-17b-16e-instruct")
package model
