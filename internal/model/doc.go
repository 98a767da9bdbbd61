// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
//
// These types mirror what the backend returns. The client never invents chat
// ids or names; it only displays and forwards them.
//
// # Key Types
//
//   - ChatMeta: a chat session as listed by the backend (id + display name)
//   - ChatList: ordered list of ChatMeta with lookup helpers
//   - Message: one transcript entry (user or assistant)
//   - Role: message role enumeration
//   - Topic: a knowledge collection the assistant may search
//
// # Usage
//
//	chats := model.ChatList{{ID: "a", Name: "Chat 1"}}
//	if chats.Contains(stored) { ... }
//	msg := model.NewUserMessage("hello")
package model
