// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat holds the transcript state of one chat session.
//
// A Store is bound to exactly one chat id for its whole life. It owns the
// messages, the provisional text of a reply being streamed, a processing
// flag and a user-visible error string. The streamed text is never merged
// into the transcript: when a reply finishes the Store re-fetches the
// authoritative history from the backend.
//
// A Factory hands out the Store for the active chat id. Switching ids
// closes the previous Store, which cancels its in-flight requests and drops
// any update it would still publish.
//
// # Usage
//
//	f := chat.NewFactory(ctx, client, jar, chat.Config{OnChange: notify})
//	store, _ := f.Switch(ctx, "chat-1")
//	err := store.SendMessage(ctx, "Which states run solar rooftop schemes?", topics)
package chat
