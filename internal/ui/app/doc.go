// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the full-screen niti client.
//
// The Model composes the header, chat sidebar, transcript and input bar.
// The chat list controller and the chat store factory run outside the
// Bubble Tea event loop: every operation is issued from a tea.Cmd, and
// state changes come back as messages through a Bridge attached to the
// program.
//
// Usage:
//
//	err := app.Run(ctx, app.Options{
//		Config: cfg,
//		Client: client,
//		Jar:    jar,
//		Logger: logger,
//	})
package app
