// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the niti TUI.
//
// Components hold only what they need to draw. They never talk to the
// backend: the app model feeds them snapshots and turns key presses into
// operations.
package components
