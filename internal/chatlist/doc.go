// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatlist keeps the sidebar's list of chats and the active
// selection in step with the backend.
//
// The backend's list endpoint is the only source of names and ordering.
// The active chat id is mirrored into the session_id cookie whenever it
// changes, so requests that rely on the cookie always target the chat the
// user is looking at.
package chatlist
