// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cookie provides the client-side cookie jar for the assistant backend.
//
// The jar is scoped to a single backend origin. It serves two roles at once:
// it is the net/http.CookieJar used by the API client, so server-issued
// cookies (user_session_id) ride along on every request, and it is the
// Get/Set accessor the UI uses to mirror the active chat into session_id.
//
// # Key Types
//
//   - Jar: minimal Get/Set accessor injected into the chat packages
//   - Store: origin-scoped jar implementing both Jar and http.CookieJar
//   - Backend: optional persistence behind a Store (SQLiteBackend)
//
// # Usage
//
//	backend, err := cookie.OpenSQLite(path)
//	jar, err := cookie.NewStore(baseURL, backend, logger)
//	jar.Set(cookie.SessionID, chatID)
//	id, ok := jar.Get(cookie.SessionID)
package cookie
