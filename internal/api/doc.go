// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the typed client for the assistant backend's HTTP surface.
//
// # Endpoints
//
//   - GET    /api/chats              list chat sessions
//   - POST   /api/new_chat           create a session
//   - GET    /api/chat_history/{id}  transcript of one session
//   - DELETE /api/chat/{id}          delete a session
//   - POST   /api/chat               send a message, SSE reply
//   - POST   /api/audio              transcribe an audio upload
//   - POST   /api/tts                synthesize speech
//
// Session identity travels in cookies, so every Client is built around an
// http.CookieJar (usually a *cookie.Store). The client never retries: the
// callers turn failures into user-visible messages.
//
// # Errors
//
// Non-2xx responses become *StatusError. A 403 matches ErrNotAuthorized via
// errors.Is. Responses lacking a required field wrap ErrMissingField.
package api
