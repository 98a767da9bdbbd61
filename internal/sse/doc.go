// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse decodes the assistant backend's streamed replies.
//
// The backend answers a chat submission with a Server-Sent Events body in
// which every "data: " line carries one JSON-encoded string fragment. JSON is
// only used to keep whitespace and newlines intact on the wire; the fragments
// are plain text. The Decoder concatenates fragments in arrival order and
// publishes the running text after each one so a view can render partial
// output live.
//
// # Usage
//
// Callback style:
//
//	text, err := sse.NewDecoder(logger).Decode(ctx, resp.Body, func(u sse.Update) {
//	    view.SetStreaming(u.Text)
//	})
//
// Channel style (cancel ctx to stop consuming a stale stream):
//
//	updates, errc := sse.NewDecoder(logger).Stream(ctx, resp.Body)
//	for u := range updates {
//	    ...
//	}
//	err := <-errc
package sse
