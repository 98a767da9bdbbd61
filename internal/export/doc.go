// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to files.
//
// # Supported Formats
//
//   - Markdown: human-readable, one section per message
//   - JSON: machine-readable with the chat id and name
//
// # Usage
//
//	t := export.NewTranscript(chat, messages)
//	path, err := export.ExportToFile(t, export.NewMarkdownExporter(nil), nil)
package export
