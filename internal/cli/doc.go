// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the niti command tree.
//
// Running niti without a subcommand starts the full-screen client. The
// other commands drive the same chat list controller and chat stores from
// the shell, so a session started in one is visible in the other through
// the shared cookie jar.
//
// # Commands
//
//	niti                      Start the full-screen client
//	niti repl                 Line-mode chat with history
//	niti ask TEXT             Send one message and stream the reply
//	niti chats                List chats
//	niti new                  Create a chat and make it active
//	niti use ID|NAME          Make a chat active
//	niti delete ID|NAME       Delete a chat
//	niti history [ID|NAME]    Print a transcript
//	niti export [ID|NAME]     Save a transcript as Markdown or JSON
//	niti transcribe FILE      Transcribe an audio file
//	niti speak TEXT           Save synthesized speech
//	niti config ...           Show or edit the configuration
//	niti version              Print version information
//
// # Usage
//
//	os.Exit(cli.Execute(ctx, os.Args[1:]))
package cli
