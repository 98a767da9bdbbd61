// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/niti-tui/internal/chat"
	"github.com/jeranaias/niti-tui/internal/chatlist"
	"github.com/jeranaias/niti-tui/internal/config"
)

// =============================================================================
// STATE MESSAGES
// =============================================================================

// chatsMsg carries a chat list controller snapshot.
type chatsMsg struct {
	state chatlist.State
}

// activateMsg reports that the controller picked a different chat.
type activateMsg struct {
	id string
}

// storeMsg carries a chat store snapshot.
type storeMsg struct {
	state chat.State
}

// =============================================================================
// OPERATION RESULTS
// =============================================================================

// opDoneMsg ends a controller or store operation. User-facing failures are
// already in the published state; err is only logged.
type opDoneMsg struct {
	op  string
	err error
}

// transcribedMsg carries the text recognized in an audio file.
type transcribedMsg struct {
	text string
	err  error
}

// spokeMsg reports where a listened reply was saved.
type spokeMsg struct {
	path string
	err  error
}

// configReloadedMsg carries a configuration read after the file changed.
type configReloadedMsg struct {
	cfg *config.Config
}

// =============================================================================
// BRIDGE
// =============================================================================

// Bridge forwards callbacks from background goroutines into the program.
// Messages sent before Attach are dropped.
type Bridge struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

// Attach sets the function messages are delivered through, normally
// (*tea.Program).Send.
func (b *Bridge) Attach(send func(tea.Msg)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send = send
}

// Send delivers msg. It must not be called from inside Update.
func (b *Bridge) Send(msg tea.Msg) {
	b.mu.RLock()
	send := b.send
	b.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}
