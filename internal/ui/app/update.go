// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jeranaias/niti-tui/internal/api"
	"github.com/jeranaias/niti-tui/internal/chat"
	"github.com/jeranaias/niti-tui/internal/chatlist"
	"github.com/jeranaias/niti-tui/internal/config"
	"github.com/jeranaias/niti-tui/internal/ui/styles"
)

// audioCommand lets a path be typed into the input bar instead of ctrl+r.
const audioCommand = "/audio "

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m, m.messages.Update(msg)

	case chatsMsg:
		return m.handleChats(msg.state)

	case activateMsg:
		store := m.factory.Activate(msg.id)
		return m, tea.Batch(m.applySession(store.State()), m.loadHistoryCmd(store))

	case storeMsg:
		if msg.state.ChatID != m.chats.ActiveID {
			return m, nil
		}
		return m, m.applySession(msg.state)

	case opDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.logger.Debug("operation failed", zap.String("op", msg.op), zap.Error(msg.err))
		}
		return m, nil

	case transcribedMsg:
		return m.handleTranscribed(msg)

	case spokeMsg:
		if msg.err != nil {
			m.logger.Warn("listen failed", zap.Error(msg.err))
			m.setStatus("Failed to generate audio")
			return m, nil
		}
		m.setStatus("Saved reply audio to " + msg.path)
		return m, nil

	case configReloadedMsg:
		m.applyConfig(msg.cfg)
		return m, nil
	}

	var cmds []tea.Cmd
	if !m.chats.Ready() {
		var cmd tea.Cmd
		m.loading, cmd = m.loading.Update(msg)
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, m.messages.Update(msg))
	if m.prompting {
		var cmd tea.Cmd
		m.audioPrompt, cmd = m.audioPrompt.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		cmds = append(cmds, m.input.Update(msg))
	}
	return m, tea.Batch(cmds...)
}

// =============================================================================
// STATE
// =============================================================================

func (m Model) handleChats(st chatlist.State) (tea.Model, tea.Cmd) {
	m.chats = st
	m.sidebar.SetChats(st.Chats, st.ActiveID)
	m.header.SetChatName(st.Chats.Name(st.ActiveID))
	m.layout()
	return m, nil
}

// applySession shows a store snapshot. It returns the thinking animation
// when a reply has just started.
func (m *Model) applySession(st chat.State) tea.Cmd {
	started := st.IsProcessing && !m.session.IsProcessing
	m.session = st
	m.messages.SetState(st.Messages, st.IsProcessing, st.CurrentStreamedMessage)
	m.input.SetDisabled(st.IsProcessing)
	m.layout()
	if started {
		return m.messages.Thinking()
	}
	return nil
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.layout()
}

func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	m.markdown.SetEnabled(cfg.UI.Markdown)
	if cfg.UI.Theme != m.cfg.UI.Theme && cfg.UI.Theme != styles.ModeAuto {
		m.theme.SetDark(cfg.UI.Theme == styles.ModeDark)
		m.markdown.SetStyle(m.theme.GlamourStyle())
	}
	m.cfg = cfg
	m.messages.Refresh()
	m.layout()
	m.logger.Info("configuration reloaded")
}

func (m Model) handleTranscribed(msg transcribedMsg) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(msg.err, api.ErrAudioTooLarge):
		m.setStatus("Audio file is too large")
		return m, nil
	case msg.err != nil:
		m.logger.Warn("transcription failed", zap.Error(msg.err))
		m.setStatus("Failed to transcribe audio")
		return m, nil
	case strings.TrimSpace(msg.text) == "":
		m.setStatus("No speech recognized")
		return m, nil
	}
	m.setStatus("")
	return m, m.sendCmd(msg.text, m.input.Collections())
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.factory.Close()
		return m, tea.Quit
	}
	if !m.chats.Ready() {
		return m, nil
	}
	if m.prompting {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Theme):
		m.theme.Toggle()
		m.markdown.SetStyle(m.theme.GlamourStyle())
		m.messages.Refresh()
		return m, nil
	case key.Matches(msg, m.keys.NewChat):
		return m, m.createChatCmd()
	case key.Matches(msg, m.keys.Topic1):
		m.input.ToggleTopic(1)
		return m, nil
	case key.Matches(msg, m.keys.Topic2):
		m.input.ToggleTopic(2)
		return m, nil
	case key.Matches(msg, m.keys.Topic3):
		m.input.ToggleTopic(3)
		return m, nil
	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		return m, m.messages.Update(msg)
	case key.Matches(msg, m.keys.FocusChats):
		if m.sidebarVisible() {
			m.focusSidebar(!m.sidebar.Focused())
		}
		return m, nil
	}

	if m.sidebar.Focused() {
		return m.handleSidebarKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Audio):
		if m.input.Disabled() {
			return m, nil
		}
		m.prompting = true
		m.input.Blur()
		m.audioPrompt.Reset()
		m.layout()
		return m, m.audioPrompt.Focus()
	case key.Matches(msg, m.keys.Listen):
		reply, ok := m.messages.LastAssistant()
		if !ok || m.session.IsProcessing {
			return m, nil
		}
		m.setStatus("Generating audio...")
		return m, m.speakCmd(reply.Content)
	case key.Matches(msg, m.keys.Send):
		if len(m.chats.Chats) == 0 {
			return m, m.createChatCmd()
		}
		return m.submit()
	}

	return m, m.input.Update(msg)
}

// submit sends the input text, or transcribes it when it names an audio
// file.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if !m.input.CanSubmit() {
		return m, nil
	}
	text := m.input.Value()
	m.input.Reset()
	if path, ok := strings.CutPrefix(strings.TrimSpace(text), strings.TrimSpace(audioCommand)); ok && path != "" {
		return m.startTranscribe(strings.TrimSpace(path))
	}
	m.setStatus("")
	return m, m.sendCmd(text, m.input.Collections())
}

func (m Model) startTranscribe(path string) (tea.Model, tea.Cmd) {
	m.setStatus(fmt.Sprintf("Transcribing %s...", path))
	return m, m.transcribeCmd(path)
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.closePrompt()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Send):
		path := strings.TrimSpace(m.audioPrompt.Value())
		m.closePrompt()
		focus := m.input.Focus()
		if path == "" {
			return m, focus
		}
		next, cmd := m.startTranscribe(path)
		return next, tea.Batch(focus, cmd)
	}
	var cmd tea.Cmd
	m.audioPrompt, cmd = m.audioPrompt.Update(msg)
	return m, cmd
}

func (m *Model) closePrompt() {
	m.prompting = false
	m.audioPrompt.Blur()
	m.layout()
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.focusSidebar(false)
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.sidebar.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.sidebar.MoveDown()
	case key.Matches(msg, m.keys.NewChatList):
		return m, m.createChatCmd()
	case key.Matches(msg, m.keys.DeleteChat):
		if selected, ok := m.sidebar.Selected(); ok {
			return m, m.deleteChatCmd(selected.ID)
		}
	case key.Matches(msg, m.keys.Send):
		selected, ok := m.sidebar.Selected()
		if !ok {
			return m, nil
		}
		m.focusSidebar(false)
		if selected.ID == m.chats.ActiveID {
			return m, nil
		}
		return m, m.selectChatCmd(selected.ID)
	}
	return m, nil
}

func (m *Model) focusSidebar(focused bool) {
	m.sidebar.SetFocused(focused)
	if focused {
		m.input.Blur()
	} else {
		m.input.Focus()
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) sidebarVisible() bool {
	return m.theme.GetLayoutMode() != styles.LayoutNarrow
}

// layout sizes the components to the window. The transcript is only
// resized when its area changes because resizing re-renders every message.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.theme.SetSize(m.width, m.height)

	sideW := 0
	if m.sidebarVisible() {
		sideW = m.cfg.UI.SidebarWidth
		if sideW > m.width/2 {
			sideW = m.width / 2
		}
	} else if m.sidebar.Focused() {
		m.focusSidebar(false)
	}
	mainW := m.width - sideW

	m.header.SetWidth(m.width)
	m.input.SetWidth(mainW)

	bodyH := m.height - lipgloss.Height(m.header.View()) - lipgloss.Height(m.footer(mainW))
	if bodyH < 3 {
		bodyH = 3
	}
	m.sidebar.SetSize(sideW, bodyH)
	if mainW != m.bodyW || bodyH != m.bodyH {
		m.bodyW, m.bodyH = mainW, bodyH
		m.messages.SetSize(mainW, bodyH)
	}
}
