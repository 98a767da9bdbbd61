// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/niti-tui/internal/ui/components"
	"github.com/jeranaias/niti-tui/internal/util"
)

// View renders the client.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if !m.chats.Ready() {
		return m.loading.FullScreen(m.width, m.height)
	}

	mainW := m.bodyW
	var main string
	if len(m.chats.Chats) == 0 {
		main = components.StartNewChat(m.theme, mainW, m.bodyH)
	} else {
		main = m.messages.View()
	}
	main = lipgloss.JoinVertical(lipgloss.Left, main, m.footer(mainW))

	body := main
	if m.sidebarVisible() && m.sidebar.Width() > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), main)
	}

	return m.theme.App.Render(lipgloss.JoinVertical(lipgloss.Left, m.header.View(), body))
}

// footer renders the error banner, the status line and the input bar.
func (m Model) footer(width int) string {
	var parts []string
	for _, e := range m.errors() {
		parts = append(parts, m.theme.ErrorBanner.Width(width).Render(util.TruncateWidth(e, width-2)))
	}
	if m.status != "" {
		parts = append(parts, m.theme.Muted.Render(util.TruncateWidth(m.status, width)))
	}
	if m.prompting {
		parts = append(parts, m.theme.InputContainer.Width(width).Render(
			m.audioPrompt.View()+"\n"+m.theme.InputHint.Render("enter transcribe and send  esc cancel"),
		))
	} else {
		parts = append(parts, m.input.View())
	}
	return strings.Join(parts, "\n")
}

// errors lists the chat list and session errors currently shown.
func (m Model) errors() []string {
	var out []string
	if m.chats.Error != "" {
		out = append(out, m.chats.Error)
	}
	if m.session.Error != "" && m.session.Error != m.chats.Error {
		out = append(out, m.session.Error)
	}
	return out
}
