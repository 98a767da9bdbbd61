// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/niti-tui/internal/ui/styles"
)

// WelcomeText introduces the assistant on an empty transcript.
const WelcomeText = "I can help you navigate through best practices and policies across different states in India.\n" +
	"Feel free to ask me questions about state initiatives, policies, and successful implementation stories."

// =============================================================================
// WELCOME SCREEN
// =============================================================================

// Welcome is shown in place of an empty transcript.
type Welcome struct {
	width  int
	height int
	theme  *styles.Theme
}

// NewWelcome creates a Welcome screen.
func NewWelcome(theme *styles.Theme) Welcome {
	return Welcome{width: 80, height: 20, theme: theme}
}

// SetSize sets the area the screen is centered in.
func (w *Welcome) SetSize(width, height int) {
	w.width = width
	w.height = height
}

// View renders the title and introduction centered in the area.
func (w Welcome) View() string {
	textWidth := w.width - 4
	if textWidth > 100 {
		textWidth = 100
	}
	if textWidth < 10 {
		textWidth = 10
	}

	body := lipgloss.JoinVertical(lipgloss.Center,
		w.theme.WelcomeTitle.Render(AppTitle),
		w.theme.WelcomeText.Width(textWidth).Align(lipgloss.Center).Render(WelcomeText),
	)
	return lipgloss.Place(w.width, w.height, lipgloss.Center, lipgloss.Center, body)
}

// StartNewChat renders the prompt shown when there are no chats at all.
func StartNewChat(theme *styles.Theme, width, height int) string {
	body := lipgloss.JoinVertical(lipgloss.Center,
		theme.ButtonFocused.Render("Start New Chat"),
		theme.Muted.Render("press enter"),
	)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}
