// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/niti-tui/internal/ui/styles"
	"github.com/jeranaias/niti-tui/internal/util"
)

// AppTitle is shown in the header and on the welcome screen.
const AppTitle = "NITI For States Assistant"

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the title bar with the theme toggle.
type Header struct {
	Title    string
	ChatName string
	Width    int
	theme    *styles.Theme
}

// NewHeader creates a Header.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: AppTitle,
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetChatName sets the name of the chat on screen.
func (h *Header) SetChatName(name string) {
	h.ChatName = name
}

// View renders the header.
func (h *Header) View() string {
	width := h.Width
	if width < 20 {
		width = 20
	}
	inner := width - 2

	toggle := h.theme.HeaderToggle.Render(h.toggleLabel())
	left := h.theme.HeaderTitle.Render(h.Title)
	if h.ChatName != "" {
		left += h.theme.HeaderSubtitle.Render("  " + h.ChatName)
	}

	space := inner - lipgloss.Width(left) - lipgloss.Width(toggle)
	if space < 1 {
		left = h.theme.HeaderTitle.Render(util.TruncateWidth(h.Title, inner-lipgloss.Width(toggle)-1))
		space = inner - lipgloss.Width(left) - lipgloss.Width(toggle)
		if space < 1 {
			space = 1
		}
	}

	row := lipgloss.JoinHorizontal(lipgloss.Center, left, lipgloss.NewStyle().Width(space).Render(""), toggle)
	return h.theme.Header.Width(width).Render(row)
}

// toggleLabel offers the mode the toggle switches to.
func (h *Header) toggleLabel() string {
	if h.theme.IsDark {
		return "light (ctrl+t)"
	}
	return "dark (ctrl+t)"
}
