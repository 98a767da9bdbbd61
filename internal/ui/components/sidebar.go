// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/niti-tui/internal/model"
	"github.com/jeranaias/niti-tui/internal/ui/styles"
	"github.com/jeranaias/niti-tui/internal/util"
)

// =============================================================================
// SIDEBAR COMPONENT
// =============================================================================

// Sidebar lists the chats and highlights the active one. The cursor is
// separate from the active chat: moving it does not select anything.
type Sidebar struct {
	chats   model.ChatList
	active  string
	cursor  int
	offset  int
	focused bool
	width   int
	height  int
	theme   *styles.Theme
}

// NewSidebar creates an empty Sidebar.
func NewSidebar(theme *styles.Theme) *Sidebar {
	return &Sidebar{width: 28, height: 20, theme: theme}
}

// SetSize sets the outer size of the sidebar.
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.clampOffset()
}

// Width returns the outer width.
func (s *Sidebar) Width() int {
	return s.width
}

// SetChats replaces the list. Unless the sidebar is focused the cursor
// follows the active chat.
func (s *Sidebar) SetChats(chats model.ChatList, active string) {
	s.chats = chats.Clone()
	s.active = active
	if !s.focused {
		if i := s.chats.IndexOf(active); i >= 0 {
			s.cursor = i
		}
	}
	if s.cursor >= len(s.chats) {
		s.cursor = len(s.chats) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
	s.clampOffset()
}

// SetFocused marks whether key presses go to the sidebar.
func (s *Sidebar) SetFocused(focused bool) {
	s.focused = focused
	if !focused {
		if i := s.chats.IndexOf(s.active); i >= 0 {
			s.cursor = i
			s.clampOffset()
		}
	}
}

// Focused reports whether the sidebar has focus.
func (s *Sidebar) Focused() bool {
	return s.focused
}

// MoveUp moves the cursor up one entry.
func (s *Sidebar) MoveUp() {
	if s.cursor > 0 {
		s.cursor--
		s.clampOffset()
	}
}

// MoveDown moves the cursor down one entry.
func (s *Sidebar) MoveDown() {
	if s.cursor < len(s.chats)-1 {
		s.cursor++
		s.clampOffset()
	}
}

// Selected returns the chat under the cursor.
func (s *Sidebar) Selected() (model.ChatMeta, bool) {
	if s.cursor < 0 || s.cursor >= len(s.chats) {
		return model.ChatMeta{}, false
	}
	return s.chats[s.cursor], true
}

// visibleRows is the number of list rows that fit under the title and
// above the hints.
func (s *Sidebar) visibleRows() int {
	rows := s.height - 4
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (s *Sidebar) clampOffset() {
	rows := s.visibleRows()
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+rows {
		s.offset = s.cursor - rows + 1
	}
	if s.offset < 0 {
		s.offset = 0
	}
}

// View renders the sidebar.
func (s *Sidebar) View() string {
	inner := s.width - 3
	if inner < 6 {
		inner = 6
	}

	var b strings.Builder
	b.WriteString(s.theme.SidebarTitle.Render("Chats"))
	b.WriteString("\n")

	if len(s.chats) == 0 {
		b.WriteString(s.theme.Muted.Render("No chats yet"))
		b.WriteString("\n")
	}

	end := s.offset + s.visibleRows()
	if end > len(s.chats) {
		end = len(s.chats)
	}
	for i := s.offset; i < end; i++ {
		b.WriteString(s.renderItem(i, inner))
		b.WriteString("\n")
	}

	hint := "ctrl+n new"
	if s.focused {
		hint = "enter open  d delete  n new"
	}
	list := b.String()
	pad := s.height - lipgloss.Height(list) - 1
	if pad > 0 {
		list += strings.Repeat("\n", pad)
	}
	list += s.theme.Muted.Render(util.TruncateWidth(hint, inner))

	return s.theme.Sidebar.Width(s.width - 1).Height(s.height).Render(list)
}

func (s *Sidebar) renderItem(i, width int) string {
	chat := s.chats[i]
	marker := "  "
	if s.focused && i == s.cursor {
		marker = s.theme.SidebarCursor.Render("> ")
	}

	name := util.PadWidth(util.TruncateWidth(chat.Name, width-4), width-4)
	if chat.ID == s.active {
		return marker + s.theme.SidebarItemActive.Render(name)
	}
	return marker + s.theme.SidebarItem.Render(name)
}
