// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/niti-tui/internal/model"
	"github.com/jeranaias/niti-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE LIST
// =============================================================================

// MessageList is the scrolling transcript. It shows the welcome screen
// while the transcript is empty, a thinking indicator while a reply has not
// started, and the provisional reply while it streams.
type MessageList struct {
	viewport   viewport.Model
	welcome    Welcome
	thinking   Spinner
	markdown   *Markdown
	theme      *styles.Theme
	messages   []model.Message
	processing bool
	streamed   string
	width      int
	height     int
}

// NewMessageList creates an empty MessageList.
func NewMessageList(theme *styles.Theme, markdown *Markdown) *MessageList {
	vp := viewport.New(80, 20)
	return &MessageList{
		viewport: vp,
		welcome:  NewWelcome(theme),
		thinking: NewSpinner(theme, "Thinking..."),
		markdown: markdown,
		theme:    theme,
		width:    80,
		height:   20,
	}
}

// SetSize resizes the transcript area.
func (l *MessageList) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.viewport.Width = width
	l.viewport.Height = height
	l.welcome.SetSize(width, height)
	l.refresh()
}

// SetState replaces what the list shows and scrolls to the bottom.
func (l *MessageList) SetState(messages []model.Message, processing bool, streamed string) {
	l.messages = messages
	l.processing = processing
	l.streamed = streamed
	l.refresh()
}

// Processing reports whether a reply is in flight.
func (l *MessageList) Processing() bool {
	return l.processing
}

// Refresh re-renders after a theme or markdown change.
func (l *MessageList) Refresh() {
	l.refresh()
}

// LastAssistant returns the newest finished assistant message.
func (l *MessageList) LastAssistant() (model.Message, bool) {
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].Role == model.RoleAssistant && !l.messages[i].IsEmpty() {
			return l.messages[i], true
		}
	}
	return model.Message{}, false
}

// Thinking returns the spinner command to start the thinking indicator.
func (l *MessageList) Thinking() tea.Cmd {
	return l.thinking.Tick()
}

func (l *MessageList) refresh() {
	l.viewport.SetContent(l.render())
	l.viewport.GotoBottom()
}

func (l *MessageList) render() string {
	width := l.width - 2
	if width < 10 {
		width = 10
	}

	parts := make([]string, 0, len(l.messages)+1)
	for _, msg := range l.messages {
		parts = append(parts, RenderMessage(l.theme, l.markdown, msg, false, width))
	}
	if l.processing {
		if l.streamed == "" {
			parts = append(parts, l.thinking.View())
		} else {
			parts = append(parts, RenderMessage(l.theme, l.markdown, model.NewAssistantMessage(l.streamed), true, width))
		}
	}
	return strings.Join(parts, "\n\n")
}

// Update handles scrolling and the thinking animation.
func (l *MessageList) Update(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	switch msg.(type) {
	case tea.KeyMsg, tea.MouseMsg:
		var cmd tea.Cmd
		l.viewport, cmd = l.viewport.Update(msg)
		cmds = append(cmds, cmd)
	default:
		var cmd tea.Cmd
		l.thinking, cmd = l.thinking.Update(msg)
		if l.processing && l.streamed == "" {
			l.viewport.SetContent(l.render())
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

// View renders the welcome screen or the transcript.
func (l *MessageList) View() string {
	if len(l.messages) == 0 && !l.processing {
		return l.welcome.View()
	}
	return l.viewport.View()
}
