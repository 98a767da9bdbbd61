// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/niti-tui/internal/model"
	"github.com/jeranaias/niti-tui/internal/ui/styles"
)

// MaxInputChars caps a single message.
const MaxInputChars = 4000

// =============================================================================
// INPUT AREA COMPONENT
// =============================================================================

// InputArea is the message editor with the topic toggles beneath it.
type InputArea struct {
	textarea textarea.Model
	topics   model.TopicSet
	disabled bool
	width    int
	theme    *styles.Theme
}

// NewInputArea creates an InputArea with topics selected.
func NewInputArea(theme *styles.Theme, topics []model.Topic) *InputArea {
	ta := textarea.New()
	ta.Placeholder = "Message assistant..."
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = MaxInputChars
	ta.SetHeight(2)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("ctrl+j", "alt+enter"))
	ta.FocusedStyle.Prompt = theme.InputPrompt
	ta.FocusedStyle.Placeholder = theme.InputHint
	ta.BlurredStyle.Placeholder = theme.InputHint

	return &InputArea{
		textarea: ta,
		topics:   model.NewTopicSet(topics...),
		width:    80,
		theme:    theme,
	}
}

// Focus gives the editor the cursor.
func (i *InputArea) Focus() tea.Cmd {
	return i.textarea.Focus()
}

// Blur removes the cursor.
func (i *InputArea) Blur() {
	i.textarea.Blur()
}

// Focused reports whether the editor has the cursor.
func (i *InputArea) Focused() bool {
	return i.textarea.Focused()
}

// SetWidth resizes the editor.
func (i *InputArea) SetWidth(width int) {
	i.width = width
	i.textarea.SetWidth(width - 2)
}

// Height is the number of lines the input area occupies.
func (i *InputArea) Height() int {
	return lipgloss.Height(i.View())
}

// SetDisabled blocks editing while a reply is in flight.
func (i *InputArea) SetDisabled(disabled bool) {
	i.disabled = disabled
}

// Disabled reports whether input is blocked.
func (i *InputArea) Disabled() bool {
	return i.disabled
}

// Value returns the current text.
func (i *InputArea) Value() string {
	return i.textarea.Value()
}

// SetValue replaces the text.
func (i *InputArea) SetValue(v string) {
	i.textarea.SetValue(v)
}

// Reset clears the text.
func (i *InputArea) Reset() {
	i.textarea.Reset()
}

// CanSubmit reports whether the text is worth sending now.
func (i *InputArea) CanSubmit() bool {
	return !i.disabled && strings.TrimSpace(i.textarea.Value()) != ""
}

// ToggleTopic flips the n-th topic (1-based) of model.AllTopics.
func (i *InputArea) ToggleTopic(n int) {
	if n < 1 || n > len(model.AllTopics) {
		return
	}
	i.topics.Toggle(model.AllTopics[n-1])
}

// SetTopics replaces the selection.
func (i *InputArea) SetTopics(topics []model.Topic) {
	i.topics = model.NewTopicSet(topics...)
}

// Collections returns the selected topics as request values.
func (i *InputArea) Collections() []string {
	return i.topics.Collections()
}

// Update forwards editing keys unless input is disabled.
func (i *InputArea) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(tea.KeyMsg); ok && i.disabled {
		return nil
	}
	var cmd tea.Cmd
	i.textarea, cmd = i.textarea.Update(msg)
	return cmd
}

// View renders the editor and the topic bar.
func (i *InputArea) View() string {
	toggles := make([]string, 0, len(model.AllTopics))
	for n, t := range model.AllTopics {
		label := fmt.Sprintf("%d %s", n+1, t.Label())
		if i.topics.Has(t) {
			toggles = append(toggles, i.theme.TopicOn.Render(label))
		} else {
			toggles = append(toggles, i.theme.TopicOff.Render(label))
		}
	}
	bar := strings.Join(toggles, " ")

	hint := "enter send  alt+1-3 topics  ctrl+r audio"
	if i.disabled {
		hint = "waiting for reply..."
	}
	if lipgloss.Width(bar)+lipgloss.Width(hint)+2 <= i.width-2 {
		gap := i.width - 2 - lipgloss.Width(bar) - lipgloss.Width(hint)
		bar += strings.Repeat(" ", gap) + i.theme.InputHint.Render(hint)
	}

	return i.theme.InputContainer.Width(i.width).Render(
		lipgloss.JoinVertical(lipgloss.Left, i.textarea.View(), bar),
	)
}
