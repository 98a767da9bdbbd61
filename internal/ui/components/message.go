// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/niti-tui/internal/model"
	"github.com/jeranaias/niti-tui/internal/ui/styles"
)

// StreamingCursor trails text that is still arriving.
const StreamingCursor = "_"

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// Markdown renders assistant replies. A disabled Markdown passes text
// through unchanged.
type Markdown struct {
	enabled  bool
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdown creates a renderer using the named glamour standard style.
func NewMarkdown(enabled bool, style string) *Markdown {
	return &Markdown{enabled: enabled, style: style}
}

// SetStyle switches the glamour style.
func (m *Markdown) SetStyle(style string) {
	if style != m.style {
		m.style = style
		m.renderer = nil
	}
}

// SetEnabled turns rendering on or off.
func (m *Markdown) SetEnabled(enabled bool) {
	m.enabled = enabled
}

// Render renders content wrapped at width. Rendering errors fall back to
// the raw text.
func (m *Markdown) Render(content string, width int) string {
	if !m.enabled || strings.TrimSpace(content) == "" {
		return content
	}
	if m.renderer == nil || width != m.width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			m.enabled = false
			return content
		}
		m.renderer = r
		m.width = width
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// =============================================================================
// MESSAGE BUBBLE
// =============================================================================

// RenderMessage draws one transcript entry. User messages sit on the right,
// assistant messages on the left with markdown applied.
func RenderMessage(theme *styles.Theme, md *Markdown, msg model.Message, streaming bool, width int) string {
	maxWidth := width * 3 / 4
	if maxWidth < 20 {
		maxWidth = width
	}

	label := theme.RoleLabel.Render(msg.Role.DisplayName())

	if msg.Role == model.RoleUser {
		content := msg.Content
		if lipgloss.Width(content)+4 > maxWidth {
			content = lipgloss.NewStyle().Width(maxWidth - 4).Render(content)
		}
		bubble := theme.UserBubble.Render(content)
		block := lipgloss.JoinVertical(lipgloss.Right, label, bubble)
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, block)
	}

	inner := maxWidth - 4
	body := md.Render(msg.Content, inner)
	if streaming {
		body += StreamingCursor
	}
	bubble := theme.AssistantBubble.Width(maxWidth - 2).Render(body)
	if !streaming && msg.Role == model.RoleAssistant {
		label += theme.Muted.Render("  ctrl+l listen")
	}
	return lipgloss.JoinVertical(lipgloss.Left, label, bubble)
}
