// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/niti-tui/internal/model"
	"github.com/jeranaias/niti-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	activeStyle = lipgloss.NewStyle().
			Foreground(styles.Brand).
			Bold(true)

	roleStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Brand).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)
)

// style renders s with st only when colors are enabled.
func style(st lipgloss.Style, s string) string {
	if !ColorsEnabled() {
		return s
	}
	return st.Render(s)
}

// =============================================================================
// MARKDOWN
// =============================================================================

// renderMarkdown renders an assistant reply for a terminal. Piped output and
// rendering failures get the raw text.
func renderMarkdown(content string) string {
	if !ColorsEnabled() {
		return content
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(TerminalWidth()-4),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// highlight writes src with syntax highlighting for language ("json",
// "toml") when colors are enabled.
func highlight(w io.Writer, src, language string) {
	if !ColorsEnabled() {
		fmt.Fprint(w, src)
		return
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, src)
	if err != nil {
		fmt.Fprint(w, src)
		return
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		fmt.Fprint(w, src)
		return
	}
	fmt.Fprint(w, buf.String())
}

// =============================================================================
// LISTINGS
// =============================================================================

// printChats writes one chat per line, marking the active one.
func printChats(w io.Writer, chats model.ChatList, active string) {
	if len(chats) == 0 {
		fmt.Fprintln(w, "No chats yet")
		return
	}
	for _, c := range chats {
		if c.ID == active {
			fmt.Fprintf(w, "* %s\n", style(activeStyle, fmt.Sprintf("%-10s %s", c.Name, c.ID)))
			continue
		}
		fmt.Fprintf(w, "  %-10s %s\n", c.Name, c.ID)
	}
}

// printTranscript writes messages with their role labels.
func printTranscript(w io.Writer, msgs []model.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "No messages yet")
		return
	}
	for i, msg := range msgs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, style(roleStyle, msg.Role.DisplayName()+":"))
		content := msg.Content
		if msg.Role == model.RoleAssistant {
			content = renderMarkdown(content)
		}
		fmt.Fprintln(w, content)
	}
}
