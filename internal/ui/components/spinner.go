// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/niti-tui/internal/ui/styles"
)

// =============================================================================
// SPINNER MODEL
// =============================================================================

// Spinner is a labelled loading indicator.
type Spinner struct {
	spinner spinner.Model
	label   string
	theme   *styles.Theme
}

// NewSpinner creates a spinner with ASCII frames.
func NewSpinner(theme *styles.Theme, label string) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	s.Style = theme.Spinner
	return Spinner{spinner: s, label: label, theme: theme}
}

// Tick starts the animation.
func (s Spinner) Tick() tea.Cmd {
	return s.spinner.Tick
}

// Update advances the animation.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the frame and label on one line.
func (s Spinner) View() string {
	if s.label == "" {
		return s.spinner.View()
	}
	return s.spinner.View() + " " + s.theme.ThinkingText.Render(s.label)
}

// FullScreen renders the spinner centered in width x height.
func (s Spinner) FullScreen(width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, s.View())
}
