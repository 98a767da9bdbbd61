// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the application.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App         lipgloss.Style
	ErrorBanner lipgloss.Style
	Muted       lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	HeaderToggle   lipgloss.Style

	// ==========================================================================
	// SIDEBAR STYLES
	// ==========================================================================

	Sidebar           lipgloss.Style
	SidebarTitle      lipgloss.Style
	SidebarItem       lipgloss.Style
	SidebarItemActive lipgloss.Style
	SidebarCursor     lipgloss.Style
	Button            lipgloss.Style
	ButtonFocused     lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	RoleLabel       lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	TopicOn        lipgloss.Style
	TopicOff       lipgloss.Style
	InputHint      lipgloss.Style

	// ==========================================================================
	// WELCOME AND LOADING STYLES
	// ==========================================================================

	WelcomeTitle lipgloss.Style
	WelcomeText  lipgloss.Style
	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style
}

// NewTheme creates a theme for mode: "dark", "light", or "auto" to ask the
// terminal for its background.
func NewTheme(mode string) *Theme {
	var isDark bool
	switch strings.ToLower(mode) {
	case ModeDark:
		isDark = true
	case ModeLight:
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{ColorProfile: termenv.ColorProfile()}
	t.SetDark(isDark)
	return t
}

// SetDark switches every adaptive color to its dark or light variant.
func (t *Theme) SetDark(dark bool) {
	t.IsDark = dark
	lipgloss.SetHasDarkBackground(dark)
	t.initStyles()
}

// Toggle flips between dark and light.
func (t *Theme) Toggle() {
	t.SetDark(!t.IsDark)
}

// Mode returns "dark" or "light".
func (t *Theme) Mode() string {
	if t.IsDark {
		return ModeDark
	}
	return ModeLight
}

// GlamourStyle names the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	return t.Mode()
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()

	t.ErrorBanner = lipgloss.NewStyle().
		Foreground(Rose).
		Background(RoseBg).
		Padding(0, 1)

	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Header
	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Brand)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.HeaderToggle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.SidebarTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary).
		MarginBottom(1)

	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Padding(0, 1)

	t.SidebarItemActive = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(BrandDeep).
		Bold(true).
		Padding(0, 1)

	t.SidebarCursor = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)

	t.Button = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Brand).
		Padding(0, 2)

	t.ButtonFocused = t.Button.
		Underline(true).
		Bold(true)

	// Messages
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Background(UserBubbleBg).
		Padding(0, 2)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1)

	t.RoleLabel = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Brand).
		Bold(true)

	t.TopicOn = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Accent).
		Padding(0, 1)

	t.TopicOff = lipgloss.NewStyle().
		Foreground(TextMuted).
		Padding(0, 1)

	t.InputHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Welcome and loading
	t.WelcomeTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Brand).
		MarginBottom(1)

	t.WelcomeText = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Brand)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextSecondary)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, sidebar hidden
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
