// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// THEME CREATION TESTS
// =============================================================================

func TestNewTheme_ExplicitModes(t *testing.T) {
	dark := NewTheme("dark")
	if !dark.IsDark {
		t.Error("NewTheme(dark) should be dark")
	}
	if !lipgloss.HasDarkBackground() {
		t.Error("dark theme should set lipgloss dark background")
	}

	light := NewTheme("LIGHT")
	if light.IsDark {
		t.Error("NewTheme(LIGHT) should be light")
	}
	if lipgloss.HasDarkBackground() {
		t.Error("light theme should clear lipgloss dark background")
	}
}

func TestThemeInitStyles(t *testing.T) {
	theme := NewTheme("dark")

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"Sidebar", theme.Sidebar},
		{"UserBubble", theme.UserBubble},
		{"AssistantBubble", theme.AssistantBubble},
		{"InputContainer", theme.InputContainer},
		{"ErrorBanner", theme.ErrorBanner},
		{"Button", theme.Button},
	}

	for _, s := range styles {
		if rendered := s.style.Render("test"); rendered == "" {
			t.Errorf("%s style should be initialized", s.name)
		}
	}
}

// =============================================================================
// TOGGLE TESTS
// =============================================================================

func TestToggle(t *testing.T) {
	theme := NewTheme("light")

	theme.Toggle()
	if !theme.IsDark || theme.Mode() != ModeDark {
		t.Fatalf("after one toggle: IsDark=%v Mode=%q", theme.IsDark, theme.Mode())
	}
	if theme.GlamourStyle() != "dark" {
		t.Errorf("GlamourStyle() = %q, want dark", theme.GlamourStyle())
	}

	theme.Toggle()
	if theme.IsDark || theme.Mode() != ModeLight {
		t.Fatalf("after two toggles: IsDark=%v Mode=%q", theme.IsDark, theme.Mode())
	}
	if theme.GlamourStyle() != "light" {
		t.Errorf("GlamourStyle() = %q, want light", theme.GlamourStyle())
	}
}

// =============================================================================
// LAYOUT TESTS
// =============================================================================

func TestGetLayoutMode(t *testing.T) {
	theme := NewTheme("dark")
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
		{200, LayoutWide},
	}
	for _, tt := range tests {
		theme.SetSize(tt.width, 30)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("width %d: GetLayoutMode() = %v, want %v", tt.width, got, tt.want)
		}
	}
}
