// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// BRAND COLORS
// =============================================================================

// Brand - Title, buttons, active selection
var Brand = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#3B82F6"}

// BrandDeep - Darker brand for selected backgrounds
var BrandDeep = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#1E3A8A"}

// Accent - Topic toggles and focus
var Accent = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose - Errors
var Rose = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#FCA5A5"}

// RoseBg - Error banner background
var RoseBg = lipgloss.AdaptiveColor{Light: "#FEE2E2", Dark: "#450A0A"}

// Emerald - Positive states
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// Surface - Main background
var Surface = lipgloss.AdaptiveColor{Light: "#F7F7F8", Dark: "#121212"}

// SurfaceDim - Sidebar and header background
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#EEEEF0", Dark: "#1A1A1A"}

// Overlay - Borders and separators
var Overlay = lipgloss.AdaptiveColor{Light: "#D4D4D8", Dark: "#2E2E2E"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F3F4F6"}

// TextSecondary - Labels
var TextSecondary = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}

// TextMuted - Hints
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}

// TextInverse - Text on brand backgrounds
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}

// =============================================================================
// MESSAGE BUBBLE COLORS
// =============================================================================

// User message bubble - brand blue
var UserBubbleBg = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#2563EB"}
var UserBubbleFg = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}

// Assistant message bubble - neutral surface
var AssistantBubbleBorder = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#374151"}
var AssistantFg = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"}
