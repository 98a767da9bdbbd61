// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the niti TUI.

# Color System (colors.go)

All colors are Lip Gloss AdaptiveColor values, so one palette serves both
dark and light terminals:

	Brand         - Accent for the title, buttons and the active chat
	UserBubbleBg  - Background for user messages
	AssistantFg   - Text color for assistant messages
	Surface       - Main background
	TextMuted     - Hints and de-emphasized text

# Theme System (theme.go)

The Theme struct owns every style used by the components. Its initial mode
comes from the config ("auto" asks the terminal through termenv) and can be
flipped at runtime:

	theme := styles.NewTheme("auto")
	theme.Toggle()
	renderer := glamour.NewTermRenderer(glamour.WithStandardStyle(theme.GlamourStyle()))
*/
package styles
