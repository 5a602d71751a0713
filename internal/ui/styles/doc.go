// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the terminal-agent TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Purple - Assistant messages and the title
  - Cyan - User highlights and the input prompt
  - Emerald - Success states
  - Amber - Warnings and retry notices
  - Rose - Errors

Each provider has a badge color: ProviderColor("openai") and so on.

# Theme (theme.go)

Theme bundles the lipgloss styles the chat view renders with:

	theme := styles.NewTheme()
	theme.UserBubble.Render("hello")
	theme.ProviderBadge("grok").Render("Grok")
*/
package styles
