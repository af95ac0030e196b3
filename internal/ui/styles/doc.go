// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the trifactor TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Purple - Primary accent, the current stage
  - Cyan - Brand color, hints and key names
  - Emerald - Completed stages and the success view
  - Amber - Processing state
  - Rose - The error banner

Status indicators are ASCII ([OK], [X], [!]) so results stay readable
without color.

# Theme System (theme.go)

	theme := styles.NewTheme("auto")
	if theme.HasTrueColor {
		// the camera preview can use 24-bit color
	}
*/
package styles
