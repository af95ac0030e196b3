// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI pieces for the trifactor TUI.

Each component renders from plain values and a *styles.Theme so the views in
package auth stay thin.

# Components

  - Stepper (stepper.go) - progress across the PIN, Face and Voice stages.
  - RenderControl (control.go) - the current stage's trigger.
  - RenderBanner (banner.go) - the shared error banner with its countdown.
  - Preview (preview.go) - the camera preview surface. It implements
    capture.Preview so the capture manager binds streams to it directly.
  - Spinner (spinner.go) - ASCII spinner shown while an attempt is in flight.

# Usage

	theme := styles.NewTheme("auto")
	preview := components.NewPreview(48, 18)
	manager := capture.NewManager(platform, capture.WithPreview(preview))
	...
	view := preview.View(theme)
*/
package components
