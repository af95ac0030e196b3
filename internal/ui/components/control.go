// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/jeranaias/trifactor-tui/internal/flow"
	"github.com/jeranaias/trifactor-tui/internal/ui/styles"
)

// ListeningLabel replaces the processing label while the voice service is
// recording.
const ListeningLabel = "Listening..."

// RenderControl renders a stage trigger. busy is the spinner view, drawn
// beside a busy control.
func RenderControl(theme *styles.Theme, c flow.Control, busy string) string {
	switch {
	case c.Enabled:
		return theme.Button.Render(c.Label)
	case c.Active:
		out := theme.ButtonBusy.Render(theme.Listening.Render("(o) ") + ListeningLabel)
		if busy != "" {
			out += "  " + busy
		}
		return out
	case c.Label == flow.LabelProcessing:
		out := theme.ButtonBusy.Render(c.Label)
		if busy != "" {
			out += "  " + busy
		}
		return out
	case c.Label == "":
		return ""
	default:
		return theme.ButtonDisabled.Render(c.Label)
	}
}
