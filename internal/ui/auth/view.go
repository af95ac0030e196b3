// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/trifactor-tui/internal/flow"
	"github.com/jeranaias/trifactor-tui/internal/ui/components"
	"github.com/jeranaias/trifactor-tui/internal/ui/styles"
	"github.com/jeranaias/trifactor-tui/internal/util"
)

// defaultWidth is used until the terminal reports its size.
const defaultWidth = 72

// Stage instructions.
const (
	hintPIN     = "Enter your PIN and press Enter."
	hintFace    = "Look at the camera and press Enter to capture."
	hintNoCam   = "No camera stream. Press Enter to request the camera again."
	hintVoice   = "Press Enter, then speak your voice PIN when the service listens."
	successText = "Authentication complete"
	successHint = "All three factors verified. Press Enter to exit."
)

// View renders the model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	inner := width - 4

	sections := []string{
		m.theme.Title.Render("trifactor") + "  " + m.theme.Subtitle.Render(m.snap.Title),
		components.RenderStepper(m.theme, m.snap),
		"",
		m.body(inner),
	}

	if ctl := components.RenderControl(m.theme, m.snap.Control, m.spinner.View()); ctl != "" {
		sections = append(sections, "", ctl)
	}

	if m.snap.Banner != "" {
		remaining := time.Duration(0)
		if !m.snap.BannerExpires.IsZero() {
			remaining = time.Until(m.snap.BannerExpires)
		}
		sections = append(sections, "", components.RenderBanner(m.theme, m.snap.Banner, remaining, inner))
	}

	sections = append(sections, m.footer(inner))
	return m.theme.App.Render(strings.Join(sections, "\n"))
}

func (m Model) body(width int) string {
	switch m.snap.View {
	case flow.ViewPIN:
		return m.hint(hintPIN, width) + "\n\n" + m.input.View()

	case flow.ViewFace:
		var parts []string
		if m.preview != nil {
			parts = append(parts, m.preview.View(m.theme))
		}
		if m.snap.CameraActive {
			parts = append(parts, m.hint(hintFace, width))
		} else {
			parts = append(parts, m.hint(hintNoCam, width))
		}
		return strings.Join(parts, "\n")

	case flow.ViewVoice:
		return m.hint(hintVoice, width)

	case flow.ViewSuccess:
		return m.theme.Success.Render(styles.StatusIndicators.Success+" "+successText) +
			"\n\n" + m.hint(successHint, width)
	}
	return ""
}

func (m Model) hint(text string, width int) string {
	return m.theme.Muted.Render(strings.Join(util.WrapWidth(text, width), "\n"))
}

func (m Model) footer(width int) string {
	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	session := m.theme.Muted.Render("session " + util.TruncateWidth(m.snap.SessionID, 11))

	gap := width - lipgloss.Width(helpView) - lipgloss.Width(session)
	if gap < 2 {
		return m.theme.Footer.Render(helpView)
	}
	return m.theme.Footer.Render(helpView + strings.Repeat(" ", gap) + session)
}
