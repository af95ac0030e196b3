// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// FRAME
	// ==========================================================================

	App      lipgloss.Style
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Footer   lipgloss.Style
	KeyName  lipgloss.Style
	Muted    lipgloss.Style

	// ==========================================================================
	// STEPPER
	// ==========================================================================

	StepDone    lipgloss.Style
	StepCurrent lipgloss.Style
	StepPending lipgloss.Style
	StepFailed  lipgloss.Style

	// ==========================================================================
	// CONTROLS
	// ==========================================================================

	Button         lipgloss.Style
	ButtonDisabled lipgloss.Style
	ButtonBusy     lipgloss.Style
	InputPrompt    lipgloss.Style
	Spinner        lipgloss.Style
	Listening      lipgloss.Style

	// ==========================================================================
	// BANNER / PREVIEW / RESULT
	// ==========================================================================

	Banner       lipgloss.Style
	BannerTimer  lipgloss.Style
	PreviewFrame lipgloss.Style
	PreviewEmpty lipgloss.Style
	Success      lipgloss.Style
}

// NewTheme creates a theme. name is "dark", "light" or "auto"; auto asks the
// terminal for its background.
func NewTheme(name string) *Theme {
	colorProfile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(name) {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle().Padding(1, 2)

	t.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Subtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.Footer = lipgloss.NewStyle().
		Foreground(TextMuted).
		MarginTop(1)

	t.KeyName = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)

	// Stepper
	t.StepDone = lipgloss.NewStyle().Foreground(Emerald)
	t.StepCurrent = lipgloss.NewStyle().Bold(true).Foreground(Purple).Underline(true)
	t.StepPending = lipgloss.NewStyle().Foreground(TextMuted)
	t.StepFailed = lipgloss.NewStyle().Bold(true).Foreground(Rose)

	// Controls
	button := lipgloss.NewStyle().
		Padding(0, 2).
		BorderStyle(lipgloss.RoundedBorder())
	t.Button = button.
		Bold(true).
		Foreground(Cyan).
		BorderForeground(Cyan)
	t.ButtonDisabled = button.
		Foreground(TextMuted).
		BorderForeground(OverlayDim)
	t.ButtonBusy = button.
		Foreground(Amber).
		BorderForeground(Amber)

	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.Spinner = lipgloss.NewStyle().Foreground(Amber)
	t.Listening = lipgloss.NewStyle().Bold(true).Foreground(Rose)

	// Banner
	t.Banner = lipgloss.NewStyle().
		Foreground(Rose).
		Background(RoseDeep).
		Bold(true).
		Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Rose)
	t.BannerTimer = lipgloss.NewStyle().Foreground(TextMuted)

	// Preview
	t.PreviewFrame = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay)
	t.PreviewEmpty = lipgloss.NewStyle().
		Foreground(TextMuted).
		Align(lipgloss.Center, lipgloss.Center)

	t.Success = lipgloss.NewStyle().
		Bold(true).
		Foreground(Emerald).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Emerald).
		Padding(1, 4)
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
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // >= 100 columns
)
