// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/trifactor-tui/internal/ui/styles"
)

// =============================================================================
// SPINNER MODEL
// =============================================================================

// Spinner is a loading spinner with an elapsed timer.
type Spinner struct {
	spinner spinner.Model

	message   string
	startTime time.Time
	isActive  bool
	showTimer bool
}

// SpinnerStyle selects the animation frames.
type SpinnerStyle int

const (
	SpinnerLine  SpinnerStyle = iota // | / - \
	SpinnerDots                      // growing dots
	SpinnerPulse                     // ( ) (o) (O)
)

// NewSpinner creates a spinner with ASCII frames.
func NewSpinner() Spinner {
	s := Spinner{
		spinner:   spinner.New(),
		message:   "Processing",
		showTimer: true,
	}
	s.SetStyle(SpinnerLine)
	return s
}

// SetStyle changes the animation frames.
func (s *Spinner) SetStyle(style SpinnerStyle) {
	switch style {
	case SpinnerDots:
		s.spinner.Spinner = spinner.Spinner{
			Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
			FPS:    time.Second / 6,
		}
	case SpinnerPulse:
		s.spinner.Spinner = spinner.Spinner{
			Frames: []string{"( )", "(o)", "(O)", "(o)"},
			FPS:    time.Second / 8,
		}
	default:
		s.spinner.Spinner = spinner.Spinner{
			Frames: []string{"|", "/", "-", "\\"},
			FPS:    time.Second / 10,
		}
	}
}

// SetMessage sets the text displayed next to the spinner.
func (s *Spinner) SetMessage(msg string) { s.message = msg }

// SetShowTimer enables or disables the elapsed time display.
func (s *Spinner) SetShowTimer(show bool) { s.showTimer = show }

// =============================================================================
// STATE MANAGEMENT
// =============================================================================

// Start activates the spinner and records the start time. Starting an
// active spinner keeps its original start time and returns nil.
func (s *Spinner) Start() tea.Cmd {
	if s.isActive {
		return nil
	}
	s.isActive = true
	s.startTime = time.Now()
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() { s.isActive = false }

// IsActive returns whether the spinner is running.
func (s *Spinner) IsActive() bool { return s.isActive }

// Elapsed returns the time since Start.
func (s *Spinner) Elapsed() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update advances the animation. Ticks arriving while stopped are dropped,
// which ends the tick loop.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.isActive {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner, or nothing while stopped.
func (s Spinner) View() string {
	if !s.isActive {
		return ""
	}

	result := lipgloss.NewStyle().Foreground(styles.Amber).Render(s.spinner.View()) +
		" " + lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(s.message)

	if s.showTimer && !s.startTime.IsZero() {
		result += lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render(" (" + formatElapsed(s.Elapsed()) + ")")
	}
	return result
}

func formatElapsed(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}
