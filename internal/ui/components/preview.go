// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"github.com/jeranaias/trifactor-tui/internal/capture"
	"github.com/jeranaias/trifactor-tui/internal/ui/styles"
)

// =============================================================================
// PREVIEW SURFACE
// =============================================================================

// PreviewInterval is how often a bound preview redraws.
const PreviewInterval = 125 * time.Millisecond

// Preview placeholder texts.
const (
	PreviewOff      = "Camera off"
	PreviewStarting = "Starting camera..."
)

// asciiRamp maps luminance to characters, dark to light.
const asciiRamp = " .:-=+*#%@"

// Preview shows a live camera stream in the terminal. Bind and Unbind are
// called by the capture manager from the flow's goroutines; View is called
// from the UI loop.
type Preview struct {
	mu     sync.Mutex
	stream capture.Stream
	width  int
	height int
}

// NewPreview creates a preview of width x height cells. Each cell shows two
// vertical pixels.
func NewPreview(width, height int) *Preview {
	p := &Preview{}
	p.SetSize(width, height)
	return p
}

// Bind attaches a stream.
func (p *Preview) Bind(s capture.Stream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stream = s
}

// Unbind detaches the stream.
func (p *Preview) Unbind() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stream = nil
}

// Bound reports whether a stream is attached.
func (p *Preview) Bound() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream != nil
}

// SetSize changes the preview dimensions in cells.
func (p *Preview) SetSize(width, height int) {
	if width < 4 {
		width = 4
	}
	if height < 2 {
		height = 2
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width, p.height = width, height
}

// Size returns the preview dimensions in cells.
func (p *Preview) Size() (width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

// View renders the current frame inside the preview frame.
func (p *Preview) View(theme *styles.Theme) string {
	p.mu.Lock()
	stream, width, height := p.stream, p.width, p.height
	p.mu.Unlock()

	placeholder := func(text string) string {
		return theme.PreviewFrame.Render(
			theme.PreviewEmpty.Width(width).Height(height).Render(text))
	}

	if stream == nil {
		return placeholder(PreviewOff)
	}
	frame, err := stream.Frame()
	if err != nil || frame == nil || frame.Bounds().Empty() {
		return placeholder(PreviewStarting)
	}
	return theme.PreviewFrame.Render(RenderFrame(frame, width, height, theme.ColorProfile))
}

// PreviewTickMsg asks the UI to redraw the preview.
type PreviewTickMsg struct {
	Time time.Time
}

// PreviewTickCmd schedules the next preview redraw.
func PreviewTickCmd() tea.Cmd {
	return tea.Tick(PreviewInterval, func(t time.Time) tea.Msg {
		return PreviewTickMsg{Time: t}
	})
}

// =============================================================================
// FRAME RENDERING
// =============================================================================

// RenderFrame scales img to width x height cells. Color profiles draw upper
// half blocks with the top pixel as foreground and the bottom pixel as
// background; the Ascii profile falls back to a luminance ramp.
func RenderFrame(img image.Image, width, height int, profile termenv.Profile) string {
	b := img.Bounds()
	rows := height * 2

	at := func(col, row int) (r, g, bl uint8) {
		x := b.Min.X + (col*b.Dx()+b.Dx()/2)/width
		y := b.Min.Y + (row*b.Dy()+b.Dy()/2)/rows
		cr, cg, cb, _ := img.At(x, y).RGBA()
		return uint8(cr >> 8), uint8(cg >> 8), uint8(cb >> 8)
	}

	var sb strings.Builder
	for cy := 0; cy < height; cy++ {
		if cy > 0 {
			sb.WriteByte('\n')
		}
		for cx := 0; cx < width; cx++ {
			tr, tg, tb := at(cx, cy*2)
			br, bg, bb := at(cx, cy*2+1)

			if profile == termenv.Ascii {
				l := (luminance(tr, tg, tb) + luminance(br, bg, bb)) / 2
				sb.WriteByte(asciiRamp[l*(len(asciiRamp)-1)/255])
				continue
			}
			sb.WriteString(profile.String("▀").
				Foreground(profile.Color(hexColor(tr, tg, tb))).
				Background(profile.Color(hexColor(br, bg, bb))).
				String())
		}
	}
	return sb.String()
}

// luminance returns perceived brightness in 0..255.
func luminance(r, g, b uint8) int {
	return (299*int(r) + 587*int(g) + 114*int(b)) / 1000
}

func hexColor(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
