// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/trifactor-tui/internal/flow"
	"github.com/jeranaias/trifactor-tui/internal/ui/components"
	"github.com/jeranaias/trifactor-tui/internal/ui/styles"
)

// =============================================================================
// FLOW
// =============================================================================

// Flow is the controller surface the UI drives. *flow.Controller
// implements it.
type Flow interface {
	Start(ctx context.Context)
	SubmitPIN(ctx context.Context, pin string)
	CaptureFace(ctx context.Context)
	StartVoice(ctx context.Context)
	Teardown()
	Snapshot() flow.Snapshot
}

// actionDoneMsg reports that a controller action returned.
type actionDoneMsg struct {
	Stage flow.Stage
}

// =============================================================================
// MODEL
// =============================================================================

// Options configures the model.
type Options struct {
	Flow    Flow
	Bridge  *Bridge
	Theme   *styles.Theme
	Preview *components.Preview
	Keys    *KeyMap
	// Context bounds every controller action. Quitting cancels it.
	Context context.Context
}

// Model is the Bubble Tea model for the authentication screens.
type Model struct {
	flow    Flow
	bridge  *Bridge
	theme   *styles.Theme
	preview *components.Preview
	keys    KeyMap
	help    help.Model

	ctx    context.Context
	cancel context.CancelFunc

	input   textinput.Model
	spinner components.Spinner

	snap     flow.Snapshot
	width    int
	height   int
	quitting bool
}

// New creates the model.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	bridge := opts.Bridge
	if bridge == nil {
		bridge = NewBridge()
	}
	keys := DefaultKeyMap()
	if opts.Keys != nil {
		keys = *opts.Keys
	}
	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	ti := textinput.New()
	ti.Prompt = "PIN > "
	ti.Placeholder = "enter your PIN"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.CharLimit = 64
	ti.Width = 24
	ti.PromptStyle = theme.InputPrompt

	sp := components.NewSpinner()

	m := Model{
		flow:    opts.Flow,
		bridge:  bridge,
		theme:   theme,
		preview: opts.Preview,
		keys:    keys,
		help:    help.New(),
		ctx:     ctx,
		cancel:  cancel,
		input:   ti,
		spinner: sp,
		snap:    opts.Flow.Snapshot(),
	}
	if m.snap.Stage == flow.StagePIN {
		m.input.Focus()
	}
	return m
}

// Snapshot returns the flow state the model last rendered.
func (m Model) Snapshot() flow.Snapshot { return m.snap }

// Init starts the session, the snapshot listener and the redraw tick.
func (m Model) Init() tea.Cmd {
	f, ctx := m.flow, m.ctx
	start := func() tea.Msg {
		f.Start(ctx)
		return nil
	}
	return tea.Batch(start, m.bridge.Wait(), textinput.Blink, components.PreviewTickCmd())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.help.Width = msg.Width
		return m, nil

	case SnapshotMsg:
		cmd := m.applySnapshot(msg.Snapshot)
		return m, tea.Batch(cmd, m.bridge.Wait())

	case actionDoneMsg:
		return m, nil

	case components.PreviewTickMsg:
		if m.quitting {
			return m, nil
		}
		return m, components.PreviewTickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.snap.Stage == flow.StagePIN {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Submit):
		if m.snap.Done() {
			return m.quit()
		}
		return m, m.trigger()
	}

	if m.snap.Stage == flow.StagePIN {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// trigger dispatches the current stage's action. Presses while busy are
// still dispatched; the controller drops them.
func (m Model) trigger() tea.Cmd {
	f, ctx, stage := m.flow, m.ctx, m.snap.Stage
	pin := m.input.Value()

	return func() tea.Msg {
		switch stage {
		case flow.StagePIN:
			f.SubmitPIN(ctx, pin)
		case flow.StageFace:
			f.CaptureFace(ctx)
		case flow.StageVoice:
			f.StartVoice(ctx)
		}
		return actionDoneMsg{Stage: stage}
	}
}

// applySnapshot adopts s and returns follow-up commands.
func (m *Model) applySnapshot(s flow.Snapshot) tea.Cmd {
	prev := m.snap
	m.snap = s

	var cmds []tea.Cmd
	if s.Busy {
		switch {
		case s.Control.Active:
			// The service is recording; show how long it has been listening.
			m.spinner.SetStyle(components.SpinnerPulse)
			m.spinner.SetShowTimer(true)
			m.spinner.SetMessage(components.ListeningLabel)
		case s.Stage == flow.StageFace:
			m.spinner.SetStyle(components.SpinnerDots)
			m.spinner.SetShowTimer(false)
			m.spinner.SetMessage("Processing")
		default:
			m.spinner.SetStyle(components.SpinnerLine)
			m.spinner.SetShowTimer(false)
			m.spinner.SetMessage("Processing")
		}
		cmds = append(cmds, m.spinner.Start())
	} else {
		m.spinner.Stop()
	}

	if prev.Stage == flow.StagePIN && s.Stage != flow.StagePIN {
		m.input.Reset()
		m.input.Blur()
	}
	if s.Stage == flow.StagePIN && !m.input.Focused() {
		cmds = append(cmds, m.input.Focus())
	}
	return tea.Batch(cmds...)
}

// quit tears the session down. The camera is released before the program
// exits.
func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}
	m.quitting = true
	m.cancel()
	m.flow.Teardown()
	m.bridge.Close()
	m.spinner.Stop()
	return m, tea.Quit
}
