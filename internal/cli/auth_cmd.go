// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Line mode for the authentication flow.
//
// Command: auth
// Short:   Verify PIN, face and voice without the full-screen UI
//
// Examples:
//   trifactor auth                 Start at the PIN step
//   trifactor auth --stage voice   Start at the voice step
//
// The PIN is read without echo when stdin is a terminal. An empty line on
// the face or voice prompt runs the step; "q" quits.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jeranaias/trifactor-tui/internal/flow"
	"github.com/jeranaias/trifactor-tui/internal/ui/styles"
)

// HandleAuth runs the flow in line mode.
func HandleAuth(ctx context.Context, rt *Runtime, args Args) error {
	camera := rt.NewCamera()
	defer camera.Close()

	out := rt.Out
	// Every failure gets a fresh *flow.Error, so a repeated message from a
	// retry still prints. Calls are serialized by the controller.
	var lastErr *flow.Error
	observer := func(s flow.Snapshot) {
		if s.LastError != nil && s.LastError != lastErr && s.Banner != "" {
			fmt.Fprintln(out, styles.RenderError(s.Banner))
		}
		lastErr = s.LastError
	}
	navigator := flow.NavigatorFunc(func(v flow.View) {
		fmt.Fprintln(out)
		fmt.Fprintln(out, TitleStyle.Render(viewTitle(v)))
	})

	ctrl := rt.NewController(camera,
		flow.WithObserver(observer),
		flow.WithNavigator(navigator),
		flow.WithStartStage(args.Stage))
	defer ctrl.Teardown()

	rt.StartMetrics(ctx)
	ctrl.Start(ctx)

	reader := bufio.NewReader(rt.In)
	for {
		if err := ctx.Err(); err != nil {
			return ErrIncomplete
		}

		snap := ctrl.Snapshot()
		if snap.Done() {
			fmt.Fprintln(out, styles.RenderSuccess("Authenticated: all three factors verified"))
			return nil
		}

		switch snap.Stage {
		case flow.StagePIN:
			pin, err := rt.readSecret(reader, "PIN: ")
			if err != nil {
				return ErrIncomplete
			}
			ctrl.SubmitPIN(ctx, pin)

		case flow.StageFace:
			if !snap.CameraActive {
				fmt.Fprintln(out, DimStyle.Render("Camera not active; Enter requests it again."))
			}
			if !prompt(out, reader, "Look at the camera and press Enter (q to quit): ") {
				return ErrIncomplete
			}
			ctrl.CaptureFace(ctx)

		case flow.StageVoice:
			if !prompt(out, reader, "Press Enter, then speak your voice PIN (q to quit): ") {
				return ErrIncomplete
			}
			fmt.Fprintln(out, WarningStyle.Render("Listening..."))
			ctrl.StartVoice(ctx)
		}
	}
}

// prompt waits for a line. It returns false on EOF or "q".
func prompt(w io.Writer, r *bufio.Reader, text string) bool {
	fmt.Fprint(w, text)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(line), "q")
}

// readSecret reads a line without echo when In is a terminal.
func (r *Runtime) readSecret(reader *bufio.Reader, text string) (string, error) {
	fmt.Fprint(r.Out, text)
	if f, ok := r.In.(*os.File); ok && isTerminalFile(f) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(r.Out)
		return string(b), err
	}

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func viewTitle(v flow.View) string {
	for _, d := range flow.Stages() {
		if d.View == v {
			return d.Title
		}
	}
	if d, ok := flow.Describe(flow.StageSucceeded); ok && d.View == v {
		return d.Title
	}
	return string(v)
}
