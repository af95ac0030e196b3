// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/trifactor-tui/internal/capture"
	"github.com/jeranaias/trifactor-tui/internal/flow"
	"github.com/jeranaias/trifactor-tui/internal/ui/auth"
	"github.com/jeranaias/trifactor-tui/internal/ui/components"
	"github.com/jeranaias/trifactor-tui/internal/ui/styles"
)

// HandleTUI runs the interactive flow. It returns ErrIncomplete when the
// user quits before the last factor is verified.
func HandleTUI(ctx context.Context, rt *Runtime, args Args) error {
	if err := RequiresTTY("run the interactive flow"); err != nil {
		return fmt.Errorf("%w (use 'trifactor auth' for line mode)", err)
	}

	cfg := rt.Config
	theme := styles.NewTheme(cfg.UI.Theme)
	preview := components.NewPreview(cfg.UI.PreviewWidth, cfg.UI.PreviewHeight)

	camera := rt.NewCamera(capture.WithPreview(preview))
	defer camera.Close()

	bridge := auth.NewBridge()
	ctrl := rt.NewController(camera,
		flow.WithObserver(bridge.Observe),
		flow.WithStartStage(args.Stage))
	defer ctrl.Teardown()

	rt.StartMetrics(ctx)

	model := auth.New(auth.Options{
		Flow:    ctrl,
		Bridge:  bridge,
		Theme:   theme,
		Preview: preview,
		Context: ctx,
	})
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		rt.Logger.Error("terminal program failed", zap.Error(err))
		return fmt.Errorf("tui: %w", err)
	}

	if ctrl.Snapshot().Done() {
		fmt.Fprintln(rt.Out, styles.RenderSuccess("Authenticated: all three factors verified"))
		return nil
	}
	return ErrIncomplete
}
