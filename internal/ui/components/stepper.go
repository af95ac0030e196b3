// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/trifactor-tui/internal/flow"
	"github.com/jeranaias/trifactor-tui/internal/ui/styles"
)

var stepNames = map[flow.Stage]string{
	flow.StagePIN:   "PIN",
	flow.StageFace:  "Face",
	flow.StageVoice: "Voice",
}

// StepState is how one stage appears in the stepper.
type StepState int

const (
	StepPending StepState = iota
	StepCurrent
	StepFailed
	StepDone
)

// StepStates derives the per-stage state from a snapshot.
func StepStates(snap flow.Snapshot) []StepState {
	stages := flow.Stages()
	out := make([]StepState, len(stages))
	for i, d := range stages {
		switch {
		case snap.Stage == flow.StageSucceeded || d.Stage < snap.Stage:
			out[i] = StepDone
		case d.Stage == snap.Stage && snap.Status == flow.StageFailed:
			out[i] = StepFailed
		case d.Stage == snap.Stage:
			out[i] = StepCurrent
		default:
			out[i] = StepPending
		}
	}
	return out
}

// RenderStepper renders the stage progress line, for example
// "[OK] PIN > [*] Face > [ ] Voice".
func RenderStepper(theme *styles.Theme, snap flow.Snapshot) string {
	stages := flow.Stages()
	states := StepStates(snap)
	sep := theme.Muted.Render(" > ")

	parts := make([]string, len(stages))
	for i, d := range stages {
		name := stepNames[d.Stage]
		switch states[i] {
		case StepDone:
			parts[i] = theme.StepDone.Render(styles.StatusIndicators.Success + " " + name)
		case StepFailed:
			parts[i] = theme.StepFailed.Render(styles.StatusIndicators.Error + " " + name)
		case StepCurrent:
			parts[i] = theme.StepCurrent.Render(styles.StatusIndicators.Active + " " + name)
		default:
			parts[i] = theme.StepPending.Render(styles.StatusIndicators.Pending + " " + name)
		}
	}
	return strings.Join(parts, sep)
}
