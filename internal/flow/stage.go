// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package flow

import (
	"fmt"
	"strings"

	"github.com/jeranaias/trifactor-tui/internal/verify"
)

// Stage is a position in the factor sequence.
type Stage int

const (
	StagePIN Stage = iota
	StageFace
	StageVoice
	StageSucceeded
	// StageFailed is only ever reported by Session.Status. A session never
	// sits in it; the user may always retry the current stage.
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StagePIN:
		return "pin"
	case StageFace:
		return "face"
	case StageVoice:
		return "voice"
	case StageSucceeded:
		return "succeeded"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseStage accepts the names a user may pass on the command line to open
// the flow at a later view.
func ParseStage(s string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pin":
		return StagePIN, nil
	case "face":
		return StageFace, nil
	case "voice":
		return StageVoice, nil
	default:
		return StagePIN, fmt.Errorf("unknown stage %q (want pin, face or voice)", s)
	}
}

// View names the screen that presents a stage.
type View string

const (
	ViewPIN     View = "pin"
	ViewFace    View = "face"
	ViewVoice   View = "voice"
	ViewSuccess View = "success"
)

// Default control labels.
const (
	LabelProceed    = "Proceed"
	LabelVerify     = "Verify Identity"
	LabelVoice      = "Begin Voice Authentication"
	LabelProcessing = "Processing..."
)

// StageDescriptor is the static configuration of one stage.
type StageDescriptor struct {
	Stage Stage
	Title string
	// Label is the trigger's text while idle.
	Label string
	// RequiresCapture is set when the stage needs a camera handle.
	RequiresCapture bool
	// Endpoint selects the remote call. Unused for StageSucceeded.
	Endpoint verify.Stage
	View     View
	Next     Stage
}

var descriptors = [...]StageDescriptor{
	StagePIN: {
		Stage:    StagePIN,
		Title:    "Step 1 of 3: PIN",
		Label:    LabelProceed,
		Endpoint: verify.StagePIN,
		View:     ViewPIN,
		Next:     StageFace,
	},
	StageFace: {
		Stage:           StageFace,
		Title:           "Step 2 of 3: Face",
		Label:           LabelVerify,
		RequiresCapture: true,
		Endpoint:        verify.StageFace,
		View:            ViewFace,
		Next:            StageVoice,
	},
	StageVoice: {
		Stage:    StageVoice,
		Title:    "Step 3 of 3: Voice",
		Label:    LabelVoice,
		Endpoint: verify.StageVoice,
		View:     ViewVoice,
		Next:     StageSucceeded,
	},
	StageSucceeded: {
		Stage: StageSucceeded,
		Title: "Authenticated",
		View:  ViewSuccess,
		Next:  StageSucceeded,
	},
}

// Describe returns the descriptor for s. StageFailed has none and yields
// the zero descriptor with ok false.
func Describe(s Stage) (StageDescriptor, bool) {
	if s < 0 || int(s) >= len(descriptors) {
		return StageDescriptor{}, false
	}
	return descriptors[s], true
}

// Stages returns the ordered factor stages.
func Stages() []StageDescriptor {
	return []StageDescriptor{descriptors[StagePIN], descriptors[StageFace], descriptors[StageVoice]}
}
