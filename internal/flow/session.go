// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package flow

import (
	"time"

	"github.com/google/uuid"
)

// Session is one attempt to authenticate a user across all three factors.
// Only the Controller mutates it; readers get copies through Snapshot.
type Session struct {
	ID        string
	Stage     Stage
	StartedAt time.Time

	// LastError is the failure of the most recent attempt on Stage, or nil.
	LastError *Error

	busy bool
}

func newSession(start Stage) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Stage:     start,
		StartedAt: time.Now(),
	}
}

// Busy reports whether an attempt is in flight.
func (s *Session) Busy() bool { return s.busy }

// Status is Stage, except that it reports StageFailed while the last attempt
// on the current stage failed and nothing new is in flight.
func (s *Session) Status() Stage {
	if s.LastError != nil && !s.busy && s.Stage != StageSucceeded {
		return StageFailed
	}
	return s.Stage
}

// Control is the state of the current stage's trigger.
type Control struct {
	Label   string
	Enabled bool
	// Active is set while the voice request runs; the service is listening.
	Active bool
}

// Snapshot is an immutable view of the flow for presentation.
type Snapshot struct {
	SessionID string
	Stage     Stage
	Status    Stage
	View      View
	Title     string
	Busy      bool
	Control   Control
	Banner    string
	// BannerExpires is when Banner hides; zero while no banner is shown.
	BannerExpires time.Time
	LastError     *Error
	CameraActive  bool
	Elapsed       time.Duration
}

// Done reports whether the flow reached its terminal stage.
func (s Snapshot) Done() bool { return s.Stage == StageSucceeded }
