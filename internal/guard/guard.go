// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package guard provides the re-entrancy lock that keeps at most one
// authentication step in flight per session.
//
// Callers that fail to enter must give up immediately; there is no queue.
//
//	if !g.TryEnter() {
//	    return // already busy, drop the action
//	}
//	defer g.Exit()
package guard

import "sync/atomic"

// Guard is a non-blocking busy flag. The zero value is ready to use.
type Guard struct {
	busy atomic.Bool

	// rejected counts TryEnter calls that found the guard busy.
	rejected atomic.Int64
}

// TryEnter marks the guard busy and returns true if it was free.
// It returns false with no side effect on the busy flag otherwise.
func (g *Guard) TryEnter() bool {
	if g.busy.CompareAndSwap(false, true) {
		return true
	}
	g.rejected.Add(1)
	return false
}

// Exit clears the busy flag. It must be called exactly once for every
// successful TryEnter; calling it on a free guard panics because that
// always indicates an unbalanced caller.
func (g *Guard) Exit() {
	if !g.busy.CompareAndSwap(true, false) {
		panic("guard: Exit called without a matching TryEnter")
	}
}

// Busy reports whether an attempt is currently in flight.
func (g *Guard) Busy() bool {
	return g.busy.Load()
}

// Rejected returns how many TryEnter calls were dropped because the guard
// was busy.
func (g *Guard) Rejected() int64 {
	return g.rejected.Load()
}
