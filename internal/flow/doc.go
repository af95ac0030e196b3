// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package flow drives the PIN, face and voice stages of one authentication
// session.
//
// A Controller owns exactly one Session. User actions (SubmitPIN,
// CaptureFace, StartVoice) are fire-and-forget: each claims the session
// guard, performs at most one remote call and publishes a Snapshot to the
// observer after every visible change. An action that finds the guard busy,
// or that does not belong to the current stage, does nothing.
//
// Failures never escape a Controller. Each one becomes a single banner
// message that hides itself after the banner duration.
package flow
