// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package auth provides the Bubble Tea program that presents the
authentication flow.

The model owns no flow state. It renders the latest flow.Snapshot and turns
key presses into controller actions that run as tea.Cmds, off the UI loop.

# Snapshot Bridge (bridge.go)

The controller publishes snapshots from whichever goroutine made a change.
Bridge keeps the most recent one and wakes a waiting tea.Cmd, so the
controller never blocks on the UI and intermediate snapshots coalesce.

# Views (view.go)

  - PIN: masked input and the Proceed trigger
  - Face: camera preview and the Verify Identity trigger
  - Voice: the Begin Voice Authentication trigger and a listening indicator
  - Success: the terminal view

Every view shares the stepper, the error banner and the key help.

# Usage

	bridge := auth.NewBridge()
	ctrl := flow.NewController(client, manager, flow.WithObserver(bridge.Observe))
	m := auth.New(auth.Options{Flow: ctrl, Bridge: bridge, Theme: theme, Preview: preview})
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
*/
package auth
