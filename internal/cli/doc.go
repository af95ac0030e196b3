// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the command handlers for
// trifactor.
//
// # Key Types
//
//   - Command: enumeration of the available commands
//   - Args: parsed global and command flags
//   - Runtime: the services a command runs against (config, logger,
//     metrics, journal, verification client, camera platform)
//
// # Usage
//
//	cmd, args, err := cli.Parse(os.Args[1:])
//	if err != nil {
//	    return err
//	}
//	switch cmd {
//	case cli.CmdTUI:
//	    return cli.HandleTUI(ctx, rt, args)
//	// ... other commands
//	}
//
// # Commands Overview
//
//   - tui (default): interactive three-step authentication
//   - auth: the same flow in line mode
//   - doctor: concurrent health checks
//   - config: show, get and set configuration
//   - history: recent verification attempts from the journal
//   - version, help
//
// doctor, config and history support --json.
package cli
