// trifactor - Three-factor authentication client for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/trifactor-tui/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cmd, args, err := cli.Parse(argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		cli.PrintUsage(os.Stderr)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case cli.CmdTUI, cli.CmdAuth:
		err = runFlow(ctx, cmd, args)
	case cli.CmdDoctor:
		err = cli.HandleDoctor(ctx, args, os.Stdout)
	case cli.CmdConfig:
		err = cli.HandleConfig(args, os.Stdout)
	case cli.CmdHistory:
		err = cli.HandleHistory(ctx, args, os.Stdout)
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
	default:
		cli.PrintUsage(os.Stdout)
	}

	if err == nil {
		return 0
	}
	if args.JSON && cmd != cli.CmdDoctor {
		_ = cli.NewJSONErrorResponse(cmd.String(), err).Write(os.Stdout)
		return 1
	}
	if errors.Is(err, cli.ErrIncomplete) {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

// runFlow builds the runtime and runs the interactive or line-mode flow.
func runFlow(ctx context.Context, cmd cli.Command, args cli.Args) error {
	rt, err := cli.NewRuntime(args)
	if err != nil {
		return err
	}
	defer rt.Close()

	if cmd == cli.CmdAuth {
		return cli.HandleAuth(ctx, rt, args)
	}
	return cli.HandleTUI(ctx, rt, args)
}
