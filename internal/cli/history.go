// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - Attempt journal listing.
//
// Command: history
// Short:   List recent verification attempts
// Aliases: log
//
// Examples:
//   trifactor history                 Last 20 attempts
//   trifactor history --limit 50      Last 50 attempts
//   trifactor history --session <id>  One session, oldest first
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jeranaias/trifactor-tui/internal/journal"
	"github.com/jeranaias/trifactor-tui/internal/util"
)

// ErrJournalDisabled is returned when the journal is turned off.
var ErrJournalDisabled = errors.New("journal is disabled (set journal.enabled = true)")

// HandleHistory prints journal entries.
func HandleHistory(ctx context.Context, args Args, out io.Writer) error {
	cfg, _, err := LoadConfig(args.ConfigPath)
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled {
		return ErrJournalDisabled
	}

	var attempts []journal.Attempt
	if _, statErr := os.Stat(cfg.Journal.Path); statErr == nil {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer j.Close()

		if args.Session != "" {
			attempts, err = j.Session(ctx, args.Session)
		} else {
			limit := args.Limit
			if limit <= 0 {
				limit = DefaultHistoryLimit
			}
			attempts, err = j.Recent(ctx, limit)
		}
		if err != nil {
			return err
		}
	}

	if args.JSON {
		if attempts == nil {
			attempts = []journal.Attempt{}
		}
		return NewJSONResponse(CmdHistory.String(), attempts).Write(out)
	}
	printHistory(out, attempts)
	return nil
}

func printHistory(out io.Writer, attempts []journal.Attempt) {
	if len(attempts) == 0 {
		fmt.Fprintln(out, DimStyle.Render("No attempts recorded."))
		return
	}

	fmt.Fprintln(out, TitleStyle.Render(fmt.Sprintf("%-19s  %-11s  %-6s  %-6s  %-8s  %s",
		"TIME", "SESSION", "STAGE", "RESULT", "LATENCY", "REASON")))
	for _, a := range attempts {
		result := RenderStatus("rejected")
		if a.Accepted {
			result = RenderStatus("ok")
		}
		fmt.Fprintf(out, "%-19s  %-11s  %-6s  %-6s  %-8s  %s\n",
			a.At.Local().Format("2006-01-02 15:04:05"),
			util.TruncateWidth(a.SessionID, 11),
			a.Stage,
			result,
			a.Latency.Round(time.Millisecond),
			a.Reason)
	}
}
