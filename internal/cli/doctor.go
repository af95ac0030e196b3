// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - System health checks.
//
// Command: doctor
// Short:   Check config, service, camera and journal
// Aliases: diag
//
// Examples:
//   trifactor doctor          Run all checks
//   trifactor doctor --json   Machine-readable results
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/trifactor-tui/internal/capture"
	"github.com/jeranaias/trifactor-tui/internal/config"
	"github.com/jeranaias/trifactor-tui/internal/journal"
	"github.com/jeranaias/trifactor-tui/internal/logging"
)

// CheckStatus is the result level of one check.
type CheckStatus string

const (
	CheckOK   CheckStatus = "ok"
	CheckWarn CheckStatus = "warning"
	CheckFail CheckStatus = "fail"
)

// serviceCheckTimeout bounds the reachability check.
const serviceCheckTimeout = 3 * time.Second

// HealthCheck is one line of doctor output.
type HealthCheck struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
	Hint    string      `json:"hint,omitempty"`
}

// DoctorReport collects every check.
type DoctorReport struct {
	Checks   []HealthCheck `json:"checks"`
	Failed   int           `json:"failed"`
	Warnings int           `json:"warnings"`
}

// RunChecks runs the checks concurrently. cfgErr is the error from loading
// cfg, if any; cfg is still used so the remaining checks run on defaults.
func RunChecks(ctx context.Context, cfg *config.Config, cfgErr error) DoctorReport {
	if cfg == nil {
		cfg = config.Default()
	}
	checks := make([]HealthCheck, 4)

	checks[0] = checkConfig(cfg, cfgErr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		checks[1] = checkService(gctx, cfg)
		return nil
	})
	g.Go(func() error {
		checks[2] = checkCamera(gctx, cfg)
		return nil
	})
	g.Go(func() error {
		checks[3] = checkJournal(gctx, cfg)
		return nil
	})
	_ = g.Wait()

	report := DoctorReport{Checks: checks}
	for _, c := range checks {
		switch c.Status {
		case CheckFail:
			report.Failed++
		case CheckWarn:
			report.Warnings++
		}
	}
	return report
}

func checkConfig(cfg *config.Config, loadErr error) HealthCheck {
	hc := HealthCheck{Name: "Config"}
	if loadErr != nil {
		hc.Status = CheckFail
		hc.Message = loadErr.Error()
		hc.Hint = "Run 'trifactor config reset' to write defaults"
		return hc
	}
	if err := cfg.Validate(); err != nil {
		hc.Status = CheckFail
		hc.Message = err.Error()
		hc.Hint = "Fix the listed keys with 'trifactor config set'"
		return hc
	}
	hc.Status = CheckOK
	hc.Message = "valid"
	return hc
}

func checkService(ctx context.Context, cfg *config.Config) HealthCheck {
	rt, err := NewRuntimeWith(withoutJournal(cfg), "", logging.Nop())
	hc := HealthCheck{Name: "Service"}
	if err != nil {
		hc.Status = CheckFail
		hc.Message = err.Error()
		return hc
	}

	ctx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()
	if err := rt.Client.Ping(ctx); err != nil {
		hc.Status = CheckFail
		hc.Message = fmt.Sprintf("%s unreachable: %v", rt.Client.BaseURL(), err)
		hc.Hint = "Start the verification service or set service.url"
		return hc
	}
	hc.Status = CheckOK
	hc.Message = rt.Client.BaseURL() + " reachable"
	return hc
}

func checkCamera(ctx context.Context, cfg *config.Config) HealthCheck {
	hc := HealthCheck{Name: "Camera"}
	rt, err := NewRuntimeWith(withoutJournal(cfg), "", logging.Nop())
	if err != nil {
		hc.Status = CheckFail
		hc.Message = err.Error()
		hc.Hint = "Set camera.backend to command, file or none"
		return hc
	}

	cam := rt.NewCamera()
	defer cam.Close()

	h, err := cam.AcquireCamera(ctx)
	if err != nil {
		if errors.Is(err, capture.ErrNoCamera) {
			hc.Status = CheckWarn
			hc.Message = "no camera configured; face step cannot pass"
			hc.Hint = "Set camera.backend to command or file"
			return hc
		}
		hc.Status = CheckFail
		hc.Message = err.Error()
		hc.Hint = "Check camera.device and camera.open_timeout_secs"
		if cc, ok := rt.Platform.(*capture.CommandCamera); ok {
			hc.Hint = "Check camera.command: " + strings.Join(cc.Argv(), " ")
		}
		return hc
	}
	defer cam.Release(h)

	blob, err := cam.CaptureStillImage(h)
	if err != nil {
		hc.Status = CheckFail
		hc.Message = "capture failed: " + err.Error()
		return hc
	}
	hc.Status = CheckOK
	hc.Message = fmt.Sprintf("%dx%d frame, %d bytes", blob.Width, blob.Height, blob.Len())
	return hc
}

func checkJournal(ctx context.Context, cfg *config.Config) HealthCheck {
	hc := HealthCheck{Name: "Journal"}
	if !cfg.Journal.Enabled {
		hc.Status = CheckOK
		hc.Message = "disabled"
		return hc
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		hc.Status = CheckWarn
		hc.Message = err.Error()
		hc.Hint = "Attempts will not be recorded; check journal.path"
		return hc
	}
	defer j.Close()
	if err := j.Ping(ctx); err != nil {
		hc.Status = CheckWarn
		hc.Message = err.Error()
		return hc
	}
	hc.Status = CheckOK
	hc.Message = j.Path()
	return hc
}

func withoutJournal(cfg *config.Config) *config.Config {
	c := cfg.Clone()
	c.Journal.Enabled = false
	return c
}

// HandleDoctor runs the checks and prints the report. It fails when any
// check failed.
func HandleDoctor(ctx context.Context, args Args, out io.Writer) error {
	cfg, _, cfgErr := LoadConfig(args.ConfigPath)
	report := RunChecks(ctx, cfg, cfgErr)

	if args.JSON {
		resp := NewJSONResponse(CmdDoctor.String(), report)
		if report.Failed > 0 {
			msg := fmt.Sprintf("%d check(s) failed", report.Failed)
			resp.Success = false
			resp.Error = &msg
		}
		if err := resp.Write(out); err != nil {
			return err
		}
	} else {
		printReport(out, report)
	}

	if report.Failed > 0 {
		return fmt.Errorf("%d check(s) failed", report.Failed)
	}
	return nil
}

func printReport(out io.Writer, report DoctorReport) {
	fmt.Fprintln(out, TitleStyle.Render("trifactor doctor"))
	fmt.Fprintln(out, RenderSeparator(40))
	for _, c := range report.Checks {
		fmt.Fprintf(out, "%s %s %s\n", RenderStatus(string(c.Status)), RenderLabel(c.Name), ValueStyle.Render(c.Message))
		if c.Hint != "" && c.Status != CheckOK {
			fmt.Fprintln(out, DimStyle.Render("    "+c.Hint))
		}
	}
	fmt.Fprintln(out, RenderSeparator(40))
	switch {
	case report.Failed > 0:
		fmt.Fprintln(out, ErrorStyle.Render(fmt.Sprintf("%d failed, %d warning(s)", report.Failed, report.Warnings)))
	case report.Warnings > 0:
		fmt.Fprintln(out, WarningStyle.Render(fmt.Sprintf("All checks passed with %d warning(s)", report.Warnings)))
	default:
		fmt.Fprintln(out, SuccessStyle.Render("All checks passed"))
	}
}
