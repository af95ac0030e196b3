// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/jeranaias/trifactor-tui/internal/capture"
	"github.com/jeranaias/trifactor-tui/internal/config"
	"github.com/jeranaias/trifactor-tui/internal/flow"
	"github.com/jeranaias/trifactor-tui/internal/journal"
	"github.com/jeranaias/trifactor-tui/internal/logging"
	"github.com/jeranaias/trifactor-tui/internal/metrics"
	"github.com/jeranaias/trifactor-tui/internal/verify"
)

// =============================================================================
// RUNTIME
// =============================================================================

// Runtime holds the services the flow commands run against.
type Runtime struct {
	Config     *config.Config
	ConfigPath string
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	// Journal is nil when disabled or when it could not be opened.
	Journal  *journal.Journal
	Client   *verify.Client
	Platform capture.Platform

	In  io.Reader
	Out io.Writer
	Err io.Writer

	stopMetrics context.CancelFunc
}

// LoadConfig loads the config at path, or the default location when path
// is empty. It returns the path that applies.
func LoadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.LoadFromPath(path)
		return cfg, path, err
	}
	p, _ := config.ConfigPath()
	cfg, err := config.Load()
	return cfg, p, err
}

// NewRuntime loads configuration and builds the services for args.
func NewRuntime(args Args) (*Runtime, error) {
	cfg, path, err := LoadConfig(args.ConfigPath)
	if err != nil {
		return nil, err
	}
	if args.Verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		logger = logging.Nop()
	}
	return NewRuntimeWith(cfg, path, logger)
}

// NewRuntimeWith builds the services from an already loaded config.
func NewRuntimeWith(cfg *config.Config, path string, logger *zap.Logger) (*Runtime, error) {
	logger = logging.OrNop(logger)

	platform, err := capture.NewPlatform(capture.PlatformConfig{
		Backend: cfg.Camera.Backend,
		Device:  cfg.Camera.Device,
		Command: cfg.Camera.Command,
		Image:   cfg.Camera.Image,
	})
	if err != nil {
		return nil, fmt.Errorf("camera: %w", err)
	}

	client := verify.NewClient(&verify.ClientConfig{
		BaseURL:      cfg.Service.URL,
		Timeout:      cfg.ServiceTimeout(),
		VoiceTimeout: cfg.VoiceTimeout(),
		PINPath:      cfg.Service.PINPath,
		FacePath:     cfg.Service.FacePath,
		VoicePath:    cfg.Service.VoicePath,
	}, verify.WithLogger(logger))

	rt := &Runtime{
		Config:     cfg,
		ConfigPath: path,
		Logger:     logger,
		Metrics:    metrics.New(),
		Client:     client,
		Platform:   platform,
		In:         os.Stdin,
		Out:        os.Stdout,
		Err:        os.Stderr,
	}

	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			// Attempts still run; they just are not recorded.
			logger.Warn("journal unavailable", zap.String("path", cfg.Journal.Path), zap.Error(err))
		} else {
			rt.Journal = j
		}
	}
	return rt, nil
}

// StartMetrics serves /metrics when an address is configured.
func (r *Runtime) StartMetrics(ctx context.Context) {
	addr := r.Config.Metrics.Addr
	if addr == "" || r.stopMetrics != nil {
		return
	}
	ctx, r.stopMetrics = context.WithCancel(ctx)
	go func() {
		if err := r.Metrics.Serve(ctx, addr); err != nil {
			r.Logger.Error("metrics endpoint failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	r.Logger.Info("metrics endpoint started", zap.String("addr", addr))
}

// NewCamera creates a capture manager over the configured platform.
func (r *Runtime) NewCamera(opts ...capture.Option) *capture.Manager {
	base := []capture.Option{
		capture.WithLogger(r.Logger),
		capture.WithMetrics(r.Metrics),
		capture.WithOpenTimeout(r.Config.CameraOpenTimeout()),
		capture.WithEncoder(capture.Encoder{
			Quality:         r.Config.Camera.JPEGQuality,
			MinPayloadBytes: r.Config.Camera.MinPayloadBytes,
		}),
	}
	return capture.NewManager(r.Platform, append(base, opts...)...)
}

// NewController wires a flow controller to the runtime's services.
func (r *Runtime) NewController(cam flow.Camera, opts ...flow.Option) *flow.Controller {
	base := []flow.Option{
		flow.WithLogger(r.Logger),
		flow.WithMetrics(r.Metrics),
		flow.WithBannerDuration(r.Config.BannerDuration()),
	}
	if r.Journal != nil {
		base = append(base, flow.WithJournal(r.Journal))
	}
	return flow.NewController(r.Client, cam, append(base, opts...)...)
}

// Close releases the runtime's resources.
func (r *Runtime) Close() {
	if r.stopMetrics != nil {
		r.stopMetrics()
	}
	if r.Journal != nil {
		if err := r.Journal.Close(); err != nil {
			r.Logger.Warn("failed to close journal", zap.Error(err))
		}
	}
	_ = r.Logger.Sync()
}
