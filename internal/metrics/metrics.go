// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics holds the Prometheus collectors for the authentication flow.
//
// All methods are safe to call on a nil *Metrics so components can take the
// collector as an optional dependency.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the client.
type Metrics struct {
	registry *prometheus.Registry

	VerificationAttempts *prometheus.CounterVec
	VerificationLatency  *prometheus.HistogramVec
	GuardRejections      *prometheus.CounterVec
	CaptureFailures      *prometheus.CounterVec
	CameraAcquisitions   *prometheus.CounterVec
	CameraActive         prometheus.Gauge
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		VerificationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trifactor_verification_attempts_total",
			Help: "Verification calls issued to the remote service, by stage and outcome reason",
		}, []string{"stage", "reason"}),
		VerificationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trifactor_verification_duration_seconds",
			Help:    "Round-trip time of verification calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		GuardRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trifactor_guard_rejections_total",
			Help: "Stage actions dropped because another step was in flight",
		}, []string{"stage"}),
		CaptureFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trifactor_capture_failures_total",
			Help: "Still-image captures that failed validation",
		}, []string{"reason"}),
		CameraAcquisitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trifactor_camera_acquisitions_total",
			Help: "Camera acquisition requests, by result",
		}, []string{"result"}),
		CameraActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trifactor_camera_active",
			Help: "1 while a camera stream is held open",
		}),
	}
}

// ObserveVerification records one completed verification call.
func (m *Metrics) ObserveVerification(stage, reason string, d time.Duration) {
	if m == nil {
		return
	}
	m.VerificationAttempts.WithLabelValues(stage, reason).Inc()
	m.VerificationLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// IncGuardRejection records a dropped re-entrant action.
func (m *Metrics) IncGuardRejection(stage string) {
	if m == nil {
		return
	}
	m.GuardRejections.WithLabelValues(stage).Inc()
}

// IncCaptureFailure records a failed still capture.
func (m *Metrics) IncCaptureFailure(reason string) {
	if m == nil {
		return
	}
	m.CaptureFailures.WithLabelValues(reason).Inc()
}

// ObserveCameraAcquire records an acquisition result and updates the gauge.
func (m *Metrics) ObserveCameraAcquire(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.CameraAcquisitions.WithLabelValues("granted").Inc()
		m.CameraActive.Set(1)
		return
	}
	m.CameraAcquisitions.WithLabelValues("denied").Inc()
}

// ObserveCameraRelease marks the camera as no longer held.
func (m *Metrics) ObserveCameraRelease() {
	if m == nil {
		return
	}
	m.CameraActive.Set(0)
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the metrics in text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
