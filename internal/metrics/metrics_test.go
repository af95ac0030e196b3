// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveVerification("pin", "accepted", time.Second)
		m.IncGuardRejection("pin")
		m.IncCaptureFailure("empty_capture")
		m.ObserveCameraAcquire(true)
		m.ObserveCameraRelease()
	})
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveVerification("pin", "rejected", 10*time.Millisecond)
	m.ObserveVerification("pin", "rejected", 10*time.Millisecond)
	m.ObserveVerification("face", "accepted", 10*time.Millisecond)
	m.IncGuardRejection("voice")
	m.ObserveCameraAcquire(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.VerificationAttempts.WithLabelValues("pin", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VerificationAttempts.WithLabelValues("face", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardRejections.WithLabelValues("voice")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CameraActive))

	m.ObserveCameraRelease()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CameraActive))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveCameraAcquire(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `trifactor_camera_acquisitions_total{result="denied"} 1`))
}
