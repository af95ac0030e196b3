// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package verify_test

import (
	"context"
	"encoding/json"
	"image"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/trifactor-tui/internal/capture"
	"github.com/jeranaias/trifactor-tui/internal/verify"
	"github.com/jeranaias/trifactor-tui/internal/verify/verifytest"
)

var tinyJPEG = func() string {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	blob, err := capture.DefaultEncoder().Encode(img)
	if err != nil {
		panic(err)
	}
	return blob.DataURL
}()

func newClient(t *testing.T, url string) *verify.Client {
	t.Helper()
	return verify.NewClient(&verify.ClientConfig{BaseURL: url, Timeout: 2 * time.Second, VoiceTimeout: 2 * time.Second})
}

// =============================================================================
// PIN
// =============================================================================

func TestVerifyPINAccepted(t *testing.T) {
	svc := verifytest.New()
	defer svc.Close()

	out := newClient(t, svc.URL()).Verify(context.Background(), verify.StagePIN, verify.Payload{PIN: "1234"})

	assert.True(t, out.Accepted)
	assert.Equal(t, verify.ReasonAccepted, out.Reason)
	assert.Equal(t, http.StatusOK, out.Status)

	reqs := svc.Requests(verify.StagePIN)
	require.Len(t, reqs, 1)
	assert.Equal(t, "application/json", reqs[0].Header.Get("Accept"))
	assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))
	assert.Empty(t, reqs[0].Header.Get("Cookie"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
	assert.Equal(t, map[string]string{"pin": "1234"}, body)
}

func TestVerifyPINRejected(t *testing.T) {
	svc := verifytest.New()
	defer svc.Close()

	out := newClient(t, svc.URL()).Verify(context.Background(), verify.StagePIN, verify.Payload{PIN: "0000"})

	assert.False(t, out.Accepted)
	assert.Equal(t, verify.ReasonRejected, out.Reason)
	assert.Equal(t, "Incorrect PIN", out.Message)
	assert.Equal(t, "Incorrect PIN", out.RawMessage)
	assert.Equal(t, http.StatusUnauthorized, out.Status)
}

func TestVerifySuccessFalseOn200(t *testing.T) {
	svc := verifytest.New()
	defer svc.Close()
	svc.Script(verify.StagePIN, verifytest.Response{Status: 200, Success: false, Message: "Incorrect PIN"})

	out := newClient(t, svc.URL()).Verify(context.Background(), verify.StagePIN, verify.Payload{PIN: "0000"})
	assert.Equal(t, verify.ReasonRejected, out.Reason)
	assert.Equal(t, "Incorrect PIN", out.Message)
}

func TestVerifyDefaultMessages(t *testing.T) {
	tests := []struct {
		stage verify.Stage
		want  string
	}{
		{verify.StagePIN, "Incorrect PIN"},
		{verify.StageFace, "Face verification failed"},
		{verify.StageVoice, "Voice verification failed"},
	}
	for _, tt := range tests {
		t.Run(tt.stage.String(), func(t *testing.T) {
			svc := verifytest.New()
			defer svc.Close()
			svc.Script(tt.stage, verifytest.Response{Status: 200, Success: false})

			out := newClient(t, svc.URL()).Verify(context.Background(), tt.stage, verify.Payload{PIN: "1", Image: tinyJPEG})
			assert.Equal(t, verify.ReasonRejected, out.Reason)
			assert.Equal(t, tt.want, out.Message)
		})
	}
}

func TestVerifyNon2xxWithoutMessage(t *testing.T) {
	svc := verifytest.New()
	defer svc.Close()
	svc.Script(verify.StageFace, verifytest.Response{Status: http.StatusBadGateway, Body: "<html>bad gateway</html>"})

	out := newClient(t, svc.URL()).Verify(context.Background(), verify.StageFace, verify.Payload{Image: tinyJPEG})
	assert.Equal(t, verify.ReasonRejected, out.Reason)
	assert.Equal(t, "Server error: 502", out.Message)
}

func TestVerifyGarbled2xx(t *testing.T) {
	svc := verifytest.New()
	defer svc.Close()
	svc.Script(verify.StagePIN, verifytest.Response{Status: 200, Body: "not json"})

	out := newClient(t, svc.URL()).Verify(context.Background(), verify.StagePIN, verify.Payload{PIN: "1234"})
	assert.False(t, out.Accepted)
	assert.Equal(t, verify.ReasonRejected, out.Reason)
}

// =============================================================================
// FACE / VOICE
// =============================================================================

func TestVerifyFaceSendsImage(t *testing.T) {
	svc := verifytest.New()
	defer svc.Close()

	out := newClient(t, svc.URL()).Verify(context.Background(), verify.StageFace, verify.Payload{Image: tinyJPEG})
	require.True(t, out.Accepted, out.Message)

	reqs := svc.Requests(verify.StageFace)
	require.Len(t, reqs, 1)
	var body map[string]string
	require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
	assert.Equal(t, tinyJPEG, body["image"])
}

func TestVerifyVoiceSendsNoBody(t *testing.T) {
	svc := verifytest.New()
	defer svc.Close()

	out := newClient(t, svc.URL()).Verify(context.Background(), verify.StageVoice, verify.Payload{})
	require.True(t, out.Accepted)

	reqs := svc.Requests(verify.StageVoice)
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Body)
	assert.Empty(t, reqs[0].Header.Get("Content-Type"))
	assert.Equal(t, "application/json", reqs[0].Header.Get("Accept"))
}

func TestVerifyVoiceMaxAttempts(t *testing.T) {
	svc := verifytest.New()
	defer svc.Close()
	svc.Script(verify.StageVoice, verifytest.Response{Status: http.StatusUnauthorized, Message: "Maximum attempts reached"})

	out := newClient(t, svc.URL()).Verify(context.Background(), verify.StageVoice, verify.Payload{})
	assert.Equal(t, verify.ReasonRejected, out.Reason)
	assert.Equal(t, verify.DetailMaxAttempts, out.Detail)
	assert.Contains(t, out.Message, "Maximum attempts reached. Access denied.")
	assert.Equal(t, "max_attempts", out.Label())
}

// =============================================================================
// TRANSPORT FAILURES
// =============================================================================

func TestVerifyConnectionRefused(t *testing.T) {
	// Grab a free port and close it so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	for _, stage := range []verify.Stage{verify.StagePIN, verify.StageFace, verify.StageVoice} {
		out := newClient(t, "http://"+addr).Verify(context.Background(), stage, verify.Payload{PIN: "1234", Image: tinyJPEG})
		assert.False(t, out.Accepted)
		assert.Equal(t, verify.ReasonServiceUnreachable, out.Reason, stage.String())
		assert.Equal(t, verify.UnreachableMessage, out.Message)
		assert.Zero(t, out.Status)
	}
}

func TestVerifyTimeoutIsUnreachable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := verify.NewClient(&verify.ClientConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	out := c.Verify(context.Background(), verify.StagePIN, verify.Payload{PIN: "1234"})
	assert.Equal(t, verify.ReasonServiceUnreachable, out.Reason)
}

func TestUnreachableDiffersFromRejected(t *testing.T) {
	svc := verifytest.New()
	rejected := newClient(t, svc.URL()).Verify(context.Background(), verify.StagePIN, verify.Payload{PIN: "0000"})
	url := svc.URL()
	svc.Close()
	down := newClient(t, url).Verify(context.Background(), verify.StagePIN, verify.Payload{PIN: "0000"})

	assert.NotEqual(t, rejected.Reason, down.Reason)
	assert.NotEqual(t, rejected.Message, down.Message)
}

func TestEndpointsAndPing(t *testing.T) {
	svc := verifytest.New()
	defer svc.Close()

	c := newClient(t, svc.URL()+"/")
	assert.Equal(t, svc.URL()+"/validate-pin", c.Endpoint(verify.StagePIN))
	assert.Equal(t, svc.URL()+"/face-auth", c.Endpoint(verify.StageFace))
	assert.Equal(t, svc.URL()+"/voice-auth", c.Endpoint(verify.StageVoice))
	assert.NoError(t, c.Ping(context.Background()))
}
