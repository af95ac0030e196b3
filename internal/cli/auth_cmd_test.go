// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/trifactor-tui/internal/capture"
	"github.com/jeranaias/trifactor-tui/internal/flow"
	"github.com/jeranaias/trifactor-tui/internal/logging"
	"github.com/jeranaias/trifactor-tui/internal/verify"
	"github.com/jeranaias/trifactor-tui/internal/verify/verifytest"
)

func newLineRuntime(t *testing.T, srv *verifytest.Server, input string) (*Runtime, *bytes.Buffer) {
	t.Helper()
	rt, err := NewRuntimeWith(testConfig(t, srv.URL()), "", logging.Nop())
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	var out bytes.Buffer
	rt.In = strings.NewReader(input)
	rt.Out = &out
	rt.Err = &out
	return rt, &out
}

func TestHandleAuth_AllFactors(t *testing.T) {
	srv := verifytest.New()
	defer srv.Close()

	rt, out := newLineRuntime(t, srv, "1234\n\n\n")
	require.NotNil(t, rt.Journal)

	err := HandleAuth(context.Background(), rt, Args{})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Step 1 of 3: PIN")
	assert.Contains(t, text, "Step 2 of 3: Face")
	assert.Contains(t, text, "Step 3 of 3: Voice")
	assert.Contains(t, text, "Authenticated")
	assert.Equal(t, 1, srv.Calls(verify.StagePIN))
	assert.Equal(t, 1, srv.Calls(verify.StageFace))
	assert.Equal(t, 1, srv.Calls(verify.StageVoice))

	attempts, err := rt.Journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, attempts, 3)
}

func TestHandleAuth_RetryAfterWrongPIN(t *testing.T) {
	srv := verifytest.New()
	defer srv.Close()

	rt, out := newLineRuntime(t, srv, "0000\n1234\n\n\n")
	require.NoError(t, HandleAuth(context.Background(), rt, Args{}))

	assert.Contains(t, out.String(), "Incorrect PIN")
	assert.Equal(t, 2, srv.Calls(verify.StagePIN))
}

func TestHandleAuth_QuitIsIncomplete(t *testing.T) {
	srv := verifytest.New()
	defer srv.Close()

	rt, _ := newLineRuntime(t, srv, "1234\nq\n")
	err := HandleAuth(context.Background(), rt, Args{})
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, 0, srv.Calls(verify.StageFace))
}

func TestHandleAuth_EOFIsIncomplete(t *testing.T) {
	srv := verifytest.New()
	defer srv.Close()

	rt, _ := newLineRuntime(t, srv, "")
	err := HandleAuth(context.Background(), rt, Args{})
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, 0, srv.Calls(verify.StagePIN))
}

func TestHandleAuth_StartAtVoice(t *testing.T) {
	srv := verifytest.New()
	defer srv.Close()

	rt, _ := newLineRuntime(t, srv, "\n")
	_, args, err := Parse([]string{"auth", "--stage", "voice"})
	require.NoError(t, err)

	require.NoError(t, HandleAuth(context.Background(), rt, args))
	assert.Equal(t, 0, srv.Calls(verify.StagePIN))
	assert.Equal(t, 1, srv.Calls(verify.StageVoice))
}

func TestHandleAuth_CanceledContext(t *testing.T) {
	srv := verifytest.New()
	defer srv.Close()

	rt, _ := newLineRuntime(t, srv, "1234\n\n\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, HandleAuth(ctx, rt, Args{}), ErrIncomplete)
}

func TestHandleAuth_RepeatedFailurePrintsEachTime(t *testing.T) {
	srv := verifytest.New()
	defer srv.Close()

	cfg := testConfig(t, srv.URL())
	cfg.Camera.Backend = capture.BackendNone
	rt, err := NewRuntimeWith(cfg, "", logging.Nop())
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	var out bytes.Buffer
	rt.In = strings.NewReader("1234\n\n\nq\n")
	rt.Out = &out

	assert.ErrorIs(t, HandleAuth(context.Background(), rt, Args{}), ErrIncomplete)

	// Once on entering the face step, then once per retry.
	assert.Equal(t, 3, strings.Count(out.String(), flow.MsgCameraDenied))
	assert.Zero(t, srv.Calls(verify.StageFace))
}

func TestHandleAuth_RepeatedWrongPIN(t *testing.T) {
	srv := verifytest.New()
	defer srv.Close()

	rt, out := newLineRuntime(t, srv, "0000\n0000\n")
	assert.ErrorIs(t, HandleAuth(context.Background(), rt, Args{}), ErrIncomplete)
	assert.Equal(t, 2, strings.Count(out.String(), "Incorrect PIN"))
}
