// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type fakePlatform struct {
	mu     sync.Mutex
	err    error
	frame  image.Image
	opened []*StaticStream
}

func (p *fakePlatform) OpenCamera(ctx context.Context) (Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	s := NewStaticStream(p.frame)
	p.opened = append(p.opened, s)
	return s, nil
}

type fakePreview struct {
	mu     sync.Mutex
	bound  Stream
	binds  int
	unbind int
}

func (p *fakePreview) Bind(s Stream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bound = s
	p.binds++
}

func (p *fakePreview) Unbind() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bound = nil
	p.unbind++
}

func solidFrame(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// =============================================================================
// ACQUIRE / RELEASE
// =============================================================================

func TestAcquireBindsPreview(t *testing.T) {
	platform := &fakePlatform{frame: solidFrame(8, 8, color.White)}
	preview := &fakePreview{}
	mgr := NewManager(platform, WithPreview(preview))

	h, err := mgr.AcquireCamera(context.Background())
	require.NoError(t, err)
	require.True(t, h.Active())
	assert.Equal(t, Camera, h.Kind())
	assert.Equal(t, 1, preview.binds)
	assert.NotNil(t, preview.bound)
}

func TestAcquireTwiceIsCallerError(t *testing.T) {
	mgr := NewManager(&fakePlatform{frame: solidFrame(8, 8, color.White)})

	_, err := mgr.AcquireCamera(context.Background())
	require.NoError(t, err)

	_, err = mgr.AcquireCamera(context.Background())
	assert.ErrorIs(t, err, ErrHandleActive)
}

func TestAcquireDenied(t *testing.T) {
	mgr := NewManager(&fakePlatform{err: errors.New("permission denied")})

	h, err := mgr.AcquireCamera(context.Background())
	assert.Nil(t, h)
	require.ErrorIs(t, err, ErrDeviceUnavailable)

	var devErr *DeviceError
	require.True(t, errors.As(err, &devErr))
	assert.Equal(t, Camera, devErr.Kind)
	assert.Contains(t, err.Error(), "permission denied")

	// A failed acquisition leaves the slot free for a user-triggered retry.
	_, err = mgr.AcquireCamera(context.Background())
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.NotErrorIs(t, err, ErrHandleActive)
}

// stallingPlatform never produces a stream; it waits for its context.
type stallingPlatform struct{}

func (stallingPlatform) OpenCamera(ctx context.Context) (Stream, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAcquireTimesOut(t *testing.T) {
	mgr := NewManager(stallingPlatform{}, WithOpenTimeout(50*time.Millisecond))

	start := time.Now()
	h, err := mgr.AcquireCamera(context.Background())
	assert.Nil(t, h)
	require.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "no frame within")
	assert.Less(t, time.Since(start), 2*time.Second)

	// The slot is free again, so a retry reaches the platform.
	_, err = mgr.AcquireCamera(context.Background())
	assert.NotErrorIs(t, err, ErrHandleActive)
}

func TestAcquireHonorsCallerCancel(t *testing.T) {
	mgr := NewManager(stallingPlatform{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := mgr.AcquireCamera(ctx)
	require.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, err.Error(), "no frame within")
}

func TestNoCameraPlatform(t *testing.T) {
	mgr := NewManager(nil)
	_, err := mgr.AcquireCamera(context.Background())
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.ErrorIs(t, err, ErrNoCamera)
}

func TestReleaseIsIdempotent(t *testing.T) {
	platform := &fakePlatform{frame: solidFrame(8, 8, color.White)}
	preview := &fakePreview{}
	mgr := NewManager(platform, WithPreview(preview))

	h, err := mgr.AcquireCamera(context.Background())
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		mgr.Release(h)
		mgr.Release(h)
		mgr.Release(nil)
	})
	assert.False(t, h.Active())
	assert.True(t, platform.opened[0].Stopped())
	assert.Equal(t, 1, preview.unbind, "preview is unbound once")

	// After release a new acquisition is allowed.
	h2, err := mgr.AcquireCamera(context.Background())
	require.NoError(t, err)
	assert.True(t, h2.Active())
}

func TestCloseReleasesAndRefuses(t *testing.T) {
	platform := &fakePlatform{frame: solidFrame(8, 8, color.White)}
	mgr := NewManager(platform)

	h, err := mgr.AcquireCamera(context.Background())
	require.NoError(t, err)

	mgr.Close()
	assert.False(t, h.Active())
	assert.True(t, platform.opened[0].Stopped())

	_, err = mgr.AcquireCamera(context.Background())
	assert.ErrorIs(t, err, ErrManagerClosed)
}

// =============================================================================
// STILL CAPTURE
// =============================================================================

func TestCaptureRequiresActiveHandle(t *testing.T) {
	mgr := NewManager(&fakePlatform{frame: solidFrame(8, 8, color.White)})

	_, err := mgr.CaptureStillImage(nil)
	assert.ErrorIs(t, err, ErrNoActiveStream)

	h, err := mgr.AcquireCamera(context.Background())
	require.NoError(t, err)
	mgr.Release(h)

	_, err = mgr.CaptureStillImage(h)
	assert.ErrorIs(t, err, ErrNoActiveStream)
}

func TestCaptureEmptyFrame(t *testing.T) {
	mgr := NewManager(&fakePlatform{frame: image.NewRGBA(image.Rectangle{})})

	h, err := mgr.AcquireCamera(context.Background())
	require.NoError(t, err)

	_, err = mgr.CaptureStillImage(h)
	assert.ErrorIs(t, err, ErrEmptyCapture)
}

func TestCaptureBelowThreshold(t *testing.T) {
	mgr := NewManager(
		&fakePlatform{frame: solidFrame(4, 4, color.Black)},
		WithEncoder(Encoder{Quality: 50, MinPayloadBytes: 1 << 20}),
	)

	h, err := mgr.AcquireCamera(context.Background())
	require.NoError(t, err)

	_, err = mgr.CaptureStillImage(h)
	assert.ErrorIs(t, err, ErrEmptyCapture)
}

// TestCaptureRoundTrip checks the receiver can decode the payload back into
// the frame that was on the stream, within JPEG loss.
func TestCaptureRoundTrip(t *testing.T) {
	want := color.RGBA{R: 200, G: 40, B: 90, A: 255}
	mgr := NewManager(&fakePlatform{frame: solidFrame(64, 48, want)})

	h, err := mgr.AcquireCamera(context.Background())
	require.NoError(t, err)

	blob, err := mgr.CaptureStillImage(h)
	require.NoError(t, err)
	assert.Equal(t, 64, blob.Width)
	assert.Equal(t, 48, blob.Height)
	assert.True(t, len(blob.DataURL) > DefaultMinPayloadBytes)
	assert.Equal(t, "data:image/jpeg;base64,", blob.DataURL[:len(dataURLPrefix)])

	got, format, err := DecodeDataURL(blob.DataURL)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Rect(0, 0, 64, 48), got.Bounds())

	r, g, b, _ := got.At(32, 24).RGBA()
	assert.InDelta(t, float64(want.R), float64(r>>8), 8)
	assert.InDelta(t, float64(want.G), float64(g>>8), 8)
	assert.InDelta(t, float64(want.B), float64(b>>8), 8)
}

func TestDecodeDataURLRejectsGarbage(t *testing.T) {
	for _, in := range []string{
		"",
		"hello",
		"data:image/jpeg,notbase64",
		"data:image/jpeg;base64,@@@",
		"data:image/jpeg;base64,aGVsbG8=",
	} {
		_, _, err := DecodeDataURL(in)
		assert.ErrorIs(t, err, ErrInvalidDataURL, "input %q", in)
	}
}
