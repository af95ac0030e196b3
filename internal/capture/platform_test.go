// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package capture

import (
	"bufio"
	"bytes"
	"context"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpegBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solidFrame(16, 16, c), nil))
	return buf.Bytes()
}

func TestSplitJPEG(t *testing.T) {
	a := jpegBytes(t, color.White)
	b := jpegBytes(t, color.Black)

	var stream bytes.Buffer
	stream.WriteString("banner noise")
	stream.Write(a)
	stream.Write([]byte{0x00, 0x01})
	stream.Write(b)
	stream.Write([]byte{0xFF, 0xD8, 0x00}) // truncated trailing frame

	sc := bufio.NewScanner(&stream)
	sc.Buffer(make([]byte, 0, 64), maxFrameBytes)
	sc.Split(SplitJPEG)

	var frames [][]byte
	for sc.Scan() {
		frames = append(frames, append([]byte(nil), sc.Bytes()...))
	}
	require.NoError(t, sc.Err())
	require.Len(t, frames, 2)
	assert.Equal(t, a, frames[0])
	assert.Equal(t, b, frames[1])
}

func TestNewPlatform(t *testing.T) {
	p, err := NewPlatform(PlatformConfig{Backend: "none"})
	require.NoError(t, err)
	assert.IsType(t, NoCamera{}, p)

	p, err = NewPlatform(PlatformConfig{Backend: "command", Device: "/dev/video2"})
	require.NoError(t, err)
	cc, ok := p.(*CommandCamera)
	require.True(t, ok)
	assert.Contains(t, cc.Argv(), "/dev/video2")
	assert.NotContains(t, cc.Argv(), devicePlaceholder)

	_, err = NewPlatform(PlatformConfig{Backend: "file"})
	assert.Error(t, err)

	_, err = NewPlatform(PlatformConfig{Backend: "webcam9000"})
	assert.Error(t, err)
}

func TestFileCamera(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, solidFrame(10, 6, color.White)))
	require.NoError(t, f.Close())

	mgr := NewManager(FileCamera{Path: path})
	h, err := mgr.AcquireCamera(context.Background())
	require.NoError(t, err)

	blob, err := mgr.CaptureStillImage(h)
	require.NoError(t, err)
	assert.Equal(t, 10, blob.Width)
	assert.Equal(t, 6, blob.Height)
}

func TestFileCameraMissing(t *testing.T) {
	mgr := NewManager(FileCamera{Path: filepath.Join(t.TempDir(), "absent.png")})
	_, err := mgr.AcquireCamera(context.Background())
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestCommandCameraReadsFrames(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	path := filepath.Join(t.TempDir(), "stream.mjpeg")
	data := append(jpegBytes(t, color.White), jpegBytes(t, color.Black)...)
	require.NoError(t, os.WriteFile(path, data, 0600))

	cam := NewCommandCamera([]string{"cat", path}, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := cam.OpenCamera(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		img, err := stream.Frame()
		return err == nil && img.Bounds().Dx() == 16
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, stream.Stop())
	_, err = stream.Frame()
	assert.ErrorIs(t, err, ErrNoActiveStream)
}

func TestCommandCameraExitsWithoutFrame(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	mgr := NewManager(NewCommandCamera([]string{"true"}, ""))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := mgr.AcquireCamera(ctx)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestCommandCameraNeverProducesFrame(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	mgr := NewManager(NewCommandCamera([]string{"sleep", "30"}, ""), WithOpenTimeout(200*time.Millisecond))

	start := time.Now()
	_, err := mgr.AcquireCamera(context.Background())
	require.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
