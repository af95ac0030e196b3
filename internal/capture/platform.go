// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for still images
	_ "image/png"
	"os"
	"strings"
	"sync"
)

// Backend names accepted by NewPlatform.
const (
	BackendCommand = "command"
	BackendFile    = "file"
	BackendNone    = "none"
)

// ErrNoCamera is returned by NoCamera.
var ErrNoCamera = errors.New("no camera configured")

// PlatformConfig selects and configures a camera backend.
type PlatformConfig struct {
	Backend string
	Device  string
	Command []string
	Image   string
}

// NewPlatform builds the backend named in cfg.
func NewPlatform(cfg PlatformConfig) (Platform, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendCommand, "":
		return NewCommandCamera(cfg.Command, cfg.Device), nil
	case BackendFile:
		if cfg.Image == "" {
			return nil, errors.New("file camera requires an image path")
		}
		return FileCamera{Path: cfg.Image}, nil
	case BackendNone:
		return NoCamera{}, nil
	default:
		return nil, fmt.Errorf("unknown camera backend %q", cfg.Backend)
	}
}

// =============================================================================
// NO CAMERA
// =============================================================================

// NoCamera is a platform without camera hardware.
type NoCamera struct{}

// OpenCamera always fails.
func (NoCamera) OpenCamera(context.Context) (Stream, error) {
	return nil, ErrNoCamera
}

// =============================================================================
// FILE CAMERA
// =============================================================================

// FileCamera serves a single still image as a camera stream.
type FileCamera struct {
	Path string
}

// OpenCamera decodes the image at Path.
func (c FileCamera) OpenCamera(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("open still image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode still image: %w", err)
	}
	return NewStaticStream(img), nil
}

// StaticStream is a stream that always returns the same frame.
type StaticStream struct {
	img image.Image

	mu      sync.Mutex
	stopped bool
}

// NewStaticStream wraps img as a stream.
func NewStaticStream(img image.Image) *StaticStream {
	return &StaticStream{img: img}
}

// Frame returns the still image.
func (s *StaticStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrNoActiveStream
	}
	return s.img, nil
}

// Stop marks the stream stopped.
func (s *StaticStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

// Stopped reports whether Stop was called.
func (s *StaticStream) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
