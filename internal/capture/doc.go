// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package capture owns the local media devices used during authentication.
//
// A Manager hands out at most one active Handle per device kind. Acquiring a
// camera binds its live stream to the configured Preview; CaptureStillImage
// renders the current frame into a JPEG data URL suitable for the face
// endpoint; Release stops the underlying stream exactly once.
//
// # Backends
//
//   - CommandCamera: runs a capture command (ffmpeg by default) that writes an
//     MJPEG stream to stdout and keeps the most recent frame.
//   - FileCamera: serves a still image from disk as a never-changing stream.
//   - NoCamera: always reports the device as unavailable.
//
// Microphone capture is deliberately absent: the remote service records the
// voice factor itself.
//
// # Usage
//
//	mgr := capture.NewManager(platform, capture.WithPreview(pane))
//	h, err := mgr.AcquireCamera(ctx)
//	if errors.Is(err, capture.ErrDeviceUnavailable) {
//	    // tell the user, wait for them to retry
//	}
//	defer mgr.Release(h)
//	blob, err := mgr.CaptureStillImage(h)
package capture
