// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/trifactor-tui/internal/logging"
	"github.com/jeranaias/trifactor-tui/internal/metrics"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrDeviceUnavailable means permission was denied, no hardware exists, or
// the device produced nothing within the open timeout.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrNoActiveStream means a capture was attempted on a released handle.
	ErrNoActiveStream = errors.New("no active stream")

	// ErrEmptyCapture means the captured frame failed the size sanity check.
	ErrEmptyCapture = errors.New("empty capture")

	// ErrHandleActive means a handle of the same kind is already held.
	ErrHandleActive = errors.New("device already acquired")

	// ErrManagerClosed means the manager was torn down.
	ErrManagerClosed = errors.New("capture manager closed")
)

// DeviceError wraps a platform failure for a specific device kind.
// It matches ErrDeviceUnavailable with errors.Is.
type DeviceError struct {
	Kind  DeviceKind
	Cause error
}

func (e *DeviceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s unavailable", e.Kind)
}

func (e *DeviceError) Unwrap() error { return e.Cause }

// Is reports ErrDeviceUnavailable as a match.
func (e *DeviceError) Is(target error) bool {
	return target == ErrDeviceUnavailable
}

// =============================================================================
// DEVICE TYPES
// =============================================================================

// DeviceKind identifies a media device class.
type DeviceKind int

const (
	Camera DeviceKind = iota
	Microphone
)

func (k DeviceKind) String() string {
	switch k {
	case Camera:
		return "camera"
	case Microphone:
		return "microphone"
	default:
		return "unknown"
	}
}

// Stream is a live media source.
type Stream interface {
	// Frame returns the most recent frame.
	Frame() (image.Image, error)
	// Stop stops the underlying device. It is called exactly once.
	Stop() error
}

// Platform opens media devices. OpenCamera may block while the platform
// asks for permission; it must honor ctx.
type Platform interface {
	OpenCamera(ctx context.Context) (Stream, error)
}

// Preview is a surface that displays a live camera stream.
type Preview interface {
	Bind(s Stream)
	Unbind()
}

// Handle is ownership of one acquired device stream.
type Handle struct {
	kind   DeviceKind
	stream Stream

	mu     sync.Mutex
	active bool
}

// Kind returns the device kind.
func (h *Handle) Kind() DeviceKind { return h.kind }

// Active reports whether the handle still owns a running stream.
func (h *Handle) Active() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// stop marks the handle inactive and reports whether this call did it.
func (h *Handle) stop() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return false
	}
	h.active = false
	return true
}

// =============================================================================
// MANAGER
// =============================================================================

// Option configures a Manager.
type Option func(*Manager)

// WithPreview binds acquired camera streams to p.
func WithPreview(p Preview) Option {
	return func(m *Manager) { m.preview = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = logging.OrNop(l) }
}

// WithMetrics sets the metrics collector.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithOpenTimeout bounds how long AcquireCamera waits for the platform.
// Zero or less keeps DefaultOpenTimeout.
func WithOpenTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.openTimeout = d
		}
	}
}

// WithEncoder overrides the still-image encoder settings.
func WithEncoder(e Encoder) Option {
	return func(m *Manager) {
		if e.Quality <= 0 {
			e.Quality = DefaultJPEGQuality
		}
		m.encoder = e
	}
}

// Manager acquires and releases media devices. It is safe for concurrent use.
type Manager struct {
	platform Platform
	preview  Preview
	encoder  Encoder
	logger   *zap.Logger
	metrics  *metrics.Metrics

	openTimeout time.Duration

	mu        sync.Mutex
	active    map[DeviceKind]*Handle
	acquiring map[DeviceKind]bool
	closed    bool
}

// NewManager creates a manager over platform.
func NewManager(platform Platform, opts ...Option) *Manager {
	if platform == nil {
		platform = NoCamera{}
	}
	m := &Manager{
		platform:  platform,
		encoder:     DefaultEncoder(),
		logger:      zap.NewNop(),
		openTimeout: DefaultOpenTimeout,
		active:      make(map[DeviceKind]*Handle),
		acquiring:   make(map[DeviceKind]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AcquireCamera opens the camera and binds it to the preview surface.
// Acquiring while a camera handle is active (or being acquired) fails with
// ErrHandleActive. Denial or missing hardware fails with ErrDeviceUnavailable.
func (m *Manager) AcquireCamera(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if m.active[Camera] != nil || m.acquiring[Camera] {
		m.mu.Unlock()
		return nil, ErrHandleActive
	}
	m.acquiring[Camera] = true
	m.mu.Unlock()

	openCtx, cancel := context.WithTimeout(ctx, m.openTimeout)
	stream, err := m.platform.OpenCamera(openCtx)
	cancel()
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("no frame within %s: %w", m.openTimeout, err)
	}

	m.mu.Lock()
	delete(m.acquiring, Camera)
	if err != nil {
		m.mu.Unlock()
		m.metrics.ObserveCameraAcquire(false)
		m.logger.Warn("camera acquisition failed", zap.Error(err))
		return nil, &DeviceError{Kind: Camera, Cause: err}
	}
	if stream == nil {
		m.mu.Unlock()
		m.metrics.ObserveCameraAcquire(false)
		return nil, &DeviceError{Kind: Camera}
	}
	if m.closed {
		m.mu.Unlock()
		_ = stream.Stop()
		return nil, ErrManagerClosed
	}
	h := &Handle{kind: Camera, stream: stream, active: true}
	m.active[Camera] = h
	m.mu.Unlock()

	if m.preview != nil {
		m.preview.Bind(stream)
	}
	m.metrics.ObserveCameraAcquire(true)
	m.logger.Info("camera acquired")
	return h, nil
}

// CaptureStillImage renders the current camera frame into an image payload.
func (m *Manager) CaptureStillImage(h *Handle) (ImageBlob, error) {
	if h == nil || h.kind != Camera || !h.Active() {
		m.metrics.IncCaptureFailure("no_active_stream")
		return ImageBlob{}, ErrNoActiveStream
	}

	frame, err := h.stream.Frame()
	if err != nil {
		m.metrics.IncCaptureFailure("frame_error")
		return ImageBlob{}, fmt.Errorf("%w: %v", ErrEmptyCapture, err)
	}
	if frame == nil || frame.Bounds().Empty() {
		m.metrics.IncCaptureFailure("empty_frame")
		return ImageBlob{}, ErrEmptyCapture
	}

	blob, err := m.encoder.Encode(frame)
	if err != nil {
		m.metrics.IncCaptureFailure("encode_error")
		return ImageBlob{}, fmt.Errorf("%w: %v", ErrEmptyCapture, err)
	}
	if len(blob.DataURL) < m.encoder.MinPayloadBytes {
		m.metrics.IncCaptureFailure("below_threshold")
		return ImageBlob{}, ErrEmptyCapture
	}

	m.logger.Debug("still image captured",
		zap.Int("width", blob.Width),
		zap.Int("height", blob.Height),
		zap.Int("payload_bytes", len(blob.DataURL)))
	return blob, nil
}

// Release stops the handle's stream and marks it inactive. Releasing an
// inactive or nil handle is a no-op.
func (m *Manager) Release(h *Handle) {
	if h == nil || !h.stop() {
		return
	}

	m.mu.Lock()
	if m.active[h.kind] == h {
		delete(m.active, h.kind)
	}
	m.mu.Unlock()

	if h.kind == Camera && m.preview != nil {
		m.preview.Unbind()
	}
	if err := h.stream.Stop(); err != nil {
		m.logger.Warn("stream stop failed", zap.String("device", h.kind.String()), zap.Error(err))
	}
	if h.kind == Camera {
		m.metrics.ObserveCameraRelease()
	}
	m.logger.Info("device released", zap.String("device", h.kind.String()))
}

// Close releases every active handle and refuses further acquisitions.
// It is used on flow teardown.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	handles := make([]*Handle, 0, len(m.active))
	for _, h := range m.active {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		m.Release(h)
	}
}
