// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package flow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/trifactor-tui/internal/capture"
	"github.com/jeranaias/trifactor-tui/internal/guard"
	"github.com/jeranaias/trifactor-tui/internal/journal"
	"github.com/jeranaias/trifactor-tui/internal/logging"
	"github.com/jeranaias/trifactor-tui/internal/metrics"
	"github.com/jeranaias/trifactor-tui/internal/verify"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Verifier performs one remote verification call.
type Verifier interface {
	Verify(ctx context.Context, stage verify.Stage, payload verify.Payload) verify.Outcome
}

// Camera is the part of capture.Manager the flow needs.
type Camera interface {
	AcquireCamera(ctx context.Context) (*capture.Handle, error)
	CaptureStillImage(h *capture.Handle) (capture.ImageBlob, error)
	Release(h *capture.Handle)
}

// Recorder persists attempts for auditing.
type Recorder interface {
	Record(ctx context.Context, a journal.Attempt) error
}

// Navigator is told when the flow moves to another view.
type Navigator interface {
	Navigate(view View)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(View)

// Navigate calls f.
func (f NavigatorFunc) Navigate(v View) { f(v) }

// =============================================================================
// OPTIONS
// =============================================================================

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = logging.OrNop(l) }
}

// WithMetrics records attempt counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithJournal records every remote attempt.
func WithJournal(r Recorder) Option {
	return func(c *Controller) { c.journal = r }
}

// WithObserver receives a Snapshot after every visible change. It is called
// from whichever goroutine made the change, one call at a time, and must not
// call back into the Controller synchronously.
func WithObserver(fn func(Snapshot)) Option {
	return func(c *Controller) { c.observer = fn }
}

// WithNavigator is told about view changes.
func WithNavigator(n Navigator) Option {
	return func(c *Controller) { c.navigator = n }
}

// WithBannerDuration overrides how long error messages stay visible.
func WithBannerDuration(d time.Duration) Option {
	return func(c *Controller) { c.bannerDuration = d }
}

// WithStartStage opens the flow at a later stage. Its readiness is rebuilt
// from scratch by Start.
func WithStartStage(s Stage) Option {
	return func(c *Controller) {
		if s == StagePIN || s == StageFace || s == StageVoice {
			c.startStage = s
		}
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller runs the three-stage state machine for one session.
type Controller struct {
	verifier  Verifier
	camera    Camera
	logger    *zap.Logger
	metrics   *metrics.Metrics
	journal   Recorder
	observer  func(Snapshot)
	navigator Navigator

	bannerDuration time.Duration
	startStage     Stage

	guard  guard.Guard
	banner *Banner
	pubMu  sync.Mutex

	mu        sync.Mutex
	session   *Session
	handle    *capture.Handle
	cameraErr error
	inflight  bool
	started   bool
	closed    bool
}

// NewController wires a controller. A nil camera behaves like a device with
// no camera.
func NewController(v Verifier, cam Camera, opts ...Option) *Controller {
	if cam == nil {
		cam = capture.NewManager(nil)
	}
	c := &Controller{
		verifier:       v,
		camera:         cam,
		logger:         zap.NewNop(),
		bannerDuration: DefaultBannerDuration,
		startStage:     StagePIN,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.banner = NewBanner(c.bannerDuration, c.publish)
	c.session = newSession(c.startStage)
	return c
}

// Start opens the session view and prepares its stage. For the face stage
// that means acquiring the camera. Calling Start twice does nothing.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	stage := c.session.Stage
	c.mu.Unlock()

	c.log().Info("authentication session started")
	c.navigate(stage)
	c.publish()

	if d, _ := Describe(stage); d.RequiresCapture {
		if !c.enter(stage) {
			return
		}
		defer c.leave()
		c.acquireCamera(ctx)
	}
}

// SubmitPIN verifies pin. Surrounding whitespace is trimmed and
// compatibility characters such as full-width digits are folded.
func (c *Controller) SubmitPIN(ctx context.Context, pin string) {
	if !c.enter(StagePIN) {
		return
	}
	defer c.leave()

	pin = NormalizePIN(pin)
	if pin == "" {
		c.fail(&Error{Kind: KindInputMissing, Stage: StagePIN, Message: MsgPINMissing, Cause: ErrInputMissing})
		return
	}

	out := c.call(ctx, StagePIN, verify.Payload{PIN: pin})
	if !out.Accepted {
		c.fail(outcomeError(StagePIN, out))
		return
	}
	c.advance(ctx, StagePIN)
}

// CaptureFace snapshots the camera and verifies the image. When the camera
// could not be acquired earlier, the trigger asks the platform again.
func (c *Controller) CaptureFace(ctx context.Context) {
	if !c.enter(StageFace) {
		return
	}
	defer c.leave()

	c.mu.Lock()
	h := c.handle
	c.mu.Unlock()

	if h == nil || !h.Active() {
		if !c.acquireCamera(ctx) {
			return
		}
		c.mu.Lock()
		h = c.handle
		c.mu.Unlock()
	}

	blob, err := c.camera.CaptureStillImage(h)
	if err != nil {
		kind := KindEmptyCapture
		if errors.Is(err, capture.ErrNoActiveStream) {
			kind = KindNoActiveStream
		}
		c.fail(&Error{Kind: kind, Stage: StageFace, Message: MsgCaptureFailed, Cause: err})
		return
	}
	c.log().Debug("face image captured", zap.Int("payload_bytes", blob.Len()))

	out := c.call(ctx, StageFace, verify.Payload{Image: blob.DataURL})
	if !out.Accepted {
		// The camera stays on for the retry.
		c.fail(outcomeError(StageFace, out))
		return
	}
	c.advance(ctx, StageFace)
}

// StartVoice asks the service to capture and verify the user's voice.
// Nothing is recorded locally.
func (c *Controller) StartVoice(ctx context.Context) {
	if !c.enter(StageVoice) {
		return
	}
	defer c.leave()

	out := c.call(ctx, StageVoice, verify.Payload{})
	if !out.Accepted {
		c.fail(outcomeError(StageVoice, out))
		return
	}
	c.advance(ctx, StageVoice)
}

// Trigger runs the current stage's action. pin is only used on the PIN
// stage.
func (c *Controller) Trigger(ctx context.Context, pin string) {
	switch c.Snapshot().Stage {
	case StagePIN:
		c.SubmitPIN(ctx, pin)
	case StageFace:
		c.CaptureFace(ctx)
	case StageVoice:
		c.StartVoice(ctx)
	}
}

// Teardown releases the camera and stops the banner timer. Later actions do
// nothing. A call already in flight is abandoned by the caller's context.
func (c *Controller) Teardown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	h := c.handle
	c.handle = nil
	c.mu.Unlock()

	c.camera.Release(h)
	c.banner.Hide()
	c.log().Info("authentication session closed")
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Busy reports whether an attempt is in flight.
func (c *Controller) Busy() bool { return c.guard.Busy() }

// GuardRejections counts triggers dropped because the session was busy.
func (c *Controller) GuardRejections() int64 { return c.guard.Rejected() }

// =============================================================================
// INTERNALS
// =============================================================================

// enter claims the guard for an action on stage. It fails without side
// effects when the guard is busy, the session moved on, or the flow is
// closed.
func (c *Controller) enter(stage Stage) bool {
	if !c.guard.TryEnter() {
		c.metrics.IncGuardRejection(stage.String())
		c.log().Debug("action dropped, attempt in flight", zap.String("action", stage.String()))
		return false
	}

	c.mu.Lock()
	ok := !c.closed && c.session.Stage == stage
	if ok {
		c.session.busy = true
	}
	c.mu.Unlock()

	if !ok {
		c.guard.Exit()
		return false
	}
	return true
}

// leave clears the busy state and publishes. It is deferred by every action.
func (c *Controller) leave() {
	c.mu.Lock()
	c.session.busy = false
	c.inflight = false
	c.mu.Unlock()
	c.guard.Exit()
	c.publish()
}

// call performs the remote request for stage and records the attempt.
func (c *Controller) call(ctx context.Context, stage Stage, payload verify.Payload) verify.Outcome {
	d, _ := Describe(stage)

	c.mu.Lock()
	c.inflight = true
	c.session.LastError = nil
	sessionID := c.session.ID
	c.mu.Unlock()
	// A new attempt replaces the previous failure message.
	c.banner.Hide()
	c.publish()

	start := time.Now()
	out := c.verifier.Verify(ctx, d.Endpoint, payload)
	elapsed := time.Since(start)

	c.metrics.ObserveVerification(d.Endpoint.String(), out.Label(), elapsed)
	if c.journal != nil {
		err := c.journal.Record(context.WithoutCancel(ctx), journal.Attempt{
			SessionID: sessionID,
			Stage:     d.Endpoint.String(),
			Accepted:  out.Accepted,
			Reason:    out.Label(),
			Status:    out.Status,
			Latency:   elapsed,
		})
		if err != nil {
			c.log().Warn("failed to journal attempt", zap.Error(err))
		}
	}
	c.log().Info("verification attempt",
		zap.String(logging.FieldStage, stage.String()),
		zap.String("reason", out.Label()),
		zap.Duration("elapsed", elapsed))
	return out
}

// fail records err on the session and shows its message.
func (c *Controller) fail(err *Error) {
	c.mu.Lock()
	c.session.LastError = err
	c.inflight = false
	c.mu.Unlock()

	c.banner.Show(err.Message)
	c.log().Warn("stage failed",
		zap.String(logging.FieldStage, err.Stage.String()),
		zap.String("kind", err.Kind.String()),
		zap.String("message", err.Message))
}

// advance moves past from. It runs while the guard is still held so the
// next stage is fully prepared before any trigger is accepted.
func (c *Controller) advance(ctx context.Context, from Stage) {
	d, _ := Describe(from)

	c.mu.Lock()
	c.session.Stage = d.Next
	c.session.LastError = nil
	c.inflight = false
	var h *capture.Handle
	if from == StageFace {
		h = c.handle
		c.handle = nil
	}
	c.mu.Unlock()

	if h != nil {
		c.camera.Release(h)
	}
	c.log().Info("stage accepted", zap.String(logging.FieldStage, from.String()), zap.String("next", d.Next.String()))
	c.navigate(d.Next)
	c.publish()

	if next, _ := Describe(d.Next); next.RequiresCapture {
		c.acquireCamera(ctx)
	}
}

// acquireCamera requests the camera for the face stage. The caller holds
// the guard.
func (c *Controller) acquireCamera(ctx context.Context) bool {
	c.mu.Lock()
	if c.handle != nil && c.handle.Active() {
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	h, err := c.camera.AcquireCamera(ctx)
	if err != nil {
		c.mu.Lock()
		c.cameraErr = err
		c.mu.Unlock()
		c.fail(&Error{Kind: KindDeviceUnavailable, Stage: StageFace, Message: MsgCameraDenied, Cause: err})
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.camera.Release(h)
		return false
	}
	c.handle = h
	c.cameraErr = nil
	c.mu.Unlock()
	c.publish()
	return true
}

func (c *Controller) navigate(stage Stage) {
	if c.navigator == nil {
		return
	}
	if d, ok := Describe(stage); ok {
		c.navigator.Navigate(d.View)
	}
}

// publish delivers a snapshot to the observer. Snapshots are delivered in
// the order they were taken.
func (c *Controller) publish() {
	if c.observer == nil {
		return
	}
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	c.observer(c.Snapshot())
}

func (c *Controller) snapshotLocked() Snapshot {
	s := c.session
	d, _ := Describe(s.Stage)

	ctl := Control{Label: d.Label, Enabled: s.Stage != StageSucceeded && !s.busy && !c.closed}
	if s.busy {
		ctl.Label = LabelProcessing
		ctl.Active = s.Stage == StageVoice && c.inflight
	}
	if s.Stage == StageSucceeded {
		ctl.Label = ""
	}

	return Snapshot{
		SessionID:     s.ID,
		Stage:         s.Stage,
		Status:        s.Status(),
		View:          d.View,
		Title:         d.Title,
		Busy:          s.busy,
		Control:       ctl,
		Banner:        c.banner.Text(),
		BannerExpires: c.banner.Expires(),
		LastError:     s.LastError,
		CameraActive:  c.handle != nil && c.handle.Active(),
		Elapsed:       time.Since(s.StartedAt),
	}
}

func (c *Controller) log() *zap.Logger {
	return c.logger.With(zap.String(logging.FieldSession, c.session.ID))
}

// NormalizePIN trims whitespace and applies NFKC so full-width digits typed
// through an input method match their ASCII form.
func NormalizePIN(pin string) string {
	return strings.TrimSpace(norm.NFKC.String(pin))
}
