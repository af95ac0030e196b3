// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package flow

import (
	"errors"
	"fmt"

	"github.com/jeranaias/trifactor-tui/internal/verify"
)

// ErrInputMissing means required input was empty. It is handled locally and
// never reaches the service.
var ErrInputMissing = errors.New("input missing")

// ErrorKind is the user-facing failure category.
type ErrorKind int

const (
	KindInputMissing ErrorKind = iota
	KindDeviceUnavailable
	KindEmptyCapture
	KindNoActiveStream
	KindServiceUnreachable
	KindRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindInputMissing:
		return "input_missing"
	case KindDeviceUnavailable:
		return "device_unavailable"
	case KindEmptyCapture:
		return "empty_capture"
	case KindNoActiveStream:
		return "no_active_stream"
	case KindServiceUnreachable:
		return "service_unreachable"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Banner texts for locally detected failures.
const (
	MsgPINMissing    = "Please enter a PIN"
	MsgCameraDenied  = "Camera access denied"
	MsgCaptureFailed = "Failed to capture valid image"
)

// Error is the structured form of the last failure on a stage.
type Error struct {
	Kind    ErrorKind
	Stage   Stage
	Message string
	// Detail refines voice rejections.
	Detail verify.Detail
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Stage, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Stage, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func outcomeError(stage Stage, out verify.Outcome) *Error {
	kind := KindRejected
	if out.Reason == verify.ReasonServiceUnreachable {
		kind = KindServiceUnreachable
	}
	return &Error{Kind: kind, Stage: stage, Message: out.Message, Detail: out.Detail}
}
