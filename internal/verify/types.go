// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package verify

// Stage identifies which factor a request verifies.
type Stage int

const (
	StagePIN Stage = iota
	StageFace
	StageVoice
)

func (s Stage) String() string {
	switch s {
	case StagePIN:
		return "pin"
	case StageFace:
		return "face"
	case StageVoice:
		return "voice"
	default:
		return "unknown"
	}
}

// Reason classifies an outcome.
type Reason int

const (
	// ReasonAccepted means the service accepted the factor.
	ReasonAccepted Reason = iota
	// ReasonRejected means the service answered and declined the factor.
	ReasonRejected
	// ReasonServiceUnreachable means no answer was received at all.
	ReasonServiceUnreachable
)

func (r Reason) String() string {
	switch r {
	case ReasonAccepted:
		return "accepted"
	case ReasonRejected:
		return "rejected"
	case ReasonServiceUnreachable:
		return "service_unreachable"
	default:
		return "unknown"
	}
}

// Detail refines a voice rejection.
type Detail int

const (
	DetailNone Detail = iota
	DetailNoBackend
	DetailNoInternet
	DetailIncorrectVoicePIN
	DetailUnintelligible
	DetailMaxAttempts
)

func (d Detail) String() string {
	switch d {
	case DetailNoBackend:
		return "no_backend"
	case DetailNoInternet:
		return "no_internet"
	case DetailIncorrectVoicePIN:
		return "incorrect_voice_pin"
	case DetailUnintelligible:
		return "unintelligible_audio"
	case DetailMaxAttempts:
		return "max_attempts"
	default:
		return "none"
	}
}

// Outcome is the normalized result of one verification call. It is a value
// type; callers never mutate it.
type Outcome struct {
	Accepted bool
	Reason   Reason
	Detail   Detail

	// Message is the user-facing text for a failure.
	Message string
	// RawMessage is the text the service sent, if any.
	RawMessage string
	// Status is the HTTP status code, 0 when no response arrived.
	Status int
}

// Label returns a compact classification used for metrics and the journal.
func (o Outcome) Label() string {
	if o.Detail != DetailNone {
		return o.Detail.String()
	}
	return o.Reason.String()
}

// Payload is the request body for one stage.
type Payload struct {
	PIN   string
	Image string
}

// response is the wire shape shared by all endpoints.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type pinRequest struct {
	PIN string `json:"pin"`
}

type faceRequest struct {
	Image string `json:"image"`
}
