// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package verify

import "strings"

// voicePhrase maps a phrase the voice endpoint is known to send to a detail
// code and the message shown to the user.
type voicePhrase struct {
	Contains string
	Detail   Detail
	Message  string
}

// voicePhrases is checked in order; the first match wins.
var voicePhrases = []voicePhrase{
	{
		Contains: "No backend available",
		Detail:   DetailNoBackend,
		Message:  "Voice recognition failed: No backend available. Ensure the server has internet and 'flac' installed.",
	},
	{
		Contains: "No internet connection",
		Detail:   DetailNoInternet,
		Message:  "Voice recognition failed: No internet connection on the server.",
	},
	{
		Contains: "Incorrect voice PIN",
		Detail:   DetailIncorrectVoicePIN,
		Message:  "Voice verification failed: Incorrect voice PIN. Please try again.",
	},
	{
		Contains: "Could not understand audio",
		Detail:   DetailUnintelligible,
		Message:  "Voice verification failed: Could not understand the audio. Please speak clearly.",
	},
	{
		Contains: "Maximum attempts reached",
		Detail:   DetailMaxAttempts,
		Message:  "Voice verification failed: Maximum attempts reached. Access denied.",
	},
}

// Default failure texts when the service sends no message.
var defaultFailure = map[Stage]string{
	StagePIN:   "Incorrect PIN",
	StageFace:  "Face verification failed",
	StageVoice: "Voice verification failed",
}

// UnreachableMessage is shown for transport failures on any stage.
const UnreachableMessage = "Server unreachable. Ensure backend is running."

// ClassifyVoice maps a voice failure message to a detail and display text.
// Unknown messages pass through verbatim with DetailNone; an empty message
// becomes the generic voice failure text.
func ClassifyVoice(raw string) (Detail, string) {
	if raw == "" {
		return DetailNone, defaultFailure[StageVoice]
	}
	for _, p := range voicePhrases {
		if strings.Contains(raw, p.Contains) {
			return p.Detail, p.Message
		}
	}
	return DetailNone, raw
}

// rejection builds the outcome for an application-level failure.
func rejection(stage Stage, raw string, status int) Outcome {
	o := Outcome{
		Reason:     ReasonRejected,
		RawMessage: raw,
		Status:     status,
	}
	if stage == StageVoice {
		o.Detail, o.Message = ClassifyVoice(raw)
		return o
	}
	o.Message = raw
	if o.Message == "" {
		o.Message = defaultFailure[stage]
	}
	return o
}

// unreachable builds the outcome for a transport failure.
func unreachable() Outcome {
	return Outcome{
		Reason:  ReasonServiceUnreachable,
		Message: UnreachableMessage,
	}
}
