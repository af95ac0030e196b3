// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyVoice(t *testing.T) {
	tests := []struct {
		raw        string
		wantDetail Detail
		wantMsg    string
	}{
		{"", DetailNone, "Voice verification failed"},
		{"Voice recognition error: No backend available", DetailNoBackend,
			"Voice recognition failed: No backend available. Ensure the server has internet and 'flac' installed."},
		{"No internet connection", DetailNoInternet,
			"Voice recognition failed: No internet connection on the server."},
		{"Incorrect voice PIN. Attempts left: 2", DetailIncorrectVoicePIN,
			"Voice verification failed: Incorrect voice PIN. Please try again."},
		{"Could not understand audio", DetailUnintelligible,
			"Voice verification failed: Could not understand the audio. Please speak clearly."},
		{"Maximum attempts reached", DetailMaxAttempts,
			"Voice verification failed: Maximum attempts reached. Access denied."},
		{"Server error: microphone busy", DetailNone, "Server error: microphone busy"},
	}
	for _, tt := range tests {
		t.Run(tt.wantDetail.String()+"/"+tt.raw, func(t *testing.T) {
			d, msg := ClassifyVoice(tt.raw)
			assert.Equal(t, tt.wantDetail, d)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestRejectionOnlyClassifiesVoice(t *testing.T) {
	// The same phrase on the PIN stage passes through untouched.
	o := rejection(StagePIN, "Maximum attempts reached", 401)
	assert.Equal(t, DetailNone, o.Detail)
	assert.Equal(t, "Maximum attempts reached", o.Message)

	o = rejection(StageVoice, "Maximum attempts reached", 401)
	assert.Equal(t, DetailMaxAttempts, o.Detail)
	assert.Equal(t, ReasonRejected, o.Reason)
}

func TestPhraseTableIsComplete(t *testing.T) {
	seen := map[Detail]bool{}
	for _, p := range voicePhrases {
		assert.NotEmpty(t, p.Contains)
		assert.NotEmpty(t, p.Message)
		assert.False(t, seen[p.Detail], "duplicate detail %s", p.Detail)
		seen[p.Detail] = true
	}
	for _, d := range []Detail{DetailNoBackend, DetailNoInternet, DetailIncorrectVoicePIN, DetailUnintelligible, DetailMaxAttempts} {
		assert.True(t, seen[d], "missing phrase for %s", d)
	}
}
