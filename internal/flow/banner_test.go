// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package flow

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBannerHidesAfterDuration(t *testing.T) {
	var hidden atomic.Int32
	b := NewBanner(20*time.Millisecond, func() { hidden.Add(1) })

	b.Show("Incorrect PIN")
	assert.Equal(t, "Incorrect PIN", b.Text())
	assert.True(t, b.Expires().After(time.Now()))

	require.Eventually(t, func() bool { return b.Text() == "" }, time.Second, 2*time.Millisecond)
	require.Eventually(t, func() bool { return hidden.Load() == 1 }, time.Second, 2*time.Millisecond)
	assert.True(t, b.Expires().IsZero())
}

func TestBannerReplaceRestartsTimer(t *testing.T) {
	var hidden atomic.Int32
	b := NewBanner(80*time.Millisecond, func() { hidden.Add(1) })

	b.Show("first")
	time.Sleep(50 * time.Millisecond)
	b.Show("second")
	time.Sleep(50 * time.Millisecond)

	// The first timer would have fired by now had it not been cancelled.
	assert.Equal(t, "second", b.Text())
	assert.Zero(t, hidden.Load())

	require.Eventually(t, func() bool { return b.Text() == "" }, time.Second, 2*time.Millisecond)
	assert.EqualValues(t, 1, hidden.Load())
}

func TestBannerHideCancels(t *testing.T) {
	var hidden atomic.Int32
	b := NewBanner(10*time.Millisecond, func() { hidden.Add(1) })

	b.Show("x")
	b.Hide()
	assert.Empty(t, b.Text())
	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, hidden.Load())
}

func TestBannerExpires(t *testing.T) {
	b := NewBanner(time.Minute, nil)
	assert.True(t, b.Expires().IsZero())

	before := time.Now()
	b.Show("Camera access denied")
	exp := b.Expires()
	assert.False(t, exp.Before(before.Add(time.Minute)))
	assert.True(t, exp.Before(time.Now().Add(time.Minute+time.Second)))

	b.Hide()
	assert.True(t, b.Expires().IsZero())
}

func TestBannerDefaultDuration(t *testing.T) {
	b := NewBanner(0, nil)
	b.Show("x")
	defer b.Hide()
	assert.WithinDuration(t, time.Now().Add(DefaultBannerDuration), b.Expires(), time.Second)
}

func TestSessionStatus(t *testing.T) {
	s := newSession(StageVoice)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, StageVoice, s.Status())

	s.LastError = &Error{Kind: KindRejected, Stage: StageVoice, Message: "no"}
	assert.Equal(t, StageFailed, s.Status())

	s.busy = true
	assert.Equal(t, StageVoice, s.Status(), "a new attempt leaves Failed")
}

func TestDescriptors(t *testing.T) {
	stages := Stages()
	require.Len(t, stages, 3)
	assert.Equal(t, LabelProceed, stages[0].Label)
	assert.Equal(t, LabelVerify, stages[1].Label)
	assert.Equal(t, LabelVoice, stages[2].Label)
	assert.True(t, stages[1].RequiresCapture)
	assert.False(t, stages[0].RequiresCapture)
	assert.False(t, stages[2].RequiresCapture)

	_, ok := Describe(StageFailed)
	assert.False(t, ok)
}

func TestNormalizePIN(t *testing.T) {
	assert.Equal(t, "1234", NormalizePIN(" １２３４\n"))
	assert.Equal(t, "", NormalizePIN("   "))
}
