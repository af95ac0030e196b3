// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package flow

import (
	"sync"
	"time"
)

// DefaultBannerDuration is how long an error stays visible.
const DefaultBannerDuration = 5 * time.Second

// Banner is the shared error region. Showing a message starts a timer that
// hides it; showing another message first cancels that timer.
type Banner struct {
	duration time.Duration
	onHide   func()

	mu    sync.Mutex
	text  string
	shown time.Time
	timer *time.Timer
	gen   uint64
}

// NewBanner creates a banner. onHide, if set, runs after the timer hides a
// message; it runs outside the banner's lock.
func NewBanner(d time.Duration, onHide func()) *Banner {
	if d <= 0 {
		d = DefaultBannerDuration
	}
	return &Banner{duration: d, onHide: onHide}
}

// Show replaces the current message and restarts the timer.
func (b *Banner) Show(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
	}
	b.gen++
	gen := b.gen
	b.text = text
	b.shown = time.Now()
	b.timer = time.AfterFunc(b.duration, func() { b.expire(gen) })
}

func (b *Banner) expire(gen uint64) {
	b.mu.Lock()
	if gen != b.gen {
		// A newer message replaced this one.
		b.mu.Unlock()
		return
	}
	b.text = ""
	b.timer = nil
	b.mu.Unlock()

	if b.onHide != nil {
		b.onHide()
	}
}

// Hide clears the message immediately.
func (b *Banner) Hide() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++
	b.text = ""
}

// Text returns the visible message, or "".
func (b *Banner) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Expires returns when the current message hides, or the zero time.
func (b *Banner) Expires() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.text == "" {
		return time.Time{}
	}
	return b.shown.Add(b.duration)
}
