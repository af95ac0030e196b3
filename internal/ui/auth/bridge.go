// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/trifactor-tui/internal/flow"
)

// SnapshotMsg carries a new flow state into the UI loop.
type SnapshotMsg struct {
	Snapshot flow.Snapshot
}

// Bridge hands snapshots from the controller to the UI loop.
type Bridge struct {
	mu     sync.Mutex
	latest flow.Snapshot
	fresh  bool

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewBridge creates a bridge.
func NewBridge() *Bridge {
	return &Bridge{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Observe records s as the latest snapshot. It never blocks and is meant to
// be passed to flow.WithObserver.
func (b *Bridge) Observe(s flow.Snapshot) {
	b.mu.Lock()
	b.latest = s
	b.fresh = true
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Wait returns a command that blocks until a snapshot newer than the last
// delivered one exists. After Close it returns nil.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case <-b.done:
				return nil
			case <-b.notify:
			}

			b.mu.Lock()
			s, fresh := b.latest, b.fresh
			b.fresh = false
			b.mu.Unlock()
			if fresh {
				return SnapshotMsg{Snapshot: s}
			}
		}
	}
}

// Close stops pending and future Wait commands.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}
