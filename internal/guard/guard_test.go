// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package guard

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryEnterExit(t *testing.T) {
	var g Guard

	require.False(t, g.Busy())
	require.True(t, g.TryEnter())
	require.True(t, g.Busy())

	// Second entry is refused without changing state.
	require.False(t, g.TryEnter())
	require.True(t, g.Busy())
	assert.Equal(t, int64(1), g.Rejected())

	g.Exit()
	require.False(t, g.Busy())
	require.True(t, g.TryEnter())
	g.Exit()
}

func TestExitWithoutEnterPanics(t *testing.T) {
	var g Guard
	assert.Panics(t, func() { g.Exit() })
}

// TestConcurrentEntry verifies exactly one of many simultaneous callers wins.
//
// Run with: go test -race -run TestConcurrentEntry
func TestConcurrentEntry(t *testing.T) {
	var g Guard
	var winners atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.TryEnter() {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, int64(63), g.Rejected())
	g.Exit()
}
