// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "sub", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestOpenCreatesPrivateFile(t *testing.T) {
	j := openTemp(t)

	info, err := os.Stat(j.Path())
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
	assert.NoError(t, j.Ping(context.Background()))
}

func TestRecordAndRecent(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	entries := []Attempt{
		{SessionID: "s1", Stage: "pin", Reason: "rejected", Status: 401, Latency: 12 * time.Millisecond, At: base},
		{SessionID: "s1", Stage: "pin", Accepted: true, Reason: "accepted", Status: 200, At: base.Add(time.Second)},
		{SessionID: "s1", Stage: "face", Reason: "service_unreachable", At: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		require.NoError(t, j.Record(ctx, e))
	}

	recent, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "face", recent[0].Stage)
	assert.Equal(t, "service_unreachable", recent[0].Reason)
	assert.True(t, recent[1].Accepted)

	all, err := j.Session(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 401, all[0].Status)
	assert.Equal(t, 12*time.Millisecond, all[0].Latency)
	assert.False(t, all[0].Accepted)
}

func TestRecordRejectsIncompleteEntries(t *testing.T) {
	j := openTemp(t)
	err := j.Record(context.Background(), Attempt{Stage: "pin", Reason: "accepted"})
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestRecordStampsTime(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	before := time.Now().Add(-time.Second)

	require.NoError(t, j.Record(ctx, Attempt{SessionID: "s", Stage: "voice", Reason: "max_attempts"}))
	got, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].At.After(before))
}

func TestClosedJournal(t *testing.T) {
	j := openTemp(t)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	assert.ErrorIs(t, j.Record(context.Background(), Attempt{SessionID: "s", Stage: "pin", Reason: "accepted"}), ErrClosed)
	_, err := j.Recent(context.Background(), 5)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(context.Background(), Attempt{SessionID: "s", Stage: "pin", Reason: "accepted", Accepted: true}))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	got, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
