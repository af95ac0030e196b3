// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, AtomicWriteFile(path, []byte("hello"), 0600))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "config.toml")
	require.NoError(t, AtomicWriteFile(path, []byte("x"), 0600))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestAtomicWriteFile_OverwritesWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, AtomicWriteFile(path, []byte("initial"), 0600))
	require.NoError(t, AtomicWriteFile(path, []byte("updated"), 0600))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "updated", string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

// =============================================================================
// WIDTH TESTS
// =============================================================================

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"Incorrect PIN", 40, "Incorrect PIN"},
		{"Server unreachable. Ensure backend is running.", 12, "Server un..."},
		{"abc", 0, ""},
		{"abcdef", 2, "ab"},
		{"顔認証に失敗しました", 7, "顔認..."},
	}
	for _, tt := range tests {
		got := TruncateWidth(tt.in, tt.width)
		assert.Equal(t, tt.want, got, "%q@%d", tt.in, tt.width)
		assert.LessOrEqual(t, StringWidth(got), max(tt.width, 0))
	}
}

func TestWrapWidth(t *testing.T) {
	msg := "Voice recognition failed: No backend available. Ensure the server has internet and 'flac' installed."
	lines := WrapWidth(msg, 30)
	require.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, StringWidth(l), 30, l)
	}
	assert.Equal(t, strings.Fields(msg), strings.Fields(strings.Join(lines, " ")))
}

func TestWrapWidth_LongWordAndWideRunes(t *testing.T) {
	lines := WrapWidth("aaaaaaaaaa", 4)
	assert.Equal(t, []string{"aaaa", "aaaa", "aa"}, lines)

	lines = WrapWidth("顔", 1)
	assert.Equal(t, []string{"顔"}, lines)
}

func TestWrapWidth_KeepsNewlines(t *testing.T) {
	assert.Equal(t, []string{"one", "two"}, WrapWidth("one\ntwo", 20))
	assert.Equal(t, []string{"x"}, WrapWidth("x", 0))
}
