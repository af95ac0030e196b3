// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed       = errors.New("journal closed")
	ErrInvalidEntry = errors.New("invalid journal entry")
)

// =============================================================================
// TYPES
// =============================================================================

// Attempt is one verification call as seen by the client.
type Attempt struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Stage     string `json:"stage"`
	Accepted  bool   `json:"accepted"`
	// Reason is the outcome label (accepted, rejected, service_unreachable,
	// or a voice detail such as max_attempts).
	Reason  string        `json:"reason"`
	Status  int           `json:"status"`
	Latency time.Duration `json:"latency_ns"`
	At      time.Time     `json:"at"`
}

// DefaultPath returns ~/.trifactor/journal.db.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".trifactor", "journal.db")
	}
	return filepath.Join(home, ".trifactor", "journal.db")
}

// =============================================================================
// JOURNAL
// =============================================================================

// Journal is a SQLite-backed attempt log. Safe for concurrent use.
type Journal struct {
	db     *sql.DB
	path   string
	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidEntry)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	// The database may hold attempt history; keep it private to the user.
	_ = os.Chmod(path, 0600)

	return &Journal{db: db, path: path}, nil
}

// Path returns the database file location.
func (j *Journal) Path() string { return j.path }

// Record appends an attempt. A zero At is stamped with the current time.
func (j *Journal) Record(ctx context.Context, a Attempt) error {
	if a.SessionID == "" || a.Stage == "" || a.Reason == "" {
		return ErrInvalidEntry
	}
	if a.At.IsZero() {
		a.At = time.Now()
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO attempts (session_id, stage, accepted, reason, status, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.SessionID, a.Stage, boolToInt(a.Accepted), a.Reason, a.Status,
		a.Latency.Milliseconds(), a.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// Recent returns up to limit attempts, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	return j.query(ctx,
		`SELECT id, session_id, stage, accepted, reason, status, latency_ms, created_at
		 FROM attempts ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

// Session returns every attempt for one session in the order they happened.
func (j *Journal) Session(ctx context.Context, sessionID string) ([]Attempt, error) {
	return j.query(ctx,
		`SELECT id, session_id, stage, accepted, reason, status, latency_ms, created_at
		 FROM attempts WHERE session_id = ? ORDER BY id ASC`, sessionID)
}

func (j *Journal) query(ctx context.Context, q string, args ...any) ([]Attempt, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a         Attempt
			accepted  int
			latencyMs int64
			createdMs int64
		)
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Stage, &accepted, &a.Reason, &a.Status, &latencyMs, &createdMs); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Accepted = accepted != 0
		a.Latency = time.Duration(latencyMs) * time.Millisecond
		a.At = time.UnixMilli(createdMs)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Ping checks the database is writable.
func (j *Journal) Ping(ctx context.Context) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}
	_, err := j.db.ExecContext(ctx, "UPDATE metadata SET value = value WHERE key = 'schema_version'")
	return err
}

// Close closes the database. Further calls return ErrClosed.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
