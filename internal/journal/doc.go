// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package journal records verification attempts in a local SQLite database.
//
// The journal is an audit trail only. It stores which stage was attempted,
// how it was classified and how long the service took to answer. It never
// stores a PIN or an image, and the flow never reads it back to restore a
// session: every run starts at a fresh stage.
//
// Usage:
//
//	j, err := journal.Open(journal.DefaultPath())
//	if err != nil {
//		return err
//	}
//	defer j.Close()
//
//	_ = j.Record(ctx, journal.Attempt{SessionID: id, Stage: "pin", Reason: "accepted"})
//	recent, _ := j.Recent(ctx, 20)
package journal
