// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the trifactor packages: atomic
// file writes for configuration and width-aware string handling for the
// terminal views.
package util
