// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package verify is the HTTP client for the remote verification service.
//
// Each call sends exactly one request for one factor and returns an Outcome.
// Transport failures (refused connection, DNS, timeout) are reported as
// ReasonServiceUnreachable so the UI can tell "server unreachable" apart from
// an application-level rejection. Nothing is retried here; a retry is always
// a new user-initiated call.
//
// # Endpoints
//
//   - POST /validate-pin  {"pin": "..."}
//   - POST /face-auth     {"image": "data:image/jpeg;base64,..."}
//   - POST /voice-auth    (no body; the service records audio itself)
//
// All respond with {"success": bool, "message": string}.
//
// # Voice messages
//
// The service only returns free text for voice failures. The fixed phrase
// table in classify.go maps known phrases to a Detail code and a friendlier
// message; unknown text passes through verbatim.
package verify
