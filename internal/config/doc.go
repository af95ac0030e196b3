// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates trifactor's TOML configuration.
//
// # Sections
//
//   - service: verification service URL, per-stage paths and timeouts
//   - camera: capture backend (command, file, none) and JPEG settings
//   - ui: banner duration, theme, preview size
//   - log, journal, metrics: ambient outputs
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (TRIFACTOR_*)
//   - ~/.trifactor/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := verify.NewClient(&verify.ClientConfig{
//	    BaseURL: cfg.Service.URL,
//	    Timeout: cfg.ServiceTimeout(),
//	})
package config
