// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for niti.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env files, environment variable overrides, validation and live reload.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: Backend origin, timeouts and request pacing
//   - CookieConfig: Cookie jar persistence
//   - Watcher: fsnotify-based reload of the config file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (NITI_*), including those from .env
//   - ~/.niti/config.toml (or $NITI_HOME/config.toml)
//   - ~/.niti/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
//	}
//	client := api.NewClient(cfg.Server.BaseURL, ...)
package config
