// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// LoadDotEnv loads .env from the working directory and the config directory.
// Variables already present in the environment win, and missing files are
// ignored.
func LoadDotEnv() {
	candidates := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// ApplyEnvOverrides applies NITI_* environment variables.
//
// Supported variables:
//   - NITI_BASE_URL: overrides server.base_url
//   - NITI_TIMEOUT_SECS: overrides server.timeout_secs
//   - NITI_RPS: overrides server.requests_per_second
//   - NITI_EPHEMERAL: "1"/"true" disables cookie persistence
//   - NITI_COOKIE_DB: overrides cookies.db_path
//   - NITI_TOPICS: comma-separated list, overrides chat.topics
//   - NITI_THEME: overrides ui.theme
//   - NITI_LOG_LEVEL: overrides log.level
//   - NITI_LOG_PATH: overrides log.path
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NITI_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("NITI_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.TimeoutSecs = n
		}
	}
	if v := os.Getenv("NITI_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Server.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("NITI_EPHEMERAL"); v != "" {
		c.Cookies.Persist = !parseBool(v)
	}
	if v := os.Getenv("NITI_COOKIE_DB"); v != "" {
		c.Cookies.DBPath = v
	}
	if v, ok := os.LookupEnv("NITI_TOPICS"); ok {
		c.Chat.Topics = splitList(v)
	}
	if v := os.Getenv("NITI_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("NITI_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("NITI_LOG_PATH"); v != "" {
		c.Log.Path = v
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes"
}

// splitList splits a comma-separated value, dropping blanks. An empty input
// yields an empty, non-nil list.
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
