// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/niti-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete niti configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend connection settings
	Server ServerConfig `toml:"server" json:"server"`

	// Cookie jar persistence
	Cookies CookieConfig `toml:"cookies" json:"cookies"`

	// Chat behaviour
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Voice input and listen output
	Voice VoiceConfig `toml:"voice" json:"voice"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Log file configuration
	Log LogConfig `toml:"log" json:"log"`
}

// ServerConfig describes how to reach the assistant backend.
type ServerConfig struct {
	// BaseURL is the backend origin, e.g. "http://localhost:8000"
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds non-streaming requests. Streamed replies are
	// bounded only by cancellation.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RequestsPerSecond paces outgoing requests; 0 disables pacing
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
	// Burst is the number of requests allowed back to back
	Burst int `toml:"burst" json:"burst"`
}

// CookieConfig controls where session cookies live.
type CookieConfig struct {
	// Persist keeps cookies across restarts in a SQLite database
	Persist bool `toml:"persist" json:"persist"`
	// DBPath overrides the cookie database location
	DBPath string `toml:"db_path" json:"db_path"`
}

// ChatConfig contains chat defaults.
type ChatConfig struct {
	// Topics are the collections selected when the client starts
	Topics []string `toml:"topics" json:"topics"`
}

// VoiceConfig contains audio settings.
type VoiceConfig struct {
	// AudioDir is where listened replies are saved
	AudioDir string `toml:"audio_dir" json:"audio_dir"`
	// MaxUploadMB caps the size of an audio file sent for transcription
	MaxUploadMB int `toml:"max_upload_mb" json:"max_upload_mb"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "auto", "dark", "light"
	Theme string `toml:"theme" json:"theme"`
	// SidebarWidth is the width of the chat list in columns
	SidebarWidth int `toml:"sidebar_width" json:"sidebar_width"`
	// Markdown renders assistant replies as markdown
	Markdown bool `toml:"markdown" json:"markdown"`
	// Mouse enables mouse wheel scrolling
	Mouse bool `toml:"mouse" json:"mouse"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// Path overrides the log file location
	Path string `toml:"path" json:"path"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// DefaultBaseURL is the address the backend listens on in development.
const DefaultBaseURL = "http://localhost:8000"

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			BaseURL:           DefaultBaseURL,
			TimeoutSecs:       30,
			RequestsPerSecond: 5,
			Burst:             10,
		},

		Cookies: CookieConfig{
			Persist: true,
		},

		Chat: ChatConfig{
			Topics: []string{"best_practices", "policies", "data"},
		},

		Voice: VoiceConfig{
			MaxUploadMB: 25,
		},

		UI: UIConfig{
			Theme:        "auto",
			SidebarWidth: 28,
			Markdown:     true,
			Mouse:        true,
		},

		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// HomeEnv overrides the configuration directory.
const HomeEnv = "NITI_HOME"

// ConfigDir returns the niti configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".niti"), nil
}

func configFile(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	return configFile("config.toml")
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	return configFile("config.json")
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// CookieDBPath returns the configured cookie database path or the default
// inside the config directory.
func (c *Config) CookieDBPath() (string, error) {
	if c.Cookies.DBPath != "" {
		return c.Cookies.DBPath, nil
	}
	return configFile("cookies.db")
}

// LogPath returns the configured log file path or the default.
func (c *Config) LogPath() (string, error) {
	if c.Log.Path != "" {
		return c.Log.Path, nil
	}
	return configFile("niti.log")
}

// AudioDir returns the directory listened replies are written to.
func (c *Config) AudioDir() (string, error) {
	if c.Voice.AudioDir != "" {
		return c.Voice.AudioDir, nil
	}
	return configFile("audio")
}

// ensureSecurePermissions tightens a config file to owner read/write.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config directory.
// Tries TOML first, then JSON, and falls back to defaults. A .env file in the
// working directory or config directory is applied before NITI_* overrides.
// A broken config file yields defaults plus the load error.
func Load() (*Config, error) {
	LoadDotEnv()

	var loadErr error
	for _, find := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := find()
		if err != nil {
			loadErr = err
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err != nil {
			loadErr = err
			continue
		}
		return cfg, nil
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loadErr
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file with full
// validation. Keys missing from the file keep their default values.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills zero values that would make the client unusable.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	c.Server.BaseURL = strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = d.Server.BaseURL
	}
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = d.Server.TimeoutSecs
	}
	if c.Server.RequestsPerSecond > 0 && c.Server.Burst == 0 {
		c.Server.Burst = d.Server.Burst
	}
	if c.Chat.Topics == nil {
		c.Chat.Topics = d.Chat.Topics
	}
	if c.Voice.MaxUploadMB == 0 {
		c.Voice.MaxUploadMB = d.Voice.MaxUploadMB
	}
	c.UI.Theme = strings.ToLower(c.UI.Theme)
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = d.UI.SidebarWidth
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

const fileHeader = `# niti configuration file
# Generated by niti - edit with care
#
# Environment variables (NITI_*) and a .env file override these values.

`

// SaveTOML writes the configuration atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration as indented JSON.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Chat.Topics != nil {
		clone.Chat.Topics = append([]string(nil), c.Chat.Topics...)
	}
	return &clone
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
