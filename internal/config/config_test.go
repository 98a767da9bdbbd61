// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config directory at a fresh temp dir and clears NITI_*
// variables that would leak in from the developer's shell.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)
	for _, key := range []string{
		"NITI_BASE_URL", "NITI_TIMEOUT_SECS", "NITI_RPS", "NITI_EPHEMERAL",
		"NITI_COOKIE_DB", "NITI_TOPICS", "NITI_THEME", "NITI_LOG_LEVEL", "NITI_LOG_PATH",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestConfig_DefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultBaseURL, cfg.Server.BaseURL)
	assert.Equal(t, []string{"best_practices", "policies", "data"}, cfg.Chat.Topics)
	assert.True(t, cfg.Cookies.Persist)
	assert.True(t, cfg.UI.Markdown)
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.BaseURL = "ftp://example.com"
	cfg.Chat.Topics = []string{"policies", "weather"}
	cfg.UI.Theme = "neon"
	cfg.Log.Level = "trace"
	cfg.UI.SidebarWidth = 4

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{
		"chat.topics.1",
		"log.level",
		"server.base_url",
		"ui.sidebar_width",
		"ui.theme",
	}, verrs.Fields())
}

func TestConfig_ValidateBurstOnlyWhenPacing(t *testing.T) {
	cfg := Default()
	cfg.Server.RequestsPerSecond = 0
	cfg.Server.Burst = 0
	assert.NoError(t, cfg.Validate())

	cfg.Server.RequestsPerSecond = 2
	assert.Error(t, cfg.Validate())
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoad_PartialTOMLKeepsDefaults(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), `
[server]
base_url = "https://niti.example.gov/"

[ui]
theme = "Light"
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://niti.example.gov", cfg.Server.BaseURL, "trailing slash trimmed")
	assert.Equal(t, "light", cfg.UI.Theme)
	assert.Equal(t, 30, cfg.Server.TimeoutSecs)
	assert.True(t, cfg.UI.Markdown)
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.json"), `{"ui": {"sidebar_width": 40}}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.UI.SidebarWidth)
}

func TestLoad_BrokenFileReturnsDefaultsAndError(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "[server\nbase_url = ")

	cfg, err := Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultBaseURL, cfg.Server.BaseURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("NITI_BASE_URL", "http://10.0.0.5:9000")
	t.Setenv("NITI_EPHEMERAL", "true")
	t.Setenv("NITI_TOPICS", "policies, data")
	t.Setenv("NITI_TIMEOUT_SECS", "12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:9000", cfg.Server.BaseURL)
	assert.False(t, cfg.Cookies.Persist)
	assert.Equal(t, []string{"policies", "data"}, cfg.Chat.Topics)
	assert.Equal(t, 12, cfg.Server.TimeoutSecs)
}

func TestLoad_EmptyTopicsEnvSelectsNothing(t *testing.T) {
	isolate(t)
	t.Setenv("NITI_TOPICS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Chat.Topics)
	assert.NotNil(t, cfg.Chat.Topics)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "NITI_LOG_LEVEL=debug\nNITI_THEME=light\n")
	t.Setenv("NITI_THEME", "dark")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level, ".env value applied")
	assert.Equal(t, "dark", cfg.UI.Theme, "process environment wins")
}

func TestSaveTOML_RoundTripAndPermissions(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.toml")

	cfg := Default()
	cfg.Server.BaseURL = "https://assistant.example.in"
	cfg.Chat.Topics = []string{"data"}
	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# niti configuration file")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Server, loaded.Server)
	assert.Equal(t, cfg.Chat.Topics, loaded.Chat.Topics)
}

func TestConfig_Paths(t *testing.T) {
	dir := isolate(t)
	cfg := Default()

	db, err := cfg.CookieDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cookies.db"), db)

	logPath, err := cfg.LogPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "niti.log"), logPath)

	cfg.Voice.AudioDir = "/tmp/voices"
	audio, err := cfg.AudioDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/voices", audio)
}

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("server.base_url", "http://127.0.0.1:8000"))
	require.NoError(t, cfg.Set("ui.sidebar_width", "32"))
	require.NoError(t, cfg.Set("ui.markdown", "false"))
	require.NoError(t, cfg.Set("server.requests_per_second", 2))
	require.NoError(t, cfg.Set("chat.topics", "data,policies"))
	require.NoError(t, cfg.Set("voice.max-upload-mb", "10"))

	v, err := cfg.Get("server.base_url")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000", v)
	assert.Equal(t, 32, cfg.UI.SidebarWidth)
	assert.False(t, cfg.UI.Markdown)
	assert.Equal(t, 2.0, cfg.Server.RequestsPerSecond)
	assert.Equal(t, []string{"data", "policies"}, cfg.Chat.Topics)
	assert.Equal(t, 10, cfg.Voice.MaxUploadMB)

	_, err = cfg.Get("server.nope")
	assert.EqualError(t, err, "unknown field: server.nope")
	_, err = cfg.Get("version.more")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("ui.sidebar_width", "wide"))
	assert.Error(t, cfg.Set("", "x"))

	for _, key := range GetAllKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

func TestConfig_CloneIsDeep(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Chat.Topics[0] = "changed"
	clone.Server.BaseURL = "http://other"

	assert.Equal(t, "best_practices", cfg.Chat.Topics[0])
	assert.Equal(t, DefaultBaseURL, cfg.Server.BaseURL)
}

func TestConfig_StringIsTOML(t *testing.T) {
	s := Default().String()
	assert.Contains(t, s, "[server]")
	assert.Contains(t, s, `base_url = "http://localhost:8000"`)
}

// Run with: go test -race ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			assert.NotNil(t, Global())
		}()
		go func() {
			defer wg.Done()
			_ = ReloadGlobal()
		}()
	}
	wg.Wait()
}

func TestGlobal_SetBeforeFirstUse(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	custom := Default()
	custom.UI.Theme = "light"
	SetGlobal(custom)

	assert.Equal(t, "light", Global().UI.Theme)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	var (
		mu     sync.Mutex
		latest *Config
		calls  atomic.Int32
	)
	w, err := NewWatcher(path, func(cfg *Config) {
		mu.Lock()
		latest = cfg
		mu.Unlock()
		calls.Add(1)
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-w.Done()
	})

	// An invalid file is rejected and the callback stays quiet.
	writeFile(t, path, "[ui]\ntheme = \"neon\"\n")
	time.Sleep(3 * DefaultDebounce)
	assert.Equal(t, int32(0), calls.Load())

	cfg := Default()
	cfg.UI.Theme = "dark"
	require.NoError(t, SaveTOML(cfg, path))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return latest != nil && latest.UI.Theme == "dark"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")

	w, err := NewWatcher(path, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	cancel()

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
