// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/niti-tui/internal/api"
	"github.com/jeranaias/niti-tui/internal/api/apitest"
	"github.com/jeranaias/niti-tui/internal/chat"
	"github.com/jeranaias/niti-tui/internal/config"
)

// harness runs commands against a fake backend with a private home
// directory, so cookies persist between runs like they do for a user.
type harness struct {
	t       *testing.T
	backend *apitest.Backend
	home    string
}

func newHarness(t *testing.T) *harness {
	home := t.TempDir()
	t.Setenv(config.HomeEnv, home)
	t.Setenv("NO_COLOR", "1")
	return &harness{t: t, backend: apitest.New(t), home: home}
}

// run executes one command line and returns its stdout.
func (h *harness) run(args ...string) (string, error) {
	root, e := newRoot()
	defer e.close()

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--base-url", h.backend.URL}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "niti %s", strings.Join(args, " "))
	return out
}

// env returns a set-up environment for driving helpers directly.
func (h *harness) env() *env {
	e := &env{opts: globalOptions{baseURL: h.backend.URL}}
	require.NoError(h.t, e.setup(&cobra.Command{Use: "niti"}))
	h.t.Cleanup(e.close)
	return e
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("version")
	assert.Contains(t, out, "niti "+Version)
	assert.Contains(t, out, "go")
}

func TestChats_FirstRunCreatesChatOnce(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("chats")
	assert.Contains(t, out, "* Chat 1")
	assert.Contains(t, out, "chat-1")

	h.mustRun("chats")
	assert.Equal(t, 1, h.backend.Count("POST", "/api/new_chat"))
	assert.Equal(t, []string{"chat-1"}, h.backend.ChatIDs("user-1"))
}

func TestChats_JSON(t *testing.T) {
	h := newHarness(t)
	h.mustRun("chats")
	h.mustRun("new")

	out := h.mustRun("chats", "--json")
	var chats []chatJSON
	require.NoError(t, json.Unmarshal([]byte(out), &chats))
	assert.Equal(t, []chatJSON{
		{ID: "chat-2", Name: "Chat 2", Active: true},
		{ID: "chat-1", Name: "Chat 1", Active: false},
	}, chats)
}

func TestAsk_StreamsReply(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("ask", "hi")
	assert.Equal(t, "You said: hi\n", out)

	posts := h.backend.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, "chat-1", posts[0].ChatID)
	assert.Equal(t, []string{"best_practices", "policies", "data"}, posts[0].Collections)
}

func TestSessionEcho_EndOfReplyKeepsCount(t *testing.T) {
	var out bytes.Buffer
	s := &session{out: &out}

	s.echo(chat.State{IsProcessing: true, CurrentStreamedMessage: "Hi"})
	s.echo(chat.State{IsProcessing: true, CurrentStreamedMessage: "Hi there"})
	s.echo(chat.State{})

	assert.Equal(t, "Hi there", out.String())
	assert.Equal(t, len("Hi there"), s.printed)
}

func TestAsk_RepliesEndWithNewline(t *testing.T) {
	h := newHarness(t)
	var out bytes.Buffer
	r := newTestRepl(t, h, &out)
	ctx := context.Background()

	out.Reset()
	require.NoError(t, r.handle(ctx, "one"))
	require.NoError(t, r.handle(ctx, "two"))
	assert.Equal(t, "You said: one\nYou said: two\n", out.String())
}

func TestAsk_Topics(t *testing.T) {
	h := newHarness(t)

	h.mustRun("ask", "-t", "data,policies", "one")
	h.mustRun("ask", "--no-topics", "two")

	posts := h.backend.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, []string{"policies", "data"}, posts[0].Collections)
	assert.Empty(t, posts[1].Collections)
}

func TestAsk_UnknownTopic(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("ask", "-t", "weather", "hi")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))
	assert.Zero(t, h.backend.Count("POST", "/api/chat"))
}

func TestAsk_NewStartsAnotherChat(t *testing.T) {
	h := newHarness(t)
	h.mustRun("ask", "first")
	h.mustRun("ask", "--new", "second")

	posts := h.backend.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, "chat-1", posts[0].ChatID)
	assert.Equal(t, "chat-2", posts[1].ChatID)
}

func TestHistory(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.mustRun("history"), "No messages yet")

	h.mustRun("ask", "hello")
	out := h.mustRun("history")
	assert.Contains(t, out, "You:\nhello")
	assert.Contains(t, out, "Assistant:\nYou said: hello")
}

func TestUse_SelectionPersists(t *testing.T) {
	h := newHarness(t)
	h.mustRun("chats")
	assert.Equal(t, "Created Chat 2 (chat-2)\n", h.mustRun("new"))

	assert.Equal(t, "Using Chat 1 (chat-1)\n", h.mustRun("use", "1"))
	assert.Contains(t, h.mustRun("chats"), "* Chat 1")

	h.mustRun("ask", "hi")
	posts := h.backend.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, "chat-1", posts[0].ChatID)
}

func TestUse_NotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("use", "Chat 9")
	require.Error(t, err)
	assert.Equal(t, ExitNotFoundError, ExitCode(err))
}

func TestDelete(t *testing.T) {
	h := newHarness(t)
	h.mustRun("chats")
	h.mustRun("new")

	out := h.mustRun("delete", "chat-2")
	assert.Contains(t, out, "Deleted chat-2")
	assert.Contains(t, out, "* Chat 1")
	assert.Equal(t, []string{"chat-1"}, h.backend.ChatIDs("user-1"))
}

func TestDelete_LastChatCreatesAnother(t *testing.T) {
	h := newHarness(t)
	h.mustRun("chats")

	out := h.mustRun("rm", "Chat 1")
	assert.Contains(t, out, "Deleted chat-1")
	assert.Equal(t, []string{"chat-2"}, h.backend.ChatIDs("user-1"))
}

func TestTranscribe(t *testing.T) {
	h := newHarness(t)
	clip := filepath.Join(t.TempDir(), "clip.webm")
	require.NoError(t, os.WriteFile(clip, []byte("webm bytes"), 0600))

	assert.Equal(t, "transcribed words\n", h.mustRun("transcribe", clip))

	out := h.mustRun("transcribe", "--send", "-t", "policies", clip)
	assert.Contains(t, out, "You: transcribed words")
	assert.Contains(t, out, "You said: transcribed words")

	posts := h.backend.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, []string{"policies"}, posts[0].Collections)
}

func TestSpeak(t *testing.T) {
	h := newHarness(t)

	target := filepath.Join(t.TempDir(), "reply.wav")
	assert.Equal(t, target+"\n", h.mustRun("speak", "-o", target, "hello", "there"))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, h.backend.Speech, data)
}

func TestSpeak_Last(t *testing.T) {
	h := newHarness(t)
	h.mustRun("ask", "hello")

	out := strings.TrimSpace(h.mustRun("speak", "--last"))
	assert.Equal(t, filepath.Join(h.home, "audio"), filepath.Dir(out))
	assert.Equal(t, ".wav", filepath.Ext(out))
	_, err := os.Stat(out)
	assert.NoError(t, err)
}

func TestSpeak_NeedsTextOrLast(t *testing.T) {
	h := newHarness(t)
	for _, args := range [][]string{{"speak"}, {"speak", "--last", "text"}} {
		_, err := h.run(args...)
		require.Error(t, err)
		assert.Equal(t, ExitUsageError, ExitCode(err), args)
	}
}

func TestConfig_PathAndKeys(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, filepath.Join(h.home, "config.toml")+"\n", h.mustRun("config", "path"))
	assert.Contains(t, h.mustRun("config", "keys"), "server.base_url\n")
	assert.Equal(t, "best_practices,policies,data\n", h.mustRun("config", "get", "chat.topics"))

	_, err := h.run("config", "get", "nope.key")
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestConfig_SetSavesFile(t *testing.T) {
	h := newHarness(t)

	h.mustRun("config", "set", "ui.theme", "light")
	assert.Equal(t, "light\n", h.mustRun("config", "get", "ui.theme"))

	data, err := os.ReadFile(filepath.Join(h.home, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `theme = "light"`)
	assert.NotContains(t, string(data), h.backend.URL)
}

func TestConfig_SetRejectsInvalid(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("config", "set", "ui.theme", "purple")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))
	_, statErr := os.Stat(filepath.Join(h.home, "config.toml"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestConfig_Init(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("config", "init")
	assert.Contains(t, out, "Wrote ")

	_, err := h.run("config", "init")
	assert.Equal(t, ExitUsageError, ExitCode(err))

	h.mustRun("config", "init", "--force")
}

// =============================================================================
// REPL
// =============================================================================

func newTestRepl(t *testing.T, h *harness, out *bytes.Buffer, collections ...string) *repl {
	t.Helper()
	ctx := context.Background()
	r, err := h.env().newRepl(ctx, out, collections)
	require.NoError(t, err)
	t.Cleanup(r.s.close)
	require.NoError(t, r.s.open(ctx, false))
	return r
}

func TestRepl_SendAndTopics(t *testing.T) {
	h := newHarness(t)
	var out bytes.Buffer
	r := newTestRepl(t, h, &out, "policies")
	ctx := context.Background()

	require.NoError(t, r.handle(ctx, "hello"))
	assert.Contains(t, out.String(), "You said: hello")

	require.NoError(t, r.handle(ctx, "/topics data best_practices"))
	assert.Contains(t, out.String(), "[x] Data Profile (data)")
	require.NoError(t, r.handle(ctx, "again"))

	err := r.handle(ctx, "/topics weather")
	var usage *UsageError
	assert.ErrorAs(t, err, &usage)

	posts := h.backend.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, []string{"policies"}, posts[0].Collections)
	assert.Equal(t, []string{"best_practices", "data"}, posts[1].Collections)
}

func TestRepl_ChatCommands(t *testing.T) {
	h := newHarness(t)
	var out bytes.Buffer
	r := newTestRepl(t, h, &out)
	ctx := context.Background()

	assert.Equal(t, "Chat 1> ", r.prompt())
	require.NoError(t, r.handle(ctx, "/new"))
	assert.Equal(t, "Chat 2> ", r.prompt())

	require.NoError(t, r.handle(ctx, "/use 1"))
	assert.Equal(t, "Chat 1> ", r.prompt())

	// The server renumbers the remaining chat.
	require.NoError(t, r.handle(ctx, "/delete"))
	assert.Equal(t, "chat-2", r.s.ctl.ActiveID())
	assert.Equal(t, "Chat 1> ", r.prompt())
	assert.Equal(t, []string{"chat-2"}, h.backend.ChatIDs("user-1"))

	out.Reset()
	require.NoError(t, r.handle(ctx, "/chats"))
	assert.Contains(t, out.String(), "* Chat 1")

	assert.ErrorIs(t, r.handle(ctx, "/quit"), errQuit)

	var usage *UsageError
	assert.ErrorAs(t, r.handle(ctx, "/bogus"), &usage)
}

func TestRepl_Voice(t *testing.T) {
	h := newHarness(t)
	var out bytes.Buffer
	r := newTestRepl(t, h, &out)
	ctx := context.Background()

	clip := filepath.Join(t.TempDir(), "clip.ogg")
	require.NoError(t, os.WriteFile(clip, []byte("ogg bytes"), 0600))
	require.NoError(t, r.handle(ctx, "/audio "+clip))
	assert.Contains(t, out.String(), "You said: transcribed words")

	target := filepath.Join(t.TempDir(), "reply.wav")
	require.NoError(t, r.handle(ctx, "/listen "+target))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, h.backend.Speech, data)

	out.Reset()
	require.NoError(t, r.handle(ctx, "/history"))
	assert.Contains(t, out.String(), "You:\ntranscribed words")

	saved := filepath.Join(t.TempDir(), "chat.md")
	require.NoError(t, r.handle(ctx, "/export "+saved))
	data, err = os.ReadFile(saved)
	require.NoError(t, err)
	assert.Contains(t, string(data), "### Assistant\n\nYou said: transcribed words")
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", &UsageError{Reason: "bad"}, ExitUsageError},
		{"tty", &TTYRequiredError{Operation: "chat"}, ExitUsageError},
		{"config", fmt.Errorf("load: %w", config.ValidateErrors{}), ExitConfigError},
		{"forbidden", &api.StatusError{Op: "delete chat", Status: 403}, ExitAuthError},
		{"not found", &NotFoundError{Resource: "chat", ID: "x"}, ExitNotFoundError},
		{"timeout", fmt.Errorf("send: %w", context.DeadlineExceeded), ExitTimeoutError},
		{"network", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, ExitNetworkError},
		{"server", &api.StatusError{Op: "list chats", Status: 500}, ExitGeneralError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	h.mustRun("ask", "hello")

	target := filepath.Join(t.TempDir(), "chat.json")
	assert.Equal(t, target+"\n", h.mustRun("export", "1", "--format", "json", "-o", target))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"chat_id": "chat-1"`)
	assert.Contains(t, string(data), `"content": "You said: hello"`)

	dir := t.TempDir()
	out := strings.TrimSpace(h.mustRun("export", "--dir", dir))
	assert.Equal(t, dir, filepath.Dir(out))
	assert.Equal(t, ".md", filepath.Ext(out))

	_, err = h.run("export", "--format", "pdf")
	assert.Equal(t, ExitUsageError, ExitCode(err))
}
