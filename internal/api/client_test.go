// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/niti-tui/internal/api/apitest"
	"github.com/jeranaias/niti-tui/internal/cookie"
	"github.com/jeranaias/niti-tui/internal/model"
	"github.com/jeranaias/niti-tui/internal/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *cookie.Store, *apitest.Backend) {
	t.Helper()
	backend := apitest.New(t)
	jar, err := cookie.NewMemoryStore(backend.URL)
	require.NoError(t, err)
	client, err := NewClient(backend.URL)
	require.NoError(t, err)
	client.WithCookieJar(jar).WithTimeout(5 * time.Second)
	return client, jar, backend
}

func TestNewClient_RejectsInvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "ftp://host", "http://"} {
		_, err := NewClient(raw)
		assert.Error(t, err, raw)
	}
	c, err := NewClient("http://localhost:8000/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
}

func TestListChats_FreshUserGetsCookie(t *testing.T) {
	client, jar, _ := newTestClient(t)

	chats, err := client.ListChats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, chats)
	assert.NotNil(t, chats)

	user, ok := jar.Get(cookie.UserSessionID)
	assert.True(t, ok)
	assert.NotEmpty(t, user)
}

func TestListChats_NewestFirst(t *testing.T) {
	client, jar, backend := newTestClient(t)
	backend.SeedUser("u1", "b", "a")
	jar.Set(cookie.UserSessionID, "u1")

	chats, err := client.ListChats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ChatList{{ID: "a", Name: "Chat 2"}, {ID: "b", Name: "Chat 1"}}, chats)
}

func TestNewChat_SetsSessionCookies(t *testing.T) {
	client, jar, backend := newTestClient(t)

	id, err := client.NewChat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "chat-1", id)

	session, ok := jar.Get(cookie.SessionID)
	require.True(t, ok)
	assert.Equal(t, id, session)

	user, _ := jar.Get(cookie.UserSessionID)
	assert.Equal(t, []string{"chat-1"}, backend.ChatIDs(user))
}

func TestNewChat_MissingSessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"ok"}`)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = client.NewChat(context.Background())
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestChatHistory_ForeignChatIsNotAuthorized(t *testing.T) {
	client, jar, backend := newTestClient(t)
	backend.SeedUser("owner", "secret")
	backend.SeedUser("intruder")
	jar.Set(cookie.UserSessionID, "intruder")

	_, err := client.ChatHistory(context.Background(), "secret")
	require.Error(t, err)
	assert.True(t, IsNotAuthorized(err))
	assert.Equal(t, http.StatusForbidden, StatusCode(err))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Unauthorized", se.Message)
	assert.Equal(t, "chat history", se.Op)
	assert.NotEmpty(t, se.RequestID)
}

func TestChatHistory_ReturnsMessages(t *testing.T) {
	client, jar, backend := newTestClient(t)
	backend.SeedUser("u1", "c1")
	backend.SeedHistory("c1", model.NewUserMessage("Hi"), model.NewAssistantMessage("Hello"))
	jar.Set(cookie.UserSessionID, "u1")

	msgs, err := client.ChatHistory(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []model.Message{
		{Role: model.RoleUser, Content: "Hi"},
		{Role: model.RoleAssistant, Content: "Hello"},
	}, msgs)
}

func TestDeleteChat_ReturnsRenumberedList(t *testing.T) {
	client, jar, backend := newTestClient(t)
	backend.SeedUser("u1", "c1", "c2", "c3")
	jar.Set(cookie.UserSessionID, "u1")

	chats, err := client.DeleteChat(context.Background(), "c2")
	require.NoError(t, err)
	assert.Equal(t, model.ChatList{{ID: "c3", Name: "Chat 2"}, {ID: "c1", Name: "Chat 1"}}, chats)

	_, err = client.DeleteChat(context.Background(), "c2")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestServerError_IsNotAuthorizationFailure(t *testing.T) {
	client, _, backend := newTestClient(t)
	backend.Fail(http.MethodGet, "/api/chats", http.StatusInternalServerError)

	_, err := client.ListChats(context.Background())
	require.Error(t, err)
	assert.False(t, IsNotAuthorized(err))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Equal(t, "list chats: HTTP 500: injected failure", err.Error())
}

func TestSendChat_StreamsFragments(t *testing.T) {
	client, jar, backend := newTestClient(t)
	ctx := context.Background()
	id, err := client.NewChat(ctx)
	require.NoError(t, err)

	body, err := client.SendChat(ctx, "hello", []string{"policies"})
	require.NoError(t, err)
	defer body.Close()

	var partials []string
	text, err := sse.NewDecoder(nil).Decode(ctx, body, func(u sse.Update) {
		partials = append(partials, u.Text)
	})
	require.NoError(t, err)
	assert.Equal(t, "You said: hello", text)
	assert.Equal(t, []string{"You said: ", "You said: hello"}, partials)

	posts := backend.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, apitest.ChatPost{ChatID: id, Text: "hello", Collections: []string{"policies"}}, posts[0])

	session, _ := jar.Get(cookie.SessionID)
	assert.Equal(t, id, session)
}

func TestSendChat_NilCollectionsSentAsEmptyArray(t *testing.T) {
	client, _, backend := newTestClient(t)
	ctx := context.Background()
	_, err := client.NewChat(ctx)
	require.NoError(t, err)

	body, err := client.SendChat(ctx, "x", nil)
	require.NoError(t, err)
	io.Copy(io.Discard, body)
	body.Close()

	posts := backend.Posts()
	require.Len(t, posts, 1)
	assert.NotNil(t, posts[0].Collections)
	assert.Empty(t, posts[0].Collections)
}

func TestSendChat_WithoutSessionCookie(t *testing.T) {
	client, _, _ := newTestClient(t)

	_, err := client.SendChat(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	assert.False(t, IsNotAuthorized(err))
}

func TestSendChat_ForeignChatIsNotAuthorized(t *testing.T) {
	client, jar, backend := newTestClient(t)
	backend.SeedUser("owner", "theirs")
	backend.SeedUser("me", "mine")
	jar.Set(cookie.UserSessionID, "me")
	jar.Set(cookie.SessionID, "theirs")

	_, err := client.SendChat(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Empty(t, backend.Posts())
}

func TestSendChat_CancelAbortsRead(t *testing.T) {
	client, _, backend := newTestClient(t)
	_, err := client.NewChat(context.Background())
	require.NoError(t, err)

	started, release := backend.Hold()
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	body, err := client.SendChat(ctx, "slow", nil)
	require.NoError(t, err)
	defer body.Close()

	<-started
	line, err := bufio.NewReader(body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: \"You said: \"\n", line)

	cancel()
	_, err = io.ReadAll(body)
	assert.Error(t, err)
}

func TestRequestsCarryUniqueRequestIDs(t *testing.T) {
	client, _, backend := newTestClient(t)
	ctx := context.Background()
	_, _ = client.ListChats(ctx)
	_, _ = client.ListChats(ctx)

	reqs := backend.Requests()
	require.Len(t, reqs, 2)
	assert.NotEmpty(t, reqs[0].RequestID)
	assert.NotEqual(t, reqs[0].RequestID, reqs[1].RequestID)
}

func TestRateLimit_WaitHonoursContext(t *testing.T) {
	client, _, backend := newTestClient(t)
	client.WithRateLimit(0.01, 1)

	_, err := client.ListChats(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.ListChats(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, backend.Count(http.MethodGet, "/api/chats"))
}

func TestAudioFilename(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 678*int(time.Millisecond), time.UTC)
	assert.Equal(t, "2024-01-02T03-04-05-678Z.webm", AudioFilename(ts))

	ist := time.FixedZone("IST", 5*3600+1800)
	assert.Equal(t, "2024-01-01T21-34-05-000Z.webm", AudioFilename(time.Date(2024, 1, 2, 3, 4, 5, 0, ist)))
}

func TestTranscribe(t *testing.T) {
	client, _, backend := newTestClient(t)
	backend.Transcript = "  what are the policies on solar  "

	name := AudioFilename(time.Now())
	text, err := client.Transcribe(context.Background(), strings.NewReader("OggS-bytes"), name)
	require.NoError(t, err)
	assert.Equal(t, "what are the policies on solar", text)

	uploads := backend.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, name, uploads[0].Filename)
	assert.Equal(t, AudioContentType, uploads[0].ContentType)
	assert.Equal(t, len("OggS-bytes"), uploads[0].Size)
}

func TestTranscribe_EmptyAudioSendsNothing(t *testing.T) {
	client, _, backend := newTestClient(t)

	_, err := client.Transcribe(context.Background(), strings.NewReader(""), "x.webm")
	assert.ErrorIs(t, err, ErrEmptyAudio)
	assert.Equal(t, 0, backend.Count(http.MethodPost, "/api/audio"))
}

func TestSpeak(t *testing.T) {
	client, _, backend := newTestClient(t)
	backend.Speech = []byte("RIFFdata")

	audio, err := client.Speak(context.Background(), "Hello there")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFFdata"), audio.Data)
	assert.Equal(t, ".wav", audio.Extension())

	backend.Fail(http.MethodPost, "/api/tts", http.StatusInternalServerError)
	_, err = client.Speak(context.Background(), "Hello there")
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
}

func TestAudioExtension(t *testing.T) {
	tests := map[string]string{
		"audio/mpeg":               ".mp3",
		"audio/wav":                ".wav",
		"audio/x-wav; charset=bin": ".wav",
		"audio/ogg":                ".ogg",
		"":                         ".wav",
	}
	for ct, want := range tests {
		assert.Equal(t, want, (&Audio{ContentType: ct}).Extension(), ct)
	}
}

func TestStatusError_Messages(t *testing.T) {
	assert.Equal(t, "list chats: HTTP 403 Forbidden", (&StatusError{Op: "list chats", Status: 403}).Error())
	assert.True(t, errors.Is(&StatusError{Status: 403}, ErrNotAuthorized))
	assert.False(t, errors.Is(&StatusError{Status: 401}, ErrNotAuthorized))
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
}
