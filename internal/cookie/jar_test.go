// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cookie

import (
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

// =============================================================================
// ACCESSOR TESTS
// =============================================================================

func TestStore_GetMissingIsNotFound(t *testing.T) {
	s, err := NewMemoryStore("http://localhost:8000")
	require.NoError(t, err)

	v, ok := s.Get(SessionID)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestStore_SetThenGet(t *testing.T) {
	s, err := NewMemoryStore("http://localhost:8000")
	require.NoError(t, err)

	s.Set(SessionID, "abc")
	v, ok := s.Get(SessionID)
	require.True(t, ok)
	assert.Equal(t, "abc", v)

	// Last writer wins
	s.Set(SessionID, "def")
	v, _ = s.Get(SessionID)
	assert.Equal(t, "def", v)
}

func TestStore_SetWritesLaxRootSessionCookie(t *testing.T) {
	s, err := NewMemoryStore("http://localhost:8000")
	require.NoError(t, err)

	s.Set(SessionID, "abc")

	s.mu.RLock()
	c := s.cookies[SessionID]
	s.mu.RUnlock()

	assert.Equal(t, "/", c.Path)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.True(t, c.Expires.IsZero(), "session cookie must not expire")
}

func TestNewStore_RejectsOriginWithoutHost(t *testing.T) {
	_, err := NewMemoryStore("/relative/path")
	assert.ErrorIs(t, err, ErrInvalidOrigin)
}

// =============================================================================
// COOKIE JAR TESTS
// =============================================================================

func TestStore_CookiesSentOnlyToOrigin(t *testing.T) {
	s, err := NewMemoryStore("http://localhost:8000")
	require.NoError(t, err)
	s.Set(SessionID, "abc")

	got := s.Cookies(mustURL(t, "http://localhost:8000/api/chats"))
	require.Len(t, got, 1)
	assert.Equal(t, SessionID, got[0].Name)
	assert.Equal(t, "abc", got[0].Value)

	assert.Empty(t, s.Cookies(mustURL(t, "http://example.com/api/chats")))
}

func TestStore_SetCookiesFromServer(t *testing.T) {
	s, err := NewMemoryStore("http://localhost:8000")
	require.NoError(t, err)

	u := mustURL(t, "http://localhost:8000/api/new_chat")
	s.SetCookies(u, []*http.Cookie{
		{Name: UserSessionID, Value: "user-1", HttpOnly: true, SameSite: http.SameSiteLaxMode},
		{Name: SessionID, Value: "chat-1"},
	})

	v, ok := s.Get(UserSessionID)
	require.True(t, ok)
	assert.Equal(t, "user-1", v)
	v, _ = s.Get(SessionID)
	assert.Equal(t, "chat-1", v)
	assert.Equal(t, []string{SessionID, UserSessionID}, s.Names())
}

func TestStore_SetCookiesIgnoresForeignHost(t *testing.T) {
	s, err := NewMemoryStore("http://localhost:8000")
	require.NoError(t, err)

	s.SetCookies(mustURL(t, "http://evil.example/"), []*http.Cookie{{Name: SessionID, Value: "x"}})
	_, ok := s.Get(SessionID)
	assert.False(t, ok)
}

func TestStore_SetCookiesDeletesOnNegativeMaxAge(t *testing.T) {
	s, err := NewMemoryStore("http://localhost:8000")
	require.NoError(t, err)
	s.Set(SessionID, "abc")

	s.SetCookies(mustURL(t, "http://localhost:8000/"), []*http.Cookie{{Name: SessionID, MaxAge: -1}})
	_, ok := s.Get(SessionID)
	assert.False(t, ok)
}

func TestStore_ExpiredCookieIsNotFound(t *testing.T) {
	s, err := NewMemoryStore("http://localhost:8000")
	require.NoError(t, err)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.SetCookies(mustURL(t, "http://localhost:8000/"), []*http.Cookie{{Name: UserSessionID, Value: "u", MaxAge: 60}})

	_, ok := s.Get(UserSessionID)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = s.Get(UserSessionID)
	assert.False(t, ok)
	assert.Empty(t, s.Cookies(mustURL(t, "http://localhost:8000/")))
}

func TestStore_SecureCookieNotSentOverHTTP(t *testing.T) {
	s, err := NewMemoryStore("http://localhost:8000")
	require.NoError(t, err)

	s.SetCookies(mustURL(t, "http://localhost:8000/"), []*http.Cookie{{Name: "tls", Value: "1", Secure: true}})
	assert.Empty(t, s.Cookies(mustURL(t, "http://localhost:8000/")))
	assert.Len(t, s.Cookies(mustURL(t, "https://localhost:8000/")), 1)
}

func TestStore_PersistsThroughBackend(t *testing.T) {
	backend := NewMemoryBackend()

	s1, err := NewStore("http://localhost:8000", backend, nil)
	require.NoError(t, err)
	s1.Set(SessionID, "chat-9")

	s2, err := NewStore("http://localhost:8000", backend, nil)
	require.NoError(t, err)
	v, ok := s2.Get(SessionID)
	require.True(t, ok)
	assert.Equal(t, "chat-9", v)

	// A different origin does not see it
	s3, err := NewStore("http://other:8000", backend, nil)
	require.NoError(t, err)
	_, ok = s3.Get(SessionID)
	assert.False(t, ok)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s, err := NewMemoryStore("http://localhost:8000")
	require.NoError(t, err)
	u := mustURL(t, "http://localhost:8000/api/chat")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			s.Set(SessionID, "a")
		}()
		go func() {
			defer wg.Done()
			s.Get(SessionID)
		}()
		go func() {
			defer wg.Done()
			s.Cookies(u)
		}()
	}
	wg.Wait()

	v, ok := s.Get(SessionID)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
}
