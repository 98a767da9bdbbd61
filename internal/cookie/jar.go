// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cookie

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cookie names used by the backend.
const (
	// SessionID holds the chat the client currently has open.
	SessionID = "session_id"

	// UserSessionID is issued by the server and identifies the user.
	// The client only ever reads it.
	UserSessionID = "user_session_id"
)

// ErrInvalidOrigin is returned when the jar origin cannot be parsed.
var ErrInvalidOrigin = errors.New("invalid cookie origin")

// Jar reads and writes cookies for the backend origin.
// A missing cookie is reported with ok == false, never as an error.
type Jar interface {
	Get(name string) (value string, ok bool)
	Set(name, value string)
}

// Backend persists cookies between runs.
type Backend interface {
	Load(origin string) ([]*http.Cookie, error)
	Save(origin string, c *http.Cookie) error
	Delete(origin, name string) error
}

// =============================================================================
// STORE
// =============================================================================

// Store is a cookie jar bound to one backend origin.
// It implements both Jar and http.CookieJar. All writes are last-writer-wins.
type Store struct {
	mu      sync.RWMutex
	origin  *url.URL
	cookies map[string]*http.Cookie
	backend Backend
	logger  *zap.Logger

	// now is swapped in tests.
	now func() time.Time
}

// NewStore creates a jar for the given backend base URL. backend may be nil
// for an in-memory jar. Cookies already persisted for the origin are loaded.
func NewStore(baseURL string, backend Backend, logger *zap.Logger) (*Store, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidOrigin, baseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		origin:  u,
		cookies: make(map[string]*http.Cookie),
		backend: backend,
		logger:  logger,
		now:     time.Now,
	}

	if backend != nil {
		stored, err := backend.Load(s.originKey())
		if err != nil {
			return nil, fmt.Errorf("failed to load cookies: %w", err)
		}
		for _, c := range stored {
			s.cookies[c.Name] = c
		}
	}

	return s, nil
}

// NewMemoryStore creates a jar that keeps cookies in memory only.
func NewMemoryStore(baseURL string) (*Store, error) {
	return NewStore(baseURL, nil, nil)
}

// originKey identifies the origin in persisted storage.
func (s *Store) originKey() string {
	return strings.ToLower(s.origin.Scheme + "://" + s.origin.Host)
}

// Get returns the value of the named cookie.
func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cookies[name]
	if !ok || s.expiredLocked(c) {
		return "", false
	}
	return c.Value, true
}

// Set writes a root-path, SameSite=Lax session cookie. The value is not
// validated.
func (s *Store) Set(name, value string) {
	s.put(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
}

// Names returns the names of all live cookies, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.cookies))
	for name, c := range s.cookies {
		if !s.expiredLocked(c) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *Store) put(c *http.Cookie) {
	s.mu.Lock()
	s.cookies[c.Name] = c
	s.mu.Unlock()

	if s.backend != nil {
		if err := s.backend.Save(s.originKey(), c); err != nil {
			s.logger.Warn("failed to persist cookie", zap.String("name", c.Name), zap.Error(err))
		}
	}
}

func (s *Store) remove(name string) {
	s.mu.Lock()
	delete(s.cookies, name)
	s.mu.Unlock()

	if s.backend != nil {
		if err := s.backend.Delete(s.originKey(), name); err != nil {
			s.logger.Warn("failed to delete cookie", zap.String("name", name), zap.Error(err))
		}
	}
}

func (s *Store) expiredLocked(c *http.Cookie) bool {
	return !c.Expires.IsZero() && !c.Expires.After(s.now())
}

// =============================================================================
// http.CookieJar
// =============================================================================

// sameOrigin reports whether u addresses the jar's host.
func (s *Store) sameOrigin(u *url.URL) bool {
	return u != nil && strings.EqualFold(u.Hostname(), s.origin.Hostname())
}

// SetCookies stores cookies issued by the backend. Cookies for other hosts are
// ignored. A negative MaxAge or a past Expires deletes the cookie.
func (s *Store) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if !s.sameOrigin(u) {
		return
	}

	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}

		if c.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(s.now())) {
			s.remove(c.Name)
			continue
		}

		stored := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
			SameSite: c.SameSite,
		}
		if stored.Path == "" {
			stored.Path = "/"
		}
		if c.MaxAge > 0 {
			stored.Expires = s.now().Add(time.Duration(c.MaxAge) * time.Second)
		} else if !c.Expires.IsZero() {
			stored.Expires = c.Expires
		}

		s.logger.Debug("cookie received", zap.String("name", c.Name))
		s.put(stored)
	}
}

// Cookies returns the cookies to send in a request to u.
func (s *Store) Cookies(u *url.URL) []*http.Cookie {
	if !s.sameOrigin(u) {
		return nil
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.cookies))
	for name := range s.cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []*http.Cookie
	for _, name := range names {
		c := s.cookies[name]
		if s.expiredLocked(c) {
			continue
		}
		if c.Secure && u.Scheme != "https" {
			continue
		}
		if !strings.HasPrefix(path, c.Path) {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

// =============================================================================
// MEMORY BACKEND
// =============================================================================

// MemoryBackend is a Backend kept in process memory, shared between Stores.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string]map[string]*http.Cookie
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]map[string]*http.Cookie)}
}

// Load returns a copy of the cookies stored for origin.
func (b *MemoryBackend) Load(origin string) ([]*http.Cookie, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []*http.Cookie
	for _, c := range b.data[origin] {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// Save stores a cookie for origin.
func (b *MemoryBackend) Save(origin string, c *http.Cookie) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.data[origin] == nil {
		b.data[origin] = make(map[string]*http.Cookie)
	}
	cp := *c
	b.data[origin][c.Name] = &cp
	return nil
}

// Delete removes a cookie for origin.
func (b *MemoryBackend) Delete(origin, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data[origin], name)
	return nil
}

var (
	_ Jar            = (*Store)(nil)
	_ http.CookieJar = (*Store)(nil)
	_ Backend        = (*MemoryBackend)(nil)
)
