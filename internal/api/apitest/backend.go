// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apitest provides an in-memory assistant backend for tests.
//
// Backend implements the same HTTP contract as the real service: chats are
// owned by the user_session_id cookie, names are "Chat N" numbered oldest
// first and listed newest first, replies stream as `data: "<json>"` lines.
// Failures can be injected per route.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime/debug"
	"strings"
	"sync"
	"testing"

	"github.com/jeranaias/niti-tui/internal/model"
)

// RecordedRequest is a request as the backend saw it.
type RecordedRequest struct {
	Method    string
	Path      string
	SessionID string
	UserID    string
	RequestID string
}

// ChatPost is a decoded POST /api/chat body.
type ChatPost struct {
	ChatID      string
	Text        string
	Collections []string
}

// Upload is a received transcription upload.
type Upload struct {
	Filename    string
	ContentType string
	Size        int
}

// Backend is a fake assistant backend served by httptest.
type Backend struct {
	*httptest.Server

	// Reply produces the streamed fragments for a message. Defaults to
	// echoing the text in two fragments.
	Reply func(text string, collections []string) []string
	// Transcript is returned by /api/audio.
	Transcript string
	// Speech is returned by /api/tts as audio/wav.
	Speech []byte

	mu        sync.Mutex
	users     map[string][]string
	history   map[string][]model.Message
	failures  map[string]int
	requests  []RecordedRequest
	posts     []ChatPost
	uploads   []Upload
	nextChat  int
	nextUser  int
	gate      chan struct{}
	midStream chan struct{}
}

// New starts a backend that is closed when t finishes.
func New(t testing.TB) *Backend {
	b := &Backend{
		Reply: func(text string, _ []string) []string {
			return []string{"You said: ", text}
		},
		Transcript: "transcribed words",
		Speech:     []byte("RIFF....WAVEfmt "),
		users:      make(map[string][]string),
		history:    make(map[string][]model.Message),
		failures:   make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/chats", b.handleChats)
	mux.HandleFunc("POST /api/new_chat", b.handleNewChat)
	mux.HandleFunc("GET /api/chat_history/{id}", b.handleHistory)
	mux.HandleFunc("DELETE /api/chat/{id}", b.handleDelete)
	mux.HandleFunc("POST /api/chat", b.handleChat)
	mux.HandleFunc("POST /api/audio", b.handleAudio)
	mux.HandleFunc("POST /api/tts", b.handleTTS)

	b.Server = httptest.NewServer(chain(recovery(t), b.record, b.inject)(mux))
	t.Cleanup(b.Close)
	return b
}

// =============================================================================
// FIXTURES AND INSPECTION
// =============================================================================

// SeedUser creates user id owning chatIDs (oldest first), each with an
// empty transcript.
func (b *Backend) SeedUser(userID string, chatIDs ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[userID] = append(b.users[userID], chatIDs...)
	for _, id := range chatIDs {
		if _, ok := b.history[id]; !ok {
			b.history[id] = []model.Message{}
		}
	}
}

// SeedHistory replaces the transcript of chat id.
func (b *Backend) SeedHistory(id string, msgs ...model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history[id] = append([]model.Message(nil), msgs...)
}

// Fail makes every request matching method and path prefix return status
// until ClearFailures.
func (b *Backend) Fail(method, pathPrefix string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+pathPrefix] = status
}

// ClearFailures removes all injected failures.
func (b *Backend) ClearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = make(map[string]int)
}

// Hold makes the next chat replies stop after their first fragment until
// the returned release func is called. Started reports each held stream
// once its first fragment is flushed.
func (b *Backend) Hold() (started <-chan struct{}, release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	gate := make(chan struct{})
	mid := make(chan struct{}, 16)
	b.gate = gate
	b.midStream = mid
	var once sync.Once
	return mid, func() {
		once.Do(func() {
			close(gate)
			b.mu.Lock()
			if b.gate == gate {
				b.gate = nil
			}
			b.mu.Unlock()
		})
	}
}

// Count returns how many requests matched method and path prefix.
func (b *Backend) Count(method, pathPrefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.requests {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			n++
		}
	}
	return n
}

// Requests returns every request seen so far.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecordedRequest(nil), b.requests...)
}

// Posts returns every accepted chat message.
func (b *Backend) Posts() []ChatPost {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ChatPost(nil), b.posts...)
}

// Uploads returns every accepted transcription upload.
func (b *Backend) Uploads() []Upload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Upload(nil), b.uploads...)
}

// ChatIDs returns the chats owned by userID, oldest first.
func (b *Backend) ChatIDs(userID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.users[userID]...)
}

// History returns the stored transcript of chat id.
func (b *Backend) History(id string) []model.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Message(nil), b.history[id]...)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type middleware func(http.Handler) http.Handler

func chain(mws ...middleware) middleware {
	return func(final http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}

func recovery(t testing.TB) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					t.Errorf("backend panic on %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Method:    r.Method,
			Path:      r.URL.Path,
			SessionID: cookieValue(r, "session_id"),
			UserID:    cookieValue(r, "user_session_id"),
			RequestID: r.Header.Get("X-Request-ID"),
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		status := 0
		for key, code := range b.failures {
			method, prefix, _ := strings.Cut(key, " ")
			if method == r.Method && strings.HasPrefix(r.URL.Path, prefix) {
				status = code
				break
			}
		}
		b.mu.Unlock()
		if status != 0 {
			writeError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

func (b *Backend) handleChats(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	user := b.userLocked(r)
	list := b.listLocked(user)
	b.mu.Unlock()

	setCookie(w, "user_session_id", user)
	writeJSON(w, http.StatusOK, map[string]interface{}{"chats": list})
}

func (b *Backend) handleNewChat(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	user := b.userLocked(r)
	b.nextChat++
	id := fmt.Sprintf("chat-%d", b.nextChat)
	b.users[user] = append(b.users[user], id)
	b.history[id] = []model.Message{}
	b.mu.Unlock()

	setCookie(w, "session_id", id)
	setCookie(w, "user_session_id", user)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":          "ok",
		"session_id":      id,
		"user_session_id": user,
	})
}

func (b *Backend) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b.mu.Lock()
	user := b.userLocked(r)
	owned := b.ownsLocked(user, id)
	msgs := append([]model.Message{}, b.history[id]...)
	b.mu.Unlock()

	if !owned {
		writeError(w, http.StatusForbidden, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b.mu.Lock()
	user := b.userLocked(r)
	if !b.ownsLocked(user, id) {
		b.mu.Unlock()
		writeError(w, http.StatusForbidden, "Unauthorized")
		return
	}
	ids := b.users[user][:0:0]
	for _, c := range b.users[user] {
		if c != id {
			ids = append(ids, c)
		}
	}
	b.users[user] = ids
	delete(b.history, id)
	list := b.listLocked(user)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "chats": list})
}

func (b *Backend) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text        string   `json:"text"`
		Collections []string `json:"collections"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	chatID := cookieValue(r, "session_id")
	userID := cookieValue(r, "user_session_id")
	if chatID == "" {
		writeError(w, http.StatusBadRequest, "No active chat session")
		return
	}

	b.mu.Lock()
	if _, ok := b.users[userID]; !ok || userID == "" {
		b.mu.Unlock()
		writeError(w, http.StatusForbidden, "Invalid user session")
		return
	}
	if !b.ownsLocked(userID, chatID) {
		b.mu.Unlock()
		writeError(w, http.StatusForbidden, "Chat does not belong to user session")
		return
	}
	b.history[chatID] = append(b.history[chatID], model.NewUserMessage(body.Text))
	b.posts = append(b.posts, ChatPost{ChatID: chatID, Text: body.Text, Collections: body.Collections})
	reply := b.Reply
	gate, mid := b.gate, b.midStream
	b.mu.Unlock()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	var full strings.Builder
	for i, fragment := range reply(body.Text, body.Collections) {
		data, _ := json.Marshal(fragment)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
		full.WriteString(fragment)

		if i == 0 && gate != nil {
			mid <- struct{}{}
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
	}

	b.mu.Lock()
	if _, ok := b.history[chatID]; ok {
		b.history[chatID] = append(b.history[chatID], model.NewAssistantMessage(full.String()))
	}
	b.mu.Unlock()
}

func (b *Backend) handleAudio(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "audio/") {
		writeError(w, http.StatusBadRequest, "Invalid file type: "+contentType+". Expected audio/*")
		return
	}
	data, _ := io.ReadAll(file)
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "Empty audio file")
		return
	}

	b.mu.Lock()
	b.uploads = append(b.uploads, Upload{Filename: header.Filename, ContentType: contentType, Size: len(data)})
	transcript := b.Transcript
	b.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, transcript+"\n")
}

func (b *Backend) handleTTS(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == "" {
		writeError(w, http.StatusUnprocessableEntity, "text required")
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Write(b.Speech)
}

// =============================================================================
// HELPERS
// =============================================================================

// userLocked returns the caller's user session, creating one for unknown or
// missing cookies.
func (b *Backend) userLocked(r *http.Request) string {
	id := cookieValue(r, "user_session_id")
	if _, ok := b.users[id]; ok && id != "" {
		return id
	}
	b.nextUser++
	id = fmt.Sprintf("user-%d", b.nextUser)
	b.users[id] = []string{}
	return id
}

func (b *Backend) ownsLocked(user, chatID string) bool {
	for _, id := range b.users[user] {
		if id == chatID {
			return true
		}
	}
	return false
}

// listLocked numbers chats oldest first and returns them newest first.
func (b *Backend) listLocked(user string) model.ChatList {
	ids := b.users[user]
	list := make(model.ChatList, len(ids))
	for i, id := range ids {
		list[len(ids)-1-i] = model.ChatMeta{ID: id, Name: fmt.Sprintf("Chat %d", i+1)}
	}
	return list
}

func cookieValue(r *http.Request, name string) string {
	if c, err := r.Cookie(name); err == nil {
		return c.Value
	}
	return ""
}

func setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
