// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/niti-tui/internal/api"
	"github.com/jeranaias/niti-tui/internal/cookie"
	"github.com/jeranaias/niti-tui/internal/model"
	"github.com/jeranaias/niti-tui/internal/sse"
)

// User-visible error messages.
const (
	MsgNoActiveChat  = "No active chat session"
	MsgUnauthorized  = "Unauthorized access to chat"
	MsgHistoryFailed = "Failed to load chat history"
	MsgSendFailed    = "Failed to send message"
)

// ErrNoActiveChat is returned by SendMessage on a Store without a chat id.
var ErrNoActiveChat = errors.New("no active chat session")

// Backend is the part of the API client a Store uses.
type Backend interface {
	ChatHistory(ctx context.Context, id string) ([]model.Message, error)
	SendChat(ctx context.Context, text string, collections []string) (io.ReadCloser, error)
}

// State is a snapshot of a Store.
type State struct {
	ChatID   string
	Messages []model.Message
	// IsProcessing is true exactly while a send is in flight.
	IsProcessing bool
	// CurrentStreamedMessage is the provisional reply text; empty unless
	// processing and at least one fragment has arrived.
	CurrentStreamedMessage string
	// Error is the user-visible error, "" when none.
	Error string
}

// Config holds the optional collaborators of a Store.
type Config struct {
	// Logger receives diagnostics; nil discards them.
	Logger *zap.Logger
	// Decoder parses reply streams; nil uses a decoder on Logger.
	Decoder *sse.Decoder
	// OnChange is called with a snapshot after every state change, outside
	// the Store's lock. It is never called after Close.
	OnChange func(State)
}

// Store is the state of one chat session.
type Store struct {
	id      string
	backend Backend
	jar     cookie.Jar
	decoder *sse.Decoder
	logger  *zap.Logger
	notify  func(State)

	// ctx lives as long as the Store; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state State
}

// NewStore creates a Store for chat id. id may be empty, in which case
// loading is a no-op and sending fails with MsgNoActiveChat. The Store is
// closed when parent is cancelled.
func NewStore(parent context.Context, id string, backend Backend, jar cookie.Jar, cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	decoder := cfg.Decoder
	if decoder == nil {
		decoder = sse.NewDecoder(logger)
	}
	ctx, cancel := context.WithCancel(parent)
	return &Store{
		id:      id,
		backend: backend,
		jar:     jar,
		decoder: decoder,
		logger:  logger.With(zap.String("chat_id", id)),
		notify:  cfg.OnChange,
		ctx:     ctx,
		cancel:  cancel,
		state:   State{ChatID: id},
	}
}

// ID returns the chat id the Store is bound to.
func (s *Store) ID() string {
	return s.id
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := s.state
	st.Messages = model.CloneMessages(s.state.Messages)
	return st
}

// Close cancels in-flight requests and silences further notifications.
func (s *Store) Close() {
	s.cancel()
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	return s.ctx.Err() != nil
}

// update applies fn under the lock and publishes the result. Updates to a
// closed Store are dropped.
func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	if s.Closed() {
		s.mu.Unlock()
		return
	}
	fn(&s.state)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.notify != nil {
		s.notify(snap)
	}
}

// bind returns a context cancelled when either ctx or the Store ends.
func (s *Store) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// =============================================================================
// OPERATIONS
// =============================================================================

// LoadHistory replaces the transcript with the backend's. Without a chat id
// it does nothing. A 403 clears the transcript.
func (s *Store) LoadHistory(ctx context.Context) error {
	if s.id == "" {
		return nil
	}
	ctx, cancel := s.bind(ctx)
	defer cancel()

	msgs, err := s.backend.ChatHistory(ctx, s.id)
	if err != nil {
		if s.Closed() {
			return err
		}
		if api.IsNotAuthorized(err) {
			s.logger.Warn("chat history not authorized", zap.Error(err))
			s.update(func(st *State) {
				st.Messages = []model.Message{}
				st.Error = MsgUnauthorized
			})
		} else {
			s.logger.Error("failed to load chat history", zap.Error(err))
			s.update(func(st *State) { st.Error = MsgHistoryFailed })
		}
		return fmt.Errorf("load history: %w", err)
	}

	s.update(func(st *State) {
		st.Messages = msgs
		st.Error = ""
	})
	return nil
}

// SendMessage appends text as a user message, streams the reply into
// CurrentStreamedMessage and, on success, reloads the history. topics are
// sent as the request's collections. The processing flag and streamed text
// are cleared on every outcome.
func (s *Store) SendMessage(ctx context.Context, text string, topics []string) error {
	// A closed Store no longer owns the session cookie.
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if s.id == "" {
		s.update(func(st *State) { st.Error = MsgNoActiveChat })
		return ErrNoActiveChat
	}
	text = norm.NFC.String(text)

	s.update(func(st *State) {
		st.Messages = append(st.Messages, model.NewUserMessage(text))
		st.IsProcessing = true
		st.CurrentStreamedMessage = ""
		st.Error = ""
	})

	// The backend reads the target chat from the cookie.
	s.jar.Set(cookie.SessionID, s.id)

	ctx, cancel := s.bind(ctx)
	defer cancel()

	err := s.stream(ctx, text, topics)

	s.update(func(st *State) {
		st.IsProcessing = false
		st.CurrentStreamedMessage = ""
		if err != nil {
			st.Error = errorMessage(err)
		}
	})
	if err != nil {
		if !s.Closed() {
			s.logger.Error("failed to send message", zap.Error(err))
		}
		return err
	}

	if err := s.LoadHistory(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Store) stream(ctx context.Context, text string, topics []string) error {
	body, err := s.backend.SendChat(ctx, text, topics)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer body.Close()

	updates, errc := s.decoder.Stream(ctx, body)
	var reply string
	for u := range updates {
		reply = u.Text
		s.update(func(st *State) { st.CurrentStreamedMessage = u.Text })
	}
	if err := <-errc; err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	s.logger.Debug("reply complete", zap.Int("chars", len(reply)))
	return nil
}

func errorMessage(err error) string {
	if api.IsNotAuthorized(err) {
		return MsgUnauthorized
	}
	return MsgSendFailed
}

// Reset clears the transcript, processing flag, streamed text and error.
func (s *Store) Reset() {
	s.update(func(st *State) {
		st.Messages = []model.Message{}
		st.IsProcessing = false
		st.CurrentStreamedMessage = ""
		st.Error = ""
	})
}
