// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/niti-tui/internal/cookie"
)

// Factory keeps exactly one live Store, keyed by the active chat id.
type Factory struct {
	parent  context.Context
	backend Backend
	jar     cookie.Jar
	cfg     Config
	logger  *zap.Logger

	mu      sync.Mutex
	current *Store
	closed  bool
}

// NewFactory creates a Factory. Stores it creates end when ctx does.
// cfg.OnChange only ever sees updates from the current Store.
func NewFactory(ctx context.Context, backend Backend, jar cookie.Jar, cfg Config) *Factory {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		parent:  ctx,
		backend: backend,
		jar:     jar,
		cfg:     cfg,
		logger:  logger.Named("chat"),
	}
}

// Activate returns the Store for id, creating it if the current Store is
// bound to a different id. The previous Store is closed, which cancels its
// requests and discards its pending updates.
func (f *Factory) Activate(id string) *Store {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current != nil && f.current.ID() == id && !f.current.Closed() {
		return f.current
	}
	if f.current != nil {
		f.logger.Debug("closing chat store", zap.String("chat_id", f.current.ID()))
		f.current.Close()
	}

	cfg := f.cfg
	cfg.Logger = f.logger
	var store *Store
	if notify := f.cfg.OnChange; notify != nil {
		cfg.OnChange = func(st State) {
			if f.Current() == store {
				notify(st)
			}
		}
	}
	store = NewStore(f.parent, id, f.backend, f.jar, cfg)
	if f.closed {
		store.Close()
	}
	f.current = store
	f.logger.Debug("activated chat store", zap.String("chat_id", id))
	return store
}

// Switch activates id and loads its history.
func (f *Factory) Switch(ctx context.Context, id string) (*Store, error) {
	store := f.Activate(id)
	if err := store.LoadHistory(ctx); err != nil {
		return store, err
	}
	return store, nil
}

// Current returns the live Store, or nil before the first Activate.
func (f *Factory) Current() *Store {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Close closes the current Store and every Store created afterwards.
func (f *Factory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.current != nil {
		f.current.Close()
	}
}
