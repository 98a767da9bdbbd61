// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatlist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jeranaias/niti-tui/internal/api"
	"github.com/jeranaias/niti-tui/internal/cookie"
	"github.com/jeranaias/niti-tui/internal/model"
)

// User-visible error messages.
const (
	MsgLoadFailed      = "Failed to load chats. Creating a new session..."
	MsgCreateFailed    = "Failed to create new chat. Please try again."
	MsgDeleteForbidden = "You do not have permission to delete this chat"
	MsgDeleteFailed    = "Failed to delete chat. Please try again."
)

// Backend is the part of the API client the controller uses.
type Backend interface {
	ListChats(ctx context.Context) (model.ChatList, error)
	NewChat(ctx context.Context) (string, error)
	DeleteChat(ctx context.Context, id string) (model.ChatList, error)
}

// Phase is the readiness of the controller.
type Phase int

const (
	// PhaseLoading lasts until the first LoadChats resolves.
	PhaseLoading Phase = iota
	// PhaseReady is terminal.
	PhaseReady
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a snapshot of the controller.
type State struct {
	Chats    model.ChatList
	ActiveID string
	Error    string
	Phase    Phase
}

// Ready reports whether the initial load has resolved.
func (s State) Ready() bool {
	return s.Phase == PhaseReady
}

// Config holds optional callbacks and the logger.
type Config struct {
	Logger *zap.Logger
	// OnChange receives a snapshot after every state change.
	OnChange func(State)
	// OnActivate is called when the active chat id changes.
	OnActivate func(id string)
}

// Controller owns the chat list and the active selection.
type Controller struct {
	backend    Backend
	jar        cookie.Jar
	logger     *zap.Logger
	onChange   func(State)
	onActivate func(string)

	// refresh collapses concurrent list fetches.
	refresh singleflight.Group

	mu    sync.Mutex
	state State
}

// NewController creates a controller in PhaseLoading.
func NewController(backend Backend, jar cookie.Jar, cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		backend:    backend,
		jar:        jar,
		logger:     logger.Named("chatlist"),
		onChange:   cfg.OnChange,
		onActivate: cfg.OnActivate,
		state:      State{Chats: model.ChatList{}},
	}
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	st := c.state
	st.Chats = c.state.Chats.Clone()
	return st
}

// ActiveID returns the active chat id, "" when none.
func (c *Controller) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ActiveID
}

func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	before := c.state.ActiveID
	fn(&c.state)
	after := c.state.ActiveID
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if after != before && after != "" {
		c.jar.Set(cookie.SessionID, after)
	}
	if c.onChange != nil {
		c.onChange(snap)
	}
	if after != before && c.onActivate != nil {
		c.logger.Debug("active chat changed", zap.String("from", before), zap.String("to", after))
		c.onActivate(after)
	}
}

func (c *Controller) setError(msg string) {
	c.update(func(st *State) { st.Error = msg })
}

// =============================================================================
// OPERATIONS
// =============================================================================

// LoadChats fetches the list and picks the active chat. A stored session_id
// that is still listed stays active; otherwise the first entry is chosen.
// An empty list creates a chat. A 403 creates a chat only when the jar holds
// no user_session_id. Any other failure is reported and a chat is created.
// The controller is Ready once LoadChats returns.
func (c *Controller) LoadChats(ctx context.Context) error {
	defer c.update(func(st *State) { st.Phase = PhaseReady })

	c.setError("")
	_, hasUser := c.jar.Get(cookie.UserSessionID)
	stored, _ := c.jar.Get(cookie.SessionID)

	chats, err := c.fetch(ctx)
	if err != nil {
		if api.IsNotAuthorized(err) {
			c.logger.Warn("chat list not authorized", zap.Bool("has_user_session", hasUser))
			if hasUser {
				return nil
			}
			return c.CreateChat(ctx)
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		c.logger.Error("error loading chats", zap.Error(err))
		c.setError(MsgLoadFailed)
		if cerr := c.create(ctx, false); cerr != nil {
			return cerr
		}
		return nil
	}

	if len(chats) == 0 {
		return c.CreateChat(ctx)
	}

	first, _ := chats.First()
	active := first.ID
	if stored != "" && chats.Contains(stored) {
		active = stored
	}
	c.update(func(st *State) {
		st.Chats = chats
		st.ActiveID = active
	})
	return nil
}

// CreateChat asks the backend for a new chat, makes it active and refreshes
// the list.
func (c *Controller) CreateChat(ctx context.Context) error {
	return c.create(ctx, true)
}

// create clears the error up front when clearFirst is set, otherwise only
// on success, so a preceding load error stays visible while recovering.
func (c *Controller) create(ctx context.Context, clearFirst bool) error {
	if clearFirst {
		c.setError("")
	}

	id, err := c.backend.NewChat(ctx)
	if err != nil {
		c.logger.Error("error creating new chat", zap.Error(err))
		c.setError(MsgCreateFailed)
		return fmt.Errorf("create chat: %w", err)
	}
	c.update(func(st *State) {
		st.ActiveID = id
		if !clearFirst {
			st.Error = ""
		}
	})

	chats, err := c.fetch(ctx)
	if err != nil {
		c.logger.Error("error reloading chats after create", zap.Error(err))
		c.setError(MsgCreateFailed)
		return fmt.Errorf("reload chats: %w", err)
	}
	c.update(func(st *State) { st.Chats = chats })
	return nil
}

// DeleteChat deletes id and adopts the server's renumbered list. Deleting
// the active chat activates the first remaining one, or creates a chat when
// none remain. Failures leave the list and selection untouched.
func (c *Controller) DeleteChat(ctx context.Context, id string) error {
	c.setError("")

	chats, err := c.backend.DeleteChat(ctx, id)
	if err != nil {
		if api.IsNotAuthorized(err) {
			c.logger.Warn("delete not authorized", zap.String("chat_id", id))
			c.setError(MsgDeleteForbidden)
		} else {
			c.logger.Error("error deleting chat", zap.String("chat_id", id), zap.Error(err))
			c.setError(MsgDeleteFailed)
		}
		return fmt.Errorf("delete chat %s: %w", id, err)
	}
	if chats == nil {
		chats = model.ChatList{}
	}

	wasActive := false
	c.update(func(st *State) {
		st.Chats = chats
		if st.ActiveID == id {
			wasActive = true
			first, _ := chats.First()
			st.ActiveID = first.ID
		}
	})
	if wasActive && len(chats) == 0 {
		return c.CreateChat(ctx)
	}
	return nil
}

// SelectChat makes id active and clears the error.
func (c *Controller) SelectChat(id string) {
	c.update(func(st *State) {
		st.ActiveID = id
		st.Error = ""
	})
	if id != "" {
		c.jar.Set(cookie.SessionID, id)
	}
}

// Refresh re-fetches the list without touching the selection.
func (c *Controller) Refresh(ctx context.Context) error {
	chats, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	c.update(func(st *State) { st.Chats = chats })
	return nil
}

// fetch lists chats, sharing one request between concurrent callers.
func (c *Controller) fetch(ctx context.Context) (model.ChatList, error) {
	ch := c.refresh.DoChan("chats", func() (interface{}, error) {
		return c.backend.ListChats(ctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("list chats: %w", res.Err)
		}
		chats := res.Val.(model.ChatList)
		if chats == nil {
			chats = model.ChatList{}
		}
		return chats.Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
