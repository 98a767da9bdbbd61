// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/niti-tui/internal/chat"
	"github.com/jeranaias/niti-tui/internal/chatlist"
	"github.com/jeranaias/niti-tui/internal/model"
	"github.com/jeranaias/niti-tui/internal/sse"
)

// =============================================================================
// SHELL SESSION
// =============================================================================

// session drives the chat list controller and chat stores for line-mode
// commands. Streamed text is written to out as it arrives.
type session struct {
	ctl     *chatlist.Controller
	factory *chat.Factory
	out     io.Writer
	printed int
}

func (e *env) newSession(ctx context.Context, out io.Writer) (*session, error) {
	if err := e.connect(); err != nil {
		return nil, err
	}
	s := &session{out: out}
	s.ctl = chatlist.NewController(e.client, e.jar, chatlist.Config{Logger: e.logger})
	s.factory = chat.NewFactory(ctx, e.client, e.jar, chat.Config{
		Logger:   e.logger,
		Decoder:  sse.NewDecoder(e.logger),
		OnChange: s.echo,
	})
	return s, nil
}

// echo writes the part of the provisional reply not yet shown. The
// provisional text only grows during a send and is cleared when it ends;
// send resets printed before the next one.
func (s *session) echo(st chat.State) {
	streamed := st.CurrentStreamedMessage
	if len(streamed) > s.printed {
		fmt.Fprint(s.out, streamed[s.printed:])
		s.printed = len(streamed)
	}
}

func (s *session) close() {
	s.factory.Close()
}

// open loads the chat list, or creates a chat when fresh is set, and
// fails when no chat ends up active.
func (s *session) open(ctx context.Context, fresh bool) error {
	var err error
	if fresh {
		err = s.ctl.CreateChat(ctx)
	} else {
		err = s.ctl.LoadChats(ctx)
	}
	if err != nil {
		return err
	}
	st := s.ctl.State()
	if st.ActiveID == "" {
		if st.Error != "" {
			return errors.New(st.Error)
		}
		return errors.New(chat.MsgNoActiveChat)
	}
	return nil
}

// resolve finds a chat by id or by name ("Chat 2"), or by its number.
func (s *session) resolve(ref string) (model.ChatMeta, error) {
	chats := s.ctl.State().Chats
	for _, c := range chats {
		if c.ID == ref || strings.EqualFold(c.Name, ref) || strings.EqualFold(c.Name, "Chat "+ref) {
			return c, nil
		}
	}
	return model.ChatMeta{}, &NotFoundError{Resource: "chat", ID: ref}
}

// send posts text to the active chat and streams the reply to out.
func (s *session) send(ctx context.Context, text string, collections []string) error {
	store := s.factory.Activate(s.ctl.ActiveID())
	s.printed = 0
	err := store.SendMessage(ctx, text, collections)
	if s.printed > 0 {
		fmt.Fprintln(s.out)
	}
	if err != nil {
		if msg := store.State().Error; msg != "" {
			return fmt.Errorf("%s: %w", msg, err)
		}
		return err
	}
	return nil
}

// history returns the transcript of the chat with id.
func (s *session) history(ctx context.Context, id string) ([]model.Message, error) {
	store, err := s.factory.Switch(ctx, id)
	if err != nil {
		if msg := store.State().Error; msg != "" {
			return nil, fmt.Errorf("%s: %w", msg, err)
		}
		return nil, err
	}
	return store.State().Messages, nil
}

// lastReply returns the newest assistant message of the active chat.
func (s *session) lastReply(ctx context.Context) (model.Message, error) {
	msgs, err := s.history(ctx, s.ctl.ActiveID())
	if err != nil {
		return model.Message{}, err
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant && !msgs[i].IsEmpty() {
			return msgs[i], nil
		}
	}
	return model.Message{}, errors.New("no assistant reply yet")
}
