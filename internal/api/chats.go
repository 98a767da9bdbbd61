// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jeranaias/niti-tui/internal/model"
)

type chatsResponse struct {
	Chats model.ChatList `json:"chats"`
}

type newChatResponse struct {
	SessionID     string `json:"session_id"`
	UserSessionID string `json:"user_session_id"`
}

type historyResponse struct {
	Messages []model.Message `json:"messages"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Text        string   `json:"text"`
	Collections []string `json:"collections"`
}

// ListChats returns the caller's chats, most recent first.
func (c *Client) ListChats(ctx context.Context) (model.ChatList, error) {
	var out chatsResponse
	if err := c.doJSON(ctx, "list chats", http.MethodGet, "/api/chats", nil, &out); err != nil {
		return nil, err
	}
	if out.Chats == nil {
		return model.ChatList{}, nil
	}
	return out.Chats, nil
}

// NewChat creates a chat and returns its id. The backend also sets the
// session cookies on the jar.
func (c *Client) NewChat(ctx context.Context) (string, error) {
	var out newChatResponse
	if err := c.doJSON(ctx, "new chat", http.MethodPost, "/api/new_chat", nil, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("new chat: %w: session_id", ErrMissingField)
	}
	return out.SessionID, nil
}

// ChatHistory returns the authoritative transcript of chat id.
func (c *Client) ChatHistory(ctx context.Context, id string) ([]model.Message, error) {
	var out historyResponse
	path := "/api/chat_history/" + url.PathEscape(id)
	if err := c.doJSON(ctx, "chat history", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Messages == nil {
		return []model.Message{}, nil
	}
	return out.Messages, nil
}

// DeleteChat deletes chat id and returns the backend's renumbered list.
func (c *Client) DeleteChat(ctx context.Context, id string) (model.ChatList, error) {
	var out chatsResponse
	path := "/api/chat/" + url.PathEscape(id)
	if err := c.doJSON(ctx, "delete chat", http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Chats == nil {
		return model.ChatList{}, nil
	}
	return out.Chats, nil
}

// SendChat posts a message to the chat named by the session_id cookie and
// returns the SSE reply body. The caller must close it; cancelling ctx
// aborts the read.
func (c *Client) SendChat(ctx context.Context, text string, collections []string) (io.ReadCloser, error) {
	if collections == nil {
		collections = []string{}
	}
	data, err := json.Marshal(ChatRequest{Text: text, Collections: collections})
	if err != nil {
		return nil, fmt.Errorf("send chat: encode request: %w", err)
	}

	resp, err := c.send(ctx, request{
		op:          "send chat",
		method:      http.MethodPost,
		path:        "/api/chat",
		body:        bytes.NewReader(data),
		contentType: "application/json",
		accept:      "text/event-stream",
		stream:      true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
