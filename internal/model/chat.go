// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// ChatMeta describes one chat session as listed by the backend.
type ChatMeta struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChatList is the backend's ordering of chats; the first entry is the most
// recent.
type ChatList []ChatMeta

// Contains reports whether a chat with id is in the list.
func (l ChatList) Contains(id string) bool {
	return l.IndexOf(id) >= 0
}

// IndexOf returns the position of id, or -1.
func (l ChatList) IndexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, c := range l {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// First returns the first chat, if any.
func (l ChatList) First() (ChatMeta, bool) {
	if len(l) == 0 {
		return ChatMeta{}, false
	}
	return l[0], true
}

// Name returns the display name for id, or "" when unknown.
func (l ChatList) Name(id string) string {
	if i := l.IndexOf(id); i >= 0 {
		return l[i].Name
	}
	return ""
}

// Clone returns an independent copy of the list.
func (l ChatList) Clone() ChatList {
	if l == nil {
		return nil
	}
	out := make(ChatList, len(l))
	copy(out, l)
	return out
}
