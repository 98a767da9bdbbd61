// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/niti-tui/internal/model"
)

func TestFactory_ActivateReusesSameID(t *testing.T) {
	f := newFixture(t)
	factory := NewFactory(context.Background(), f.client, f.jar, Config{})
	defer factory.Close()

	assert.Nil(t, factory.Current())

	a := factory.Activate("a")
	assert.Same(t, a, factory.Activate("a"))
	assert.Same(t, a, factory.Current())

	b := factory.Activate("b")
	assert.NotSame(t, a, b)
	assert.True(t, a.Closed())
	assert.False(t, b.Closed())
	assert.Equal(t, "b", factory.Current().ID())
}

func TestFactory_SwitchLoadsHistory(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedHistory(f.chatID, model.NewUserMessage("hello"), model.NewAssistantMessage("Namaste"))
	factory := NewFactory(context.Background(), f.client, f.jar, Config{})
	defer factory.Close()

	store, err := factory.Switch(context.Background(), f.chatID)
	require.NoError(t, err)
	assert.Len(t, store.State().Messages, 2)
}

func TestFactory_SwitchBackStartsFresh(t *testing.T) {
	f := newFixture(t)
	other, err := f.client.NewChat(context.Background())
	require.NoError(t, err)
	factory := NewFactory(context.Background(), f.client, f.jar, Config{})
	defer factory.Close()

	first := factory.Activate(f.chatID)
	first.Reset()
	factory.Activate(other)

	again := factory.Activate(f.chatID)
	assert.NotSame(t, first, again)
	assert.Nil(t, again.State().Messages)
}

func TestFactory_StaleStoreDoesNotLeak(t *testing.T) {
	f := newFixture(t)
	other, err := f.client.NewChat(context.Background())
	require.NoError(t, err)
	f.backend.SeedHistory(other, model.NewUserMessage("other chat"))

	rec := &recorder{}
	factory := NewFactory(context.Background(), f.client, f.jar, Config{OnChange: rec.record})
	defer factory.Close()

	started, release := f.backend.Hold()
	defer release()

	old := factory.Activate(f.chatID)
	done := make(chan error, 1)
	go func() {
		done <- old.SendMessage(context.Background(), "slow", nil)
	}()
	<-started
	require.Eventually(t, func() bool {
		return len(rec.streamed()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	current, err := factory.Switch(context.Background(), other)
	require.NoError(t, err)
	release()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stale send did not finish")
	}

	states := rec.all()
	require.NotEmpty(t, states)
	last := states[len(states)-1]
	assert.Equal(t, other, last.ChatID)
	assert.Empty(t, last.CurrentStreamedMessage)
	assert.False(t, last.IsProcessing)

	switched := false
	for _, st := range states {
		if st.ChatID == other {
			switched = true
			continue
		}
		assert.False(t, switched, "update from %s after switch", st.ChatID)
	}
	assert.Equal(t, []model.Message{model.NewUserMessage("other chat")}, current.State().Messages)
	assert.Equal(t, 0, f.backend.Count(http.MethodGet, "/api/chat_history/"+f.chatID))
}

func TestFactory_CloseClosesCurrent(t *testing.T) {
	f := newFixture(t)
	factory := NewFactory(context.Background(), f.client, f.jar, Config{})

	store := factory.Activate(f.chatID)
	factory.Close()
	assert.True(t, store.Closed())
	assert.True(t, factory.Activate("later").Closed())
}

func TestFactory_ParentContextEndsStores(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	factory := NewFactory(ctx, f.client, f.jar, Config{})

	store := factory.Activate(f.chatID)
	cancel()
	assert.True(t, store.Closed())
}
