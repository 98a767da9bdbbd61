// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/niti-tui/internal/chat"
	"github.com/jeranaias/niti-tui/internal/chatlist"
	"github.com/jeranaias/niti-tui/internal/config"
	"github.com/jeranaias/niti-tui/internal/cookie"
	"github.com/jeranaias/niti-tui/internal/model"
	"github.com/jeranaias/niti-tui/internal/sse"
	"github.com/jeranaias/niti-tui/internal/ui/components"
	"github.com/jeranaias/niti-tui/internal/ui/styles"
	"github.com/jeranaias/niti-tui/internal/voice"
)

// Backend is everything the client needs from the assistant server.
// *api.Client implements it.
type Backend interface {
	chatlist.Backend
	chat.Backend
	voice.Backend
}

// Deps are the collaborators of a Model.
type Deps struct {
	Config  *config.Config
	Backend Backend
	Jar     cookie.Jar
	Logger  *zap.Logger
	Bridge  *Bridge
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the root Bubble Tea model.
type Model struct {
	ctx        context.Context
	cfg        *config.Config
	logger     *zap.Logger
	controller *chatlist.Controller
	factory    *chat.Factory
	voice      *voice.Service
	keys       KeyMap

	theme    *styles.Theme
	markdown *components.Markdown
	header   *components.Header
	sidebar  *components.Sidebar
	messages *components.MessageList
	input    *components.InputArea
	loading  components.Spinner

	// audioPrompt asks for the path of an audio file to transcribe.
	audioPrompt textinput.Model
	prompting   bool

	chats   chatlist.State
	session chat.State
	status  string

	width  int
	height int
	bodyW  int
	bodyH  int
}

// New creates a Model. Chat operations are bound to ctx.
func New(ctx context.Context, deps Deps) Model {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bridge := deps.Bridge
	if bridge == nil {
		bridge = &Bridge{}
	}

	theme := styles.NewTheme(cfg.UI.Theme)
	markdown := components.NewMarkdown(cfg.UI.Markdown, theme.GlamourStyle())

	controller := chatlist.NewController(deps.Backend, deps.Jar, chatlist.Config{
		Logger:     logger,
		OnChange:   func(st chatlist.State) { bridge.Send(chatsMsg{state: st}) },
		OnActivate: func(id string) { bridge.Send(activateMsg{id: id}) },
	})
	factory := chat.NewFactory(ctx, deps.Backend, deps.Jar, chat.Config{
		Logger:   logger,
		Decoder:  sse.NewDecoder(logger),
		OnChange: func(st chat.State) { bridge.Send(storeMsg{state: st}) },
	})

	audioDir, err := cfg.AudioDir()
	if err != nil {
		logger.Warn("audio directory unavailable", zap.Error(err))
	}
	svc := voice.New(deps.Backend, voice.Options{
		AudioDir:       audioDir,
		MaxUploadBytes: int64(cfg.Voice.MaxUploadMB) << 20,
		Logger:         logger,
	})

	prompt := textinput.New()
	prompt.Prompt = "audio file: "
	prompt.Placeholder = "path to a recording"
	prompt.CharLimit = 1024

	sidebar := components.NewSidebar(theme)
	sidebar.SetSize(cfg.UI.SidebarWidth, 20)

	return Model{
		ctx:         ctx,
		cfg:         cfg,
		logger:      logger.Named("app"),
		controller:  controller,
		factory:     factory,
		voice:       svc,
		keys:        DefaultKeyMap(),
		theme:       theme,
		markdown:    markdown,
		header:      components.NewHeader(theme),
		sidebar:     sidebar,
		messages:    components.NewMessageList(theme, markdown),
		input:       components.NewInputArea(theme, topics(cfg.Chat.Topics)),
		loading:     components.NewSpinner(theme, "Loading chats..."),
		audioPrompt: prompt,
		chats:       controller.State(),
	}
}

// topics converts configured collection names.
func topics(names []string) []model.Topic {
	out := make([]model.Topic, 0, len(names))
	for _, name := range names {
		out = append(out, model.Topic(name))
	}
	return out
}

// Init loads the chat list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loading.Tick(),
		m.input.Focus(),
		m.loadChatsCmd(),
	)
}

// Close ends every chat store.
func (m Model) Close() {
	m.factory.Close()
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) loadChatsCmd() tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: "load chats", err: m.controller.LoadChats(m.ctx)}
	}
}

func (m Model) createChatCmd() tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: "create chat", err: m.controller.CreateChat(m.ctx)}
	}
}

func (m Model) deleteChatCmd(id string) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: "delete chat", err: m.controller.DeleteChat(m.ctx, id)}
	}
}

func (m Model) selectChatCmd(id string) tea.Cmd {
	return func() tea.Msg {
		m.controller.SelectChat(id)
		return opDoneMsg{op: "select chat"}
	}
}

func (m Model) loadHistoryCmd(store *chat.Store) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: "load history", err: store.LoadHistory(m.ctx)}
	}
}

func (m Model) sendCmd(text string, collections []string) tea.Cmd {
	store := m.factory.Current()
	if store == nil {
		store = m.factory.Activate("")
	}
	return func() tea.Msg {
		return opDoneMsg{op: "send message", err: store.SendMessage(m.ctx, text, collections)}
	}
}

func (m Model) transcribeCmd(path string) tea.Cmd {
	return func() tea.Msg {
		text, err := m.voice.TranscribeFile(m.ctx, path)
		return transcribedMsg{text: text, err: err}
	}
}

func (m Model) speakCmd(text string) tea.Cmd {
	return func() tea.Msg {
		path, err := m.voice.Speak(m.ctx, text, "")
		return spokeMsg{path: path, err: err}
	}
}
