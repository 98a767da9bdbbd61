// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/niti-tui/internal/config"
	"github.com/jeranaias/niti-tui/internal/export"
	"github.com/jeranaias/niti-tui/internal/model"
	"github.com/jeranaias/niti-tui/internal/voice"
)

const replHelp = `Commands:
  /new                 Start a new chat
  /chats               List chats
  /use ID|NAME         Switch to another chat
  /delete [ID|NAME]    Delete a chat (default: the active one)
  /history             Print the transcript of the active chat
  /export [FILE]       Save the transcript (.json for JSON, else Markdown)
  /topics [NAMES]      Show or set collections (all, none, or a list)
  /audio FILE          Transcribe a recording and send it
  /listen [FILE]       Save speech for the newest reply
  /help                Show this help
  /quit                Exit

Anything else is sent as a message. Ctrl+C stops a reply; Ctrl+D exits.`

// errQuit ends the loop.
var errQuit = errors.New("quit")

// repl is a line-mode chat.
type repl struct {
	s      *session
	voice  *voice.Service
	topics model.TopicSet
	out    io.Writer
	logger *zap.Logger
}

func newReplCmd(e *env) *cobra.Command {
	var topics topicFlags
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Chat line by line with input history",
		Long:  "Starts a line-mode chat with the active chat.\n\n" + replHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			collections, err := topics.collections(e)
			if err != nil {
				return err
			}
			r, err := e.newRepl(cmd.Context(), cmd.OutOrStdout(), collections)
			if err != nil {
				return err
			}
			defer r.s.close()
			if err := r.s.open(cmd.Context(), false); err != nil {
				return err
			}
			return r.run(cmd.Context())
		},
	}
	topics.register(cmd)
	return cmd
}

func (e *env) newRepl(ctx context.Context, out io.Writer, collections []string) (*repl, error) {
	s, err := e.newSession(ctx, out)
	if err != nil {
		return nil, err
	}
	svc, err := e.voiceService()
	if err != nil {
		s.close()
		return nil, err
	}
	set := model.NewTopicSet()
	for _, c := range collections {
		set[model.Topic(c)] = true
	}
	return &repl{s: s, voice: svc, topics: set, out: out, logger: e.logger}, nil
}

// =============================================================================
// LOOP
// =============================================================================

func (r *repl) run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyFile := ""
	if dir, err := config.ConfigDir(); err == nil {
		historyFile = filepath.Join(dir, "repl_history")
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	defer func() {
		if historyFile == "" || config.EnsureConfigDir() != nil {
			return
		}
		f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			r.logger.Warn("save repl history", zap.Error(err))
			return
		}
		defer f.Close()
		if _, err := line.WriteHistory(f); err != nil {
			r.logger.Warn("save repl history", zap.Error(err))
		}
	}()

	fmt.Fprintln(r.out, style(infoStyle, "Type /help for commands."))
	for {
		input, err := line.Prompt(r.prompt())
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed stdin.
			fmt.Fprintln(r.out)
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		err = r.handle(ctx, input)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(r.out, style(errorStyle, "Error: "+err.Error()))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// prompt stays unstyled; liner measures its width in runes.
func (r *repl) prompt() string {
	return r.chatName() + "> "
}

func (r *repl) chatName() string {
	st := r.s.ctl.State()
	if name := st.Chats.Name(st.ActiveID); name != "" {
		return name
	}
	return "niti"
}

// handle runs one line of input.
func (r *repl) handle(ctx context.Context, input string) error {
	if !strings.HasPrefix(input, "/") {
		return r.send(ctx, input)
	}

	fields := strings.Fields(input)
	command, rest := fields[0], strings.TrimSpace(strings.TrimPrefix(input, fields[0]))
	switch command {
	case "/quit", "/exit", "/q":
		return errQuit
	case "/help", "/h":
		fmt.Fprintln(r.out, replHelp)
		return nil
	case "/new":
		if err := r.s.open(ctx, true); err != nil {
			return err
		}
		fmt.Fprintln(r.out, style(infoStyle, "Started ")+style(promptStyle, r.chatName()))
		return nil
	case "/chats":
		if err := r.s.ctl.Refresh(ctx); err != nil {
			return err
		}
		st := r.s.ctl.State()
		printChats(r.out, st.Chats, st.ActiveID)
		return nil
	case "/use":
		chat, err := r.s.resolve(rest)
		if err != nil {
			return err
		}
		r.s.ctl.SelectChat(chat.ID)
		fmt.Fprintln(r.out, style(infoStyle, "Using ")+style(promptStyle, chat.Name))
		return nil
	case "/delete":
		id := r.s.ctl.ActiveID()
		if rest != "" {
			chat, err := r.s.resolve(rest)
			if err != nil {
				return err
			}
			id = chat.ID
		}
		if err := r.s.ctl.DeleteChat(ctx, id); err != nil {
			if msg := r.s.ctl.State().Error; msg != "" {
				return errors.New(msg)
			}
			return err
		}
		fmt.Fprintln(r.out, style(infoStyle, "Deleted "+id))
		return nil
	case "/history":
		msgs, err := r.s.history(ctx, r.s.ctl.ActiveID())
		if err != nil {
			return err
		}
		printTranscript(r.out, msgs)
		return nil
	case "/topics":
		return r.setTopics(rest)
	case "/export":
		format := "markdown"
		if strings.HasSuffix(strings.ToLower(rest), ".json") {
			format = "json"
		}
		exporter, err := export.New(format, nil)
		if err != nil {
			return err
		}
		flags := exportFlags{output: rest, dir: "."}
		path, err := r.s.export(ctx, "", exporter, flags.options())
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, style(infoStyle, "Saved "+path))
		return nil
	case "/audio":
		if rest == "" {
			return &UsageError{Reason: "usage: /audio FILE"}
		}
		text, err := r.voice.TranscribeFile(ctx, rest)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return errors.New("no speech recognized")
		}
		fmt.Fprintln(r.out, style(roleStyle, "You: ")+text)
		return r.send(ctx, text)
	case "/listen":
		reply, err := r.s.lastReply(ctx)
		if err != nil {
			return err
		}
		path, err := r.voice.Speak(ctx, reply.Content, rest)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, style(infoStyle, "Saved "+path))
		return nil
	}
	return &UsageError{Reason: "unknown command " + command + " (try /help)"}
}

// send streams one reply. Ctrl+C stops the reply without leaving the loop.
func (r *repl) send(ctx context.Context, text string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	err := r.s.send(ctx, text, r.topics.Collections())
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		fmt.Fprintln(r.out, style(infoStyle, "[stopped]"))
		return nil
	}
	return err
}

func (r *repl) setTopics(arg string) error {
	switch strings.ToLower(arg) {
	case "":
	case "all":
		r.topics = model.NewTopicSet(model.AllTopics...)
	case "none":
		r.topics = model.NewTopicSet()
	default:
		set := model.NewTopicSet()
		for _, name := range strings.FieldsFunc(arg, func(c rune) bool { return c == ',' || c == ' ' }) {
			t := model.Topic(name)
			if !t.IsKnown() {
				return &UsageError{Reason: "unknown topic: " + name}
			}
			set[t] = true
		}
		r.topics = set
	}

	labels := make([]string, 0, len(model.AllTopics))
	for _, t := range model.AllTopics {
		mark := " "
		if r.topics.Has(t) {
			mark = "x"
		}
		labels = append(labels, fmt.Sprintf("[%s] %s (%s)", mark, t.Label(), t))
	}
	fmt.Fprintln(r.out, strings.Join(labels, "  "))
	return nil
}
