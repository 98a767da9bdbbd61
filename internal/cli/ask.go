// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/niti-tui/internal/model"
)

// topicFlags are the --topics choices shared by ask, repl and transcribe.
type topicFlags struct {
	topics []string
	none   bool
}

func (f *topicFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.topics, "topics", "t", nil,
		"Collections to search: best_practices, policies, data (default from chat.topics)")
	cmd.Flags().BoolVar(&f.none, "no-topics", false, "Search no collections")
}

// collections resolves the flags against the configured default.
func (f *topicFlags) collections(e *env) ([]string, error) {
	if f.none {
		return []string{}, nil
	}
	names := f.topics
	if names == nil {
		names = e.cfg.Chat.Topics
	}
	set := model.NewTopicSet()
	for _, name := range names {
		t := model.Topic(strings.TrimSpace(name))
		if !t.IsKnown() {
			return nil, &UsageError{Reason: "unknown topic: " + name}
		}
		set[t] = true
	}
	return set.Collections(), nil
}

func newAskCmd(e *env) *cobra.Command {
	var (
		topics topicFlags
		fresh  bool
	)
	cmd := &cobra.Command{
		Use:   "ask TEXT...",
		Short: "Send one message and stream the reply",
		Long: `Sends a message to the active chat and streams the reply to stdout.

Examples:
  niti ask "Which states publish school dropout data?"
  niti ask --new -t policies "Summarise Kerala's health policy"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collections, err := topics.collections(e)
			if err != nil {
				return err
			}
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return &UsageError{Reason: "message is empty"}
			}

			s, err := e.newSession(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()
			if err := s.open(cmd.Context(), fresh); err != nil {
				return err
			}
			return s.send(cmd.Context(), text, collections)
		},
	}
	topics.register(cmd)
	cmd.Flags().BoolVar(&fresh, "new", false, "Start a new chat first")
	return cmd
}
