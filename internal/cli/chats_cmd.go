// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// chatJSON is the --json form of a chat list entry.
type chatJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func newChatsCmd(e *env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "chats",
		Aliases: []string{"ls"},
		Short:   "List chats, newest first",
		Long: `Lists the chats of the current user session, newest first. The active
chat is marked with '*'. A first run creates a user session and a chat.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.newSession(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()
			if err := s.open(cmd.Context(), false); err != nil {
				return err
			}

			st := s.ctl.State()
			if asJSON {
				out := make([]chatJSON, 0, len(st.Chats))
				for _, c := range st.Chats {
					out = append(out, chatJSON{ID: c.ID, Name: c.Name, Active: c.ID == st.ActiveID})
				}
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				highlight(cmd.OutOrStdout(), string(data)+"\n", "json")
				return nil
			}
			printChats(cmd.OutOrStdout(), st.Chats, st.ActiveID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newNewCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create a chat and make it active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.newSession(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()
			if err := s.open(cmd.Context(), true); err != nil {
				return err
			}
			st := s.ctl.State()
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", st.Chats.Name(st.ActiveID), st.ActiveID)
			return nil
		},
	}
}

func newUseCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "use ID|NAME",
		Short: "Make a chat active",
		Long: `Makes a chat active for later 'ask', 'history' and 'repl' commands and
for the next start of the full-screen client. A chat can be named by its
id, its name ("Chat 2") or its number ("2").`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.newSession(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()
			if err := s.open(cmd.Context(), false); err != nil {
				return err
			}
			chat, err := s.resolve(args[0])
			if err != nil {
				return err
			}
			s.ctl.SelectChat(chat.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Using %s (%s)\n", chat.Name, chat.ID)
			return nil
		},
	}
}

func newDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID|NAME",
		Aliases: []string{"rm"},
		Short:   "Delete a chat",
		Long: `Deletes a chat. Deleting the active chat makes the newest remaining chat
active, or creates a new chat when none remain. Remaining chats are
renumbered by the server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.newSession(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()
			if err := s.open(cmd.Context(), false); err != nil {
				return err
			}
			chat, err := s.resolve(args[0])
			if err != nil {
				return err
			}
			if err := s.ctl.DeleteChat(cmd.Context(), chat.ID); err != nil {
				if msg := s.ctl.State().Error; msg != "" {
					return fmt.Errorf("%s: %w", msg, err)
				}
				return err
			}
			st := s.ctl.State()
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", chat.ID)
			printChats(cmd.OutOrStdout(), st.Chats, st.ActiveID)
			return nil
		},
	}
}

func newHistoryCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "history [ID|NAME]",
		Short: "Print the transcript of a chat",
		Long:  `Prints the transcript of the named chat, or of the active chat.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.newSession(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()
			if err := s.open(cmd.Context(), false); err != nil {
				return err
			}
			id := s.ctl.ActiveID()
			if len(args) == 1 {
				chat, err := s.resolve(args[0])
				if err != nil {
					return err
				}
				id = chat.ID
			}
			msgs, err := s.history(cmd.Context(), id)
			if err != nil {
				return err
			}
			printTranscript(cmd.OutOrStdout(), msgs)
			return nil
		},
	}
}
