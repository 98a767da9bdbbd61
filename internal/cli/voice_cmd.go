// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/niti-tui/internal/voice"
)

func (e *env) voiceService() (*voice.Service, error) {
	if err := e.connect(); err != nil {
		return nil, err
	}
	dir, err := e.cfg.AudioDir()
	if err != nil {
		return nil, err
	}
	return voice.New(e.client, voice.Options{
		AudioDir:       dir,
		MaxUploadBytes: int64(e.cfg.Voice.MaxUploadMB) << 20,
		Logger:         e.logger,
	}), nil
}

func newTranscribeCmd(e *env) *cobra.Command {
	var (
		topics topicFlags
		send   bool
	)
	cmd := &cobra.Command{
		Use:   "transcribe FILE",
		Short: "Transcribe an audio recording",
		Long: `Uploads an audio recording for speech recognition and prints the text.
With --send the text is sent to the active chat and the reply is streamed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collections, err := topics.collections(e)
			if err != nil {
				return err
			}
			svc, err := e.voiceService()
			if err != nil {
				return err
			}
			text, err := svc.TranscribeFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			text = strings.TrimSpace(text)
			if !send {
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			if text == "" {
				return fmt.Errorf("no speech recognized in %s", args[0])
			}

			s, err := e.newSession(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()
			if err := s.open(cmd.Context(), false); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), style(roleStyle, "You: ")+text)
			return s.send(cmd.Context(), text, collections)
		},
	}
	topics.register(cmd)
	cmd.Flags().BoolVar(&send, "send", false, "Send the transcript as a message")
	return cmd
}

func newSpeakCmd(e *env) *cobra.Command {
	var (
		output string
		last   bool
	)
	cmd := &cobra.Command{
		Use:   "speak [TEXT...]",
		Short: "Save synthesized speech to a file",
		Long: `Synthesizes speech for TEXT, or for the newest reply of the active chat
with --last, and prints the path of the saved audio file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if last == (text != "") {
				return &UsageError{Reason: "give either TEXT or --last"}
			}

			svc, err := e.voiceService()
			if err != nil {
				return err
			}
			if last {
				s, err := e.newSession(cmd.Context(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				defer s.close()
				if err := s.open(cmd.Context(), false); err != nil {
					return err
				}
				reply, err := s.lastReply(cmd.Context())
				if err != nil {
					return err
				}
				text = reply.Content
			}

			path, err := svc.Speak(cmd.Context(), text, output)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: ~/.niti/audio/<timestamp>)")
	cmd.Flags().BoolVar(&last, "last", false, "Speak the newest reply of the active chat")
	return cmd
}
