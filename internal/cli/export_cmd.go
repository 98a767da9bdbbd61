// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/niti-tui/internal/export"
	"github.com/jeranaias/niti-tui/internal/model"
)

// exportFlags are shared by the export command and the repl's /export.
type exportFlags struct {
	format string
	output string
	dir    string
	open   bool
	bare   bool
}

func (f *exportFlags) options() *export.Options {
	return &export.Options{
		OutputDir:       f.dir,
		OutputPath:      f.output,
		OpenAfterExport: f.open,
		IncludeMetadata: !f.bare,
	}
}

func newExportCmd(e *env) *cobra.Command {
	var flags exportFlags
	cmd := &cobra.Command{
		Use:   "export [ID|NAME]",
		Short: "Save a chat transcript as Markdown or JSON",
		Long: `Saves the transcript of the named chat, or of the active chat, and
prints the path written.

Examples:
  niti export
  niti export "Chat 2" --format json -o chat2.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, err := export.New(flags.format, nil)
			if err != nil {
				return &UsageError{Reason: err.Error()}
			}

			s, err := e.newSession(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()
			if err := s.open(cmd.Context(), false); err != nil {
				return err
			}

			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			path, err := s.export(cmd.Context(), ref, exporter, flags.options())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&flags.format, "format", "f", "markdown", "Output format: markdown or json")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: niti_<chat>_<time>.<ext>)")
	cmd.Flags().StringVar(&flags.dir, "dir", ".", "Directory for the generated file name")
	cmd.Flags().BoolVar(&flags.open, "open", false, "Open the file afterwards")
	cmd.Flags().BoolVar(&flags.bare, "no-metadata", false, "Leave out the Markdown front matter")
	return cmd
}

// export writes the transcript of ref, or of the active chat when ref is
// empty.
func (s *session) export(ctx context.Context, ref string, exporter export.Exporter, opts *export.Options) (string, error) {
	st := s.ctl.State()
	chat := model.ChatMeta{ID: st.ActiveID, Name: st.Chats.Name(st.ActiveID)}
	if ref != "" {
		var err error
		if chat, err = s.resolve(ref); err != nil {
			return "", err
		}
	}

	msgs, err := s.history(ctx, chat.ID)
	if err != nil {
		return "", err
	}
	return export.ExportToFile(export.NewTranscript(chat, msgs), exporter, opts)
}
