// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/niti-tui/internal/config"
)

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the configuration",
		Long: `Shows or edits the niti configuration file.

Keys use dot notation, e.g. server.base_url or ui.theme. Run
'niti config keys' for the full list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			highlight(cmd.OutOrStdout(), e.cfg.String(), "toml")
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as TOML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				highlight(cmd.OutOrStdout(), e.cfg.String(), "toml")
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), e.cfgPath)
				return nil
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List configuration keys",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				for _, key := range config.GetAllKeys() {
					fmt.Fprintln(cmd.OutOrStdout(), key)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "get KEY",
			Short: "Print one configuration value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := e.cfg.Get(args[0])
				if err != nil {
					return &UsageError{Reason: err.Error()}
				}
				if list, ok := v.([]string); ok {
					v = strings.Join(list, ",")
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		newConfigSetCmd(e),
		newConfigInitCmd(e),
	)
	return cmd
}

func newConfigSetCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one value and save the file",
		Long: `Changes one value and saves the configuration file. Lists such as
chat.topics are comma separated. The file is validated before it is saved.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.fileConfig()
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return &UsageError{Reason: err.Error()}
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", args[0], err)
			}
			if err := config.SaveTOML(cfg, e.cfgPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], e.cfgPath)
			return nil
		},
	}
}

func newConfigInitCmd(e *env) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(e.cfgPath); err == nil && !force {
				return &UsageError{Reason: e.cfgPath + " already exists (use --force to overwrite)"}
			}
			if err := config.SaveTOML(config.Default(), e.cfgPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", e.cfgPath)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

// fileConfig reads the configuration file without environment or flag
// overrides, so that saving it does not persist them.
func (e *env) fileConfig() (*config.Config, error) {
	if _, err := os.Stat(e.cfgPath); errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	cfg := config.Default()
	var err error
	if strings.HasSuffix(e.cfgPath, ".json") {
		err = config.LoadJSON(cfg, e.cfgPath)
	} else {
		err = config.LoadTOML(cfg, e.cfgPath)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
