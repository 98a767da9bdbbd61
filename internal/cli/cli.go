// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/niti-tui/internal/api"
	"github.com/jeranaias/niti-tui/internal/config"
	"github.com/jeranaias/niti-tui/internal/cookie"
	"github.com/jeranaias/niti-tui/internal/logging"
	"github.com/jeranaias/niti-tui/internal/ui/app"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions are the persistent flags.
type globalOptions struct {
	verbose    bool
	baseURL    string
	ephemeral  bool
	configPath string
}

// env holds what a command needs, built once per invocation.
type env struct {
	opts globalOptions

	cfg     *config.Config
	cfgPath string
	logger  *zap.Logger
	level   zap.AtomicLevel

	client  *api.Client
	jar     *cookie.Store
	cookies *cookie.SQLiteBackend
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *env) {
	e := &env{}

	root := &cobra.Command{
		Use:   "niti",
		Short: "Chat with the NITI For States policy assistant",
		Long: `niti is a terminal client for the NITI For States assistant.

It answers questions about best practices, policies and data across states
in India, streaming replies as they are written.

Run without arguments to start the full-screen client.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runTUI(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&e.opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&e.opts.baseURL, "base-url", "", "Backend URL (overrides server.base_url)")
	flags.BoolVar(&e.opts.ephemeral, "ephemeral", false, "Keep session cookies in memory only")
	flags.StringVarP(&e.opts.configPath, "config", "c", "", "Config file (default: ~/.niti/config.toml)")

	root.AddCommand(
		newReplCmd(e),
		newAskCmd(e),
		newChatsCmd(e),
		newNewCmd(e),
		newUseCmd(e),
		newDeleteCmd(e),
		newHistoryCmd(e),
		newExportCmd(e),
		newTranscribeCmd(e),
		newSpeakCmd(e),
		newConfigCmd(e),
		newVersionCmd(),
	)
	return root, e
}

// Execute runs the command tree with args and returns the exit code.
func Execute(ctx context.Context, args []string) int {
	root, e := newRoot()
	defer e.close()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return ExitCode(err)
	}
	return ExitSuccess
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

// setup loads configuration and the logger. Commands that talk to the
// backend call connect afterwards.
func (e *env) setup(cmd *cobra.Command) error {
	cfg, err := e.loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	e.cfg = cfg

	logPath, err := cfg.LogPath()
	if err != nil {
		return err
	}
	if e.opts.verbose && cmd != cmd.Root() {
		logPath = "-"
	}
	e.logger, e.level, err = logging.New(logging.Options{
		Path:    logPath,
		Level:   cfg.Log.Level,
		Verbose: e.opts.verbose,
	})
	if err != nil {
		return err
	}
	e.logger = e.logger.With(zap.String("command", cmd.CommandPath()))
	return nil
}

func (e *env) loadConfig(stderr io.Writer) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if e.opts.configPath != "" {
		e.cfgPath = e.opts.configPath
		config.LoadDotEnv()
		if cfg, err = config.LoadFromPath(e.opts.configPath); err != nil {
			return nil, err
		}
	} else {
		if e.cfgPath, err = config.ConfigPathTOML(); err != nil {
			return nil, err
		}
		cfg, err = config.Load()
		if err != nil {
			fmt.Fprintf(stderr, "Warning: %v (using defaults)\n", err)
		}
	}

	if e.opts.baseURL != "" {
		cfg.Server.BaseURL = e.opts.baseURL
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --base-url: %w", err)
		}
	}
	if e.opts.ephemeral {
		cfg.Cookies.Persist = false
	}
	config.SetGlobal(cfg)
	return cfg, nil
}

// connect opens the cookie jar and the API client.
func (e *env) connect() error {
	if e.client != nil {
		return nil
	}
	baseURL := e.cfg.Server.BaseURL

	if e.cfg.Cookies.Persist {
		path, err := e.cfg.CookieDBPath()
		if err != nil {
			return err
		}
		if e.cookies, err = cookie.OpenSQLite(path); err != nil {
			return err
		}
		if e.jar, err = cookie.NewStore(baseURL, e.cookies, e.logger); err != nil {
			return err
		}
	} else {
		jar, err := cookie.NewStore(baseURL, nil, e.logger)
		if err != nil {
			return err
		}
		e.jar = jar
	}
	e.logger.Debug("cookie jar ready", zap.Strings("cookies", e.jar.Names()))

	client, err := api.NewClient(baseURL)
	if err != nil {
		return err
	}
	e.client = client.
		WithCookieJar(e.jar).
		WithTimeout(time.Duration(e.cfg.Server.TimeoutSecs) * time.Second).
		WithRateLimit(e.cfg.Server.RequestsPerSecond, e.cfg.Server.Burst).
		WithLogger(e.logger)
	return nil
}

func (e *env) close() {
	if e.cookies != nil {
		if err := e.cookies.Close(); err != nil {
			e.logger.Warn("close cookie database", zap.Error(err))
		}
		e.cookies = nil
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

// =============================================================================
// FULL-SCREEN CLIENT
// =============================================================================

func (e *env) runTUI(cmd *cobra.Command) error {
	if err := RequiresTTY("start the full-screen client"); err != nil {
		return err
	}
	if err := e.connect(); err != nil {
		return err
	}

	watch := ""
	if _, err := os.Stat(e.cfgPath); err == nil {
		watch = e.cfgPath
	} else if !errors.Is(err, os.ErrNotExist) {
		e.logger.Warn("config file not watched", zap.Error(err))
	}

	return app.Run(cmd.Context(), app.Options{
		Config:     e.cfg,
		Backend:    e.client,
		Jar:        e.jar,
		Logger:     e.logger,
		Level:      &e.level,
		ConfigPath: watch,
	})
}
