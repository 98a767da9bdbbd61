// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/niti-tui/internal/config"
	"github.com/jeranaias/niti-tui/internal/cookie"
	"github.com/jeranaias/niti-tui/internal/logging"
)

// Options configures Run.
type Options struct {
	Config  *config.Config
	Backend Backend
	Jar     cookie.Jar
	Logger  *zap.Logger
	// Level is adjusted when a reloaded config changes log.level.
	Level *zap.AtomicLevel
	// ConfigPath is watched for changes; "" disables reloading.
	ConfigPath string
}

// Run starts the full-screen client and blocks until the user quits or ctx
// ends.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := logging.OrNop(opts.Logger)
	bridge := &Bridge{}
	m := New(ctx, Deps{
		Config:  opts.Config,
		Backend: opts.Backend,
		Jar:     opts.Jar,
		Logger:  logger,
		Bridge:  bridge,
	})
	defer m.Close()

	programOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if m.cfg.UI.Mouse {
		programOpts = append(programOpts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(m, programOpts...)
	bridge.Attach(p.Send)

	if opts.ConfigPath != "" {
		w, err := config.NewWatcher(opts.ConfigPath, func(cfg *config.Config) {
			if opts.Level != nil {
				opts.Level.SetLevel(logging.ParseLevel(cfg.Log.Level))
			}
			config.SetGlobal(cfg)
			bridge.Send(configReloadedMsg{cfg: cfg})
		}, logger)
		if err != nil {
			logger.Warn("config reload disabled", zap.Error(err))
		} else {
			go w.Run(ctx)
		}
	}

	logger.Info("starting client", zap.String("theme", m.theme.Mode()))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run client: %w", err)
	}
	return nil
}
