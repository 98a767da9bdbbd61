// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zap logger shared by every niti component.
//
// The TUI owns the terminal, so logs go to a file (JSON, one entry per line)
// rather than stderr. Components take a *zap.Logger and treat nil as a no-op
// logger.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	// Path is the log file; "" or "-" writes to stderr.
	Path string
	// Level is one of debug, info, warn, error.
	Level string
	// Verbose forces debug level.
	Verbose bool
}

// ParseLevel maps a config level name to a zap level. Unknown names fall back
// to info.
func ParseLevel(name string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// New builds a production logger from opts. The returned AtomicLevel can be
// changed at runtime, e.g. after a config reload.
func New(opts Options) (*zap.Logger, zap.AtomicLevel, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(opts.Level))
	if opts.Verbose {
		cfg.Level.SetLevel(zapcore.DebugLevel)
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil

	if opts.Path != "" && opts.Path != "-" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
			return nil, cfg.Level, fmt.Errorf("create log directory: %w", err)
		}
		cfg.OutputPaths = []string{opts.Path}
		cfg.ErrorOutputPaths = []string{opts.Path}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, cfg.Level, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.With(zap.Int("pid", os.Getpid())), cfg.Level, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
