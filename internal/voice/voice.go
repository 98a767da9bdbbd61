// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voice turns audio files into prompts and assistant replies into
// audio files.
package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/niti-tui/internal/api"
	"github.com/jeranaias/niti-tui/internal/util"
)

// DefaultMaxUploadBytes caps transcription uploads.
const DefaultMaxUploadBytes = 25 << 20

// ErrEmptyText is returned when asked to speak nothing.
var ErrEmptyText = errors.New("nothing to speak")

// Backend is the part of the API client voice uses.
type Backend interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
	Speak(ctx context.Context, text string) (*api.Audio, error)
}

// Options configures a Service.
type Options struct {
	// AudioDir receives speech files when no output path is given.
	AudioDir string
	// MaxUploadBytes caps uploads; 0 means DefaultMaxUploadBytes.
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// Service uploads recordings and saves synthesized speech.
type Service struct {
	backend   Backend
	audioDir  string
	maxUpload int64
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a Service.
func New(backend Backend, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Service{
		backend:   backend,
		audioDir:  opts.AudioDir,
		maxUpload: maxUpload,
		logger:    logger.Named("voice"),
		now:       time.Now,
	}
}

// uploadName stamps the upload with the current time, keeping the source
// extension so the backend sees the right audio type.
func (s *Service) uploadName(source string) string {
	name := api.AudioFilename(s.now())
	ext := strings.ToLower(filepath.Ext(source))
	if ext == "" || ext == ".webm" {
		return name
	}
	return strings.TrimSuffix(name, ".webm") + ext
}

// TranscribeFile uploads the audio file at path and returns the transcript.
func (s *Service) TranscribeFile(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("transcribe: %s is a directory", path)
	}
	if info.Size() > s.maxUpload {
		return "", fmt.Errorf("transcribe %s (%d bytes): %w", filepath.Base(path), info.Size(), api.ErrAudioTooLarge)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	defer f.Close()

	return s.transcribe(ctx, f, s.uploadName(path))
}

// Transcribe uploads audio read from r as a webm recording.
func (s *Service) Transcribe(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxUpload+1))
	if err != nil {
		return "", fmt.Errorf("transcribe: read audio: %w", err)
	}
	if int64(len(data)) > s.maxUpload {
		return "", fmt.Errorf("transcribe: %w", api.ErrAudioTooLarge)
	}
	return s.transcribe(ctx, bytes.NewReader(data), s.uploadName(""))
}

func (s *Service) transcribe(ctx context.Context, r io.Reader, filename string) (string, error) {
	start := time.Now()
	text, err := s.backend.Transcribe(ctx, r, filename)
	if err != nil {
		s.logger.Error("transcription failed", zap.String("filename", filename), zap.Error(err))
		return "", err
	}
	s.logger.Info("transcribed audio",
		zap.String("filename", filename),
		zap.Int("chars", len(text)),
		zap.Duration("took", time.Since(start)))
	return text, nil
}

// Speak synthesizes text and writes it to outPath, or to a timestamped file
// in the audio directory when outPath is empty. It returns the path written.
func (s *Service) Speak(ctx context.Context, text, outPath string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	audio, err := s.backend.Speak(ctx, text)
	if err != nil {
		s.logger.Error("speech synthesis failed", zap.Error(err))
		return "", err
	}

	if outPath == "" {
		if s.audioDir == "" {
			return "", errors.New("speak: no audio directory configured")
		}
		stamp := strings.TrimSuffix(api.AudioFilename(s.now()), ".webm")
		outPath = filepath.Join(s.audioDir, stamp+audio.Extension())
	}
	if err := util.AtomicWriteFile(outPath, audio.Data, 0600); err != nil {
		return "", fmt.Errorf("speak: save audio: %w", err)
	}

	s.logger.Info("saved speech",
		zap.String("path", outPath),
		zap.String("content_type", audio.ContentType),
		zap.Int("bytes", len(audio.Data)))
	return outPath, nil
}
