// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jeranaias/niti-tui/internal/model"
	"github.com/jeranaias/niti-tui/internal/util"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is one chat as exported.
type Transcript struct {
	ChatID   string          `json:"chat_id"`
	Name     string          `json:"name"`
	Exported time.Time       `json:"exported"`
	Messages []model.Message `json:"messages"`
}

// NewTranscript captures chat and its messages at the current time.
func NewTranscript(chat model.ChatMeta, msgs []model.Message) *Transcript {
	return &Transcript{
		ChatID:   chat.ID,
		Name:     chat.Name,
		Exported: time.Now(),
		Messages: model.CloneMessages(msgs),
	}
}

// Title is the chat name, or its id when unnamed.
func (t *Transcript) Title() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ChatID
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for transcript exporters.
type Exporter interface {
	// Export converts a transcript to the target format.
	Export(t *Transcript) ([]byte, error)

	// FileExtension returns the file extension, e.g. ".md".
	FileExtension() string

	// MimeType returns the MIME type of the format.
	MimeType() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is where generated file names are placed. Default: "."
	OutputDir string

	// OutputPath overrides the generated file name.
	OutputPath string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata adds a front matter block with the chat id and
	// export time.
	IncludeMetadata bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
	}
}

// New returns the exporter for format: markdown (md) or json.
func New(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "markdown", "md", "":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile writes t with exporter and returns the path written.
func ExportToFile(t *Transcript, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		dir := opts.OutputDir
		if dir == "" {
			dir = "."
		}
		filename := fmt.Sprintf("niti_%s_%s%s",
			sanitizeFilename(t.Title()),
			t.Exported.Format("20060102_150405"),
			exporter.FileExtension(),
		)
		outputPath = filepath.Join(dir, filename)
	}

	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			return outputPath, fmt.Errorf("open %s: %w", outputPath, err)
		}
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names.
func sanitizeFilename(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > 50 {
		runes = runes[:50]
	}

	result := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			result = append(result, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			result = append(result, '_')
		case r < 32 || r == 127:
			result = append(result, '-')
		default:
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "chat"
	}
	return string(result)
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
