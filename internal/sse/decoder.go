// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// DataPrefix marks a payload line. Other lines (comments, event:, id:, blank
// separators) never contribute to the text.
const DataPrefix = "data: "

// MaxLineSize is the largest single line accepted (1MB). Longer lines are
// skipped like a malformed fragment.
const MaxLineSize = 1024 * 1024

// ErrMalformedFragment describes a data line whose payload is not a JSON string.
var ErrMalformedFragment = errors.New("malformed stream fragment")

// =============================================================================
// TYPES
// =============================================================================

// Update is published after every decoded fragment.
type Update struct {
	// Fragment is the text carried by the line just decoded.
	Fragment string
	// Text is the accumulated text so far, including Fragment.
	Text string
	// Seq is the 1-based fragment number.
	Seq int
}

// PublishFunc receives updates in arrival order.
type PublishFunc func(Update)

// Decoder turns a stream of SSE-framed JSON string fragments into text.
// A Decoder holds no per-stream state and may be shared.
type Decoder struct {
	logger *zap.Logger
}

// NewDecoder creates a decoder. A nil logger discards diagnostics.
func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{logger: logger}
}

// =============================================================================
// DECODING
// =============================================================================

// ParseLine extracts the fragment from a single line.
// ok is false for lines that are not data lines. err wraps
// ErrMalformedFragment when the payload is not a JSON string.
func ParseLine(line string) (fragment string, ok bool, err error) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, DataPrefix) {
		return "", false, nil
	}

	payload := line[len(DataPrefix):]
	if err := json.Unmarshal([]byte(payload), &fragment); err != nil {
		return "", true, fmt.Errorf("%w: %v", ErrMalformedFragment, err)
	}
	return fragment, true, nil
}

// Decode reads r until end of stream and returns the accumulated text.
// publish, when non-nil, is called after every fragment with the running
// text. Malformed fragments are logged and skipped. A line split across
// reads is reassembled before parsing; a final line without a trailing
// newline is still processed.
//
// If ctx is cancelled, Decode stops publishing and returns ctx.Err() along
// with whatever was accumulated.
func (d *Decoder) Decode(ctx context.Context, r io.Reader, publish PublishFunc) (string, error) {
	reader := bufio.NewReader(r)

	var (
		acc strings.Builder
		seq int
	)

	for {
		if err := ctx.Err(); err != nil {
			return acc.String(), err
		}

		line, oversized, readErr := readLine(reader)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return acc.String(), ctxErr
			}
			return acc.String(), fmt.Errorf("read error: %w", readErr)
		}

		switch {
		case oversized:
			d.logger.Warn("skipping oversized stream line", zap.Int("limit", MaxLineSize))
		case line != "":
			fragment, ok, err := ParseLine(line)
			switch {
			case err != nil:
				d.logger.Warn("error parsing SSE message", zap.Error(err))
			case ok:
				acc.WriteString(fragment)
				seq++
				if publish != nil && ctx.Err() == nil {
					publish(Update{Fragment: fragment, Text: acc.String(), Seq: seq})
				}
			}
		}

		if errors.Is(readErr, io.EOF) {
			d.logger.Debug("stream ended", zap.Int("fragments", seq), zap.Int("chars", acc.Len()))
			return acc.String(), nil
		}
	}
}

// readLine returns the next line without its newline. A line longer than
// MaxLineSize is discarded as it is read, so at most MaxLineSize bytes of it
// are ever held; oversized reports that case.
func readLine(r *bufio.Reader) (line string, oversized bool, err error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if !oversized {
			n := len(buf) + len(chunk)
			if len(chunk) > 0 && chunk[len(chunk)-1] == '\n' {
				n--
			}
			if n > MaxLineSize {
				oversized = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return strings.TrimSuffix(string(buf), "\n"), oversized, err
	}
}

// Stream decodes r in a goroutine and delivers updates on a channel.
// The update channel is closed when the stream ends, fails, or ctx is
// cancelled. The error channel then yields exactly one value (nil on a clean
// end) and is closed. Cancelling ctx releases the goroutine even if nobody is
// draining updates.
func (d *Decoder) Stream(ctx context.Context, r io.Reader) (<-chan Update, <-chan error) {
	updates := make(chan Update, 64)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(updates)

		_, err := d.Decode(ctx, r, func(u Update) {
			select {
			case updates <- u:
			case <-ctx.Done():
			}
		})
		errc <- err
	}()

	return updates, errc
}
