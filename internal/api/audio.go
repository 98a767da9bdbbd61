// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"
)

// AudioContentType is the type declared for transcription uploads.
const AudioContentType = "audio/webm"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// AudioFilename names an upload after t the way browsers stamp recordings:
// the ISO-8601 UTC timestamp with ':' and '.' replaced by '-', plus ".webm".
func AudioFilename(t time.Time) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return strings.NewReplacer(":", "-", ".", "-").Replace(stamp) + ".webm"
}

// Transcribe uploads audio as multipart field "file" and returns the plain
// text transcript.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	const op = "transcribe"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	contentType := AudioContentType
	if t := mime.TypeByExtension(filepath.Ext(filename)); strings.HasPrefix(t, "audio/") {
		contentType = t
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	n, err := io.Copy(part, audio)
	if err != nil {
		return "", fmt.Errorf("%s: read audio: %w", op, err)
	}
	if n == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyAudio)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.send(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        "/api/audio",
		body:        &buf,
		contentType: mw.FormDataContentType(),
		accept:      "text/plain",
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := readResponse(op, resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// Audio is synthesized speech.
type Audio struct {
	Data        []byte
	ContentType string
}

// Extension returns a file extension matching the audio's content type.
func (a *Audio) Extension() string {
	mediaType, _, _ := mime.ParseMediaType(a.ContentType)
	switch mediaType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/webm":
		return ".webm"
	}
	if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
		return exts[0]
	}
	return ".wav"
}

// Speak requests speech for text.
func (c *Client) Speak(ctx context.Context, text string) (*Audio, error) {
	const op = "speak"

	data, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}

	resp, err := c.send(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        "/api/tts",
		body:        bytes.NewReader(data),
		contentType: "application/json",
		accept:      "audio/*",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readResponse(op, resp)
	if err != nil {
		return nil, err
	}
	return &Audio{Data: body, ContentType: resp.Header.Get("Content-Type")}, nil
}
