// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error variables for common backend failures.
var (
	// ErrNotAuthorized indicates the chat does not belong to the caller's
	// user session (HTTP 403).
	ErrNotAuthorized = errors.New("not authorized")

	// ErrMissingField indicates a success response without a required field.
	ErrMissingField = errors.New("missing field in response")

	// ErrEmptyAudio indicates an audio upload with no content.
	ErrEmptyAudio = errors.New("empty audio")

	// ErrAudioTooLarge indicates an audio upload over the configured limit.
	ErrAudioTooLarge = errors.New("audio file too large")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	// Op names the client operation, e.g. "list chats"
	Op string
	// Status is the HTTP status code
	Status int
	// Message is the backend's {"error": ...} text, if any
	Message string
	// RequestID is the X-Request-ID sent with the request
	RequestID string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

// Is lets errors.Is(err, ErrNotAuthorized) match a 403.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotAuthorized && e.Status == http.StatusForbidden
}

// IsNotAuthorized reports whether err is a 403 from the backend.
func IsNotAuthorized(err error) bool {
	return errors.Is(err, ErrNotAuthorized)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
