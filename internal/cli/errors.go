// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/jeranaias/niti-tui/internal/api"
	"github.com/jeranaias/niti-tui/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates the backend refused the session (403)
	ExitAuthError = 4
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a chat or file was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports bad arguments.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return e.Reason
}

// NotFoundError reports a chat that is not in the list.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		usage    *UsageError
		tty      *TTYRequiredError
		notFound *NotFoundError
		invalid  config.ValidateErrors
		urlErr   *url.Error
		netErr   *net.OpError
	)
	switch {
	case errors.As(err, &usage), errors.As(err, &tty):
		return ExitUsageError
	case errors.As(err, &invalid):
		return ExitConfigError
	case api.IsNotAuthorized(err):
		return ExitAuthError
	case errors.As(err, &notFound):
		return ExitNotFoundError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.As(err, &netErr), errors.As(err, &urlErr):
		return ExitNetworkError
	}
	return ExitGeneralError
}
