// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/terminal-agent/internal/config"
	"github.com/jeranaias/terminal-agent/internal/provider"
	"github.com/jeranaias/terminal-agent/internal/retry"
)

// =============================================================================
// EXIT CODES - Specific codes for different error categories
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates the provider rejected the API key
	ExitAuthError = 4
	// ExitNetworkError indicates connection or server failures after retries
	ExitNetworkError = 5
	// ExitQuotaError indicates the provider quota was exhausted
	ExitQuotaError = 6
	// ExitTimeoutError indicates the overall deadline passed
	ExitTimeoutError = 7
)

var (
	// ErrSetupRequired is returned by one-shot commands before the first setup.
	ErrSetupRequired = errors.New("first-time setup required. Please run: terminal-agent --setup")

	// ErrNoProviders is returned when no provider has an API key.
	ErrNoProviders = errors.New("no API keys configured. Please run: terminal-agent --setup")

	// ErrSetupCancelled is returned when the user backs out of the wizard.
	ErrSetupCancelled = errors.New("setup cancelled. You can restart anytime with: terminal-agent --setup")
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports invalid command usage or arguments.
type UsageError struct {
	Msg   string
	Usage string // Example of valid usage (optional)
}

func (e *UsageError) Error() string {
	if e.Usage != "" {
		return e.Msg + "\nUsage: " + e.Usage
	}
	return e.Msg
}

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "export", "keys")
	Action  string // Action being performed (e.g., "add", "write")
	Err     error
}

func (e *CommandError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s %s failed: %v", e.Command, e.Action, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCode determines the process exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, ErrSetupCancelled) {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ExitTimeoutError
	}

	if kind, ok := retry.KindOf(err); ok {
		switch kind {
		case retry.KindAuth:
			return ExitAuthError
		case retry.KindQuota:
			return ExitQuotaError
		case retry.KindConnection, retry.KindServer:
			return ExitNetworkError
		default:
			return ExitGeneralError
		}
	}

	var validationErrs config.ValidateErrors
	var validationErr config.ValidationError
	switch {
	case errors.As(err, &validationErrs),
		errors.As(err, &validationErr),
		errors.Is(err, config.ErrInvalidImport),
		errors.Is(err, config.ErrUnknownProvider),
		errors.Is(err, config.ErrKeyNotFound),
		errors.Is(err, config.ErrDuplicateKey),
		errors.Is(err, config.ErrAgentNotFound),
		errors.Is(err, config.ErrDuplicateAgent),
		errors.Is(err, provider.ErrUnknownProvider):
		return ExitConfigError
	}

	return ExitGeneralError
}

// DisplayError writes err to w in the CLI's error format.
func DisplayError(w io.Writer, err error) {
	if err == nil || errors.Is(err, ErrSetupCancelled) {
		return
	}
	fmt.Fprintf(w, "%s %s\n", RenderConditional(ErrorStyle, "Error:"), err.Error())
}
