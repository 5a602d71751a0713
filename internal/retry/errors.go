// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

// Kind is the failure taxonomy that drives the retry decision.
type Kind string

const (
	KindConnection Kind = "connection"
	KindServer     Kind = "server"
	KindQuota      Kind = "quota"
	KindAuth       Kind = "auth"
	KindOther      Kind = "other"
)

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// Retryable reports whether failures of this kind are worth another attempt.
func (k Kind) Retryable() bool {
	return k == KindConnection || k == KindServer
}

// FinalMessage returns the user-facing message shown once retrying stops.
func FinalMessage(k Kind) string {
	switch k {
	case KindConnection:
		return "Connection failed after multiple attempts. Please check your internet connection or proxy settings."
	case KindServer:
		return "Server is currently unavailable. Please try again later."
	case KindQuota:
		return "API quota exceeded. Please upgrade your plan or switch providers."
	case KindAuth:
		return "Invalid API key. Please check your key in settings."
	default:
		return "Request failed. Please try again later."
	}
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrAttemptTimeout is the synthetic failure produced when an attempt loses
// the race against the per-call timeout.
var ErrAttemptTimeout = errors.New("request timed out")

// HTTPError reports that a provider answered with a non-success status.
// Adapters return it (possibly wrapped) so the governor can classify.
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	text := http.StatusText(e.Status)
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d %s", e.Status, text)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// Unwrap returns the SDK or transport error this one was built from.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// ClassifiedError is the terminal error of a governed call.
type ClassifiedError struct {
	Kind     Kind
	Message  string
	Attempts int
	Cause    error
}

// Error returns the final message followed by the underlying cause.
func (e *ClassifiedError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s (%v)", e.Message, e.Cause)
}

// Unwrap returns the last failure observed.
func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// KindOf extracts the Kind of a ClassifiedError anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

var (
	quotaMarkers      = []string{"quota", "rate limit", "billing"}
	authMarkers       = []string{"invalid", "unauthorized", "authentication"}
	badRequestMarkers = []string{"invalid", "malformed", "bad request"}
)

// Classify maps a failure to its Kind.
//
// Failures that never got a response (transport errors, timeouts) are
// connection failures. The 403 and 400 rules match on message text and are
// heuristic; providers phrase these errors differently.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}
	if errors.Is(err, ErrAttemptTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return KindConnection
	}

	var he *HTTPError
	if !errors.As(err, &he) {
		return KindConnection
	}

	msg := strings.ToLower(he.Message)
	switch {
	case he.Status == http.StatusTooManyRequests:
		return KindQuota
	case he.Status == http.StatusUnauthorized:
		return KindAuth
	case he.Status == http.StatusForbidden:
		if containsAny(msg, quotaMarkers) {
			return KindQuota
		}
		if containsAny(msg, authMarkers) {
			return KindAuth
		}
		return KindConnection
	case he.Status == http.StatusBadRequest:
		if containsAny(msg, badRequestMarkers) {
			return KindOther
		}
		return KindConnection
	case he.Status >= 500:
		return KindServer
	default:
		return KindOther
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
