// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package retry

import (
	"fmt"
	"time"
)

// Default policy values.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 1000 * time.Millisecond
	DefaultCallTimeout = 30000 * time.Millisecond

	// maxBackoffShift keeps the backoff computation from overflowing.
	maxBackoffShift = 30
)

// Policy governs how a call is retried. A Governor copies the policy it is
// built with, so later changes to a Policy value do not affect it.
type Policy struct {
	// MaxAttempts is the ceiling on invocations of the wrapped operation.
	MaxAttempts int

	// BaseDelay is the wait after the first failed attempt; each later wait
	// doubles it.
	BaseDelay time.Duration

	// CallTimeout bounds a single attempt. Zero disables the timeout.
	CallTimeout time.Duration
}

// DefaultPolicy returns 5 attempts, 1s base delay and a 30s call timeout.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		CallTimeout: DefaultCallTimeout,
	}
}

// PolicyFromMillis builds a Policy from the millisecond values kept in
// configuration.
func PolicyFromMillis(maxAttempts, baseDelayMs, callTimeoutMs int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Duration(baseDelayMs) * time.Millisecond,
		CallTimeout: time.Duration(callTimeoutMs) * time.Millisecond,
	}
}

// Validate reports a policy that cannot be executed.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("base delay must not be negative, got %v", p.BaseDelay)
	}
	if p.CallTimeout < 0 {
		return fmt.Errorf("call timeout must not be negative, got %v", p.CallTimeout)
	}
	return nil
}

// Backoff returns the wait after failed attempt n (1-based):
// BaseDelay * 2^(n-1).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	return p.BaseDelay * time.Duration(1<<uint(shift))
}
