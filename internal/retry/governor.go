// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/terminal-agent/internal/diag"
)

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Governor executes operations under a fixed Policy.
// A Governor is safe for concurrent use; calls do not share state.
type Governor struct {
	policy Policy
	sleep  SleepFunc
	diag   diag.Diagnostics
	source string
}

// NewGovernor creates a governor. An invalid policy is replaced field by
// field with the defaults.
func NewGovernor(p Policy) *Governor {
	def := DefaultPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.CallTimeout < 0 {
		p.CallTimeout = def.CallTimeout
	}
	return &Governor{
		policy: p,
		sleep:  sleepContext,
		diag:   diag.Nop(),
		source: "retry",
	}
}

// WithSleep replaces the backoff sleeper. Tests use it to record delays.
func (g *Governor) WithSleep(fn SleepFunc) *Governor {
	if fn != nil {
		g.sleep = fn
	}
	return g
}

// WithDiagnostics sets the sink failed attempts are reported to.
func (g *Governor) WithDiagnostics(d diag.Diagnostics) *Governor {
	if d != nil {
		g.diag = d
	}
	return g
}

// ForSource returns a copy of g whose diagnostics are labelled source,
// usually a provider key.
func (g *Governor) ForSource(source string) *Governor {
	c := *g
	c.source = source
	return &c
}

// Policy returns the policy in effect.
func (g *Governor) Policy() Policy {
	return g.policy
}

// Execute runs op under the governor's policy. It is the non-generic form of
// Do for operations that only return an error.
func (g *Governor) Execute(ctx context.Context, op func(context.Context) error, obs Observer) error {
	_, err := Do(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, obs)
	return err
}

// Do runs op until it succeeds, fails with a non-retryable kind, or the
// attempt ceiling is reached.
//
// Attempts are strictly sequential. obs, when non-nil, is notified before
// each backoff sleep. On give-up the returned error is a *ClassifiedError.
// If ctx ends first, ctx.Err() is returned unclassified.
func Do[T any](ctx context.Context, g *Governor, op func(context.Context) (T, error), obs Observer) (T, error) {
	var zero T
	p := g.policy

	var (
		lastErr  error
		lastKind Kind
		attempts int
	)
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		attempts = attempt

		val, err := runAttempt(ctx, p.CallTimeout, op)
		if err == nil {
			return val, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		kind := Classify(err)
		lastErr, lastKind = err, kind
		g.diag.LogError(g.source, err,
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.String("kind", kind.String()),
		)

		if !kind.Retryable() || attempt == p.MaxAttempts {
			break
		}

		delay := p.Backoff(attempt)
		if obs != nil {
			obs.OnRetry(Event{
				Attempt:     attempt,
				MaxAttempts: p.MaxAttempts,
				Kind:        kind,
				Delay:       delay,
				Err:         err,
			})
		}
		if err := g.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, &ClassifiedError{
		Kind:     lastKind,
		Message:  FinalMessage(lastKind),
		Attempts: attempts,
		Cause:    lastErr,
	}
}

// runAttempt races one invocation of op against the call timeout.
//
// op runs on its own goroutine with a context that is cancelled when the
// race is decided. If op ignores its context and finishes late, the result
// lands in the buffered channel and is discarded.
func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	var zero T
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("provider call panicked: %v", r)}
			}
		}()
		val, err := op(attemptCtx)
		done <- result{val: val, err: err}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case r := <-done:
		return r.val, r.err
	case <-expired:
		return zero, fmt.Errorf("%w after %v", ErrAttemptTimeout, timeout)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
