// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleeper captures requested delays without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func newTestGovernor(p Policy) (*Governor, *recordingSleeper) {
	s := &recordingSleeper{}
	return NewGovernor(p).WithSleep(s.sleep), s
}

func httpErr(status int, msg string) error {
	return &HTTPError{Status: status, Message: msg}
}

// =============================================================================
// CLASSIFICATION TESTS
// =============================================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"no response", errors.New("dial tcp: connection refused"), KindConnection},
		{"attempt timeout", fmt.Errorf("%w after 30s", ErrAttemptTimeout), KindConnection},
		{"deadline", context.DeadlineExceeded, KindConnection},
		{"429", httpErr(429, "slow down"), KindQuota},
		{"401", httpErr(401, "whatever"), KindAuth},
		{"403 billing quota", httpErr(403, "Billing quota exceeded"), KindQuota},
		{"403 rate limit", httpErr(403, "Rate Limit reached"), KindQuota},
		{"403 invalid auth", httpErr(403, "Invalid authentication credentials"), KindAuth},
		{"403 unauthorized", httpErr(403, "UNAUTHORIZED"), KindAuth},
		{"403 unrelated", httpErr(403, "Region not supported"), KindConnection},
		{"400 malformed", httpErr(400, "Malformed JSON body"), KindOther},
		{"400 invalid", httpErr(400, "invalid model name"), KindOther},
		{"400 bad request", httpErr(400, "Bad Request"), KindOther},
		{"400 unrelated", httpErr(400, "request blocked by proxy"), KindConnection},
		{"500", httpErr(500, ""), KindServer},
		{"502", httpErr(502, "bad gateway"), KindServer},
		{"503", httpErr(503, ""), KindServer},
		{"504", httpErr(504, ""), KindServer},
		{"404", httpErr(404, "model not found"), KindOther},
		{"wrapped 401", fmt.Errorf("openai: %w", httpErr(401, "")), KindAuth},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestKind_Retryable(t *testing.T) {
	assert.True(t, KindConnection.Retryable())
	assert.True(t, KindServer.Retryable())
	assert.False(t, KindQuota.Retryable())
	assert.False(t, KindAuth.Retryable())
	assert.False(t, KindOther.Retryable())
}

func TestFinalMessage(t *testing.T) {
	assert.Contains(t, FinalMessage(KindConnection), "internet connection")
	assert.Contains(t, FinalMessage(KindServer), "unavailable")
	assert.Contains(t, FinalMessage(KindQuota), "quota exceeded")
	assert.Contains(t, FinalMessage(KindAuth), "Invalid API key")
	assert.Equal(t, "Request failed. Please try again later.", FinalMessage(KindOther))
}

// =============================================================================
// POLICY TESTS
// =============================================================================

func TestPolicy_BackoffGrowth(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, 1000*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 2000*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 4000*time.Millisecond, p.Backoff(3))
	assert.Equal(t, 8000*time.Millisecond, p.Backoff(4))
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	assert.Error(t, Policy{MaxAttempts: 0}.Validate())
	assert.Error(t, Policy{MaxAttempts: 1, BaseDelay: -1}.Validate())
	assert.Error(t, Policy{MaxAttempts: 1, CallTimeout: -1}.Validate())
}

func TestPolicyFromMillis(t *testing.T) {
	p := PolicyFromMillis(3, 250, 1500)
	assert.Equal(t, Policy{MaxAttempts: 3, BaseDelay: 250 * time.Millisecond, CallTimeout: 1500 * time.Millisecond}, p)
}

func TestNewGovernor_FillsInvalidFields(t *testing.T) {
	g := NewGovernor(Policy{MaxAttempts: 0, BaseDelay: -5, CallTimeout: -1})
	assert.Equal(t, DefaultPolicy(), g.Policy())
}

// =============================================================================
// GOVERNOR TESTS
// =============================================================================

func TestDo_BackoffDelaysAndEvents(t *testing.T) {
	g, sleeper := newTestGovernor(DefaultPolicy())
	var events []Event

	_, err := Do(context.Background(), g, func(context.Context) (string, error) {
		return "", httpErr(503, "")
	}, ObserverFunc(func(ev Event) { events = append(events, ev) }))

	require.Error(t, err)
	want := []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond, 4000 * time.Millisecond, 8000 * time.Millisecond}
	assert.Equal(t, want, sleeper.recorded())
	require.Len(t, events, 4)
	for i, ev := range events {
		assert.Equal(t, i+1, ev.Attempt)
		assert.Equal(t, 5, ev.MaxAttempts)
		assert.Equal(t, KindServer, ev.Kind)
		assert.Equal(t, want[i], ev.Delay)
	}
}

func TestDo_AttemptCeiling(t *testing.T) {
	g, _ := newTestGovernor(Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, CallTimeout: time.Second})
	var calls atomic.Int32

	_, err := Do(context.Background(), g, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, httpErr(500, "internal")
	}, nil)

	assert.Equal(t, int32(3), calls.Load())
	var ce *ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindServer, ce.Kind)
	assert.Equal(t, 3, ce.Attempts)
	assert.Equal(t, FinalMessage(KindServer), ce.Message)
}

func TestDo_FailFastOnAuth(t *testing.T) {
	g, sleeper := newTestGovernor(Policy{MaxAttempts: 10, BaseDelay: time.Second})
	var calls atomic.Int32
	retried := false

	_, err := Do(context.Background(), g, func(context.Context) (string, error) {
		calls.Add(1)
		return "", httpErr(http.StatusUnauthorized, "Incorrect API key provided")
	}, ObserverFunc(func(Event) { retried = true }))

	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, retried)
	assert.Empty(t, sleeper.recorded())

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindAuth, kind)

	var ce *ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Attempts)
	var he *HTTPError
	assert.ErrorAs(t, err, &he, "cause stays reachable")
}

func TestDo_FailFastKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"quota", httpErr(429, ""), KindQuota},
		{"other", httpErr(404, "not found"), KindOther},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g, _ := newTestGovernor(DefaultPolicy())
			calls := 0
			_, err := Do(context.Background(), g, func(context.Context) (string, error) {
				calls++
				return "", tc.err
			}, nil)
			assert.Equal(t, 1, calls)
			kind, _ := KindOf(err)
			assert.Equal(t, tc.want, kind)
		})
	}
}

func TestDo_TimeoutCountsAsConnection(t *testing.T) {
	g, sleeper := newTestGovernor(Policy{MaxAttempts: 2, BaseDelay: 5 * time.Millisecond, CallTimeout: 20 * time.Millisecond})
	var calls atomic.Int32

	_, err := Do(context.Background(), g, func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-ctx.Done()
		return "", ctx.Err()
	}, nil)

	var ce *ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindConnection, ce.Kind)
	assert.Equal(t, 2, ce.Attempts)
	assert.ErrorIs(t, err, ErrAttemptTimeout)
	assert.Equal(t, []time.Duration{5 * time.Millisecond}, sleeper.recorded())
	assert.Equal(t, int32(2), calls.Load())
}

func TestDo_TimeoutIgnoresLateResult(t *testing.T) {
	g, _ := newTestGovernor(Policy{MaxAttempts: 1, CallTimeout: 10 * time.Millisecond})
	release := make(chan struct{})
	defer close(release)

	_, err := Do(context.Background(), g, func(context.Context) (string, error) {
		<-release // ignores its context on purpose
		return "late", nil
	}, nil)

	assert.ErrorIs(t, err, ErrAttemptTimeout)
}

func TestDo_SuccessShortCircuits(t *testing.T) {
	g, sleeper := newTestGovernor(DefaultPolicy())
	calls := 0

	got, err := Do(context.Background(), g, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("connection reset by peer")
		}
		return "second", nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "second", got)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{time.Second}, sleeper.recorded())
}

func TestDo_FirstTrySuccess(t *testing.T) {
	g, sleeper := newTestGovernor(DefaultPolicy())

	got, err := Do(context.Background(), g, func(context.Context) (int, error) {
		return 4, nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 4, got)
	assert.Empty(t, sleeper.recorded())
}

func TestDo_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := NewGovernor(Policy{MaxAttempts: 5, BaseDelay: time.Hour})
	calls := 0

	_, err := Do(ctx, g, func(context.Context) (string, error) {
		calls++
		return "", httpErr(502, "")
	}, ObserverFunc(func(Event) { cancel() }))

	assert.ErrorIs(t, err, context.Canceled)
	_, classified := KindOf(err)
	assert.False(t, classified)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelDuringAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g, _ := newTestGovernor(DefaultPolicy())
	started := make(chan struct{})

	go func() {
		<-started
		cancel()
	}()
	_, err := Do(ctx, g, func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_PanicBecomesFailure(t *testing.T) {
	g, _ := newTestGovernor(Policy{MaxAttempts: 1})

	_, err := Do(context.Background(), g, func(context.Context) (string, error) {
		panic("boom")
	}, nil)

	var ce *ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Cause.Error(), "panicked")
}

func TestExecute(t *testing.T) {
	g, _ := newTestGovernor(Policy{MaxAttempts: 2})
	calls := 0

	err := g.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return httpErr(500, "")
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestChannelObserver_DoesNotBlock(t *testing.T) {
	ch := make(chan Event, 1)
	obs := ChannelObserver(ch)

	obs.OnRetry(Event{Attempt: 1})
	obs.OnRetry(Event{Attempt: 2}) // dropped, channel full

	ev := <-ch
	assert.Equal(t, 1, ev.Attempt)
}

func TestEvent_String(t *testing.T) {
	ev := Event{Attempt: 1, MaxAttempts: 5, Kind: KindServer, Delay: time.Second}
	assert.Equal(t, "Retrying (attempt 2/5) after server error, waiting 1s...", ev.String())
}
