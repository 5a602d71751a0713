// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package retry implements the retry governor that wraps every provider call.
//
// Each attempt races the wrapped operation against a per-call timeout. A
// failure is classified into one of five kinds; connection and server
// failures are retried with exponential backoff, the rest fail fast. When
// the governor gives up it returns a *ClassifiedError carrying a final,
// user-facing message and the number of attempts made.
//
// # Key Types
//
//   - Policy: MaxAttempts, BaseDelay and CallTimeout
//   - Kind: connection, server, quota, auth, other
//   - HTTPError: what adapters return when a provider answered with a status
//   - ClassifiedError: terminal error produced only when retrying stops
//   - Observer / Event: retry progress notifications
//   - Governor: executes operations under a Policy
//
// # Usage
//
//	g := retry.NewGovernor(retry.DefaultPolicy())
//	text, err := retry.Do(ctx, g, func(ctx context.Context) (string, error) {
//	    return adapter.RawSend(ctx, prompt, history)
//	}, retry.ObserverFunc(func(ev retry.Event) {
//	    fmt.Fprintf(os.Stderr, "%s\n", ev)
//	}))
//
// # Cancellation
//
// Cancelling ctx stops the in-flight attempt and any backoff sleep. The
// context error is returned as is and is never classified.
package retry
