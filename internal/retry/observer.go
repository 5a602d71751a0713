// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package retry

import (
	"fmt"
	"time"
)

// Event describes a retry that is about to happen.
type Event struct {
	// Attempt is the 1-based number of the attempt that just failed.
	Attempt     int
	MaxAttempts int
	Kind        Kind
	Delay       time.Duration
	Err         error
}

// String renders the event the way progress lines are shown to users.
func (e Event) String() string {
	return fmt.Sprintf("Retrying (attempt %d/%d) after %s error, waiting %s...",
		e.Attempt+1, e.MaxAttempts, e.Kind, e.Delay)
}

// Observer is notified before every backoff sleep.
// OnRetry runs on the goroutine that called Do and must not block for long.
type Observer interface {
	OnRetry(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnRetry calls f(ev).
func (f ObserverFunc) OnRetry(ev Event) {
	f(ev)
}

// ChannelObserver forwards events to a channel without blocking.
// Events are dropped when the channel is full.
type ChannelObserver chan<- Event

// OnRetry implements Observer.
func (c ChannelObserver) OnRetry(ev Event) {
	select {
	case c <- ev:
	default:
	}
}
