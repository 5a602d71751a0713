// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/terminal-agent/internal/retry"
)

// replyMsg carries the outcome of one send.
type replyMsg struct {
	// seq matches the reply to the request that produced it.
	seq   int
	label string
	text  string
	reply string
	err   error
}

// retryMsg reports that the governor is about to retry.
type retryMsg struct {
	event retry.Event
}

// ConfigChangedMsg reports that the config file changed on disk and the
// providers were reinitialized.
type ConfigChangedMsg struct {
	Ready int
}
