// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
//
// A conversation is an ordered, append-only list of turns held in memory for
// the lifetime of the process. Nothing in this package is persisted.
//
// # Key Types
//
//   - Speaker: Who produced a turn (user or assistant)
//   - Turn: A single exchange entry with speaker, content and timestamp
//   - Conversation: Ordered turns plus an ID used to correlate log lines
//
// # Usage
//
//	conv := model.NewConversation()
//	history := conv.History() // turns strictly before the one being sent
//	reply, err := dispatcher.Send(ctx, "2+2?", history, nil)
//	if err == nil {
//	    conv.AppendExchange("2+2?", reply)
//	}
package model
