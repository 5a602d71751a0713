// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// Conversation holds the turns of one chat session.
//
// Turns are append-only. The only way to remove turns is Clear, which also
// rotates the conversation ID so a cleared session reads as a new one in the
// logs and gets agent instructions injected again.
type Conversation struct {
	ID        string
	CreatedAt time.Time

	turns []Turn
}

// NewConversation creates an empty conversation with a fresh ID.
func NewConversation() *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
}

// Append adds a turn at the end of the conversation.
func (c *Conversation) Append(t Turn) {
	c.turns = append(c.turns, t)
}

// AppendExchange appends a user turn followed by the assistant reply.
// Callers use it only after a send has succeeded.
func (c *Conversation) AppendExchange(userText, reply string) {
	c.Append(UserTurn(userText))
	c.Append(AssistantTurn(reply))
}

// History returns a copy of all turns in order.
// The returned slice is safe to hand to a provider; changes to it do not
// affect the conversation.
func (c *Conversation) History() []Turn {
	return CloneHistory(c.turns)
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// IsEmpty reports whether no turn has been appended yet.
func (c *Conversation) IsEmpty() bool {
	return len(c.turns) == 0
}

// Last returns the most recent turn and false if the conversation is empty.
func (c *Conversation) Last() (Turn, bool) {
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}

// Clear drops every turn and starts a new conversation ID.
func (c *Conversation) Clear() {
	c.turns = nil
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
}

// CloneHistory returns an independent copy of a history slice.
// A nil or empty input yields a nil slice.
func CloneHistory(h []Turn) []Turn {
	if len(h) == 0 {
		return nil
	}
	out := make([]Turn, len(h))
	copy(out, h)
	return out
}
