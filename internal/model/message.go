// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// SPEAKER TYPE
// =============================================================================

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// String returns the string representation of the speaker.
func (s Speaker) String() string {
	return string(s)
}

// DisplayName returns the label shown next to a turn in the chat views.
func (s Speaker) DisplayName() string {
	switch s {
	case SpeakerUser:
		return "You"
	case SpeakerAssistant:
		return "Assistant"
	default:
		return string(s)
	}
}

// IsValid reports whether s is one of the known speakers.
func (s Speaker) IsValid() bool {
	return s == SpeakerUser || s == SpeakerAssistant
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is a single entry of a conversation.
type Turn struct {
	Speaker   Speaker   `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a turn stamped with the current time.
func NewTurn(speaker Speaker, content string) Turn {
	return Turn{
		Speaker:   speaker,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// UserTurn creates a user turn.
func UserTurn(content string) Turn {
	return NewTurn(SpeakerUser, content)
}

// AssistantTurn creates an assistant turn.
func AssistantTurn(content string) Turn {
	return NewTurn(SpeakerAssistant, content)
}

// IsUser reports whether the turn was written by the user.
func (t Turn) IsUser() bool {
	return t.Speaker == SpeakerUser
}
