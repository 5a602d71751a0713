// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package builtin wires the shipped adapters into a registration table.
package builtin

import (
	"github.com/jeranaias/terminal-agent/internal/provider"
	"github.com/jeranaias/terminal-agent/internal/provider/gemini"
	"github.com/jeranaias/terminal-agent/internal/provider/grok"
	"github.com/jeranaias/terminal-agent/internal/provider/openai"
)

// Factories returns the adapter constructor for every known provider.
func Factories() provider.Factories {
	return provider.Factories{
		provider.OpenAI: openai.New,
		provider.Gemini: gemini.New,
		provider.Grok:   grok.New,
	}
}

// DisplayName returns the display name for key without building an adapter.
func DisplayName(key provider.Key) string {
	switch key {
	case provider.OpenAI:
		return openai.DisplayName
	case provider.Gemini:
		return gemini.DisplayName
	case provider.Grok:
		return grok.DisplayName
	default:
		return string(key)
	}
}

// DefaultModels returns each provider's default model.
func DefaultModels() map[string]string {
	return map[string]string{
		string(provider.OpenAI): openai.DefaultModel,
		string(provider.Gemini): gemini.DefaultModel,
		string(provider.Grok):   grok.DefaultModel,
	}
}
