// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"strings"

	"github.com/jeranaias/terminal-agent/internal/model"
	"github.com/jeranaias/terminal-agent/internal/retry"
)

// AgentSource supplies the current agent preset's instructions.
type AgentSource interface {
	CurrentAgentInstructions() string
}

// Dispatcher is the single send path shared by the chat views and the
// one-shot ask command.
type Dispatcher struct {
	registry *Registry
	agents   AgentSource
	governor *retry.Governor
}

// NewDispatcher creates a dispatcher. A nil governor uses the default
// policy; a nil agent source disables instruction injection.
func NewDispatcher(reg *Registry, agents AgentSource, g *retry.Governor) *Dispatcher {
	if g == nil {
		g = retry.NewGovernor(retry.DefaultPolicy())
	}
	return &Dispatcher{registry: reg, agents: agents, governor: g}
}

// Registry returns the registry the dispatcher resolves adapters from.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Send delivers text to the current provider and returns its reply verbatim.
//
// history must hold the turns strictly before text; it is not modified.
// When history is empty the current agent's instructions are prepended.
// Failures are wrapped in a *DispatchError; retry.KindOf recovers the kind.
func (d *Dispatcher) Send(ctx context.Context, text string, history []model.Turn, obs retry.Observer) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}
	adapter, ok := d.registry.CurrentAdapter()
	if !ok {
		return "", ErrNotInitialized
	}

	prompt := d.BuildPrompt(text, len(history))
	// The adapter gets its own copy so a misbehaving one cannot touch the
	// caller's slice.
	sent := model.CloneHistory(history)
	key := adapter.Key()

	reply, err := retry.Do(ctx, d.governor.ForSource(string(key)), func(ctx context.Context) (string, error) {
		return adapter.RawSend(ctx, prompt, sent)
	}, obs)
	if err != nil {
		return "", &DispatchError{Provider: key, Err: err}
	}
	return reply, nil
}

// BuildPrompt applies agent instructions to the first turn of a conversation.
func (d *Dispatcher) BuildPrompt(text string, historyLen int) string {
	if historyLen > 0 || d.agents == nil {
		return text
	}
	instructions := d.agents.CurrentAgentInstructions()
	if instructions == "" {
		return text
	}
	return instructions + "\n\nUser: " + text
}
