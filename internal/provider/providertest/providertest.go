// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package providertest provides in-memory adapters and config sources for
// tests of code built on package provider.
package providertest

import (
	"context"
	"errors"
	"sync"

	"github.com/jeranaias/terminal-agent/internal/model"
	"github.com/jeranaias/terminal-agent/internal/provider"
)

// Call records one RawSend invocation.
type Call struct {
	Text    string
	History []model.Turn
}

// Adapter is a scriptable provider.Adapter.
type Adapter struct {
	mu sync.Mutex

	key          provider.Key
	name         string
	models       []string
	defaultModel string
	model        string
	apiKey       string

	// InitErr, when set, makes Initialize fail.
	InitErr error
	// Reply produces the result of RawSend. Defaults to echoing the text.
	Reply func(ctx context.Context, text string, history []model.Turn) (string, error)

	calls  []Call
	resets int
}

// NewAdapter creates a fake adapter for key.
func NewAdapter(key provider.Key) *Adapter {
	return &Adapter{
		key:          key,
		name:         "Fake " + string(key),
		models:       []string{"fake-small", "fake-large"},
		defaultModel: "fake-small",
		model:        "fake-small",
	}
}

// Factory returns a provider.Factory that always hands out a.
func (a *Adapter) Factory() provider.Factory {
	return func(opts provider.Options) provider.Adapter {
		if opts.Model != "" {
			a.UpdateModel(opts.Model)
		}
		return a
	}
}

func (a *Adapter) Key() provider.Key {
	return a.key
}

func (a *Adapter) DisplayName() string {
	return a.name
}

func (a *Adapter) DefaultModel() string {
	return a.defaultModel
}

func (a *Adapter) AvailableModels() []string {
	return append([]string(nil), a.models...)
}

// Initialize accepts any non-empty key unless InitErr is set.
func (a *Adapter) Initialize(apiKey string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.InitErr != nil {
		return a.InitErr
	}
	if apiKey == "" {
		return provider.ErrMissingAPIKey
	}
	a.apiKey = apiKey
	return nil
}

func (a *Adapter) IsInitialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.apiKey != ""
}

func (a *Adapter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.apiKey = ""
	a.resets++
}

func (a *Adapter) Model() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model
}

func (a *Adapter) UpdateModel(m string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.model = m
}

// RawSend records the call and delegates to Reply.
func (a *Adapter) RawSend(ctx context.Context, text string, history []model.Turn) (string, error) {
	a.mu.Lock()
	a.calls = append(a.calls, Call{Text: text, History: history})
	reply := a.Reply
	initialized := a.apiKey != ""
	a.mu.Unlock()

	if !initialized {
		return "", errors.New("fake adapter not initialized")
	}
	if reply == nil {
		return text, nil
	}
	return reply(ctx, text, history)
}

// Calls returns the recorded RawSend invocations.
func (a *Adapter) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Call(nil), a.calls...)
}

// Resets returns how many times Reset was called.
func (a *Adapter) Resets() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resets
}

// =============================================================================
// CONFIG
// =============================================================================

// Config is an in-memory provider.ConfigSource.
type Config struct {
	mu sync.Mutex

	Keys         map[string]string
	Models       map[string]string
	Instructions string
	SetModelErr  error

	// Default names the configured default provider. Empty means none.
	Default string
}

// NewConfig creates an empty config.
func NewConfig() *Config {
	return &Config{Keys: map[string]string{}, Models: map[string]string{}}
}

func (c *Config) DefaultAPIKey(p string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.Keys[p]
	return k, ok && k != ""
}

func (c *Config) Model(p string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Models[p]
}

func (c *Config) SetModel(p, m string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SetModelErr != nil {
		return c.SetModelErr
	}
	c.Models[p] = m
	return nil
}

func (c *Config) CurrentAgentInstructions() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Instructions
}

func (c *Config) DefaultProvider() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Default
}

func (c *Config) AvailableProviders() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, k := range provider.AllKeys {
		if c.Keys[string(k)] != "" {
			out = append(out, string(k))
		}
	}
	return out
}
