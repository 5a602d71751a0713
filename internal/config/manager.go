// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"sync"
)

// Manager owns the live configuration and its file. It is safe for
// concurrent use and satisfies the provider registry's config interface.
type Manager struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewManager wraps an already loaded config. An empty path disables saving.
func NewManager(cfg *Config, path string) *Manager {
	if cfg == nil {
		cfg = Default()
	}
	return &Manager{cfg: cfg, path: path}
}

// Open loads the config at path (or the default path when empty).
func Open(path string) (*Manager, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	return NewManager(cfg, path), nil
}

// Path returns the backing file path.
func (m *Manager) Path() string { return m.path }

// Snapshot returns a deep copy of the current config.
func (m *Manager) Snapshot() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Clone()
}

// Update applies fn to a copy, validates it and saves it. The live config
// changes only if every step succeeds.
func (m *Manager) Update(fn func(*Config) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.cfg.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if m.path != "" {
		if err := SaveTOML(next, m.path); err != nil {
			return err
		}
	}
	m.cfg = next
	return nil
}

// Save writes the current config to disk.
func (m *Manager) Save() error {
	return m.Update(func(*Config) error { return nil })
}

// Reload re-reads the file. It reports whether anything changed.
func (m *Manager) Reload() (bool, error) {
	if m.path == "" {
		return false, nil
	}
	cfg, err := LoadFromPath(m.path)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg.Equal(m.cfg) {
		return false, nil
	}
	m.cfg = cfg
	return true, nil
}

// =============================================================================
// PROVIDER CONFIG SOURCE
// =============================================================================

// DefaultAPIKey returns the key to use for provider.
func (m *Manager) DefaultAPIKey(provider string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.DefaultAPIKey(provider)
}

// Model returns the configured model for provider.
func (m *Manager) Model(provider string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Models[provider]
}

// SetModel persists a model choice.
func (m *Manager) SetModel(provider, model string) error {
	if err := checkProvider(provider); err != nil {
		return err
	}
	return m.Update(func(c *Config) error {
		c.Models[provider] = model
		return nil
	})
}

// CurrentAgentInstructions returns the selected preset's instructions.
func (m *Manager) CurrentAgentInstructions() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.CurrentAgentInstructions()
}

// DefaultProvider returns the default provider after environment overrides.
func (m *Manager) DefaultProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.EffectiveDefaultProvider()
}

// AvailableProviders lists providers with a usable key.
func (m *Manager) AvailableProviders() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.AvailableProviders()
}

// Replace swaps in an imported config and saves it. Environment overrides
// from the running process are kept.
func (m *Manager) Replace(cfg *Config) error {
	return m.Update(func(c *Config) error {
		envKeys, envProvider := c.envKeys, c.envProvider
		*c = *cfg.Clone()
		c.envKeys, c.envProvider = envKeys, envProvider
		c.FirstRun = false
		return nil
	})
}
