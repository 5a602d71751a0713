// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"strings"
)

// KeyInfo describes a stored key without exposing it.
type KeyInfo struct {
	Provider  string
	Name      string
	Masked    string
	IsDefault bool
}

// AddAPIKey stores a named key for provider. The first key for a provider,
// or any key added with makeDefault, becomes the default.
func (c *Config) AddAPIKey(provider, name, key string, makeDefault bool) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if err := checkProvider(provider); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	key = strings.TrimSpace(key)
	if name == "" || key == "" {
		return fmt.Errorf("key name and value are required")
	}
	if c.APIKeys == nil {
		c.APIKeys = map[string][]APIKey{}
	}
	keys := c.APIKeys[provider]
	for _, k := range keys {
		if k.Name == name {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateKey, provider, name)
		}
	}
	if len(keys) == 0 {
		makeDefault = true
	}
	if makeDefault {
		for i := range keys {
			keys[i].IsDefault = false
		}
	}
	c.APIKeys[provider] = append(keys, APIKey{Name: name, Key: key, IsDefault: makeDefault})
	return nil
}

// RemoveAPIKey deletes a named key. If it was the default, the first
// remaining key is promoted.
func (c *Config) RemoveAPIKey(provider, name string) error {
	keys := c.APIKeys[provider]
	for i, k := range keys {
		if k.Name != name {
			continue
		}
		keys = append(keys[:i:i], keys[i+1:]...)
		if len(keys) == 0 {
			delete(c.APIKeys, provider)
			return nil
		}
		c.APIKeys[provider] = ensureSingleDefault(keys)
		return nil
	}
	return fmt.Errorf("%w: %s/%s", ErrKeyNotFound, provider, name)
}

// SetDefaultAPIKey marks name as the default key for provider.
func (c *Config) SetDefaultAPIKey(provider, name string) error {
	keys := c.APIKeys[provider]
	idx := -1
	for i, k := range keys {
		if k.Name == name {
			idx = i
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s/%s", ErrKeyNotFound, provider, name)
	}
	for i := range keys {
		keys[i].IsDefault = i == idx
	}
	return nil
}

// ListAPIKeys returns masked key info for one provider, or every provider
// when provider is empty.
func (c *Config) ListAPIKeys(provider string) []KeyInfo {
	var providers []string
	if provider != "" {
		providers = []string{provider}
	} else {
		providers = sortedProviders(c.APIKeys)
	}
	var out []KeyInfo
	for _, p := range providers {
		for _, k := range c.APIKeys[p] {
			out = append(out, KeyInfo{Provider: p, Name: k.Name, Masked: maskKey(k.Key), IsDefault: k.IsDefault})
		}
	}
	return out
}

// DefaultAPIKey returns the key to use for provider. An environment
// override wins, then the stored default, then the first stored key.
func (c *Config) DefaultAPIKey(provider string) (string, bool) {
	if k, ok := c.envKeys[provider]; ok {
		return k, true
	}
	keys := c.APIKeys[provider]
	for _, k := range keys {
		if k.IsDefault && k.Key != "" {
			return k.Key, true
		}
	}
	for _, k := range keys {
		if k.Key != "" {
			return k.Key, true
		}
	}
	return "", false
}

// DefaultKeyName names the key DefaultAPIKey would return.
func (c *Config) DefaultKeyName(provider string) string {
	if c.HasEnvKey(provider) {
		return EnvKeyName
	}
	keys := c.APIKeys[provider]
	for _, k := range keys {
		if k.IsDefault {
			return k.Name
		}
	}
	if len(keys) > 0 {
		return keys[0].Name
	}
	return ""
}

// AvailableProviders lists providers that have a usable key.
func (c *Config) AvailableProviders() []string {
	var out []string
	for _, p := range KnownProviders {
		if _, ok := c.DefaultAPIKey(p); ok {
			out = append(out, p)
		}
	}
	return out
}

// maskKey shows the first and last four characters.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
