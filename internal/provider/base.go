// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import "sync"

// Base carries the identity and model selection every adapter shares.
// Adapters embed it and implement the credential and send parts.
type Base struct {
	mu           sync.RWMutex
	key          Key
	displayName  string
	models       []string
	defaultModel string
	model        string
}

// NewBase creates a Base. An empty model selects defaultModel.
func NewBase(key Key, displayName string, models []string, defaultModel, model string) *Base {
	if model == "" {
		model = defaultModel
	}
	return &Base{
		key:          key,
		displayName:  displayName,
		models:       append([]string(nil), models...),
		defaultModel: defaultModel,
		model:        model,
	}
}

// Key returns the provider key.
func (b *Base) Key() Key { return b.key }

// DisplayName returns the human readable provider name.
func (b *Base) DisplayName() string { return b.displayName }

// DefaultModel returns the model used when none is configured.
func (b *Base) DefaultModel() string { return b.defaultModel }

// AvailableModels returns a copy of the supported model list.
func (b *Base) AvailableModels() []string {
	return append([]string(nil), b.models...)
}

// Model returns the selected model.
func (b *Base) Model() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// UpdateModel selects a model. Names outside AvailableModels are accepted,
// since providers add models faster than this list is updated. An empty
// name restores the default.
func (b *Base) UpdateModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if model == "" {
		model = b.defaultModel
	}
	b.model = model
}

// SupportsModel reports whether model is in the known list.
func (b *Base) SupportsModel(model string) bool {
	for _, m := range b.models {
		if m == model {
			return true
		}
	}
	return false
}
