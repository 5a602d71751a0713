// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Registry owns one adapter per provider key and tracks the current one.
//
// The current selection always names an adapter in the registry, though
// that adapter may be uninitialized. All methods are safe for concurrent
// use. A send that is already running keeps the adapter it started with;
// switching only affects later sends.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Key]Adapter
	order    []Key
	current  Key

	cfg ConfigSource
	log *zap.Logger
}

// NewRegistry builds one adapter per factory, in AllKeys order.
// Each adapter starts on the model named by cfg, if any. The first adapter
// built becomes current.
func NewRegistry(cfg ConfigSource, factories Factories, opts Options, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		adapters: make(map[Key]Adapter, len(factories)),
		cfg:      cfg,
		log:      log.Named("registry"),
	}
	for _, key := range AllKeys {
		factory, ok := factories[key]
		if !ok {
			continue
		}
		adapterOpts := opts
		if cfg != nil {
			if m := cfg.Model(string(key)); m != "" {
				adapterOpts.Model = m
			}
		}
		r.adapters[key] = factory(adapterOpts)
		r.order = append(r.order, key)
	}
	if len(r.order) > 0 {
		r.current = r.order[0]
	}
	return r
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// InitializeAll initializes every adapter that has a credential.
//
// Failures are logged as warnings and leave the adapter uninitialized. If
// the current adapter did not come up, the configured default becomes
// current when it is initialized, otherwise the first initialized one.
// It returns the number of initialized adapters.
func (r *Registry) InitializeAll(creds CredentialSource) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initializeLocked(creds)
}

func (r *Registry) initializeLocked(creds CredentialSource) int {
	count := 0
	for _, key := range r.order {
		a := r.adapters[key]
		if creds == nil {
			continue
		}
		apiKey, ok := creds.DefaultAPIKey(string(key))
		if !ok || apiKey == "" {
			continue
		}
		if err := a.Initialize(apiKey); err != nil {
			r.log.Warn("provider initialization failed",
				zap.String("provider", string(key)),
				zap.Error(err),
			)
			continue
		}
		count++
	}

	if cur, ok := r.adapters[r.current]; !ok || !cur.IsInitialized() {
		r.current = r.fallbackLocked()
	}
	return count
}

// fallbackLocked picks a new current adapter: the configured default if it
// is initialized, then the first initialized adapter. With none up the
// selection is left where it was.
func (r *Registry) fallbackLocked() Key {
	if ds, ok := r.cfg.(DefaultSource); ok {
		key := Key(ds.DefaultProvider())
		if a, ok := r.adapters[key]; ok && a.IsInitialized() {
			return key
		}
	}
	for _, key := range r.order {
		if r.adapters[key].IsInitialized() {
			return key
		}
	}
	return r.current
}

// Reinitialize discards every adapter's client state and initializes again
// from the registry's config source. Used after credentials change.
func (r *Registry) Reinitialize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.order {
		r.adapters[key].Reset()
		if r.cfg != nil {
			if m := r.cfg.Model(string(key)); m != "" {
				r.adapters[key].UpdateModel(m)
			}
		}
	}
	return r.initializeLocked(r.cfg)
}

// =============================================================================
// SELECTION
// =============================================================================

// SwitchTo makes key current if its adapter exists and is initialized.
// Otherwise it returns false and leaves the selection unchanged.
func (r *Registry) SwitchTo(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.adapters[key]
	if !ok || !a.IsInitialized() {
		return false
	}
	r.current = key
	return true
}

// Current returns the current adapter's descriptor.
// ok is false when the registry is empty.
func (r *Registry) Current() (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[r.current]
	if !ok {
		return Descriptor{}, false
	}
	return Describe(a), true
}

// CurrentAdapter returns the current adapter if it is initialized.
func (r *Registry) CurrentAdapter() (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[r.current]
	if !ok || !a.IsInitialized() {
		return nil, false
	}
	return a, true
}

// Get returns the adapter for key.
func (r *Registry) Get(key Key) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[key]
	return a, ok
}

// IsAvailable reports whether key has an initialized adapter.
func (r *Registry) IsAvailable(key Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[key]
	return ok && a.IsInitialized()
}

// ListAvailable returns descriptors for initialized adapters only.
func (r *Registry) ListAvailable() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, key := range r.order {
		if a := r.adapters[key]; a.IsInitialized() {
			out = append(out, Describe(a))
		}
	}
	return out
}

// ListAll returns descriptors for every adapter, initialized or not.
func (r *Registry) ListAll() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, Describe(r.adapters[key]))
	}
	return out
}

// UpdateModel sets the model on the named adapter and persists it.
func (r *Registry) UpdateModel(key Key, model string) error {
	r.mu.RLock()
	a, ok := r.adapters[key]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, key)
	}
	a.UpdateModel(model)
	if r.cfg == nil {
		return nil
	}
	if err := r.cfg.SetModel(string(key), model); err != nil {
		return fmt.Errorf("failed to save model for %s: %w", key, err)
	}
	return nil
}
