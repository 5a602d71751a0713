// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	clearEnv(t)
	m, err := Open(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	return m
}

func TestManager_SetModelPersists(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.SetModel(ProviderOpenAI, "gpt-4o"))
	assert.Equal(t, "gpt-4o", m.Model(ProviderOpenAI))
	assert.ErrorIs(t, m.SetModel("mistral", "large"), ErrUnknownProvider)

	reloaded, err := LoadFromPath(m.Path())
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", reloaded.Models[ProviderOpenAI])
}

func TestManager_UpdateIsAllOrNothing(t *testing.T) {
	m := newTestManager(t)

	err := m.Update(func(c *Config) error {
		c.DefaultProvider = "mistral"
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, ProviderGemini, m.Snapshot().DefaultProvider)

	boom := errors.New("boom")
	err = m.Update(func(c *Config) error {
		c.Models[ProviderGrok] = "grok-4"
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "grok-3", m.Model(ProviderGrok))
}

func TestManager_SnapshotIsIsolated(t *testing.T) {
	m := newTestManager(t)
	snap := m.Snapshot()
	snap.Models[ProviderGemini] = "mutated"
	assert.Equal(t, "gemini-2.0-flash", m.Model(ProviderGemini))
}

func TestManager_ReplaceKeepsEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROK_API_KEY", "xai-env-key-123456")
	m, err := Open(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)

	imported := Default()
	imported.DefaultProvider = ProviderOpenAI
	require.NoError(t, imported.AddAPIKey(ProviderOpenAI, "main", "sk-imported-123456", true))
	require.NoError(t, m.Replace(imported))

	snap := m.Snapshot()
	assert.Equal(t, ProviderOpenAI, snap.DefaultProvider)
	assert.False(t, snap.FirstRun)
	key, ok := m.DefaultAPIKey(ProviderGrok)
	require.True(t, ok)
	assert.Equal(t, "xai-env-key-123456", key)
	assert.Equal(t, []string{ProviderOpenAI, ProviderGrok}, m.AvailableProviders())
}

func TestManager_ReloadDetectsChanges(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Save())

	changed, err := m.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	other := m.Snapshot()
	other.DefaultProvider = ProviderGrok
	require.NoError(t, SaveTOML(other, m.Path()))

	changed, err = m.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, ProviderGrok, m.Snapshot().DefaultProvider)
}

func TestManager_DefaultProvider(t *testing.T) {
	m := newTestManager(t)
	assert.Equal(t, ProviderGemini, m.DefaultProvider())

	require.NoError(t, m.Update(func(c *Config) error {
		c.DefaultProvider = ProviderOpenAI
		return nil
	}))
	assert.Equal(t, ProviderOpenAI, m.DefaultProvider())

	t.Setenv("TERMINAL_AGENT_PROVIDER", "grok")
	_, err := m.Reload()
	require.NoError(t, err)
	assert.Equal(t, ProviderGrok, m.DefaultProvider())
}

func TestManager_ReloadIgnoresOwnSaves(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.SetModel(ProviderGemini, "gemini-2.5-flash"))
	changed, err := m.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "a save by this process is not an external change")

	// Removing the only agent leaves an empty, non-nil slice behind.
	require.NoError(t, m.Update(func(c *Config) error {
		_, err := c.AddAgent("poet", "Poet", "Answer in verse.")
		return err
	}))
	require.NoError(t, m.Update(func(c *Config) error { return c.RemoveAgent("poet") }))
	changed, err = m.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
}

// TestManager_ConcurrentAccess exercises the lock under -race.
func TestManager_ConcurrentAccess(t *testing.T) {
	m := newTestManager(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			model := "gpt-4"
			if i%2 == 0 {
				model = "gpt-4o"
			}
			assert.NoError(t, m.SetModel(ProviderOpenAI, model))
		}(i)
		go func() {
			defer wg.Done()
			_ = m.Model(ProviderOpenAI)
			_, _ = m.DefaultAPIKey(ProviderOpenAI)
			_ = m.CurrentAgentInstructions()
		}()
	}
	wg.Wait()

	assert.Contains(t, []string{"gpt-4", "gpt-4o"}, m.Model(ProviderOpenAI))
}

func TestManager_WatchReloadsExternalWrites(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Save())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.Watch(ctx, 20*time.Millisecond, zap.NewNop(), func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	other := m.Snapshot()
	other.Models[ProviderGemini] = "gemini-2.5-pro"
	require.NoError(t, SaveTOML(other, m.Path()))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}
	assert.Equal(t, "gemini-2.5-pro", m.Model(ProviderGemini))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestManager_WatchRequiresPath(t *testing.T) {
	m := NewManager(Default(), "")
	assert.Error(t, m.Watch(context.Background(), 0, nil, nil))
}
