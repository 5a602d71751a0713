// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/terminal-agent/internal/provider"
)

func TestFactories_CoverEveryKey(t *testing.T) {
	f := Factories()
	require.Len(t, f, len(provider.AllKeys))

	for _, key := range provider.AllKeys {
		factory, ok := f[key]
		require.True(t, ok, "missing factory for %s", key)
		a := factory(provider.Options{})
		assert.Equal(t, key, a.Key())
		assert.Equal(t, DisplayName(key), a.DisplayName())
		assert.Equal(t, DefaultModels()[string(key)], a.DefaultModel())
		assert.False(t, a.IsInitialized())
	}
}

func TestRegistry_WithBuiltins(t *testing.T) {
	reg := provider.NewRegistry(nil, Factories(), provider.Options{}, nil)

	all := reg.ListAll()
	require.Len(t, all, 3)
	assert.Equal(t, "ChatGPT (OpenAI)", all[0].DisplayName)
	assert.Equal(t, "Gemini (Google)", all[1].DisplayName)
	assert.Equal(t, "Grok AI (xAI)", all[2].DisplayName)
	assert.Empty(t, reg.ListAvailable())
}
