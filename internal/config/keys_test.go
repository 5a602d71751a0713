// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeys_FirstKeyBecomesDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.AddAPIKey("OpenAI", "first", "sk-aaaaaaaaaaaa", false))
	require.NoError(t, cfg.AddAPIKey(ProviderOpenAI, "second", "sk-bbbbbbbbbbbb", false))

	key, ok := cfg.DefaultAPIKey(ProviderOpenAI)
	require.True(t, ok)
	assert.Equal(t, "sk-aaaaaaaaaaaa", key)
	assert.Equal(t, "first", cfg.DefaultKeyName(ProviderOpenAI))
}

func TestAPIKeys_Errors(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.AddAPIKey("mistral", "x", "k", false), ErrUnknownProvider)
	assert.Error(t, cfg.AddAPIKey(ProviderOpenAI, "", "k", false))

	require.NoError(t, cfg.AddAPIKey(ProviderOpenAI, "main", "k", false))
	assert.ErrorIs(t, cfg.AddAPIKey(ProviderOpenAI, "main", "k2", false), ErrDuplicateKey)
	assert.ErrorIs(t, cfg.RemoveAPIKey(ProviderOpenAI, "ghost"), ErrKeyNotFound)
	assert.ErrorIs(t, cfg.SetDefaultAPIKey(ProviderGrok, "main"), ErrKeyNotFound)
}

func TestAPIKeys_SetDefaultAndRemove(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.AddAPIKey(ProviderGemini, "a", "AIzaAAAAAAAAAA", false))
	require.NoError(t, cfg.AddAPIKey(ProviderGemini, "b", "AIzaBBBBBBBBBB", false))
	require.NoError(t, cfg.AddAPIKey(ProviderGemini, "c", "AIzaCCCCCCCCCC", false))

	require.NoError(t, cfg.SetDefaultAPIKey(ProviderGemini, "c"))
	key, _ := cfg.DefaultAPIKey(ProviderGemini)
	assert.Equal(t, "AIzaCCCCCCCCCC", key)

	// Removing the default promotes the first remaining key.
	require.NoError(t, cfg.RemoveAPIKey(ProviderGemini, "c"))
	key, _ = cfg.DefaultAPIKey(ProviderGemini)
	assert.Equal(t, "AIzaAAAAAAAAAA", key)

	require.NoError(t, cfg.RemoveAPIKey(ProviderGemini, "a"))
	require.NoError(t, cfg.RemoveAPIKey(ProviderGemini, "b"))
	_, ok := cfg.DefaultAPIKey(ProviderGemini)
	assert.False(t, ok)
	assert.NotContains(t, cfg.APIKeys, ProviderGemini)
}

func TestAPIKeys_ListMasks(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.AddAPIKey(ProviderGrok, "main", "xai-1234567890abcd", false))
	require.NoError(t, cfg.AddAPIKey(ProviderOpenAI, "short", "sk-1", false))

	list := cfg.ListAPIKeys("")
	require.Len(t, list, 2)
	assert.Equal(t, KeyInfo{Provider: ProviderOpenAI, Name: "short", Masked: "***", IsDefault: true}, list[0])
	assert.Equal(t, KeyInfo{Provider: ProviderGrok, Name: "main", Masked: "xai-...abcd", IsDefault: true}, list[1])

	assert.Len(t, cfg.ListAPIKeys(ProviderGrok), 1)
	assert.Empty(t, cfg.ListAPIKeys(ProviderGemini))
}

func TestAgents_Lifecycle(t *testing.T) {
	cfg := Default()

	id, err := cfg.AddAgent("", "Shell Expert!", "Answer with shell commands.")
	require.NoError(t, err)
	assert.Equal(t, "shell-expert", id)

	_, err = cfg.AddAgent("shell-expert", "Other", "")
	assert.ErrorIs(t, err, ErrDuplicateAgent)

	_, err = cfg.AddAgent("", "  ", "")
	assert.Error(t, err)

	// Selection by name resolves to the ID.
	require.NoError(t, cfg.SelectAgent("shell expert!"))
	assert.Equal(t, "shell-expert", cfg.CurrentAgent)
	assert.Equal(t, "Answer with shell commands.", cfg.CurrentAgentInstructions())
	assert.ErrorIs(t, cfg.SelectAgent("ghost"), ErrAgentNotFound)

	require.NoError(t, cfg.RemoveAgent("shell-expert"))
	assert.Empty(t, cfg.CurrentAgent)
	assert.Empty(t, cfg.CurrentAgentInstructions())
	assert.ErrorIs(t, cfg.RemoveAgent("shell-expert"), ErrAgentNotFound)
}

func TestAgents_GeneratedIDForSymbolName(t *testing.T) {
	cfg := Default()
	id, err := cfg.AddAgent("", "!!!", "")
	require.NoError(t, err)
	assert.Len(t, id, 8)
}
