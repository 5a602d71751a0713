// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable ApplyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"OPENAI_API_KEY", "GEMINI_API_KEY", "GROK_API_KEY",
		"TERMINAL_AGENT_PROVIDER", "TERMINAL_AGENT_DEBUG",
	} {
		t.Setenv(name, "")
	}
}

// =============================================================================
// DEFAULTS AND LOADING
// =============================================================================

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ProviderGemini, cfg.DefaultProvider)
	assert.True(t, cfg.FirstRun)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Models[ProviderOpenAI])
	assert.Equal(t, "gemini-2.0-flash", cfg.Models[ProviderGemini])
	assert.Equal(t, "grok-3", cfg.Models[ProviderGrok])
	assert.Equal(t, RetryConfig{MaxAttempts: 5, BaseDelayMs: 1000, CallTimeoutMs: 30000}, cfg.Retry)
	assert.Equal(t, 80, cfg.UI.WordWrap)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromPath_MissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.True(t, cfg.FirstRun)
	assert.Equal(t, ProviderGemini, cfg.DefaultProvider)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.FirstRun = false
	cfg.DefaultProvider = ProviderGrok
	cfg.Models[ProviderGrok] = "grok-4"
	require.NoError(t, cfg.AddAPIKey(ProviderGrok, "work", "xai-1234567890", false))
	require.NoError(t, cfg.AddAPIKey(ProviderGrok, "home", "xai-0987654321", true))
	_, err := cfg.AddAgent("", "Code Reviewer", "Review code tersely.")
	require.NoError(t, err)
	require.NoError(t, cfg.SelectAgent("code-reviewer"))

	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# terminal-agent configuration file"))
	assert.Contains(t, string(data), "[[api_keys.grok]]")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.False(t, loaded.FirstRun)
	assert.Equal(t, ProviderGrok, loaded.DefaultProvider)
	assert.Equal(t, "grok-4", loaded.Models[ProviderGrok])
	key, ok := loaded.DefaultAPIKey(ProviderGrok)
	require.True(t, ok)
	assert.Equal(t, "xai-0987654321", key)
	assert.Equal(t, "Review code tersely.", loaded.CurrentAgentInstructions())
}

func TestLoad_FixesInsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`default_provider = "openai"`), 0644))

	_, err := LoadFromPath(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoad_MigratesLegacyKeys(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	legacy := `
defaultProvider = "ignored"
default_provider = "OpenAI"

[api_keys]
openai = "sk-legacy-1234567890"
gemini = ""
`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.DefaultProvider)
	require.Len(t, cfg.APIKeys[ProviderOpenAI], 1)
	assert.Equal(t, APIKey{Name: "default", Key: "sk-legacy-1234567890", IsDefault: true}, cfg.APIKeys[ProviderOpenAI][0])
	assert.Empty(t, cfg.APIKeys[ProviderGemini])
	assert.Equal(t, CurrentVersion, cfg.Version)
	// Missing sections fall back to defaults.
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, "grok-3", cfg.Models[ProviderGrok])
}

func TestLoad_InvalidTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("default_provider = "), 0600))

	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "  env-gemini-key  ")
	t.Setenv("TERMINAL_AGENT_PROVIDER", "Grok")
	t.Setenv("TERMINAL_AGENT_DEBUG", "true")

	cfg := Default()
	require.NoError(t, cfg.AddAPIKey(ProviderGemini, "stored", "stored-gemini-key", true))
	cfg.ApplyEnvOverrides()

	key, ok := cfg.DefaultAPIKey(ProviderGemini)
	require.True(t, ok)
	assert.Equal(t, "env-gemini-key", key)
	assert.Equal(t, EnvKeyName, cfg.DefaultKeyName(ProviderGemini))
	assert.Equal(t, ProviderGrok, cfg.EffectiveDefaultProvider())
	assert.Equal(t, ProviderGemini, cfg.DefaultProvider, "persisted default is untouched")
	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{ProviderGemini}, cfg.AvailableProviders())
}

func TestApplyEnvOverrides_NotPersisted(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-env-123456")
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-from-env")
}

func TestApplyEnvOverrides_UnknownProviderIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("TERMINAL_AGENT_PROVIDER", "mistral")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, ProviderGemini, cfg.EffectiveDefaultProvider())
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown default provider", func(c *Config) { c.DefaultProvider = "mistral" }, "DefaultProvider"},
		{"empty default provider", func(c *Config) { c.DefaultProvider = "" }, "DefaultProvider"},
		{"unknown model provider", func(c *Config) { c.Models["mistral"] = "large" }, "Models"},
		{"empty model", func(c *Config) { c.Models[ProviderOpenAI] = "" }, "Models"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "Retry.MaxAttempts"},
		{"huge delay", func(c *Config) { c.Retry.BaseDelayMs = 120000 }, "Retry.BaseDelayMs"},
		{"negative timeout", func(c *Config) { c.Retry.CallTimeoutMs = -1 }, "Retry.CallTimeoutMs"},
		{"key without value", func(c *Config) {
			c.APIKeys[ProviderOpenAI] = []APIKey{{Name: "x"}}
		}, "APIKeys"},
		{"duplicate key names", func(c *Config) {
			c.APIKeys[ProviderOpenAI] = []APIKey{{Name: "a", Key: "k1"}, {Name: "a", Key: "k2"}}
		}, "api_keys.openai"},
		{"duplicate agents", func(c *Config) {
			c.Agents = []Agent{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}}
		}, "agents"},
		{"dangling current agent", func(c *Config) { c.CurrentAgent = "ghost" }, "current_agent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.ErrorAs(t, err, &verrs)
			found := false
			for _, e := range verrs {
				if strings.HasPrefix(e.Field, tt.field) {
					found = true
				}
			}
			assert.True(t, found, "expected an error on %s, got %v", tt.field, verrs)
		})
	}
}

// =============================================================================
// CLONE AND STRING
// =============================================================================

func TestConfig_CloneIsDeep(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.AddAPIKey(ProviderOpenAI, "main", "sk-1234567890", true))

	clone := cfg.Clone()
	clone.Models[ProviderOpenAI] = "gpt-4"
	clone.APIKeys[ProviderOpenAI][0].Key = "changed"

	assert.Equal(t, "gpt-3.5-turbo", cfg.Models[ProviderOpenAI])
	assert.Equal(t, "sk-1234567890", cfg.APIKeys[ProviderOpenAI][0].Key)
}

func TestConfig_CloneKeepsEmptyCollections(t *testing.T) {
	cfg := Default()
	cfg.Agents = []Agent{}

	assert.NotNil(t, cfg.Clone().Agents)

	cfg.Agents = nil
	assert.Nil(t, cfg.Clone().Agents)
}

func TestConfig_Equal(t *testing.T) {
	a := Default()
	b := Default()
	a.Agents = nil
	b.Agents = []Agent{}
	b.APIKeys[ProviderGrok] = []APIKey{}
	assert.True(t, a.Equal(b), "empty and nil collections match")

	b.DefaultProvider = ProviderGrok
	assert.False(t, a.Equal(b))

	c := Default()
	require.NoError(t, c.AddAPIKey(ProviderOpenAI, "main", "sk-1234567890", true))
	assert.False(t, a.Equal(c))
}

func TestConfig_StringRedactsKeys(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.AddAPIKey(ProviderOpenAI, "main", "sk-secret-1234567890", true))

	s := cfg.String()
	assert.NotContains(t, s, "sk-secret")
	assert.Contains(t, s, "[REDACTED]")
	assert.Equal(t, "sk-secret-1234567890", cfg.APIKeys[ProviderOpenAI][0].Key)
}
