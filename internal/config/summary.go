// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"strings"
)

// ProviderSummary is one provider's row in a Summary.
type ProviderSummary struct {
	Provider   string
	Model      string
	KeyCount   int
	DefaultKey string
	FromEnv    bool
}

// Summary is a printable overview of the config. It never holds key values.
type Summary struct {
	Path            string
	DefaultProvider string
	Providers       []ProviderSummary
	CurrentAgent    string
	AgentCount      int
	Retry           RetryConfig
	Debug           bool
}

// Summarize builds a Summary for cfg stored at path.
func Summarize(cfg *Config, path string) Summary {
	s := Summary{
		Path:            path,
		DefaultProvider: cfg.EffectiveDefaultProvider(),
		AgentCount:      len(cfg.Agents),
		Retry:           cfg.Retry,
		Debug:           cfg.Debug,
	}
	if a, ok := cfg.CurrentAgentPreset(); ok {
		s.CurrentAgent = a.Name
	}
	for _, p := range KnownProviders {
		s.Providers = append(s.Providers, ProviderSummary{
			Provider:   p,
			Model:      cfg.Models[p],
			KeyCount:   len(cfg.APIKeys[p]),
			DefaultKey: cfg.DefaultKeyName(p),
			FromEnv:    cfg.HasEnvKey(p),
		})
	}
	return s
}

// String renders the summary as aligned plain text.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Config file:      %s\n", s.Path)
	fmt.Fprintf(&b, "Default provider: %s\n", s.DefaultProvider)
	agent := s.CurrentAgent
	if agent == "" {
		agent = "(none)"
	}
	fmt.Fprintf(&b, "Current agent:    %s (%d defined)\n", agent, s.AgentCount)
	fmt.Fprintf(&b, "Retry policy:     %d attempts, %dms base delay, %dms call timeout\n",
		s.Retry.MaxAttempts, s.Retry.BaseDelayMs, s.Retry.CallTimeoutMs)
	b.WriteString("\nProviders:\n")
	for _, p := range s.Providers {
		keys := "no keys"
		switch {
		case p.FromEnv:
			keys = fmt.Sprintf("%d stored, using %s", p.KeyCount, EnvKeyName)
		case p.KeyCount > 0:
			keys = fmt.Sprintf("%d stored, default %q", p.KeyCount, p.DefaultKey)
		}
		fmt.Fprintf(&b, "  %-8s model %-20s %s\n", p.Provider, p.Model, keys)
	}
	return b.String()
}
