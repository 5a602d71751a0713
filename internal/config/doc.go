// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// terminal-agent.
//
// # Key Types
//
//   - Config: the persisted settings (provider, models, keys, agents)
//   - APIKey: one named credential; a provider may hold several
//   - Agent: a persona preset whose instructions lead a fresh conversation
//   - Manager: concurrency-safe owner of the live config and its file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (OPENAI_API_KEY, GEMINI_API_KEY, GROK_API_KEY,
//     TERMINAL_AGENT_PROVIDER, TERMINAL_AGENT_DEBUG)
//   - ~/.terminal-agent/config.toml
//   - Built-in defaults
//
// Environment values are held in memory only and never saved.
//
// # Usage
//
//	mgr, err := config.Open("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	key, ok := mgr.DefaultAPIKey(config.ProviderGemini)
package config
