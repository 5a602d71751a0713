// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - First-run setup wizard.
//
// Command: setup (also --setup)
//
// Steps:
//  1. API keys: report which providers have a key; offer to enter the missing ones
//  2. Default provider: auto-selected when one is ready, chosen from a list otherwise
//  3. Model: optionally pick the default provider's model
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/terminal-agent/internal/config"
	"github.com/jeranaias/terminal-agent/internal/provider"
)

// keyHelp is where each provider hands out API keys.
var keyHelp = map[provider.Key]struct {
	URL    string
	EnvVar string
}{
	provider.OpenAI: {"https://platform.openai.com/api-keys", "OPENAI_API_KEY"},
	provider.Gemini: {"https://makersuite.google.com/app/apikey", "GEMINI_API_KEY"},
	provider.Grok:   {"https://console.x.ai/", "GROK_API_KEY"},
}

// HandleSetup runs the interactive setup wizard and saves the result.
func (a *App) HandleSetup() error {
	out := a.Out

	fmt.Fprintln(out)
	fmt.Fprintln(out, RenderConditional(TitleStyle, "Terminal Agent Setup Wizard"))
	fmt.Fprintln(out, RenderSeparator(39))
	fmt.Fprintln(out)

	if err := a.setupKeys(); err != nil {
		return err
	}
	a.Providers.Reinitialize()

	chosen, err := a.setupDefaultProvider()
	if err != nil {
		return err
	}
	if err := a.setupModel(chosen); err != nil {
		return err
	}

	if err := a.Config.Update(func(c *config.Config) error {
		c.FirstRun = false
		return nil
	}); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	a.Providers.SwitchTo(chosen)

	fmt.Fprintln(out)
	fmt.Fprintln(out, RenderConditional(SuccessStyle, "Setup Complete!"))
	fmt.Fprintf(out, "Config saved to %s\n", a.Config.Path())
	fmt.Fprintln(out, "Run 'terminal-agent' to start chatting. Use /switch to change providers.")
	fmt.Fprintln(out)
	return nil
}

// =============================================================================
// STEP 1: API KEYS
// =============================================================================

func (a *App) setupKeys() error {
	out := a.Out
	fmt.Fprintln(out, RenderConditional(SectionStyle, "Step 1: API Keys"))
	fmt.Fprintln(out, strings.Repeat("-", 16))

	cfg := a.Config.Snapshot()
	found := 0
	var missing []provider.Descriptor
	for _, d := range a.Providers.ListAll() {
		if _, ok := cfg.DefaultAPIKey(string(d.Key)); ok {
			source := "stored"
			if cfg.HasEnvKey(string(d.Key)) {
				source = "from " + keyHelp[d.Key].EnvVar
			}
			fmt.Fprintf(out, "  %s %s (%s)\n", RenderStatus("found"), d.DisplayName, source)
			found++
			continue
		}
		fmt.Fprintf(out, "  %s %s\n", RenderStatus("missing"), d.DisplayName)
		missing = append(missing, d)
	}
	fmt.Fprintf(out, "\nSummary: %d/%d API keys configured\n\n", found, found+len(missing))

	for _, d := range missing {
		help := keyHelp[d.Key]
		fmt.Fprintf(out, "%s: get a key at %s (or set %s)\n", d.DisplayName, help.URL, help.EnvVar)
		key, err := a.promptSecret(fmt.Sprintf("%s API key (press Enter to skip): ", d.DisplayName))
		if err != nil {
			return err
		}
		if key == "" {
			fmt.Fprintln(out)
			continue
		}
		if err := a.Config.Update(func(c *config.Config) error {
			return c.AddAPIKey(string(d.Key), "default", key, true)
		}); err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s Saved key for %s\n\n", RenderStatus("ok"), d.DisplayName)
	}
	return nil
}

// =============================================================================
// STEP 2: DEFAULT PROVIDER
// =============================================================================

func (a *App) setupDefaultProvider() (provider.Key, error) {
	out := a.Out
	fmt.Fprintln(out, RenderConditional(SectionStyle, "Step 2: Default Provider"))
	fmt.Fprintln(out, strings.Repeat("-", 24))

	available := a.Providers.ListAvailable()
	var chosen provider.Key

	switch len(available) {
	case 0:
		fmt.Fprintln(out, "No API keys found. You can still open the chat and add keys later with /settings.")
		ok, err := a.promptYesNo("Continue without API keys?", true)
		if err != nil {
			return "", err
		}
		if !ok {
			fmt.Fprintln(out, ErrSetupCancelled.Error())
			return "", ErrSetupCancelled
		}
		chosen = provider.Gemini

	case 1:
		chosen = available[0].Key
		fmt.Fprintf(out, "Auto-selected %s as your default provider.\n", RenderConditional(ProviderStyle, available[0].DisplayName))

	default:
		all := a.Providers.ListAll()
		for i, d := range all {
			status := RenderStatus("ready")
			if !d.Initialized {
				status = RenderConditional(WarningStyle, "needs API key")
			}
			fmt.Fprintf(out, "  [%d] %s %s\n", i+1, d.DisplayName, status)
		}
		def := available[0]
		answer, err := a.promptLine(fmt.Sprintf("Select default provider [%s]: ", def.Key))
		if err != nil {
			return "", err
		}
		chosen = def.Key
		if answer != "" {
			if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(all) {
				chosen = all[n-1].Key
			} else if key, err := provider.ParseKey(answer); err == nil {
				chosen = key
			} else {
				fmt.Fprintf(out, "Invalid choice. Using %s.\n", def.DisplayName)
			}
		}
		if !a.Providers.IsAvailable(chosen) {
			fmt.Fprintf(out, "%s needs an API key; add one later with /settings.\n", chosen)
		}
	}

	if err := a.Config.Update(func(c *config.Config) error {
		c.DefaultProvider = string(chosen)
		return nil
	}); err != nil {
		return "", err
	}
	fmt.Fprintln(out)
	return chosen, nil
}

// =============================================================================
// STEP 3: MODEL
// =============================================================================

func (a *App) setupModel(key provider.Key) error {
	adapter, ok := a.Providers.Get(key)
	if !ok {
		return nil
	}
	d := provider.Describe(adapter)

	out := a.Out
	fmt.Fprintln(out, RenderConditional(SectionStyle, "Step 3: Model for "+d.DisplayName))
	fmt.Fprintln(out, strings.Repeat("-", 20))
	for i, m := range d.AvailableModels {
		marker := " "
		if m == d.Model {
			marker = "*"
		}
		fmt.Fprintf(out, "  %s [%d] %s\n", marker, i+1, m)
	}

	answer, err := a.promptLine(fmt.Sprintf("Select model (1-%d) or press Enter for %s: ", len(d.AvailableModels), d.Model))
	if err != nil {
		return err
	}
	if answer == "" {
		return nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(d.AvailableModels) {
		fmt.Fprintf(out, "Invalid choice. Keeping %s.\n", d.Model)
		return nil
	}
	model := d.AvailableModels[n-1]
	if err := a.Providers.UpdateModel(key, model); err != nil {
		return err
	}
	fmt.Fprintf(out, "Model updated to %s\n", model)
	return nil
}
