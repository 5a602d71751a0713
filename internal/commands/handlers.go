// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/terminal-agent/internal/config"
	"github.com/jeranaias/terminal-agent/internal/provider"
)

var errNoConfig = errors.New("settings are not available in this session")

// HelpText lists every command with its usage.
func (r *Registry) HelpText() string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, cmd := range r.All() {
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		fmt.Fprintf(&b, "  %-32s %s\n", usage, cmd.Description)
	}
	b.WriteString("\nCtrl+C cancels a request in flight.")
	return b.String()
}

// =============================================================================
// NAVIGATION AND CONVERSATION
// =============================================================================

func handleExit(_ *Context, _ []string) (Result, error) {
	return Result{Output: "Goodbye!", Quit: true}, nil
}

func handleClear(ctx *Context, _ []string) (Result, error) {
	if ctx.Conversation != nil {
		ctx.Conversation.Clear()
	}
	return Result{Output: "Chat history cleared", Cleared: true}, nil
}

// =============================================================================
// PROVIDERS AND MODELS
// =============================================================================

func handleSwitch(ctx *Context, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{Output: providerList(ctx.Providers)}, nil
	}

	key, err := provider.ParseKey(args[0])
	if err != nil {
		return Result{}, err
	}
	if !ctx.Providers.SwitchTo(key) {
		return Result{}, fmt.Errorf("%s is not available; add a key with /settings key add %s <name> <key>", key, key)
	}

	out := "Switched to " + describeCurrent(ctx.Providers)
	if ctx.Config != nil {
		if err := ctx.Config.Update(func(c *config.Config) error {
			c.DefaultProvider = string(key)
			return nil
		}); err != nil {
			out += fmt.Sprintf("\nWarning: could not save default provider: %v", err)
		}
	}
	return Result{Output: out, ProviderChanged: true}, nil
}

func handleModel(ctx *Context, args []string) (Result, error) {
	cur, ok := ctx.Providers.Current()
	if !ok {
		return Result{}, provider.ErrNotInitialized
	}

	if len(args) == 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "%s model: %s\n", cur.DisplayName, cur.Model)
		for _, m := range cur.AvailableModels {
			marker := " "
			if m == cur.Model {
				marker = "*"
			}
			fmt.Fprintf(&b, "  %s %s\n", marker, m)
		}
		return Result{Output: strings.TrimRight(b.String(), "\n")}, nil
	}

	name := args[0]
	var out string
	if !contains(cur.AvailableModels, name) {
		out = fmt.Sprintf("Warning: %s is not a known %s model; using it anyway\n", name, cur.DisplayName)
	}
	if err := ctx.Providers.UpdateModel(cur.Key, name); err != nil {
		return Result{}, err
	}
	out += fmt.Sprintf("%s now uses %s", cur.DisplayName, name)
	return Result{Output: out, ProviderChanged: true}, nil
}

func providerList(reg *provider.Registry) string {
	cur, _ := reg.Current()
	var b strings.Builder
	b.WriteString("Providers:\n")
	for _, d := range reg.ListAll() {
		marker := " "
		if d.Key == cur.Key {
			marker = "*"
		}
		status := "ready"
		if !d.Initialized {
			status = "no API key"
		}
		fmt.Fprintf(&b, "  %s %-7s %-18s %-20s %s\n", marker, d.Key, d.DisplayName, d.Model, status)
	}
	b.WriteString("Use /switch <provider> to change.")
	return b.String()
}

func describeCurrent(reg *provider.Registry) string {
	d, ok := reg.Current()
	if !ok {
		return "no provider"
	}
	return fmt.Sprintf("%s (%s)", d.DisplayName, d.Model)
}

// =============================================================================
// AGENTS
// =============================================================================

func handleAgent(ctx *Context, args []string) (Result, error) {
	if ctx.Config == nil {
		return Result{}, errNoConfig
	}
	snap := ctx.Config.Snapshot()

	if len(args) == 0 {
		if len(snap.Agents) == 0 {
			return Result{Output: "No agents defined. Add one with: terminal-agent agents add <name> <instructions>"}, nil
		}
		var b strings.Builder
		b.WriteString("Agents:\n")
		for _, a := range snap.Agents {
			marker := " "
			if a.ID == snap.CurrentAgent {
				marker = "*"
			}
			fmt.Fprintf(&b, "  %s %-16s %s\n", marker, a.ID, a.Name)
		}
		return Result{Output: strings.TrimRight(b.String(), "\n")}, nil
	}

	id := args[0]
	if strings.EqualFold(id, "none") || strings.EqualFold(id, "off") {
		id = ""
	}
	if err := ctx.Config.Update(func(c *config.Config) error { return c.SelectAgent(id) }); err != nil {
		return Result{}, err
	}

	out := "Agent cleared"
	if a, ok := ctx.Config.Snapshot().CurrentAgentPreset(); ok {
		out = "Agent set to " + a.Name
	}
	if ctx.Conversation != nil && !ctx.Conversation.IsEmpty() {
		out += " (applies to the next conversation; /clear to start one)"
	}
	return Result{Output: out}, nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func handleSettings(ctx *Context, args []string) (Result, error) {
	if ctx.Config == nil {
		return Result{}, errNoConfig
	}
	if len(args) == 0 {
		s := config.Summarize(ctx.Config.Snapshot(), ctx.Config.Path())
		return Result{Output: s.String() + "\nType /help for settings subcommands."}, nil
	}

	switch strings.ToLower(args[0]) {
	case "default":
		if len(args) < 2 {
			return Result{}, fmt.Errorf("usage: /settings default <provider>")
		}
		key, err := provider.ParseKey(args[1])
		if err != nil {
			return Result{}, err
		}
		if err := ctx.Config.Update(func(c *config.Config) error {
			c.DefaultProvider = string(key)
			return nil
		}); err != nil {
			return Result{}, err
		}
		return Result{Output: "Default provider set to " + string(key)}, nil

	case "key":
		return handleKeySettings(ctx, args[1:])

	case "export":
		if len(args) < 2 {
			return Result{}, fmt.Errorf("usage: /settings export <file>")
		}
		if err := config.ExportFile(args[1], ctx.Config.Snapshot()); err != nil {
			return Result{}, err
		}
		return Result{Output: "Configuration exported to " + args[1]}, nil

	case "import":
		if len(args) < 2 {
			return Result{}, fmt.Errorf("usage: /settings import <file>")
		}
		cfg, err := config.ImportFile(args[1])
		if err != nil {
			return Result{}, err
		}
		if err := ctx.Config.Replace(cfg); err != nil {
			return Result{}, err
		}
		n := ctx.Providers.Reinitialize()
		return Result{
			Output:          fmt.Sprintf("Configuration imported from %s (%d providers ready)", args[1], n),
			ProviderChanged: true,
		}, nil
	}
	return Result{}, fmt.Errorf("unknown settings action: %s", args[0])
}

func handleKeySettings(ctx *Context, args []string) (Result, error) {
	if len(args) == 0 || strings.EqualFold(args[0], "list") {
		var b strings.Builder
		keys := ctx.Config.Snapshot().ListAPIKeys("")
		if len(keys) == 0 {
			return Result{Output: "No API keys stored."}, nil
		}
		for _, k := range keys {
			def := ""
			if k.IsDefault {
				def = " (default)"
			}
			fmt.Fprintf(&b, "  %-7s %-16s %s%s\n", k.Provider, k.Name, k.Masked, def)
		}
		return Result{Output: strings.TrimRight(b.String(), "\n")}, nil
	}

	action := strings.ToLower(args[0])
	var fn func(c *config.Config) error
	var done string
	switch action {
	case "add":
		if len(args) < 4 {
			return Result{}, fmt.Errorf("usage: /settings key add <provider> <name> <key>")
		}
		fn = func(c *config.Config) error { return c.AddAPIKey(args[1], args[2], args[3], false) }
		done = fmt.Sprintf("Added key %q for %s", args[2], args[1])
	case "remove", "rm":
		if len(args) < 3 {
			return Result{}, fmt.Errorf("usage: /settings key remove <provider> <name>")
		}
		fn = func(c *config.Config) error { return c.RemoveAPIKey(args[1], args[2]) }
		done = fmt.Sprintf("Removed key %q for %s", args[2], args[1])
	case "default":
		if len(args) < 3 {
			return Result{}, fmt.Errorf("usage: /settings key default <provider> <name>")
		}
		fn = func(c *config.Config) error { return c.SetDefaultAPIKey(args[1], args[2]) }
		done = fmt.Sprintf("Key %q is now the default for %s", args[2], args[1])
	default:
		return Result{}, fmt.Errorf("unknown key action: %s", args[0])
	}

	if err := ctx.Config.Update(fn); err != nil {
		return Result{}, err
	}
	n := ctx.Providers.Reinitialize()
	return Result{
		Output:          fmt.Sprintf("%s (%d providers ready)", done, n),
		ProviderChanged: true,
	}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
