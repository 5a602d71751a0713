// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// manage.go - Configuration, export/import, agent and key commands.
//
// Commands:
//   terminal-agent config                       Show configuration summary
//   terminal-agent export [file]                Export (.json, .yaml or .yml)
//   terminal-agent import [file]                Import and replace configuration
//   terminal-agent agents list|add|remove|select
//   terminal-agent keys list|add|remove|default
package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jeranaias/terminal-agent/internal/config"
	"github.com/jeranaias/terminal-agent/internal/util"
)

// HandleConfig prints the configuration summary. Keys are never shown.
func (a *App) HandleConfig() error {
	s := config.Summarize(a.Config.Snapshot(), a.Config.Path())
	fmt.Fprintln(a.Out, RenderConditional(TitleStyle, "Current Configuration"))
	fmt.Fprintln(a.Out, s.String())
	return nil
}

// HandleExport writes the configuration to path.
func (a *App) HandleExport(path string) error {
	if err := config.ExportFile(path, a.Config.Snapshot()); err != nil {
		return &CommandError{Command: "export", Err: err}
	}
	abs, _ := filepath.Abs(path)
	fmt.Fprintf(a.Out, "%s Configuration exported to: %s\n", RenderStatus("ok"), abs)
	a.warn("the export contains your API keys; keep it private")
	return nil
}

// HandleImport replaces the configuration with the one in path.
func (a *App) HandleImport(path string) error {
	cfg, err := config.ImportFile(path)
	if err != nil {
		return err
	}
	if err := a.Config.Replace(cfg); err != nil {
		return &CommandError{Command: "import", Action: "save", Err: err}
	}
	n := a.Providers.Reinitialize()
	abs, _ := filepath.Abs(path)
	fmt.Fprintf(a.Out, "%s Configuration imported from: %s (%d providers ready)\n", RenderStatus("ok"), abs, n)
	return nil
}

// =============================================================================
// AGENTS
// =============================================================================

// HandleAgents manages agent presets.
//
//	agents list
//	agents add <name> <instructions...>
//	agents remove <id>
//	agents select <id|none>
func (a *App) HandleAgents(action string, rest []string) error {
	switch action {
	case "", "list", "ls":
		cfg := a.Config.Snapshot()
		if len(cfg.Agents) == 0 {
			fmt.Fprintln(a.Out, "No agents defined. Add one with: terminal-agent agents add <name> <instructions>")
			return nil
		}
		for _, ag := range cfg.Agents {
			marker := " "
			if ag.ID == cfg.CurrentAgent {
				marker = "*"
			}
			fmt.Fprintf(a.Out, "%s %-16s %-20s %s\n", marker, ag.ID, ag.Name, util.TruncateRunes(util.FirstLine(strings.TrimSpace(ag.Instructions)), 40))
		}
		return nil

	case "add":
		if len(rest) < 2 {
			return &UsageError{Msg: "agents add requires a name and instructions", Usage: `terminal-agent agents add reviewer "Review code tersely"`}
		}
		var id string
		err := a.Config.Update(func(c *config.Config) error {
			var err error
			id, err = c.AddAgent("", rest[0], strings.Join(rest[1:], " "))
			return err
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "%s Added agent %s\n", RenderStatus("ok"), id)
		return nil

	case "remove", "rm":
		if len(rest) < 1 {
			return &UsageError{Msg: "agents remove requires an id", Usage: "terminal-agent agents remove <id>"}
		}
		if err := a.Config.Update(func(c *config.Config) error { return c.RemoveAgent(rest[0]) }); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "%s Removed agent %s\n", RenderStatus("ok"), rest[0])
		return nil

	case "select", "use":
		if len(rest) < 1 {
			return &UsageError{Msg: "agents select requires an id or none", Usage: "terminal-agent agents select <id|none>"}
		}
		id := rest[0]
		if strings.EqualFold(id, "none") {
			id = ""
		}
		if err := a.Config.Update(func(c *config.Config) error { return c.SelectAgent(id) }); err != nil {
			return err
		}
		if id == "" {
			fmt.Fprintln(a.Out, "Agent cleared")
		} else {
			fmt.Fprintf(a.Out, "%s Current agent: %s\n", RenderStatus("ok"), a.Config.Snapshot().CurrentAgent)
		}
		return nil
	}
	return &UsageError{Msg: "unknown agents action: " + action, Usage: "terminal-agent agents [list|add|remove|select]"}
}

// =============================================================================
// KEYS
// =============================================================================

// HandleKeys manages stored API keys.
//
//	keys list [provider]
//	keys add <provider> <name> [key]    (prompts for the key when omitted)
//	keys remove <provider> <name>
//	keys default <provider> <name>
func (a *App) HandleKeys(action string, rest []string) error {
	switch action {
	case "", "list", "ls":
		p := ""
		if len(rest) > 0 {
			p = strings.ToLower(rest[0])
		}
		keys := a.Config.Snapshot().ListAPIKeys(p)
		if len(keys) == 0 {
			fmt.Fprintln(a.Out, "No API keys stored.")
			return nil
		}
		for _, k := range keys {
			def := ""
			if k.IsDefault {
				def = " (default)"
			}
			fmt.Fprintf(a.Out, "%-7s %-16s %s%s\n", k.Provider, k.Name, k.Masked, def)
		}
		return nil

	case "add":
		if len(rest) < 2 {
			return &UsageError{Msg: "keys add requires a provider and a name", Usage: "terminal-agent keys add <provider> <name> [key]"}
		}
		p, name := strings.ToLower(rest[0]), rest[1]
		key := ""
		if len(rest) > 2 {
			key = rest[2]
		} else {
			var err error
			if key, err = a.promptSecret(fmt.Sprintf("API key for %s/%s: ", p, name)); err != nil {
				return err
			}
		}
		if err := a.Config.Update(func(c *config.Config) error { return c.AddAPIKey(p, name, key, false) }); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "%s Added key %q for %s\n", RenderStatus("ok"), name, p)
		return nil

	case "remove", "rm":
		if len(rest) < 2 {
			return &UsageError{Msg: "keys remove requires a provider and a name", Usage: "terminal-agent keys remove <provider> <name>"}
		}
		p := strings.ToLower(rest[0])
		if err := a.Config.Update(func(c *config.Config) error { return c.RemoveAPIKey(p, rest[1]) }); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "%s Removed key %q for %s\n", RenderStatus("ok"), rest[1], p)
		return nil

	case "default":
		if len(rest) < 2 {
			return &UsageError{Msg: "keys default requires a provider and a name", Usage: "terminal-agent keys default <provider> <name>"}
		}
		p := strings.ToLower(rest[0])
		if err := a.Config.Update(func(c *config.Config) error { return c.SetDefaultAPIKey(p, rest[1]) }); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "%s Key %q is now the default for %s\n", RenderStatus("ok"), rest[1], p)
		return nil
	}
	return &UsageError{Msg: "unknown keys action: " + action, Usage: "terminal-agent keys [list|add|remove|default]"}
}
