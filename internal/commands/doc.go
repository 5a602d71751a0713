// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system shared by the line
// chat and the full-screen view.
//
// # Key Types
//
//   - Registry: command registry with all built-in commands
//   - Context: the provider registry, config and conversation a handler acts on
//   - Result: what the UI should show or do afterwards
//   - Completer: tab completion for commands and arguments
//
// # Built-in Commands
//
//   - /switch: show or switch providers
//   - /model: show or change the current model
//   - /agent: show or select an agent preset
//   - /settings: show settings, change defaults, manage keys, export/import
//   - /help, /clear, /exit
//
// # Usage
//
//	reg := commands.NewRegistry()
//	if commands.IsCommand(input) {
//	    res, err := reg.Execute(ctx, input)
//	    ...
//	}
package commands
