// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses the command line and runs the non-TUI commands of
// terminal-agent.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Parsed command-line arguments
//   - App: Configuration, providers and streams shared by every command
//
// # Usage
//
//	cmd, args, err := cli.Parse(os.Args[1:])
//	if err != nil {
//	    cli.DisplayError(os.Stderr, err)
//	    os.Exit(cli.ExitCode(err))
//	}
//	app := cli.NewApp(mgr, registry, governor, logger)
//	err = app.Run(ctx, cmd, args)
//
// # Commands Overview
//
//   - tui: Full-screen chat (default)
//   - chat: Line-mode chat with history and tab completion
//   - ask: One-shot question, optionally from a file
//   - setup: First-run wizard
//   - config, export, import: Configuration management
//   - agents, keys: Agent presets and stored API keys
package cli
