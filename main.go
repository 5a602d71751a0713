// terminal-agent - A terminal chat client for OpenAI, Gemini and Grok.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jeranaias/terminal-agent/internal/cli"
	"github.com/jeranaias/terminal-agent/internal/config"
	"github.com/jeranaias/terminal-agent/internal/diag"
	"github.com/jeranaias/terminal-agent/internal/provider"
	"github.com/jeranaias/terminal-agent/internal/provider/builtin"
	"github.com/jeranaias/terminal-agent/internal/retry"
	"github.com/jeranaias/terminal-agent/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "1.11.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

// run wires the application together and returns the process exit code.
func run() int {
	// A .env file in the working directory may carry API keys.
	_ = godotenv.Load()

	cmd, args, err := cli.Parse(os.Args[1:])
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.ExitCode(err)
	}

	// Help and version never touch the config file.
	if cmd == cli.CmdHelp {
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	}
	if cmd == cli.CmdVersion {
		cli.PrintVersion(os.Stdout)
		return cli.ExitSuccess
	}

	mgr, err := config.Open("")
	if err != nil {
		cli.DisplayError(os.Stderr, fmt.Errorf("failed to load configuration: %w", err))
		return cli.ExitConfigError
	}
	cfg := mgr.Snapshot()

	logger, err := diag.NewLogger(args.Debug || cfg.Debug)
	if err != nil {
		logger = zap.NewNop()
	}
	defer func() { _ = logger.Sync() }()
	d := diag.New(logger)

	reg := provider.NewRegistry(mgr, builtin.Factories(), provider.Options{Diag: d}, logger)
	ready := reg.InitializeAll(mgr)
	logger.Debug("providers initialized", zap.Int("ready", ready), zap.String("config", mgr.Path()))

	g := retry.NewGovernor(retry.PolicyFromMillis(
		cfg.Retry.MaxAttempts, cfg.Retry.BaseDelayMs, cfg.Retry.CallTimeoutMs,
	)).WithDiagnostics(d)

	app := cli.NewApp(mgr, reg, g, logger)
	app.TUI = runTUI

	if err := app.Run(context.Background(), cmd, args); err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.ExitCode(err)
	}
	return cli.ExitSuccess
}

// runTUI starts the full-screen chat on the app's backends.
func runTUI(ctx context.Context, app *cli.App, d *provider.Dispatcher) error {
	return chat.Run(ctx, chat.Options{
		Providers:  app.Providers,
		Config:     app.Config,
		Dispatcher: d,
		Markdown:   app.Config.Snapshot().UI.Markdown,
		Log:        app.Log,
	})
}
