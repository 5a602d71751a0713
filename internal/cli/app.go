// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/jeranaias/terminal-agent/internal/config"
	"github.com/jeranaias/terminal-agent/internal/provider"
	"github.com/jeranaias/terminal-agent/internal/retry"
)

// App is everything a command needs: configuration, providers, the retry
// governor and the streams to talk to the user on.
type App struct {
	Config    *config.Manager
	Providers *provider.Registry
	Governor  *retry.Governor
	Log       *zap.Logger

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// ReadSecret reads one line without echo. Nil reads a visible line from In.
	ReadSecret func() (string, error)

	// Markdown renders replies on Out with glamour.
	Markdown bool

	// TUI runs the full-screen chat. Nil falls back to line-mode chat.
	TUI func(ctx context.Context, app *App, d *provider.Dispatcher) error

	in *bufio.Reader
}

// NewApp wires an App to the process's standard streams.
func NewApp(cfg *config.Manager, reg *provider.Registry, g *retry.Governor, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	app := &App{
		Config:    cfg,
		Providers: reg,
		Governor:  g,
		Log:       log,
		In:        os.Stdin,
		Out:       os.Stdout,
		Err:       os.Stderr,
		Markdown:  cfg.Snapshot().UI.Markdown && IsStdoutTTY(),
	}
	if IsTTY() {
		app.ReadSecret = func() (string, error) {
			b, err := term.ReadPassword(int(os.Stdin.Fd()))
			return string(b), err
		}
	}
	return app
}

// =============================================================================
// COMMAND DISPATCH
// =============================================================================

// Run executes cmd. The returned error maps to an exit code with ExitCode.
func (a *App) Run(ctx context.Context, cmd Command, args Args) error {
	switch cmd {
	case CmdHelp:
		PrintUsage(a.Out)
		return nil
	case CmdVersion:
		PrintVersion(a.Out)
		return nil
	case CmdSetup:
		return a.HandleSetup()
	case CmdConfig:
		return a.HandleConfig()
	case CmdExport:
		return a.HandleExport(args.Path)
	case CmdImport:
		return a.HandleImport(args.Path)
	case CmdAgents:
		return a.HandleAgents(args.Subcommand, args.Rest)
	case CmdKeys:
		return a.HandleKeys(args.Subcommand, args.Rest)
	case CmdAsk:
		return a.HandleAsk(ctx, args)
	case CmdChat, CmdTUI:
		return a.startInteractive(ctx, cmd, args)
	}
	return &UsageError{Msg: fmt.Sprintf("unknown command: %s", cmd)}
}

// startInteractive runs the setup wizard on first run, then the chosen chat view.
func (a *App) startInteractive(ctx context.Context, cmd Command, args Args) error {
	if a.Config.Snapshot().FirstRun {
		if err := a.HandleSetup(); err != nil {
			return err
		}
	}

	if _, err := a.SelectProvider(args.Provider); err != nil {
		// The chat views still start; /settings can add a key.
		a.warn("%v", err)
	}

	d, err := a.Dispatcher(args.Agent)
	if err != nil {
		return err
	}
	if cmd == CmdTUI && a.TUI != nil {
		return a.TUI(ctx, a, d)
	}
	return a.HandleChat(ctx, d)
}

// =============================================================================
// PROVIDER AND AGENT SELECTION
// =============================================================================

// SelectProvider makes a provider current: the requested one, then the
// configured default, then the first one with a key.
func (a *App) SelectProvider(requested string) (provider.Descriptor, error) {
	available := a.Providers.ListAvailable()
	if len(available) == 0 {
		return provider.Descriptor{}, ErrNoProviders
	}

	want := requested
	if want == "" {
		want = a.Config.Snapshot().EffectiveDefaultProvider()
	}
	if key, err := provider.ParseKey(want); err == nil && a.Providers.SwitchTo(key) {
		d, _ := a.Providers.Current()
		return d, nil
	}

	fallback := available[0]
	if requested != "" {
		a.warn("%s is not available, using %s", requested, fallback.DisplayName)
	}
	a.Providers.SwitchTo(fallback.Key)
	return fallback, nil
}

// fixedAgent supplies one preset's instructions regardless of the config.
type fixedAgent string

func (f fixedAgent) CurrentAgentInstructions() string { return string(f) }

// Dispatcher builds the send path. A non-empty agentID pins that preset
// for this run without changing the saved selection.
func (a *App) Dispatcher(agentID string) (*provider.Dispatcher, error) {
	if agentID == "" {
		return provider.NewDispatcher(a.Providers, a.Config, a.Governor), nil
	}
	agent, ok := a.Config.Snapshot().FindAgent(agentID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", config.ErrAgentNotFound, agentID)
	}
	return provider.NewDispatcher(a.Providers, fixedAgent(agent.Instructions), a.Governor), nil
}

// =============================================================================
// INPUT HELPERS
// =============================================================================

func (a *App) reader() *bufio.Reader {
	if a.in == nil {
		a.in = bufio.NewReader(a.In)
	}
	return a.in
}

// promptLine prints prompt and reads one trimmed line.
func (a *App) promptLine(prompt string) (string, error) {
	fmt.Fprint(a.Out, prompt)
	line, err := a.reader().ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads sensitive input (API keys) without echoing when possible.
func (a *App) promptSecret(prompt string) (string, error) {
	if a.ReadSecret == nil {
		return a.promptLine(prompt)
	}
	fmt.Fprint(a.Out, prompt)
	s, err := a.ReadSecret()
	fmt.Fprintln(a.Out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// promptYesNo prompts for a yes/no answer.
func (a *App) promptYesNo(prompt string, defaultYes bool) (bool, error) {
	suffix := "[Y/n]"
	if !defaultYes {
		suffix = "[y/N]"
	}
	input, err := a.promptLine(fmt.Sprintf("%s %s: ", prompt, suffix))
	if err != nil {
		return false, err
	}
	switch strings.ToLower(input) {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// warn prints a user-facing warning on stderr.
func (a *App) warn(format string, args ...any) {
	fmt.Fprintf(a.Err, "%s %s\n", RenderConditional(WarningStyle, "Warning:"), fmt.Sprintf(format, args...))
}
