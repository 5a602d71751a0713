// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"

	"github.com/jeranaias/terminal-agent/internal/provider"
)

// Version information (can be overridden at build time)
var (
	Version   = "1.11.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// DefaultTransferPath is used by --export and --import when no file is given.
const DefaultTransferPath = "./terminal-agent-config.json"

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdSetup
	CmdConfig
	CmdExport
	CmdImport
	CmdAgents
	CmdKeys
	CmdVersion
	CmdHelp
)

var commandNames = map[Command]string{
	CmdTUI:     "tui",
	CmdAsk:     "ask",
	CmdChat:    "chat",
	CmdSetup:   "setup",
	CmdConfig:  "config",
	CmdExport:  "export",
	CmdImport:  "import",
	CmdAgents:  "agents",
	CmdKeys:    "keys",
	CmdVersion: "version",
	CmdHelp:    "help",
}

// String returns the subcommand spelling of c.
func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Args holds parsed CLI arguments.
type Args struct {
	// Provider is the requested provider key, empty for the configured default.
	Provider string
	Debug    bool

	// Ask mode
	Message string
	Input   string
	Output  string
	Agent   string

	// Path is the file for export and import.
	Path string

	// Subcommand and Rest carry "agents ..." and "keys ..." actions.
	Subcommand string
	Rest       []string
}

// Flags that never take a value.
var boolFlagNames = []string{"setup", "s", "config", "c", "debug", "d", "version", "v", "help", "h"}

var knownFlags = map[string]bool{
	"setup": true, "s": true,
	"config": true, "c": true,
	"debug": true, "d": true,
	"version": true, "v": true,
	"help": true, "h": true,
	"export": true, "e": true,
	"import": true, "i": true,
	"ask": true, "input": true, "agent": true,
	"output": true, "o": true,
	"provider": true, "p": true,
}

const usageText = `terminal-agent - chat with ChatGPT, Gemini and Grok from your terminal

Usage:
  terminal-agent [provider]             Start the full-screen chat (default)
  terminal-agent chat [provider]        Line-mode chat with history
  terminal-agent --ask "question"       Ask a single question
  terminal-agent ask "question"         Same as --ask
  terminal-agent --setup                Run the setup wizard
  terminal-agent --config               Show the current configuration
  terminal-agent --export [file]        Export configuration (default %s)
  terminal-agent --import [file]        Import configuration
  terminal-agent agents [list|add|remove|select]
                                        Manage agent presets
  terminal-agent keys [list|add|remove|default]
                                        Manage API keys
  terminal-agent --version              Show version

Providers: openai, gemini, grok

Ask Options:
  --ask <msg|file>      Message to send; ./path, /path, .\path or C:\path reads a file
  --input <file>        Append a file to the message as context
  --agent <id>          Use an agent preset for this run only
  -o, --output <file>   Write the response to a file
  -p, --provider <key>  Provider to use

Global Flags:
  -d, --debug           Log API requests and responses to stderr (keys redacted)
  -h, --help            Show this help

Chat Commands:
  /switch [provider]  /model [name]  /agent [id]  /settings  /clear  /help  /exit
  Ctrl+C cancels a request in flight.

Environment:
  OPENAI_API_KEY, GEMINI_API_KEY, GROK_API_KEY   Override stored keys
  TERMINAL_AGENT_PROVIDER                        Override the default provider
  TERMINAL_AGENT_DEBUG                           Enable debug logging

Examples:
  terminal-agent grok
  terminal-agent --ask "Explain goroutines" -o answer.md
  terminal-agent gemini --ask ./prompt.txt --input main.go
  terminal-agent keys add openai work sk-...
  terminal-agent agents add reviewer "Review code tersely"

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, DefaultTransferPath, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "terminal-agent version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Parse parses command-line arguments (without the program name).
func Parse(argv []string) (Command, Args, error) {
	p := NewArgParser(argv, boolFlagNames...)
	args := Args{
		Debug:    p.BoolFlag("debug", "d"),
		Input:    p.Flag("input"),
		Output:   p.Flag("output", "o"),
		Agent:    p.Flag("agent"),
		Provider: p.Flag("provider", "p"),
	}

	if err := checkFlags(p); err != nil {
		return CmdHelp, args, err
	}
	if args.Provider != "" {
		key, err := provider.ParseKey(args.Provider)
		if err != nil {
			return CmdHelp, args, &UsageError{Msg: err.Error(), Usage: "providers: openai, gemini, grok"}
		}
		args.Provider = string(key)
	}

	// Flag spellings win over subcommands, in the order the original CLI checked them.
	switch {
	case p.BoolFlag("help", "h"):
		return CmdHelp, args, nil
	case p.BoolFlag("version", "v"):
		return CmdVersion, args, nil
	case p.BoolFlag("setup", "s"):
		return CmdSetup, args, nil
	case p.BoolFlag("config", "c"):
		return CmdConfig, args, nil
	case p.HasFlag("export", "e"):
		args.Path = orDefault(p.Flag("export", "e"), DefaultTransferPath)
		return CmdExport, args, nil
	case p.HasFlag("import", "i"):
		args.Path = orDefault(p.Flag("import", "i"), DefaultTransferPath)
		return CmdImport, args, nil
	case p.HasFlag("ask"):
		args.Message = p.Flag("ask")
		if args.Message == "" {
			return CmdAsk, args, &UsageError{Msg: "--ask requires a message or a file path"}
		}
		if err := takeProvider(&args, p.Positional(0)); err != nil {
			return CmdAsk, args, err
		}
		return CmdAsk, args, nil
	}

	first := strings.ToLower(p.Positional(0))
	switch first {
	case "":
		return CmdTUI, args, nil

	case "tui", "chat":
		if err := takeProvider(&args, p.Positional(1)); err != nil {
			return CmdChat, args, err
		}
		if first == "tui" {
			return CmdTUI, args, nil
		}
		return CmdChat, args, nil

	case "ask":
		args.Message = strings.Join(p.PositionalFrom(1), " ")
		if strings.TrimSpace(args.Message) == "" {
			return CmdAsk, args, &UsageError{Msg: "ask requires a message", Usage: `terminal-agent ask "question"`}
		}
		return CmdAsk, args, nil

	case "setup":
		return CmdSetup, args, nil

	case "config":
		return CmdConfig, args, nil

	case "export":
		args.Path = orDefault(p.Positional(1), DefaultTransferPath)
		return CmdExport, args, nil

	case "import":
		args.Path = orDefault(p.Positional(1), DefaultTransferPath)
		return CmdImport, args, nil

	case "agents", "agent":
		args.Subcommand = strings.ToLower(orDefault(p.Positional(1), "list"))
		args.Rest = p.PositionalFrom(2)
		return CmdAgents, args, nil

	case "keys", "key":
		args.Subcommand = strings.ToLower(orDefault(p.Positional(1), "list"))
		args.Rest = p.PositionalFrom(2)
		return CmdKeys, args, nil

	case "version":
		return CmdVersion, args, nil

	case "help":
		return CmdHelp, args, nil
	}

	// Anything else is the provider to start the chat UI with.
	if err := takeProvider(&args, p.Positional(0)); err != nil {
		return CmdTUI, args, err
	}
	if p.PositionalCount() > 1 {
		return CmdTUI, args, &UsageError{Msg: "unexpected argument: " + p.Positional(1)}
	}
	return CmdTUI, args, nil
}

func checkFlags(p *ArgParser) error {
	var unknown []string
	for name := range p.seen {
		if !knownFlags[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &UsageError{Msg: "unknown flag: --" + unknown[0]}
}

// takeProvider validates a positional provider name. An empty name is fine.
func takeProvider(args *Args, name string) error {
	if name == "" {
		return nil
	}
	if args.Provider != "" && !strings.EqualFold(args.Provider, name) {
		return &UsageError{Msg: fmt.Sprintf("conflicting providers: %s and %s", args.Provider, name)}
	}
	key, err := provider.ParseKey(name)
	if err != nil {
		return &UsageError{Msg: err.Error(), Usage: "providers: openai, gemini, grok"}
	}
	args.Provider = string(key)
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
