// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jeranaias/terminal-agent/internal/config"
	"github.com/jeranaias/terminal-agent/internal/model"
	"github.com/jeranaias/terminal-agent/internal/provider"
)

// ErrUnknownCommand is returned for a slash command that is not registered.
var ErrUnknownCommand = errors.New("unknown command")

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command represents a slash command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	Description string

	// Usage shows argument syntax (e.g., "/model [name]")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	Handler func(ctx *Context, args []string) (Result, error)

	// Category for grouping in help display
	Category string
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	Name     string
	Required bool
	Type     ArgType

	// Values for enum types
	Values []string
}

// ArgType indicates what kind of completion to provide.
type ArgType int

const (
	ArgTypeString   ArgType = iota // Free-form string
	ArgTypeProvider                // Provider key
	ArgTypeModel                   // Model of the current provider
	ArgTypeAgent                   // Agent preset ID
	ArgTypeEnum                    // One of predefined values
)

// Context is what a handler may act on. UIs build one per session.
type Context struct {
	Providers    *provider.Registry
	Config       *config.Manager
	Conversation *model.Conversation
}

// Result tells the UI what happened.
type Result struct {
	// Output is plain text to show the user.
	Output string

	// Quit asks the UI to exit.
	Quit bool

	// Cleared means the conversation was reset.
	Cleared bool

	// ProviderChanged means the current provider, its model or its
	// credentials changed and any status display should refresh.
	ProviderChanged bool
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a new command registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Execute parses input and runs the matching command.
func (r *Registry) Execute(ctx *Context, input string) (Result, error) {
	parsed := NewParser(r).Parse(input)
	if !parsed.IsCommand {
		return Result{}, fmt.Errorf("not a command: %q", input)
	}
	if parsed.Command == nil {
		return Result{}, fmt.Errorf("%w: %s (type /help for commands)", ErrUnknownCommand, parsed.CommandName)
	}
	if err := ValidateArgs(parsed.Command, parsed.Args); err != nil {
		return Result{}, err
	}
	return parsed.Command.Handler(ctx, parsed.Args)
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Category:    "Navigation",
		Handler: func(_ *Context, _ []string) (Result, error) {
			return Result{Output: r.HelpText()}, nil
		},
	})

	r.Register(&Command{
		Name:        "/exit",
		Aliases:     []string{"/quit", "/q"},
		Description: "Exit the application",
		Category:    "Navigation",
		Handler:     handleExit,
	})

	r.Register(&Command{
		Name:        "/clear",
		Aliases:     []string{"/c"},
		Description: "Clear chat history",
		Category:    "Conversation",
		Handler:     handleClear,
	})

	r.Register(&Command{
		Name:        "/switch",
		Aliases:     []string{"/provider", "/p"},
		Description: "Show providers or switch to one",
		Usage:       "/switch [openai|gemini|grok]",
		Args: []ArgDef{
			{Name: "provider", Type: ArgTypeProvider},
		},
		Category: "Provider",
		Handler:  handleSwitch,
	})

	r.Register(&Command{
		Name:        "/model",
		Aliases:     []string{"/m"},
		Description: "Show or change the current provider's model",
		Usage:       "/model [name]",
		Args: []ArgDef{
			{Name: "name", Type: ArgTypeModel},
		},
		Category: "Provider",
		Handler:  handleModel,
	})

	r.Register(&Command{
		Name:        "/agent",
		Aliases:     []string{"/a"},
		Description: "Show agents or select one (\"none\" clears)",
		Usage:       "/agent [id|none]",
		Args: []ArgDef{
			{Name: "id", Type: ArgTypeAgent},
		},
		Category: "Conversation",
		Handler:  handleAgent,
	})

	r.Register(&Command{
		Name:        "/settings",
		Aliases:     []string{"/config"},
		Description: "Show settings or change defaults and keys",
		Usage:       "/settings [default <provider> | key add|remove|default <provider> <name> [key] | export <file> | import <file>]",
		Args: []ArgDef{
			{Name: "action", Type: ArgTypeEnum, Values: []string{"default", "key", "export", "import"}},
		},
		Category: "Settings",
		Handler:  handleSettings,
	})
}
