// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"

	"github.com/jeranaias/terminal-agent/internal/provider"
)

// Completion is one candidate for tab completion.
type Completion struct {
	// Value replaces the token being completed.
	Value string

	Display     string
	Description string
	Score       int
}

// =============================================================================
// COMPLETER
// =============================================================================

// Completer handles tab completion for commands and arguments.
type Completer struct {
	registry *Registry

	// Callbacks for dynamic completion, set by the UI.
	ProvidersFn func() []string
	ModelsFn    func() []string
	AgentsFn    func() []string
}

// NewCompleter creates a new completer with the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// NewContextCompleter wires dynamic completion to a session's providers,
// models and agents.
func NewContextCompleter(registry *Registry, ctx *Context) *Completer {
	c := NewCompleter(registry)
	c.ProvidersFn = func() []string {
		keys := make([]string, 0, len(provider.AllKeys))
		for _, k := range provider.AllKeys {
			keys = append(keys, string(k))
		}
		return keys
	}
	c.ModelsFn = func() []string {
		if ctx.Providers == nil {
			return nil
		}
		cur, ok := ctx.Providers.Current()
		if !ok {
			return nil
		}
		return cur.AvailableModels
	}
	c.AgentsFn = func() []string {
		if ctx.Config == nil {
			return nil
		}
		agents := ctx.Config.Snapshot().Agents
		ids := make([]string, 0, len(agents)+1)
		for _, a := range agents {
			ids = append(ids, a.ID)
		}
		return append(ids, "none")
	}
	return c
}

// Complete returns completions for the token at the end of input.
func (c *Completer) Complete(input string) []Completion {
	if !strings.HasPrefix(strings.TrimLeft(input, " "), "/") {
		return nil
	}
	input = strings.TrimLeft(input, " ")
	endsWithSpace := strings.HasSuffix(input, " ")

	parts := splitCommandLine(input)
	if len(parts) == 0 {
		return c.completeCommands("/")
	}
	if len(parts) == 1 && !endsWithSpace {
		return c.completeCommands(parts[0])
	}

	cmd := c.registry.Get(strings.ToLower(parts[0]))
	if cmd == nil {
		return nil
	}

	argIndex := len(parts) - 2
	partial := parts[len(parts)-1]
	if endsWithSpace {
		argIndex++
		partial = ""
	}
	return c.completeArg(cmd, argIndex, partial)
}

// Lines returns whole-line completions, the form line editors expect.
func (c *Completer) Lines(input string) []string {
	comps := c.Complete(input)
	if len(comps) == 0 {
		return nil
	}
	prefix := input
	if !strings.HasSuffix(input, " ") {
		if i := strings.LastIndexByte(input, ' '); i >= 0 {
			prefix = input[:i+1]
		} else {
			prefix = ""
		}
	}
	out := make([]string, 0, len(comps))
	for _, comp := range comps {
		out = append(out, prefix+comp.Value)
	}
	return out
}

// completeCommands returns completions for command names.
func (c *Completer) completeCommands(partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)

	for _, cmd := range c.registry.All() {
		if strings.HasPrefix(cmd.Name, partial) {
			completions = append(completions, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       calculateScore(cmd.Name, partial),
			})
		}
		for _, alias := range cmd.Aliases {
			if partial != "/" && strings.HasPrefix(alias, partial) {
				completions = append(completions, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					Score:       calculateScore(alias, partial) - 10,
				})
			}
		}
	}

	sortCompletions(completions)
	return completions
}

// completeArg returns completions for a command argument.
func (c *Completer) completeArg(cmd *Command, argIndex int, partial string) []Completion {
	if argIndex < 0 || argIndex >= len(cmd.Args) {
		return nil
	}

	arg := cmd.Args[argIndex]
	switch arg.Type {
	case ArgTypeProvider:
		return completeFromFn(c.ProvidersFn, partial)
	case ArgTypeModel:
		return completeFromFn(c.ModelsFn, partial)
	case ArgTypeAgent:
		return completeFromFn(c.AgentsFn, partial)
	case ArgTypeEnum:
		return completeFromList(arg.Values, partial)
	default:
		return nil
	}
}

func completeFromFn(fn func() []string, partial string) []Completion {
	if fn == nil {
		return nil
	}
	return completeFromList(fn(), partial)
}

func completeFromList(values []string, partial string) []Completion {
	var out []Completion
	lower := strings.ToLower(partial)
	for _, v := range values {
		if strings.HasPrefix(strings.ToLower(v), lower) {
			out = append(out, Completion{Value: v, Display: v, Score: calculateScore(v, partial)})
		}
	}
	sortCompletions(out)
	return out
}

// calculateScore ranks a match; exact and short matches score higher.
func calculateScore(value, partial string) int {
	value = strings.ToLower(value)
	partial = strings.ToLower(partial)

	score := 100
	if value == partial {
		return score + 100
	}
	if strings.HasPrefix(value, partial) {
		score += 50
		score += 20 - len(value)
	}
	score -= len(value) / 2
	return score
}

// sortCompletions sorts completions by score (descending), then alphabetically.
func sortCompletions(completions []Completion) {
	sort.Slice(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}

// =============================================================================
// COMPLETION NAVIGATION
// =============================================================================

// CompletionState cycles through candidates on repeated Tab presses.
type CompletionState struct {
	OriginalInput string
	Completions   []string
	Selected      int
}

// Start records candidates for input and selects the first.
func (cs *CompletionState) Start(input string, completions []string) {
	cs.OriginalInput = input
	cs.Completions = completions
	cs.Selected = 0
}

// Active reports whether a cycle is in progress.
func (cs *CompletionState) Active() bool {
	return len(cs.Completions) > 0
}

// Next advances to the next candidate and returns it.
func (cs *CompletionState) Next() string {
	if len(cs.Completions) == 0 {
		return cs.OriginalInput
	}
	cs.Selected = (cs.Selected + 1) % len(cs.Completions)
	return cs.Completions[cs.Selected]
}

// Current returns the selected candidate.
func (cs *CompletionState) Current() string {
	if len(cs.Completions) == 0 {
		return cs.OriginalInput
	}
	return cs.Completions[cs.Selected]
}

// Clear ends the cycle.
func (cs *CompletionState) Clear() {
	cs.OriginalInput = ""
	cs.Completions = nil
	cs.Selected = 0
}
