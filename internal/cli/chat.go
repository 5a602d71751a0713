// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode interactive chat.
//
// Command: chat
// Short:   Start a line-mode chat session
//
// Examples:
//   terminal-agent chat          Chat with the default provider
//   terminal-agent chat grok     Chat with Grok
//
// Interactive Commands (during chat):
//   /switch [provider]  /model [name]  /agent [id]  /settings
//   /help  /clear  /exit
//   Tab                 Complete commands and arguments
//   Ctrl+C              Cancel the request in flight (exits at the prompt)
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"

	"github.com/jeranaias/terminal-agent/internal/commands"
	"github.com/jeranaias/terminal-agent/internal/config"
	"github.com/jeranaias/terminal-agent/internal/model"
	"github.com/jeranaias/terminal-agent/internal/provider"
	"github.com/jeranaias/terminal-agent/internal/retry"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader is the part of a line editor the chat loop needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// ChatCLI provides input history, tab completion and line editing.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI. complete returns whole-line candidates.
func NewChatCLI(complete func(line string) []string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetTabCompletionStyle(liner.TabPrints)
	if complete != nil {
		line.SetCompleter(complete)
	}

	historyFile := ""
	if dir, err := config.ConfigDir(); err == nil {
		historyFile = filepath.Join(dir, "chat_history")
	}

	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// Prompt reads a line of input with the given prompt.
func (c *ChatCLI) Prompt(prompt string) (string, error) {
	return c.line.Prompt(prompt)
}

// AppendHistory records a non-empty line.
func (c *ChatCLI) AppendHistory(item string) {
	c.line.AppendHistory(item)
}

// SaveHistory persists command history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if c.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CANCELLATION
// =============================================================================

// inflight holds the cancel function of the request being sent, if any.
type inflight struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (f *inflight) set(cancel context.CancelFunc) {
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()
}

// Cancel aborts the request in flight. It reports whether there was one.
func (f *inflight) Cancel() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel == nil {
		return false
	}
	f.cancel()
	f.cancel = nil
	return true
}

// =============================================================================
// SESSION
// =============================================================================

// chatSession holds the state of one interactive chat.
type chatSession struct {
	app        *App
	dispatcher *provider.Dispatcher
	commands   *commands.Registry
	cmdCtx     *commands.Context
	conv       *model.Conversation
	request    inflight
}

func newChatSession(app *App, d *provider.Dispatcher) *chatSession {
	conv := model.NewConversation()
	return &chatSession{
		app:        app,
		dispatcher: d,
		commands:   commands.NewRegistry(),
		cmdCtx: &commands.Context{
			Providers:    app.Providers,
			Config:       app.Config,
			Conversation: conv,
		},
		conv: conv,
	}
}

// HandleChat runs the line-mode chat until /exit, Ctrl+D or Ctrl+C at the prompt.
func (a *App) HandleChat(ctx context.Context, d *provider.Dispatcher) error {
	s := newChatSession(a, d)
	completer := commands.NewContextCompleter(s.commands, s.cmdCtx)

	input := NewChatCLI(completer.Lines)
	defer input.Close()

	// Outside the prompt Ctrl+C arrives as SIGINT and cancels only the request.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if s.request.Cancel() {
				fmt.Fprintln(a.Err, "\n"+RenderConditional(WarningStyle, "[Cancelled]"))
			}
		}
	}()

	s.printWelcome()
	return s.loop(ctx, input)
}

// loop reads and handles lines until the user leaves.
func (s *chatSession) loop(ctx context.Context, in lineReader) error {
	out := s.app.Out
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := in.Prompt(s.prompt())
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed input all end the chat.
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		in.AppendHistory(line)

		if commands.IsCommand(line) {
			res, err := s.commands.Execute(s.cmdCtx, line)
			if err != nil {
				DisplayError(s.app.Err, err)
				continue
			}
			if res.Output != "" {
				fmt.Fprintln(out, res.Output)
			}
			if res.Quit {
				return nil
			}
			continue
		}

		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		s.send(ctx, line)
	}
}

// send delivers one message. The exchange is recorded only on success.
func (s *chatSession) send(ctx context.Context, text string) {
	reqCtx, cancel := context.WithCancel(ctx)
	s.request.set(cancel)
	defer func() {
		s.request.Cancel()
		cancel()
	}()

	history := s.conv.History()
	obs := retry.ObserverFunc(func(ev retry.Event) {
		fmt.Fprintln(s.app.Err, RenderConditional(WarningStyle, ev.String()))
	})

	reply, err := s.dispatcher.Send(reqCtx, text, history, obs)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		DisplayError(s.app.Err, err)
		return
	}

	s.conv.AppendExchange(text, reply)
	fmt.Fprintln(s.app.Out)
	s.app.displayResponse(reply)
	fmt.Fprintln(s.app.Out)
}

// prompt shows the current provider key; liner cannot measure styled prompts.
func (s *chatSession) prompt() string {
	if d, ok := s.app.Providers.Current(); ok && d.Initialized {
		return fmt.Sprintf("%s> ", d.Key)
	}
	return "> "
}

// printWelcome prints the welcome banner.
func (s *chatSession) printWelcome() {
	out := s.app.Out
	fmt.Fprintln(out, RenderConditional(TitleStyle, "Terminal Agent"))
	if d, ok := s.app.Providers.Current(); ok && d.Initialized {
		fmt.Fprintf(out, "Using %s (%s)\n", RenderConditional(ProviderStyle, d.DisplayName), d.Model)
	} else {
		fmt.Fprintln(out, RenderConditional(WarningStyle, "No provider has an API key yet. Add one with /settings key add <provider> <name> <key>"))
	}
	if a, ok := s.app.Config.Snapshot().CurrentAgentPreset(); ok {
		fmt.Fprintf(out, "Agent: %s\n", a.Name)
	}
	fmt.Fprintln(out, RenderConditional(DimStyle, "Type /help for commands. Tab completes, Ctrl+C cancels a request, Ctrl+D exits."))
	fmt.Fprintln(out)
}
