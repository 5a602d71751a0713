// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat view of terminal-agent.
package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/jeranaias/terminal-agent/internal/commands"
	"github.com/jeranaias/terminal-agent/internal/config"
	"github.com/jeranaias/terminal-agent/internal/model"
	"github.com/jeranaias/terminal-agent/internal/provider"
	"github.com/jeranaias/terminal-agent/internal/retry"
	"github.com/jeranaias/terminal-agent/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady   State = iota // Ready for input
	StateSending              // Waiting for a reply
)

// entryKind is the role of one transcript entry.
type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entrySystem
	entryError
)

// entry is one block of the on-screen transcript. The transcript also shows
// command output and errors, which never enter the conversation.
type entry struct {
	kind  entryKind
	label string
	text  string
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a chat Model.
type Options struct {
	Providers  *provider.Registry
	Config     *config.Manager
	Dispatcher *provider.Dispatcher

	// Markdown renders assistant replies with glamour.
	Markdown bool

	// Log receives UI diagnostics. Nil discards them.
	Log *zap.Logger
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// retryBuffer bounds the retry notices waiting for the Update loop.
const retryBuffer = 16

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State
	theme *styles.Theme

	width  int
	height int

	// Backends
	providers  *provider.Registry
	config     *config.Manager
	dispatcher *provider.Dispatcher
	log        *zap.Logger

	// Conversation and what the screen shows of it
	conversation *model.Conversation
	transcript   []entry

	// Request in flight
	ctx       context.Context
	cancelMgr *cancelManager
	seq       int
	pending   string
	retries   chan retry.Event
	retryNote string

	// Commands
	commands   *commands.Registry
	cmdCtx     *commands.Context
	completer  *commands.Completer
	completion *commands.CompletionState

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keyMap   KeyMap

	// Markdown
	markdown bool
	renderer *glamour.TermRenderer
	rendered map[int]string
	wrapAt   int

	quitting bool
}

// New creates a chat model. ctx bounds every request the model sends.
func New(ctx context.Context, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	conv := model.NewConversation()
	cmdCtx := &commands.Context{
		Providers:    opts.Providers,
		Config:       opts.Config,
		Conversation: conv,
	}
	registry := commands.NewRegistry()

	ti := textinput.New()
	ti.Placeholder = "Type a message or /help"
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Focus()

	theme := styles.NewTheme()
	ti.PromptStyle = theme.InputPrompt

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return Model{
		state:        StateReady,
		theme:        theme,
		providers:    opts.Providers,
		config:       opts.Config,
		dispatcher:   opts.Dispatcher,
		log:          log,
		conversation: conv,
		ctx:          ctx,
		cancelMgr:    newCancelManager(),
		retries:      make(chan retry.Event, retryBuffer),
		commands:     registry,
		cmdCtx:       cmdCtx,
		completer:    commands.NewContextCompleter(registry, cmdCtx),
		completion:   &commands.CompletionState{},
		viewport:     viewport.New(0, 0),
		input:        ti,
		spinner:      sp,
		keyMap:       DefaultKeyMap(),
		markdown:     opts.Markdown,
		rendered:     map[int]string{},
	}
}

// Init starts the cursor blink and the retry listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForRetry(m.retries))
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the current state.
func (m Model) State() State { return m.state }

// Conversation returns the conversation sent to providers.
func (m Model) Conversation() *model.Conversation { return m.conversation }

// IsSending reports whether a request is in flight.
func (m Model) IsSending() bool { return m.state == StateSending }

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool { return m.quitting }
