// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/jeranaias/terminal-agent/internal/commands"
	"github.com/jeranaias/terminal-agent/internal/retry"
)

// Layout heights outside the viewport: header, input with its top border,
// status bar.
const (
	headerHeight = 1
	inputHeight  = 2
	statusHeight = 1
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles incoming messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case replyMsg:
		return m.handleReply(msg)

	case retryMsg:
		if m.state == StateSending {
			m.retryNote = msg.event.String()
		}
		return m, waitForRetry(m.retries)

	case ConfigChangedMsg:
		m.appendEntry(entry{kind: entrySystem, text: fmt.Sprintf("Configuration reloaded (%d providers ready)", msg.Ready)})
		return m, nil

	case spinner.TickMsg:
		if m.state != StateSending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// waitForRetry delivers the next retry notice to the Update loop.
func waitForRetry(ch <-chan retry.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return retryMsg{event: ev}
	}
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 10)
	m.viewport.Width = msg.Width
	m.viewport.Height = max(msg.Height-headerHeight-inputHeight-statusHeight, 1)

	wrap := msg.Width - 4
	if m.config != nil {
		if w := m.config.Snapshot().UI.WordWrap; w > 0 && w < wrap {
			wrap = w
		}
	}
	if wrap != m.wrapAt {
		m.wrapAt = wrap
		m.rendered = map[int]string{}
		m.renderer = nil
		if m.markdown {
			m.renderer = newMarkdownRenderer(wrap, m.theme.IsDark, m.log)
		}
	}

	m.refreshViewport()
	return m, nil
}

func newMarkdownRenderer(wrap int, dark bool, log *zap.Logger) *glamour.TermRenderer {
	style := "light"
	if dark {
		style = "dark"
	}
	// A fixed style: auto-detection queries the terminal, which the
	// running program owns.
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(wrap, 20)),
	)
	if err != nil {
		log.Debug("markdown renderer unavailable", zap.Error(err))
		return nil
	}
	return r
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Cancel):
		if m.state == StateSending {
			m.cancelRequest()
			return m, nil
		}
		m.completion.Clear()
		if msg.String() == "esc" {
			return m, nil
		}
		if m.input.Value() != "" {
			m.input.Reset()
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Quit):
		m.cancelMgr.cancel()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Complete):
		m.complete()
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		m.completion.Clear()
		return m.submit()

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keyMap.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	m.completion.Clear()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// complete fills the input from the completer. Repeated presses cycle
// through the candidates.
func (m *Model) complete() {
	if m.completion.Active() {
		m.setInput(m.completion.Next())
		return
	}
	lines := m.completer.Lines(m.input.Value())
	switch len(lines) {
	case 0:
		return
	case 1:
		m.setInput(lines[0])
		return
	}
	m.completion.Start(m.input.Value(), lines)
	m.setInput(m.completion.Current())
}

func (m *Model) setInput(s string) {
	m.input.SetValue(s)
	m.input.CursorEnd()
}

// =============================================================================
// SENDING
// =============================================================================

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.state == StateSending {
		return m, nil
	}
	m.input.Reset()

	if commands.IsCommand(text) {
		return m.runCommand(text)
	}
	return m.send(text)
}

func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	res, err := m.commands.Execute(m.cmdCtx, line)
	if err != nil {
		m.appendEntry(entry{kind: entryError, text: err.Error()})
		return m, nil
	}
	if res.Quit {
		m.quitting = true
		return m, tea.Quit
	}
	if res.Cleared {
		m.transcript = nil
		m.rendered = map[int]string{}
	}
	if res.Output != "" {
		m.appendEntry(entry{kind: entrySystem, text: res.Output})
	} else {
		m.refreshViewport()
	}
	return m, nil
}

// send starts a request for text. The conversation is updated only when
// the reply arrives.
func (m Model) send(text string) (tea.Model, tea.Cmd) {
	history := m.conversation.History()
	m.appendEntry(entry{kind: entryUser, text: text})

	label := "Assistant"
	if cur, ok := m.providers.Current(); ok {
		label = cur.DisplayName
	}

	m.seq++
	seq := m.seq
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelMgr.set(cancel)
	m.state = StateSending
	m.pending = label
	m.retryNote = ""

	d := m.dispatcher
	obs := retry.ChannelObserver(m.retries)
	request := func() tea.Msg {
		defer cancel()
		reply, err := d.Send(ctx, text, history, obs)
		return replyMsg{seq: seq, label: label, text: text, reply: reply, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, request)
}

// cancelRequest abandons the request in flight. Its reply, if it still
// arrives, is dropped by sequence number.
func (m *Model) cancelRequest() {
	m.cancelMgr.cancel()
	m.seq++
	m.state = StateReady
	m.pending = ""
	m.retryNote = ""
	m.appendEntry(entry{kind: entrySystem, text: "[Cancelled]"})
}

func (m Model) handleReply(msg replyMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.seq || m.state != StateSending {
		return m, nil
	}
	m.cancelMgr.cancel()
	m.state = StateReady
	m.pending = ""
	m.retryNote = ""

	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			return m, nil
		}
		m.log.Debug("send failed", zap.Error(msg.err))
		m.appendEntry(entry{kind: entryError, text: msg.err.Error()})
		return m, nil
	}

	m.conversation.AppendExchange(msg.text, msg.reply)
	m.appendEntry(entry{kind: entryAssistant, label: msg.label, text: msg.reply})
	return m, nil
}

// appendEntry adds to the transcript and scrolls to it.
func (m *Model) appendEntry(e entry) {
	m.transcript = append(m.transcript, e)
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}
