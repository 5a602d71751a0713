// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/terminal-agent/internal/util"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the chat view.
// Layout: header (1 line) + messages (viewport) + input (2 lines) + status (1 line)
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	)
}

// renderHeader shows the title, the current provider and model, and the agent.
func (m Model) renderHeader() string {
	parts := []string{m.theme.HeaderTitle.Render("Terminal Agent")}
	plain := []string{"Terminal Agent"}

	if cur, ok := m.providers.Current(); ok && cur.Initialized {
		text := fmt.Sprintf("%s (%s)", cur.DisplayName, cur.Model)
		parts = append(parts, m.theme.ProviderBadge(string(cur.Key)).Render(text))
		plain = append(plain, text)
	} else {
		parts = append(parts, m.theme.Muted.Render("no provider"))
		plain = append(plain, "no provider")
	}
	if m.config != nil {
		if a, ok := m.config.Snapshot().CurrentAgentPreset(); ok {
			text := "agent: " + a.Name
			parts = append(parts, m.theme.HeaderAgent.Render(text))
			plain = append(plain, text)
		}
	}

	// Styled text cannot be cut safely; fall back to plain when it does not fit.
	line := strings.Join(parts, "  ")
	if util.StringWidth(strings.Join(plain, "  "))+2 > m.width {
		line = util.TruncateWidth(strings.Join(plain, "  "), max(m.width-2, 1))
	}
	return m.theme.Header.Width(m.width).MaxHeight(headerHeight).Render(line)
}

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width).Render(m.input.View())
}

// renderStatusBar shows progress while sending, completion candidates while
// cycling, and the key help otherwise.
func (m Model) renderStatusBar() string {
	style := m.theme.StatusBar
	prefix := ""
	var text string
	switch {
	case m.state == StateSending:
		prefix = m.spinner.View() + " "
		text = fmt.Sprintf("Waiting for %s...", m.pending)
		if m.retryNote != "" {
			text = m.retryNote
			style = m.theme.StatusRetry
		}
		text += "  (C-c to cancel)"
	case m.completion.Active():
		items := make([]string, len(m.completion.Completions))
		for i, c := range m.completion.Completions {
			c = lastWord(c)
			if i == m.completion.Selected {
				c = "[" + c + "]"
			}
			items[i] = c
		}
		text = "Tab: " + strings.Join(items, " ")
	default:
		help := make([]string, 0, 4)
		for _, b := range m.keyMap.ShortHelp() {
			h := b.Help()
			help = append(help, h.Key+" "+h.Desc)
		}
		text = strings.Join(help, " | ")
	}

	// The spinner is styled, so it is measured with lipgloss and kept whole.
	room := max(m.width-lipgloss.Width(prefix), 0)
	return prefix + style.Render(util.PadRight(util.TruncateWidth(text, room), room))
}

// lastWord returns what a whole-line candidate adds: its final word.
func lastWord(s string) string {
	if i := strings.LastIndexByte(strings.TrimRight(s, " "), ' '); i >= 0 {
		return s[i+1:]
	}
	return s
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m *Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return m.renderEmptyState()
	}
	blocks := make([]string, 0, len(m.transcript))
	for i, e := range m.transcript {
		blocks = append(blocks, m.renderEntry(i, e))
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderEntry(i int, e entry) string {
	width := max(m.width-2, 10)
	switch e.kind {
	case entryUser:
		return m.theme.UserLabel.Render("You") + "\n" +
			m.theme.UserBubble.Width(width).Render(e.text)
	case entryAssistant:
		return m.theme.AssistantLabel.Render(e.label) + "\n" +
			m.theme.AssistantBubble.Width(width).Render(m.renderMarkdown(i, e.text))
	case entryError:
		return m.theme.ErrorBubble.Width(width).Render("Error: " + e.text)
	default:
		return m.theme.SystemBubble.Width(width).Render(e.text)
	}
}

// renderMarkdown renders and caches an assistant reply. The cache is keyed
// by transcript index and dropped when the width or the transcript resets.
func (m *Model) renderMarkdown(i int, text string) string {
	if m.renderer == nil {
		return text
	}
	if out, ok := m.rendered[i]; ok {
		return out
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	out = strings.Trim(out, "\n")
	m.rendered[i] = out
	return out
}

func (m *Model) renderEmptyState() string {
	lines := []string{""}
	if cur, ok := m.providers.Current(); ok && cur.Initialized {
		lines = append(lines, fmt.Sprintf("  Chatting with %s. Type a message and press Enter.", cur.DisplayName))
	} else {
		lines = append(lines, "  No provider has an API key yet.",
			"  Add one with: /settings key add <provider> <name> <key>")
	}
	lines = append(lines,
		"",
		"  /switch [provider]  change provider",
		"  /model [name]       change model",
		"  /agent [id]         choose an agent preset",
		"  /help               list all commands",
	)
	return m.theme.Muted.Render(strings.Join(lines, "\n"))
}
