// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/terminal-agent/internal/config"
	"github.com/jeranaias/terminal-agent/internal/model"
	"github.com/jeranaias/terminal-agent/internal/provider"
	"github.com/jeranaias/terminal-agent/internal/provider/providertest"
	"github.com/jeranaias/terminal-agent/internal/retry"
)

type fixture struct {
	m     Model
	fakes map[provider.Key]*providertest.Adapter
	reg   *provider.Registry
}

// newFixture builds a sized chat model where gemini and grok have keys and
// gemini is current.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	for _, name := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "GROK_API_KEY", "TERMINAL_AGENT_PROVIDER"} {
		t.Setenv(name, "")
	}

	cfg := config.Default()
	cfg.FirstRun = false
	require.NoError(t, cfg.AddAPIKey(config.ProviderGemini, "default", "AIza-test-1234567890", true))
	require.NoError(t, cfg.AddAPIKey(config.ProviderGrok, "default", "xai-test-1234567890", true))
	mgr := config.NewManager(cfg, filepath.Join(t.TempDir(), "config.toml"))

	fakes := map[provider.Key]*providertest.Adapter{}
	factories := provider.Factories{}
	for _, k := range provider.AllKeys {
		fakes[k] = providertest.NewAdapter(k)
		factories[k] = fakes[k].Factory()
	}
	reg := provider.NewRegistry(mgr, factories, provider.Options{}, zap.NewNop())
	reg.InitializeAll(mgr)
	require.True(t, reg.SwitchTo(provider.Gemini))

	g := retry.NewGovernor(retry.Policy{MaxAttempts: 2}).
		WithSleep(func(context.Context, time.Duration) error { return nil })

	m := New(context.Background(), Options{
		Providers:  reg,
		Config:     mgr,
		Dispatcher: provider.NewDispatcher(reg, mgr, g),
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return &fixture{m: next.(Model), fakes: fakes, reg: reg}
}

func (f *fixture) update(msg tea.Msg) tea.Cmd {
	next, cmd := f.m.Update(msg)
	f.m = next.(Model)
	return cmd
}

// enter types text and presses Enter.
func (f *fixture) enter(text string) tea.Cmd {
	f.m.input.SetValue(text)
	return f.update(tea.KeyMsg{Type: tea.KeyEnter})
}

// reply runs the request in cmd and returns its result.
func reply(t *testing.T, cmd tea.Cmd) replyMsg {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c == nil {
				continue
			}
			if r, ok := c().(replyMsg); ok {
				return r
			}
		}
		t.Fatal("batch holds no request")
	}
	r, ok := msg.(replyMsg)
	require.True(t, ok, "got %T", msg)
	return r
}

func lastEntry(t *testing.T, m Model) entry {
	t.Helper()
	require.NotEmpty(t, m.transcript)
	return m.transcript[len(m.transcript)-1]
}

// =============================================================================
// SENDING
// =============================================================================

func TestSend_RecordsExchangeOnReply(t *testing.T) {
	f := newFixture(t)
	f.fakes[provider.Gemini].Reply = func(_ context.Context, text string, _ []model.Turn) (string, error) {
		return "echo: " + text, nil
	}

	cmd := f.enter("hello")
	assert.True(t, f.m.IsSending())
	assert.Equal(t, "", f.m.input.Value())
	assert.True(t, f.m.Conversation().IsEmpty(), "nothing is recorded before the reply")
	assert.Contains(t, f.m.View(), "Waiting for Fake gemini")

	f.update(reply(t, cmd))

	assert.Equal(t, StateReady, f.m.State())
	assert.Equal(t, 2, f.m.Conversation().Len())
	last := lastEntry(t, f.m)
	assert.Equal(t, entryAssistant, last.kind)
	assert.Equal(t, "Fake gemini", last.label)
	assert.Equal(t, "echo: hello", last.text)
	assert.Contains(t, f.m.View(), "echo: hello")
}

func TestSend_SecondTurnCarriesHistory(t *testing.T) {
	f := newFixture(t)

	f.update(reply(t, f.enter("one")))
	f.update(reply(t, f.enter("two")))

	calls := f.fakes[provider.Gemini].Calls()
	require.Len(t, calls, 2)
	assert.Empty(t, calls[0].History)
	require.Len(t, calls[1].History, 2)
	assert.Equal(t, "one", calls[1].History[0].Content)
}

func TestSend_IgnoredWhileSending(t *testing.T) {
	f := newFixture(t)
	first := f.enter("first")
	require.NotNil(t, first)

	assert.Nil(t, f.enter("second"))
	assert.Equal(t, "second", f.m.input.Value(), "input is kept for later")
}

func TestSend_FailureIsShownNotRecorded(t *testing.T) {
	f := newFixture(t)
	f.fakes[provider.Gemini].Reply = func(context.Context, string, []model.Turn) (string, error) {
		return "", &retry.HTTPError{Status: 401, Message: "unauthorized"}
	}

	f.update(reply(t, f.enter("hello")))

	assert.Equal(t, StateReady, f.m.State())
	assert.True(t, f.m.Conversation().IsEmpty())
	last := lastEntry(t, f.m)
	assert.Equal(t, entryError, last.kind)
	assert.Contains(t, last.text, retry.FinalMessage(retry.KindAuth))
}

func TestCancel_DropsLateReply(t *testing.T) {
	f := newFixture(t)
	f.fakes[provider.Gemini].Reply = func(ctx context.Context, _ string, _ []model.Turn) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	cmd := f.enter("slow question")
	f.update(tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.False(t, f.m.IsSending())
	assert.False(t, f.m.Quitting())
	assert.Equal(t, "[Cancelled]", lastEntry(t, f.m).text)

	// The request observes the cancellation and its reply is dropped.
	before := len(f.m.transcript)
	f.update(reply(t, cmd))
	assert.Len(t, f.m.transcript, before)
	assert.True(t, f.m.Conversation().IsEmpty())
}

func TestStaleReplyIgnored(t *testing.T) {
	f := newFixture(t)
	f.enter("hello")

	f.update(replyMsg{seq: f.m.seq - 1, text: "old", reply: "stale"})
	assert.True(t, f.m.IsSending())
	assert.True(t, f.m.Conversation().IsEmpty())
}

func TestRetryNoticeInStatusBar(t *testing.T) {
	f := newFixture(t)
	f.enter("hello")

	ev := retry.Event{Attempt: 1, MaxAttempts: 2, Kind: retry.KindServer, Delay: time.Second}
	cmd := f.update(retryMsg{event: ev})

	assert.NotNil(t, cmd, "the listener is re-armed")
	assert.Equal(t, ev.String(), f.m.retryNote)
	assert.Contains(t, f.m.View(), "Retrying (attempt 2/2)")
}

func TestRetryNoticeIgnoredWhenIdle(t *testing.T) {
	f := newFixture(t)
	f.update(retryMsg{event: retry.Event{Attempt: 1, MaxAttempts: 2, Kind: retry.KindServer}})
	assert.Empty(t, f.m.retryNote)
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestCommands(t *testing.T) {
	f := newFixture(t)

	f.update(reply(t, f.enter("hello")))
	require.Equal(t, 2, f.m.Conversation().Len())

	f.enter("/switch grok")
	cur, ok := f.reg.Current()
	require.True(t, ok)
	assert.Equal(t, provider.Grok, cur.Key)
	assert.Equal(t, entrySystem, lastEntry(t, f.m).kind)
	assert.Contains(t, f.m.renderHeader(), "Fake grok")

	f.enter("/clear")
	assert.True(t, f.m.Conversation().IsEmpty())
	for _, e := range f.m.transcript {
		assert.NotEqual(t, entryUser, e.kind)
	}

	f.enter("/nope")
	assert.Equal(t, entryError, lastEntry(t, f.m).kind)

	cmd := f.enter("/exit")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, f.m.Quitting())
	assert.Equal(t, "", f.m.View())
}

func TestConfigChangedNotice(t *testing.T) {
	f := newFixture(t)
	f.update(ConfigChangedMsg{Ready: 2})
	assert.Equal(t, "Configuration reloaded (2 providers ready)", lastEntry(t, f.m).text)
}

// =============================================================================
// KEYS
// =============================================================================

func TestTabCompletion(t *testing.T) {
	f := newFixture(t)

	f.m.input.SetValue("/swi")
	f.update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "/switch", f.m.input.Value())

	f.m.input.SetValue("/switch g")
	f.update(tea.KeyMsg{Type: tea.KeyTab})
	first := f.m.input.Value()
	assert.Contains(t, []string{"/switch gemini", "/switch grok"}, first)
	assert.Contains(t, f.m.View(), "Tab:")

	f.update(tea.KeyMsg{Type: tea.KeyTab})
	second := f.m.input.Value()
	assert.NotEqual(t, first, second)
	assert.Contains(t, []string{"/switch gemini", "/switch grok"}, second)

	// Typing ends the cycle.
	f.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.False(t, f.m.completion.Active())
}

func TestCtrlC(t *testing.T) {
	f := newFixture(t)

	f.m.input.SetValue("draft")
	cmd := f.update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, cmd)
	assert.Equal(t, "", f.m.input.Value())
	assert.False(t, f.m.Quitting())

	cmd = f.update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestCtrlDQuitsAndCancels(t *testing.T) {
	f := newFixture(t)
	f.fakes[provider.Gemini].Reply = func(ctx context.Context, _ string, _ []model.Turn) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	req := f.enter("hello")

	cmd := f.update(tea.KeyMsg{Type: tea.KeyCtrlD})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	// The cancelled request returns promptly.
	r := reply(t, req)
	assert.ErrorIs(t, r.err, context.Canceled)
}

// =============================================================================
// VIEW
// =============================================================================

func TestViewBeforeResize(t *testing.T) {
	m := New(context.Background(), Options{})
	assert.Equal(t, "Loading...", m.View())
}

func TestStatusBarFitsWidth(t *testing.T) {
	f := newFixture(t)
	f.update(tea.WindowSizeMsg{Width: 30, Height: 10})
	assert.LessOrEqual(t, lipgloss.Width(f.m.renderStatusBar()), 30)
	assert.LessOrEqual(t, lipgloss.Width(f.m.renderHeader()), 30)
}

func TestLastWord(t *testing.T) {
	assert.Equal(t, "grok", lastWord("/switch grok"))
	assert.Equal(t, "/help", lastWord("/help"))
}

func TestCancelManager(t *testing.T) {
	cm := newCancelManager()
	assert.False(t, cm.cancel())

	first, cancelFirst := context.WithCancel(context.Background())
	cm.set(cancelFirst)
	second, cancelSecond := context.WithCancel(context.Background())
	cm.set(cancelSecond)
	assert.ErrorIs(t, first.Err(), context.Canceled, "replacing cancels the previous request")
	assert.NoError(t, second.Err())

	assert.True(t, cm.cancel())
	assert.ErrorIs(t, second.Err(), context.Canceled)
	assert.False(t, cm.cancel())
}
