// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
//
// Command: ask (also --ask)
//
// Examples:
//   terminal-agent --ask "What is a goroutine?"
//   terminal-agent grok --ask ./prompt.txt -o answer.md
//   terminal-agent ask "Review this" --input main.go --agent reviewer
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/jeranaias/terminal-agent/internal/retry"
	"github.com/jeranaias/terminal-agent/internal/util"
)

const (
	// MaxFileSize is the maximum prompt or context file size (50KB).
	MaxFileSize = 50 * 1024

	// sendPreviewRunes is how much of the message is echoed before sending.
	sendPreviewRunes = 100
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// renderMarkdown renders content for terminal display at the configured wrap
// width. Returns the original content if rendering fails.
func renderMarkdown(content string, wordWrap int) string {
	if wordWrap <= 0 {
		wordWrap = DefaultTerminalWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayResponse writes a reply to Out, rendered when Markdown is on.
func (a *App) displayResponse(reply string) {
	if a.Markdown {
		fmt.Fprint(a.Out, renderMarkdown(reply, a.Config.Snapshot().UI.WordWrap))
		return
	}
	fmt.Fprintln(a.Out, reply)
}

// =============================================================================
// FILE INPUT
// =============================================================================

// isPromptPath reports whether an --ask value names a file rather than text.
func isPromptPath(s string) bool {
	for _, prefix := range []string{"./", "/", ".\\", "C:\\"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// readTextFile reads a UTF-8 or UTF-16 (with BOM) text file, up to MaxFileSize.
func readTextFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxFileSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d bytes)", info.Size(), MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return decodeText(data)
}

// decodeText strips a UTF-8 BOM or converts BOM-marked UTF-16 to UTF-8.
// Invalid sequences become U+FFFD.
func decodeText(data []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return string(out), nil
}

// buildAskMessage resolves the message text and appends any --input file.
func (a *App) buildAskMessage(args Args) (string, error) {
	message := args.Message
	if isPromptPath(message) {
		text, err := readTextFile(message)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(a.Err, "Reading prompt from: %s\n", message)
		message = strings.TrimSpace(text)
	}

	if args.Input != "" {
		content, err := readTextFile(args.Input)
		if err != nil {
			return "", fmt.Errorf("read --input: %w", err)
		}
		message = fmt.Sprintf("%s\n\n--- %s ---\n%s", message, filepath.Base(args.Input), content)
	}

	if strings.TrimSpace(message) == "" {
		return "", &UsageError{Msg: "nothing to send"}
	}
	return message, nil
}

// =============================================================================
// ASK HANDLER
// =============================================================================

// HandleAsk sends one message to the selected provider and prints the reply.
// Status lines go to Err so Out carries only the reply.
func (a *App) HandleAsk(ctx context.Context, args Args) error {
	if a.Config.Snapshot().FirstRun {
		return ErrSetupRequired
	}

	current, err := a.SelectProvider(args.Provider)
	if err != nil {
		return err
	}
	d, err := a.Dispatcher(args.Agent)
	if err != nil {
		return err
	}

	message, err := a.buildAskMessage(args)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Err, "Using %s (%s)\n", RenderConditional(ProviderStyle, current.DisplayName), current.Model)
	fmt.Fprintf(a.Err, "Sending: %s\n\n", util.TruncateRunes(util.FirstLine(message), sendPreviewRunes))

	obs := retry.ObserverFunc(func(ev retry.Event) {
		fmt.Fprintln(a.Err, RenderConditional(WarningStyle, ev.String()))
	})
	reply, err := d.Send(ctx, message, nil, obs)
	if err != nil {
		return err
	}

	if args.Output != "" {
		if werr := util.AtomicWriteFile(args.Output, []byte(reply), 0o644); werr != nil {
			a.warn("could not write %s: %v", args.Output, werr)
			fmt.Fprintln(a.Out, reply)
			return &CommandError{Command: "ask", Action: "write output", Err: werr}
		}
		abs, _ := filepath.Abs(args.Output)
		fmt.Fprintf(a.Err, "%s Response saved to: %s\n", RenderConditional(SuccessStyle, "OK"), abs)
		return nil
	}

	a.displayResponse(reply)
	return nil
}
