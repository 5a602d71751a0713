// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/terminal-agent/internal/config"
)

// Run shows the chat view until the user quits or ctx is done. While it
// runs, edits to the config file reinitialize the providers.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	p := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))

	if opts.Config != nil && opts.Config.Path() != "" && opts.Providers != nil {
		go func() {
			err := opts.Config.Watch(ctx, config.DefaultWatchDebounce, log, func() {
				p.Send(ConfigChangedMsg{Ready: opts.Providers.Reinitialize()})
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("config watch stopped", zap.Error(err))
			}
		}()
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
