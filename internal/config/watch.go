// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultWatchDebounce collapses the burst of events an editor save emits.
const DefaultWatchDebounce = 250 * time.Millisecond

// Watch reloads m whenever its file changes on disk and calls onChange after
// each reload that altered the config. It blocks until ctx is done.
//
// The directory is watched rather than the file because SaveTOML replaces
// the file by rename.
func (m *Manager) Watch(ctx context.Context, debounce time.Duration, log *zap.Logger, onChange func()) error {
	if m.path == "" {
		return fmt.Errorf("config has no backing file")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(m.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(m.path)
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", zap.Error(err))

		case <-timer.C:
			changed, err := m.Reload()
			if err != nil {
				log.Warn("config reload failed", zap.String("path", m.path), zap.Error(err))
				continue
			}
			if changed {
				log.Debug("config reloaded", zap.String("path", m.path))
				if onChange != nil {
					onChange()
				}
			}
		}
	}
}
