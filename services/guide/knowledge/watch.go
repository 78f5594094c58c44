// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses bursts of filesystem events into one reload.
// Editors typically fire several write events per save.
const watchDebounce = 500 * time.Millisecond

// Watch reloads the loader whenever a JSON file in its override directory
// changes.
//
// Description:
//
//	Blocks until ctx is cancelled. Events are debounced so a burst of
//	writes triggers a single reload. A failed reload is logged and the
//	previous snapshot stays in place.
//
// Inputs:
//
//	ctx - Cancels the watch. Must not be nil.
//
// Outputs:
//
//	error - Non-nil if the watcher could not be started. Returns nil on
//	context cancellation.
//
// Thread Safety: Safe to run in its own goroutine alongside Load callers.
func (l *IntentLoader) Watch(ctx context.Context) error {
	if l.dir == "" {
		return fmt.Errorf("IntentLoader.Watch: no override directory configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("IntentLoader.Watch: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("IntentLoader.Watch: watching %s: %w", l.dir, err)
	}
	slog.Info("watching intent directory", slog.String("dir", l.dir))

	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			debounce.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("intent watcher error", slog.Any("error", err))

		case <-debounce.C:
			if err := l.Load(ctx); err != nil {
				slog.Error("intent reload failed, keeping previous snapshot",
					slog.String("dir", l.dir),
					slog.Any("error", err),
				)
			}
		}
	}
}
