package model

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce groups the burst of events an editor or a copy emits
// for a single artifact update.
const DefaultWatchDebounce = 250 * time.Millisecond

// Watch calls onChange after the file at path is written, created or renamed
// into place. The parent directory is watched so atomic replaces are seen.
// It returns once the watcher is running; watching stops when ctx is done.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}

	go func() {
		defer w.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				slog.Debug("model artifact changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					timer.Reset(debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				onChange()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("model watcher error", slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}
