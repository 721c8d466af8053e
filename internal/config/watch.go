package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it is written and publishes the result through
// Set. onChange, if not nil, runs on the watcher goroutine after each
// successful reload. Watching stops when ctx is done.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(Settings)) error {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				s, err := Load(abs)
				if err != nil {
					logger.Warn("settings reload failed", "path", abs, "err", err)
					continue
				}
				s = Set(s)
				logger.Info("settings reloaded", "path", abs)
				if onChange != nil {
					onChange(s)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("settings watcher", "err", err)
			}
		}
	}()
	return nil
}
