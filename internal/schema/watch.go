package schema

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchOptions configures Watch.
type WatchOptions struct {
	Debounce time.Duration
	Logger   *slog.Logger
	// OnReload is called after every reload attempt with the error, if any.
	OnReload func(error)
}

// Watch rebuilds the graph whenever path changes and swaps it into store.
// A failed reload keeps the previous snapshot. Watch blocks until ctx is
// cancelled.
func Watch(ctx context.Context, store *Store, path string, provider Provider, opts WatchOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create schema watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace files by rename, so watch the directory.
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve schema path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch schema directory: %w", err)
	}

	timer := time.NewTimer(opts.Debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(opts.Debounce)

		case <-timer.C:
			g, err := provider.Load(ctx)
			if err != nil {
				logger.Error("schema reload failed, keeping previous snapshot", "path", path, "error", err)
			} else {
				store.Swap(g)
				logger.Info("schema reloaded", "path", path, "tables", len(g.TableNames()))
			}
			if opts.OnReload != nil {
				opts.OnReload(err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("schema watcher error", "error", err)
		}
	}
}
