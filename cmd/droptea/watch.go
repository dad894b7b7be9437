package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Editors often write configs as remove-then-create, so debounce the
// burst and re-add the path when it reappears.
const watchDebounce = 200 * time.Millisecond

// watchConfig watches path and calls onChange after the file settles.
// The returned func stops the watcher. When the watch cannot be
// established the config simply does not hot-reload; the reload command
// still works.
func watchConfig(ctx context.Context, path string, log *slog.Logger, onChange func()) func() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("config watch unavailable", "err", err)
		return func() {}
	}

	// Watch the directory: events for the file survive replace-by-rename.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		log.Warn("config watch unavailable", "path", dir, "err", err)
		_ = watcher.Close()
		return func() {}
	}

	target, err := filepath.Abs(path)
	if err != nil {
		target = path
	}

	go func() {
		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				abs, err := filepath.Abs(ev.Name)
				if err != nil || abs != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(watchDebounce)
					fire = timer.C
				} else {
					timer.Reset(watchDebounce)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("config watch error", "err", err)
			case <-fire:
				timer = nil
				fire = nil
				log.Info("config file changed, reloading", "path", path)
				onChange()
			}
		}
	}()

	return func() { _ = watcher.Close() }
}
