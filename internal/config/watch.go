package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce collapses the event bursts editors produce on save
// (write+chmod, or create+write for atomic saves) into one reload.
const reloadDebounce = 200 * time.Millisecond

// Watch monitors path for changes and calls onChange with the newly loaded
// Config each time the file is rewritten. It runs until ctx is cancelled.
//
// Only the watch list and scan defaults are applied live; changes to the
// startup-only sections (port, host bridge, auth, result TTL) are logged as
// needing a restart. Removing a watch seed does not unwatch an attribute
// that is already registered — that is an API operation — so removals are
// logged but not applied.
//
// If a reload fails (e.g., invalid YAML), the error is logged and the
// previous config remains active — Watch does not call onChange.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	// Baseline for delta logging. A nil baseline (unreadable file at start)
	// just means the first reload logs every seed as new.
	prev, _ := Load(path)

	slog.Info("config: watching for changes", "path", path)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Only reload on write or create events. Editors often write via
			// rename (atomic save), so also catch fsnotify.Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			pending = time.After(reloadDebounce)

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case <-pending:
			pending = nil

			cfg, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed — keeping previous config",
					"path", path, "err", err)
				continue
			}

			added, removed := diffWatch(prev, cfg)
			slog.Info("config: reloaded",
				"path", path,
				"watch_added", added,
				"scan_defaults_changed", scanDefaultsChanged(prev, cfg),
			)
			if len(removed) > 0 {
				slog.Warn("config: watch seeds removed — already-registered attributes stay watched, remove them via the API",
					"refs", removed)
			}
			if restartOnlyChanged(prev, cfg) {
				slog.Warn("config: changes to port/host/auth/results sections take effect on restart")
			}

			onChange(cfg)
			prev = cfg

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// diffWatch compares watch seed lists by ref and returns what next added
// and what it dropped relative to prev.
func diffWatch(prev, next *Config) (added, removed []string) {
	prevRefs := map[string]bool{}
	if prev != nil {
		for _, w := range prev.Watch {
			prevRefs[w.Ref] = true
		}
	}
	nextRefs := map[string]bool{}
	for _, w := range next.Watch {
		nextRefs[w.Ref] = true
		if !prevRefs[w.Ref] {
			added = append(added, w.Ref)
		}
	}
	for ref := range prevRefs {
		if !nextRefs[ref] {
			removed = append(removed, ref)
		}
	}
	return added, removed
}

// scanDefaultsChanged reports whether the live-applied scan defaults differ.
func scanDefaultsChanged(prev, next *Config) bool {
	if prev == nil {
		return false
	}
	return prev.Scan != next.Scan
}

// restartOnlyChanged reports whether any section applied only at startup
// differs between prev and next.
func restartOnlyChanged(prev, next *Config) bool {
	if prev == nil {
		return false
	}
	return prev.HTTPPort != next.HTTPPort ||
		prev.Host != next.Host ||
		prev.Auth != next.Auth ||
		prev.Results != next.Results
}
