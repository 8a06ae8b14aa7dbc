package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig reloads path whenever it is written or replaced and passes the
// new Config to onChange. It runs until ctx is cancelled.
//
// The parent directory is watched rather than the file, so editors and
// deploy tools that save by renaming a temporary file over path keep
// triggering reloads. A reload that fails validation is logged and skipped;
// the previous configuration stays active.
func (l *ConfigLoader) WatchConfig(ctx context.Context, path string, onChange func(*Config)) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}
	slog.Info("watching config for changes", "path", target)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !touchesConfig(event, target) {
				continue
			}
			cfg, err := l.Load(target)
			if err != nil {
				slog.Error("config reload failed, keeping previous config", "path", target, "err", err)
				continue
			}
			slog.Info("config reloaded", "path", target, "sources", len(cfg.Sources))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config watcher error", "err", err)
		}
	}
}

// touchesConfig reports whether event leaves new content at target. A rename
// onto target arrives as Create; Remove and Rename of target itself leave
// nothing to load.
func touchesConfig(event fsnotify.Event, target string) bool {
	if filepath.Clean(event.Name) != target {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
