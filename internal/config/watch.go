package config

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/banshee-data/landcover.report/internal/monitoring"
)

// Watch monitors path and calls onChange with the newly loaded Config each
// time the file is written or recreated. It runs until ctx is cancelled.
// A reload that fails is logged and the previous config stays active.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}
	monitoring.Logf("config: watching %s for changes", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so Create counts too.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				monitoring.Logf("config: reload of %s failed, keeping previous config: %v", path, err)
				continue
			}
			monitoring.Logf("config: reloaded %s", path)
			onChange(cfg)

			// Re-add in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			monitoring.Logf("config: watcher error: %v", err)
		}
	}
}
