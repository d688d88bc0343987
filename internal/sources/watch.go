package sources

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/jonesrussell/newsgate/internal/logger"
)

// Watch reloads the registry whenever path changes, until ctx ends. The
// parent directory is watched so editors that replace the file by rename
// are picked up. A failed reload keeps the previous table.
func (r *Registry) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err = watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if loadErr := r.LoadFile(target); loadErr != nil {
				r.log.Warn("Source reload failed, keeping previous table",
					logger.String("path", target),
					logger.Error(loadErr),
				)
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Error("Source watcher error", logger.Error(watchErr))
		}
	}
}
