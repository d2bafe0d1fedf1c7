package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the catalog file into h whenever it is written or replaced.
// A file that fails to parse leaves the previous catalog in place. Watch blocks
// until ctx is done.
func Watch(ctx context.Context, path string, h *Holder, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch catalog dir: %w", err)
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			c, err := Load(path)
			if err != nil {
				logger.Warn("Catalog reload failed, keeping previous", zap.String("path", path), zap.Error(err))
				continue
			}
			h.Set(c)
			logger.Info("Catalog reloaded", zap.String("path", path), zap.Int("types", len(c.Types)))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Catalog watcher error", zap.Error(err))
		}
	}
}
