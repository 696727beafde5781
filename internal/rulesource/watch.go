package rulesource

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the backing file whenever it changes, until ctx is done.
// The parent directory is watched so atomic editor saves (write to temp,
// rename over) are caught. Reload failures keep the previous rule set.
func (s *FileSource) Watch(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := s.Reload(); err != nil {
					logger.Warn("rule file reload failed", "path", s.path, "error", err)
					continue
				}
				logger.Debug("rule file reloaded", "path", s.path)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("rule file watcher error", "path", s.path, "error", werr)
			}
		}
	}()
	return nil
}
