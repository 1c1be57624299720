package compute

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchShaders calls notify whenever a file in one of dirs is written,
// created or renamed, until ctx is done. notify runs on the watcher goroutine
// and must not touch the device; it should only flag a reload for the render
// thread.
func WatchShaders(ctx context.Context, dirs []string, log *zap.Logger, notify func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					log.Debug("shader source changed", zap.String("file", ev.Name))
					notify()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("shader watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
