package config

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watch re-loads the config file whenever it changes on disk and hands the
// result to fn. Load failures during a reload are passed to fn with a nil
// File so the caller can decide whether to keep the previous config.
//
// Watch blocks until ctx is canceled; run it on its own goroutine. The
// watcher is closed on return.
func Watch(ctx context.Context, path string, fn func(*File, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
				fn(Load(path))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fn(nil, fmt.Errorf("config: watch %s: %w", path, err))
		}
	}
}
