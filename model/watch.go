package model

import (
	"context"
	"log/slog"
	"path/filepath"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pollInterval is the fallback reload cadence when fsnotify is unavailable.
const pollInterval = 2 * time.Second

// Watch follows a registry config file and registers specs that appear
// in it while the process runs. Existing entries stay immutable: a
// changed spec for an already-registered name is ignored and logged.
// Watch returns after starting the watcher goroutine; it stops when the
// context is cancelled.
//
// Uses fsnotify for efficient file watching with polling fallback.
func (r *Registry) Watch(ctx context.Context, path string) error {
	// Load once up front so callers see errors for a broken file.
	if err := r.LoadFile(path); err != nil {
		return err
	}

	go func() {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			r.watchPolling(ctx, path)
			return
		}
		defer watcher.Close()

		// Watch the directory (more reliable than watching the file directly).
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			r.watchPolling(ctx, path)
			return
		}

		r.watchEvents(ctx, path, watcher)
	}()

	return nil
}

func (r *Registry) watchEvents(ctx context.Context, path string, watcher *fsnotify.Watcher) {
	baseName := filepath.Base(path)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != baseName {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			r.reload(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			// Usually recoverable; keep watching.
			slog.Warn("registry watch error", slog.Any("error", err))
		}
	}
}

func (r *Registry) watchPolling(ctx context.Context, path string) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reload(path)
		}
	}
}

// reload registers specs whose names are new. Modified entries for
// already-registered names are skipped: pricing and rate policy are
// immutable once registered.
func (r *Registry) reload(path string) {
	specs, err := LoadFile(path)
	if err != nil {
		slog.Warn("registry reload failed",
			slog.String("path", path),
			slog.Any("error", err))
		return
	}

	for _, spec := range specs {
		r.mu.RLock()
		existing, exists := r.specs[spec.Name]
		r.mu.RUnlock()

		if exists {
			if !reflect.DeepEqual(existing, spec) {
				slog.Warn("registry reload: ignoring change to registered model",
					slog.String("model", spec.Name))
			}
			continue
		}
		if err := r.Register(spec); err != nil {
			slog.Warn("registry reload: register failed",
				slog.String("model", spec.Name),
				slog.Any("error", err))
			continue
		}
		slog.Info("registry reload: model added", slog.String("model", spec.Name))
	}
}
