package region

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/rbright/saytap/internal/logging"
)

const defaultDebounce = 150 * time.Millisecond

// Watcher reloads a registry whenever its region file changes on disk.
type Watcher struct {
	registry *Registry
	fs       afero.Fs
	path     string
	logger   *slog.Logger
	debounce time.Duration
	onReload func(count int, err error)
}

// WatcherOption customizes a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce coalesces bursts of writes within d into one reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithReloadHook is called after every reload attempt.
func WithReloadHook(fn func(count int, err error)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

func NewWatcher(registry *Registry, fs afero.Fs, path string, logger *slog.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		registry: registry,
		fs:       fs,
		path:     path,
		logger:   logging.OrDiscard(logger),
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the file's parent directory until ctx ends. Editors that
// replace files by rename are covered because the directory is watched.
func (w *Watcher) Run(ctx context.Context) error {
	absPath, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("resolve regions path: %w", err)
	}
	dir, name := filepath.Dir(absPath), filepath.Base(absPath)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create regions watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %q: %w", dir, err)
	}
	w.logger.Info("watching regions file", "path", absPath)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("regions watcher error", "error", err.Error())
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	warnings, err := w.registry.Load(w.fs, w.path)
	if err != nil {
		w.logger.Warn("regions reload failed", "path", w.path, "error", err.Error())
	} else {
		for _, warning := range warnings {
			w.logger.Warn("regions file warning", "path", w.path, "warning", warning)
		}
		w.logger.Info("regions reloaded", "path", w.path, "count", w.registry.Len())
	}
	if w.onReload != nil {
		w.onReload(w.registry.Len(), err)
	}
}
