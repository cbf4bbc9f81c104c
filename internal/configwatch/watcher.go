// Package configwatch reloads the config file when it changes on disk.
package configwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"termlaunch/internal/config"
)

// DefaultDebounce coalesces the burst of events produced by one atomic save
// (create temp, write, rename).
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches a single config file. The parent directory is watched so
// that rename-based saves are seen.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload func(cfg config.Config, err error)
}

// New creates a Watcher. onReload is called from the watcher goroutine after
// each debounced change with the freshly loaded config.
func New(path string, debounce time.Duration, onReload func(cfg config.Config, err error)) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("config path required")
	}
	if onReload == nil {
		return nil, errors.New("onReload callback required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onReload: onReload,
	}, nil
}

// Run blocks until ctx is cancelled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	slog.Debug("[DEBUG-CONFIG] watching config file", "path", w.path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	fire := make(chan struct{}, 1)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			select {
			case fire <- struct{}{}:
			default:
			}
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			schedule()
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			slog.Warn("[WARN-CONFIG] config watcher error", "error", err)
		case <-fire:
			cfg, loadErr := config.Load(w.path)
			if loadErr != nil {
				slog.Warn("[WARN-CONFIG] reload after change failed", "path", w.path, "error", loadErr)
			}
			w.onReload(cfg, loadErr)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}
