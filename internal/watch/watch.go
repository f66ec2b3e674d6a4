// Package watch reloads the dashboard when the issue spreadsheet changes on
// disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the file must stay quiet before a change fires.
const DefaultDebounce = 300 * time.Millisecond

// Invalidator drops cached state for a path. *issues.Cache satisfies it.
type Invalidator interface {
	Invalidate(path string)
}

// Config configures a Watcher.
type Config struct {
	// Path is the data file to watch. Its directory is watched so editors
	// that replace the file by rename are still seen.
	Path     string
	Cache    Invalidator
	OnChange func(path string)
	Debounce time.Duration
	Logger   *zap.Logger
}

// Watcher invalidates the cache after the data file settles.
type Watcher struct {
	mu      sync.Mutex
	cfg     Config
	path    string
	watcher *fsnotify.Watcher
	pending time.Time
	changes int
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// New creates a watcher for cfg.Path. Call Start to begin watching.
func New(cfg Config) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("watch: path is required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("watch: resolving %s: %w", cfg.Path, err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Watcher{cfg: cfg, path: abs}, nil
}

// Start begins watching. It returns once the watch is registered; events are
// handled on one goroutine until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: creating watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch: adding %s: %w", dir, err)
	}

	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true
	w.cfg.Logger.Info("watching data file", zap.String("path", w.path))

	go w.run(ctx, fw, w.stopCh, w.doneCh)
	return nil
}

// Stop stops watching and waits for the event goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stopCh, doneCh, fw := w.stopCh, w.doneCh, w.watcher
	w.mu.Unlock()

	close(stopCh)
	<-doneCh
	if err := fw.Close(); err != nil {
		w.cfg.Logger.Warn("closing file watcher", zap.Error(err))
	}
}

// Changes returns how many settled changes have fired.
func (w *Watcher) Changes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changes
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	tick := w.cfg.Debounce / 3
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.cfg.Logger.Warn("file watcher error", zap.Error(err))
		case <-ticker.C:
			w.fireIfSettled()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	w.cfg.Logger.Debug("data file event", zap.String("op", event.Op.String()))

	w.mu.Lock()
	w.pending = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) fireIfSettled() {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.cfg.Debounce {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.changes++
	w.mu.Unlock()

	if w.cfg.Cache != nil {
		w.cfg.Cache.Invalidate(w.path)
	}
	w.cfg.Logger.Info("data file changed", zap.String("path", w.path))
	if w.cfg.OnChange != nil {
		w.cfg.OnChange(w.path)
	}
}
