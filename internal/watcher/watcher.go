// Package watcher notifies the host when the settings or history files
// change on disk, so a long-running session picks up edits made by other
// processes without restarting.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	defaultDebounce = 500 * time.Millisecond
	sweepInterval   = 100 * time.Millisecond
)

// Config sets up a FileWatcher.
type Config struct {
	// Paths are the files to watch. Their parent directories are
	// registered, so atomic replace-by-rename is still observed.
	Paths []string

	// Debounce is how long a file must stay quiet before OnChange fires;
	// rapid write bursts collapse into one notification.
	Debounce time.Duration

	// OnChange receives the settled path. Called from the watch goroutine.
	OnChange func(path string)

	Logger *zap.Logger
}

// Stats tracks watcher activity.
type Stats struct {
	Created   int
	Modified  int
	Removed   int
	Notified  int
	Errors    int
	LastEvent time.Time
	LastPath  string
}

// FileWatcher is a debounced fsnotify wrapper over a fixed set of files.
type FileWatcher struct {
	mu          sync.RWMutex
	fsw         *fsnotify.Watcher
	targets     map[string]bool
	debounceMap map[string]time.Time
	debounceDur time.Duration
	onChange    func(string)
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stats       Stats
	log         *zap.Logger
}

// New creates a watcher for the given files. Start must be called before
// any events are delivered.
func New(cfg Config) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	targets := make(map[string]bool, len(cfg.Paths))
	for _, p := range cfg.Paths {
		if abs, err := filepath.Abs(p); err == nil {
			targets[abs] = true
		}
	}

	return &FileWatcher{
		fsw:         fsw,
		targets:     targets,
		debounceMap: make(map[string]time.Time),
		debounceDur: cfg.Debounce,
		onChange:    cfg.OnChange,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		log:         cfg.Logger,
	}, nil
}

// Start registers the parent directories and begins delivering events.
// Non-blocking; the watch loop runs in its own goroutine.
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dirs := make(map[string]bool)
	for target := range w.targets {
		dirs[filepath.Dir(target)] = true
	}
	for dir := range dirs {
		if err := w.fsw.Add(dir); err != nil {
			// The directory may appear later; the watcher still runs.
			w.log.Warn("watch failed", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.log.Debug("watching directory", zap.String("dir", dir))
	}

	go w.run(ctx)
	return nil
}

// Stop halts the watch loop and releases the fsnotify handle.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.fsw.Close(); err != nil {
		w.log.Warn("error closing watcher", zap.Error(err))
	}
}

// IsWatching reports whether the watch loop is running.
func (w *FileWatcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Snapshot returns the current activity counters.
func (w *FileWatcher) Snapshot() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *FileWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-sweep.C:
			w.notifySettled()
		}
	}
}

func (w *FileWatcher) handleEvent(event fsnotify.Event) {
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if !w.targets[abs] {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case event.Op&fsnotify.Create != 0:
		w.stats.Created++
	case event.Op&fsnotify.Write != 0:
		w.stats.Modified++
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.stats.Removed++
	default:
		// Chmod and friends carry no content change.
		return
	}

	w.stats.LastEvent = time.Now()
	w.stats.LastPath = abs
	w.debounceMap[abs] = time.Now()
}

// notifySettled fires OnChange for paths quiet past the debounce window.
func (w *FileWatcher) notifySettled() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
			w.stats.Notified++
		}
	}
	w.mu.Unlock()

	if w.onChange == nil {
		return
	}
	for _, path := range settled {
		w.log.Debug("file settled", zap.String("path", path))
		w.onChange(path)
	}
}
