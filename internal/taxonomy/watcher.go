package taxonomy

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/helpfulengineering/ome-matching-core/internal/logging"
)

// Watcher hot-reloads a Registry when its backing processes.yaml file
// changes, debouncing rapid saves. Adapted from the teacher's
// internal/core.MangleWatcher (fsnotify + debounce-by-path-and-timestamp),
// retargeted from .mg rule files to a single taxonomy YAML file.
type Watcher struct {
	mu          sync.Mutex
	registry    *Registry
	watcher     *fsnotify.Watcher
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity, mirroring MangleWatcherStats.
type WatcherStats struct {
	ReloadsTriggered  int
	ReloadsSucceeded  int
	ReloadsFailed     int
	LastEventTime     time.Time
}

// NewWatcher creates a Watcher for registry's backing file. registry.path
// must be non-empty (i.e. created via Load, not NewFromDefinitions).
func NewWatcher(registry *Registry) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		registry:    registry,
		watcher:     fw,
		debounceMap: make(map[string]time.Time),
		debounceDur: 300 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching the taxonomy file's directory for changes. It is
// non-blocking; the watch loop runs in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.registry.path)
	if err := w.watcher.Add(dir); err != nil {
		logging.Get(logging.CategoryTaxonomy).Warnw("watcher: initial watch failed", "dir", dir, "error", err)
	}

	go w.run(ctx)
	return nil
}

// Stop halts the watcher and waits for the run loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryTaxonomy).Errorw("watcher error", "error", err)
		case <-ticker.C:
			w.processDebounced()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.registry.path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.stats.LastEventTime = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebounced() {
	w.mu.Lock()
	now := time.Now()
	var toProcess []string
	for path, t := range w.debounceMap {
		if now.Sub(t) >= w.debounceDur {
			toProcess = append(toProcess, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for range toProcess {
		w.mu.Lock()
		w.stats.ReloadsTriggered++
		w.mu.Unlock()

		if err := w.registry.Reload(); err != nil {
			w.mu.Lock()
			w.stats.ReloadsFailed++
			w.mu.Unlock()
			continue
		}
		w.mu.Lock()
		w.stats.ReloadsSucceeded++
		w.mu.Unlock()
	}
}

// Stats returns a snapshot of watcher activity counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
