package fs

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/rowship/internal/ports"
)

// DefaultDebounceDelay is how long the watcher waits after the last change
// before signalling. Editors usually write a file in several steps.
const DefaultDebounceDelay = 200 * time.Millisecond

// CatalogWatcher signals on C whenever the catalog file is written or replaced.
// The directory is watched rather than the file so atomic renames are seen.
type CatalogWatcher struct {
	path     string
	delay    time.Duration
	logger   ports.Logger
	c        chan struct{}
	mu       sync.Mutex
	debounce *time.Timer
}

// NewCatalogWatcher creates a watcher for path.
func NewCatalogWatcher(path string, delay time.Duration, logger ports.Logger) *CatalogWatcher {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &CatalogWatcher{
		path:   filepath.Clean(path),
		delay:  delay,
		logger: logger,
		c:      make(chan struct{}, 1),
	}
}

// C returns the channel that receives a value after each debounced change.
func (w *CatalogWatcher) C() <-chan struct{} { return w.c }

// Run watches until ctx is cancelled. It returns an error only if the
// watch could not be established.
func (w *CatalogWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("catalog watcher: watch %s: %w", filepath.Dir(w.path), err)
	}

	for {
		select {
		case <-ctx.Done():
			w.stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("catalog watcher error", ports.Err(err))
		}
	}
}

func (w *CatalogWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.delay, func() {
		w.logger.Info("catalog changed", ports.String("path", w.path))
		select {
		case w.c <- struct{}{}:
		default:
		}
	})
}

func (w *CatalogWatcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
}
