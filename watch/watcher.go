// Package watch reports content changes to a set of input files.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/minio/highwayhash"
)

// DefaultDebounce is how long to wait for more changes before reporting.
const DefaultDebounce = 500 * time.Millisecond

// contentKey keys the content hash; HighwayHash requires exactly 32 bytes.
var contentKey = []byte("semmap.watch.content-hash.key.v1")

// Watcher watches the directories holding a set of files and reports, after
// a quiet period, which of those files changed content. Directories rather
// than files are watched so editors that replace files by renaming are seen.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	files   map[string]bool
	dirs    map[string]bool
	hashes  map[string]uint64
	pending map[string]fsnotify.Op

	changes chan []string
}

// New creates a watcher for paths. A zero debounce uses DefaultDebounce.
func New(paths []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		watcher:  fsw,
		logger:   logger,
		debounce: debounce,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		hashes:   make(map[string]uint64),
		pending:  make(map[string]fsnotify.Op),
		changes:  make(chan []string, 1),
	}
	if err := w.Update(paths); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Changes delivers the changed paths of each quiet period, sorted.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Update replaces the watched file set. Content hashes of the new set are
// recorded so only later changes are reported. Directories that no longer
// hold a watched file stop being watched.
func (w *Watcher) Update(paths []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	files := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	for dir := range dirs {
		if w.dirs[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
		w.logger.Debug("Watching directory", "path", dir)
	}
	for dir := range w.dirs {
		if dirs[dir] {
			continue
		}
		if err := w.watcher.Remove(dir); err != nil {
			w.logger.Debug("Failed to unwatch directory", "path", dir, "error", err)
		}
		delete(w.dirs, dir)
		w.logger.Debug("Stopped watching directory", "path", dir)
	}

	for path := range w.hashes {
		if !files[path] {
			delete(w.hashes, path)
		}
	}
	for path := range w.pending {
		if !files[path] {
			delete(w.pending, path)
		}
	}
	for path := range files {
		if h, ok := hashFile(path); ok {
			w.hashes[path] = h
		}
	}
	w.files = files
	return nil
}

// Start processes events until ctx is done or Stop is called. The changes
// channel is closed when processing ends.
func (w *Watcher) Start(ctx context.Context) {
	go w.processEvents(ctx)
	w.logger.Info("Watching inputs", "files", len(w.files), "debounce", w.debounce)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.changes)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			if changed := w.flushPending(); len(changed) > 0 {
				select {
				case w.changes <- changed:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.files[path] {
		return
	}
	w.pending[path] |= event.Op
	w.logger.Debug("Input change detected", "path", path, "op", event.Op.String())
}

// flushPending returns the pending paths whose content actually changed.
func (w *Watcher) flushPending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}

	var changed []string
	for path := range w.pending {
		h, ok := hashFile(path)
		if !ok {
			// Removed or unreadable; report it once.
			if _, had := w.hashes[path]; had {
				delete(w.hashes, path)
				changed = append(changed, path)
			}
			continue
		}
		if old, had := w.hashes[path]; had && old == h {
			continue
		}
		w.hashes[path] = h
		changed = append(changed, path)
	}
	w.pending = make(map[string]fsnotify.Op)
	sort.Strings(changed)
	return changed
}

func hashFile(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	return highwayhash.Sum64(data, contentKey), true
}
