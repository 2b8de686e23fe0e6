// Package watcher reports debounced file changes under a workspace root.
package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultInterval is how long the watcher waits for events to settle
const DefaultInterval = 100 * time.Millisecond

// Batch is one settled set of changes. Paths are absolute and sorted.
type Batch struct {
	Changed []string
	Removed []string
}

// Empty reports whether the batch carries no paths
func (b Batch) Empty() bool {
	return len(b.Changed) == 0 && len(b.Removed) == 0
}

// Handler is called with each batch, on its own goroutine
type Handler func(Batch)

// Filter selects the files a watcher reports
type Filter func(path string) bool

// Watcher monitors files under a root using fsnotify
type Watcher struct {
	watcher   *fsnotify.Watcher
	rootPath  string
	filter    Filter
	handler   Handler
	debouncer *Debouncer
	logger    *zap.Logger
	done      chan struct{}
}

// New creates a watcher for rootPath. A nil filter reports every file.
func New(rootPath string, filter Filter, handler Handler, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Watcher{
		watcher:   fsw,
		rootPath:  rootPath,
		filter:    filter,
		handler:   handler,
		debouncer: NewDebouncer(DefaultInterval),
		logger:    logger,
		done:      make(chan struct{}),
	}

	return w, nil
}

// Start adds every directory under the root and begins watching
func (w *Watcher) Start() error {
	err := filepath.WalkDir(w.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		if d.IsDir() {
			if path != w.rootPath && skipDir(d.Name()) {
				return filepath.SkipDir
			}

			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.eventLoop()

	w.logger.Info("file watcher started", zap.String("root", w.rootPath))
	return nil
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
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
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		// New directories are watched too
		if info, err := os.Lstat(path); err == nil && info.IsDir() {
			if !skipDir(filepath.Base(path)) {
				if err := w.watcher.Add(path); err != nil {
					w.logger.Warn("failed to watch new directory", zap.String("path", path), zap.Error(err))
				}
			}
			return
		}
	}

	if !w.filter(path) {
		return
	}

	w.debouncer.Add(path, event.Op)
	w.debouncer.Flush(func(batch Batch) {
		w.logger.Debug("file changes",
			zap.Int("changed", len(batch.Changed)),
			zap.Int("removed", len(batch.Removed)))
		w.handler(batch)
	})
}

// Close stops the watcher
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

// skipDir reports directories that are never watched
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules"
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
