// Package watch monitors the source tree and reports settled changes.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"atelier/config"
	"atelier/site"
)

// Watcher monitors the source tree recursively. Rapid successive
// events on one path collapse into a single change notification.
type Watcher struct {
	cfg     *config.Config
	log     *zap.Logger
	watcher *fsnotify.Watcher
	changes chan string

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

func NewWatcher(cfg *config.Config, log *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &Watcher{
		cfg:     cfg,
		log:     log,
		watcher: fsWatcher,
		changes: make(chan string, 100),
		pending: map[string]*time.Timer{},
	}, nil
}

// Start begins monitoring the source tree.
func (w *Watcher) Start() error {
	if err := w.addRecursive(w.cfg.Paths.SourceDir); err != nil {
		return err
	}
	go w.processEvents()
	return nil
}

// Changes returns the channel of settled change paths. The channel is
// never closed; stop consuming when your context ends.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Stop closes the underlying watcher and cancels pending timers.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	w.mu.Lock()
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.pending = map[string]*time.Timer{}
	w.closed = true
	w.mu.Unlock()
	return err
}

// addRecursive watches dir and every directory below it.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != dir && w.skipDir(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.log.Debug("Watching", zap.String("dir", path))
		return nil
	})
}

// skipDir excludes hidden directories and the build output, which may
// live inside the source tree.
func (w *Watcher) skipDir(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	if abs, err := filepath.Abs(path); err == nil {
		if buildAbs, err := filepath.Abs(w.cfg.Paths.BuildDir); err == nil {
			if abs == buildAbs || strings.HasPrefix(abs, buildAbs+string(filepath.Separator)) {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := event.Name
	if site.IsTransient(filepath.Base(name)) {
		return
	}

	// New directories join the watch set so nested changes surface.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if !w.skipDir(name) {
				if err := w.addRecursive(name); err != nil {
					w.log.Warn("Failed to watch new directory",
						zap.String("dir", name), zap.Error(err))
				}
			}
			return
		}
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if timer, ok := w.pending[name]; ok {
		timer.Stop()
	}
	w.pending[name] = time.AfterFunc(w.cfg.Watch.Debounce(), func() {
		w.mu.Lock()
		delete(w.pending, name)
		closed := w.closed
		w.mu.Unlock()
		if !closed {
			w.changes <- name
		}
	})
}
