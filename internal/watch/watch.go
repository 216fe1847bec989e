// Package watch runs a callback when files under a set of directories
// change, coalescing bursts of filesystem events into single runs.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// Watcher observes directory trees and invokes OnChange after events
// settle for the debounce interval. Runs never overlap; events arriving
// during a run queue exactly one follow-up run.
type Watcher struct {
	Debounce time.Duration
	OnChange func(ctx context.Context) error

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	pending chan struct{}
}

// New creates a watcher over the given root directories, added
// recursively. Directories created later are picked up as they appear.
func New(debounce time.Duration, roots ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryServe, apperrors.SeverityFatal, "create file watcher")
	}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			_ = fsw.Close()
			return nil, apperrors.Wrap(err, apperrors.CategoryServe, apperrors.SeverityFatal, "resolve watch root")
		}
		if err := addDirsRecursive(fsw, abs); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return &Watcher{
		Debounce: debounce,
		fsw:      fsw,
		pending:  make(chan struct{}, 1),
	}, nil
}

// Run blocks, dispatching change callbacks until the context is
// cancelled. The watcher is closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	go w.runLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ignoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(w.fsw, ev.Name)
		}
	}
	slog.Debug("File change detected", "path", ev.Name, "op", ev.Op.String())
	w.trigger()
}

// trigger resets the debounce timer; the run fires once events stop.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.Debounce, func() {
		select {
		case w.pending <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) runLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.pending:
			if w.OnChange == nil {
				continue
			}
			if err := w.OnChange(ctx); err != nil {
				slog.Warn("Change handler failed", "error", err)
			}
		}
	}
}

func addDirsRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(filepath.Base(path), ".") && path != root {
				return filepath.SkipDir
			}
			if err := fsw.Add(path); err != nil {
				slog.Warn("Watch add failed", "dir", path, "error", err)
			}
		}
		return nil
	})
}

// ignoreEvent filters out hidden files and editor temp/swap files that
// would otherwise cause spurious rebuilds.
func ignoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, ".#") ||
		(strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#")) {
		return true
	}
	if base == "Thumbs.db" {
		return true
	}
	return false
}
