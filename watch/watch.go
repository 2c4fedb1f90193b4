// Package watch monitors a drop directory for incoming model files and
// slices them as they arrive.
//
// Filesystem events are taken as hints only: a periodic rescan is the source
// of truth, so files that arrive while we're busy (or over transports that
// don't emit events, like some network mounts) are still picked up.  A file
// is only processed once its size has stopped changing between two scans,
// which keeps us off half-copied uploads.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/maps"
)

// DefaultRescan matches the poll interval the tool has always used.
const DefaultRescan = 2 * time.Second

// SliceFunc slices one model file and returns the written G-code path.
type SliceFunc func(ctx context.Context, path string) (string, error)

// Watcher drives the watch loop.
type Watcher struct {
	// InputDir is scanned (non-recursively) for .stl/.3mf files.
	InputDir string

	// Rescan is the interval between directory sweeps; DefaultRescan if zero.
	Rescan time.Duration

	// DeleteInput removes a model file after it sliced successfully.
	DeleteInput bool

	Slice  SliceFunc
	Logger *slog.Logger

	// size per candidate path at the previous sweep; a stable size means
	// the file is done being written and can be sliced.
	pending map[string]int64

	// files that failed to slice; left in place but not retried, so one
	// broken mesh doesn't hot-loop the watcher.
	failed map[string]bool
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.InputDir)
	if err != nil {
		return fmt.Errorf("watch: couldn't stat input dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch: %s is not a directory", w.InputDir)
	}

	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: couldn't create fsnotify watcher: %w", err)
	}
	defer notifier.Close()

	if err := notifier.Add(w.InputDir); err != nil {
		return fmt.Errorf("watch: couldn't watch %s: %w", w.InputDir, err)
	}

	rescan := w.Rescan
	if rescan <= 0 {
		rescan = DefaultRescan
	}
	ticker := time.NewTicker(rescan)
	defer ticker.Stop()

	w.pending = make(map[string]int64)
	w.failed = make(map[string]bool)

	w.Logger.Info("watching", "dir", w.InputDir, "rescan", rescan)

	// pick up whatever is already sitting in the directory
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-notifier.Events:
			if !ok {
				return fmt.Errorf("watch: event stream closed")
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				if eligible(event.Name) && !w.failed[event.Name] {
					if _, known := w.pending[event.Name]; !known {
						w.Logger.Debug("new candidate", "file", event.Name)
						w.pending[event.Name] = -1
					}
				}
			}

		case err, ok := <-notifier.Errors:
			if !ok {
				return fmt.Errorf("watch: error stream closed")
			}
			w.Logger.Warn("fsnotify error", "error", err)

		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep rescans the input dir, then slices every candidate whose size has
// settled since the previous sweep.
func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.InputDir)
	if err != nil {
		w.Logger.Warn("couldn't scan input dir", "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.InputDir, entry.Name())
		if !eligible(path) || w.failed[path] {
			continue
		}
		if _, known := w.pending[path]; !known {
			w.pending[path] = -1
		}
	}

	candidates := maps.Keys(w.pending)
	sort.Strings(candidates)

	for _, path := range candidates {
		if ctx.Err() != nil {
			return
		}

		info, err := os.Stat(path)
		if err != nil {
			// vanished between scan and stat; forget it
			delete(w.pending, path)
			continue
		}

		lastSize := w.pending[path]
		if info.Size() != lastSize {
			w.pending[path] = info.Size()
			continue
		}

		delete(w.pending, path)
		w.process(ctx, path)
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	output, err := w.Slice(ctx, path)
	if err != nil {
		w.Logger.Error("couldn't slice file", "file", path, "error", err)
		w.failed[path] = true
		return
	}
	w.Logger.Info("sliced", "file", path, "output", output)

	if w.DeleteInput {
		if err := os.Remove(path); err != nil {
			w.Logger.Error("couldn't delete input", "file", path, "error", err)
		}
	}
}

func eligible(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl", ".3mf":
		return true
	}
	return false
}
