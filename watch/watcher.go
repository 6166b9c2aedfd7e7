// Package watch re-runs consolidation when crate metadata files change.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 250 * time.Millisecond

// metadataPattern matches standard and prefixed metadata file names.
const metadataPattern = "{ro-crate-metadata.json,*-ro-crate-metadata.json}"

// RunFunc re-consolidates after a batch of changes. Paths are relative to
// the watched root and sorted.
type RunFunc func(ctx context.Context, changed []string) error

// Config configures the watcher.
type Config struct {
	// Root is the crate directory to watch.
	Root string

	// Debounce is how long the tree must stay quiet before a run starts.
	Debounce time.Duration

	// Logger for logging events
	Logger *slog.Logger
}

// Event reports one completed run.
type Event struct {
	Changed  []string
	Duration time.Duration
	Err      error
}

// Watcher watches a crate tree and calls its RunFunc once per quiet batch
// of metadata changes. Runs never overlap.
type Watcher struct {
	config  Config
	run     RunFunc
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu  sync.Mutex
	pending    map[string]fsnotify.Op
	lastChange time.Time

	// path → content hash, touched only by the processing goroutine
	// after Start returns.
	hashes map[string]string

	events chan Event
}

// New creates a watcher for cfg.Root.
func New(cfg Config, run RunFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	return &Watcher{
		config:  cfg,
		run:     run,
		watcher: fsw,
		logger:  logger,
		pending: make(map[string]fsnotify.Op),
		hashes:  make(map[string]string),
		events:  make(chan Event, 16),
	}, nil
}

// Events returns completed runs. The channel is closed when the watcher
// stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start adds watches below the root, records the current metadata file
// hashes and begins processing in a new goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.config.Root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Crate watcher started",
		slog.String("root", w.config.Root),
		slog.Duration("debounce", w.config.Debounce))
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func skipDir(name string) bool {
	return name == "__MACOSX" || (strings.HasPrefix(name, ".") && name != ".")
}

// IsMetadataFile reports whether name is a metadata file name.
func IsMetadataFile(name string) bool {
	ok, _ := doublestar.Match(metadataPattern, filepath.Base(name))
	return ok
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if IsMetadataFile(path) {
				if h, err := hashFile(path); err == nil {
					w.hashes[path] = h
				}
			}
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				slog.String("path", path),
				slog.String("error", err.Error()))
		} else {
			w.logger.Debug("Watching directory", slog.String("path", path))
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	ticker := time.NewTicker(max(w.config.Debounce/2, time.Millisecond))
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
			w.logger.Error("Watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !IsMetadataFile(path) {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.lastChange = time.Now()
	w.pendingMu.Unlock()

	w.logger.Debug("Metadata change detected",
		slog.String("path", path),
		slog.String("op", event.Op.String()))
}

// handleNewDirectory watches a new directory and queues any metadata file
// already written into it.
func (w *Watcher) handleNewDirectory(path string) {
	if skipDir(filepath.Base(path)) {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("Added watch for new directory", slog.String("path", path))

	entries, err := os.ReadDir(path)
	if err != nil {
		return
	}
	for _, e := range entries {
		child := filepath.Join(path, e.Name())
		switch {
		case e.IsDir():
			w.handleNewDirectory(child)
		case IsMetadataFile(child):
			w.handleFSEvent(fsnotify.Event{Name: child, Op: fsnotify.Create})
		}
	}
}

// flushPending runs once the pending batch has been quiet for the debounce
// delay and at least one file actually changed.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 || time.Since(w.lastChange) < w.config.Debounce {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	var changed []string
	for path := range toProcess {
		h, err := hashFile(path)
		if err != nil {
			// Removed or renamed away.
			if _, known := w.hashes[path]; !known {
				continue
			}
			delete(w.hashes, path)
		} else {
			if old, ok := w.hashes[path]; ok && old == h {
				continue
			}
			w.hashes[path] = h
		}
		rel, err := filepath.Rel(w.config.Root, path)
		if err != nil {
			rel = path
		}
		changed = append(changed, filepath.ToSlash(rel))
	}
	if len(changed) == 0 {
		return
	}
	sort.Strings(changed)

	w.logger.Info("Re-consolidating", slog.Any("changed", changed))

	start := time.Now()
	err := w.run(ctx, changed)
	event := Event{Changed: changed, Duration: time.Since(start), Err: err}
	if err != nil {
		w.logger.Warn("Consolidation run failed", slog.String("error", err.Error()))
	}

	select {
	case w.events <- event:
	default:
		w.logger.Warn("Event channel full, dropping event", slog.Int("changed", len(changed)))
	}
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
