// Package watcher feeds files dropped into inbox directories to the ingestion flow.
// Created or modified files are re-ingested after a debounce; removed files have their chunks deleted.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last write before a file is ingested.
const DefaultDebounce = 400 * time.Millisecond

// Sink receives file events. *indexer.Indexer implements it.
type Sink interface {
	IngestFile(ctx context.Context, path string) (int, error)
	RemoveFile(ctx context.Context, path string) (int, error)
}

// Watcher watches inbox roots with fsnotify.
type Watcher struct {
	sink       Sink
	extensions []string
	recursive  bool
	debounce   time.Duration
	logger     *zap.Logger

	mu        sync.Mutex
	fsw       *fsnotify.Watcher
	ctx       context.Context
	cancel    context.CancelFunc
	roots     []string
	rootPaths map[string][]string // root -> directories added to fsw
	pending   map[string]*time.Timer
	inflight  sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the watcher logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = utils.OrNop(l) }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher over cfg.Directories. Only files whose extension is in
// cfg.Extensions are passed to sink; an empty list allows every extension.
func New(cfg *config.WatchConfig, sink Sink, opts ...Option) *Watcher {
	w := &Watcher{
		sink:       sink,
		extensions: append([]string(nil), cfg.Extensions...),
		recursive:  cfg.RecursiveOrDefault(),
		debounce:   DefaultDebounce,
		logger:     zap.NewNop(),
		roots:      cleanRoots(cfg.Directories),
		rootPaths:  make(map[string][]string),
		pending:    make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func cleanRoots(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if abs, err := filepath.Abs(d); err == nil {
			out = append(out, filepath.Clean(abs))
		}
	}
	return out
}

// Start begins watching. Missing roots are created. It returns once the roots are
// registered; events are handled until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			_ = fsw.Close()
			w.fsw = nil
			return err
		}
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.logger.Info("watcher started",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))
	go w.run(w.ctx, fsw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.underRoot(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if w.allowed(path) {
			w.schedule(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancelPending(path)
		if w.allowed(path) {
			w.remove(path)
		}
	}
}

// handleNewDirectory registers a directory created or moved under a root and ingests its files.
// Non-recursive watchers ignore subdirectories.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil || !w.recursive {
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
				return nil
			}
			w.track(path)
			return nil
		}
		if w.allowed(path) {
			w.schedule(path)
		}
		return nil
	})
}

// track records dir under its root so RemoveDirectory can unwatch it.
func (w *Watcher) track(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, root := range w.roots {
		if inDir(root, dir) {
			w.rootPaths[root] = append(w.rootPaths[root], dir)
			return
		}
	}
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, root := range w.roots {
		if root == path || inDir(root, path) {
			if !w.recursive && filepath.Dir(path) != root && path != root {
				continue
			}
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) allowed(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	return indexer.ExtensionAllowed(filepath.Ext(path), w.extensions)
}

// schedule (re)starts the debounce timer for path. Each armed timer holds one inflight
// slot, released either by the callback or by a successful Stop on the timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil || w.ctx.Err() != nil {
		return
	}
	if t, ok := w.pending[path]; ok && t.Stop() {
		w.inflight.Done()
	}
	ctx := w.ctx
	w.inflight.Add(1)
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		defer w.inflight.Done()
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.ingest(ctx, path)
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		if t.Stop() {
			w.inflight.Done()
		}
		delete(w.pending, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	n, err := w.sink.IngestFile(ctx, path)
	if err != nil {
		w.logger.Warn("watcher ingest failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("watcher ingested file", zap.String("path", path), zap.Int("chunk_count", n))
}

func (w *Watcher) remove(path string) {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	n, err := w.sink.RemoveFile(ctx, path)
	if err != nil {
		w.logger.Warn("watcher remove failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("watcher removed file", zap.String("path", path), zap.Int("chunk_count", n))
}

// AddDirectory starts watching root. With syncExisting its current files are ingested
// in the background. Adding a watched root is a no-op.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)

	w.mu.Lock()
	for _, r := range w.roots {
		if r == abs {
			w.mu.Unlock()
			return nil
		}
	}
	if w.fsw != nil {
		if err := w.addRootLocked(abs); err != nil {
			w.mu.Unlock()
			return err
		}
	}
	w.roots = append(w.roots, abs)
	ctx := w.ctx
	runSync := syncExisting && ctx != nil && ctx.Err() == nil
	if runSync {
		w.inflight.Add(1)
	}
	w.mu.Unlock()

	w.logger.Info("watcher directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if runSync {
		go func() {
			defer w.inflight.Done()
			w.syncDirectory(ctx, abs)
		}()
	}
	return nil
}

func (w *Watcher) addRootLocked(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	if !w.recursive {
		if err := w.fsw.Add(root); err != nil {
			return err
		}
		w.rootPaths[root] = []string{root}
		return nil
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		for _, p := range paths {
			_ = w.fsw.Remove(p)
		}
		return err
	}
	w.rootPaths[root] = paths
	return nil
}

// RemoveDirectory stops watching root. Chunks already ingested from it are kept.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	idx := -1
	for i, r := range w.roots {
		if r == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	if w.fsw != nil {
		for _, p := range w.rootPaths[abs] {
			_ = w.fsw.Remove(p)
		}
	}
	delete(w.rootPaths, abs)
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	w.logger.Info("watcher directory removed", zap.String("path", abs))
	return nil
}

// Directories returns a copy of the watched roots.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// Sync ingests every allowed file already present under the roots and returns the
// number of files ingested. Failures are logged and skipped.
func (w *Watcher) Sync(ctx context.Context) int {
	n := 0
	for _, root := range w.Directories() {
		n += w.syncDirectory(ctx, root)
	}
	return n
}

func (w *Watcher) syncDirectory(ctx context.Context, root string) int {
	n := 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != root && !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !w.allowed(path) {
			return nil
		}
		if _, err := w.sink.IngestFile(ctx, path); err != nil {
			if !errors.Is(err, context.Canceled) {
				w.logger.Warn("watcher sync failed", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		n++
		return nil
	})
	w.logger.Debug("watcher synced directory", zap.String("root", root), zap.Int("files", n))
	return n
}

// Stop stops watching, cancels pending debounced ingests and waits for running ones.
// It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return
	}
	w.cancel()
	for path, t := range w.pending {
		if t.Stop() {
			w.inflight.Done()
		}
		delete(w.pending, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.mu.Unlock()
	w.inflight.Wait()
}
