// Package watch turns file system notifications under the workspace and
// include roots into engine file events.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/yaklabco/pawnls/internal/logging"
)

// Handler receives file events. *engine.Engine implements it.
type Handler interface {
	FileChanged(ctx context.Context, path string) error
	FileCreated(ctx context.Context, path string) error
	FileRemoved(ctx context.Context, path string) error
	DirRemoved(ctx context.Context, dir string) error
}

// Options configures a Watcher.
type Options struct {
	// Roots are watched recursively.
	Roots []string

	// Extensions limits events to source files. Empty passes every file.
	Extensions []string

	// Skip reports directories that are not descended into, such as VCS
	// metadata. Nil skips hidden directories.
	Skip func(dir string) bool

	Logger *log.Logger
}

// Watcher forwards file events to a Handler.
type Watcher struct {
	fsw     *fsnotify.Watcher
	handler Handler
	exts    []string
	skip    func(string) bool
	logger  *log.Logger

	mu   sync.Mutex
	dirs map[string]bool
}

// New creates a watcher over opts.Roots. Roots that do not exist are
// skipped.
func New(handler Handler, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		fsw:     fsw,
		handler: handler,
		exts:    opts.Extensions,
		skip:    opts.Skip,
		logger:  opts.Logger,
		dirs:    make(map[string]bool),
	}
	if w.skip == nil {
		w.skip = hidden
	}
	if w.logger == nil {
		w.logger = logging.Default()
	}

	for _, root := range opts.Roots {
		if _, err := w.addTree(root); err != nil && !errors.Is(err, fs.ErrNotExist) {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func hidden(dir string) bool {
	base := filepath.Base(dir)
	return len(base) > 1 && strings.HasPrefix(base, ".")
}

// addTree watches dir and its subdirectories, returning the source files
// found below it.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			if w.wanted(path) {
				files = append(files, path)
			}
			return nil
		}
		if path != dir && w.skip(path) {
			return filepath.SkipDir
		}
		w.mu.Lock()
		seen := w.dirs[path]
		w.dirs[path] = true
		w.mu.Unlock()
		if seen {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
	return files, err
}

func (w *Watcher) wanted(path string) bool {
	if len(w.exts) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	return slices.ContainsFunc(w.exts, func(e string) bool { return strings.EqualFold(e, ext) })
}

// Run forwards events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.dispatch(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logging.FieldError, err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) dispatch(ctx context.Context, ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	var err error

	switch {
	case ev.Has(fsnotify.Create):
		err = w.created(ctx, path)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// A rename is followed by a Create for the new name.
		err = w.removed(ctx, path)
	case ev.Has(fsnotify.Write):
		if w.wanted(path) {
			err = w.handler.FileChanged(ctx, path)
		}
	}
	if err != nil {
		w.logger.Warn("file event failed",
			logging.FieldPath, path,
			"op", ev.Op.String(),
			logging.FieldError, err)
	}
}

func (w *Watcher) created(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		// Gone again before we looked.
		return nil
	}
	if !info.IsDir() {
		if !w.wanted(path) {
			return nil
		}
		return w.handler.FileCreated(ctx, path)
	}
	if w.skip(path) {
		return nil
	}
	// Files may land in a new directory before it is watched.
	files, err := w.addTree(path)
	if err != nil {
		return err
	}
	var errs []error
	for _, f := range files {
		errs = append(errs, w.handler.FileCreated(ctx, f))
	}
	return errors.Join(errs...)
}

func (w *Watcher) removed(ctx context.Context, path string) error {
	w.mu.Lock()
	var gone []string
	for dir := range w.dirs {
		if dir == path || strings.HasPrefix(dir, path+string(filepath.Separator)) {
			gone = append(gone, dir)
			delete(w.dirs, dir)
		}
	}
	w.mu.Unlock()

	if len(gone) == 0 {
		if !w.wanted(path) {
			return nil
		}
		return w.handler.FileRemoved(ctx, path)
	}
	w.logger.Debug("watched directory removed", logging.FieldPath, path, "dirs", len(gone))
	return w.handler.DirRemoved(ctx, path)
}
