package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.lsp.dev/uri"
	"golang.org/x/sync/errgroup"

	"github.com/yaklabco/pawnls/internal/logging"
	"github.com/yaklabco/pawnls/pkg/edit"
	"github.com/yaklabco/pawnls/pkg/fsutil"
	"github.com/yaklabco/pawnls/pkg/scheduler"
	"github.com/yaklabco/pawnls/pkg/source"
	"github.com/yaklabco/pawnls/pkg/store"
)

func pathOf(u uri.URI) string {
	return source.Path(u)
}

// LoadError reports a file LoadFiles could not load.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadFiles reads the given files from disk in parallel and queues them
// for analysis. Files owned by an editor are left alone. Unreadable files
// are skipped and reported in the returned error as joined *LoadError
// values.
func (e *Engine) LoadFiles(ctx context.Context, paths []string) error {
	start := time.Now()
	cfg := e.Config()

	texts := make([]string, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers())
	for i, path := range paths {
		g.Go(func() error {
			text, err := e.files.ReadFile(gctx, path)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			texts[i], errs[i] = text, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}

	var failed []error
	queued := make([]uri.URI, 0, len(paths))
	for i, path := range paths {
		if errs[i] != nil {
			failed = append(failed, &LoadError{Path: path, Err: errs[i]})
			continue
		}
		u := source.FileURI(path)
		if entry := e.store.Entry(u); entry != nil && entry.IsOpen() {
			continue
		}
		upd, err := e.store.Update(u, texts[i], 0)
		if err != nil {
			failed = append(failed, &LoadError{Path: path, Err: err})
			continue
		}
		if upd.Rebuild || e.store.Snapshot(u) == nil {
			queued = append(queued, u)
		}
	}

	e.logger.Info("workspace loaded",
		logging.FieldFiles, len(paths),
		logging.FieldJobs, len(queued),
		logging.FieldDuration, time.Since(start))

	if err := e.enqueue(queued, scheduler.KindRebuild); err != nil {
		return err
	}
	return errors.Join(failed...)
}

// OpenFile hands u to an editor with the given text.
func (e *Engine) OpenFile(ctx context.Context, u uri.URI, text string, version int32) error {
	upd := e.store.Open(u, text, version)
	logging.FromContext(ctx).Debug("file opened", logging.FieldURI, u, logging.FieldVersion, version)
	if upd.Rebuild {
		return e.enqueue([]uri.URI{u}, scheduler.KindRebuild)
	}
	// Same text as on disk: only republish for the editor.
	return e.enqueue([]uri.URI{u}, scheduler.KindResolve)
}

// ApplyEdit applies editor content changes to an open file. Changes carry
// either the full text or ranged replacements in the engine's unit.
// Out-of-order versions are rejected with store.ErrStaleVersion.
func (e *Engine) ApplyEdit(ctx context.Context, u uri.URI, version int32, changes []edit.Change) error {
	text, _, err := e.store.Text(u)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotLoaded, u)
	}
	next, err := edit.Apply(text, changes, e.unit)
	if err != nil {
		return fmt.Errorf("apply edit to %s: %w", u, err)
	}
	upd, err := e.store.Update(u, next, version)
	if err != nil {
		return fmt.Errorf("update %s: %w", u, err)
	}
	logging.FromContext(ctx).Debug("file edited",
		logging.FieldURI, u,
		logging.FieldVersion, version,
		logging.FieldRevision, upd.Revision)
	if !upd.Rebuild {
		return nil
	}
	return e.enqueue([]uri.URI{u}, scheduler.KindRebuild)
}

// CloseFile releases u from the editor. The file keeps contributing to
// the workspace with its content on disk; a file that only existed in the
// editor is dropped.
func (e *Engine) CloseFile(ctx context.Context, u uri.URI) error {
	if err := e.store.Close(u); err != nil {
		return fmt.Errorf("%w: %s", ErrNotLoaded, u)
	}
	return e.reload(ctx, u)
}

// FileChanged handles a change on disk. Files owned by an editor ignore it.
func (e *Engine) FileChanged(ctx context.Context, path string) error {
	u := source.FileURI(path)
	if entry := e.store.Entry(u); entry != nil && entry.IsOpen() {
		return nil
	}
	return e.reload(ctx, u)
}

// FileCreated handles a new file on disk. Files whose includes did not
// resolve are rebuilt, since the new file may be what they were missing.
func (e *Engine) FileCreated(ctx context.Context, path string) error {
	if err := e.FileChanged(ctx, path); err != nil {
		return err
	}
	return e.enqueue(e.invalidate(e.unresolvedIncluders()), scheduler.KindRebuild)
}

// FileRemoved handles a deletion on disk.
func (e *Engine) FileRemoved(ctx context.Context, path string) error {
	u := source.FileURI(path)
	if entry := e.store.Entry(u); entry != nil && entry.IsOpen() {
		return nil
	}
	e.drop(ctx, u)
	return nil
}

// DirRemoved drops every file below dir that no editor owns. Renaming
// a directory away produces no event for the files inside it.
func (e *Engine) DirRemoved(ctx context.Context, dir string) error {
	prefix := strings.TrimSuffix(filepath.Clean(dir), string(filepath.Separator)) + string(filepath.Separator)
	for _, u := range e.store.URIs() {
		if !strings.HasPrefix(pathOf(u), prefix) {
			continue
		}
		if entry := e.store.Entry(u); entry != nil && entry.IsOpen() {
			continue
		}
		e.drop(ctx, u)
	}
	return nil
}

// reload replaces the text of u with its content on disk, or drops u when
// it no longer exists.
func (e *Engine) reload(ctx context.Context, u uri.URI) error {
	text, err := e.files.ReadFile(ctx, pathOf(u))
	if errors.Is(err, fsutil.ErrNotFound) {
		e.drop(ctx, u)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reload %s: %w", u, err)
	}
	upd, err := e.store.Update(u, text, 0)
	if err != nil {
		return fmt.Errorf("reload %s: %w", u, err)
	}
	if !upd.Rebuild {
		return e.enqueue([]uri.URI{u}, scheduler.KindResolve)
	}
	return e.enqueue([]uri.URI{u}, scheduler.KindRebuild)
}

// drop removes u from the workspace. Its includers are rebuilt: their
// include no longer resolves.
func (e *Engine) drop(ctx context.Context, u uri.URI) {
	includers := e.index.Includers(u)
	e.store.Remove(u)
	e.index.Remove(u)

	e.pubMu.Lock()
	delete(e.published, u)
	delete(e.cycles, u)
	e.pubMu.Unlock()
	if e.pub != nil {
		e.pub.PublishDiagnostics(ctx, u, 0, nil)
	}

	logging.FromContext(ctx).Debug("file removed",
		logging.FieldURI, u,
		logging.FieldDependents, len(includers))
	e.schedule(e.invalidate(includers), scheduler.KindRebuild)
}

func (e *Engine) unresolvedIncluders() []uri.URI {
	var out []uri.URI
	for _, u := range e.index.Files() {
		for _, edge := range e.index.Edges(u) {
			if edge.To == "" {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

// Text returns the current text of u.
func (e *Engine) Text(u uri.URI) (string, error) {
	text, _, err := e.store.Text(u)
	if errors.Is(err, store.ErrUnknownFile) {
		return "", fmt.Errorf("%w: %s", ErrNotLoaded, u)
	}
	return text, err
}

// Snapshot waits for pending work on u and returns its latest snapshot.
func (e *Engine) Snapshot(ctx context.Context, u uri.URI) (*store.Snapshot, error) {
	if err := e.sched.Wait(ctx, u); err != nil {
		return nil, err
	}
	snap := e.store.Snapshot(u)
	if snap == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, u)
	}
	return snap, nil
}

// Files returns every file the engine tracks.
func (e *Engine) Files() []uri.URI {
	return e.store.URIs()
}
