package engine

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/internal/logging"
	"github.com/yaklabco/pawnls/pkg/analysis"
	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/scheduler"
	"github.com/yaklabco/pawnls/pkg/store"
	"github.com/yaklabco/pawnls/pkg/workspace"
)

func (e *Engine) handle(ctx context.Context, job scheduler.Job) {
	switch job.Kind {
	case scheduler.KindRebuild:
		e.rebuild(ctx, job.URI)
	case scheduler.KindResolve:
		if snap := e.store.Snapshot(job.URI); snap != nil {
			e.publish(ctx, snap)
		}
	}
}

// rebuild runs the pipeline over the current text of u, publishes the
// snapshot, merges it into the index and schedules whatever the change
// affects in other files.
func (e *Engine) rebuild(ctx context.Context, u uri.URI) {
	entry := e.store.Entry(u)
	if entry == nil {
		return
	}
	start := time.Now()
	text, rev, version := entry.Text()
	prev := entry.Snapshot()

	snap, err := analysis.Build(analysis.Input{
		URI:          u,
		Text:         text,
		Revision:     rev,
		Version:      version,
		Prev:         prev,
		Preprocessor: e.preprocessor(),
	})
	if err != nil {
		var perr *analysis.PanicError
		if errors.As(err, &perr) {
			e.logger.Error("analysis panicked",
				logging.FieldURI, u,
				logging.FieldError, err,
				"stack", string(perr.Stack))
		}
	}

	if !e.store.Publish(snap) {
		e.logger.Debug("discarding stale snapshot", logging.FieldURI, u, logging.FieldRevision, rev)
		return
	}
	change := e.index.Merge(u, snap.Table)
	macros := change.Macros || prev == nil || macroHash(prev) != macroHash(snap)

	e.logger.Debug("file rebuilt",
		logging.FieldURI, u,
		logging.FieldRevision, rev,
		logging.FieldReused, snap.Tree.Reused,
		logging.FieldDuration, time.Since(start))

	e.publish(ctx, snap)
	e.propagate(u, change, macros)
}

// propagate schedules the follow-up work of a merged change. A body-only
// edit schedules nothing.
func (e *Engine) propagate(u uri.URI, change workspace.Change, macros bool) {
	if change.Edges {
		e.schedule(e.cycleFilesChanged(u), scheduler.KindResolve)
	}
	if macros {
		// Includers see the macro table at the end of u; their own tables
		// change in turn and carry the rebuild further up.
		e.schedule(e.invalidate(e.index.Includers(u)), scheduler.KindRebuild)
	}
	if change.Symbols || change.Edges {
		deps := e.index.Dependents(u)
		if len(deps) > 0 {
			e.logger.Debug("re-resolving dependents", logging.FieldURI, u, logging.FieldDependents, len(deps))
		}
		e.schedule(deps, scheduler.KindResolve)
	}
}

// invalidate bumps the revision of every known file in uris and returns
// those files. A forced rebuild without the bump produces a snapshot the
// store rejects as no newer than the published one.
func (e *Engine) invalidate(uris []uri.URI) []uri.URI {
	out := make([]uri.URI, 0, len(uris))
	for _, u := range uris {
		if _, err := e.store.Invalidate(u); err == nil {
			out = append(out, u)
		}
	}
	return out
}

// schedule enqueues follow-up work that has no caller to report to.
func (e *Engine) schedule(uris []uri.URI, kind scheduler.Kind) {
	if len(uris) == 0 {
		return
	}
	if err := e.enqueue(uris, kind); err != nil {
		e.logger.Debug("follow-up work not scheduled",
			logging.FieldJob, kind,
			logging.FieldFiles, len(uris),
			logging.FieldError, err)
	}
}

// cycleFilesChanged returns the files whose include-cycle diagnostics may
// differ after an edge change, u excluded.
func (e *Engine) cycleFilesChanged(u uri.URI) []uri.URI {
	now := e.index.CycleDiagnostics()

	e.pubMu.Lock()
	var out []uri.URI
	for f := range e.cycles {
		if _, ok := now[f]; !ok && f != u {
			out = append(out, f)
		}
	}
	for f := range now {
		if !e.cycles[f] && f != u {
			out = append(out, f)
		}
	}
	clear(e.cycles)
	for f := range now {
		e.cycles[f] = true
	}
	e.pubMu.Unlock()

	slices.Sort(out)
	return out
}

// publish combines a snapshot's own diagnostics with the cross-file checks
// and hands them to the publisher.
func (e *Engine) publish(ctx context.Context, snap *store.Snapshot) {
	cfg := e.Config()
	diags := slices.Clone(snap.Diagnostics)
	diags = append(diags, analysis.Resolve(snap.Table, e.index, analysis.ResolveOptions{
		Unresolved: cfg.Diagnostics.UnresolvedIdentifiers,
		Deprecated: cfg.Diagnostics.Deprecated,
	})...)
	diags = append(diags, e.index.CycleDiagnostics()[snap.URI]...)
	diag.Sort(diags)

	e.pubMu.Lock()
	e.published[snap.URI] = published{version: snap.Version, diags: diags}
	e.pubMu.Unlock()

	if e.pub != nil {
		e.pub.PublishDiagnostics(ctx, snap.URI, snap.Version, diags)
	}
}

// macroHash fingerprints the macro table a file exports to its includers,
// imported macros included.
func macroHash(snap *store.Snapshot) uint64 {
	if snap.Preprocessed == nil {
		return 0
	}
	h := xxh3.New()
	for _, name := range snap.Preprocessed.Macros.Names() {
		m := snap.Preprocessed.Macros[name]
		h.WriteString(m.Signature())
		h.WriteString(strconv.Itoa(len(m.Params)))
		h.WriteString("\x00")
	}
	return h.Sum64()
}
