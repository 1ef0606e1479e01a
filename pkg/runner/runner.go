package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/engine"
	"github.com/yaklabco/pawnls/pkg/source"
)

// Runner checks discovered files with an engine.
type Runner struct {
	Engine *engine.Engine
}

// New creates a Runner over eng.
func New(eng *engine.Engine) *Runner {
	return &Runner{Engine: eng}
}

// Run discovers files, loads them into the engine, waits until every file
// and its includes are analyzed and collects the diagnostics. When the
// configuration names a main file, only the main file and the files it
// includes are reported.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	files, err := Discover(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Files: make([]FileOutcome, 0, len(files)),
		Stats: Stats{
			FilesDiscovered:       len(files),
			DiagnosticsBySeverity: make(map[diag.Severity]int),
		},
	}
	if len(files) == 0 {
		return result, nil
	}

	loadErrs := make(map[string]error)
	if err := r.Engine.LoadFiles(ctx, files); err != nil {
		if !collectLoadErrors(err, loadErrs) {
			return nil, err
		}
	}
	if err := r.Engine.WaitIdle(ctx); err != nil {
		return nil, fmt.Errorf("run cancelled: %w", err)
	}

	focus := r.focus(opts)
	for _, path := range files {
		u := source.FileURI(path)
		if focus != nil && !focus[u] {
			continue
		}
		outcome := FileOutcome{Path: path}
		if lerr, ok := loadErrs[path]; ok {
			outcome.Error = lerr
		} else {
			outcome.Diagnostics, _, outcome.Error = r.Engine.Diagnostics(ctx, u)
			outcome.Text, _ = r.Engine.Text(u)
		}
		result.accumulate(outcome)
	}

	if ctx.Err() != nil {
		return result, fmt.Errorf("run cancelled: %w", ctx.Err())
	}
	return result, nil
}

// collectLoadErrors indexes the per-file errors of LoadFiles by path. It
// returns false when err holds anything else.
func collectLoadErrors(err error, into map[string]error) bool {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	for _, e := range errs {
		var lerr *engine.LoadError
		if !errors.As(e, &lerr) {
			return false
		}
		into[lerr.Path] = lerr
	}
	return true
}

// focus returns the files reported when a main file is configured.
func (r *Runner) focus(opts Options) map[uri.URI]bool {
	if opts.Config == nil || opts.Config.MainPath == "" {
		return nil
	}
	main := opts.Config.MainPath
	if !filepath.IsAbs(main) {
		if wd, err := resolveWorkDir(opts.WorkingDir); err == nil {
			main = filepath.Join(wd, main)
		}
	}
	u := source.FileURI(main)
	out := map[uri.URI]bool{u: true}
	for _, f := range r.Engine.Index().IncludeClosure(u) {
		out[f] = true
	}
	return out
}
