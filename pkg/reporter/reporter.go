// Package reporter writes the results of a batch check.
package reporter

import (
	"context"
	"fmt"

	"github.com/yaklabco/pawnls/pkg/analysis"
	"github.com/yaklabco/pawnls/pkg/runner"
)

// Reporter formats and writes check results.
type Reporter interface {
	// Report writes the result and returns the number of diagnostics it
	// reported.
	Report(ctx context.Context, result *runner.Result) (int, error)
}

// analyzed reports through a Renderer after summarizing the result.
type analyzed struct {
	renderer Renderer
	opts     analysis.Options
}

func (a *analyzed) Report(ctx context.Context, result *runner.Result) (int, error) {
	var files []analysis.FileDiagnostics
	if result != nil {
		files = result.FileDiagnostics()
	}
	report := analysis.Summarize(files, a.opts)
	if err := a.renderer.Render(ctx, report); err != nil {
		return 0, fmt.Errorf("render %T: %w", a.renderer, err)
	}
	return report.Totals.Issues, nil
}

// New creates the Reporter for opts.Format. Unset writers fall back to
// the process's standard streams.
func New(opts Options) (Reporter, error) {
	defaults := DefaultOptions()
	if opts.Writer == nil {
		opts.Writer = defaults.Writer
	}
	if opts.ErrorWriter == nil {
		opts.ErrorWriter = defaults.ErrorWriter
	}

	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	if format == FormatText {
		return NewTextReporter(opts), nil
	}

	aopts := analysis.DefaultOptions()
	aopts.WorkingDir = opts.WorkingDir
	return &analyzed{renderer: renderers[format](opts), opts: aopts}, nil
}
