package reporter

import (
	"bufio"
	"context"
	"fmt"

	"github.com/yaklabco/pawnls/internal/ui/pretty"
	"github.com/yaklabco/pawnls/pkg/runner"
	"github.com/yaklabco/pawnls/pkg/source"
)

// TextReporter formats results as styled terminal output.
type TextReporter struct {
	opts   Options
	styles *pretty.Styles
	bw     *bufio.Writer
}

// NewTextReporter creates a new text reporter.
func NewTextReporter(opts Options) *TextReporter {
	colorEnabled := pretty.IsColorEnabled(opts.Color, opts.Writer)
	return &TextReporter{
		opts:   opts,
		styles: pretty.NewStyles(colorEnabled),
		bw:     bufio.NewWriterSize(opts.Writer, bufWriterSize),
	}
}

// Report implements Reporter.
func (r *TextReporter) Report(_ context.Context, result *runner.Result) (_ int, err error) {
	defer func() {
		if flushErr := r.bw.Flush(); err == nil {
			err = flushErr
		}
	}()

	if result == nil || len(result.Files) == 0 {
		if r.opts.ShowSummary {
			fmt.Fprintln(r.bw, r.styles.Success.Render("No files to check."))
		}
		return 0, nil
	}

	var total int
	for _, file := range result.Files {
		total += r.reportFile(file)
	}

	if r.opts.ShowSummary {
		fmt.Fprint(r.bw, r.styles.FormatSummaryOneLine(result.Stats))
	}
	return total, nil
}

func (r *TextReporter) reportFile(file runner.FileOutcome) int {
	path := r.opts.relPath(file.Path)
	if file.Error != nil {
		fmt.Fprintf(r.bw, "%s: %s\n",
			r.styles.FilePath.Render(path),
			r.styles.Error.Render(fmt.Sprintf("error: %v", file.Error)),
		)
		return 0
	}
	if len(file.Diagnostics) == 0 {
		return 0
	}

	var lines *source.LineIndex
	if r.opts.ShowContext && file.Text != "" {
		lines = source.NewLineIndex(file.Text)
	}

	if r.opts.GroupByFile {
		fmt.Fprintln(r.bw, r.styles.FormatFileHeader(path, len(file.Diagnostics)))
	}
	for i := range file.Diagnostics {
		d := &file.Diagnostics[i]
		var sourceLine string
		if lines != nil {
			sourceLine = lines.Line(d.Span.Range.Start.Line)
		}
		fmt.Fprint(r.bw, r.styles.FormatDiagnostic(path, d, r.opts.ShowContext, sourceLine))
	}
	if r.opts.GroupByFile {
		fmt.Fprintln(r.bw)
	}
	return len(file.Diagnostics)
}
