package runner

import (
	"github.com/yaklabco/pawnls/pkg/analysis"
	"github.com/yaklabco/pawnls/pkg/diag"
)

// FileOutcome is what a run found for one file.
type FileOutcome struct {
	Path        string
	Diagnostics []diag.Diagnostic

	// Text is the content the diagnostics were computed from.
	Text string

	// Error is set when the file could not be loaded.
	Error error
}

// Stats captures aggregate information about a run.
type Stats struct {
	FilesDiscovered int
	FilesProcessed  int
	FilesErrored    int
	FilesWithIssues int

	DiagnosticsTotal      int
	DiagnosticsBySeverity map[diag.Severity]int
}

// Result is the outcome of a run.
type Result struct {
	// Files is ordered by path.
	Files []FileOutcome
	Stats Stats
}

// HasFailures reports whether any error diagnostic was found.
func (r *Result) HasFailures() bool {
	if r == nil {
		return false
	}
	return r.Stats.DiagnosticsBySeverity[diag.SeverityError] > 0
}

// HasIssues reports whether any diagnostic was found.
func (r *Result) HasIssues() bool {
	if r == nil {
		return false
	}
	return r.Stats.DiagnosticsTotal > 0
}

// FileDiagnostics converts the outcomes for analysis.Summarize.
func (r *Result) FileDiagnostics() []analysis.FileDiagnostics {
	out := make([]analysis.FileDiagnostics, 0, len(r.Files))
	for _, f := range r.Files {
		out = append(out, analysis.FileDiagnostics{
			Path:        f.Path,
			Diagnostics: f.Diagnostics,
			Err:         f.Error,
		})
	}
	return out
}

func (r *Result) accumulate(outcome FileOutcome) {
	r.Files = append(r.Files, outcome)

	if outcome.Error != nil {
		r.Stats.FilesErrored++
		return
	}
	r.Stats.FilesProcessed++
	if len(outcome.Diagnostics) > 0 {
		r.Stats.FilesWithIssues++
	}
	r.Stats.DiagnosticsTotal += len(outcome.Diagnostics)
	for _, d := range outcome.Diagnostics {
		r.Stats.DiagnosticsBySeverity[d.Severity]++
	}
}
