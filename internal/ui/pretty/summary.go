package pretty

import (
	"fmt"
	"strings"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/runner"
)

func plural(n int, one, many string) string {
	word := many
	if n == 1 {
		word = one
	}
	return fmt.Sprintf("%d %s", n, word)
}

// FormatSummaryOneLine renders run statistics as one line, such as
// "5 issues (1 error, 4 warnings) in 3 files".
func (s *Styles) FormatSummaryOneLine(stats runner.Stats) string {
	var out string
	if stats.DiagnosticsTotal == 0 {
		out = s.Success.Render("No issues found") +
			s.Dim.Render(" ("+plural(stats.FilesProcessed, "file", "files")+" checked)")
	} else {
		severities := []struct {
			sev       diag.Severity
			one, many string
			render    func(...string) string
		}{
			{diag.SeverityError, "error", "errors", s.Error.Render},
			{diag.SeverityWarning, "warning", "warnings", s.Warning.Render},
			{diag.SeverityInfo, "info", "info", s.Info.Render},
			{diag.SeverityHint, "hint", "hints", s.Hint.Render},
		}
		var counts []string
		for _, sv := range severities {
			if n := stats.DiagnosticsBySeverity[sv.sev]; n > 0 {
				counts = append(counts, sv.render(plural(n, sv.one, sv.many)))
			}
		}
		out = plural(stats.DiagnosticsTotal, "issue", "issues")
		if len(counts) > 0 {
			out += " (" + strings.Join(counts, ", ") + ")"
		}
		out += " in " + plural(stats.FilesWithIssues, "file", "files")
	}

	if stats.FilesErrored > 0 {
		out += ", " + s.Failure.Render(fmt.Sprintf("%d unreadable", stats.FilesErrored))
	}
	return out + "\n"
}
