package pretty_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yaklabco/pawnls/internal/ui/pretty"
	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/runner"
)

func TestFormatSummaryOneLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		stats    runner.Stats
		expected []string
	}{
		{
			name:     "no issues",
			stats:    runner.Stats{FilesProcessed: 4},
			expected: []string{"No issues found", "4 files checked"},
		},
		{
			name:     "no issues with unreadable file",
			stats:    runner.Stats{FilesProcessed: 1, FilesErrored: 1},
			expected: []string{"No issues found", "1 file checked", "1 unreadable"},
		},
		{
			name: "mixed severities",
			stats: runner.Stats{
				FilesProcessed:   3,
				FilesWithIssues:  2,
				DiagnosticsTotal: 5,
				DiagnosticsBySeverity: map[diag.Severity]int{
					diag.SeverityError:   1,
					diag.SeverityWarning: 3,
					diag.SeverityHint:    1,
				},
			},
			expected: []string{"5 issues", "1 error,", "3 warnings", "1 hint", "in 2 files"},
		},
		{
			name: "single issue",
			stats: runner.Stats{
				FilesProcessed:        1,
				FilesWithIssues:       1,
				DiagnosticsTotal:      1,
				DiagnosticsBySeverity: map[diag.Severity]int{diag.SeverityWarning: 1},
			},
			expected: []string{"1 issue (", "1 warning", "in 1 file\n"},
		},
	}

	styles := pretty.NewStyles(false)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := styles.FormatSummaryOneLine(tc.stats)
			for _, want := range tc.expected {
				assert.Contains(t, result, want)
			}
		})
	}
}
