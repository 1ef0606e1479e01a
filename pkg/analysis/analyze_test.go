package analysis_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/pawnls/pkg/analysis"
	"github.com/yaklabco/pawnls/pkg/diag"
)

func diagnostic(code string, sev diag.Severity) diag.Diagnostic {
	return diag.Diagnostic{Code: code, Severity: sev, Source: diag.SourceParser, Message: code}
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	report := analysis.Summarize(nil, analysis.DefaultOptions())
	require.NotNil(t, report)
	assert.Equal(t, analysis.ReportVersion, report.Version)
	assert.Equal(t, 0, report.Totals.Issues)
	assert.Empty(t, report.ByFile)
	assert.Empty(t, report.ByCode)
}

func TestSummarizeCountsAndGroups(t *testing.T) {
	t.Parallel()

	files := []analysis.FileDiagnostics{
		{Path: "/ws/a.sp", Diagnostics: []diag.Diagnostic{
			diagnostic("syntax", diag.SeverityError),
			diagnostic("syntax", diag.SeverityError),
			diagnostic("unresolved-include", diag.SeverityError),
		}},
		{Path: "/ws/b.sp", Diagnostics: []diag.Diagnostic{
			diagnostic("unresolved-identifier", diag.SeverityWarning),
			diagnostic("deprecated", diag.SeverityHint),
		}},
		{Path: "/ws/c.sp"},
		{Path: "/ws/d.sp", Err: errors.New("permission denied")},
	}

	opts := analysis.DefaultOptions()
	opts.WorkingDir = "/ws"
	report := analysis.Summarize(files, opts)

	assert.Equal(t, analysis.Totals{
		Files: 4, FilesWithIssues: 2, FilesErrored: 1,
		Issues: 5, Errors: 3, Warnings: 1, Hints: 1,
	}, report.Totals)
	assert.Len(t, report.Diagnostics, 5)
	assert.Equal(t, "a.sp", report.Diagnostics[0].FilePath)

	require.Len(t, report.ByFile, 2)
	assert.Equal(t, "a.sp", report.ByFile[0].Path)
	assert.Equal(t, []string{"syntax", "unresolved-include"}, report.ByFile[0].Codes)

	require.Len(t, report.ByCode, 4)
	assert.Equal(t, "syntax", report.ByCode[0].Code)
	assert.Equal(t, 2, report.ByCode[0].Issues)
	assert.Equal(t, []string{"a.sp"}, report.ByCode[0].Files)
}

func TestSummarizeSortOrders(t *testing.T) {
	t.Parallel()

	files := []analysis.FileDiagnostics{
		{Path: "b.sp", Diagnostics: []diag.Diagnostic{diagnostic("x", diag.SeverityWarning), diagnostic("x", diag.SeverityWarning)}},
		{Path: "a.sp", Diagnostics: []diag.Diagnostic{diagnostic("x", diag.SeverityError)}},
	}

	tests := []struct {
		name     string
		sortBy   analysis.SortField
		desc     bool
		expected []string
	}{
		{name: "count descending", sortBy: analysis.SortByCount, desc: true, expected: []string{"b.sp", "a.sp"}},
		{name: "count ascending", sortBy: analysis.SortByCount, expected: []string{"a.sp", "b.sp"}},
		{name: "alpha", sortBy: analysis.SortByAlpha, desc: true, expected: []string{"a.sp", "b.sp"}},
		{name: "severity", sortBy: analysis.SortBySeverity, expected: []string{"a.sp", "b.sp"}},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			opts := analysis.Options{IncludeByFile: true, SortBy: testCase.sortBy, SortDesc: testCase.desc}
			report := analysis.Summarize(files, opts)
			var got []string
			for _, f := range report.ByFile {
				got = append(got, f.Path)
			}
			assert.Equal(t, testCase.expected, got)
		})
	}
}
