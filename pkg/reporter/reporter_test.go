package reporter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/reporter"
	"github.com/yaklabco/pawnls/pkg/runner"
	"github.com/yaklabco/pawnls/pkg/source"
)

func diagnosticAt(line, col int, sev diag.Severity, src diag.Source, code, msg string) diag.Diagnostic {
	span := source.Span{Range: source.Range{
		Start: source.Position{Line: line, Column: col},
		End:   source.Position{Line: line, Column: col + 4},
	}}
	return diag.New(src, code, span, msg).WithSeverity(sev).Build()
}

func sampleResult() *runner.Result {
	unresolved := diagnosticAt(3, 2, diag.SeverityWarning, diag.SourceIndexer, "unresolved-identifier", "unresolved identifier 'Fooo'")
	unresolved.Suggestion = "did you mean 'Foo'?"

	return &runner.Result{
		Files: []runner.FileOutcome{
			{
				Path: "/ws/plugin.sp",
				Text: "#include \"lib\"\npublic void OnPluginStart() {\n\tFooo();\n}\n",
				Diagnostics: []diag.Diagnostic{
					unresolved,
					diagnosticAt(4, 1, diag.SeverityError, diag.SourceParser, "syntax", "expected ';'"),
				},
			},
			{Path: "/ws/lib.inc"},
			{Path: "/ws/broken.sp", Error: errors.New("permission denied")},
		},
		Stats: runner.Stats{
			FilesDiscovered:  3,
			FilesProcessed:   2,
			FilesErrored:     1,
			FilesWithIssues:  1,
			DiagnosticsTotal: 2,
			DiagnosticsBySeverity: map[diag.Severity]int{
				diag.SeverityWarning: 1,
				diag.SeverityError:   1,
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    reporter.Format
		wantErr bool
	}{
		{name: "empty defaults to text", input: "", want: reporter.FormatText},
		{name: "text", input: "text", want: reporter.FormatText},
		{name: "json", input: "json", want: reporter.FormatJSON},
		{name: "summary", input: "summary", want: reporter.FormatSummary},
		{name: "sarif", input: "sarif", want: reporter.FormatSARIF},
		{name: "case and space", input: " JSON ", want: reporter.FormatJSON},
		{name: "table is gone", input: "table", wantErr: true},
		{name: "unknown format", input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := reporter.ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.IsValid())
		})
	}
}

func TestFormats(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []reporter.Format{
		reporter.FormatText, reporter.FormatJSON, reporter.FormatSARIF, reporter.FormatSummary,
	}, reporter.Formats())
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		format  reporter.Format
		wantErr bool
	}{
		{name: "text reporter", format: reporter.FormatText},
		{name: "json reporter", format: reporter.FormatJSON},
		{name: "summary reporter", format: reporter.FormatSummary},
		{name: "sarif reporter", format: reporter.FormatSARIF},
		{name: "empty defaults to text", format: ""},
		{name: "unknown format", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			rep, err := reporter.New(reporter.Options{Writer: &buf, Format: tt.format})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, rep)
		})
	}
}

func TestReportersReturnIssueCount(t *testing.T) {
	t.Parallel()

	for _, format := range []reporter.Format{
		reporter.FormatText,
		reporter.FormatJSON,
		reporter.FormatSummary,
		reporter.FormatSARIF,
	} {
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			rep, err := reporter.New(reporter.Options{Writer: &buf, Format: format, Color: "never"})
			require.NoError(t, err)

			count, err := rep.Report(context.Background(), sampleResult())
			require.NoError(t, err)
			assert.Equal(t, 2, count)
			assert.NotEmpty(t, buf.String())
		})
	}
}

func TestTextReporter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	opts := reporter.DefaultOptions()
	opts.Writer = &buf
	opts.Color = "never"
	opts.WorkingDir = "/ws"

	rep, err := reporter.New(opts)
	require.NoError(t, err)
	_, err = rep.Report(context.Background(), sampleResult())
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "plugin.sp (2 issues)")
	assert.Contains(t, output, "plugin.sp:3:2")
	assert.Contains(t, output, "(indexer/unresolved-identifier)")
	assert.Contains(t, output, "Fooo();", "source line is shown")
	assert.Contains(t, output, "did you mean 'Foo'?")
	assert.Contains(t, output, "broken.sp: error: permission denied")
	assert.NotContains(t, output, "/ws/plugin.sp", "paths are relative to the working directory")
	assert.NotContains(t, output, "lib.inc", "clean files are not listed")
}

func TestTextReporter_Flat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rep, err := reporter.New(reporter.Options{Writer: &buf, Color: "never"})
	require.NoError(t, err)
	_, err = rep.Report(context.Background(), sampleResult())
	require.NoError(t, err)

	output := buf.String()
	assert.NotContains(t, output, "(2 issues)")
	assert.NotContains(t, output, "Fooo();", "context is off")
	assert.Equal(t, 2, strings.Count(output, "/ws/plugin.sp:"))
}

func TestTextReporter_NoFiles(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rep, err := reporter.New(reporter.Options{Writer: &buf, Color: "never", ShowSummary: true})
	require.NoError(t, err)

	count, err := rep.Report(context.Background(), &runner.Result{})
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Contains(t, buf.String(), "No files to check.")
}

func TestJSONReporter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rep, err := reporter.New(reporter.Options{Writer: &buf, Format: reporter.FormatJSON, WorkingDir: "/ws"})
	require.NoError(t, err)
	_, err = rep.Report(context.Background(), sampleResult())
	require.NoError(t, err)

	var out reporter.JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, 3, out.Summary.Files)
	assert.Equal(t, 1, out.Summary.FilesErrored)
	assert.Equal(t, 1, out.Summary.Errors)
	assert.Equal(t, 1, out.Summary.Warnings)
	require.Len(t, out.Diagnostics, 2)

	first := out.Diagnostics[0]
	assert.Equal(t, "plugin.sp", first.FilePath)
	assert.Equal(t, "unresolved-identifier", first.Code)
	assert.Equal(t, "indexer", first.Source)
	assert.Equal(t, 3, first.StartLine)
	assert.Equal(t, "did you mean 'Foo'?", first.Suggestion)
	assert.Len(t, out.Codes, 2)
}

func TestJSONReporter_EmptyListsAreArrays(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rep, err := reporter.New(reporter.Options{Writer: &buf, Format: reporter.FormatJSON, Compact: true})
	require.NoError(t, err)
	_, err = rep.Report(context.Background(), nil)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"diagnostics":[]`)
	assert.Contains(t, buf.String(), `"codes":[]`)
}

func TestSARIFReporter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rep, err := reporter.New(reporter.Options{
		Writer:      &buf,
		Format:      reporter.FormatSARIF,
		WorkingDir:  "/ws",
		ToolVersion: "1.2.3",
	})
	require.NoError(t, err)
	_, err = rep.Report(context.Background(), sampleResult())
	require.NoError(t, err)

	var out reporter.SARIFOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, "2.1.0", out.Version)
	require.Len(t, out.Runs, 1)
	run := out.Runs[0]
	assert.Equal(t, "pawnls", run.Tool.Driver.Name)
	assert.Equal(t, "1.2.3", run.Tool.Driver.Version)
	assert.Len(t, run.Tool.Driver.Rules, 2)
	require.Len(t, run.Results, 2)

	levels := map[string]string{}
	for _, res := range run.Results {
		levels[res.RuleID] = res.Level
		artifact := res.Locations[0].PhysicalLocation.ArtifactLocation
		assert.Equal(t, "plugin.sp", artifact.URI)
		assert.Equal(t, "SRCROOT", artifact.URIBaseID)
	}
	assert.Equal(t, "file:///ws/", run.BaseURIs["SRCROOT"].URI)
	assert.Equal(t, map[string]string{"unresolved-identifier": "warning", "syntax": "error"}, levels)
}
