package pretty_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/pawnls/internal/ui/pretty"
	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/source"
)

func diagnosticAt(line, col int, sev diag.Severity) *diag.Diagnostic {
	return &diag.Diagnostic{
		Code:     "unresolved-identifier",
		Source:   diag.SourceIndexer,
		Severity: sev,
		Message:  "unknown identifier 'Fooo'",
		Span: source.Span{Range: source.Range{
			Start: source.Position{Line: line, Column: col},
			End:   source.Position{Line: line, Column: col + 4},
		}},
	}
}

func TestFormatDiagnostic_Basic(t *testing.T) {
	t.Parallel()
	styles := pretty.NewStyles(false)

	result := styles.FormatDiagnostic("plugin.sp", diagnosticAt(10, 2, diag.SeverityWarning), false, "")

	assert.Contains(t, result, "plugin.sp:10:2")
	assert.Contains(t, result, "warning")
	assert.Contains(t, result, "unknown identifier 'Fooo'")
	assert.Contains(t, result, "(indexer/unresolved-identifier)")
}

func TestFormatDiagnostic_WithContext(t *testing.T) {
	t.Parallel()
	styles := pretty.NewStyles(false)

	result := styles.FormatDiagnostic("plugin.sp", diagnosticAt(5, 2, diag.SeverityError), true, "\tFooo();")

	lines := strings.Split(strings.TrimRight(result, "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[1], "    Fooo();")
	assert.Equal(t, strings.Index(lines[1], "F"), strings.Index(lines[2], "^"))
	assert.Contains(t, lines[2], "^~~~")
	assert.NotContains(t, lines[2], "^~~~~")
}

func TestFormatDiagnostic_WithSuggestion(t *testing.T) {
	t.Parallel()
	styles := pretty.NewStyles(false)

	d := diagnosticAt(1, 1, diag.SeverityWarning)
	d.Suggestion = "did you mean 'Foo'?"
	result := styles.FormatDiagnostic("plugin.sp", d, false, "")

	assert.Contains(t, result, "Suggestion:")
	assert.Contains(t, result, "did you mean 'Foo'?")
}

func TestFormatSeverity_AllLevels(t *testing.T) {
	t.Parallel()
	styles := pretty.NewStyles(false)

	tests := []struct {
		severity diag.Severity
		expected string
	}{
		{diag.SeverityError, "error"},
		{diag.SeverityWarning, "warning"},
		{diag.SeverityInfo, "info"},
		{diag.SeverityHint, "hint"},
		{diag.Severity("custom"), "custom"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, styles.FormatSeverity(tt.severity))
	}
}

func TestFormatDiagnostic_Related(t *testing.T) {
	t.Parallel()
	styles := pretty.NewStyles(false)

	d := diagnosticAt(9, 5, diag.SeverityError)
	d.Related = []source.Span{
		{Range: source.Range{Start: source.Position{Line: 3, Column: 5}}},
		{URI: source.FileURI("/ws/include/util.inc"), Range: source.Range{Start: source.Position{Line: 1, Column: 1}}},
	}
	result := styles.FormatDiagnostic("plugin.sp", d, false, "")

	assert.Contains(t, result, "See: plugin.sp:3:5")
	assert.Contains(t, result, "util.inc:1:1")
}

func TestFormatSourceContext(t *testing.T) {
	t.Parallel()
	styles := pretty.NewStyles(false)

	tests := []struct {
		name       string
		start, end int
		marker     string
	}{
		{name: "no column", start: 0, end: 0, marker: ""},
		{name: "caret only", start: 5, end: 0, marker: "    ^"},
		{name: "single byte span", start: 5, end: 6, marker: "    ^"},
		{name: "underlined", start: 1, end: 4, marker: "^~~"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lines := strings.Split(strings.TrimRight(styles.FormatSourceContext("int x;", tt.start, tt.end), "\n"), "\n")
			assert.Equal(t, "        int x;", lines[0])
			if tt.marker == "" {
				assert.Len(t, lines, 1)
				return
			}
			require.Len(t, lines, 2)
			assert.Equal(t, "        "+tt.marker, lines[1])
		})
	}
}

func TestFormatFileHeader(t *testing.T) {
	t.Parallel()
	styles := pretty.NewStyles(false)

	assert.Contains(t, styles.FormatFileHeader("a.sp", 3), "(3 issues)")
	assert.Contains(t, styles.FormatFileHeader("a.sp", 1), "(1 issue)")
	assert.NotContains(t, styles.FormatFileHeader("a.sp", 0), "issue")
}
