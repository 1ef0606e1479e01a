package diag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/source"
)

func TestBuilder(t *testing.T) {
	t.Parallel()

	span := source.Span{Start: 3, End: 7}
	got := diag.New(diag.SourceIndexer, "redeclared", span, "x redeclared").
		WithSeverity(diag.SeverityWarning).
		WithSuggestion("rename it").
		WithRelated(source.Span{Start: 0, End: 1}).
		Build()

	assert.Equal(t, diag.SeverityWarning, got.Severity)
	assert.Equal(t, diag.SourceIndexer, got.Source)
	assert.Equal(t, "redeclared", got.Code)
	assert.Equal(t, "rename it", got.Suggestion)
	assert.Len(t, got.Related, 1)
}

func TestSort(t *testing.T) {
	t.Parallel()

	diags := []diag.Diagnostic{
		{Span: source.Span{Start: 10}, Severity: diag.SeverityWarning, Message: "b"},
		{Span: source.Span{Start: 2}, Severity: diag.SeverityHint, Message: "c"},
		{Span: source.Span{Start: 10}, Severity: diag.SeverityError, Message: "a"},
	}
	diag.Sort(diags)

	assert.Equal(t, "c", diags[0].Message)
	assert.Equal(t, "a", diags[1].Message)
	assert.Equal(t, "b", diags[2].Message)
	assert.Equal(t, 1, diag.Count(diags)[diag.SeverityHint])
}
