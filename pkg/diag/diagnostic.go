// Package diag defines the diagnostic record produced by every pipeline stage.
package diag

import (
	"cmp"
	"slices"

	"github.com/yaklabco/pawnls/pkg/source"
)

// Severity represents the importance of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityHint    Severity = "hint"
)

// Rank orders severities from most to least severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// Source names the pipeline stage that produced a diagnostic.
type Source string

const (
	SourcePreprocessor Source = "preprocessor"
	SourceParser       Source = "parser"
	SourceIndexer      Source = "indexer"
	SourceInternal     Source = "internal"
)

// Tag marks a diagnostic for special rendering by editors.
type Tag string

const (
	TagUnnecessary Tag = "unnecessary"
	TagDeprecated  Tag = "deprecated"
)

// Diagnostic describes a problem found in a source file.
type Diagnostic struct {
	// Span locates the problem in the file the diagnostic is published for.
	Span source.Span

	// Severity indicates the importance of the diagnostic.
	Severity Severity

	// Message is the human-readable description.
	Message string

	// Source is the pipeline stage that reported the problem.
	Source Source

	// Code is a stable identifier for the kind of problem (e.g. "unresolved-include").
	Code string

	// Tags carry rendering hints.
	Tags []Tag

	// Suggestion is an optional human-readable fix hint.
	Suggestion string

	// Related points at other locations involved in the problem, such as the
	// previous declaration for a redeclaration.
	Related []source.Span
}

// Builder helps construct Diagnostic values.
type Builder struct {
	diag Diagnostic
}

// New starts building an error diagnostic.
func New(src Source, code string, span source.Span, message string) *Builder {
	return &Builder{diag: Diagnostic{
		Span:     span,
		Severity: SeverityError,
		Message:  message,
		Source:   src,
		Code:     code,
	}}
}

// WithSeverity sets the severity.
func (b *Builder) WithSeverity(s Severity) *Builder {
	b.diag.Severity = s
	return b
}

// WithSuggestion sets a human-readable fix suggestion.
func (b *Builder) WithSuggestion(s string) *Builder {
	b.diag.Suggestion = s
	return b
}

// WithTag adds a rendering tag.
func (b *Builder) WithTag(tag Tag) *Builder {
	b.diag.Tags = append(b.diag.Tags, tag)
	return b
}

// WithRelated adds a related location.
func (b *Builder) WithRelated(span source.Span) *Builder {
	b.diag.Related = append(b.diag.Related, span)
	return b
}

// Build returns the constructed Diagnostic.
func (b *Builder) Build() Diagnostic {
	return b.diag
}

// Sort orders diagnostics by position, then severity, then message.
func Sort(diags []Diagnostic) {
	slices.SortStableFunc(diags, func(a, b Diagnostic) int {
		if c := cmp.Compare(a.Span.Start, b.Span.Start); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Severity.Rank(), b.Severity.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(a.Message, b.Message)
	})
}

// Count returns the number of diagnostics at each severity.
func Count(diags []Diagnostic) map[Severity]int {
	counts := make(map[Severity]int, 4)
	for _, d := range diags {
		counts[d.Severity]++
	}
	return counts
}
