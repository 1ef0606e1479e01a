// Package source holds the position vocabulary shared by every stage of the
// pipeline: byte spans, line/column positions and the URIs that own them.
package source

import (
	"fmt"

	"go.lsp.dev/uri"
)

// Position is a 1-based line and byte column.
type Position struct {
	Line   int
	Column int
}

// IsValid returns true if both components are positive.
func (p Position) IsValid() bool {
	return p.Line > 0 && p.Column > 0
}

// Before reports whether p sorts strictly before other.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range is a line/column range, end exclusive.
type Range struct {
	Start Position
	End   Position
}

// Contains reports whether pos lies in [Start, End]. The end is inclusive so a
// cursor placed right after an identifier still hits it.
func (r Range) Contains(pos Position) bool {
	return !pos.Before(r.Start) && !r.End.Before(pos)
}

// Span is a half-open byte range inside one buffer, with its line/column range.
type Span struct {
	URI   uri.URI
	Start int
	End   int
	Range Range
}

// NewSpan builds a span using idx to fill in the line/column range.
func NewSpan(u uri.URI, idx *LineIndex, start, end int) Span {
	return Span{URI: u, Start: start, End: end, Range: idx.Range(start, end)}
}

// Len returns the length of the span in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// IsZero reports whether the span is unset.
func (s Span) IsZero() bool {
	return s.URI == "" && s.Start == 0 && s.End == 0
}

// ContainsOffset reports whether offset is inside the span, end inclusive.
func (s Span) ContainsOffset(offset int) bool {
	return offset >= s.Start && offset <= s.End
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%s", s.URI.Filename(), s.Range.Start)
}
