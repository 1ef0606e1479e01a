// Package edit applies editor content changes to document text and finds
// the region two versions of a text differ in.
package edit

import (
	"errors"
	"fmt"
)

// ErrInvalidRange indicates a change whose range does not fit the text.
var ErrInvalidRange = errors.New("invalid range")

// Unit is the unit of a Position's column.
type Unit int

const (
	// UnitUTF16 counts UTF-16 code units, the default of the language
	// server protocol.
	UnitUTF16 Unit = iota

	// UnitBytes counts bytes.
	UnitBytes
)

// Position is a zero-based line and column.
type Position struct {
	Line   int
	Column int
}

// Range is a half-open range between two positions.
type Range struct {
	Start Position
	End   Position
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Start.Line, r.Start.Column, r.End.Line, r.End.Column)
}

// Change is one content change from an editor. A nil Range replaces the
// whole text.
type Change struct {
	Range *Range
	Text  string
}

// Full returns a change replacing the whole text.
func Full(text string) Change {
	return Change{Text: text}
}

// TextEdit replaces the bytes [StartOffset, EndOffset) with NewText.
type TextEdit struct {
	// StartOffset is the byte index where the edit begins (inclusive).
	StartOffset int

	// EndOffset is the byte index where the edit ends (exclusive).
	EndOffset int

	// NewText is the replacement text.
	NewText string
}

// Region is the part of a text an edit touched: [Start, OldEnd) of the
// old text became [Start, NewEnd) of the new one.
type Region struct {
	Start  int
	OldEnd int
	NewEnd int
}

// Empty reports whether the texts were identical.
func (r Region) Empty() bool {
	return r.Start == r.OldEnd && r.Start == r.NewEnd
}

// Delta is the change in length.
func (r Region) Delta() int {
	return r.NewEnd - r.OldEnd
}
