package edit

import (
	"strings"
	"unicode/utf8"
)

// OffsetAt converts a position to a byte offset of text. Columns past the
// end of a line clamp to the line end; a line past the last one is an
// error.
func OffsetAt(text string, pos Position, unit Unit) (int, error) {
	if pos.Line < 0 || pos.Column < 0 {
		return 0, ErrInvalidRange
	}
	start := 0
	for range pos.Line {
		i := strings.IndexByte(text[start:], '\n')
		if i < 0 {
			return 0, ErrInvalidRange
		}
		start += i + 1
	}
	end := len(text)
	if i := strings.IndexByte(text[start:], '\n'); i >= 0 {
		end = start + i
	}
	line := text[start:end]

	if unit == UnitBytes {
		return start + min(pos.Column, len(line)), nil
	}

	col := 0
	for i, r := range line {
		if col >= pos.Column {
			return start + i, nil
		}
		col += utf16Len(r)
	}
	return end, nil
}

// PositionAt converts a byte offset of text to a position.
func PositionAt(text string, offset int, unit Unit) Position {
	offset = max(0, min(offset, len(text)))
	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	line := strings.Count(text[:lineStart], "\n")

	if unit == UnitBytes {
		return Position{Line: line, Column: offset - lineStart}
	}
	col := 0
	for _, r := range text[lineStart:offset] {
		col += utf16Len(r)
	}
	return Position{Line: line, Column: col}
}

// ColumnOf converts a byte column within line to the given unit.
func ColumnOf(line string, byteCol int, unit Unit) int {
	byteCol = max(0, min(byteCol, len(line)))
	if unit == UnitBytes {
		return byteCol
	}
	col := 0
	for _, r := range line[:byteCol] {
		col += utf16Len(r)
	}
	return col
}

func utf16Len(r rune) int {
	if r == utf8.RuneError {
		return 1
	}
	if r >= 0x10000 {
		return 2
	}
	return 1
}
