package source

import "sort"

// LineInfo describes one line of a buffer.
type LineInfo struct {
	// StartOffset is the byte index of the first byte of the line.
	StartOffset int

	// NewlineStart is the byte index where the line terminator begins.
	// Equal to EndOffset for the last line when it has no terminator.
	NewlineStart int

	// EndOffset is the byte index just past the line terminator.
	EndOffset int
}

// BuildLines constructs line metadata from file content.
// It handles both LF (\n) and CRLF (\r\n) line endings.
func BuildLines(content string) []LineInfo {
	lines := make([]LineInfo, 0, 16)
	lineStart := 0

	for idx := range len(content) {
		if content[idx] != '\n' {
			continue
		}

		newlineStart := idx
		if idx > 0 && content[idx-1] == '\r' {
			newlineStart = idx - 1
		}

		lines = append(lines, LineInfo{
			StartOffset:  lineStart,
			NewlineStart: newlineStart,
			EndOffset:    idx + 1,
		})
		lineStart = idx + 1
	}

	// The last line may be empty or lack a terminator.
	lines = append(lines, LineInfo{
		StartOffset:  lineStart,
		NewlineStart: len(content),
		EndOffset:    len(content),
	})

	return lines
}

// LineIndex converts between byte offsets and line/column positions for one buffer.
type LineIndex struct {
	content string
	lines   []LineInfo
}

// NewLineIndex builds the index for content.
func NewLineIndex(content string) *LineIndex {
	return &LineIndex{content: content, lines: BuildLines(content)}
}

// Content returns the indexed buffer.
func (l *LineIndex) Content() string {
	return l.content
}

// LineCount returns the number of lines in the buffer.
func (l *LineIndex) LineCount() int {
	return len(l.lines)
}

// Position converts a byte offset to a 1-based line and byte column.
// Offsets past the end clamp to the end of the buffer.
func (l *LineIndex) Position(offset int) Position {
	if offset < 0 {
		return Position{}
	}
	if offset > len(l.content) {
		offset = len(l.content)
	}

	lineIdx := sort.Search(len(l.lines), func(i int) bool {
		return l.lines[i].EndOffset > offset
	})
	if lineIdx >= len(l.lines) {
		lineIdx = len(l.lines) - 1
	}

	return Position{Line: lineIdx + 1, Column: offset - l.lines[lineIdx].StartOffset + 1}
}

// Range converts a byte range into a line/column range.
func (l *LineIndex) Range(start, end int) Range {
	return Range{Start: l.Position(start), End: l.Position(end)}
}

// Offset converts a 1-based line and column into a byte offset.
// Returns (0, false) if the position is out of range.
func (l *LineIndex) Offset(pos Position) (int, bool) {
	if pos.Line < 1 || pos.Line > len(l.lines) || pos.Column < 1 {
		return 0, false
	}

	info := l.lines[pos.Line-1]
	offset := info.StartOffset + pos.Column - 1
	if offset > info.NewlineStart {
		return 0, false
	}

	return offset, true
}

// Line returns the text of a 1-based line, excluding the terminator.
func (l *LineIndex) Line(line int) string {
	if line < 1 || line > len(l.lines) {
		return ""
	}

	info := l.lines[line-1]
	return l.content[info.StartOffset:info.NewlineStart]
}
