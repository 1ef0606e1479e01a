package edit

import (
	"fmt"
	"sort"
	"strings"
)

// Apply applies editor changes in order. Each change's range refers to the
// text produced by the changes before it.
func Apply(text string, changes []Change, unit Unit) (string, error) {
	for i, c := range changes {
		if c.Range == nil {
			text = c.Text
			continue
		}
		start, err := OffsetAt(text, c.Range.Start, unit)
		if err != nil {
			return "", fmt.Errorf("change %d start %s: %w", i, c.Range, err)
		}
		end, err := OffsetAt(text, c.Range.End, unit)
		if err != nil {
			return "", fmt.Errorf("change %d end %s: %w", i, c.Range, err)
		}
		if end < start {
			return "", fmt.Errorf("change %d %s: %w", i, c.Range, ErrInvalidRange)
		}
		text = text[:start] + c.Text + text[end:]
	}
	return text, nil
}

// ApplyEdits applies non-overlapping byte edits to text. The edits are
// sorted first; overlapping or out-of-range edits are an error.
func ApplyEdits(text string, edits []TextEdit) (string, error) {
	if len(edits) == 0 {
		return text, nil
	}
	sorted := append([]TextEdit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartOffset != sorted[j].StartOffset {
			return sorted[i].StartOffset < sorted[j].StartOffset
		}
		return sorted[i].EndOffset < sorted[j].EndOffset
	})

	var out strings.Builder
	cursor := 0
	for _, e := range sorted {
		if e.StartOffset < cursor || e.EndOffset < e.StartOffset || e.EndOffset > len(text) {
			return "", fmt.Errorf("edit [%d:%d]: %w", e.StartOffset, e.EndOffset, ErrInvalidRange)
		}
		out.WriteString(text[cursor:e.StartOffset])
		out.WriteString(e.NewText)
		cursor = e.EndOffset
	}
	out.WriteString(text[cursor:])
	return out.String(), nil
}
