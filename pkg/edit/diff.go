package edit

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Changed returns the smallest region covering every difference between
// oldText and newText.
func Changed(oldText, newText string) Region {
	if oldText == newText {
		return Region{Start: len(oldText), OldEnd: len(oldText), NewEnd: len(newText)}
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)

	region := Region{Start: -1}
	oldPos, newPos := 0, 0
	for _, d := range diffs {
		n := len(d.Text)
		if d.Type != diffmatchpatch.DiffEqual && region.Start < 0 {
			region.Start = oldPos
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldPos += n
			newPos += n
		case diffmatchpatch.DiffDelete:
			oldPos += n
			region.OldEnd, region.NewEnd = oldPos, newPos
		case diffmatchpatch.DiffInsert:
			newPos += n
			region.OldEnd, region.NewEnd = oldPos, newPos
		}
	}
	return region
}

// Diff is a line diff between two texts.
type Diff struct {
	Path      string
	Hunks     []Hunk
	Additions int
	Deletions int
}

// Hunk is a group of nearby changed lines with context.
type Hunk struct {
	// OldStart and NewStart are 1-based line numbers.
	OldStart, OldCount int
	NewStart, NewCount int
	Lines              []Line
}

// LineKind tells context, added and removed lines apart.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdd
	LineRemove
)

// Line is one line of a hunk.
type Line struct {
	Kind    LineKind
	Content string
}

const contextLines = 3

// LineDiff computes a line diff between original and modified. It returns
// nil when they are equal.
func LineDiff(path, original, modified string) *Diff {
	if original == modified {
		return nil
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(original, modified)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var ops []Line
	for _, d := range diffs {
		kind := LineContext
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			kind = LineAdd
		case diffmatchpatch.DiffDelete:
			kind = LineRemove
		}
		for _, text := range splitLines(d.Text) {
			ops = append(ops, Line{Kind: kind, Content: text})
		}
	}

	diff := &Diff{Path: path, Hunks: hunks(ops)}
	for _, op := range ops {
		switch op.Kind {
		case LineAdd:
			diff.Additions++
		case LineRemove:
			diff.Deletions++
		}
	}
	return diff
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}

// hunks groups changed lines that are at most 2*contextLines apart.
func hunks(ops []Line) []Hunk {
	var out []Hunk
	for i := 0; i < len(ops); {
		if ops[i].Kind == LineContext {
			i++
			continue
		}
		end := i
		for j := i; j < len(ops); j++ {
			if ops[j].Kind != LineContext {
				end = j + 1
			} else if j-end >= 2*contextLines {
				break
			}
		}
		out = append(out, hunk(ops, max(0, i-contextLines), min(len(ops), end+contextLines)))
		i = end + contextLines
	}
	return out
}

func hunk(ops []Line, start, end int) Hunk {
	h := Hunk{OldStart: 1, NewStart: 1}
	for _, op := range ops[:start] {
		if op.Kind != LineAdd {
			h.OldStart++
		}
		if op.Kind != LineRemove {
			h.NewStart++
		}
	}
	for _, op := range ops[start:end] {
		h.Lines = append(h.Lines, op)
		if op.Kind != LineAdd {
			h.OldCount++
		}
		if op.Kind != LineRemove {
			h.NewCount++
		}
	}
	return h
}

// String renders the diff in unified format.
func (d *Diff) String() string {
	if d == nil || len(d.Hunks) == 0 {
		return ""
	}
	path := strings.TrimPrefix(d.Path, "/")

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", path, path)
	for _, h := range d.Hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, line := range h.Lines {
			prefix := " "
			switch line.Kind {
			case LineAdd:
				prefix = "+"
			case LineRemove:
				prefix = "-"
			}
			sb.WriteString(prefix)
			sb.WriteString(line.Content)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
