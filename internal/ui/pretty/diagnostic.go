package pretty

import (
	"fmt"
	"strings"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/source"
)

// tabWidth matches lipgloss, which renders tabs as four spaces.
const tabWidth = 4

const contextIndent = "        "

// FormatDiagnostic renders one diagnostic of the file at path. sourceLine
// is the text of the line the diagnostic starts on; it is shown with a
// marker when showContext is set.
func (s *Styles) FormatDiagnostic(path string, d *diag.Diagnostic, showContext bool, sourceLine string) string {
	var b strings.Builder

	rng := d.Span.Range
	code := d.Code
	if d.Source != "" {
		code = string(d.Source) + "/" + code
	}
	fmt.Fprintf(&b, "  %s:%d:%d  %s  %s  %s\n",
		s.FilePath.Render(path), rng.Start.Line, rng.Start.Column,
		s.FormatSeverity(d.Severity),
		s.Message.Render(d.Message),
		s.Code.Render("("+code+")"),
	)

	if showContext && sourceLine != "" {
		end := 0
		if rng.End.Line == rng.Start.Line {
			end = rng.End.Column
		}
		b.WriteString(s.FormatSourceContext(sourceLine, rng.Start.Column, end))
	}
	if d.Suggestion != "" {
		b.WriteString("    " + s.Dim.Render("Suggestion:") + " " + s.Suggestion.Render(d.Suggestion) + "\n")
	}
	for _, rel := range d.Related {
		where := path
		if rel.URI != "" && rel.URI != d.Span.URI {
			where = source.Path(rel.URI)
		}
		fmt.Fprintf(&b, "    %s %s:%d:%d\n", s.Dim.Render("See:"), s.FilePath.Render(where), rel.Range.Start.Line, rel.Range.Start.Column)
	}
	return b.String()
}

// FormatSeverity returns the styled name of sev.
func (s *Styles) FormatSeverity(sev diag.Severity) string {
	switch sev {
	case diag.SeverityError:
		return s.Error.Render("error")
	case diag.SeverityWarning:
		return s.Warning.Render("warning")
	case diag.SeverityInfo:
		return s.Info.Render("info")
	case diag.SeverityHint:
		return s.Hint.Render("hint")
	default:
		return string(sev)
	}
}

// FormatSourceContext renders line with a caret under the 1-based byte
// column start, extended with tildes up to end when end lies past it. A
// start of zero omits the marker.
func (s *Styles) FormatSourceContext(line string, start, end int) string {
	expanded := strings.ReplaceAll(line, "\t", strings.Repeat(" ", tabWidth))
	out := contextIndent + s.SourceLine.Render(expanded) + "\n"
	if start <= 0 {
		return out
	}

	pad := displayWidth(line, start-1)
	marker := "^"
	if width := displayWidth(line, end-1) - pad; end > start && width > 1 {
		marker += strings.Repeat("~", width-1)
	}
	return out + contextIndent + strings.Repeat(" ", pad) + s.Caret.Render(marker) + "\n"
}

// displayWidth is the rendered width of the first n bytes of line.
func displayWidth(line string, n int) int {
	width := 0
	for i := 0; i < n && i < len(line); i++ {
		if line[i] == '\t' {
			width += tabWidth
		} else {
			width++
		}
	}
	return width
}

// FormatFileHeader renders the header above a file's grouped diagnostics.
func (s *Styles) FormatFileHeader(path string, issues int) string {
	header := s.FilePath.Render(path)
	if issues > 0 {
		header += s.Dim.Render(" (" + plural(issues, "issue", "issues") + ")")
	}
	return header
}
