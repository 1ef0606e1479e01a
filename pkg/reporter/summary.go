package reporter

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/yaklabco/pawnls/internal/ui/pretty"
	"github.com/yaklabco/pawnls/pkg/analysis"
	"github.com/yaklabco/pawnls/pkg/config"
)

const (
	maxCodeLength     = 32
	maxFilePathLength = 64
)

// SummaryRenderer prints per-code and per-file tables and a total line.
type SummaryRenderer struct {
	opts   Options
	styles *pretty.Styles
	out    io.Writer
}

// NewSummaryRenderer creates a SummaryRenderer writing to opts.Writer.
func NewSummaryRenderer(opts Options) *SummaryRenderer {
	return &SummaryRenderer{
		opts:   opts,
		styles: pretty.NewStyles(pretty.IsColorEnabled(opts.Color, opts.Writer)),
		out:    opts.Writer,
	}
}

// Render implements Renderer.
func (r *SummaryRenderer) Render(_ context.Context, report *analysis.Report) error {
	if report.Totals.Issues == 0 {
		_, err := fmt.Fprintln(r.out, r.styles.Success.Render("No issues found"))
		return err
	}

	tables := []string{r.codeTable(report.ByCode), r.fileTable(report.ByFile)}
	if r.opts.SummaryOrder == config.SummaryOrderFiles {
		tables[0], tables[1] = tables[1], tables[0]
	}
	for _, t := range tables {
		if t != "" {
			fmt.Fprintln(r.out, t)
			fmt.Fprintln(r.out)
		}
	}
	_, err := fmt.Fprintln(r.out, r.totals(report.Totals))
	return err
}

// severityRow tells the table which style a data row gets.
type severityRow struct {
	cells    []string
	errors   int
	warnings int
}

func (r *SummaryRenderer) render(title string, headers []string, numeric int, rows []severityRow) string {
	if len(rows) == 0 {
		return ""
	}
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = row.cells
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.styles.TableBorder).
		Headers(headers...).
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if col >= numeric {
				style = style.Align(lipgloss.Right)
			}
			switch {
			case row == table.HeaderRow:
				return style.Inherit(r.styles.TableHeader)
			case col != 0:
				return style
			case rows[row].errors > 0:
				return style.Inherit(r.styles.TableErrorRow)
			case rows[row].warnings > 0:
				return style.Inherit(r.styles.TableWarnRow)
			}
			return style
		})

	return r.styles.Bold.Render(title) + "\n" + t.Render()
}

func (r *SummaryRenderer) codeTable(codes []analysis.CodeAnalysis) string {
	rows := make([]severityRow, 0, len(codes))
	for _, c := range codes {
		rows = append(rows, severityRow{
			cells:    []string{truncateEnd(c.Code, maxCodeLength), c.Source, itoa(c.Issues), itoa(c.Errors), itoa(c.Warnings)},
			errors:   c.Errors,
			warnings: c.Warnings,
		})
	}
	return r.render("Codes Summary", []string{"Code", "Source", "Count", "Errors", "Warnings"}, 2, rows)
}

func (r *SummaryRenderer) fileTable(files []analysis.FileAnalysis) string {
	rows := make([]severityRow, 0, len(files))
	for _, f := range files {
		rows = append(rows, severityRow{
			cells:    []string{truncateStart(f.Path, maxFilePathLength), itoa(f.Issues), itoa(f.Errors), itoa(f.Warnings)},
			errors:   f.Errors,
			warnings: f.Warnings,
		})
	}
	return r.render("Files Summary", []string{"File", "Count", "Errors", "Warnings"}, 1, rows)
}

func (r *SummaryRenderer) totals(t analysis.Totals) string {
	line := fmt.Sprintf("%d %s", t.Issues, plural(t.Issues, "issue", "issues"))

	var bySeverity []string
	if t.Errors > 0 {
		bySeverity = append(bySeverity, r.styles.Error.Render(fmt.Sprintf("%d %s", t.Errors, plural(t.Errors, "error", "errors"))))
	}
	if t.Warnings > 0 {
		bySeverity = append(bySeverity, r.styles.Warning.Render(fmt.Sprintf("%d %s", t.Warnings, plural(t.Warnings, "warning", "warnings"))))
	}
	if len(bySeverity) > 0 {
		line += " (" + strings.Join(bySeverity, ", ") + ")"
	}

	line += fmt.Sprintf(" in %d %s", t.FilesWithIssues, plural(t.FilesWithIssues, "file", "files"))
	return r.styles.Bold.Render("Total: ") + line
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// truncateEnd keeps the start of a diagnostic code.
func truncateEnd(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}

// truncateStart keeps the end of a path, where the file name is.
func truncateStart(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return "…" + s[len(s)-limit+1:]
}
