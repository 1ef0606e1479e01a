// Package pretty renders diagnostics and summaries for terminals with
// Lipgloss.
package pretty

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Styles holds the Lipgloss styles of check output. Without color every
// style renders text unchanged.
type Styles struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Hint    lipgloss.Style

	FilePath   lipgloss.Style
	Code       lipgloss.Style
	Message    lipgloss.Style
	Suggestion lipgloss.Style
	SourceLine lipgloss.Style
	Caret      lipgloss.Style

	Success lipgloss.Style
	Failure lipgloss.Style

	TableHeader   lipgloss.Style
	TableBorder   lipgloss.Style
	TableErrorRow lipgloss.Style
	TableWarnRow  lipgloss.Style

	Dim  lipgloss.Style
	Bold lipgloss.Style
}

// palette is the set of ANSI colors the styles draw from.
type palette struct {
	red, yellow, blue, green, grey, light lipgloss.Color
}

//nolint:gochecknoglobals // Read-only color table.
var ansi = palette{red: "9", yellow: "11", blue: "12", green: "10", grey: "8", light: "7"}

// NewStyles returns colored styles, or plain ones when colorEnabled is
// false.
func NewStyles(colorEnabled bool) *Styles {
	plain := lipgloss.NewStyle()
	if !colorEnabled {
		return &Styles{
			Error: plain, Warning: plain, Info: plain, Hint: plain,
			FilePath: plain, Code: plain, Message: plain, Suggestion: plain, SourceLine: plain, Caret: plain,
			Success: plain, Failure: plain,
			TableHeader: plain, TableBorder: plain, TableErrorRow: plain, TableWarnRow: plain,
			Dim: plain, Bold: plain,
		}
	}

	fg := func(c lipgloss.Color) lipgloss.Style { return plain.Foreground(c) }
	bold := plain.Bold(true)
	return &Styles{
		Error:   fg(ansi.red).Bold(true),
		Warning: fg(ansi.yellow).Bold(true),
		Info:    fg(ansi.blue).Bold(true),
		Hint:    fg(ansi.grey),

		FilePath:   bold,
		Code:       fg(ansi.grey),
		Message:    plain,
		Suggestion: fg(ansi.green).Italic(true),
		SourceLine: fg(ansi.light),
		Caret:      fg(ansi.red),

		Success: fg(ansi.green).Bold(true),
		Failure: fg(ansi.red).Bold(true),

		TableHeader:   fg(ansi.light).Bold(true),
		TableBorder:   fg(ansi.grey),
		TableErrorRow: fg(ansi.red),
		TableWarnRow:  fg(ansi.yellow),

		Dim:  fg(ansi.grey),
		Bold: bold,
	}
}

// IsColorEnabled resolves a color mode of always, never or auto for w.
// Auto colors terminals unless NO_COLOR is set; CLICOLOR_FORCE colors
// pipes too.
func IsColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if v := os.Getenv("CLICOLOR_FORCE"); v != "" && v != "0" {
		return true
	}
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
