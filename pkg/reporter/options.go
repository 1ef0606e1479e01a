package reporter

import (
	"io"
	"os"

	"github.com/yaklabco/pawnls/pkg/config"
)

const bufWriterSize = 64 << 10

// Options configures a Reporter.
type Options struct {
	Writer      io.Writer
	ErrorWriter io.Writer
	Format      Format

	// Color is auto, always or never.
	Color string

	// ShowContext prints the source line under each text diagnostic.
	ShowContext bool

	// ShowSummary ends text output with a one-line count.
	ShowSummary bool

	// GroupByFile prints a header per file in text output.
	GroupByFile bool

	// Compact minifies JSON and SARIF.
	Compact bool

	SummaryOrder config.SummaryOrder

	// WorkingDir makes reported paths relative. Empty keeps them absolute.
	WorkingDir string

	// ToolVersion is recorded in SARIF output.
	ToolVersion string
}

// DefaultOptions returns the options of an interactive check.
func DefaultOptions() Options {
	return Options{
		Writer:       os.Stdout,
		ErrorWriter:  os.Stderr,
		Format:       FormatText,
		Color:        "auto",
		ShowContext:  true,
		ShowSummary:  true,
		GroupByFile:  true,
		SummaryOrder: config.SummaryOrderCodes,
	}
}

func (o Options) relPath(path string) string {
	return relativeTo(o.WorkingDir, path)
}
