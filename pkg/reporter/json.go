package reporter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/yaklabco/pawnls/pkg/analysis"
)

// JSONOutput is the top-level JSON structure.
type JSONOutput struct {
	Version     string                     `json:"version"`
	Diagnostics []analysis.DiagnosticEntry `json:"diagnostics"`
	Files       []analysis.FileAnalysis    `json:"files"`
	Codes       []analysis.CodeAnalysis    `json:"codes"`
	Summary     analysis.Totals            `json:"summary"`
}

// JSONRenderer formats a report as JSON.
type JSONRenderer struct {
	opts Options
}

// NewJSONRenderer creates a new JSON renderer.
func NewJSONRenderer(opts Options) *JSONRenderer {
	return &JSONRenderer{opts: opts}
}

// Render implements Renderer.
func (r *JSONRenderer) Render(_ context.Context, report *analysis.Report) error {
	bw := bufio.NewWriterSize(r.opts.Writer, bufWriterSize)

	output := JSONOutput{
		Version:     report.Version,
		Diagnostics: nonNil(report.Diagnostics),
		Files:       nonNil(report.ByFile),
		Codes:       nonNil(report.ByCode),
		Summary:     report.Totals,
	}

	encoder := json.NewEncoder(bw)
	if !r.opts.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(output); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return bw.Flush()
}

// nonNil keeps empty lists as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
