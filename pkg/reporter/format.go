package reporter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/yaklabco/pawnls/pkg/config"
)

// Format names an output format. It is the same type the configuration
// file's format key decodes to.
type Format = config.OutputFormat

const (
	FormatText    = config.FormatText
	FormatJSON    = config.FormatJSON
	FormatSummary = config.FormatSummary
	FormatSARIF   = config.FormatSARIF
)

// renderers builds the renderer of every format that works from an
// analysis.Report. Text output streams runner results directly.
//
//nolint:gochecknoglobals // Read-only lookup table.
var renderers = map[Format]func(Options) Renderer{
	FormatJSON:    func(o Options) Renderer { return NewJSONRenderer(o) },
	FormatSummary: func(o Options) Renderer { return NewSummaryRenderer(o) },
	FormatSARIF:   func(o Options) Renderer { return NewSARIFRenderer(o) },
}

// Formats lists the known formats, text first.
func Formats() []Format {
	out := []Format{FormatText}
	for f := range renderers {
		out = append(out, f)
	}
	slices.Sort(out[1:])
	return out
}

// ParseFormat parses a format name. An empty name means text.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if f == "" {
		return FormatText, nil
	}
	if !f.IsValid() {
		names := make([]string, 0, len(renderers)+1)
		for _, known := range Formats() {
			names = append(names, string(known))
		}
		return "", fmt.Errorf("unknown format %q; valid formats: %s", name, strings.Join(names, ", "))
	}
	return f, nil
}
