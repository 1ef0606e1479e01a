package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// TemplateOptions controls configuration template generation.
type TemplateOptions struct {
	// Format is the output format: "yaml" or "json".
	Format string

	// IncludeRoots pre-fills include_roots, for example with a detected
	// compiler include directory.
	IncludeRoots []string
}

// GenerateTemplate creates a commented configuration file template.
func GenerateTemplate(opts TemplateOptions) ([]byte, error) {
	if opts.Format == "json" {
		return templateToJSON(opts)
	}

	var buf bytes.Buffer
	buf.WriteString(DefaultTemplateHeader())
	buf.WriteString(`

# Directories searched for #include <...>, in order.
`)
	if len(opts.IncludeRoots) == 0 {
		buf.WriteString("# include_roots:\n#   - /path/to/addons/sourcemod/scripting/include\n")
	} else {
		buf.WriteString("include_roots:\n")
		for _, root := range opts.IncludeRoots {
			fmt.Fprintf(&buf, "  - %q\n", root)
		}
	}

	buf.WriteString(`
# Macros defined for every file, like -D on the compiler command line.
# defines:
#   DEBUG: "1"
#   SQUARE(%1): "((%1) * (%1))"

# Main plugin file, relative to this config.
# main_path: scripting/plugin.sp

# File patterns to ignore (glob patterns)
# ignore:
#   - "scripting/include/**"

# Number of parallel workers (0 = auto)
# jobs: 0

# Nested macro expansion limit
# max_expansion_depth: 64

diagnostics:
  unresolved_identifiers: true
  disabled_code: true
  deprecated: true

# log_level: info
`)
	return buf.Bytes(), nil
}

func templateToJSON(opts TemplateOptions) ([]byte, error) {
	def := NewConfig()
	roots := opts.IncludeRoots
	if roots == nil {
		roots = []string{}
	}
	cfg := map[string]any{
		"include_roots":       roots,
		"defines":             map[string]string{},
		"extensions":          def.Extensions,
		"ignore":              []string{},
		"jobs":                0,
		"max_expansion_depth": def.MaxExpansionDepth,
		"diagnostics": map[string]bool{
			"unresolved_identifiers": def.Diagnostics.UnresolvedIdentifiers,
			"disabled_code":          def.Diagnostics.DisabledCode,
			"deprecated":             def.Diagnostics.Deprecated,
		},
		"log_level": def.LogLevel,
	}

	jsonBytes, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal JSON: %w", err)
	}
	return jsonBytes, nil
}

// DefinesFlag renders defines as compiler-style NAME=VALUE arguments, in
// name order.
func DefinesFlag(defines map[string]string) []string {
	out := make([]string, 0, len(defines))
	for name, value := range defines {
		if value == "" {
			out = append(out, name)
			continue
		}
		out = append(out, name+"="+value)
	}
	sort.Strings(out)
	return out
}

// ParseDefines parses NAME or NAME=VALUE arguments.
func ParseDefines(args []string) map[string]string {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, _ := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out[name] = value
	}
	return out
}

// DefaultTemplateHeader returns the default header for generated configs.
func DefaultTemplateHeader() string {
	return `# pawnls configuration
# See: https://github.com/yaklabco/pawnls`
}
