package configloader

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/gobwas/glob"
	"github.com/samber/lo"

	"github.com/yaklabco/pawnls/pkg/config"
)

// ValidationError is one invalid configuration value. FilePath and Line
// are set when the value came from a file and yaml reported a line.
type ValidationError struct {
	Field    string
	Value    any
	Message  string
	FilePath string
	Line     int
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	switch {
	case e.FilePath != "" && e.Line > 0:
		fmt.Fprintf(&b, "%s:%d: ", e.FilePath, e.Line)
	case e.FilePath != "":
		b.WriteString(e.FilePath + ": ")
	}
	if e.Field != "" {
		b.WriteString(e.Field + ": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

//nolint:gochecknoglobals // Read-only lookup table.
var logLevels = []string{"debug", "info", "warn", "warning", "error"}

// validator collects problems; failures reject the configuration and
// warnings only get reported.
type validator struct {
	errs     []error
	warnings []string
}

func (v *validator) fail(field string, value any, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) warn(field string, format string, args ...any) {
	v.warnings = append(v.warnings, (&ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}).Error())
}

// Validate checks cfg. The error joins one *ValidationError per invalid
// value. Missing include roots and main file are only warnings: the
// workspace still loads and the includes are reported as unresolved.
func Validate(cfg *config.Config) ([]string, error) {
	if cfg == nil {
		return nil, nil
	}
	v := &validator{}

	if cfg.Format != "" && !cfg.Format.IsValid() {
		v.fail("format", cfg.Format, "invalid format %q; must be one of: text, json, summary, sarif", cfg.Format)
	}
	if cfg.SummaryOrder != "" && !cfg.SummaryOrder.IsValid() {
		v.fail("summary_order", cfg.SummaryOrder, "invalid summary order %q; must be one of: codes, files", cfg.SummaryOrder)
	}
	if cfg.Jobs < 0 {
		v.fail("jobs", cfg.Jobs, "jobs must be >= 0 (0 means auto)")
	}
	if cfg.MaxExpansionDepth < 1 {
		v.fail("max_expansion_depth", cfg.MaxExpansionDepth, "max_expansion_depth must be >= 1")
	}
	if cfg.LogLevel != "" && !slices.Contains(logLevels, strings.ToLower(cfg.LogLevel)) {
		v.fail("log_level", cfg.LogLevel, "invalid log level %q; must be one of: debug, info, warn, error", cfg.LogLevel)
	}

	if len(cfg.Extensions) == 0 {
		v.fail("extensions", nil, "at least one extension is required")
	}
	for i, ext := range cfg.Extensions {
		if len(ext) < 2 || ext[0] != '.' {
			v.fail(fmt.Sprintf("extensions[%d]", i), ext, "extension %q must start with a dot", ext)
		}
	}

	for _, name := range lo.Keys(cfg.Defines) {
		if !isMacroName(name) {
			v.fail("defines."+name, name, "invalid macro name %q", name)
		}
	}

	// Patterns must compile the way file discovery compiles them.
	for i, pattern := range cfg.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			v.fail(fmt.Sprintf("ignore[%d]", i), pattern, "invalid glob pattern: %v", err)
		}
	}

	for i, root := range cfg.IncludeRoots {
		if !dirExists(root) {
			v.warn(fmt.Sprintf("include_roots[%d]", i), "include directory %s does not exist", root)
		}
	}
	if cfg.MainPath != "" && filepath.IsAbs(cfg.MainPath) && !fileExists(cfg.MainPath) {
		v.warn("main_path", "main file %s does not exist", cfg.MainPath)
	}

	slices.SortFunc(v.errs, func(a, b error) int { return strings.Compare(a.Error(), b.Error()) })
	return v.warnings, errors.Join(v.errs...)
}

// isMacroName accepts an identifier, optionally followed by a parameter
// list such as F(%1,%2).
func isMacroName(name string) bool {
	ident, params, hasParams := strings.Cut(name, "(")
	if hasParams && !strings.HasSuffix(params, ")") {
		return false
	}
	if ident == "" {
		return false
	}
	for i, r := range ident {
		switch {
		case r == '_', r == '@', unicode.IsLetter(r):
		case unicode.IsDigit(r) && i > 0:
		default:
			return false
		}
	}
	return true
}
