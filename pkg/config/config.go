// Package config defines core configuration types for pawnls.
// These types are pure data structures with no dependency on how they are loaded.
package config

import (
	"runtime"

	"github.com/yaklabco/pawnls/pkg/preproc"
)

// OutputFormat specifies the output format of the check command.
type OutputFormat string

const (
	FormatText    OutputFormat = "text"
	FormatJSON    OutputFormat = "json"
	FormatSummary OutputFormat = "summary"
	FormatSARIF   OutputFormat = "sarif"
)

// IsValid returns true if the format is known.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatText, FormatJSON, FormatSummary, FormatSARIF:
		return true
	default:
		return false
	}
}

// SummaryOrder controls the order of tables in summary output.
type SummaryOrder string

const (
	// SummaryOrderCodes shows the diagnostic codes table first (default).
	SummaryOrderCodes SummaryOrder = "codes"
	// SummaryOrderFiles shows files table first.
	SummaryOrderFiles SummaryOrder = "files"
)

// IsValid returns true if the summary order is valid.
func (s SummaryOrder) IsValid() bool {
	switch s {
	case SummaryOrderCodes, SummaryOrderFiles:
		return true
	default:
		return false
	}
}

// DefaultExtensions lists the file extensions treated as SourcePawn.
var DefaultExtensions = []string{".sp", ".inc"}

// DefaultMaxExpansionDepth bounds nested macro expansion.
const DefaultMaxExpansionDepth = preproc.DefaultMaxExpansionDepth

// DiagnosticsConfig toggles the optional checks.
type DiagnosticsConfig struct {
	// UnresolvedIdentifiers reports names that resolve to nothing.
	UnresolvedIdentifiers bool `mapstructure:"unresolved_identifiers" yaml:"unresolved_identifiers"`

	// DisabledCode adds a hint for code excluded by #if.
	DisabledCode bool `mapstructure:"disabled_code" yaml:"disabled_code"`

	// Deprecated marks uses of deprecated declarations.
	Deprecated bool `mapstructure:"deprecated" yaml:"deprecated"`
}

// Config is the root configuration structure for pawnls.
type Config struct {
	// IncludeRoots are searched in order for #include <...> targets,
	// typically the compiler's include directory.
	IncludeRoots []string `mapstructure:"include_roots" yaml:"include_roots"`

	// Defines seeds every file's macro table, as -D flags to the compiler.
	// A value may carry a parameter list: "F(%1)": "%1 * 2".
	Defines map[string]string `mapstructure:"defines" yaml:"defines"`

	// Extensions lists the file extensions of source files.
	Extensions []string `mapstructure:"extensions" yaml:"extensions"`

	// Ignore contains glob patterns for files to ignore.
	Ignore []string `mapstructure:"ignore" yaml:"ignore"`

	// Jobs specifies the number of parallel workers. 0 means NumCPU.
	Jobs int `mapstructure:"jobs" yaml:"jobs"`

	// MaxExpansionDepth bounds nested macro expansion.
	MaxExpansionDepth int `mapstructure:"max_expansion_depth" yaml:"max_expansion_depth"`

	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// MainPath names the plugin's main file. When set, files outside its
	// include closure are still indexed but diagnostics focus on it.
	MainPath string `mapstructure:"main_path" yaml:"main_path"`

	// CLI-level options (not persisted to config files).

	// Format specifies the output format.
	Format OutputFormat `yaml:"-"`

	// SummaryOrder orders the summary tables.
	SummaryOrder SummaryOrder `yaml:"-"`
}

// NewConfig returns a Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Defines:           make(map[string]string),
		Extensions:        append([]string(nil), DefaultExtensions...),
		MaxExpansionDepth: DefaultMaxExpansionDepth,
		Diagnostics: DiagnosticsConfig{
			UnresolvedIdentifiers: true,
			DisabledCode:          true,
			Deprecated:            true,
		},
		LogLevel:     "info",
		Format:       FormatText,
		SummaryOrder: SummaryOrderCodes,
	}
}

// Workers returns the effective worker count.
func (c *Config) Workers() int {
	if c.Jobs > 0 {
		return c.Jobs
	}
	return runtime.NumCPU()
}
