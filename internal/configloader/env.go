package configloader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/yaklabco/pawnls/pkg/config"
)

// envVarPrefix is the prefix for all pawnls environment variables.
const envVarPrefix = "PAWNLS_"

// envVar binds one environment variable, without prefix, to a config field.
type envVar struct {
	description string
	apply       func(cfg *config.Config, value string) error
}

// envVars maps environment variable names (without prefix) to the fields
// they set.
//
//nolint:gochecknoglobals // Read-only lookup table.
var envVars = map[string]envVar{
	"INCLUDE_ROOTS": {
		description: "Include directories, separated like PATH",
		apply: func(cfg *config.Config, value string) error {
			cfg.IncludeRoots = filepath.SplitList(value)
			return nil
		},
	},
	"DEFINES": {
		description: "Comma-separated NAME or NAME=VALUE macros",
		apply: func(cfg *config.Config, value string) error {
			for name, body := range config.ParseDefines(parseSliceValue(value)) {
				cfg.Defines[name] = body
			}
			return nil
		},
	},
	"EXTENSIONS": {
		description: "Comma-separated source file extensions",
		apply: func(cfg *config.Config, value string) error {
			cfg.Extensions = parseSliceValue(value)
			return nil
		},
	},
	"IGNORE": {
		description: "Comma-separated list of ignore patterns",
		apply: func(cfg *config.Config, value string) error {
			cfg.Ignore = parseSliceValue(value)
			return nil
		},
	},
	"JOBS": {
		description: "Number of parallel workers (0 = auto)",
		apply:       intField(func(cfg *config.Config, v int) { cfg.Jobs = v }),
	},
	"MAX_EXPANSION_DEPTH": {
		description: "Nested macro expansion limit",
		apply:       intField(func(cfg *config.Config, v int) { cfg.MaxExpansionDepth = v }),
	},
	"LOG_LEVEL": {
		description: "Log level: debug, info, warn or error",
		apply: func(cfg *config.Config, value string) error {
			cfg.LogLevel = value
			return nil
		},
	},
	"MAIN_PATH": {
		description: "Main plugin file",
		apply: func(cfg *config.Config, value string) error {
			cfg.MainPath = value
			return nil
		},
	},
	"FORMAT": {
		description: "Output format of check: text, json, summary or sarif",
		apply: func(cfg *config.Config, value string) error {
			cfg.Format = config.OutputFormat(value)
			return nil
		},
	},
	"UNRESOLVED_IDENTIFIERS": {
		description: "Report unresolved identifiers: true or false",
		apply:       boolField(func(cfg *config.Config, v bool) { cfg.Diagnostics.UnresolvedIdentifiers = v }),
	},
	"DISABLED_CODE": {
		description: "Mark code excluded by #if: true or false",
		apply:       boolField(func(cfg *config.Config, v bool) { cfg.Diagnostics.DisabledCode = v }),
	},
	"DEPRECATED": {
		description: "Mark uses of deprecated declarations: true or false",
		apply:       boolField(func(cfg *config.Config, v bool) { cfg.Diagnostics.Deprecated = v }),
	},
}

func intField(set func(*config.Config, int)) func(*config.Config, string) error {
	return func(cfg *config.Config, value string) error {
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer %q", value)
		}
		set(cfg, i)
		return nil
	}
}

func boolField(set func(*config.Config, bool)) func(*config.Config, string) error {
	return func(cfg *config.Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q (expected true/false/1/0)", value)
		}
		set(cfg, b)
		return nil
	}
}

// LoadFromEnv applies PAWNLS_* environment variable overrides to cfg.
func LoadFromEnv(cfg *config.Config) error {
	return loadFromEnv(cfg, os.LookupEnv)
}

func loadFromEnv(cfg *config.Config, lookup func(string) (string, bool)) error {
	if cfg == nil {
		return nil
	}
	if cfg.Defines == nil {
		cfg.Defines = make(map[string]string)
	}

	for _, suffix := range envVarNames() {
		name := envVarPrefix + suffix
		value, ok := lookup(name)
		if !ok || value == "" {
			continue
		}
		if err := envVars[suffix].apply(cfg, value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// parseSliceValue parses a comma-separated string into a slice.
// Each element is trimmed of whitespace.
func parseSliceValue(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func envVarNames() []string {
	names := make([]string, 0, len(envVars))
	for suffix := range envVars {
		names = append(names, suffix)
	}
	sort.Strings(names)
	return names
}

// ListEnvVars returns every supported environment variable with its
// description.
func ListEnvVars() map[string]string {
	out := make(map[string]string, len(envVars))
	for suffix, v := range envVars {
		out[envVarPrefix+suffix] = v.description
	}
	return out
}
