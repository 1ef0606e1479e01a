// Package configloader resolves the configuration of a run: it discovers
// config files, layers them with environment variables and command-line
// flags, and validates the result.
package configloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yaklabco/pawnls/pkg/config"
)

// LoadOptions controls configuration loading behavior.
type LoadOptions struct {
	// WorkingDir is the directory to search from for project config.
	// Defaults to current working directory if empty.
	WorkingDir string

	// ExplicitPath is an explicit config file path (from --config flag).
	ExplicitPath string

	// IgnoreSystemConfig skips loading system-level configuration.
	IgnoreSystemConfig bool

	// IgnoreUserConfig skips loading user-level configuration.
	IgnoreUserConfig bool

	// IgnoreProjectConfig skips loading project-level configuration.
	IgnoreProjectConfig bool

	// IgnoreEnv skips loading environment variables.
	IgnoreEnv bool

	// IgnoreDetectedIncludes keeps include roots empty when nothing
	// configures them, instead of using a detected SourceMod include
	// directory.
	IgnoreDetectedIncludes bool

	// CLIConfig contains configuration from CLI flags.
	// These take highest precedence.
	CLIConfig *config.Config
}

// LoadResult contains the resolved configuration and metadata.
type LoadResult struct {
	// Config is the final merged configuration.
	Config *config.Config

	// Paths contains the discovered configuration file paths.
	Paths *ConfigPaths

	// LoadedFrom lists the files that were actually loaded (in order).
	LoadedFrom []string

	// Warnings contains non-fatal issues encountered during loading.
	Warnings []string
}

// Load resolves the final configuration by layering all sources.
// Precedence (highest to lowest):
//  1. CLI flags (opts.CLIConfig)
//  2. Environment variables (PAWNLS_*)
//  3. Explicit config file (opts.ExplicitPath)
//  4. Project config (.pawnls.yml upward search)
//  5. User config ($XDG_CONFIG_HOME/pawnls/config.yaml)
//  6. System config (/etc/pawnls/config.yaml)
//  7. Defaults
//
// Relative include roots and main paths in a file are relative to the
// file's directory.
func Load(ctx context.Context, opts LoadOptions) (*LoadResult, error) {
	workDir := opts.WorkingDir
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
	}

	paths, err := DiscoverPaths(ctx, workDir)
	if err != nil {
		return nil, fmt.Errorf("discover paths: %w", err)
	}
	paths.Explicit = opts.ExplicitPath
	result := &LoadResult{Paths: paths}

	layers := []struct {
		name string
		path string
		skip bool
	}{
		{"system", paths.System, opts.IgnoreSystemConfig},
		{"user", paths.User, opts.IgnoreUserConfig},
		{"project", paths.Project, opts.IgnoreProjectConfig},
		{"explicit", paths.Explicit, false},
	}

	cfg := config.NewConfig()
	for _, layer := range layers {
		if layer.skip || layer.path == "" {
			continue
		}
		next, err := loadConfigFile(layer.path, cfg)
		if err != nil {
			return nil, fmt.Errorf("load %s config: %w", layer.name, err)
		}
		cfg = next
		result.LoadedFrom = append(result.LoadedFrom, layer.path)
	}

	if !opts.IgnoreEnv {
		if err := LoadFromEnv(cfg); err != nil {
			return nil, fmt.Errorf("load environment: %w", err)
		}
	}

	if opts.CLIConfig != nil {
		cfg = Merge(cfg, opts.CLIConfig)
	}

	if len(cfg.IncludeRoots) == 0 && paths.Includes != "" && !opts.IgnoreDetectedIncludes {
		cfg.IncludeRoots = []string{paths.Includes}
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("no include_roots configured; using %s", paths.Includes))
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, warnings...)

	result.Config = cfg
	return result, nil
}

// loadConfigFile decodes the YAML file at path over a copy of base. Keys
// the file does not mention keep the value from base; defines are merged
// and lists are replaced.
func loadConfigFile(path string, base *config.Config) (*config.Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	cfg := base.Clone()
	cfg.IncludeRoots, cfg.MainPath = nil, ""

	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, decodeError(path, err)
	}

	dir := filepath.Dir(path)
	if cfg.IncludeRoots == nil {
		cfg.IncludeRoots = base.IncludeRoots
	} else {
		for i, root := range cfg.IncludeRoots {
			cfg.IncludeRoots[i] = resolvePath(dir, root)
		}
	}
	if cfg.MainPath == "" {
		cfg.MainPath = base.MainPath
	} else {
		cfg.MainPath = resolvePath(dir, cfg.MainPath)
	}
	if cfg.Defines == nil {
		cfg.Defines = make(map[string]string)
	}
	return cfg, nil
}

// decodeError turns a yaml.v3 error into a ValidationError carrying the
// file and, when yaml reports one, the line.
func decodeError(path string, err error) error {
	verr := &ValidationError{FilePath: path, Message: err.Error()}
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		verr.Message = typeErr.Errors[0]
		var line int
		if _, scanErr := fmt.Sscanf(typeErr.Errors[0], "line %d:", &line); scanErr == nil {
			verr.Line = line
		}
	}
	return verr
}

func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if len(path) > 1 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator) {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return filepath.Join(dir, path)
}
