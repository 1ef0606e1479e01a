package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yaklabco/pawnls/internal/configloader"
	"github.com/yaklabco/pawnls/internal/logging"
	"github.com/yaklabco/pawnls/pkg/config"
)

// ErrConfig wraps configuration failures so they map to ExitConfigError.
var ErrConfig = errors.New("failed to load configuration")

// cliConfig returns the configuration layer given by global flags.
// Relative include directories are resolved against workDir.
func (f *globalFlags) cliConfig(workDir string) *config.Config {
	cfg := &config.Config{Jobs: f.jobs}
	for _, dir := range f.includes {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(workDir, dir)
		}
		cfg.IncludeRoots = append(cfg.IncludeRoots, dir)
	}
	if len(f.defines) > 0 {
		cfg.Defines = config.ParseDefines(f.defines)
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg
}

// loadOptions returns the loader settings for a command run from workDir.
func (f *globalFlags) loadOptions(workDir string, override *config.Config) configloader.LoadOptions {
	cli := f.cliConfig(workDir)
	if override != nil {
		cli = configloader.Merge(cli, override)
	}
	return configloader.LoadOptions{
		WorkingDir:   workDir,
		ExplicitPath: f.configPath,
		CLIConfig:    cli,
	}
}

// loadConfig resolves the configuration of a command. override carries the
// command's own flags.
func (f *globalFlags) loadConfig(cmd *cobra.Command, override *config.Config) (*config.Config, string, error) {
	logger := logging.Default()

	workDir, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("get working directory: %w", err)
	}

	result, err := configloader.Load(commandContext(cmd), f.loadOptions(workDir, override))
	if err != nil {
		return nil, "", errors.Join(ErrConfig, err)
	}
	for _, warning := range result.Warnings {
		logger.Warn(warning)
	}
	if len(result.LoadedFrom) > 0 {
		logger.Debug("loaded configuration from", logging.FieldFiles, result.LoadedFrom)
	}

	cfg := result.Config
	if cfg.LogLevel != "" && !f.debug && f.logLevel == "" {
		logging.SetLevel(cfg.LogLevel)
	}
	logger.Debug("configuration loaded",
		logging.FieldIncludeRoots, cfg.IncludeRoots,
		logging.FieldJobs, cfg.Workers())
	return cfg, workDir, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
