package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yaklabco/pawnls/internal/configloader"
	"github.com/yaklabco/pawnls/internal/logging"
	"github.com/yaklabco/pawnls/pkg/config"
	"github.com/yaklabco/pawnls/pkg/fsutil"
)

// configFilePermissions is the file mode for configuration files (world-readable).
const configFilePermissions = 0644

type initFlags struct {
	force  bool
	format string
	output string
}

func newInitCommand(global *globalFlags) *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a pawnls configuration file",
		Long: `Create a .pawnls.yml configuration file in the current directory.

Include roots given with -I are written to the file. Without -I, the
SourceMod include directory is searched for upward from the current
directory and written when found.

Examples:
  pawnls init                          Create .pawnls.yml
  pawnls init -I ~/sm/scripting/include Use an explicit include root
  pawnls init --format json            Create pawnls.json (load it with --config)
  pawnls init --output custom.yml      Write to a custom file path`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, global, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "overwrite an existing configuration file")
	cmd.Flags().StringVar(&flags.format, "format", "yaml", "output format: yaml or json")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file path (default: .pawnls.yml or pawnls.json)")

	return cmd
}

func runInit(cmd *cobra.Command, global *globalFlags, flags *initFlags) error {
	logger := logging.NewInteractive()
	ctx := commandContext(cmd)

	if flags.format != "yaml" && flags.format != "json" {
		return &ExitError{Code: ExitInvalidUsage, Err: fmt.Errorf("invalid format %q: must be yaml or json", flags.format)}
	}

	outputPath := flags.output
	if outputPath == "" {
		if flags.format == "json" {
			outputPath = "pawnls.json"
		} else {
			outputPath = ".pawnls.yml"
		}
	}

	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if _, err := os.Stat(absPath); err == nil {
		if !flags.force {
			return fmt.Errorf("file %q already exists; use --force to overwrite", outputPath)
		}
		logger.Warn("overwriting existing file", logging.FieldPath, outputPath)
	}

	roots := global.cliConfig(filepath.Dir(absPath)).IncludeRoots
	if len(roots) == 0 {
		dir, err := configloader.FindIncludeDir(ctx, filepath.Dir(absPath))
		switch {
		case err != nil:
			logger.Debug("include directory detection failed", logging.FieldError, err)
		case dir != "":
			logger.Info("found SourceMod includes", logging.FieldPath, dir)
			roots = []string{dir}
		}
	}

	content, err := config.GenerateTemplate(config.TemplateOptions{
		Format:       flags.format,
		IncludeRoots: roots,
	})
	if err != nil {
		return fmt.Errorf("generate template: %w", err)
	}

	if err := fsutil.WriteAtomic(ctx, absPath, content, configFilePermissions); err != nil {
		return &ExitError{Code: ExitIOError, Err: err}
	}

	logger.Info("created configuration file", logging.FieldPath, outputPath)
	if len(roots) == 0 {
		logger.Info("no include roots configured; add include_roots so includes like <sourcemod> resolve")
	}
	return nil
}
