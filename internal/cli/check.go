package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yaklabco/pawnls/internal/logging"
	"github.com/yaklabco/pawnls/pkg/config"
	"github.com/yaklabco/pawnls/pkg/edit"
	"github.com/yaklabco/pawnls/pkg/engine"
	"github.com/yaklabco/pawnls/pkg/reporter"
	"github.com/yaklabco/pawnls/pkg/runner"
)

type checkFlags struct {
	format       string
	summaryOrder string
	ignore       []string
	mainPath     string
	strict       bool
	noContext    bool
	compact      bool
	flat         bool
}

func newCheckCommand(info BuildInfo, global *globalFlags) *cobra.Command {
	flags := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Report diagnostics for SourcePawn files",
		Long:  checkLongDescription,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, info, global, flags)
		},
	}

	cmd.Flags().StringVar(&flags.format, "format", "text", "output format: text, json, summary, sarif")
	cmd.Flags().StringVar(&flags.summaryOrder, "summary-order", "codes", "order of tables in summary output: codes, files")
	cmd.Flags().StringSliceVar(&flags.ignore, "ignore", nil, "glob patterns to ignore")
	cmd.Flags().StringVar(&flags.mainPath, "main", "", "report only this plugin and the files it includes")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "treat warnings as errors for exit code")
	cmd.Flags().BoolVar(&flags.noContext, "no-context", false, "hide source line context in output")
	cmd.Flags().BoolVar(&flags.compact, "compact", false, "use compact output format")
	cmd.Flags().BoolVar(&flags.flat, "flat", false, "do not group text output by file")

	return cmd
}

const checkLongDescription = `Analyze SourcePawn files and report their diagnostics.

By default, checks every .sp and .inc file under the current directory.
Included files are resolved through the configured include roots and
analyzed with the files that include them.

Examples:
  pawnls check                              # Check current directory
  pawnls check scripting/                   # Check a directory
  pawnls check -I include plugin.sp         # Add an include root
  pawnls check -D DEBUG=1 --main plugin.sp  # Report one plugin's closure
  pawnls check --format json                # Output as JSON for CI
  pawnls check --strict                     # Treat warnings as errors`

func runCheck(cmd *cobra.Command, args []string, info BuildInfo, global *globalFlags, flags *checkFlags) error {
	logger := logging.Default()
	ctx := commandContext(cmd)

	override := &config.Config{MainPath: flags.mainPath}
	if cmd.Flags().Changed("format") {
		override.Format = config.OutputFormat(flags.format)
	}
	if cmd.Flags().Changed("summary-order") {
		override.SummaryOrder = config.SummaryOrder(flags.summaryOrder)
	}
	if flags.ignore != nil {
		override.Ignore = flags.ignore
	}

	cfg, workDir, err := global.loadConfig(cmd, override)
	if err != nil {
		return err
	}

	format, err := reporter.ParseFormat(string(cfg.Format))
	if err != nil {
		return fmt.Errorf("invalid format: %w", err)
	}

	eng := engine.New(ctx, engine.Options{
		Config: cfg,
		Logger: logger,
		Unit:   edit.UnitBytes,
	})
	defer eng.Close()

	runOpts := runner.OptionsFromConfig(cfg, args)
	runOpts.WorkingDir = workDir

	logger.Debug("starting check",
		logging.FieldFiles, runOpts.Paths,
		logging.FieldWorkingDir, runOpts.WorkingDir)

	result, err := runner.New(eng).Run(ctx, runOpts)
	if err != nil {
		return errors.Join(errors.New("check run failed"), err)
	}

	colorMode, err := cmd.Flags().GetString("color")
	if err != nil {
		colorMode = "auto"
	}

	rep, err := reporter.New(reporter.Options{
		Writer:       cmd.OutOrStdout(),
		ErrorWriter:  cmd.ErrOrStderr(),
		Format:       format,
		Color:        colorMode,
		ShowContext:  !flags.noContext,
		ShowSummary:  true,
		GroupByFile:  !flags.flat,
		Compact:      flags.compact,
		SummaryOrder: cfg.SummaryOrder,
		WorkingDir:   workDir,
		ToolVersion:  info.Version,
	})
	if err != nil {
		return fmt.Errorf("create reporter: %w", err)
	}

	if _, err := rep.Report(ctx, result); err != nil {
		logger.Error("report failed", logging.FieldError, err)
		return fmt.Errorf("report results: %w", err)
	}

	if code := ExitCodeFromResult(result, flags.strict); code != ExitSuccess {
		return &ExitError{Code: code}
	}
	return nil
}
