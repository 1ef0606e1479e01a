package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yaklabco/pawnls/internal/logging"
	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/edit"
	"github.com/yaklabco/pawnls/pkg/engine"
	"github.com/yaklabco/pawnls/pkg/fsutil"
	"github.com/yaklabco/pawnls/pkg/source"
)

type preprocessFlags struct {
	output string
	diff   bool
}

func newPreprocessCommand(global *globalFlags) *cobra.Command {
	flags := &preprocessFlags{}

	cmd := &cobra.Command{
		Use:   "preprocess FILE",
		Short: "Print a file after macro expansion",
		Long: `Run the preprocessor on FILE and print the text the parser sees: macros
expanded, inactive #if regions and directive lines kept as they were.

Examples:
  pawnls preprocess plugin.sp                 # Print to stdout
  pawnls preprocess -D DEBUG plugin.sp        # With an extra define
  pawnls preprocess -o plugin.pp.sp plugin.sp # Write to a file
  pawnls preprocess --diff plugin.sp          # Show what expansion changed`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreprocess(cmd, args[0], global, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the result to this file instead of stdout")
	cmd.Flags().BoolVar(&flags.diff, "diff", false, "print a unified diff between the file and its expansion")

	return cmd
}

func runPreprocess(cmd *cobra.Command, path string, global *globalFlags, flags *preprocessFlags) error {
	logger := logging.Default()
	ctx := commandContext(cmd)

	cfg, workDir, err := global.loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}

	eng := engine.New(ctx, engine.Options{Config: cfg, Logger: logger, Unit: edit.UnitBytes})
	defer eng.Close()

	if err := eng.LoadFiles(ctx, []string{path}); err != nil {
		return &ExitError{Code: ExitIOError, Err: err}
	}
	snap, err := eng.Snapshot(ctx, source.FileURI(path))
	if err != nil {
		return err
	}
	if snap.Preprocessed == nil {
		return fmt.Errorf("no preprocessor output for %s", path)
	}

	for _, d := range snap.Diagnostics {
		if d.Severity == diag.SeverityError {
			logger.Warn(d.Message, logging.FieldPath, path, "line", d.Span.Range.Start.Line)
		}
	}

	out := snap.Preprocessed.Text
	if flags.diff {
		rel, err := filepath.Rel(workDir, path)
		if err != nil {
			rel = path
		}
		out = edit.LineDiff(filepath.ToSlash(rel), snap.Text, out).String()
	}

	if flags.output == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), out)
		return err
	}

	written, err := fsutil.WriteAtomicIfChanged(ctx, flags.output, []byte(out), 0)
	if err != nil {
		return &ExitError{Code: ExitIOError, Err: err}
	}
	logger.Debug("preprocessed output", logging.FieldPath, flags.output, "written", written)
	return nil
}
