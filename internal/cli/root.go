// Package cli provides the Cobra command structure for pawnls.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yaklabco/pawnls/internal/logging"
)

// BuildInfo holds build-time version information.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	debug      bool
	logLevel   string
	configPath string
	color      string
	includes   []string
	defines    []string
	jobs       int
}

// NewRootCommand creates the root pawnls command with all subcommands.
func NewRootCommand(info BuildInfo) *cobra.Command {
	flags := &globalFlags{}
	info = info.resolve()

	rootCmd := &cobra.Command{
		Use:   "pawnls",
		Short: "A SourcePawn language server",
		Long: `pawnls analyzes SourcePawn plugins and include files.

It serves hover, go-to-definition, references, completion and symbols to
editors over the language server protocol, keeping diagnostics current as
files are edited. The same analysis runs in batch to check a workspace
from the command line or export its symbols to SQLite.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			switch {
			case flags.debug:
				logging.SetLevel("debug")
			case flags.logLevel != "":
				logging.SetLevel(flags.logLevel)
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flags.configPath, "config", "", "path to config file")
	pf.StringVar(&flags.color, "color", "auto", "colorize output: auto, always, never")
	pf.StringSliceVarP(&flags.includes, "include", "I", nil, "directory searched for #include <...> (repeatable)")
	pf.StringArrayVarP(&flags.defines, "define", "D", nil, "predefine a macro as NAME or NAME=VALUE (repeatable)")
	pf.IntVarP(&flags.jobs, "jobs", "j", 0, "number of analysis workers (0 = auto)")

	rootCmd.AddCommand(newServeCommand(info, flags))
	rootCmd.AddCommand(newCheckCommand(info, flags))
	rootCmd.AddCommand(newIndexCommand(flags))
	rootCmd.AddCommand(newPreprocessCommand(flags))
	rootCmd.AddCommand(newInitCommand(flags))
	rootCmd.AddCommand(newConfigCommand(flags))
	rootCmd.AddCommand(newVersionCommand(info))

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitInvalidUsage, Err: err}
	})
	applyHelp(rootCmd, &flags.color, os.Stdout)

	return rootCmd
}

// usageArgs marks argument validation failures as invalid usage.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &ExitError{Code: ExitInvalidUsage, Err: err}
		}
		return nil
	}
}
