package cli

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yaklabco/pawnls/internal/configloader"
	"github.com/yaklabco/pawnls/internal/logging"
)

func newConfigCommand(global *globalFlags) *cobra.Command {
	var envVars bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration pawnls uses in the current directory after
layering system, user, project and explicit config files, environment
variables and command-line flags.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if envVars {
				vars := configloader.ListEnvVars()
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, name := range slices.Sorted(maps.Keys(vars)) {
					fmt.Fprintf(tw, "%s\t%s\n", name, vars[name])
				}
				return tw.Flush()
			}
			return runConfig(cmd, global)
		},
	}
	cmd.Flags().BoolVar(&envVars, "env", false, "list the environment variables pawnls reads instead")

	return cmd
}

func runConfig(cmd *cobra.Command, global *globalFlags) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	result, err := configloader.Load(commandContext(cmd), global.loadOptions(workDir, nil))
	if err != nil {
		return errors.Join(ErrConfig, err)
	}
	for _, warning := range result.Warnings {
		logging.Default().Warn(warning)
	}

	out, err := result.Config.Describe(result.LoadedFrom)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
