package cli

import (
	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/yaklabco/pawnls/internal/logging"
)

// resolve fills in build details missing from linker flags with what the
// Go toolchain stamped into the binary.
func (b BuildInfo) resolve() BuildInfo {
	if b.Version == "" || b.Version == "dev" {
		b.Version = versioninfo.Short()
	}
	if b.Commit == "" || b.Commit == "none" {
		b.Commit = versioninfo.Revision
	}
	if (b.Date == "" || b.Date == "unknown") && !versioninfo.LastCommit.IsZero() {
		b.Date = versioninfo.LastCommit.UTC().Format("2006-01-02T15:04:05Z")
	}
	return b
}

func newVersionCommand(info BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of pawnls.`,
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, _ []string) {
			logger := log.NewWithOptions(cmd.OutOrStdout(), log.Options{
				ReportTimestamp: false,
				ReportCaller:    false,
			})
			logger.SetLevel(log.InfoLevel)

			logger.Info("pawnls",
				logging.FieldVersion, info.Version,
				logging.FieldCommit, info.Commit,
				logging.FieldBuilt, info.Date,
			)
		},
	}

	return cmd
}
