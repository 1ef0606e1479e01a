package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/internal/logging"
	"github.com/yaklabco/pawnls/pkg/edit"
	"github.com/yaklabco/pawnls/pkg/engine"
	"github.com/yaklabco/pawnls/pkg/indexdb"
	"github.com/yaklabco/pawnls/pkg/runner"
)

const defaultIndexDB = "pawnls.db"

type indexFlags struct {
	db     string
	kind   string
	prefix bool
	limit  uint64
}

func newIndexCommand(global *globalFlags) *cobra.Command {
	flags := &indexFlags{}

	cmd := &cobra.Command{
		Use:   "index [paths...]",
		Short: "Export the workspace symbols to SQLite",
		Long: `Analyze the workspace and write its files, symbols and include edges to a
SQLite database, replacing what the database held before.

Examples:
  pawnls index                       # Write pawnls.db for the current directory
  pawnls index --db /tmp/ws.db src/  # Export one directory
  pawnls index lookup OnPluginStart  # Query the exported symbols`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, args, global, flags)
		},
	}
	cmd.PersistentFlags().StringVar(&flags.db, "db", defaultIndexDB, "path of the SQLite database")

	lookup := &cobra.Command{
		Use:   "lookup NAME",
		Short: "Find exported symbols by name",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd, args[0], flags)
		},
	}
	lookup.Flags().StringVar(&flags.kind, "kind", "", "only symbols of this kind, such as function or methodmap")
	lookup.Flags().BoolVar(&flags.prefix, "prefix", false, "match names starting with NAME")
	lookup.Flags().Uint64Var(&flags.limit, "limit", 0, "maximum number of results (0 = all)")
	cmd.AddCommand(lookup)

	return cmd
}

func runIndex(cmd *cobra.Command, args []string, global *globalFlags, flags *indexFlags) error {
	logger := logging.Default()
	ctx := commandContext(cmd)
	start := time.Now()

	cfg, workDir, err := global.loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	eng := engine.New(ctx, engine.Options{Config: cfg, Logger: logger, Unit: edit.UnitBytes})
	defer eng.Close()

	runOpts := runner.OptionsFromConfig(cfg, args)
	runOpts.WorkingDir = workDir
	files, err := runner.Discover(ctx, runOpts)
	if err != nil {
		return err
	}
	if err := eng.LoadFiles(ctx, files); err != nil {
		var lerr *engine.LoadError
		if !errors.As(err, &lerr) {
			return err
		}
		logger.Warn("some files could not be loaded", logging.FieldError, err)
	}
	if err := eng.WaitIdle(ctx); err != nil {
		return fmt.Errorf("index cancelled: %w", err)
	}

	counts := make(map[uri.URI]int)
	for _, u := range eng.Files() {
		if diags, _, err := eng.Diagnostics(ctx, u); err == nil {
			counts[u] = len(diags)
		}
	}

	db, err := indexdb.Open(ctx, flags.db)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Export(ctx, eng.Index(), counts)
	if err != nil {
		return err
	}

	logger.Info("index written",
		logging.FieldPath, flags.db,
		logging.FieldFiles, stats.Files,
		"symbols", stats.Symbols,
		"includes", stats.Includes,
		logging.FieldDuration, time.Since(start))
	return nil
}

func runLookup(cmd *cobra.Command, name string, flags *indexFlags) error {
	ctx := commandContext(cmd)

	db, err := indexdb.Open(ctx, flags.db)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.Lookup(ctx, name, indexdb.LookupOptions{
		Kind:   flags.kind,
		Prefix: flags.prefix,
		Limit:  flags.limit,
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no symbol named %q", name)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.Qualified, row.Kind, row.Location(), row.Detail)
	}
	return tw.Flush()
}
