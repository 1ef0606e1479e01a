package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yaklabco/pawnls/internal/logging"
	"github.com/yaklabco/pawnls/internal/lsp"
)

// ErrInteractiveStdin is returned when serve is started from a terminal.
var ErrInteractiveStdin = errors.New("stdin is a terminal")

type serveFlags struct {
	watch       bool
	stdioTTY    bool
	noWorkspace bool
}

func newServeCommand(info BuildInfo, global *globalFlags) *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the language server on stdin and stdout",
		Long: `Run the language server, speaking the language server protocol over
stdin and stdout. Editors start this command themselves; logs go to stderr.

Configuration is resolved for the workspace the editor opens, then layered
with the editor's settings: initializationOptions, workspace/configuration
and didChangeConfiguration all accept

  {"includesDirectories": ["/path/to/sourcemod/scripting/include"]}

optionally wrapped in a "SourcePawnLanguageServer" section.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, info, global, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.watch, "watch", false, "follow file changes on disk under the workspace and include roots")
	cmd.Flags().BoolVar(&flags.stdioTTY, "stdio-tty", false, "allow stdin to be a terminal, for manual testing")
	cmd.Flags().BoolVar(&flags.noWorkspace, "no-workspace-load", false, "analyze only opened files and their includes")

	return cmd
}

func runServe(cmd *cobra.Command, info BuildInfo, global *globalFlags, flags *serveFlags) error {
	if !flags.stdioTTY && term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("%w: serve speaks the language server protocol and is started by an editor; pass --stdio-tty to run it by hand", ErrInteractiveStdin)
	}

	level := "info"
	switch {
	case global.debug:
		level = "debug"
	case global.logLevel != "":
		level = global.logLevel
	}
	// Stdout carries the protocol; every log line goes to stderr.
	logger := logging.New(level)
	logging.SetDefault(logger)

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	srv := lsp.New(lsp.Options{
		Version:       info.Version,
		Load:          global.loadOptions(workDir, nil),
		Watch:         flags.watch,
		LoadWorkspace: !flags.noWorkspace,
		Logger:        logger,
	})

	logger.Info("language server starting", logging.FieldVersion, info.Version, logging.FieldWorkingDir, workDir)
	err = srv.Serve(commandContext(cmd), &lsp.Stream{ReadCloser: os.Stdin, WriteCloser: os.Stdout})
	logger.Info("language server stopped")
	return err
}
