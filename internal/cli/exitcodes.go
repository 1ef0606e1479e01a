package cli

import (
	"errors"

	"github.com/yaklabco/pawnls/internal/lsp"
	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/runner"
)

// Exit codes for pawnls.
const (
	// ExitSuccess indicates successful execution with no issues.
	ExitSuccess = 0

	// ExitCheckErrors indicates a check found errors, or a language server
	// session that ended without shutdown.
	ExitCheckErrors = 1

	// ExitCheckWarnings indicates a check found warnings (when strict mode).
	ExitCheckWarnings = 2

	// ExitInvalidUsage indicates invalid command-line usage.
	ExitInvalidUsage = 64

	// ExitConfigError indicates configuration file errors.
	ExitConfigError = 65

	// ExitInternalError indicates an internal error.
	ExitInternalError = 70

	// ExitIOError indicates file I/O errors.
	ExitIOError = 74
)

// ExitCodeFromResult determines the exit code based on result and strict mode.
func ExitCodeFromResult(result *runner.Result, strict bool) int {
	if result == nil {
		return ExitSuccess
	}

	errs := result.Stats.DiagnosticsBySeverity[diag.SeverityError]
	warnings := result.Stats.DiagnosticsBySeverity[diag.SeverityWarning]

	switch {
	case errs > 0:
		return ExitCheckErrors
	case strict && warnings > 0:
		return ExitCheckWarnings
	case result.Stats.FilesErrored > 0:
		return ExitIOError
	}
	return ExitSuccess
}

// ExitCodeFromError maps an error returned by a command to an exit code.
func ExitCodeFromError(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, ErrConfig):
		return ExitConfigError
	case errors.Is(err, lsp.ErrExitWithoutShutdown):
		return ExitCheckErrors
	}
	return ExitInternalError
}

// ExitError carries the exit code of a command that ran to completion but
// must report a failure, such as a check that found errors. Err is the
// cause, if any.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	switch e.Code {
	case ExitCheckErrors:
		return "errors found"
	case ExitCheckWarnings:
		return "warnings found"
	case ExitIOError:
		return "some files could not be read"
	}
	return "command failed"
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
