package runner_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/pawnls/pkg/analysis"
	"github.com/yaklabco/pawnls/pkg/config"
	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/engine"
	"github.com/yaklabco/pawnls/pkg/runner"
)

const (
	pluginText = "#include \"util.inc\"\n\npublic void OnPluginStart()\n{\n\tFoo();\n\tFooo();\n}\n"
	utilText   = "stock void Foo()\n{\n}\n"
	otherText  = "public void Other()\n{\n\tMissing();\n}\n"
)

func newRunner(t *testing.T, cfg *config.Config) *runner.Runner {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	eng := engine.New(ctx, engine.Options{Config: cfg, Logger: log.New(io.Discard)})
	t.Cleanup(func() {
		eng.Close()
		cancel()
	})
	return runner.New(eng)
}

func TestRunner_Run_NoFiles(t *testing.T) {
	t.Parallel()

	result, err := newRunner(t, nil).Run(context.Background(), runner.Options{WorkingDir: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, result.Files)
	assert.False(t, result.HasIssues())
}

func TestRunner_Run_ReportsCrossFileDiagnostics(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"plugin.sp": pluginText,
		"util.inc":  utilText,
	})

	result, err := newRunner(t, nil).Run(context.Background(), runner.Options{WorkingDir: dir})
	require.NoError(t, err)
	require.Len(t, result.Files, 2)

	plugin := result.Files[0]
	assert.Equal(t, filepath.Join(dir, "plugin.sp"), plugin.Path)
	require.NoError(t, plugin.Error)
	require.Len(t, plugin.Diagnostics, 1)
	d := plugin.Diagnostics[0]
	assert.Equal(t, analysis.CodeUnresolved, d.Code)
	assert.Equal(t, 6, d.Span.Range.Start.Line)
	assert.Contains(t, d.Suggestion, "Foo")

	assert.Empty(t, result.Files[1].Diagnostics)

	assert.Equal(t, 2, result.Stats.FilesDiscovered)
	assert.Equal(t, 2, result.Stats.FilesProcessed)
	assert.Equal(t, 1, result.Stats.FilesWithIssues)
	assert.Equal(t, 1, result.Stats.DiagnosticsBySeverity[diag.SeverityWarning])
	assert.True(t, result.HasIssues())
	assert.False(t, result.HasFailures())
}

func TestRunner_Run_MainPathFocus(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"plugin.sp": pluginText,
		"util.inc":  utilText,
		"other.sp":  otherText,
	})

	cfg := config.NewConfig()
	cfg.MainPath = "plugin.sp"

	result, err := newRunner(t, cfg).Run(context.Background(), runner.Options{WorkingDir: dir, Config: cfg})
	require.NoError(t, err)

	var paths []string
	for _, f := range result.Files {
		paths = append(paths, filepath.Base(f.Path))
	}
	assert.Equal(t, []string{"plugin.sp", "util.inc"}, paths)
}

func TestRunner_Run_UnreadableFile(t *testing.T) {
	t.Parallel()
	if os.Geteuid() == 0 {
		t.Skip("root reads unreadable files")
	}

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"ok.sp": "int x;\n", "locked.sp": "int y;\n"})
	require.NoError(t, os.Chmod(filepath.Join(dir, "locked.sp"), 0o000))

	result, err := newRunner(t, nil).Run(context.Background(), runner.Options{WorkingDir: dir})
	require.NoError(t, err)
	require.Len(t, result.Files, 2)

	assert.Error(t, result.Files[0].Error)
	var loadErr *engine.LoadError
	assert.ErrorAs(t, result.Files[0].Error, &loadErr)
	assert.NoError(t, result.Files[1].Error)
	assert.Equal(t, 1, result.Stats.FilesErrored)

	report := analysis.Summarize(result.FileDiagnostics(), analysis.Options{WorkingDir: dir})
	assert.Equal(t, 1, report.Totals.FilesErrored)
}

func TestRunner_Run_ContextCancellation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.sp": ""})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newRunner(t, nil).Run(ctx, runner.Options{WorkingDir: dir})
	require.ErrorIs(t, err, context.Canceled)
}

func TestResult_NilIsClean(t *testing.T) {
	t.Parallel()

	var r *runner.Result
	assert.False(t, r.HasFailures())
	assert.False(t, r.HasIssues())
}
