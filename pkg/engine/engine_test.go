package engine_test

import (
	"bytes"
	"context"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/liamg/memoryfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/analysis"
	"github.com/yaklabco/pawnls/pkg/config"
	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/edit"
	"github.com/yaklabco/pawnls/pkg/engine"
	"github.com/yaklabco/pawnls/pkg/fsutil"
	"github.com/yaklabco/pawnls/pkg/source"
	"github.com/yaklabco/pawnls/pkg/symbols"
	"github.com/yaklabco/pawnls/pkg/workspace"
)

const (
	aPath = "/ws/a.sp"
	bPath = "/ws/b.inc"
)

var (
	aURI = source.FileURI(aPath)
	bURI = source.FileURI(bPath)
)

const aText = `#include "b"
public void OnPluginStart()
{
	Foo(1);
}
`

const bText = `/** Returns its argument. */
stock int Foo(int x)
{
	return x;
}
`

type recorder struct {
	mu    sync.Mutex
	diags map[uri.URI][]diag.Diagnostic
	count map[uri.URI]int
}

func (r *recorder) PublishDiagnostics(_ context.Context, u uri.URI, _ int32, diags []diag.Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags[u] = diags
	r.count[u]++
}

func (r *recorder) published(u uri.URI) (int, []diag.Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count[u], r.diags[u]
}

func codesOf(diags []diag.Diagnostic) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

// logBuffer collects log output written by the engine's workers.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	*engine.Engine
	fs   *memoryfs.FS
	rec  *recorder
	logs *logBuffer
	ctx  context.Context
}

func newHarness(t *testing.T, files map[string]string, cfg *config.Config) *harness {
	t.Helper()
	mfs := memoryfs.New()
	h := &harness{
		fs:   mfs,
		rec:  &recorder{diags: map[uri.URI][]diag.Diagnostic{}, count: map[uri.URI]int{}},
		logs: &logBuffer{},
	}
	for p, text := range files {
		h.write(t, p, text)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	h.ctx = ctx
	h.Engine = engine.New(ctx, engine.Options{
		Config:    cfg,
		Files:     fsutil.FSSource{FS: mfs},
		Publisher: h.rec,
		Logger:    log.NewWithOptions(h.logs, log.Options{Level: log.DebugLevel}),
		Unit:      edit.UnitBytes,
	})
	t.Cleanup(h.Close)
	return h
}

func (h *harness) write(t *testing.T, p, text string) {
	t.Helper()
	name := strings.TrimPrefix(p, "/")
	require.NoError(t, h.fs.MkdirAll(path.Dir(name), 0o700))
	require.NoError(t, h.fs.WriteFile(name, []byte(text), 0o644))
}

func (h *harness) load(t *testing.T, paths ...string) {
	t.Helper()
	require.NoError(t, h.LoadFiles(h.ctx, paths))
	h.idle(t)
}

func (h *harness) idle(t *testing.T) {
	t.Helper()
	require.NoError(t, h.WaitIdle(h.ctx))
}

func (h *harness) diagnostics(t *testing.T, u uri.URI) []diag.Diagnostic {
	t.Helper()
	diags, _, err := h.Diagnostics(h.ctx, u)
	require.NoError(t, err)
	return diags
}

func TestDefinitionAcrossInclude(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{aPath: aText, bPath: bText}, nil)
	// b.inc is found through the include, not listed.
	h.load(t, aPath)

	spans, err := h.Definition(h.ctx, aURI, edit.Position{Line: 3, Column: 1})
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, bURI, spans[0].URI)
	assert.Equal(t, source.Position{Line: 2, Column: 11}, spans[0].Range.Start)

	assert.Empty(t, h.diagnostics(t, aURI))
}

func TestIncluderRepublishedOnceIncludeBuilds(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{aPath: aText, bPath: bText}, nil)
	h.load(t, aPath)

	// The publisher sees the rebuilt includer, not only the query path.
	count, diags := h.rec.published(aURI)
	assert.Positive(t, count)
	assert.Empty(t, diags)

	cPath := "/ws/c.sp"
	cURI := source.FileURI(cPath)
	h.write(t, cPath, "#include \"d\"\npublic void OnMapStart()\n{\n\tBar();\n}\n")
	h.load(t, cPath)
	require.Contains(t, codesOf(h.diagnostics(t, cURI)), "unresolved-include")

	h.write(t, "/ws/d.inc", "stock void Bar() {}\n")
	require.NoError(t, h.FileCreated(h.ctx, "/ws/d.inc"))
	h.idle(t)

	_, diags = h.rec.published(cURI)
	assert.Empty(t, diags)
}

func TestDefinitionOfIncludePath(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{aPath: aText, bPath: bText}, nil)
	h.load(t, aPath, bPath)

	spans, err := h.Definition(h.ctx, aURI, edit.Position{Line: 0, Column: 10})
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, bURI, spans[0].URI)
	assert.Equal(t, 1, spans[0].Range.Start.Line)
}

func TestBodyEditLeavesDependentsAlone(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{aPath: aText, bPath: bText}, nil)
	h.load(t, aPath, bPath)

	before, err := h.Snapshot(h.ctx, aURI)
	require.NoError(t, err)
	published, _ := h.rec.published(aURI)

	require.NoError(t, h.OpenFile(h.ctx, bURI, bText, 1))
	require.NoError(t, h.ApplyEdit(h.ctx, bURI, 2, []edit.Change{{
		Range: &edit.Range{
			Start: edit.Position{Line: 3, Column: 1},
			End:   edit.Position{Line: 3, Column: 1 + len("return x;")},
		},
		Text: "return x + 1;",
	}}))
	h.idle(t)

	text, err := h.Text(bURI)
	require.NoError(t, err)
	assert.Contains(t, text, "return x + 1;")

	after, err := h.Snapshot(h.ctx, aURI)
	require.NoError(t, err)
	assert.Same(t, before, after)
	again, _ := h.rec.published(aURI)
	assert.Equal(t, published, again)
}

func TestSignatureChangeReresolvesIncluders(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{aPath: aText, bPath: bText}, nil)
	h.load(t, aPath, bPath)
	require.Empty(t, h.diagnostics(t, aURI))

	require.NoError(t, h.OpenFile(h.ctx, bURI, strings.Replace(bText, "Foo", "Fooo", 1), 1))
	h.idle(t)

	diags := h.diagnostics(t, aURI)
	require.Equal(t, []string{analysis.CodeUnresolved}, codesOf(diags))
	assert.Equal(t, "did you mean 'Fooo'?", diags[0].Suggestion)
}

func TestMacroChangeRebuildsIncluders(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		aPath: "#include \"b\"\nint g = LIMIT;\n",
		bPath: "#define LIMIT 10\n",
	}
	h := newHarness(t, files, nil)
	h.load(t, aPath, bPath)
	require.Empty(t, h.diagnostics(t, aURI))

	h.write(t, bPath, "#define LIMITS 10\n")
	require.NoError(t, h.FileChanged(h.ctx, bPath))
	h.idle(t)

	diags := h.diagnostics(t, aURI)
	require.Equal(t, []string{analysis.CodeUnresolved}, codesOf(diags))
	assert.Contains(t, diags[0].Message, "LIMIT")
}

func TestIncludeCycleReportedOnce(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		aPath: "#include \"b\"\nint a;\n",
		bPath: "#include \"a.sp\"\nint b;\n",
	}
	h := newHarness(t, files, nil)
	h.load(t, aPath, bPath)

	total := 0
	for _, u := range []uri.URI{aURI, bURI} {
		for _, d := range h.diagnostics(t, u) {
			if d.Code == workspace.CodeIncludeCycle {
				total++
			}
		}
	}
	assert.Equal(t, 1, total)
}

func TestHoverShowsSignatureAndDoc(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{aPath: aText, bPath: bText}, nil)
	h.load(t, aPath, bPath)

	hover, err := h.Hover(h.ctx, aURI, edit.Position{Line: 3, Column: 2})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "Foo", hover.Symbol.Name)
	assert.Contains(t, hover.Contents, "Foo(int x)")
	assert.Contains(t, hover.Contents, "Returns its argument.")
	assert.Contains(t, hover.Contents, "b.inc")

	none, err := h.Hover(h.ctx, aURI, edit.Position{Line: 2, Column: 0})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestReferences(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{aPath: aText, bPath: bText}, nil)
	h.load(t, aPath, bPath)

	spans, err := h.References(h.ctx, bURI, edit.Position{Line: 1, Column: 11}, true)
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, bURI, spans[0].URI)
	assert.Equal(t, aURI, spans[1].URI)
	assert.Equal(t, 4, spans[1].Range.Start.Line)
}

func TestCompletion(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		aPath: "#include \"b\"\nvoid Run(Counter c)\n{\n\tc.\n}\nvoid Other()\n{\n\tFo\n}\n",
		bPath: bText + "methodmap Counter {\n\tpublic void Reset() {}\n\tproperty int Value {\n\t\tpublic get() { return 0; }\n\t}\n}\n",
	}
	h := newHarness(t, files, nil)
	h.load(t, aPath, bPath)

	items, err := h.Completion(h.ctx, aURI, edit.Position{Line: 7, Column: 3})
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Equal(t, "Foo", items[0].Label)
	assert.Equal(t, "Returns its argument.", items[0].Doc)

	members, err := h.Completion(h.ctx, aURI, edit.Position{Line: 3, Column: 3})
	require.NoError(t, err)
	labels := make([]string, 0, len(members))
	for _, m := range members {
		labels = append(labels, m.Label)
	}
	assert.ElementsMatch(t, []string{"Reset", "Value"}, labels)
}

func TestDocumentAndWorkspaceSymbols(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		aPath: aText,
		bPath: bText + "enum Color { Red, Green }\n",
	}
	h := newHarness(t, files, nil)
	h.load(t, aPath, bPath)

	docSyms, err := h.DocumentSymbols(h.ctx, bURI)
	require.NoError(t, err)
	require.Len(t, docSyms, 2)
	assert.Equal(t, "Foo", docSyms[0].Name)
	assert.Equal(t, "Color", docSyms[1].Name)
	require.Len(t, docSyms[1].Children, 2)
	assert.Equal(t, symbols.KindEnumMember, docSyms[1].Children[0].Kind)

	found, err := h.WorkspaceSymbols(h.ctx, "grn")
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, "Green", found[0].Name)
}

func TestCloseFileFallsBackToDisk(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{aPath: aText, bPath: bText}, nil)
	h.load(t, aPath, bPath)

	require.NoError(t, h.OpenFile(h.ctx, aURI, strings.Replace(aText, "Foo(1)", "Missing(1)", 1), 1))
	h.idle(t)
	require.Equal(t, []string{analysis.CodeUnresolved}, codesOf(h.diagnostics(t, aURI)))

	require.NoError(t, h.CloseFile(h.ctx, aURI))
	h.idle(t)
	assert.Empty(t, h.diagnostics(t, aURI))
}

func TestStaleEditRejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{aPath: aText, bPath: bText}, nil)
	require.NoError(t, h.OpenFile(h.ctx, aURI, aText, 5))

	err := h.ApplyEdit(h.ctx, aURI, 4, []edit.Change{edit.Full("int x;\n")})
	require.Error(t, err)

	err = h.ApplyEdit(h.ctx, uri.File("/ws/unknown.sp"), 1, []edit.Change{edit.Full("")})
	require.ErrorIs(t, err, engine.ErrNotLoaded)
}

func TestFileRemovedBreaksInclude(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{aPath: aText, bPath: bText}, nil)
	h.load(t, aPath, bPath)

	require.NoError(t, h.fs.Remove(strings.TrimPrefix(bPath, "/")))
	require.NoError(t, h.FileRemoved(h.ctx, bPath))
	h.idle(t)

	assert.Equal(t, []string{"unresolved-include"}, codesOf(h.diagnostics(t, aURI)))
	_, _, err := h.Diagnostics(h.ctx, bURI)
	require.ErrorIs(t, err, engine.ErrNotLoaded)

	h.write(t, bPath, bText)
	require.NoError(t, h.FileCreated(h.ctx, bPath))
	h.idle(t)
	assert.Empty(t, h.diagnostics(t, aURI))
}

func TestReconfigureDefines(t *testing.T) {
	t.Parallel()

	files := map[string]string{aPath: "#if defined DEBUG\nint debug = DEBUG_LEVEL;\n#endif\n"}
	h := newHarness(t, files, nil)
	h.load(t, aPath)
	require.Equal(t, []string{"disabled-code"}, codesOf(h.diagnostics(t, aURI)))

	cfg := config.NewConfig()
	cfg.Defines = map[string]string{"DEBUG": "1", "DEBUG_LEVEL": "2"}
	require.NoError(t, h.Reconfigure(cfg))
	h.idle(t)
	assert.Empty(t, h.diagnostics(t, aURI))

	hover, err := h.Hover(h.ctx, aURI, edit.Position{Line: 1, Column: 14})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, symbols.KindDefine, hover.Symbol.Kind)
	assert.Contains(t, hover.Contents, "#define DEBUG_LEVEL 2")
}

func TestLoadFilesReportsMissing(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{aPath: aText, bPath: bText}, nil)
	err := h.LoadFiles(h.ctx, []string{aPath, "/ws/missing.sp"})
	require.ErrorIs(t, err, fsutil.ErrNotFound)
	var loadErr *engine.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "/ws/missing.sp", loadErr.Path)
	h.idle(t)
	assert.Empty(t, h.diagnostics(t, aURI))
}

func TestFollowUpWorkAfterCloseIsLogged(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{aPath: aText, bPath: bText}, nil)
	h.load(t, aPath, bPath)
	h.Close()

	require.NoError(t, h.FileRemoved(h.ctx, bPath))
	assert.Contains(t, h.logs.String(), "follow-up work not scheduled")
}
