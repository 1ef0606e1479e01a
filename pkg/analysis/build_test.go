package analysis_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/analysis"
	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/preproc"
	"github.com/yaklabco/pawnls/pkg/store"
	"github.com/yaklabco/pawnls/pkg/symbols"
	"github.com/yaklabco/pawnls/pkg/syntax"
)

var pluginURI = uri.File("/ws/plugin.sp")

const plugin = `#define MAX_PLAYERS 64

enum struct Player
{
    int id;
    char name[32];
}

Player g_players[MAX_PLAYERS];

/** Counts connected players. */
public int CountPlayers()
{
    int total = 0;
    for (int i = 0; i < MAX_PLAYERS; i++)
    {
        if (g_players[i].id != 0)
        {
            total++;
        }
    }
    return total;
}

public void OnPluginStart()
{
    CountPlayers();
}
`

func build(t *testing.T, text string, prev *store.Snapshot) *store.Snapshot {
	t.Helper()

	snap, err := analysis.Build(analysis.Input{URI: pluginURI, Text: text, Revision: 1, Prev: prev})
	require.NoError(t, err)
	return snap
}

// describe flattens a symbol table into comparable lines.
func describe(table *symbols.Table) []string {
	var out []string
	for _, sym := range table.Symbols {
		out = append(out, fmt.Sprintf("sym %s %s %d-%d %s", sym.Kind, sym.QualifiedName(), sym.Span.Start, sym.Span.End, sym.Detail))
	}
	for _, ref := range table.References {
		out = append(out, fmt.Sprintf("ref %s %d-%d %d", ref.Name, ref.Span.Start, ref.Span.End, ref.Args))
	}
	return out
}

func TestBuildProducesAllArtifacts(t *testing.T) {
	t.Parallel()

	snap := build(t, plugin, nil)
	assert.Equal(t, plugin, snap.Text)
	assert.Equal(t, store.Hash(plugin), snap.Hash)
	assert.Equal(t, snap.Preprocessed.Text, snap.Tree.Text())
	assert.Empty(t, snap.Diagnostics)
	assert.NotEmpty(t, snap.Table.Lookup("CountPlayers"))
	assert.NotEmpty(t, snap.Table.Lookup("MAX_PLAYERS"))
}

func TestSyntaxErrorsBecomeDiagnostics(t *testing.T) {
	t.Parallel()

	snap := build(t, "int x = ;\nint y\n", nil)
	require.NotEmpty(t, snap.Diagnostics)
	for _, d := range snap.Diagnostics {
		assert.Equal(t, diag.SourceParser, d.Source)
		assert.Equal(t, analysis.CodeSyntax, d.Code)
		assert.Equal(t, pluginURI, d.Span.URI)
	}
	assert.Equal(t, "expected expression", snap.Diagnostics[0].Message)
	assert.Equal(t, 1, snap.Diagnostics[0].Span.Range.Start.Line)
}

func TestIncrementalBuildMatchesFullBuild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		edit func(string) string
	}{
		{name: "body edit", edit: func(s string) string { return strings.Replace(s, "int total = 0;", "int total = 1;", 1) }},
		{name: "rename function", edit: func(s string) string { return strings.ReplaceAll(s, "CountPlayers", "CountAll") }},
		{name: "macro change", edit: func(s string) string { return strings.Replace(s, "MAX_PLAYERS 64", "MAX_PLAYERS 65", 1) }},
		{name: "insert global", edit: func(s string) string { return strings.Replace(s, "/** Counts", "int g_count;\n\n/** Counts", 1) }},
		{name: "break syntax", edit: func(s string) string { return strings.Replace(s, "return total;", "return total", 1) }},
		{name: "open comment", edit: func(s string) string { return strings.Replace(s, "public void On", "/* public void On", 1) }},
		{name: "delete everything", edit: func(string) string { return "" }},
		{name: "no change", edit: func(s string) string { return s }},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			prev := build(t, plugin, nil)
			edited := testCase.edit(plugin)

			incremental := build(t, edited, prev)
			full := build(t, edited, nil)

			assert.Equal(t, full.Raw, incremental.Raw)
			assert.Equal(t, full.Preprocessed.Text, incremental.Tree.Text())
			assert.True(t, syntax.Equal(full.Tree.Root, incremental.Tree.Root))
			assert.Equal(t, describe(full.Table), describe(incremental.Table))
			assert.Equal(t, full.Diagnostics, incremental.Diagnostics)
		})
	}
}

func TestRebuildOfUnchangedTextIsIdentical(t *testing.T) {
	t.Parallel()

	first := build(t, plugin, nil)
	second := build(t, plugin, first)
	assert.True(t, syntax.Equal(first.Tree.Root, second.Tree.Root))
	assert.Equal(t, describe(first.Table), describe(second.Table))
	assert.Equal(t, first.Table.Fingerprint(), second.Table.Fingerprint())
}

type panickingResolver struct{}

func (panickingResolver) ResolveInclude(uri.URI, string) (uri.URI, bool) {
	panic("resolver exploded")
}

func TestPanicKeepsPreviousTable(t *testing.T) {
	t.Parallel()

	prev := build(t, plugin, nil)
	snap, err := analysis.Build(analysis.Input{
		URI:          pluginURI,
		Text:         "#include \"boom\"\n",
		Revision:     7,
		Prev:         prev,
		Preprocessor: preproc.Options{Resolver: panickingResolver{}},
	})

	require.ErrorIs(t, err, analysis.ErrInternal)
	var perr *analysis.PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "resolver exploded", perr.Value)

	require.NotNil(t, snap)
	assert.Equal(t, uint64(7), snap.Revision)
	assert.Equal(t, "#include \"boom\"\n", snap.Text)
	assert.Equal(t, store.Hash(snap.Text), snap.Hash)
	assert.Nil(t, snap.Raw, "no tokens of the old text survive")
	assert.Empty(t, snap.Tree.Text())
	assert.NotEmpty(t, snap.Table.Lookup("CountPlayers"))
	require.Len(t, snap.Diagnostics, 1)
	assert.Equal(t, diag.SourceInternal, snap.Diagnostics[0].Source)
}

func TestRebuildAfterPanicStartsFresh(t *testing.T) {
	t.Parallel()

	text := "#include \"boom\"\n" + plugin
	prev := build(t, plugin, nil)
	broken, err := analysis.Build(analysis.Input{
		URI:          pluginURI,
		Text:         text,
		Revision:     2,
		Prev:         prev,
		Preprocessor: preproc.Options{Resolver: panickingResolver{}},
	})
	require.Error(t, err)

	again := build(t, text, broken)
	full := build(t, text, nil)
	assert.Equal(t, full.Preprocessed.Text, again.Tree.Text())
	assert.True(t, syntax.Equal(full.Tree.Root, again.Tree.Root))
	assert.Equal(t, full.Diagnostics, again.Diagnostics)
}

func TestPanicWithoutPreviousSnapshot(t *testing.T) {
	t.Parallel()

	snap, err := analysis.Build(analysis.Input{
		URI:          pluginURI,
		Text:         "#include \"boom\"\n",
		Revision:     1,
		Preprocessor: preproc.Options{Resolver: panickingResolver{}},
	})
	require.ErrorIs(t, err, analysis.ErrInternal)
	require.NotNil(t, snap.Table)
	assert.Empty(t, snap.Table.Symbols)
	assert.Len(t, snap.Diagnostics, 1)
}
