package indexdb_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/indexdb"
	"github.com/yaklabco/pawnls/pkg/preproc"
	"github.com/yaklabco/pawnls/pkg/symbols"
	"github.com/yaklabco/pawnls/pkg/syntax"
	"github.com/yaklabco/pawnls/pkg/workspace"
)

var files = map[string]string{
	"/ws/a.sp":  "#include \"b.inc\"\n#tryinclude \"missing.inc\"\n\npublic void OnPluginStart()\n{\n\tFoo(1);\n}\n",
	"/ws/b.inc": "stock int Foo(int x)\n{\n\treturn x;\n}\n\nmethodmap Counter {\n\tpublic void Reset() {}\n}\n",
}

func index(t *testing.T) *workspace.Index {
	t.Helper()

	resolver := preproc.PathResolver{Exists: func(path string) bool {
		_, ok := files[path]
		return ok
	}}
	ix := workspace.New()
	for path, src := range files {
		u := uri.File(path)
		res := preproc.Run(preproc.Options{URI: u, Resolver: resolver}, src, nil)
		ix.Merge(u, symbols.Index(res, syntax.Parse(res.Tokens)))
	}
	return ix
}

func export(t *testing.T) *indexdb.DB {
	t.Helper()

	ctx := context.Background()
	db, err := indexdb.Open(ctx, indexdb.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	stats, err := db.Export(ctx, index(t), map[uri.URI]int{uri.File("/ws/a.sp"): 1})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 2, stats.Includes)
	return db
}

func TestLookup(t *testing.T) {
	t.Parallel()

	db := export(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		opts  indexdb.LookupOptions
		want  []string
	}{
		{name: "plain name", query: "Foo", want: []string{"Foo"}},
		{name: "qualified member", query: "Counter.Reset", want: []string{"Counter.Reset"}},
		{name: "member by name", query: "Reset", want: []string{"Counter.Reset"}},
		{name: "prefix", query: "Co", opts: indexdb.LookupOptions{Prefix: true}, want: []string{"Counter", "Counter.Reset"}},
		{name: "kind filter", query: "Co", opts: indexdb.LookupOptions{Prefix: true, Kind: "methodmap"}, want: []string{"Counter"}},
		{name: "unknown", query: "Nope"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rows, err := db.Lookup(ctx, tc.query, tc.opts)
			require.NoError(t, err)
			var got []string
			for _, r := range rows {
				got = append(got, r.Qualified)
			}
			assert.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestLookupRowCarriesLocation(t *testing.T) {
	t.Parallel()

	db := export(t)
	rows, err := db.Lookup(context.Background(), "Foo", indexdb.LookupOptions{Kind: "function"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	foo := rows[0]
	assert.Equal(t, string(uri.File("/ws/b.inc")), foo.URI)
	assert.Equal(t, 1, foo.Line)
	assert.Equal(t, 11, foo.Col)
	assert.True(t, foo.Exported)
	assert.Equal(t, filepath.FromSlash("/ws/b.inc")+":1:11", foo.Location())
}

func TestLookupRejectsEmptyName(t *testing.T) {
	t.Parallel()

	db := export(t)
	_, err := db.Lookup(context.Background(), "", indexdb.LookupOptions{})
	require.ErrorIs(t, err, indexdb.ErrEmptyName)
}

func TestIncludersAndFiles(t *testing.T) {
	t.Parallel()

	db := export(t)
	ctx := context.Background()

	includers, err := db.Includers(ctx, uri.File("/ws/b.inc"))
	require.NoError(t, err)
	require.Len(t, includers, 1)
	assert.Equal(t, string(uri.File("/ws/a.sp")), includers[0].URI)
	assert.Equal(t, 1, includers[0].Diagnostics)

	all, err := db.Files(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestExportReplacesPreviousContent(t *testing.T) {
	t.Parallel()

	db := export(t)
	ctx := context.Background()

	_, err := db.Export(ctx, workspace.New(), nil)
	require.NoError(t, err)

	all, err := db.Files(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
