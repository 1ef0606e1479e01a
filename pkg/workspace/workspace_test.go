package workspace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/preproc"
	"github.com/yaklabco/pawnls/pkg/symbols"
	"github.com/yaklabco/pawnls/pkg/syntax"
	"github.com/yaklabco/pawnls/pkg/workspace"
)

// project indexes a set of files that may include each other by name.
type project map[string]string

func (p project) resolver() preproc.PathResolver {
	return preproc.PathResolver{Exists: func(path string) bool {
		_, ok := p[path]
		return ok
	}}
}

func (p project) table(t *testing.T, path string) *symbols.Table {
	t.Helper()

	src, ok := p[path]
	require.True(t, ok, path)
	res := preproc.Run(preproc.Options{URI: uri.File(path), Resolver: p.resolver()}, src, nil)
	tree := syntax.Parse(res.Tokens)
	return symbols.Index(res, tree)
}

func (p project) index(t *testing.T) *workspace.Index {
	t.Helper()

	ix := workspace.New()
	for path := range p {
		ix.Merge(uri.File(path), p.table(t, path))
	}
	return ix
}

func TestDefinitionAcrossInclude(t *testing.T) {
	t.Parallel()

	files := project{
		"/ws/a.sp": "#include \"b.sp\"\n\npublic void OnPluginStart()\n{\n    Foo();\n}\n",
		"/ws/b.sp": "public void Foo()\n{\n}\n",
	}
	ix := files.index(t)

	a := uri.File("/ws/a.sp")
	table := ix.Table(a)
	require.NotNil(t, table)

	var ref symbols.Reference
	for _, r := range table.References {
		if r.Name == "Foo" {
			ref = r
		}
	}
	require.Equal(t, "Foo", ref.Name)

	res := ix.ResolveCall(ref.Name, a, ref.Chain(), ref.Args)
	require.Len(t, res.Symbols, 1)
	foo := res.Nearest()
	assert.Equal(t, uri.File("/ws/b.sp"), foo.Span.URI)
	assert.Equal(t, 1, foo.Span.Range.Start.Line)
	assert.Equal(t, 13, foo.Span.Range.Start.Column)
	assert.False(t, res.Local)
}

func TestIncludeCycleIsSafe(t *testing.T) {
	t.Parallel()

	files := project{
		"/ws/a.sp": "#include \"b.sp\"\nint a_value;\n",
		"/ws/b.sp": "#include \"a.sp\"\nint b_value;\n",
	}
	ix := files.index(t)
	a, b := uri.File("/ws/a.sp"), uri.File("/ws/b.sp")

	assert.Equal(t, []uri.URI{b}, ix.IncludeClosure(a))
	assert.Equal(t, []uri.URI{a}, ix.IncludeClosure(b))
	assert.Equal(t, []uri.URI{b}, ix.Dependents(a))

	assert.True(t, ix.Resolve("b_value", a, nil).Found())
	assert.True(t, ix.Resolve("a_value", b, nil).Found())
	assert.False(t, ix.Resolve("missing", a, nil).Found())

	cycles := ix.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []uri.URI{a, b}, cycles[0].Files)
	assert.Equal(t, b, cycles[0].Closing.From)
	assert.Equal(t, a, cycles[0].Closing.To)

	byFile := ix.CycleDiagnostics()
	require.Len(t, byFile, 1)
	require.Len(t, byFile[b], 1)
	d := byFile[b][0]
	assert.Equal(t, workspace.CodeIncludeCycle, d.Code)
	assert.Equal(t, diag.SeverityWarning, d.Severity)
	assert.Equal(t, "include cycle: a.sp -> b.sp -> a.sp", d.Message)
}

func TestCycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		files    project
		expected int
	}{
		{
			name: "none",
			files: project{
				"/ws/a.sp": "#include \"b.inc\"\n#include \"c.inc\"\n",
				"/ws/b.inc": "#include \"c.inc\"\n",
				"/ws/c.inc": "int c;\n",
			},
			expected: 0,
		},
		{
			name:     "self include",
			files:    project{"/ws/a.sp": "#include \"a.sp\"\n"},
			expected: 1,
		},
		{
			name: "three files",
			files: project{
				"/ws/a.sp":  "#include \"b.inc\"\n",
				"/ws/b.inc": "#include \"c.inc\"\n",
				"/ws/c.inc": "#include \"a.sp\"\n",
			},
			expected: 1,
		},
		{
			name: "two separate cycles",
			files: project{
				"/ws/a.sp":  "#include \"b.inc\"\n",
				"/ws/b.inc": "#include \"a.sp\"\n",
				"/ws/c.sp":  "#include \"d.inc\"\n",
				"/ws/d.inc": "#include \"c.sp\"\n",
			},
			expected: 2,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			ix := testCase.files.index(t)
			assert.Len(t, ix.Cycles(), testCase.expected)
		})
	}
}

func TestResolveOrder(t *testing.T) {
	t.Parallel()

	files := project{
		"/ws/main.sp":  "#include \"near.inc\"\nint Shared;\nstatic int Hidden;\n",
		"/ws/near.inc": "#include \"far.inc\"\nint Shared;\nstatic int Private;\n",
		"/ws/far.inc":  "int Shared;\nint OnlyFar;\n",
	}
	ix := files.index(t)
	main := uri.File("/ws/main.sp")

	res := ix.Resolve("Shared", main, nil)
	require.Len(t, res.Symbols, 3)
	assert.Equal(t, uri.File("/ws/main.sp"), res.Symbols[0].URI)
	assert.Equal(t, uri.File("/ws/near.inc"), res.Symbols[1].URI)
	assert.Equal(t, uri.File("/ws/far.inc"), res.Symbols[2].URI)

	assert.True(t, ix.Resolve("Hidden", main, nil).Found())
	assert.False(t, ix.Resolve("Private", main, nil).Found(), "static symbols stay in their file")
	assert.True(t, ix.Resolve("OnlyFar", main, nil).Found())

	fromFar := ix.Resolve("Shared", uri.File("/ws/far.inc"), nil)
	require.Len(t, fromFar.Symbols, 1, "includers are not searched")
	assert.Equal(t, uri.File("/ws/far.inc"), fromFar.Nearest().URI)
}

func TestResolveLocalShadows(t *testing.T) {
	t.Parallel()

	files := project{
		"/ws/main.sp": "int value;\n\nvoid F(int value)\n{\n    value = 1;\n}\n",
	}
	ix := files.index(t)
	main := uri.File("/ws/main.sp")

	var ref symbols.Reference
	for _, r := range ix.Table(main).References {
		if r.Name == "value" {
			ref = r
		}
	}
	res := ix.Resolve("value", main, ref.Chain())
	require.Len(t, res.Symbols, 1)
	assert.True(t, res.Local)
	assert.Equal(t, symbols.KindParameter, res.Symbols[0].Kind)
}

func TestResolveCallByArity(t *testing.T) {
	t.Parallel()

	files := project{
		"/ws/main.sp": "#include \"lib.inc\"\nnative void Log(const char[] msg);\n",
		"/ws/lib.inc": "native void Log(const char[] msg, int level);\n",
	}
	ix := files.index(t)
	main := uri.File("/ws/main.sp")

	one := ix.ResolveCall("Log", main, nil, 1)
	require.Len(t, one.Symbols, 1)
	assert.Equal(t, main, one.Symbols[0].URI)

	two := ix.ResolveCall("Log", main, nil, 2)
	require.Len(t, two.Symbols, 1)
	assert.Equal(t, uri.File("/ws/lib.inc"), two.Symbols[0].URI)

	none := ix.ResolveCall("Log", main, nil, 5)
	assert.Len(t, none.Symbols, 2)
}

func TestBuiltins(t *testing.T) {
	t.Parallel()

	ix := workspace.New()
	ix.SetBuiltins([]*symbols.Symbol{{Name: "SOURCEMOD_V_MAJOR", Kind: symbols.KindDefine}})

	res := ix.Resolve("SOURCEMOD_V_MAJOR", uri.File("/ws/a.sp"), nil)
	require.Len(t, res.Symbols, 1)
	assert.Equal(t, symbols.KindDefine, res.Nearest().Kind)
}

func TestMembersFollowInheritance(t *testing.T) {
	t.Parallel()

	files := project{
		"/ws/main.sp": `methodmap Handle __nullable__
{
    public native void Close();
    property int Id { public native get(); }
}

methodmap Menu < Handle
{
    public native void Display(int client);
    public native void Close();
}

methodmap Loop < Loop
{
    public native void Spin();
}
`,
	}
	ix := files.index(t)
	main := uri.File("/ws/main.sp")

	names := func(syms []*symbols.Symbol) []string {
		out := make([]string, 0, len(syms))
		for _, s := range syms {
			out = append(out, s.QualifiedName())
		}
		return out
	}

	assert.ElementsMatch(t, []string{"Menu.Display", "Menu.Close", "Handle.Id"}, names(ix.Members("Menu", main)))
	assert.Equal(t, []string{"Menu.Close"}, names(ix.Member("Menu", "Close", main)))
	assert.Equal(t, []string{"Handle.Id"}, names(ix.Member("Menu", "Id", main)))
	assert.Equal(t, []string{"Loop.Spin"}, names(ix.Members("Loop", main)))
	assert.Empty(t, ix.Member("Menu", "Nope", main))
}

func TestMergeReportsChanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		before   string
		after    string
		expected workspace.Change
	}{
		{
			name:     "body edit",
			before:   "public void Foo()\n{\n    int x = 1;\n}\n",
			after:    "public void Foo()\n{\n    int x = 2;\n    x++;\n}\n",
			expected: workspace.Change{},
		},
		{
			name:     "signature edit",
			before:   "public void Foo()\n{\n}\n",
			after:    "public void Foo(int a)\n{\n}\n",
			expected: workspace.Change{Symbols: true},
		},
		{
			name:     "macro edit",
			before:   "#define LIMIT 1\n",
			after:    "#define LIMIT 2\n",
			expected: workspace.Change{Macros: true},
		},
		{
			name:     "include added",
			before:   "int x;\n",
			after:    "#include \"other.inc\"\nint x;\n",
			expected: workspace.Change{Edges: true},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			ix := workspace.New()
			path := "/ws/lib.inc"
			ix.Merge(uri.File(path), project{path: testCase.before}.table(t, path))
			change := ix.Merge(uri.File(path), project{path: testCase.after}.table(t, path))
			assert.Equal(t, testCase.expected, change)
		})
	}
}

func TestMergeReplacesContribution(t *testing.T) {
	t.Parallel()

	path := "/ws/lib.inc"
	ix := workspace.New()
	first := ix.Merge(uri.File(path), project{path: "int Old;\n"}.table(t, path))
	assert.True(t, first.Any())

	ix.Merge(uri.File(path), project{path: "int New;\n"}.table(t, path))
	assert.Empty(t, ix.Lookup("Old"))
	assert.Len(t, ix.Lookup("New"), 1)

	ix.Remove(uri.File(path))
	assert.Empty(t, ix.Lookup("New"))
	assert.Empty(t, ix.Files())
}
