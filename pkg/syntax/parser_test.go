package syntax_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/pawnls/pkg/lexer"
	"github.com/yaklabco/pawnls/pkg/syntax"
)

const plugin = `public Plugin myinfo = { name = "demo", version = "1.0" };

enum Color { Red, Green = 5, Blue }

enum struct Point {
	int x;
	int y;
	int Sum() { return this.x + this.y; }
}

methodmap Timer < Handle {
	public Timer(float interval) { return view_as<Timer>(CreateTimer(interval)); }
	property int Ticks {
		public get() { return 1; }
	}
	public native void Kill();
}

typedef Callback = function void (int client);

typeset Handler {
	function void (int a);
	function int (int a, int b);
}

new Float:g_speed = 1.0;
char g_names[64][32];

public Action:Cmd_Test(client, args)
{
	for (int i = 0; i < 10; i++) {
		if (i % 2 == 0) continue; else g_speed += Float:i;
	}
	switch (client) {
		case 1, 2: { client = args ? client : 0; }
		default: return Plugin_Handled;
	}
	return Plugin_Continue;
}
`

func parse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	tree := syntax.Parse(lexer.Tokenize(src))
	require.Equal(t, src, tree.Text())
	return tree
}

func topKinds(tree *syntax.Tree) []syntax.NodeKind {
	var out []syntax.NodeKind
	for _, c := range tree.Cursor().ChildNodes() {
		out = append(out, c.Kind())
	}
	return out
}

func TestParseDeclarations(t *testing.T) {
	t.Parallel()

	tree := parse(t, plugin)
	assert.Empty(t, tree.Errors())
	assert.Equal(t, []syntax.NodeKind{
		syntax.NodeVarDecl, syntax.NodeEnum, syntax.NodeEnumStruct, syntax.NodeMethodmap,
		syntax.NodeTypedef, syntax.NodeTypeset, syntax.NodeVarDecl, syntax.NodeVarDecl,
		syntax.NodeFunction,
	}, topKinds(tree))

	root := tree.Cursor()
	enum := root.Child(syntax.NodeEnum)
	require.NotNil(t, enum)
	assert.Len(t, enum.Children(syntax.NodeEnumMember), 3)

	point := root.Child(syntax.NodeEnumStruct)
	require.NotNil(t, point)
	assert.Len(t, point.Children(syntax.NodeField), 2)
	assert.Len(t, point.Children(syntax.NodeMethod), 1)

	timer := root.Child(syntax.NodeMethodmap)
	require.NotNil(t, timer)
	assert.Len(t, timer.Children(syntax.NodeMethod), 2)
	prop := timer.Child(syntax.NodeProperty)
	require.NotNil(t, prop)
	assert.Len(t, prop.Children(syntax.NodeAccessor), 1)

	fn := root.Child(syntax.NodeFunction)
	require.NotNil(t, fn)
	name, ok := fn.FirstIdent()
	require.True(t, ok)
	assert.Equal(t, "Cmd_Test", name.Token.Text)
	typ := fn.Child(syntax.NodeType)
	require.NotNil(t, typ)
	assert.Equal(t, "Action:", typ.Text())
	assert.Len(t, fn.Child(syntax.NodeParams).Children(syntax.NodeParam), 2)
}

func TestParseExpressions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		kind syntax.NodeKind
	}{
		{name: "precedence", src: "int x = 1 + 2 * 3;", kind: syntax.NodeBinary},
		{name: "ternary", src: "int x = a ? b : c;", kind: syntax.NodeTernary},
		{name: "tag cast", src: "int x = _:f;", kind: syntax.NodeTagCast},
		{name: "view_as", src: "int x = view_as<int>(f);", kind: syntax.NodeViewAs},
		{name: "call", src: "int x = Foo(1, \"a\" \"b\");", kind: syntax.NodeCall},
		{name: "member call", src: "int x = list.Get(0);", kind: syntax.NodeCall},
		{name: "index", src: "int x = arr[i];", kind: syntax.NodeIndex},
		{name: "new object", src: "ArrayList x = new ArrayList();", kind: syntax.NodeNew},
		{name: "new array", src: "int[] x = new int[size];", kind: syntax.NodeNew},
		{name: "sizeof", src: "int x = sizeof(buf);", kind: syntax.NodeSizeof},
		{name: "array literal", src: "int x[] = {1, 2, ...};", kind: syntax.NodeArrayLit},
		{name: "unary", src: "int x = !-y;", kind: syntax.NodeUnary},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			tree := parse(t, testCase.src)
			assert.Empty(t, tree.Errors())
			decl := tree.Cursor().Child(syntax.NodeVarDecl)
			require.NotNil(t, decl)
			init := decl.Child(syntax.NodeDeclarator).ChildNodes()
			require.NotEmpty(t, init)
			assert.Equal(t, testCase.kind, init[len(init)-1].Kind())
		})
	}
}

func TestPrecedenceShape(t *testing.T) {
	t.Parallel()

	tree := parse(t, "int x = 1 + 2 * 3;")
	bin := syntax.FindFirst(tree.Cursor(), func(c *syntax.Cursor) bool {
		return c.Kind() == syntax.NodeBinary
	})
	require.NotNil(t, bin)
	op, ok := bin.ChildToken("+")
	require.True(t, ok)
	assert.Equal(t, "+", op.Token.Text)
	assert.Equal(t, "2 * 3", bin.ChildNodes()[1].Text())
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     string
		message string
		start   int
	}{
		{name: "missing semicolon", src: "void f() { int x = 1 }", message: "expected ';'", start: 20},
		{name: "missing expression", src: "int x = ;", message: "expected expression", start: 7},
		{name: "stray brace", src: "}\nint x;", message: "expected declaration, found '}'", start: 0},
		{name: "bad statement", src: "void f() { ) ; }", message: "expected statement, found ')'", start: 11},
		{name: "missing paren", src: "void f() { if (x { } }", message: "expected ')'", start: 16},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			errs := parse(t, testCase.src).Errors()
			require.NotEmpty(t, errs)
			assert.Equal(t, testCase.message, errs[0].Message)
			assert.Equal(t, testCase.start, errs[0].Start)
		})
	}
}

func TestUnterminatedBlockRecovers(t *testing.T) {
	t.Parallel()

	tree := parse(t, "void f() {\n\tint x;\n\npublic void g() {}\n")
	assert.Len(t, syntax.FindByKind(tree.Cursor(), syntax.NodeFunction), 2)
	errs := tree.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "expected '}'", errs[0].Message)
}

func TestRoundTripMalformed(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"}}}",
		"void f( {",
		"enum { A B C",
		"methodmap M < { public ~M() {} property }",
		"int x = (((1;",
		"typedef T = ;",
		"switch (x) { foo; case }",
		"\"unterminated\nint y;",
		"public Action:F(&a, const String:b[], any:...) = G;",
	}
	for _, src := range inputs {
		tree := syntax.Parse(lexer.Tokenize(src))
		assert.Equal(t, src, tree.Text(), "input %q", src)
	}
}

func TestDeepNestingIsBounded(t *testing.T) {
	t.Parallel()

	src := "int x = " + strings.Repeat("(", 5000) + "1" + strings.Repeat(")", 5000) + ";"
	tree := parse(t, src)
	errs := tree.Errors()
	require.NotEmpty(t, errs)
	assert.Equal(t, "expression nested too deeply", errs[0].Message)
}

func TestCursorNavigation(t *testing.T) {
	t.Parallel()

	src := "int value = other;"
	tree := parse(t, src)
	offset := strings.Index(src, "other") + 2
	ref, ok := tree.Cursor().TokenAt(offset)
	require.True(t, ok)
	assert.Equal(t, "other", ref.Token.Text)
	assert.Equal(t, 12, ref.Start)
	assert.Equal(t, 17, ref.End)

	var kinds []syntax.NodeKind
	for _, c := range ref.Parent.Ancestors() {
		kinds = append(kinds, c.Kind())
	}
	assert.Equal(t, []syntax.NodeKind{
		syntax.NodeName, syntax.NodeDeclarator, syntax.NodeVarDecl, syntax.NodeFile,
	}, kinds)
	assert.NotNil(t, ref.Parent.Enclosing(syntax.NodeVarDecl))

	decl := tree.Cursor().Child(syntax.NodeVarDecl)
	start, end := decl.TextRange()
	assert.Equal(t, 0, start)
	assert.Equal(t, len(src), end)

	// The end of a token's text still hits it.
	ref, ok = tree.Cursor().TokenAt(9)
	require.True(t, ok)
	assert.Equal(t, "value", ref.Token.Text)
}

func TestReparseMatchesFullParse(t *testing.T) {
	t.Parallel()

	base := "void a() { int x = 1; }\n\nvoid b() { int y = 2; }\n\nvoid c() { int z = 3; }\n"

	tests := []struct {
		name      string
		edited    string
		minReused int
	}{
		{name: "edit middle", edited: strings.Replace(base, "y = 2", "y = 2 + 40", 1), minReused: 2},
		{name: "insert item", edited: strings.Replace(base, "\n\nvoid c", "\n\nint g;\n\nvoid c", 1), minReused: 2},
		{name: "delete item", edited: strings.Replace(base, "void b() { int y = 2; }\n\n", "", 1), minReused: 1},
		{name: "edit first", edited: strings.Replace(base, "x = 1", "x = 10", 1), minReused: 2},
		{name: "edit last", edited: strings.Replace(base, "z = 3", "z = 30", 1), minReused: 2},
		{name: "break braces", edited: strings.Replace(base, "int y = 2; }", "int y = 2;", 1), minReused: 1},
		{name: "unchanged", edited: base, minReused: 2},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			old := syntax.Parse(lexer.Tokenize(base))
			tokens := lexer.Tokenize(testCase.edited)
			got := syntax.Reparse(old, tokens)
			want := syntax.Parse(tokens)

			assert.Equal(t, testCase.edited, got.Text())
			assert.True(t, syntax.Equal(want.Root, got.Root))
			assert.GreaterOrEqual(t, got.Reused, testCase.minReused)
			assert.Equal(t, want.Errors(), got.Errors())
		})
	}
}

func TestReparseSharesUnchangedItems(t *testing.T) {
	t.Parallel()

	base := "void a() {}\n\nvoid b() { f(1); }\n\nvoid c() {}\n"
	old := syntax.Parse(lexer.Tokenize(base))
	got := syntax.Reparse(old, lexer.Tokenize(strings.Replace(base, "f(1)", "f(1, 2)", 1)))

	oldItems := old.Root.Children()
	newItems := got.Root.Children()
	require.Len(t, newItems, len(oldItems))
	assert.Same(t, oldItems[0].Node(), newItems[0].Node())
	assert.NotSame(t, oldItems[1].Node(), newItems[1].Node())
	assert.Same(t, oldItems[2].Node(), newItems[2].Node())
	assert.Equal(t, 2, got.Reused)
}

func TestReparseAfterDeletingItemWithSameLeadingTokens(t *testing.T) {
	t.Parallel()

	base := "void a() {}\nvoid b() {}\nvoid c() {}\n"
	old := syntax.Parse(lexer.Tokenize(base))
	tokens := lexer.Tokenize("void a() {}\nvoid c() {}\n")
	got := syntax.Reparse(old, tokens)

	require.True(t, syntax.Equal(syntax.Parse(tokens).Root, got.Root))
	oldItems := old.Root.Children()
	newItems := got.Root.Children()
	require.Len(t, newItems, 3)
	assert.Same(t, oldItems[2].Node(), newItems[1].Node())
	assert.Equal(t, 1, got.Reused)
}

func TestReparseIsIdempotent(t *testing.T) {
	t.Parallel()

	tokens := lexer.Tokenize(plugin)
	first := syntax.Parse(tokens)
	second := syntax.Reparse(first, lexer.Tokenize(plugin))
	assert.True(t, syntax.Equal(first.Root, second.Root))
}

func TestWalkSkipChildren(t *testing.T) {
	t.Parallel()

	tree := parse(t, "void f() { int a; { int b; } }")
	var decls int
	err := syntax.Walk(tree.Cursor(), func(c *syntax.Cursor) error {
		switch c.Kind() {
		case syntax.NodeVarDecl:
			decls++
		case syntax.NodeBlock:
			if c.Parent().Kind() == syntax.NodeBlock {
				return syntax.SkipChildren
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, decls)
}
