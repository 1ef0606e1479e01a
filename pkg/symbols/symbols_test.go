package symbols_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/pawnls/pkg/preproc"
	"github.com/yaklabco/pawnls/pkg/source"
	"github.com/yaklabco/pawnls/pkg/symbols"
	"github.com/yaklabco/pawnls/pkg/syntax"
)

func index(t *testing.T, src string) *symbols.Table {
	t.Helper()
	res := preproc.Run(preproc.Options{URI: source.FileURI("/ws/a.sp")}, src, nil)
	tree := syntax.Parse(res.Tokens)
	return symbols.Index(res, tree)
}

func find(t *testing.T, table *symbols.Table, qualified string) *symbols.Symbol {
	t.Helper()
	for _, sym := range table.Symbols {
		if sym.QualifiedName() == qualified {
			return sym
		}
	}
	require.Failf(t, "symbol not found", "%s", qualified)
	return nil
}

const declarations = `#include <sourcemod>
#define MAX_ITEMS 32

enum Color { Red, Green }

enum struct Point {
	int x;
	int Get() { return this.x; }
}

methodmap Timer < Handle {
	public Timer(float interval) { return view_as<Timer>(null); }
	property int Ticks {
		public get() { return 0; }
	}
	public native void Kill();
}

typedef Callback = function void (int client);

native int GetCount(const char[] name, int &out, any ...);
forward void OnReady();
static int g_hidden;
const int LIMIT = 4;
public Action:Cmd(client, args = 0) { return Plugin_Handled; }
`

func TestIndexDeclarations(t *testing.T) {
	t.Parallel()

	table := index(t, declarations)

	tests := []struct {
		name string
		kind symbols.Kind
	}{
		{name: "MAX_ITEMS", kind: symbols.KindDefine},
		{name: "Color", kind: symbols.KindEnum},
		{name: "Color.Red", kind: symbols.KindEnumMember},
		{name: "Point", kind: symbols.KindEnumStruct},
		{name: "Point.x", kind: symbols.KindField},
		{name: "Point.Get", kind: symbols.KindMethod},
		{name: "Timer", kind: symbols.KindMethodmap},
		{name: "Timer.Timer", kind: symbols.KindMethod},
		{name: "Timer.Ticks", kind: symbols.KindProperty},
		{name: "Timer.Kill", kind: symbols.KindMethod},
		{name: "Callback", kind: symbols.KindTypedef},
		{name: "GetCount", kind: symbols.KindNative},
		{name: "OnReady", kind: symbols.KindForward},
		{name: "g_hidden", kind: symbols.KindGlobal},
		{name: "LIMIT", kind: symbols.KindConstant},
		{name: "Cmd", kind: symbols.KindFunction},
		{name: "sourcemod", kind: symbols.KindInclude},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			sym := find(t, table, testCase.name)
			assert.Equal(t, testCase.kind, sym.Kind)
		})
	}

	assert.Equal(t, "Handle", find(t, table, "Timer").Type)
	assert.Equal(t, symbols.VisibilityStatic, find(t, table, "g_hidden").Visibility)
	assert.Empty(t, table.Diagnostics)

	// Enum members are reachable by their bare name.
	require.Len(t, table.Lookup("Red"), 1)
	assert.Empty(t, table.Lookup("x"))
}

func TestSignatures(t *testing.T) {
	t.Parallel()

	table := index(t, declarations)

	native := find(t, table, "GetCount")
	require.NotNil(t, native.Signature)
	assert.Equal(t, "int GetCount(const char[] name, int &out, any ...)", native.Signature.Format("GetCount"))
	assert.Equal(t, "native int GetCount(const char[] name, int &out, any ...)", native.Detail)
	assert.True(t, native.Signature.Accepts(2))
	assert.True(t, native.Signature.Accepts(5))
	assert.False(t, native.Signature.Accepts(1))

	cmd := find(t, table, "Cmd")
	assert.Equal(t, "Action", cmd.Signature.Return)
	assert.Equal(t, 1, cmd.Signature.MinArgs())
	assert.True(t, cmd.Signature.Accepts(2))
	assert.False(t, cmd.Signature.Accepts(3))
	assert.Equal(t, "0", cmd.Signature.Params[1].Default)

	cb := find(t, table, "Callback")
	require.NotNil(t, cb.Signature)
	assert.Equal(t, "void", cb.Signature.Return)
	assert.Len(t, cb.Signature.Params, 1)
}

func TestDocComments(t *testing.T) {
	t.Parallel()

	table := index(t, `/**
 * Returns the answer.
 *
 * @return 42
 */
stock int Answer() { return 42; }

// Not attached: a blank line follows.

#pragma deprecated Use Answer instead
stock int OldAnswer() { return 42; }
`)

	answer := find(t, table, "Answer")
	assert.Equal(t, "Returns the answer.\n\n@return 42", answer.Doc)
	assert.Equal(t, "Returns the answer.", symbols.Summary(answer.Doc))
	assert.False(t, answer.Deprecated)

	old := find(t, table, "OldAnswer")
	assert.Empty(t, old.Doc)
	assert.True(t, old.Deprecated)
	assert.Equal(t, "Use Answer instead", old.DeprecationNote)
}

func TestSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "empty", doc: "", want: ""},
		{name: "single line", doc: "Kills the timer.", want: "Kills the timer."},
		{name: "wrapped", doc: "Kills the\ntimer.\n\nMore.", want: "Kills the timer."},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.want, symbols.Summary(testCase.doc))
		})
	}
}

const scoped = `int g;
void F(int a) {
	int b = a + g;
	{ int c = b; }
	for (int i = 0; i < b; i++) { b += i; }
}
`

func TestLocalsStayLocal(t *testing.T) {
	t.Parallel()

	table := index(t, scoped)
	var names []string
	for _, sym := range table.Symbols {
		names = append(names, sym.Name)
	}
	assert.Equal(t, []string{"g", "F"}, names)
	assert.Len(t, table.Exported(), 2)
}

func TestReferenceScopes(t *testing.T) {
	t.Parallel()

	table := index(t, scoped)

	// Offsets equal document offsets: the file has no macros.
	offset := strings.Index(scoped, "a + g")
	ref, ok := table.ReferenceAt(offset)
	require.True(t, ok)
	assert.Equal(t, "a", ref.Name)
	syms, local := ref.Chain().Lookup("a")
	require.Len(t, syms, 1)
	assert.True(t, local)
	assert.Equal(t, symbols.KindParameter, syms[0].Kind)

	ref, ok = table.ReferenceAt(offset + 4)
	require.True(t, ok)
	assert.Equal(t, "g", ref.Name)
	syms, local = ref.Chain().Lookup("g")
	require.Len(t, syms, 1)
	assert.False(t, local)

	var kinds []symbols.ScopeKind
	for _, s := range table.ScopeAt(strings.Index(scoped, "c = b")).Chain() {
		kinds = append(kinds, s.Kind)
	}
	assert.Equal(t, []symbols.ScopeKind{symbols.ScopeBlock, symbols.ScopeFunction, symbols.ScopeFile}, kinds)

	// The loop variable is not visible outside the loop.
	after := table.ScopeAt(strings.Index(scoped, "{ int c"))
	syms, _ = after.Chain().Lookup("i")
	assert.Empty(t, syms)

	decl := table.DeclarationAt(strings.Index(scoped, "c = b"))
	require.NotNil(t, decl)
	assert.Equal(t, symbols.KindLocal, decl.Kind)
}

func TestRedeclaration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		src   string
		count int
	}{
		{name: "local twice", src: "void F() { int x; int x; }", count: 1},
		{name: "global twice", src: "int g;\nint g;", count: 1},
		{name: "param and local", src: "void F(int a) { int a; }", count: 1},
		{name: "shadowing in block", src: "void F() { int x; { int x; } }", count: 0},
		{name: "forward and definition", src: "forward void H();\npublic void H() {}", count: 0},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			table := index(t, testCase.src)
			assert.Len(t, table.Diagnostics, testCase.count)
			for _, d := range table.Diagnostics {
				assert.Equal(t, symbols.CodeRedeclared, d.Code)
				assert.Len(t, d.Related, 1)
			}
		})
	}
}

func TestMemberReferences(t *testing.T) {
	t.Parallel()

	src := `methodmap Timer < Handle { public void Kill() {} }
enum struct P { int x; int Get() { return this.x; } }
void F(Timer t) { t.Kill(); }
`
	table := index(t, src)

	ref, ok := table.ReferenceAt(strings.Index(src, "Kill();"))
	require.True(t, ok)
	assert.Equal(t, "Kill", ref.Name)
	assert.Equal(t, symbols.QualifierMember, ref.Qualifier)
	assert.Equal(t, "t", ref.Receiver)
	assert.Equal(t, "Timer", ref.ReceiverType)
	assert.True(t, ref.IsCall())
	assert.Equal(t, 0, ref.Args)

	ref, ok = table.ReferenceAt(strings.Index(src, "x; } }"))
	require.True(t, ok)
	assert.Equal(t, "P", ref.ReceiverType)

	ref, ok = table.ReferenceAt(strings.Index(src, "Handle"))
	require.True(t, ok)
	assert.True(t, ref.Type)
}

func TestMacroReferences(t *testing.T) {
	t.Parallel()

	src := "#define MAX 10\nint x = MAX;\n"
	table := index(t, src)

	def := find(t, table, "MAX")
	assert.Equal(t, "#define MAX 10", def.Detail)

	var macroRefs []symbols.Reference
	for _, ref := range table.References {
		if ref.Macro {
			macroRefs = append(macroRefs, ref)
		}
	}
	require.Len(t, macroRefs, 1)
	assert.Equal(t, "MAX", macroRefs[0].Name)
	assert.Equal(t, strings.LastIndex(src, "MAX"), macroRefs[0].Span.Start)
}

func TestFingerprintIgnoresBodies(t *testing.T) {
	t.Parallel()

	base := index(t, "void F() { int x = 1; }\nvoid G() {}\n")
	body := index(t, "void F() {\n\tint x = 2;\n\tx++;\n}\nvoid G() {}\n")
	sig := index(t, "void F(int y) { int x = 1; }\nvoid G() {}\n")
	macro := index(t, "#define N 1\nvoid F() { int x = 1; }\nvoid G() {}\n")

	assert.Equal(t, base.Fingerprint(), body.Fingerprint())
	assert.NotEqual(t, base.Fingerprint(), sig.Fingerprint())
	assert.Equal(t, base.Fingerprint(), macro.Fingerprint())
	assert.NotEqual(t, base.MacroFingerprint(), macro.MacroFingerprint())
}
