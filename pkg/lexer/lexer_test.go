package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/pawnls/pkg/lexer"
)

const plugin = `#include <sourcemod>
#define MAX_PLAYERS 64 // players

/* plugin
   info */
public Plugin myinfo = { name = "demo" };

public void OnPluginStart()
{
	int x = 0x1F + 2.5e3 - 'a';
	PrintToServer("hi \"there\"");
}
`

func kinds(src string) []lexer.Kind {
	raw := lexer.Scan(src)
	out := make([]lexer.Kind, 0, len(raw))
	for _, tok := range raw {
		if !tok.Kind.IsTrivia() {
			out = append(out, tok.Kind)
		}
	}
	return out
}

func TestScanKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		expected []lexer.Kind
	}{
		{
			name:     "directive",
			src:      "#define X 1",
			expected: []lexer.Kind{lexer.KindDirective, lexer.KindIdent, lexer.KindInt},
		},
		{
			name:     "keywords and idents",
			src:      "public void Foo()",
			expected: []lexer.Kind{lexer.KindKeyword, lexer.KindKeyword, lexer.KindIdent, lexer.KindLParen, lexer.KindRParen},
		},
		{
			name:     "numbers",
			src:      "1 0xFF 1.5 2e10 0b101",
			expected: []lexer.Kind{lexer.KindInt, lexer.KindInt, lexer.KindFloat, lexer.KindFloat, lexer.KindInt},
		},
		{
			name:     "scope and ellipsis",
			src:      "a::b ...",
			expected: []lexer.Kind{lexer.KindIdent, lexer.KindScope, lexer.KindIdent, lexer.KindEllipsis},
		},
		{
			name:     "operators longest match",
			src:      "a >>>= b",
			expected: []lexer.Kind{lexer.KindIdent, lexer.KindOperator, lexer.KindIdent},
		},
		{
			name:     "unknown byte",
			src:      "a $ b",
			expected: []lexer.Kind{lexer.KindIdent, lexer.KindUnknown, lexer.KindIdent},
		},
		{
			name:     "unterminated string",
			src:      "\"abc\nx",
			expected: []lexer.Kind{lexer.KindUnknown, lexer.KindIdent},
		},
		{
			name:     "char literal",
			src:      "'\\n'",
			expected: []lexer.Kind{lexer.KindChar},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.expected, kinds(testCase.src))
		})
	}
}

func TestScanCoversEveryByte(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		plugin,
		"\"unterminated",
		"/* never closed",
		"x\\\ny",
		"\r\n\r\r\n",
		"héllo wörld ✓",
		"#\x00\xff#if",
	}

	for _, src := range inputs {
		raw := lexer.Scan(src)
		require.True(t, lexer.ValidateTokens(raw, len(src)), "input %q", src)
	}
}

func TestTokenizeRoundTrip(t *testing.T) {
	t.Parallel()

	tokens := lexer.Tokenize(plugin)
	require.NotEmpty(t, tokens)
	assert.Equal(t, lexer.KindEOF, tokens[len(tokens)-1].Kind)
	assert.Equal(t, plugin, lexer.Concat(tokens))
}

func TestTriviaAttachment(t *testing.T) {
	t.Parallel()

	tokens := lexer.Tokenize("a; // note\n  b")
	require.Len(t, tokens, 4)

	semi := tokens[1]
	require.Equal(t, ";", semi.Text)
	require.Len(t, semi.Trailing, 2)
	assert.Equal(t, lexer.KindLineComment, semi.Trailing[1].Kind)

	b := tokens[2]
	require.Equal(t, "b", b.Text)
	require.Len(t, b.Leading, 2)
	assert.Equal(t, lexer.KindNewline, b.Leading[0].Kind)
}

func TestScannerRestart(t *testing.T) {
	t.Parallel()

	src := "int a = b + c;"
	all := lexer.Scan(src)

	scanner := lexer.NewScanner(src)
	scanner.Reset(all[4].StartOffset)
	for _, want := range all[4:] {
		assert.Equal(t, want, scanner.Next())
	}
	assert.Equal(t, lexer.KindEOF, scanner.Next().Kind)
}

func TestRelexMatchesFullScan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		start  int
		end    int
		insert string
	}{
		{name: "insert inside identifier", start: 45, end: 45, insert: "zz"},
		{name: "delete a line", start: 21, end: 51, insert: ""},
		{name: "open block comment", start: 0, end: 0, insert: "/*"},
		{name: "replace in body", start: len(plugin) - 30, end: len(plugin) - 20, insert: "Foo(1, 2)"},
		{name: "append at end", start: len(plugin), end: len(plugin), insert: "\nstock int Bar() { return 1; }"},
		{name: "split operator", start: len(plugin) - 60, end: len(plugin) - 60, insert: ">"},
	}

	old := lexer.Scan(plugin)
	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			newSrc := plugin[:testCase.start] + testCase.insert + plugin[testCase.end:]
			got := lexer.Relex(old, newSrc, testCase.start, testCase.end, testCase.start+len(testCase.insert))
			assert.Equal(t, lexer.Scan(newSrc), got)
		})
	}
}
