package source_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/pawnls/pkg/source"
)

func TestBuildLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		expected []source.LineInfo
	}{
		{
			name:     "empty content",
			content:  "",
			expected: []source.LineInfo{{StartOffset: 0, NewlineStart: 0, EndOffset: 0}},
		},
		{
			name:    "single line no newline",
			content: "new x;",
			expected: []source.LineInfo{
				{StartOffset: 0, NewlineStart: 6, EndOffset: 6},
			},
		},
		{
			name:    "CRLF",
			content: "a\r\nb",
			expected: []source.LineInfo{
				{StartOffset: 0, NewlineStart: 1, EndOffset: 3},
				{StartOffset: 3, NewlineStart: 4, EndOffset: 4},
			},
		},
		{
			name:    "trailing newline",
			content: "a\n",
			expected: []source.LineInfo{
				{StartOffset: 0, NewlineStart: 1, EndOffset: 2},
				{StartOffset: 2, NewlineStart: 2, EndOffset: 2},
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.expected, source.BuildLines(testCase.content))
		})
	}
}

func TestLineIndexRoundTrip(t *testing.T) {
	t.Parallel()

	content := "#include <sourcemod>\r\n\npublic void OnPluginStart()\n{\n}"
	idx := source.NewLineIndex(content)

	require.Equal(t, 5, idx.LineCount())
	assert.Equal(t, "public void OnPluginStart()", idx.Line(3))

	for offset := range len(content) {
		pos := idx.Position(offset)
		require.True(t, pos.IsValid(), "offset %d", offset)
		if content[offset] == '\n' {
			continue
		}
		back, ok := idx.Offset(pos)
		require.True(t, ok, "offset %d -> %s", offset, pos)
		assert.Equal(t, offset, back)
	}
}

func TestLineIndexClampsPastEnd(t *testing.T) {
	t.Parallel()

	idx := source.NewLineIndex("ab\ncd")
	assert.Equal(t, source.Position{Line: 2, Column: 3}, idx.Position(100))

	_, ok := idx.Offset(source.Position{Line: 9, Column: 1})
	assert.False(t, ok)
}

func TestRangeContains(t *testing.T) {
	t.Parallel()

	rng := source.Range{
		Start: source.Position{Line: 2, Column: 5},
		End:   source.Position{Line: 2, Column: 8},
	}

	assert.True(t, rng.Contains(source.Position{Line: 2, Column: 5}))
	assert.True(t, rng.Contains(source.Position{Line: 2, Column: 8}))
	assert.False(t, rng.Contains(source.Position{Line: 2, Column: 9}))
	assert.False(t, rng.Contains(source.Position{Line: 1, Column: 6}))
}
