package runner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/pawnls/pkg/runner"
)

// writeTree creates files under dir; keys are slash-separated paths.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("setup mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("setup write: %v", err)
		}
	}
}

func TestDiscover_SingleFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"plugin.sp": "int x;\n"})
	path := filepath.Join(dir, "plugin.sp")

	files, err := runner.Discover(context.Background(), runner.Options{Paths: []string{path}, WorkingDir: dir})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(files) != 1 || files[0] != path {
		t.Fatalf("Discover() = %v, want [%s]", files, path)
	}
}

func TestDiscover_Directory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"plugin.sp":               "int x;\n",
		"include/util.inc":        "native void Util();\n",
		"include/page.inc":        "<?php echo 1;",
		"README.md":               "# plugin",
		".git/hooks/pre.sp":       "int y;\n",
		"scripting/other.sp":      "int z;\n",
		"scripting/.hidden.sp":    "int w;\n",
		"scripting/compiled.smx":  "binary",
		"scripting/include/a.inc": "",
	})

	tests := []struct {
		name     string
		opts     runner.Options
		expected []string
	}{
		{
			name: "defaults",
			opts: runner.Options{},
			expected: []string{
				"include/page.inc", "include/util.inc", "plugin.sp",
				"scripting/include/a.inc", "scripting/other.sp",
			},
		},
		{
			name: "sniffing drops other languages",
			opts: runner.Options{Sniff: true},
			expected: []string{
				"include/util.inc", "plugin.sp",
				"scripting/include/a.inc", "scripting/other.sp",
			},
		},
		{
			name:     "exclude directory",
			opts:     runner.Options{ExcludeGlobs: []string{"scripting/**"}},
			expected: []string{"include/page.inc", "include/util.inc", "plugin.sp"},
		},
		{
			name:     "exclude by base name",
			opts:     runner.Options{ExcludeGlobs: []string{"*.inc"}},
			expected: []string{"plugin.sp", "scripting/other.sp"},
		},
		{
			name:     "include globs",
			opts:     runner.Options{IncludeGlobs: []string{"**/*.sp"}},
			expected: []string{"scripting/other.sp"},
		},
		{
			name:     "custom extensions",
			opts:     runner.Options{Extensions: []string{".SP"}},
			expected: []string{"plugin.sp", "scripting/other.sp"},
		},
		{
			name:     "multiple paths deduplicated",
			opts:     runner.Options{Paths: []string{"scripting", "scripting/other.sp", "."}, ExcludeGlobs: []string{"include/**"}},
			expected: []string{"plugin.sp", "scripting/include/a.inc", "scripting/other.sp"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			opts := tc.opts
			opts.WorkingDir = dir
			files, err := runner.Discover(context.Background(), opts)
			require.NoError(t, err)

			want := make([]string, 0, len(tc.expected))
			for _, e := range tc.expected {
				want = append(want, filepath.Join(dir, filepath.FromSlash(e)))
			}
			assert.Equal(t, want, files)
		})
	}
}

func TestDiscover_NonExistentPath(t *testing.T) {
	t.Parallel()

	_, err := runner.Discover(context.Background(), runner.Options{
		Paths:      []string{"missing"},
		WorkingDir: t.TempDir(),
	})
	require.Error(t, err)
}

func TestDiscover_ContextCancellation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.sp": ""})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runner.Discover(ctx, runner.Options{WorkingDir: dir})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDiscover_DirectorySymlinks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outside := t.TempDir()
	writeTree(t, dir, map[string]string{"plugin.sp": ""})
	writeTree(t, outside, map[string]string{"shared.inc": ""})
	if err := os.Symlink(outside, filepath.Join(dir, "shared")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	files, err := runner.Discover(context.Background(), runner.Options{WorkingDir: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "plugin.sp")}, files)

	files, err = runner.Discover(context.Background(), runner.Options{WorkingDir: dir, FollowSymlinks: true})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
