package fsutil_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/xxh3"

	"github.com/yaklabco/pawnls/pkg/fsutil"
)

func TestReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.sp")
	content := []byte("public void OnPluginStart()\n{\n}\n")
	require.NoError(t, os.WriteFile(path, content, 0o640))

	got, info, err := fsutil.ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, path, info.Path)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, os.FileMode(0o640), info.Mode.Perm())
	assert.Equal(t, xxh3.Hash(content), info.Hash)
	assert.False(t, info.ModTime.IsZero())
}

func TestReadFile_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	large := filepath.Join(dir, "huge.inc")
	require.NoError(t, os.WriteFile(large, nil, 0o644))
	require.NoError(t, os.Truncate(large, fsutil.MaxFileSize+1))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		path string
		want error
	}{
		{name: "missing", ctx: context.Background(), path: filepath.Join(dir, "missing.sp"), want: fsutil.ErrNotFound},
		{name: "directory", ctx: context.Background(), path: dir, want: fsutil.ErrIsDirectory},
		{name: "too large", ctx: context.Background(), path: large, want: fsutil.ErrTooLarge},
		{name: "cancelled", ctx: cancelled, path: large, want: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, info, err := fsutil.ReadFile(tt.ctx, tt.path)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, info)
		})
	}
}
