package fsutil_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/zeebo/xxh3"

	"github.com/yaklabco/pawnls/pkg/fsutil"
)

func FuzzWriteThenRead(f *testing.F) {
	f.Add([]byte(""))
	f.Add([]byte("#include <sourcemod>\n"))
	f.Add([]byte("#define F(%1) (%1 * 2)\r\n"))
	f.Add([]byte("\x00\x01\xff"))
	f.Add(make([]byte, 1024))

	f.Fuzz(func(t *testing.T, content []byte) {
		path := filepath.Join(t.TempDir(), "plugin.sp")
		ctx := context.Background()

		written, err := fsutil.WriteAtomicIfChanged(ctx, path, content, 0)
		if err != nil || !written {
			t.Fatalf("first write: written=%v err=%v", written, err)
		}
		got, info, err := fsutil.ReadFile(ctx, path)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if string(got) != string(content) || info.Hash != xxh3.Hash(content) {
			t.Fatalf("round trip changed the content")
		}
		if written, err := fsutil.WriteAtomicIfChanged(ctx, path, content, 0); err != nil || written {
			t.Fatalf("second write: written=%v err=%v", written, err)
		}
	})
}
