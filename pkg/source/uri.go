package source

import (
	"path/filepath"

	"go.lsp.dev/uri"
)

// FileURI converts a filesystem path into a normalized file URI.
func FileURI(path string) uri.URI {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return uri.File(filepath.Clean(path))
}

// Path returns the filesystem path of a file URI.
func Path(u uri.URI) string {
	return u.Filename()
}

// Dir returns the directory containing the file named by u.
func Dir(u uri.URI) string {
	return filepath.Dir(u.Filename())
}
