package fsutil

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Source reads the files a workspace is built from. Paths are absolute
// OS paths.
type Source interface {
	ReadFile(ctx context.Context, path string) (string, error)
	Exists(path string) bool
}

// OSSource reads from the local file system.
type OSSource struct{}

// ReadFile implements Source.
func (OSSource) ReadFile(ctx context.Context, path string) (string, error) {
	content, _, err := ReadFile(ctx, path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// Exists implements Source.
func (OSSource) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// FSSource serves absolute paths from an fs.FS whose root stands for "/".
type FSSource struct {
	FS fs.FS
}

func (s FSSource) name(path string) string {
	name := strings.TrimPrefix(filepath.ToSlash(filepath.Clean(path)), "/")
	if name == "" {
		return "."
	}
	return name
}

// ReadFile implements Source.
func (s FSSource) ReadFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	name := s.name(path)
	stat, err := fs.Stat(s.FS, name)
	if err != nil {
		return "", classify(path, err)
	}
	if err := checkSize(path, stat); err != nil {
		return "", err
	}
	content, err := fs.ReadFile(s.FS, name)
	if err != nil {
		return "", classify(path, err)
	}
	return string(content), nil
}

// Exists implements Source.
func (s FSSource) Exists(path string) bool {
	info, err := fs.Stat(s.FS, s.name(path))
	return err == nil && !info.IsDir()
}
