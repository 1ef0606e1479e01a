// Package fsutil reads workspace files from disk or from an fs.FS and writes
// generated output atomically.
package fsutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/zeebo/xxh3"
)

// MaxFileSize bounds the files a workspace loads. Larger files are build
// artifacts or data, not SourcePawn someone edits.
const MaxFileSize = 16 << 20

var (
	ErrNotFound         = errors.New("file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrIsDirectory      = errors.New("path is a directory")
	ErrTooLarge         = errors.New("file too large")
)

// FileInfo describes a file as it was when ReadFile read it.
type FileInfo struct {
	Path    string
	Mode    os.FileMode
	ModTime time.Time
	Size    int64

	// Hash is the xxh3 hash of the content.
	Hash uint64
}

// ReadFile reads the file at path. Failures wrap one of the package's
// sentinel errors where one applies.
func ReadFile(ctx context.Context, path string) ([]byte, *FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("read file: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, classify(path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, classify(path, err)
	}
	if err := checkSize(path, stat); err != nil {
		return nil, nil, err
	}

	content, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, nil, classify(path, err)
	}
	if len(content) > MaxFileSize {
		return nil, nil, fmt.Errorf("%w: %s", ErrTooLarge, path)
	}

	return content, &FileInfo{
		Path:    path,
		Mode:    stat.Mode(),
		ModTime: stat.ModTime(),
		Size:    int64(len(content)),
		Hash:    xxh3.Hash(content),
	}, nil
}

func checkSize(path string, stat fs.FileInfo) error {
	switch {
	case stat.IsDir():
		return fmt.Errorf("%w: %s", ErrIsDirectory, path)
	case stat.Size() > MaxFileSize:
		return fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, stat.Size())
	}
	return nil
}

func classify(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s: %w", ErrPermissionDenied, path, err)
	}
	return fmt.Errorf("read %s: %w", path, err)
}
