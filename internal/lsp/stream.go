package lsp

import (
	"errors"
	"io"
)

// Stream joins a reader and a writer, such as stdin and stdout, into the
// connection a jsonrpc2 stream runs over.
type Stream struct {
	io.ReadCloser
	io.WriteCloser
}

func (s *Stream) Read(p []byte) (int, error) {
	return s.ReadCloser.Read(p)
}

func (s *Stream) Write(p []byte) (int, error) {
	return s.WriteCloser.Write(p)
}

// Close closes both halves.
func (s *Stream) Close() error {
	return errors.Join(s.ReadCloser.Close(), s.WriteCloser.Close())
}
