package store

import (
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/lexer"
	"github.com/yaklabco/pawnls/pkg/preproc"
	"github.com/yaklabco/pawnls/pkg/symbols"
	"github.com/yaklabco/pawnls/pkg/syntax"
)

// Artifact names one product of the per-file pipeline.
type Artifact int

const (
	ArtifactText Artifact = iota
	ArtifactTokens
	ArtifactPreprocessed
	ArtifactTree
	ArtifactSymbols
	ArtifactDiagnostics
)

var artifactNames = [...]string{
	ArtifactText:         "text",
	ArtifactTokens:       "tokens",
	ArtifactPreprocessed: "preprocessed",
	ArtifactTree:         "tree",
	ArtifactSymbols:      "symbols",
	ArtifactDiagnostics:  "diagnostics",
}

func (a Artifact) String() string {
	if int(a) < len(artifactNames) {
		return artifactNames[a]
	}
	return "unknown"
}

// Snapshot is everything computed for one revision of a file. Snapshots are
// never modified after they are published; a newer revision replaces the
// whole value.
type Snapshot struct {
	URI uri.URI

	// Revision is the store revision the snapshot was computed from.
	Revision uint64

	// Version is the editor version of the text, or zero for files read
	// from disk.
	Version int32

	// Hash is the xxh3 hash of Text.
	Hash uint64

	Text string

	// Raw holds the scanner tokens of Text, the base for relexing the next
	// edit.
	Raw []lexer.RawToken

	Preprocessed *preproc.Result
	Tree         *syntax.Tree
	Table        *symbols.Table

	// Diagnostics holds the file's own diagnostics from every stage.
	Diagnostics []diag.Diagnostic
}

// Artifact returns one field of the snapshot by kind.
func (s *Snapshot) Artifact(kind Artifact) any {
	switch kind {
	case ArtifactText:
		return s.Text
	case ArtifactTokens:
		return s.Raw
	case ArtifactPreprocessed:
		return s.Preprocessed
	case ArtifactTree:
		return s.Tree
	case ArtifactSymbols:
		return s.Table
	case ArtifactDiagnostics:
		return s.Diagnostics
	}
	return nil
}

// restamp returns a copy of s carrying a newer revision and version. Only
// used when the text is unchanged.
func (s *Snapshot) restamp(revision uint64, version int32) *Snapshot {
	next := *s
	next.Revision = revision
	next.Version = version
	return &next
}
