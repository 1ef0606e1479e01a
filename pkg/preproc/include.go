package preproc

import (
	"path"
	"path/filepath"
	"strings"

	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/source"
)

// Include is one #include or #tryinclude directive.
type Include struct {
	// Path is the include path as written, without delimiters.
	Path string

	// Resolved is the included file, or empty when it was not found.
	Resolved uri.URI

	// Span covers the path text; DirectiveSpan covers the whole line.
	Span          source.Span
	DirectiveSpan source.Span

	// Optional is set for #tryinclude.
	Optional bool

	// Angled is set for <path> includes.
	Angled bool
}

// IsResolved reports whether the include was found.
func (i Include) IsResolved() bool {
	return i.Resolved != ""
}

// Resolver locates included files.
type Resolver interface {
	ResolveInclude(from uri.URI, includePath string) (uri.URI, bool)
}

// ExistsFunc reports whether a regular file exists at path.
type ExistsFunc func(path string) bool

// PathResolver resolves includes relative to the including file first and
// then against each include root in order. The first match wins.
type PathResolver struct {
	Roots  []string
	Exists ExistsFunc
}

// Extensions tried, in order, when an include path has no extension.
var includeExtensions = []string{".inc", ".sp"}

// ResolveInclude implements Resolver.
func (r PathResolver) ResolveInclude(from uri.URI, includePath string) (uri.URI, bool) {
	if includePath == "" || r.Exists == nil {
		return "", false
	}

	dirs := make([]string, 0, len(r.Roots)+1)
	if from != "" {
		dirs = append(dirs, source.Dir(from))
	}
	dirs = append(dirs, r.Roots...)

	rel := filepath.FromSlash(includePath)
	for _, dir := range dirs {
		for _, candidate := range candidates(filepath.Join(dir, rel)) {
			if r.Exists(candidate) {
				return uri.File(candidate), true
			}
		}
	}
	return "", false
}

func candidates(base string) []string {
	ext := strings.ToLower(path.Ext(filepath.ToSlash(base)))
	if ext == ".inc" || ext == ".sp" {
		return []string{base}
	}
	out := make([]string, 0, len(includeExtensions)+1)
	for _, e := range includeExtensions {
		out = append(out, base+e)
	}
	return append(out, base)
}

// MacroSource supplies the macro table a resolved include exports. Stack is
// the chain of files currently being preprocessed, outermost first;
// implementations return nil for files already on the stack.
type MacroSource interface {
	MacrosOf(target uri.URI, stack []uri.URI) Table
}

// MacroSourceFunc adapts a function to MacroSource.
type MacroSourceFunc func(target uri.URI, stack []uri.URI) Table

// MacrosOf implements MacroSource.
func (f MacroSourceFunc) MacrosOf(target uri.URI, stack []uri.URI) Table {
	return f(target, stack)
}

// parseIncludePath extracts the path from the text following #include.
func parseIncludePath(rest string) (string, bool, int, int) {
	start := len(rest) - len(strings.TrimLeft(rest, " \t"))
	trimmed := rest[start:]
	if trimmed == "" {
		return "", false, start, start
	}

	switch trimmed[0] {
	case '<':
		if end := strings.IndexByte(trimmed, '>'); end > 0 {
			return trimmed[1:end], true, start + 1, start + end
		}
	case '"':
		if end := strings.IndexByte(trimmed[1:], '"'); end >= 0 {
			return trimmed[1 : end+1], false, start + 1, start + end + 1
		}
	}

	// Bare path up to the first whitespace.
	end := strings.IndexAny(trimmed, " \t")
	if end < 0 {
		end = len(trimmed)
	}
	return trimmed[:end], false, start, start + end
}
