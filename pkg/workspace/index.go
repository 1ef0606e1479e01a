// Package workspace merges per-file symbol tables into a project-wide index
// and tracks the include graph between files.
package workspace

import (
	"slices"
	"sync"

	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/source"
	"github.com/yaklabco/pawnls/pkg/symbols"
)

// Edge is one #include of the graph.
type Edge struct {
	From uri.URI

	// To is the resolved file, empty when the include is unresolved.
	To uri.URI

	Path     string
	Span     source.Span
	Optional bool
}

// Change describes what a Merge altered, for deciding follow-up work.
type Change struct {
	// Symbols is set when the exported declarations changed.
	Symbols bool

	// Macros is set when the exported macros changed. Includers must then
	// be preprocessed again, not just re-resolved.
	Macros bool

	// Edges is set when the file's includes changed.
	Edges bool
}

// Any reports whether anything an includer depends on changed.
func (c Change) Any() bool {
	return c.Symbols || c.Macros || c.Edges
}

type fileEntry struct {
	table       *symbols.Table
	edges       []Edge
	fingerprint uint64
	macros      uint64
}

// Index is the project-wide symbol index. It is safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	files    map[uri.URI]*fileEntry
	byName   map[string][]*symbols.Symbol
	members  map[string][]*symbols.Symbol
	reverse  map[uri.URI]map[uri.URI]struct{}
	builtins map[string][]*symbols.Symbol
}

// New creates an empty index.
func New() *Index {
	return &Index{
		files:    make(map[uri.URI]*fileEntry),
		byName:   make(map[string][]*symbols.Symbol),
		members:  make(map[string][]*symbols.Symbol),
		reverse:  make(map[uri.URI]map[uri.URI]struct{}),
		builtins: make(map[string][]*symbols.Symbol),
	}
}

// SetBuiltins replaces the symbols visible from every file, such as macros
// defined by configuration.
func (ix *Index) SetBuiltins(syms []*symbols.Symbol) {
	builtins := make(map[string][]*symbols.Symbol, len(syms))
	for _, sym := range syms {
		builtins[sym.Name] = append(builtins[sym.Name], sym)
	}
	ix.mu.Lock()
	ix.builtins = builtins
	ix.mu.Unlock()
}

func edgesOf(u uri.URI, table *symbols.Table) []Edge {
	edges := make([]Edge, 0, len(table.Includes))
	for _, inc := range table.Includes {
		edges = append(edges, Edge{
			From:     u,
			To:       inc.Resolved,
			Path:     inc.Path,
			Span:     inc.DirectiveSpan,
			Optional: inc.Optional,
		})
	}
	return edges
}

// Merge replaces the contribution of file u with table: the symbols it
// exported before are removed, the new ones inserted and its outgoing
// include edges updated, all in one step.
func (ix *Index) Merge(u uri.URI, table *symbols.Table) Change {
	entry := &fileEntry{
		table:       table,
		edges:       edgesOf(u, table),
		fingerprint: table.Fingerprint(),
		macros:      table.MacroFingerprint(),
	}
	exported := table.Exported()

	ix.mu.Lock()
	defer ix.mu.Unlock()

	old := ix.files[u]
	change := Change{Symbols: true, Macros: true, Edges: true}
	if old != nil {
		change.Symbols = old.fingerprint != entry.fingerprint
		change.Macros = old.macros != entry.macros
		change.Edges = !slices.EqualFunc(old.edges, entry.edges, func(a, b Edge) bool {
			return a.To == b.To && a.Path == b.Path
		})
		ix.removeLocked(u, old)
	}

	ix.files[u] = entry
	for _, sym := range exported {
		ix.byName[sym.Name] = append(ix.byName[sym.Name], sym)
		if sym.IsMember() {
			q := sym.QualifiedName()
			ix.byName[q] = append(ix.byName[q], sym)
			ix.members[sym.Parent] = append(ix.members[sym.Parent], sym)
		}
	}
	for _, e := range entry.edges {
		if e.To == "" {
			continue
		}
		if ix.reverse[e.To] == nil {
			ix.reverse[e.To] = make(map[uri.URI]struct{})
		}
		ix.reverse[e.To][u] = struct{}{}
	}
	return change
}

// Remove drops file u from the index.
func (ix *Index) Remove(u uri.URI) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if old := ix.files[u]; old != nil {
		ix.removeLocked(u, old)
		delete(ix.files, u)
	}
}

func (ix *Index) removeLocked(u uri.URI, old *fileEntry) {
	for _, sym := range old.table.Exported() {
		dropFrom(ix.byName, sym.Name, sym)
		if sym.IsMember() {
			dropFrom(ix.byName, sym.QualifiedName(), sym)
			dropFrom(ix.members, sym.Parent, sym)
		}
	}
	for _, e := range old.edges {
		if from := ix.reverse[e.To]; from != nil {
			delete(from, u)
			if len(from) == 0 {
				delete(ix.reverse, e.To)
			}
		}
	}
}

func dropFrom(m map[string][]*symbols.Symbol, key string, sym *symbols.Symbol) {
	list := slices.DeleteFunc(m[key], func(s *symbols.Symbol) bool { return s == sym })
	if len(list) == 0 {
		delete(m, key)
		return
	}
	m[key] = list
}

// Table returns the symbol table merged for u, or nil.
func (ix *Index) Table(u uri.URI) *symbols.Table {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if e := ix.files[u]; e != nil {
		return e.table
	}
	return nil
}

// Files returns the indexed files in sorted order.
func (ix *Index) Files() []uri.URI {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]uri.URI, 0, len(ix.files))
	for u := range ix.files {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

// Edges returns the include edges leaving u.
func (ix *Index) Edges(u uri.URI) []Edge {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if e := ix.files[u]; e != nil {
		return slices.Clone(e.edges)
	}
	return nil
}

// Lookup returns every exported symbol with the given plain or qualified
// name, across the whole workspace.
func (ix *Index) Lookup(name string) []*symbols.Symbol {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return slices.Clone(ix.byName[name])
}

// All returns every exported symbol of the workspace.
func (ix *Index) All() []*symbols.Symbol {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []*symbols.Symbol
	for _, u := range sortedKeys(ix.files) {
		out = append(out, ix.files[u].table.Exported()...)
	}
	return out
}

func sortedKeys[V any](m map[uri.URI]V) []uri.URI {
	keys := make([]uri.URI, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
