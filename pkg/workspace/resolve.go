package workspace

import (
	"slices"

	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/symbols"
)

// Resolution is the outcome of a name lookup.
type Resolution struct {
	// Symbols holds every match, nearest first: the querying file, then
	// its includes in breadth-first order, then builtins.
	Symbols []*symbols.Symbol

	// Local is set when the match is a local or parameter.
	Local bool
}

// Nearest returns the first match, or nil.
func (r Resolution) Nearest() *symbols.Symbol {
	if len(r.Symbols) == 0 {
		return nil
	}
	return r.Symbols[0]
}

// Found reports whether anything matched.
func (r Resolution) Found() bool {
	return len(r.Symbols) > 0
}

// Resolve looks name up from file from. chain is the scope chain at the
// use site; a nil chain starts at from's file scope.
func (ix *Index) Resolve(name string, from uri.URI, chain symbols.ScopeChain) Resolution {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.resolveLocked(name, from, chain)
}

func (ix *Index) resolveLocked(name string, from uri.URI, chain symbols.ScopeChain) Resolution {
	var out []*symbols.Symbol
	if chain != nil {
		syms, local := chain.Lookup(name)
		if local {
			return Resolution{Symbols: syms, Local: true}
		}
		out = append(out, syms...)
	} else if entry := ix.files[from]; entry != nil {
		out = append(out, entry.table.Lookup(name)...)
	}

	for _, u := range ix.closureLocked(from) {
		entry := ix.files[u]
		if entry == nil {
			continue
		}
		for _, sym := range entry.table.Lookup(name) {
			if sym.Visibility == symbols.VisibilityExported && sym.Kind != symbols.KindInclude {
				out = append(out, sym)
			}
		}
	}

	if len(out) == 0 {
		out = append(out, ix.builtins[name]...)
	}
	return Resolution{Symbols: out}
}

// ResolveCall resolves a called name, keeping the overloads that accept
// argc arguments. When none does, the whole set is returned.
func (ix *Index) ResolveCall(name string, from uri.URI, chain symbols.ScopeChain, argc int) Resolution {
	res := ix.Resolve(name, from, chain)
	var fit []*symbols.Symbol
	for _, sym := range res.Symbols {
		if sym.Signature != nil && sym.Signature.Accepts(argc) {
			fit = append(fit, sym)
		}
	}
	if len(fit) > 0 {
		res.Symbols = fit
	}
	return res
}

// ResolveType resolves a type name, ignoring values that share it.
func (ix *Index) ResolveType(name string, from uri.URI) *symbols.Symbol {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.typeLocked(name, from)
}

func (ix *Index) typeLocked(name string, from uri.URI) *symbols.Symbol {
	for _, sym := range ix.resolveLocked(name, from, nil).Symbols {
		if sym.Kind.IsType() {
			return sym
		}
	}
	for _, sym := range ix.byName[name] {
		if sym.Kind.IsType() {
			return sym
		}
	}
	return nil
}

// Members returns the members of a methodmap or enum struct visible from
// file from, inherited ones included. A member hides a same-named member
// of a parent type.
func (ix *Index) Members(typeName string, from uri.URI) []*symbols.Symbol {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []*symbols.Symbol
	hidden := make(map[string]bool)
	ix.typeChain(typeName, from, func(t string) bool {
		for _, sym := range ix.visibleMembers(t, from) {
			if hidden[sym.Name] {
				continue
			}
			hidden[sym.Name] = true
			out = append(out, sym)
		}
		return true
	})
	return out
}

// Member returns the members named name of typeName or its nearest parent
// declaring one.
func (ix *Index) Member(typeName, name string, from uri.URI) []*symbols.Symbol {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []*symbols.Symbol
	ix.typeChain(typeName, from, func(t string) bool {
		for _, sym := range ix.visibleMembers(t, from) {
			if sym.Name == name {
				out = append(out, sym)
			}
		}
		return len(out) == 0
	})
	return out
}

// typeChain calls fn for typeName and each methodmap it inherits from
// until fn returns false. Inheritance loops end at the first repeat.
func (ix *Index) typeChain(typeName string, from uri.URI, fn func(string) bool) {
	seen := make(map[string]bool)
	for t := typeName; t != "" && !seen[t]; {
		seen[t] = true
		if !fn(t) {
			return
		}
		sym := ix.typeLocked(t, from)
		if sym == nil || sym.Kind != symbols.KindMethodmap {
			return
		}
		t = sym.Type
	}
}

// visibleMembers prefers members declared in from or its includes and
// falls back to the whole workspace.
func (ix *Index) visibleMembers(typeName string, from uri.URI) []*symbols.Symbol {
	visible := map[uri.URI]bool{from: true}
	for _, u := range ix.closureLocked(from) {
		visible[u] = true
	}

	var local []*symbols.Symbol
	if entry := ix.files[from]; entry != nil {
		for _, sym := range entry.table.Symbols {
			if sym.Parent == typeName && sym.IsMember() && sym.Visibility != symbols.VisibilityExported {
				local = append(local, sym)
			}
		}
	}

	all := ix.members[typeName]
	var near []*symbols.Symbol
	for _, sym := range all {
		if visible[sym.URI] {
			near = append(near, sym)
		}
	}
	if len(near) == 0 && len(local) == 0 {
		return all
	}
	return append(local, near...)
}

// Visible returns every file-level symbol visible from file from: its own
// declarations, the exported symbols of its includes nearest first, then
// builtins.
func (ix *Index) Visible(from uri.URI) []*symbols.Symbol {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []*symbols.Symbol
	if entry := ix.files[from]; entry != nil {
		for _, sym := range entry.table.Symbols {
			if !sym.IsMember() && sym.Kind != symbols.KindInclude {
				out = append(out, sym)
			}
		}
	}
	for _, u := range ix.closureLocked(from) {
		if entry := ix.files[u]; entry != nil {
			for _, sym := range entry.table.Exported() {
				if !sym.IsMember() {
					out = append(out, sym)
				}
			}
		}
	}
	for _, name := range sortedNames(ix.builtins) {
		out = append(out, ix.builtins[name]...)
	}
	return out
}

func sortedNames(m map[string][]*symbols.Symbol) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
