package symbols

import (
	"sort"
	"strconv"

	"github.com/zeebo/xxh3"
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/preproc"
	"github.com/yaklabco/pawnls/pkg/source"
)

// Qualifier tells how a reference was written.
type Qualifier int

const (
	QualifierNone Qualifier = iota
	// QualifierMember marks a name after '.'.
	QualifierMember
	// QualifierScoped marks a name after '::'.
	QualifierScoped
)

// Reference is a use of a name that is not its declaration.
type Reference struct {
	Name string
	Span source.Span

	// Start and End delimit the name in the preprocessed text.
	Start int
	End   int

	// Scope is the innermost scope enclosing the use.
	Scope *Scope

	Qualifier Qualifier

	// Receiver is the text of the expression before '.' or '::', and
	// ReceiverType its type when it is known without other files.
	Receiver     string
	ReceiverType string

	// Type marks a use in a type position.
	Type bool

	// Args is the argument count when the reference is called, else -1.
	Args int

	// Macro marks a macro invocation; Expanded marks a name that came out
	// of a macro body.
	Macro    bool
	Expanded bool
}

// Chain returns the scope chain at the reference.
func (r Reference) Chain() ScopeChain {
	return r.Scope.Chain()
}

// IsCall reports whether the reference is called.
func (r Reference) IsCall() bool {
	return r.Args >= 0
}

// Table holds what one file declares and uses.
type Table struct {
	URI  uri.URI
	Root *Scope

	// Symbols lists file-level declarations and type members in order.
	// Locals and parameters live in Root's descendants only.
	Symbols []*Symbol

	References  []Reference
	Includes    []preproc.Include
	Diagnostics []diag.Diagnostic
}

// ScopeAt returns the innermost scope at a preprocessed offset.
func (t *Table) ScopeAt(offset int) *Scope {
	return t.Root.Innermost(offset)
}

// Lookup returns the file-level symbols named name.
func (t *Table) Lookup(name string) []*Symbol {
	return t.Root.Lookup(name)
}

// Exported returns the symbols an includer can see.
func (t *Table) Exported() []*Symbol {
	var out []*Symbol
	for _, sym := range t.Symbols {
		if sym.Visibility == VisibilityExported && sym.Kind != KindInclude {
			out = append(out, sym)
		}
	}
	return out
}

// ReferenceAt returns the reference covering a preprocessed offset.
func (t *Table) ReferenceAt(offset int) (Reference, bool) {
	idx := sort.Search(len(t.References), func(i int) bool {
		return t.References[i].End >= offset
	})
	for ; idx < len(t.References); idx++ {
		ref := t.References[idx]
		if ref.Start > offset {
			break
		}
		if ref.Start <= offset && offset <= ref.End {
			return ref, true
		}
	}
	return Reference{}, false
}

// DeclarationAt returns the symbol whose name covers a document offset,
// locals included.
func (t *Table) DeclarationAt(offset int) *Symbol {
	var found *Symbol
	var visit func(s *Scope)
	visit = func(s *Scope) {
		for _, sym := range s.order {
			if sym.Span.URI == t.URI && sym.Span.Start <= offset && offset <= sym.Span.End {
				found = sym
				return
			}
		}
		for _, child := range s.Children {
			if found == nil {
				visit(child)
			}
		}
	}
	visit(t.Root)
	return found
}

// Fingerprint hashes the exported, non-macro symbols without their
// positions. It changes only when something an includer resolves against
// changes.
func (t *Table) Fingerprint() uint64 {
	return t.fingerprint(func(sym *Symbol) bool { return sym.Kind != KindDefine })
}

// MacroFingerprint hashes the exported macros.
func (t *Table) MacroFingerprint() uint64 {
	return t.fingerprint(func(sym *Symbol) bool { return sym.Kind == KindDefine })
}

func (t *Table) fingerprint(keep func(*Symbol) bool) uint64 {
	h := xxh3.New()
	for _, sym := range t.Exported() {
		if !keep(sym) {
			continue
		}
		h.WriteString(strconv.Itoa(int(sym.Kind)))
		h.WriteString(sym.QualifiedName())
		h.WriteString(sym.Type)
		h.WriteString(sym.Detail)
		h.WriteString(strconv.FormatBool(sym.Deprecated))
		h.WriteString("\x00")
	}
	return h.Sum64()
}
