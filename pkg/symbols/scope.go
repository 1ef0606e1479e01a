package symbols

// ScopeKind classifies a scope.
type ScopeKind int

const (
	ScopeFile ScopeKind = iota
	ScopeType
	ScopeFunction
	ScopeBlock
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeFile:
		return "file"
	case ScopeType:
		return "type"
	case ScopeFunction:
		return "function"
	default:
		return "block"
	}
}

// Scope is a lexical scope. Start and End are offsets in the preprocessed
// text.
type Scope struct {
	Kind     ScopeKind
	Parent   *Scope
	Children []*Scope
	Start    int
	End      int

	// Owner is the function or type that opened the scope.
	Owner *Symbol

	symbols map[string][]*Symbol
	order   []*Symbol
}

func newScope(kind ScopeKind, parent *Scope, start, end int) *Scope {
	s := &Scope{Kind: kind, Parent: parent, Start: start, End: end, symbols: make(map[string][]*Symbol)}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

func (s *Scope) add(sym *Symbol) {
	s.symbols[sym.Name] = append(s.symbols[sym.Name], sym)
	s.order = append(s.order, sym)
}

// Lookup returns the symbols declared directly in s under name.
func (s *Scope) Lookup(name string) []*Symbol {
	return s.symbols[name]
}

// Symbols returns the scope's symbols in declaration order.
func (s *Scope) Symbols() []*Symbol {
	return s.order
}

// Contains reports whether offset lies in the scope.
func (s *Scope) Contains(offset int) bool {
	return s.Start <= offset && offset <= s.End
}

// Innermost returns the deepest scope under s containing offset.
func (s *Scope) Innermost(offset int) *Scope {
	cur := s
	for {
		next := (*Scope)(nil)
		for _, child := range cur.Children {
			if child.Contains(offset) {
				next = child
				break
			}
		}
		if next == nil {
			return cur
		}
		cur = next
	}
}

// Chain returns the scope chain from s outward.
func (s *Scope) Chain() ScopeChain {
	var chain ScopeChain
	for cur := s; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	return chain
}

// ScopeChain lists scopes from innermost to outermost.
type ScopeChain []*Scope

// Lookup returns the symbols of the innermost scope declaring name, and
// whether the match came from a local (non-file) scope. Type scopes are
// skipped: members are reached through a receiver.
func (c ScopeChain) Lookup(name string) ([]*Symbol, bool) {
	for _, s := range c {
		if s.Kind == ScopeType {
			continue
		}
		if syms := s.Lookup(name); len(syms) > 0 {
			return syms, s.Kind != ScopeFile
		}
	}
	return nil, false
}

// Visible returns every symbol visible from the innermost scope, inner
// declarations shadowing outer ones.
func (c ScopeChain) Visible() []*Symbol {
	seen := make(map[string]*Scope)
	var out []*Symbol
	for _, s := range c {
		if s.Kind == ScopeType {
			continue
		}
		for _, sym := range s.order {
			if prev, ok := seen[sym.Name]; ok && prev != s {
				continue
			}
			seen[sym.Name] = s
			out = append(out, sym)
		}
	}
	return out
}

// Function returns the symbol of the enclosing function, if any.
func (c ScopeChain) Function() *Symbol {
	for _, s := range c {
		if s.Kind == ScopeFunction {
			return s.Owner
		}
	}
	return nil
}

// TypeOwner returns the enclosing methodmap or enum struct, if any.
func (c ScopeChain) TypeOwner() *Symbol {
	for _, s := range c {
		if s.Kind == ScopeType {
			return s.Owner
		}
	}
	return nil
}
