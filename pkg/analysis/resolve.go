package analysis

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/symbols"
	"github.com/yaklabco/pawnls/pkg/workspace"
)

// Diagnostic codes of cross-file checks.
const (
	CodeUnresolved = "unresolved-identifier"
	CodeDeprecated = "deprecated"
)

// ResolveOptions selects the cross-file checks.
type ResolveOptions struct {
	// Unresolved reports names that resolve to nothing.
	Unresolved bool

	// Deprecated marks uses of deprecated symbols.
	Deprecated bool
}

// Resolve checks a file's references against the workspace. It needs no
// reparse and is rerun whenever an included file's symbols change.
// Unresolved names are not reported while the file has an unresolved
// include, since the missing file could declare them.
func Resolve(table *symbols.Table, ix *workspace.Index, opts ResolveOptions) []diag.Diagnostic {
	if table == nil {
		return nil
	}
	unresolved := opts.Unresolved
	for _, inc := range table.Includes {
		if !inc.IsResolved() {
			unresolved = false
		}
	}

	var candidates []string
	var out []diag.Diagnostic
	for _, ref := range table.References {
		if ref.Macro || ref.Expanded || ref.Span.URI != table.URI {
			continue
		}
		syms := Lookup(ix, table.URI, ref)
		if len(syms) == 0 {
			if !unresolved || ref.Qualifier != symbols.QualifierNone {
				continue
			}
			if candidates == nil {
				candidates = names(ix.Visible(table.URI))
			}
			out = append(out, unresolvedDiagnostic(ref, candidates))
			continue
		}
		if opts.Deprecated && syms[0].Deprecated {
			out = append(out, deprecatedDiagnostic(ref, syms[0]))
		}
	}
	diag.Sort(out)
	return out
}

// Lookup resolves a reference of file from against the workspace, nearest
// declarations first.
func Lookup(ix *workspace.Index, from uri.URI, ref symbols.Reference) []*symbols.Symbol {
	switch ref.Qualifier {
	case symbols.QualifierMember, symbols.QualifierScoped:
		recv := ReceiverType(ix, from, ref)
		if recv == "" {
			return nil
		}
		return ix.Member(recv, ref.Name, from)
	}
	if ref.IsCall() {
		return ix.ResolveCall(ref.Name, from, ref.Chain(), ref.Args).Symbols
	}
	return ix.Resolve(ref.Name, from, ref.Chain()).Symbols
}

// ReceiverType returns the type a member reference is looked up in. When
// the file alone did not tell, a plain receiver name is resolved through
// the workspace.
func ReceiverType(ix *workspace.Index, from uri.URI, ref symbols.Reference) string {
	if ref.ReceiverType != "" {
		return ref.ReceiverType
	}
	name := strings.TrimSpace(ref.Receiver)
	if !isIdent(name) {
		return ""
	}
	sym := ix.Resolve(name, from, ref.Chain()).Nearest()
	switch {
	case sym == nil:
		return ""
	case sym.Kind.IsType():
		return sym.Name
	}
	typ, _, _ := strings.Cut(sym.Type, "[")
	return strings.TrimSpace(typ)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

func unresolvedDiagnostic(ref symbols.Reference, candidates []string) diag.Diagnostic {
	b := diag.New(diag.SourceIndexer, CodeUnresolved, ref.Span,
		fmt.Sprintf("unknown identifier '%s'", ref.Name)).
		WithSeverity(diag.SeverityWarning)

	locals := names(ref.Chain().Visible())
	if near := Nearest(ref.Name, append(locals, candidates...)); near != "" {
		b.WithSuggestion(fmt.Sprintf("did you mean '%s'?", near))
	}
	return b.Build()
}

func deprecatedDiagnostic(ref symbols.Reference, sym *symbols.Symbol) diag.Diagnostic {
	msg := fmt.Sprintf("'%s' is deprecated", sym.Name)
	if sym.DeprecationNote != "" {
		msg += ": " + sym.DeprecationNote
	}
	return diag.New(diag.SourceIndexer, CodeDeprecated, ref.Span, msg).
		WithSeverity(diag.SeverityHint).
		WithTag(diag.TagDeprecated).
		Build()
}

func names(syms []*symbols.Symbol) []string {
	out := make([]string, 0, len(syms))
	for _, sym := range syms {
		out = append(out, sym.Name)
	}
	return out
}

// Nearest returns the candidate closest to name by edit distance, or ""
// when none is close enough to be a plausible typo.
func Nearest(name string, candidates []string) string {
	best, bestDist := "", len(name)/3+1
	for _, c := range candidates {
		if c == name {
			continue
		}
		if d := levenshtein.ComputeDistance(name, c); d <= bestDist && (best == "" || d < bestDist || c < best) {
			best, bestDist = c, d
		}
	}
	return best
}
