package engine

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/analysis"
	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/edit"
	"github.com/yaklabco/pawnls/pkg/preproc"
	"github.com/yaklabco/pawnls/pkg/source"
	"github.com/yaklabco/pawnls/pkg/store"
	"github.com/yaklabco/pawnls/pkg/symbols"
)

const (
	maxCompletions      = 200
	maxWorkspaceSymbols = 128
)

// Hover is the answer to a hover query.
type Hover struct {
	// Span covers the hovered name.
	Span   source.Span
	Symbol *symbols.Symbol

	// Contents is Markdown.
	Contents string
}

// CompletionItem is one completion candidate.
type CompletionItem struct {
	Label      string
	Kind       symbols.Kind
	Detail     string
	Doc        string
	Deprecated bool
}

// DocumentSymbol is a declaration of a file with its members.
type DocumentSymbol struct {
	Name       string
	Kind       symbols.Kind
	Detail     string
	Span       source.Span
	FullSpan   source.Span
	Deprecated bool
	Children   []DocumentSymbol
}

// target is what a position designates: the written name and the
// declarations it stands for, nearest first.
type target struct {
	span source.Span
	syms []*symbols.Symbol
}

// at waits for pending work on u and maps pos to a document offset.
func (e *Engine) at(ctx context.Context, u uri.URI, pos edit.Position) (*store.Snapshot, int, error) {
	snap, err := e.Snapshot(ctx, u)
	if err != nil {
		return nil, 0, err
	}
	offset, err := edit.OffsetAt(snap.Text, pos, e.unit)
	if err != nil {
		return nil, 0, fmt.Errorf("position %d:%d in %s: %w", pos.Line, pos.Column, u, err)
	}
	return snap, offset, nil
}

func (e *Engine) targetAt(snap *store.Snapshot, offset int) (target, bool) {
	table := snap.Table
	for _, sym := range table.Symbols {
		if sym.Kind == symbols.KindInclude && sym.Span.Start <= offset && offset <= sym.Span.End {
			return target{span: sym.Span, syms: []*symbols.Symbol{sym}}, true
		}
	}
	if use, ok := macroUseAt(snap, offset); ok {
		syms := e.macroSymbols(snap.URI, use.Name, use.Macro)
		return target{span: use.Span, syms: syms}, len(syms) > 0
	}
	if sym := table.DeclarationAt(offset); sym != nil {
		return target{span: sym.Span, syms: []*symbols.Symbol{sym}}, true
	}

	pre, ok := snap.Preprocessed.Map.ToPreprocessed(offset)
	if !ok {
		return target{}, false
	}
	ref, ok := table.ReferenceAt(pre)
	if !ok || ref.Expanded || ref.Span.URI != snap.URI {
		return target{}, false
	}
	syms := analysis.Lookup(e.index, snap.URI, ref)
	return target{span: ref.Span, syms: syms}, len(syms) > 0
}

func macroUseAt(snap *store.Snapshot, offset int) (preproc.MacroUse, bool) {
	for _, use := range snap.Preprocessed.Uses {
		if use.Span.URI == snap.URI && use.Span.Start <= offset && offset <= use.Span.End {
			return use, true
		}
	}
	return preproc.MacroUse{}, false
}

// macroSymbols finds the define symbols of a macro name. A macro defined
// in a file outside the index still gets a symbol from its definition.
func (e *Engine) macroSymbols(from uri.URI, name string, m *preproc.Macro) []*symbols.Symbol {
	var out []*symbols.Symbol
	for _, sym := range e.index.Resolve(name, from, nil).Symbols {
		if sym.Kind == symbols.KindDefine {
			out = append(out, sym)
		}
	}
	if len(out) == 0 && m != nil {
		out = append(out, &symbols.Symbol{
			Name:     m.Name,
			Kind:     symbols.KindDefine,
			URI:      m.Span.URI,
			Span:     m.Span,
			FullSpan: m.FullSpan,
			Detail:   m.Signature(),
		})
	}
	return out
}

// Hover describes the declaration under pos, choosing the nearest one when
// the name is ambiguous. It returns nil when there is nothing to show.
func (e *Engine) Hover(ctx context.Context, u uri.URI, pos edit.Position) (*Hover, error) {
	snap, offset, err := e.at(ctx, u, pos)
	if err != nil {
		return nil, err
	}
	t, ok := e.targetAt(snap, offset)
	if !ok {
		return nil, nil
	}
	sym := t.syms[0]
	return &Hover{Span: t.span, Symbol: sym, Contents: hoverText(sym, u, len(t.syms))}, nil
}

func hoverText(sym *symbols.Symbol, from uri.URI, candidates int) string {
	var sb strings.Builder
	if sym.Kind == symbols.KindInclude {
		fmt.Fprintf(&sb, "```sourcepawn\n#include <%s>\n```\n", sym.Name)
		if sym.Target != "" {
			fmt.Fprintf(&sb, "\n`%s`\n", source.Path(sym.Target))
		} else {
			sb.WriteString("\nNot found.\n")
		}
		return sb.String()
	}

	detail := sym.Detail
	if detail == "" {
		detail = sym.Kind.String() + " " + sym.QualifiedName()
	}
	fmt.Fprintf(&sb, "```sourcepawn\n%s\n```\n", detail)
	if sym.Deprecated {
		sb.WriteString("\n**Deprecated**")
		if sym.DeprecationNote != "" {
			sb.WriteString(": " + sym.DeprecationNote)
		}
		sb.WriteString("\n")
	}
	if sym.Doc != "" {
		sb.WriteString("\n" + sym.Doc + "\n")
	}
	if sym.URI != "" && sym.URI != from {
		fmt.Fprintf(&sb, "\nDeclared in `%s`\n", baseName(sym.URI))
	}
	if candidates > 1 {
		fmt.Fprintf(&sb, "\n%d other declarations\n", candidates-1)
	}
	return sb.String()
}

func baseName(u uri.URI) string {
	path := source.Path(u)
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Definition returns every declaration the name under pos may refer to.
// An include path leads to the start of the included file.
func (e *Engine) Definition(ctx context.Context, u uri.URI, pos edit.Position) ([]source.Span, error) {
	snap, offset, err := e.at(ctx, u, pos)
	if err != nil {
		return nil, err
	}
	t, ok := e.targetAt(snap, offset)
	if !ok {
		return nil, nil
	}
	var out []source.Span
	for _, sym := range t.syms {
		switch {
		case sym.Kind == symbols.KindInclude:
			if sym.Target != "" {
				out = append(out, fileStart(sym.Target))
			}
		case sym.URI != "":
			out = append(out, sym.Span)
		}
	}
	return slices.CompactFunc(out, func(a, b source.Span) bool { return a == b }), nil
}

func fileStart(u uri.URI) source.Span {
	start := source.Position{Line: 1, Column: 1}
	return source.Span{URI: u, Range: source.Range{Start: start, End: start}}
}

// References returns the uses of the declaration under pos across the
// workspace, and the declarations themselves when includeDecl is set.
func (e *Engine) References(ctx context.Context, u uri.URI, pos edit.Position, includeDecl bool) ([]source.Span, error) {
	snap, offset, err := e.at(ctx, u, pos)
	if err != nil {
		return nil, err
	}
	t, ok := e.targetAt(snap, offset)
	if !ok || t.syms[0].Kind == symbols.KindInclude {
		return nil, nil
	}
	if err := e.sched.WaitIdle(ctx); err != nil {
		return nil, err
	}

	want := make(map[*symbols.Symbol]bool, len(t.syms))
	local := false
	for _, sym := range t.syms {
		want[sym] = true
		local = local || sym.Visibility == symbols.VisibilityLocal
	}
	name := t.syms[0].Name

	var out []source.Span
	if includeDecl {
		for _, sym := range t.syms {
			if sym.URI != "" {
				out = append(out, sym.Span)
			}
		}
	}

	files := []uri.URI{u}
	if !local {
		files = e.index.Files()
	}
	for _, f := range files {
		table := e.index.Table(f)
		if table == nil {
			continue
		}
		for _, ref := range table.References {
			if ref.Name != name || ref.Expanded || ref.Span.URI != f {
				continue
			}
			var syms []*symbols.Symbol
			if ref.Macro {
				syms = e.macroSymbols(f, ref.Name, nil)
			} else {
				syms = analysis.Lookup(e.index, f, ref)
			}
			if slices.ContainsFunc(syms, func(s *symbols.Symbol) bool { return want[s] }) {
				out = append(out, ref.Span)
			}
		}
	}
	return out, nil
}

// Completion proposes names for the identifier being typed at pos. After
// '.' or '::' it proposes the members of the receiver's type.
func (e *Engine) Completion(ctx context.Context, u uri.URI, pos edit.Position) ([]CompletionItem, error) {
	snap, offset, err := e.at(ctx, u, pos)
	if err != nil {
		return nil, err
	}
	text := snap.Text
	start := offset
	for start > 0 && isIdentByte(text[start-1]) {
		start--
	}
	prefix := text[start:offset]
	scope := scopeAt(snap, start)

	var cands []*symbols.Symbol
	if recv, ok := receiverBefore(text, start); ok {
		typeName := e.receiverType(snap.URI, scope, recv)
		if typeName == "" {
			return nil, nil
		}
		cands = e.index.Members(typeName, u)
	} else {
		seen := make(map[string]bool)
		for _, sym := range scope.Chain().Visible() {
			seen[sym.Name] = true
			cands = append(cands, sym)
		}
		for _, sym := range e.index.Visible(u) {
			if !seen[sym.Name] {
				cands = append(cands, sym)
			}
		}
	}
	return rankCompletions(prefix, cands), nil
}

// receiverBefore returns the receiver name written before a '.' or '::'
// that ends at offset.
func receiverBefore(text string, offset int) (string, bool) {
	end := offset
	switch {
	case end > 0 && text[end-1] == '.':
		end--
	case end > 1 && text[end-2:end] == "::":
		end -= 2
	default:
		return "", false
	}
	start := end
	for start > 0 && isIdentByte(text[start-1]) {
		start--
	}
	return text[start:end], start < end
}

func (e *Engine) receiverType(from uri.URI, scope *symbols.Scope, recv string) string {
	chain := scope.Chain()
	if recv == "this" {
		if owner := chain.TypeOwner(); owner != nil {
			return owner.Name
		}
		return ""
	}
	return analysis.ReceiverType(e.index, from, symbols.Reference{Receiver: recv, Scope: scope})
}

// scopeAt returns the innermost scope at a document offset. An offset in
// trivia uses the closest token before it.
func scopeAt(snap *store.Snapshot, offset int) *symbols.Scope {
	for o := offset; o >= 0; o-- {
		if pre, ok := snap.Preprocessed.Map.ToPreprocessed(o); ok {
			return snap.Table.ScopeAt(pre)
		}
	}
	return snap.Table.Root
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func rankCompletions(prefix string, cands []*symbols.Symbol) []CompletionItem {
	type key struct {
		name string
		kind symbols.Kind
	}
	seen := make(map[key]bool)
	uniq := make([]*symbols.Symbol, 0, len(cands))
	for _, sym := range cands {
		k := key{sym.Name, sym.Kind}
		if sym.Kind == symbols.KindInclude || seen[k] {
			continue
		}
		seen[k] = true
		uniq = append(uniq, sym)
	}

	order := rank(prefix, uniq, func(s *symbols.Symbol) string { return s.Name })
	out := make([]CompletionItem, 0, min(len(order), maxCompletions))
	for _, sym := range order {
		if len(out) == maxCompletions {
			break
		}
		out = append(out, CompletionItem{
			Label:      sym.Name,
			Kind:       sym.Kind,
			Detail:     sym.Detail,
			Doc:        symbols.Summary(sym.Doc),
			Deprecated: sym.Deprecated,
		})
	}
	return out
}

// rank orders syms by fuzzy match against query, closest first. An empty
// query keeps every symbol in name order.
func rank(query string, syms []*symbols.Symbol, name func(*symbols.Symbol) string) []*symbols.Symbol {
	if query == "" {
		out := slices.Clone(syms)
		sort.SliceStable(out, func(i, j int) bool { return name(out[i]) < name(out[j]) })
		return out
	}
	targets := make([]string, len(syms))
	for i, sym := range syms {
		targets[i] = name(sym)
	}
	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)
	out := make([]*symbols.Symbol, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, syms[r.OriginalIndex])
	}
	return out
}

// DocumentSymbols returns the declarations of u with members nested under
// their types.
func (e *Engine) DocumentSymbols(ctx context.Context, u uri.URI) ([]DocumentSymbol, error) {
	snap, err := e.Snapshot(ctx, u)
	if err != nil {
		return nil, err
	}
	var out []DocumentSymbol
	parents := make(map[string]int)
	for _, sym := range snap.Table.Symbols {
		if sym.Kind == symbols.KindInclude || sym.URI != u {
			continue
		}
		ds := DocumentSymbol{
			Name:       sym.Name,
			Kind:       sym.Kind,
			Detail:     sym.Detail,
			Span:       sym.Span,
			FullSpan:   sym.FullSpan,
			Deprecated: sym.Deprecated,
		}
		if idx, ok := parents[sym.Parent]; ok && sym.Parent != "" {
			out[idx].Children = append(out[idx].Children, ds)
			continue
		}
		if sym.Kind.IsType() {
			parents[sym.Name] = len(out)
		}
		out = append(out, ds)
	}
	return out, nil
}

// WorkspaceSymbols returns the exported declarations of the workspace
// matching query, best matches first.
func (e *Engine) WorkspaceSymbols(ctx context.Context, query string) ([]*symbols.Symbol, error) {
	if err := e.sched.WaitIdle(ctx); err != nil {
		return nil, err
	}
	all := e.index.All()
	out := rank(query, all, func(s *symbols.Symbol) string { return s.QualifiedName() })
	if len(out) > maxWorkspaceSymbols {
		out = out[:maxWorkspaceSymbols]
	}
	return out, nil
}

// Diagnostics returns the diagnostics last published for u and the editor
// version they belong to.
func (e *Engine) Diagnostics(ctx context.Context, u uri.URI) ([]diag.Diagnostic, int32, error) {
	if err := e.sched.Wait(ctx, u); err != nil {
		return nil, 0, err
	}
	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	p, ok := e.published[u]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotLoaded, u)
	}
	return slices.Clone(p.diags), p.version, nil
}
