package symbols

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/lexer"
	"github.com/yaklabco/pawnls/pkg/preproc"
	"github.com/yaklabco/pawnls/pkg/source"
	"github.com/yaklabco/pawnls/pkg/syntax"
)

// CodeRedeclared is the diagnostic code for a name declared twice in one
// scope.
const CodeRedeclared = "redeclared"

type indexer struct {
	table *Table
	m     *preproc.SourceMap
}

// Index extracts the symbols and references of a preprocessed, parsed file.
func Index(res *preproc.Result, tree *syntax.Tree) *Table {
	t := &Table{
		URI:      res.URI,
		Root:     newScope(ScopeFile, nil, 0, tree.Root.Width()),
		Includes: res.Includes,
	}
	ix := &indexer{table: t, m: res.Map}

	ix.defines(res)
	ix.includes(res)
	for _, item := range tree.Cursor().ChildNodes() {
		ix.item(item)
	}
	ix.macroUses(res)

	sort.SliceStable(t.References, func(i, j int) bool {
		return t.References[i].Start < t.References[j].Start
	})
	return t
}

func (ix *indexer) span(start, end int) source.Span {
	return ix.m.Span(start, end)
}

func (ix *indexer) nodeSpan(c *syntax.Cursor) source.Span {
	return ix.span(c.TextRange())
}

func (ix *indexer) newSymbol(c *syntax.Cursor, name syntax.TokenRef, kind Kind) *Symbol {
	sym := &Symbol{
		Name:     name.Token.Text,
		Kind:     kind,
		URI:      ix.table.URI,
		Span:     ix.span(name.Start, name.End),
		FullSpan: ix.nodeSpan(c),
	}
	if first, ok := c.FirstToken(); ok {
		sym.Doc, sym.Deprecated, sym.DeprecationNote = docFromTrivia(first.Token.Leading)
	}
	return sym
}

func conflicts(a, b *Symbol) bool {
	callable := func(k Kind) bool {
		return k == KindFunction || k == KindNative || k == KindForward || k == KindMethod
	}
	if a.Kind == KindDefine || b.Kind == KindDefine {
		return false
	}
	return !callable(a.Kind) || !callable(b.Kind)
}

func (ix *indexer) declare(scope *Scope, sym *Symbol) {
	for _, prev := range scope.Lookup(sym.Name) {
		if conflicts(prev, sym) {
			ix.table.Diagnostics = append(ix.table.Diagnostics,
				diag.New(diag.SourceIndexer, CodeRedeclared, sym.Span,
					fmt.Sprintf("redeclaration of '%s'", sym.Name)).
					WithRelated(prev.Span).
					Build())
			break
		}
	}
	scope.add(sym)
	if scope.Kind == ScopeFile || scope.Kind == ScopeType {
		ix.table.Symbols = append(ix.table.Symbols, sym)
	}
}

func (ix *indexer) defines(res *preproc.Result) {
	for _, m := range res.Defines {
		if m.Span.URI != res.URI {
			continue
		}
		sym := &Symbol{
			Name:     m.Name,
			Kind:     KindDefine,
			URI:      res.URI,
			Span:     m.Span,
			FullSpan: m.FullSpan,
			Detail:   m.Signature(),
		}
		ix.table.Root.add(sym)
		ix.table.Symbols = append(ix.table.Symbols, sym)
	}
}

func (ix *indexer) includes(res *preproc.Result) {
	for _, inc := range res.Includes {
		ix.table.Symbols = append(ix.table.Symbols, &Symbol{
			Name:       inc.Path,
			Kind:       KindInclude,
			URI:        res.URI,
			Span:       inc.Span,
			FullSpan:   inc.DirectiveSpan,
			Target:     inc.Resolved,
			Visibility: VisibilityStatic,
			Detail:     strings.TrimSpace(inc.Path),
		})
	}
}

func (ix *indexer) macroUses(res *preproc.Result) {
	for _, use := range res.Uses {
		if use.Span.URI != res.URI {
			continue
		}
		offset, ok := res.Map.ToPreprocessed(use.Span.Start)
		if !ok {
			continue
		}
		ix.table.References = append(ix.table.References, Reference{
			Name:  use.Name,
			Span:  use.Span,
			Start: offset,
			End:   offset,
			Scope: ix.table.ScopeAt(offset),
			Args:  -1,
			Macro: true,
		})
	}
}

func (ix *indexer) item(c *syntax.Cursor) {
	root := ix.table.Root
	switch c.Kind() {
	case syntax.NodeFunction:
		ix.function(c, root, "")
	case syntax.NodeVarDecl:
		ix.variables(c, root, KindGlobal, "")
	case syntax.NodeEnum:
		ix.enum(c)
	case syntax.NodeEnumStruct:
		ix.typeDecl(c, KindEnumStruct)
	case syntax.NodeStruct:
		ix.typeDecl(c, KindStruct)
	case syntax.NodeMethodmap:
		ix.typeDecl(c, KindMethodmap)
	case syntax.NodeTypedef:
		ix.typedef(c)
	case syntax.NodeTypeset:
		ix.typeset(c)
	}
}

// modifiers returns the keyword modifiers of a declaration.
func modifiers(c *syntax.Cursor) []string {
	var out []string
	for _, ref := range c.ChildTokens() {
		if ref.Token.Kind != lexer.KindKeyword {
			break
		}
		out = append(out, ref.Token.Text)
	}
	return out
}

func has(mods []string, word string) bool {
	for _, m := range mods {
		if m == word {
			return true
		}
	}
	return false
}

func typeName(t *syntax.Cursor) string {
	if t == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(t.Text(), ":"))
}

func dims(c *syntax.Cursor) string {
	return strings.Repeat("[]", len(c.Children(syntax.NodeDims)))
}

// declName returns the name token of a function or method. Destructors
// are named after the type with a leading '~'.
func declName(c *syntax.Cursor) (syntax.TokenRef, string, bool) {
	tokens := c.ChildTokens()
	for i, ref := range tokens {
		if ref.Token.Kind != lexer.KindIdent {
			continue
		}
		if i > 0 && tokens[i-1].Token.Is("~") {
			return ref, "~" + ref.Token.Text, true
		}
		return ref, ref.Token.Text, true
	}
	return syntax.TokenRef{}, "", false
}

func (ix *indexer) function(c *syntax.Cursor, scope *Scope, parent string) {
	ref, name, ok := declName(c)
	if !ok {
		ix.children(c, scope)
		return
	}
	mods := modifiers(c)
	kind := KindFunction
	switch {
	case parent != "":
		kind = KindMethod
	case has(mods, "native"):
		kind = KindNative
	case has(mods, "forward"):
		kind = KindForward
	}
	sym := ix.newSymbol(c, ref, kind)
	sym.Name = name
	sym.Parent = parent
	if has(mods, "static") && scope.Kind == ScopeFile {
		sym.Visibility = VisibilityStatic
	}
	params := c.Child(syntax.NodeParams)
	sym.Signature = signature(c.Child(syntax.NodeType), params)
	sym.Detail = detail(mods, sym.Signature.Format(name))
	ix.declare(scope, sym)

	ix.callableBody(c, scope, sym, params)
}

// callableBody indexes the parameters and body of a function, method or
// accessor in a new function scope.
func (ix *indexer) callableBody(c *syntax.Cursor, scope *Scope, owner *Symbol, params *syntax.Cursor) {
	ix.typeRefs(c.Child(syntax.NodeType), scope)
	if params == nil {
		return
	}
	start, end := params.TextRange()
	body := c.Child(syntax.NodeBlock)
	if body != nil {
		_, end = body.TextRange()
	}
	fs := newScope(ScopeFunction, scope, start, end)
	fs.Owner = owner
	ix.params(params, fs)
	if body != nil {
		ix.statements(body, fs)
	}
	for _, child := range c.ChildNodes() {
		switch child.Kind() {
		case syntax.NodeType, syntax.NodeParams, syntax.NodeBlock, syntax.NodeError:
		default:
			ix.expr(child, fs, -1)
		}
	}
}

func detail(mods []string, rest string) string {
	if len(mods) == 0 {
		return rest
	}
	return strings.Join(mods, " ") + " " + rest
}

func signature(ret, params *syntax.Cursor) *Signature {
	sig := &Signature{Return: typeName(ret)}
	if params == nil {
		return sig
	}
	for _, pc := range params.Children(syntax.NodeParam) {
		p := Param{Type: typeName(pc.Child(syntax.NodeType)), Dims: len(pc.Children(syntax.NodeDims))}
		_, p.Const = pc.ChildToken("const")
		_, p.ByRef = pc.ChildToken("&")
		_, p.Variadic = pc.ChildToken("...")
		if name, ok := pc.FirstIdent(); ok {
			p.Name = name.Token.Text
		}
		if def := paramDefault(pc); def != nil {
			p.Default = def.Text()
			p.Optional = true
		}
		sig.Params = append(sig.Params, p)
	}
	return sig
}

func paramDefault(pc *syntax.Cursor) *syntax.Cursor {
	if _, ok := pc.ChildToken("="); !ok {
		return nil
	}
	nodes := pc.ChildNodes()
	if len(nodes) == 0 {
		return nil
	}
	last := nodes[len(nodes)-1]
	if last.Kind() == syntax.NodeType || last.Kind() == syntax.NodeDims {
		return nil
	}
	return last
}

func (ix *indexer) params(params *syntax.Cursor, fs *Scope) {
	for _, pc := range params.Children(syntax.NodeParam) {
		ix.typeRefs(pc.Child(syntax.NodeType), fs)
		if def := paramDefault(pc); def != nil {
			ix.expr(def, fs, -1)
		}
		name, ok := pc.FirstIdent()
		if !ok {
			continue
		}
		sym := ix.newSymbol(pc, name, KindParameter)
		sym.Visibility = VisibilityLocal
		sym.Type = typeName(pc.Child(syntax.NodeType)) + dims(pc)
		sym.Detail = strings.TrimSpace(pc.Text())
		ix.declare(fs, sym)
	}
}

func (ix *indexer) variables(c *syntax.Cursor, scope *Scope, kind Kind, parent string) {
	mods := modifiers(c)
	typ := c.Child(syntax.NodeType)
	ix.typeRefs(typ, scope)
	for _, d := range c.Children(syntax.NodeDeclarator) {
		t := typ
		if dt := d.Child(syntax.NodeType); dt != nil {
			t = dt
			ix.typeRefs(dt, scope)
		}
		for _, child := range d.ChildNodes() {
			if child.Kind() != syntax.NodeType {
				ix.expr(child, scope, -1)
			}
		}
		name, ok := d.FirstIdent()
		if !ok {
			continue
		}
		k := kind
		if kind == KindGlobal && has(mods, "const") {
			k = KindConstant
		}
		sym := ix.newSymbol(c, name, k)
		sym.Parent = parent
		sym.Type = typeName(t) + dims(d)
		switch {
		case scope.Kind == ScopeFunction || scope.Kind == ScopeBlock:
			sym.Visibility = VisibilityLocal
		case has(mods, "static") && scope.Kind == ScopeFile:
			sym.Visibility = VisibilityStatic
		}
		typed := sym.Name
		if sym.Type != "" {
			typed = sym.Type + " " + sym.Name
		}
		sym.Detail = detail(mods, typed)
		ix.declare(scope, sym)
	}
}

func (ix *indexer) enum(c *syntax.Cursor) {
	root := ix.table.Root
	parent := ""
	if name, ok := c.FirstIdent(); ok {
		sym := ix.newSymbol(c, name, KindEnum)
		sym.Detail = "enum " + sym.Name
		ix.declare(root, sym)
		parent = sym.Name
	}
	for _, m := range c.Children(syntax.NodeEnumMember) {
		ix.typeRefs(m.Child(syntax.NodeType), root)
		for _, child := range m.ChildNodes() {
			if child.Kind() != syntax.NodeType {
				ix.expr(child, root, -1)
			}
		}
		name, ok := m.FirstIdent()
		if !ok {
			continue
		}
		sym := ix.newSymbol(m, name, KindEnumMember)
		sym.Parent = parent
		sym.Type = parent
		if tag := typeName(m.Child(syntax.NodeType)); tag != "" {
			sym.Type = tag
		}
		sym.Detail = strings.TrimSpace(m.Text())
		ix.declare(root, sym)
	}
}

func (ix *indexer) typeDecl(c *syntax.Cursor, kind Kind) {
	root := ix.table.Root
	tokens := c.ChildTokens()
	var name syntax.TokenRef
	named := false
	for i, ref := range tokens {
		if ref.Token.Kind != lexer.KindIdent {
			continue
		}
		if !named {
			name, named = ref, true
			continue
		}
		if i > 0 && tokens[i-1].Token.Is("<") {
			ix.addRef(Reference{Name: ref.Token.Text, Start: ref.Start, End: ref.End, Type: true, Args: -1}, root)
		}
	}
	if !named {
		return
	}

	sym := ix.newSymbol(c, name, kind)
	sym.Detail = kind.String() + " " + sym.Name
	for i, ref := range tokens {
		if ref.Token.Is("<") && i+1 < len(tokens) && tokens[i+1].Token.Kind == lexer.KindIdent {
			sym.Type = tokens[i+1].Token.Text
			sym.Detail += " < " + sym.Type
		}
	}
	ix.declare(root, sym)

	start, end := c.TextRange()
	ts := newScope(ScopeType, root, start, end)
	ts.Owner = sym
	for _, member := range c.ChildNodes() {
		switch member.Kind() {
		case syntax.NodeField:
			ix.variables(member, ts, KindField, sym.Name)
		case syntax.NodeMethod:
			ix.function(member, ts, sym.Name)
		case syntax.NodeProperty:
			ix.property(member, ts, sym.Name)
		}
	}
}

func (ix *indexer) property(c *syntax.Cursor, ts *Scope, parent string) {
	name, ok := c.FirstIdent()
	if !ok {
		return
	}
	ix.typeRefs(c.Child(syntax.NodeType), ts)
	sym := ix.newSymbol(c, name, KindProperty)
	sym.Parent = parent
	sym.Type = typeName(c.Child(syntax.NodeType))
	sym.Detail = "property " + strings.TrimSpace(sym.Type+" "+sym.Name)
	ix.declare(ts, sym)

	for _, acc := range c.Children(syntax.NodeAccessor) {
		ix.callableBody(acc, ts, sym, acc.Child(syntax.NodeParams))
	}
}

func (ix *indexer) typedef(c *syntax.Cursor) {
	tokens := c.ChildTokens()
	if len(tokens) == 0 {
		return
	}
	var name syntax.TokenRef
	found := false
	for i, ref := range tokens {
		if ref.Token.Kind == lexer.KindIdent && i+1 < len(tokens) && tokens[i+1].Token.Is("(") {
			name, found = ref, true
			break
		}
	}
	if !found {
		name, found = c.FirstIdent()
	}
	if !found {
		return
	}
	sym := ix.newSymbol(c, name, KindTypedef)
	if ft := c.Child(syntax.NodeFuncType); ft != nil {
		sym.Signature = signature(ft.Child(syntax.NodeType), ft.Child(syntax.NodeParams))
		ix.funcTypeRefs(ft)
	}
	sym.Detail = "typedef " + sym.Name
	if sym.Signature != nil {
		sym.Detail += " = function " + sym.Signature.Format("")
	}
	ix.declare(ix.table.Root, sym)
}

func (ix *indexer) typeset(c *syntax.Cursor) {
	name, ok := c.FirstIdent()
	if !ok {
		return
	}
	sym := ix.newSymbol(c, name, KindTypeset)
	sym.Detail = "typeset " + sym.Name
	for _, ft := range c.Children(syntax.NodeFuncType) {
		if sym.Signature == nil {
			sym.Signature = signature(ft.Child(syntax.NodeType), ft.Child(syntax.NodeParams))
		}
		ix.funcTypeRefs(ft)
	}
	ix.declare(ix.table.Root, sym)
}

func (ix *indexer) funcTypeRefs(ft *syntax.Cursor) {
	root := ix.table.Root
	ix.typeRefs(ft.Child(syntax.NodeType), root)
	if params := ft.Child(syntax.NodeParams); params != nil {
		for _, pc := range params.Children(syntax.NodeParam) {
			ix.typeRefs(pc.Child(syntax.NodeType), root)
		}
	}
}
