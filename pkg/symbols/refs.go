package symbols

import (
	"strings"

	"github.com/yaklabco/pawnls/pkg/lexer"
	"github.com/yaklabco/pawnls/pkg/syntax"
)

func (ix *indexer) addRef(ref Reference, scope *Scope) {
	ref.Span = ix.span(ref.Start, ref.End)
	ref.Scope = scope
	if mp, _, ok := ix.m.Lookup(ref.Start); ok && mp.Expanded() {
		ref.Expanded = ix.m.DocumentSpan(mp) == mp.Site
	}
	ix.table.References = append(ix.table.References, ref)
}

func (ix *indexer) typeRefs(t *syntax.Cursor, scope *Scope) {
	if t == nil {
		return
	}
	for _, ref := range t.ChildTokens() {
		if ref.Token.Kind == lexer.KindIdent {
			ix.addRef(Reference{Name: ref.Token.Text, Start: ref.Start, End: ref.End, Type: true, Args: -1}, scope)
		}
	}
}

func (ix *indexer) statements(block *syntax.Cursor, scope *Scope) {
	for _, child := range block.ChildNodes() {
		ix.statement(child, scope)
	}
}

func (ix *indexer) statement(c *syntax.Cursor, scope *Scope) {
	switch c.Kind() {
	case syntax.NodeBlock:
		start, end := c.TextRange()
		ix.statements(c, newScope(ScopeBlock, scope, start, end))
	case syntax.NodeFor:
		start, end := c.TextRange()
		inner := newScope(ScopeBlock, scope, start, end)
		for _, child := range c.ChildNodes() {
			ix.statement(child, inner)
		}
	case syntax.NodeVarDecl:
		ix.variables(c, scope, KindLocal, "")
	case syntax.NodeFunction:
		ix.function(c, scope, "")
	case syntax.NodeIf, syntax.NodeWhile, syntax.NodeDo, syntax.NodeSwitch, syntax.NodeCase,
		syntax.NodeReturn, syntax.NodeExprStmt, syntax.NodeDelete, syntax.NodeError:
		for _, child := range c.ChildNodes() {
			ix.statement(child, scope)
		}
	case syntax.NodeBreak, syntax.NodeContinue, syntax.NodeEmpty:
	default:
		ix.expr(c, scope, -1)
	}
}

func (ix *indexer) children(c *syntax.Cursor, scope *Scope) {
	for _, child := range c.ChildNodes() {
		ix.expr(child, scope, -1)
	}
}

// expr records the references of an expression. args is the argument
// count when the expression is the callee of a call, else -1.
func (ix *indexer) expr(c *syntax.Cursor, scope *Scope, args int) {
	switch c.Kind() {
	case syntax.NodeName:
		ref, ok := c.FirstToken()
		if ok && ref.Token.Kind == lexer.KindIdent {
			ix.addRef(Reference{Name: ref.Token.Text, Start: ref.Start, End: ref.End, Args: args}, scope)
		}
	case syntax.NodeMember, syntax.NodeScoped:
		nodes := c.ChildNodes()
		if len(nodes) == 0 {
			return
		}
		recv := nodes[0]
		ix.expr(recv, scope, -1)
		name, ok := c.FirstIdent()
		if !ok {
			return
		}
		q := QualifierMember
		if c.Kind() == syntax.NodeScoped {
			q = QualifierScoped
		}
		ix.addRef(Reference{
			Name:         name.Token.Text,
			Start:        name.Start,
			End:          name.End,
			Qualifier:    q,
			Receiver:     recv.Text(),
			ReceiverType: typeOf(recv, scope),
			Args:         args,
		}, scope)
	case syntax.NodeCall:
		nodes := c.ChildNodes()
		argList := c.Child(syntax.NodeArgs)
		argc := 0
		if argList != nil {
			for _, arg := range argList.ChildNodes() {
				if arg.Kind() != syntax.NodeError {
					argc++
				}
			}
		}
		ix.expr(nodes[0], scope, argc)
		if argList != nil {
			ix.children(argList, scope)
		}
	case syntax.NodeType:
		ix.typeRefs(c, scope)
	case syntax.NodeTagCast:
		if tag, ok := c.FirstToken(); ok && tag.Token.Kind == lexer.KindIdent {
			ix.addRef(Reference{Name: tag.Token.Text, Start: tag.Start, End: tag.End, Type: true, Args: -1}, scope)
		}
		ix.children(c, scope)
	default:
		ix.children(c, scope)
	}
}

func baseType(t string) string {
	if i := strings.IndexByte(t, '['); i >= 0 {
		return strings.TrimSpace(t[:i])
	}
	return t
}

// typeOf returns the type of an expression when the file alone tells it.
func typeOf(c *syntax.Cursor, scope *Scope) string {
	switch c.Kind() {
	case syntax.NodeName:
		tok, ok := c.FirstToken()
		if !ok {
			return ""
		}
		if tok.Token.Is("this") {
			if owner := scope.Chain().TypeOwner(); owner != nil {
				return owner.Name
			}
			return ""
		}
		syms, _ := scope.Chain().Lookup(tok.Token.Text)
		for _, sym := range syms {
			if sym.Kind.IsType() {
				return sym.Name
			}
			if sym.Type != "" {
				return baseType(sym.Type)
			}
		}
	case syntax.NodeParen, syntax.NodeIndex:
		if nodes := c.ChildNodes(); len(nodes) > 0 {
			return typeOf(nodes[0], scope)
		}
	case syntax.NodeViewAs, syntax.NodeNew:
		return typeName(c.Child(syntax.NodeType))
	case syntax.NodeCall:
		callee := c.ChildNodes()[0]
		if callee.Kind() != syntax.NodeName {
			return ""
		}
		tok, _ := callee.FirstToken()
		syms, _ := scope.Chain().Lookup(tok.Token.Text)
		for _, sym := range syms {
			if sym.Signature != nil {
				return baseType(sym.Signature.Return)
			}
		}
	}
	return ""
}
