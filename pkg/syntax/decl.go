package syntax

import "github.com/yaklabco/pawnls/pkg/lexer"

type declContext int

const (
	ctxFile declContext = iota
	ctxLocal
	ctxStruct
	ctxEnumStruct
	ctxMethodmap
)

// item parses one file-level item. It always consumes at least one token.
func (p *parser) item() *Node {
	tok := p.cur()
	switch {
	case tok.Is(";"):
		return NewNode(NodeEmpty, []Element{p.bump()})
	case tok.Is("enum"):
		if p.peek(1).Is("struct") {
			return p.enumStruct()
		}
		return p.enum()
	case tok.Is("struct"):
		return p.structDecl()
	case tok.Is("methodmap"):
		return p.methodmap()
	case tok.Is("typedef"):
		return p.typedef()
	case tok.Is("typeset"):
		return p.typeset()
	case tok.Is("functag"), tok.Is("funcenum"):
		return p.legacyFuncType()
	case isModifier(tok), isTypeKeyword(tok), tok.Kind == lexer.KindIdent:
		return p.declaration(ctxFile)
	}
	return p.recoverItem()
}

// recoverItem skips to the next plausible item start.
func (p *parser) recoverItem() *Node {
	msg := "expected declaration, found " + describe(p.cur())
	skipped := []Element{p.bump()}
	for !p.eof() {
		tok := p.cur()
		if tok.Is(";") {
			skipped = append(skipped, p.bump())
			break
		}
		if tok.Is("}") || p.atItemKeyword() || isModifier(tok) {
			break
		}
		if startsLine(tok) && (tok.Kind == lexer.KindIdent || isTypeKeyword(tok)) {
			break
		}
		skipped = append(skipped, p.bump())
	}
	return NewError(msg, skipped)
}

func startsLine(tok *lexer.Token) bool {
	for _, tr := range tok.Leading {
		if tr.Kind == lexer.KindNewline {
			return true
		}
	}
	return false
}

// declaration parses a function or variable declaration.
func (p *parser) declaration(ctx declContext) *Node {
	var prefix []Element
	for isModifier(p.cur()) {
		prefix = append(prefix, p.bump())
	}
	if t := p.typeOrTag(); t != nil {
		prefix = append(prefix, NodeElement(t))
	}

	var name []Element
	switch {
	case ctx == ctxMethodmap && p.at("~"):
		name = append(name, p.bump())
		name = p.expectName(name)
	case p.at("operator"):
		name = append(name, p.bump())
		if p.atKind(lexer.KindOperator) {
			name = append(name, p.bump())
		}
	default:
		name = p.expectName(name)
	}

	if p.at("(") {
		return p.functionRest(ctx, append(prefix, name...))
	}
	return p.variableRest(ctx, prefix, name)
}

func (p *parser) functionRest(ctx declContext, kids []Element) *Node {
	kids = append(kids, NodeElement(p.params()))
	kids = p.body(kids)
	kind := NodeFunction
	if ctx == ctxMethodmap || ctx == ctxEnumStruct {
		kind = NodeMethod
	}
	return NewNode(kind, kids)
}

// body parses a function body, a bodiless terminator or an alias.
func (p *parser) body(kids []Element) []Element {
	switch {
	case p.at("{"):
		return append(kids, NodeElement(p.block()))
	case p.at(";"):
		return append(kids, p.bump())
	case p.at("="):
		kids = append(kids, p.bump())
		kids = append(kids, NodeElement(p.expr()))
		return p.expect(kids, ";")
	}
	return append(kids, p.missing("expected '{' or ';'"))
}

func (p *parser) variableRest(ctx declContext, prefix, name []Element) *Node {
	kids := append(prefix, NodeElement(p.declaratorRest(name)))
	for p.at(",") {
		next := p.peek(1)
		if ctx == ctxStruct && (isModifier(next) || next.Is("}")) {
			break
		}
		kids = append(kids, p.bump())
		var decl []Element
		if p.atTag() {
			decl = append(decl, NodeElement(NewNode(NodeType, []Element{p.bump(), p.bump()})))
		}
		kids = append(kids, NodeElement(p.declaratorRest(p.expectName(decl))))
	}

	kind := NodeVarDecl
	switch ctx {
	case ctxStruct:
		kind = NodeField
		if p.at(";") || p.at(",") {
			kids = append(kids, p.bump())
		}
	case ctxEnumStruct:
		kind = NodeField
		kids = p.expect(kids, ";")
	default:
		kids = p.expect(kids, ";")
	}
	return NewNode(kind, kids)
}

func (p *parser) declaratorRest(kids []Element) *Node {
	for p.at("[") {
		kids = append(kids, NodeElement(p.dims()))
	}
	if p.at("=") {
		kids = append(kids, p.bump())
		kids = append(kids, NodeElement(p.expr()))
	}
	return NewNode(NodeDeclarator, kids)
}

func (p *parser) dims() *Node {
	kids := []Element{p.bump()}
	if !p.at("]") {
		kids = append(kids, NodeElement(p.expr()))
	}
	kids = p.closeWith(kids, "]", ";", "{", "}", ")")
	return NewNode(NodeDims, kids)
}

func (p *parser) params() *Node {
	kids := []Element{p.bump()}
	for !p.eof() && !p.at(")") {
		before := p.pos
		kids = append(kids, NodeElement(p.param()))
		if p.at(",") {
			kids = append(kids, p.bump())
			continue
		}
		if p.pos == before || !p.at(")") {
			break
		}
	}
	kids = p.closeWith(kids, ")", ";", "{", "}")
	return NewNode(NodeParams, kids)
}

func (p *parser) param() *Node {
	var kids []Element
	if p.at("const") {
		kids = append(kids, p.bump())
	}
	if p.at("&") {
		kids = append(kids, p.bump())
	}
	if t := p.typeOrTag(); t != nil {
		kids = append(kids, NodeElement(t))
	}
	if p.at("&") {
		kids = append(kids, p.bump())
	}
	if p.at("...") {
		kids = append(kids, p.bump())
		return NewNode(NodeParam, kids)
	}
	kids = p.expectName(kids)
	for p.at("[") {
		kids = append(kids, NodeElement(p.dims()))
	}
	if p.at("=") {
		kids = append(kids, p.bump())
		kids = append(kids, NodeElement(p.expr()))
	}
	return NewNode(NodeParam, kids)
}

// trailingSemicolon consumes an optional ';' after a braced item.
func (p *parser) trailingSemicolon(kids []Element) []Element {
	if p.at(";") {
		return append(kids, p.bump())
	}
	return kids
}

func (p *parser) enum() *Node {
	kids := []Element{p.bump()}
	if p.atKind(lexer.KindIdent) {
		kids = append(kids, p.bump())
		if p.atKind(lexer.KindColon) {
			kids = append(kids, p.bump())
		}
	}
	if p.at("(") {
		kids = p.balanced(kids)
	}
	if !p.at("{") {
		kids = append(kids, p.missing("expected '{'"))
		return NewNode(NodeEnum, p.trailingSemicolon(kids))
	}
	kids = append(kids, p.bump())
	for !p.eof() && !p.at("}") && !p.atItemKeyword() {
		if !p.atKind(lexer.KindIdent) && !p.atTag() {
			kids = append(kids, NodeElement(p.unexpected()))
			continue
		}
		kids = append(kids, NodeElement(p.enumMember()))
		if p.at(",") {
			kids = append(kids, p.bump())
		} else if !p.at("}") {
			kids = append(kids, p.missing("expected ','"))
		}
	}
	kids = p.expect(kids, "}")
	return NewNode(NodeEnum, p.trailingSemicolon(kids))
}

func (p *parser) enumMember() *Node {
	var kids []Element
	if p.atTag() {
		kids = append(kids, NodeElement(NewNode(NodeType, []Element{p.bump(), p.bump()})))
	}
	kids = p.expectName(kids)
	for p.at("[") {
		kids = append(kids, NodeElement(p.dims()))
	}
	if p.at("=") {
		kids = append(kids, p.bump())
		kids = append(kids, NodeElement(p.expr()))
	}
	return NewNode(NodeEnumMember, kids)
}

// members parses declarations up to the closing brace of a type body.
func (p *parser) members(kids []Element, member func() *Node) []Element {
	for !p.eof() && !p.at("}") {
		if p.at(";") {
			kids = append(kids, NodeElement(NewNode(NodeEmpty, []Element{p.bump()})))
			continue
		}
		before := p.pos
		n := member()
		if n != nil {
			kids = append(kids, NodeElement(n))
		}
		if p.pos == before {
			if p.atItemKeyword() && !p.at("public") && !p.at("native") && !p.at("property") {
				break
			}
			kids = append(kids, NodeElement(p.unexpected()))
		}
	}
	return p.expect(kids, "}")
}

func (p *parser) startsDeclaration() bool {
	tok := p.cur()
	return isModifier(tok) || isTypeKeyword(tok) || tok.Kind == lexer.KindIdent
}

func (p *parser) enumStruct() *Node {
	kids := []Element{p.bump(), p.bump()}
	kids = p.expectName(kids)
	if !p.at("{") {
		return NewNode(NodeEnumStruct, append(kids, p.missing("expected '{'")))
	}
	kids = append(kids, p.bump())
	kids = p.members(kids, func() *Node {
		if !p.startsDeclaration() {
			return nil
		}
		return p.declaration(ctxEnumStruct)
	})
	return NewNode(NodeEnumStruct, p.trailingSemicolon(kids))
}

func (p *parser) structDecl() *Node {
	kids := []Element{p.bump()}
	kids = p.expectName(kids)
	if !p.at("{") {
		return NewNode(NodeStruct, append(kids, p.missing("expected '{'")))
	}
	kids = append(kids, p.bump())
	kids = p.members(kids, func() *Node {
		if !p.startsDeclaration() {
			return nil
		}
		return p.declaration(ctxStruct)
	})
	return NewNode(NodeStruct, p.trailingSemicolon(kids))
}

func (p *parser) methodmap() *Node {
	kids := []Element{p.bump()}
	kids = p.expectName(kids)
	if p.at("__nullable__") {
		kids = append(kids, p.bump())
	}
	if p.at("<") {
		kids = append(kids, p.bump())
		kids = p.expectName(kids)
	}
	if !p.at("{") {
		return NewNode(NodeMethodmap, append(kids, p.missing("expected '{'")))
	}
	kids = append(kids, p.bump())
	kids = p.members(kids, func() *Node {
		switch {
		case p.at("property"):
			return p.property()
		case p.at("~"), p.startsDeclaration():
			return p.declaration(ctxMethodmap)
		}
		return nil
	})
	return NewNode(NodeMethodmap, p.trailingSemicolon(kids))
}

func (p *parser) property() *Node {
	kids := []Element{p.bump()}
	if t := p.typeOrTag(); t != nil {
		kids = append(kids, NodeElement(t))
	}
	kids = p.expectName(kids)
	if !p.at("{") {
		return NewNode(NodeProperty, append(kids, p.missing("expected '{'")))
	}
	kids = append(kids, p.bump())
	kids = p.members(kids, func() *Node {
		if !isModifier(p.cur()) && !p.atKind(lexer.KindIdent) {
			return nil
		}
		return p.accessor()
	})
	return NewNode(NodeProperty, kids)
}

func (p *parser) accessor() *Node {
	var kids []Element
	for isModifier(p.cur()) {
		kids = append(kids, p.bump())
	}
	kids = p.expectName(kids)
	if !p.at("(") {
		return NewNode(NodeAccessor, append(kids, p.missing("expected '('")))
	}
	kids = append(kids, NodeElement(p.params()))
	return NewNode(NodeAccessor, p.body(kids))
}

func (p *parser) funcType() *Node {
	if !p.at("function") {
		return NewError("expected 'function'", nil)
	}
	kids := []Element{p.bump()}
	if t := p.typeOrTag(); t != nil {
		kids = append(kids, NodeElement(t))
	} else if p.atKind(lexer.KindIdent) {
		kids = append(kids, NodeElement(NewNode(NodeType, []Element{p.bump()})))
	}
	if !p.at("(") {
		return NewNode(NodeFuncType, append(kids, p.missing("expected '('")))
	}
	kids = append(kids, NodeElement(p.params()))
	return NewNode(NodeFuncType, kids)
}

func (p *parser) typedef() *Node {
	kids := []Element{p.bump()}
	kids = p.expectName(kids)
	kids = p.expect(kids, "=")
	kids = append(kids, NodeElement(p.funcType()))
	kids = p.expect(kids, ";")
	return NewNode(NodeTypedef, kids)
}

func (p *parser) typeset() *Node {
	kids := []Element{p.bump()}
	kids = p.expectName(kids)
	if !p.at("{") {
		return NewNode(NodeTypeset, append(kids, p.missing("expected '{'")))
	}
	kids = append(kids, p.bump())
	kids = p.members(kids, func() *Node {
		if !p.at("function") {
			return nil
		}
		ft := p.funcType()
		if p.at(";") {
			return NewNode(NodeFuncType, append(ft.children, p.bump()))
		}
		return ft
	})
	return NewNode(NodeTypeset, p.trailingSemicolon(kids))
}

// legacyFuncType consumes a functag or funcenum declaration without
// interpreting its body.
func (p *parser) legacyFuncType() *Node {
	kids := []Element{p.bump()}
	for !p.eof() {
		if p.at(";") {
			kids = append(kids, p.bump())
			break
		}
		if p.at("{") {
			kids = p.balanced(kids)
			kids = p.trailingSemicolon(kids)
			break
		}
		kids = append(kids, p.bump())
	}
	return NewNode(NodeTypedef, kids)
}
