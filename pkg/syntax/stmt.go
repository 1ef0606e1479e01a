package syntax

import "github.com/yaklabco/pawnls/pkg/lexer"

func (p *parser) block() *Node {
	kids := []Element{p.bump()}
	for !p.eof() && !p.at("}") && !p.atItemKeyword() {
		kids = append(kids, NodeElement(p.statement()))
	}
	kids = p.expect(kids, "}")
	return NewNode(NodeBlock, kids)
}

// statement parses one statement. It consumes at least one token unless
// the cursor is at '}' or the end of file.
func (p *parser) statement() *Node {
	if p.depth >= maxDepth {
		return p.recoverStatement("statement nested too deeply")
	}
	p.depth++
	defer func() { p.depth-- }()

	tok := p.cur()
	switch {
	case tok.Is("{"):
		return p.block()
	case tok.Is(";"):
		return NewNode(NodeEmpty, []Element{p.bump()})
	case tok.Is("if"):
		return p.ifStatement()
	case tok.Is("for"):
		return p.forStatement()
	case tok.Is("while"):
		kids := []Element{p.bump()}
		kids = p.condition(kids)
		kids = append(kids, NodeElement(p.statement()))
		return NewNode(NodeWhile, kids)
	case tok.Is("do"):
		kids := []Element{p.bump()}
		kids = append(kids, NodeElement(p.statement()))
		kids = p.expect(kids, "while")
		kids = p.condition(kids)
		kids = p.expect(kids, ";")
		return NewNode(NodeDo, kids)
	case tok.Is("switch"):
		return p.switchStatement()
	case tok.Is("return"):
		kids := []Element{p.bump()}
		if !p.at(";") && !p.at("}") {
			kids = append(kids, NodeElement(p.expr()))
		}
		return NewNode(NodeReturn, p.expect(kids, ";"))
	case tok.Is("break"):
		return NewNode(NodeBreak, p.expect([]Element{p.bump()}, ";"))
	case tok.Is("continue"):
		return NewNode(NodeContinue, p.expect([]Element{p.bump()}, ";"))
	case tok.Is("delete"):
		kids := []Element{p.bump(), NodeElement(p.expr())}
		return NewNode(NodeDelete, p.expect(kids, ";"))
	case tok.Is("case"), tok.Is("default"):
		return p.recoverStatement("case label outside switch")
	case p.startsLocalDeclaration():
		return p.declaration(ctxLocal)
	}
	return p.expressionStatement()
}

func (p *parser) startsLocalDeclaration() bool {
	tok := p.cur()
	switch {
	case tok.Is("new"):
		// new Foo(...) is a constructor call, new x is an old-style local.
		return !(p.peek(1).Kind == lexer.KindIdent && p.peek(2).Is("("))
	case tok.Is("decl"), tok.Is("static"), tok.Is("const"):
		return true
	}
	return p.typeLen() > 0
}

func (p *parser) expressionStatement() *Node {
	start := p.pos
	e := p.expr()
	if p.pos == start {
		return p.recoverStatement("expected statement, found " + describe(p.cur()))
	}
	kids := p.expect([]Element{NodeElement(e)}, ";")
	return NewNode(NodeExprStmt, kids)
}

// recoverStatement consumes at least one token, then skips to a
// statement boundary.
func (p *parser) recoverStatement(msg string) *Node {
	var skipped []Element
	if !p.eof() && !p.at("}") {
		first := p.cur()
		skipped = append(skipped, p.bump())
		if first.Is(";") {
			return NewError(msg, skipped)
		}
	}
	for !p.eof() {
		tok := p.cur()
		if tok.Is(";") {
			skipped = append(skipped, p.bump())
			break
		}
		if tok.Is("}") || tok.Is("{") || p.atItemKeyword() ||
			(tok.Kind == lexer.KindKeyword && statementKeywords[tok.Text]) {
			break
		}
		skipped = append(skipped, p.bump())
	}
	return NewError(msg, skipped)
}

var statementKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "do": true, "switch": true,
	"return": true, "break": true, "continue": true, "delete": true,
	"case": true, "default": true,
}

// condition parses a parenthesized expression.
func (p *parser) condition(kids []Element) []Element {
	if !p.at("(") {
		return append(kids, p.missing("expected '('"))
	}
	kids = append(kids, p.bump())
	kids = append(kids, NodeElement(p.expr()))
	return p.closeWith(kids, ")", ";", "{", "}")
}

func (p *parser) ifStatement() *Node {
	kids := []Element{p.bump()}
	kids = p.condition(kids)
	kids = append(kids, NodeElement(p.statement()))
	if p.at("else") {
		kids = append(kids, p.bump())
		kids = append(kids, NodeElement(p.statement()))
	}
	return NewNode(NodeIf, kids)
}

func (p *parser) forStatement() *Node {
	kids := []Element{p.bump()}
	if !p.at("(") {
		kids = append(kids, p.missing("expected '('"))
		return NewNode(NodeFor, append(kids, NodeElement(p.statement())))
	}
	kids = append(kids, p.bump())

	switch {
	case p.at(";"):
		kids = append(kids, p.bump())
	case p.startsLocalDeclaration():
		kids = append(kids, NodeElement(p.declaration(ctxLocal)))
	default:
		kids = p.exprList(kids)
		kids = p.expect(kids, ";")
	}
	if !p.at(";") {
		kids = append(kids, NodeElement(p.expr()))
	}
	kids = p.expect(kids, ";")
	if !p.at(")") {
		kids = p.exprList(kids)
	}
	kids = p.closeWith(kids, ")", ";", "{", "}")
	kids = append(kids, NodeElement(p.statement()))
	return NewNode(NodeFor, kids)
}

func (p *parser) exprList(kids []Element) []Element {
	kids = append(kids, NodeElement(p.expr()))
	for p.at(",") {
		kids = append(kids, p.bump())
		kids = append(kids, NodeElement(p.expr()))
	}
	return kids
}

func (p *parser) switchStatement() *Node {
	kids := []Element{p.bump()}
	kids = p.condition(kids)
	if !p.at("{") {
		return NewNode(NodeSwitch, append(kids, p.missing("expected '{'")))
	}
	kids = append(kids, p.bump())
	for !p.eof() && !p.at("}") && !p.atItemKeyword() {
		if p.at("case") || p.at("default") {
			kids = append(kids, NodeElement(p.caseClause()))
			continue
		}
		kids = append(kids, NodeElement(p.recoverStatement("expected 'case' or 'default'")))
	}
	kids = p.expect(kids, "}")
	return NewNode(NodeSwitch, kids)
}

func (p *parser) caseClause() *Node {
	kids := []Element{}
	if p.at("default") {
		kids = append(kids, p.bump())
	} else {
		kids = append(kids, p.bump())
		p.noTag++
		kids = p.exprList(kids)
		p.noTag--
	}
	kids = p.expect(kids, ":")
	for !p.eof() && !p.at("}") && !p.at("case") && !p.at("default") && !p.atItemKeyword() {
		kids = append(kids, NodeElement(p.statement()))
	}
	return NewNode(NodeCase, kids)
}
