package syntax

import "github.com/yaklabco/pawnls/pkg/lexer"

var binaryPrec = map[string]int{
	"||": 1, "&&": 2, "|": 3, "^": 4, "&": 5,
	"==": 6, "!=": 6,
	"<": 7, "<=": 7, ">": 7, ">=": 7,
	"<<": 8, ">>": 8, ">>>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true, ">>>=": true,
}

var unaryOps = map[string]bool{
	"!": true, "~": true, "-": true, "+": true, "++": true, "--": true,
}

func isMissing(n *Node) bool {
	return n.kind == NodeError && n.tokens == 0
}

// expr parses an assignment expression. When no expression starts at the
// cursor it returns a missing node without consuming anything.
func (p *parser) expr() *Node {
	lhs := p.ternary()
	if isMissing(lhs) {
		return lhs
	}
	tok := p.cur()
	if tok.Kind == lexer.KindOperator && assignOps[tok.Text] {
		kids := []Element{NodeElement(lhs), p.bump()}
		kids = append(kids, NodeElement(p.expr()))
		return NewNode(NodeAssign, kids)
	}
	return lhs
}

func (p *parser) ternary() *Node {
	cond := p.binary(1)
	if isMissing(cond) || !p.atKind(lexer.KindQuestion) {
		return cond
	}
	kids := []Element{NodeElement(cond), p.bump()}
	p.noTag++
	kids = append(kids, NodeElement(p.expr()))
	p.noTag--
	if p.atKind(lexer.KindColon) {
		kids = append(kids, p.bump())
	} else {
		kids = append(kids, p.missing("expected ':'"))
	}
	kids = append(kids, NodeElement(p.ternary()))
	return NewNode(NodeTernary, kids)
}

func (p *parser) binary(minPrec int) *Node {
	left := p.unary()
	if isMissing(left) {
		return left
	}
	for {
		tok := p.cur()
		prec, ok := binaryPrec[tok.Text]
		if tok.Kind != lexer.KindOperator || !ok || prec < minPrec {
			return left
		}
		op := p.bump()
		right := p.binary(prec + 1)
		left = NewNode(NodeBinary, []Element{NodeElement(left), op, NodeElement(right)})
	}
}

func (p *parser) unary() *Node {
	if p.depth >= maxDepth {
		if p.eof() {
			return NewError("expression nested too deeply", nil)
		}
		return NewError("expression nested too deeply", []Element{p.bump()})
	}
	p.depth++
	defer func() { p.depth-- }()

	tok := p.cur()
	switch {
	case tok.Kind == lexer.KindOperator && unaryOps[tok.Text]:
		return NewNode(NodeUnary, []Element{p.bump(), NodeElement(p.unary())})
	case tok.Is("sizeof"):
		return NewNode(NodeSizeof, []Element{p.bump(), NodeElement(p.unary())})
	case tok.Is("view_as"):
		return p.postfix(p.viewAs())
	case tok.Is("new"):
		return p.newExpr()
	case p.noTag == 0 && p.atTag():
		return NewNode(NodeTagCast, []Element{p.bump(), p.bump(), NodeElement(p.unary())})
	}
	return p.postfix(p.primary())
}

func (p *parser) primary() *Node {
	tok := p.cur()
	switch {
	case tok.Kind == lexer.KindString:
		kids := []Element{p.bump()}
		for p.atKind(lexer.KindString) {
			kids = append(kids, p.bump())
		}
		return NewNode(NodeLiteral, kids)
	case tok.Kind.IsLiteral(), tok.Is("true"), tok.Is("false"), tok.Is("null"):
		return NewNode(NodeLiteral, []Element{p.bump()})
	case tok.Kind == lexer.KindIdent, tok.Is("this"):
		return NewNode(NodeName, []Element{p.bump()})
	case tok.Is("("):
		saved := p.noTag
		p.noTag = 0
		kids := []Element{p.bump(), NodeElement(p.expr())}
		p.noTag = saved
		kids = p.closeWith(kids, ")", ";", "{", "}")
		return NewNode(NodeParen, kids)
	case tok.Is("{"):
		return p.arrayLiteral()
	}
	return NewError("expected expression", nil)
}

func (p *parser) postfix(e *Node) *Node {
	if isMissing(e) {
		return e
	}
	for {
		switch {
		case p.at("("):
			e = NewNode(NodeCall, []Element{NodeElement(e), NodeElement(p.args())})
		case p.at("["):
			saved := p.noTag
			p.noTag = 0
			kids := []Element{NodeElement(e), p.bump()}
			if !p.at("]") {
				kids = append(kids, NodeElement(p.expr()))
			}
			p.noTag = saved
			kids = p.closeWith(kids, "]", ";", "{", "}", ")")
			e = NewNode(NodeIndex, kids)
		case p.at("."):
			kids := []Element{NodeElement(e), p.bump()}
			e = NewNode(NodeMember, p.expectName(kids))
		case p.atKind(lexer.KindScope):
			kids := []Element{NodeElement(e), p.bump()}
			e = NewNode(NodeScoped, p.expectName(kids))
		case p.at("++"), p.at("--"):
			e = NewNode(NodePostfix, []Element{NodeElement(e), p.bump()})
		default:
			return e
		}
	}
}

func (p *parser) args() *Node {
	kids := []Element{p.bump()}
	saved := p.noTag
	p.noTag = 0
	for !p.eof() && !p.at(")") {
		if p.at(",") {
			kids = append(kids, p.bump())
			continue
		}
		if p.at(".") && p.peek(1).Kind == lexer.KindIdent && p.peek(2).Is("=") {
			named := []Element{p.bump(), p.bump(), p.bump(), NodeElement(p.expr())}
			kids = append(kids, NodeElement(NewNode(NodeAssign, named)))
		} else {
			arg := p.expr()
			if isMissing(arg) {
				break
			}
			kids = append(kids, NodeElement(arg))
		}
		if p.at(",") {
			kids = append(kids, p.bump())
			continue
		}
		if !p.at(")") {
			break
		}
	}
	p.noTag = saved
	kids = p.closeWith(kids, ")", ";", "{", "}")
	return NewNode(NodeArgs, kids)
}

func (p *parser) arrayLiteral() *Node {
	kids := []Element{p.bump()}
	saved := p.noTag
	p.noTag = 0
	for !p.eof() && !p.at("}") {
		if p.at("...") {
			kids = append(kids, p.bump())
		} else {
			el := p.expr()
			if isMissing(el) {
				break
			}
			kids = append(kids, NodeElement(el))
		}
		if !p.at(",") {
			break
		}
		kids = append(kids, p.bump())
	}
	p.noTag = saved
	kids = p.closeWith(kids, "}", ";")
	return NewNode(NodeArrayLit, kids)
}

// simpleType parses a single-token type name.
func (p *parser) simpleType(kids []Element) []Element {
	if p.atKind(lexer.KindIdent) || isTypeKeyword(p.cur()) {
		return append(kids, NodeElement(NewNode(NodeType, []Element{p.bump()})))
	}
	return append(kids, p.missing("expected type"))
}

func (p *parser) viewAs() *Node {
	kids := []Element{p.bump()}
	kids = p.expect(kids, "<")
	kids = p.simpleType(kids)
	kids = p.expect(kids, ">")
	if !p.at("(") {
		return NewNode(NodeViewAs, append(kids, p.missing("expected '('")))
	}
	paren := []Element{p.bump(), NodeElement(p.expr())}
	paren = p.closeWith(paren, ")", ";", "{", "}")
	return NewNode(NodeViewAs, append(kids, NodeElement(NewNode(NodeParen, paren))))
}

func (p *parser) newExpr() *Node {
	kids := []Element{p.bump()}
	kids = p.simpleType(kids)
	switch {
	case p.at("("):
		kids = append(kids, NodeElement(p.args()))
	case p.at("["):
		for p.at("[") {
			kids = append(kids, NodeElement(p.dims()))
		}
	default:
		kids = append(kids, p.missing("expected '(' or '['"))
	}
	return p.postfix(NewNode(NodeNew, kids))
}
