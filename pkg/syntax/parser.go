package syntax

import (
	"fmt"

	"github.com/yaklabco/pawnls/pkg/lexer"
)

// maxDepth bounds statement and expression nesting.
const maxDepth = 256

type parser struct {
	tokens []*lexer.Token
	pos    int

	// noTag disables Tag:expr casts while a ':' belongs to an enclosing
	// construct (ternary middles and case labels).
	noTag int
	depth int
}

func (p *parser) peek(n int) *lexer.Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *parser) cur() *lexer.Token {
	return p.peek(0)
}

func (p *parser) at(text string) bool {
	return p.cur().Is(text)
}

func (p *parser) atKind(kind lexer.Kind) bool {
	return p.cur().Kind == kind
}

func (p *parser) eof() bool {
	return p.cur().Kind == lexer.KindEOF
}

// bump consumes the current token. It must not be called at EOF.
func (p *parser) bump() Element {
	tok := p.cur()
	p.pos++
	return TokenElement(tok)
}

func (p *parser) missing(msg string) Element {
	return NodeElement(NewError(msg, nil))
}

func (p *parser) expect(dst []Element, text string) []Element {
	if p.at(text) {
		return append(dst, p.bump())
	}
	return append(dst, p.missing(fmt.Sprintf("expected '%s'", text)))
}

func (p *parser) expectName(dst []Element) []Element {
	if p.atKind(lexer.KindIdent) {
		return append(dst, p.bump())
	}
	return append(dst, p.missing("expected identifier"))
}

// closeWith consumes the closing token text. Stray tokens before it are
// wrapped in an error node unless one of stops is reached first, in which
// case the closer is reported missing.
func (p *parser) closeWith(dst []Element, text string, stops ...string) []Element {
	if p.at(text) {
		return append(dst, p.bump())
	}
	start := p.pos
	for i := 0; ; i++ {
		tok := p.peek(i)
		if tok.Kind == lexer.KindEOF || isOneOf(tok, stops) {
			return append(dst, p.missing(fmt.Sprintf("expected '%s'", text)))
		}
		if tok.Is(text) {
			break
		}
	}
	var skipped []Element
	for !p.at(text) {
		skipped = append(skipped, p.bump())
	}
	msg := "unexpected " + describe(p.tokens[start])
	return append(dst, NodeElement(NewError(msg, skipped)), p.bump())
}

// unexpected wraps the current token in an error node.
func (p *parser) unexpected() *Node {
	msg := "unexpected " + describe(p.cur())
	return NewError(msg, []Element{p.bump()})
}

// balanced consumes a bracketed region, nested brackets included.
func (p *parser) balanced(dst []Element) []Element {
	depth := 0
	for !p.eof() {
		switch p.cur().Kind {
		case lexer.KindLParen, lexer.KindLBracket, lexer.KindLBrace:
			depth++
		case lexer.KindRParen, lexer.KindRBracket, lexer.KindRBrace:
			depth--
		}
		dst = append(dst, p.bump())
		if depth <= 0 {
			break
		}
	}
	return dst
}

func isOneOf(tok *lexer.Token, texts []string) bool {
	for _, t := range texts {
		if tok.Is(t) {
			return true
		}
	}
	return false
}

func describe(tok *lexer.Token) string {
	switch tok.Kind {
	case lexer.KindEOF:
		return "end of file"
	case lexer.KindIdent:
		return fmt.Sprintf("identifier '%s'", tok.Text)
	case lexer.KindInt, lexer.KindFloat, lexer.KindChar, lexer.KindString:
		return "literal " + tok.Text
	default:
		return fmt.Sprintf("'%s'", tok.Text)
	}
}

var typeKeywords = map[string]bool{
	"int": true, "float": true, "char": true, "bool": true, "void": true, "any": true,
}

func isTypeKeyword(tok *lexer.Token) bool {
	return tok.Kind == lexer.KindKeyword && typeKeywords[tok.Text]
}

var modifiers = map[string]bool{
	"public": true, "stock": true, "static": true, "native": true,
	"forward": true, "const": true, "new": true, "decl": true,
}

func isModifier(tok *lexer.Token) bool {
	return tok.Kind == lexer.KindKeyword && modifiers[tok.Text]
}

// itemKeywords start file-level items that never appear inside a function
// body. A block that reaches one is treated as unterminated.
var itemKeywords = map[string]bool{
	"public": true, "stock": true, "forward": true, "native": true,
	"methodmap": true, "typedef": true, "typeset": true, "functag": true,
	"funcenum": true, "enum": true, "struct": true, "property": true,
}

func (p *parser) atItemKeyword() bool {
	tok := p.cur()
	return tok.Kind == lexer.KindKeyword && itemKeywords[tok.Text]
}

// typeLen returns the number of tokens forming a new-style type at the
// cursor, or zero when the cursor is not at one.
func (p *parser) typeLen() int {
	tok := p.cur()
	if !isTypeKeyword(tok) && tok.Kind != lexer.KindIdent {
		return 0
	}
	j := 1
	for p.peek(j).Is("[") && p.peek(j+1).Is("]") {
		j += 2
	}
	if isTypeKeyword(tok) {
		return j
	}
	next := p.peek(j)
	if next.Is("&") {
		next = p.peek(j + 1)
	}
	if next.Kind == lexer.KindIdent || next.Is("operator") {
		return j
	}
	return 0
}

func (p *parser) atTag() bool {
	tok := p.cur()
	return (tok.Kind == lexer.KindIdent || isTypeKeyword(tok)) && p.peek(1).Kind == lexer.KindColon
}

// typeOrTag parses an old-style Tag: prefix or a new-style type, if present.
func (p *parser) typeOrTag() *Node {
	if p.atTag() {
		return NewNode(NodeType, []Element{p.bump(), p.bump()})
	}
	n := p.typeLen()
	if n == 0 {
		return nil
	}
	kids := make([]Element, 0, n)
	for range n {
		kids = append(kids, p.bump())
	}
	return NewNode(NodeType, kids)
}
