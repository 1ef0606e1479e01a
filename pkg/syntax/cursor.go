package syntax

import (
	"strings"

	"github.com/yaklabco/pawnls/pkg/lexer"
)

// Cursor is a positioned view of a green node.
type Cursor struct {
	node   *Node
	offset int
	parent *Cursor
}

// TokenRef is a positioned token.
type TokenRef struct {
	Token *lexer.Token

	// Start and End delimit the token text, trivia excluded.
	Start int
	End   int

	Parent *Cursor
}

// Root returns a cursor for the root of a tree.
func Root(n *Node) *Cursor {
	return &Cursor{node: n}
}

// Node returns the green node.
func (c *Cursor) Node() *Node {
	return c.node
}

// Kind returns the node kind.
func (c *Cursor) Kind() NodeKind {
	return c.node.kind
}

// Parent returns the parent cursor, or nil at the root.
func (c *Cursor) Parent() *Cursor {
	return c.parent
}

// Offset returns the start of the node's text, leading trivia included.
func (c *Cursor) Offset() int {
	return c.offset
}

// Each calls fn for every child with its absolute offset.
func (c *Cursor) Each(fn func(e Element, offset int) bool) {
	offset := c.offset
	for _, child := range c.node.children {
		if !fn(child, offset) {
			return
		}
		offset += child.Width()
	}
}

// ChildNodes returns cursors for the child nodes.
func (c *Cursor) ChildNodes() []*Cursor {
	var out []*Cursor
	c.Each(func(e Element, offset int) bool {
		if e.node != nil {
			out = append(out, &Cursor{node: e.node, offset: offset, parent: c})
		}
		return true
	})
	return out
}

// ChildTokens returns the direct child tokens.
func (c *Cursor) ChildTokens() []TokenRef {
	var out []TokenRef
	c.Each(func(e Element, offset int) bool {
		if e.token != nil {
			out = append(out, c.tokenRef(e.token, offset))
		}
		return true
	})
	return out
}

func (c *Cursor) tokenRef(tok *lexer.Token, offset int) TokenRef {
	start := offset + tok.LeadingWidth()
	return TokenRef{Token: tok, Start: start, End: start + len(tok.Text), Parent: c}
}

// Child returns the first child node of the given kind.
func (c *Cursor) Child(kind NodeKind) *Cursor {
	var found *Cursor
	c.Each(func(e Element, offset int) bool {
		if e.node != nil && e.node.kind == kind {
			found = &Cursor{node: e.node, offset: offset, parent: c}
			return false
		}
		return true
	})
	return found
}

// Children returns the child nodes of the given kind.
func (c *Cursor) Children(kind NodeKind) []*Cursor {
	var out []*Cursor
	for _, child := range c.ChildNodes() {
		if child.Kind() == kind {
			out = append(out, child)
		}
	}
	return out
}

// ChildToken returns the first direct child token with the given text.
func (c *Cursor) ChildToken(text string) (TokenRef, bool) {
	for _, ref := range c.ChildTokens() {
		if ref.Token.Is(text) {
			return ref, true
		}
	}
	return TokenRef{}, false
}

// FirstIdent returns the first direct child identifier token.
func (c *Cursor) FirstIdent() (TokenRef, bool) {
	for _, ref := range c.ChildTokens() {
		if ref.Token.Kind == lexer.KindIdent {
			return ref, true
		}
	}
	return TokenRef{}, false
}

// FirstToken returns the first token under the node.
func (c *Cursor) FirstToken() (TokenRef, bool) {
	var ref TokenRef
	ok := false
	c.Each(func(e Element, offset int) bool {
		if e.token != nil {
			ref, ok = c.tokenRef(e.token, offset), true
			return false
		}
		if e.node.tokens > 0 {
			ref, ok = (&Cursor{node: e.node, offset: offset, parent: c}).FirstToken()
			return false
		}
		return true
	})
	return ref, ok
}

// LastToken returns the last token under the node.
func (c *Cursor) LastToken() (TokenRef, bool) {
	var last *Cursor
	var lastTok *lexer.Token
	lastOffset := 0
	c.Each(func(e Element, offset int) bool {
		if e.token != nil {
			lastTok, last, lastOffset = e.token, nil, offset
		} else if e.node.tokens > 0 {
			lastTok, last = nil, &Cursor{node: e.node, offset: offset, parent: c}
		}
		return true
	})
	if last != nil {
		return last.LastToken()
	}
	if lastTok != nil {
		return c.tokenRef(lastTok, lastOffset), true
	}
	return TokenRef{}, false
}

// TextRange returns the node's range without its outer trivia.
func (c *Cursor) TextRange() (int, int) {
	first, ok := c.FirstToken()
	if !ok {
		return c.offset, c.offset
	}
	last, _ := c.LastToken()
	return first.Start, last.End
}

// Text returns the node's text without its outer trivia.
func (c *Cursor) Text() string {
	tokens := c.node.Tokens(nil)
	if len(tokens) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			for _, tr := range tok.Leading {
				sb.WriteString(tr.Text)
			}
		}
		sb.WriteString(tok.Text)
		if i < len(tokens)-1 {
			for _, tr := range tok.Trailing {
				sb.WriteString(tr.Text)
			}
		}
	}
	return sb.String()
}

// TokenAt returns the token whose text contains offset. An offset right
// after a token's text also hits it, unless another token starts there.
func (c *Cursor) TokenAt(offset int) (TokenRef, bool) {
	var best TokenRef
	found := false
	var visit func(cur *Cursor) bool
	visit = func(cur *Cursor) bool {
		stop := false
		cur.Each(func(e Element, off int) bool {
			if off > offset {
				stop = true
				return false
			}
			if off+e.Width() < offset {
				return true
			}
			if e.token != nil {
				ref := cur.tokenRef(e.token, off)
				if ref.Start <= offset && offset <= ref.End && e.token.Kind != lexer.KindEOF {
					if !found || ref.Start == offset {
						best, found = ref, true
					}
				}
				return true
			}
			if visit(&Cursor{node: e.node, offset: off, parent: cur}) {
				stop = true
				return false
			}
			return true
		})
		return stop
	}
	visit(c)
	return best, found
}

// Ancestors returns the cursor chain from c up to the root, c first.
func (c *Cursor) Ancestors() []*Cursor {
	var out []*Cursor
	for cur := c; cur != nil; cur = cur.parent {
		out = append(out, cur)
	}
	return out
}

// Enclosing returns the nearest ancestor (including c) of one of the kinds.
func (c *Cursor) Enclosing(kinds ...NodeKind) *Cursor {
	for cur := c; cur != nil; cur = cur.parent {
		for _, k := range kinds {
			if cur.node.kind == k {
				return cur
			}
		}
	}
	return nil
}
