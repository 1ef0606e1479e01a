package syntax

import (
	"sort"

	"github.com/yaklabco/pawnls/pkg/lexer"
)

// reuseMargin is how many unchanged tokens must follow a file-level item
// before an incremental parse may reuse it. Item parsers look at most one
// token past their end.
const reuseMargin = 2

// Tree is a parsed file.
type Tree struct {
	Root   *Node
	Tokens []*lexer.Token

	// Reused counts the file-level items shared with the previous tree by
	// Reparse.
	Reused int
}

// SyntaxError is a parse error located in preprocessed-text offsets.
type SyntaxError struct {
	Start   int
	End     int
	Message string
}

// Parse builds a tree from a token stream ending with KindEOF.
func Parse(tokens []*lexer.Token) *Tree {
	tokens = withEOF(tokens)
	p := &parser{tokens: tokens}
	var kids []Element
	for !p.eof() {
		kids = append(kids, NodeElement(p.item()))
	}
	kids = append(kids, TokenElement(p.cur()))
	return &Tree{Root: NewNode(NodeFile, kids), Tokens: tokens}
}

// Reparse parses tokens, reusing the file-level items of old that are not
// affected by the difference between old.Tokens and tokens. The result is
// equal to Parse(tokens).
func Reparse(old *Tree, tokens []*lexer.Token) *Tree {
	tokens = withEOF(tokens)
	if old == nil || old.Root == nil {
		return Parse(tokens)
	}

	oldTokens := old.Tokens
	lenOld, lenNew := len(oldTokens)-1, len(tokens)-1
	prefix := 0
	for prefix < lenOld && prefix < lenNew && oldTokens[prefix].Equal(tokens[prefix]) {
		prefix++
	}
	// The suffix may overlap the prefix: a deleted item followed by one
	// starting with the same tokens leaves the shared tokens in both.
	suffix := 0
	for suffix < lenOld && suffix < lenNew &&
		oldTokens[lenOld-1-suffix].Equal(tokens[lenNew-1-suffix]) {
		suffix++
	}

	items := old.Root.children[:len(old.Root.children)-1]
	var kids []Element
	reused := 0
	index := 0
	first := 0
	for ; first < len(items); first++ {
		end := index + items[first].tokenCount()
		if end+reuseMargin > prefix {
			break
		}
		kids = append(kids, items[first])
		reused++
		index = end
	}

	starts := make(map[int]int, len(items)-first)
	oldIndex := index
	for k := first; k < len(items); k++ {
		starts[oldIndex] = k
		oldIndex += items[k].tokenCount()
	}

	delta := lenNew - lenOld
	p := &parser{tokens: tokens, pos: index}
	for !p.eof() {
		kids = append(kids, NodeElement(p.item()))
		if p.pos < lenNew-suffix {
			continue
		}
		if k, ok := starts[p.pos-delta]; ok && !p.eof() {
			kids = append(kids, items[k:]...)
			reused += len(items) - k
			break
		}
	}
	kids = append(kids, TokenElement(tokens[lenNew]))
	return &Tree{Root: NewNode(NodeFile, kids), Tokens: tokens, Reused: reused}
}

func withEOF(tokens []*lexer.Token) []*lexer.Token {
	if len(tokens) > 0 && tokens[len(tokens)-1].Kind == lexer.KindEOF {
		return tokens
	}
	return append(tokens[:len(tokens):len(tokens)], &lexer.Token{Kind: lexer.KindEOF})
}

// Cursor returns a cursor at the root of the tree.
func (t *Tree) Cursor() *Cursor {
	return Root(t.Root)
}

// Text reproduces the parsed text.
func (t *Tree) Text() string {
	return t.Root.Text()
}

// Errors returns the tree's syntax errors ordered by position. Missing
// constructs are reported as empty ranges just after the preceding token.
func (t *Tree) Errors() []SyntaxError {
	var out []SyntaxError
	lastEnd := 0
	var visit func(n *Node, offset int)
	visit = func(n *Node, offset int) {
		if n.kind == NodeError {
			if n.tokens == 0 {
				out = append(out, SyntaxError{Start: lastEnd, End: lastEnd, Message: n.message})
			} else {
				start, end := (&Cursor{node: n, offset: offset}).TextRange()
				out = append(out, SyntaxError{Start: start, End: end, Message: n.message})
			}
		}
		for _, child := range n.children {
			if child.node != nil {
				visit(child.node, offset)
			} else if child.token.Kind != lexer.KindEOF {
				lastEnd = offset + child.token.LeadingWidth() + len(child.token.Text)
			}
			offset += child.Width()
		}
	}
	visit(t.Root, 0)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
