// Package syntax builds lossless, error-tolerant syntax trees for SourcePawn.
//
// Trees are split in two layers. Green nodes (Node) are immutable, carry no
// absolute positions and are shared between versions of a file. Cursors
// wrap green nodes with an absolute offset and a parent link, and are created
// on demand while navigating.
package syntax

import (
	"strings"

	"github.com/yaklabco/pawnls/pkg/lexer"
)

// NodeKind classifies a syntax node.
type NodeKind uint16

const (
	NodeFile NodeKind = iota
	NodeError

	// Declarations.
	NodeFunction
	NodeParams
	NodeParam
	NodeType
	NodeVarDecl
	NodeDeclarator
	NodeEnum
	NodeEnumMember
	NodeEnumStruct
	NodeStruct
	NodeField
	NodeMethodmap
	NodeMethod
	NodeProperty
	NodeAccessor
	NodeTypedef
	NodeTypeset
	NodeFuncType
	NodeEmpty

	// Statements.
	NodeBlock
	NodeExprStmt
	NodeIf
	NodeFor
	NodeWhile
	NodeDo
	NodeSwitch
	NodeCase
	NodeReturn
	NodeBreak
	NodeContinue
	NodeDelete

	// Expressions.
	NodeName
	NodeLiteral
	NodeParen
	NodeUnary
	NodeBinary
	NodeAssign
	NodeTernary
	NodePostfix
	NodeCall
	NodeArgs
	NodeIndex
	NodeMember
	NodeScoped
	NodeViewAs
	NodeSizeof
	NodeNew
	NodeArrayLit
	NodeTagCast
	NodeDims
)

var nodeNames = [...]string{
	NodeFile: "File", NodeError: "Error",
	NodeFunction: "Function", NodeParams: "Params", NodeParam: "Param", NodeType: "Type",
	NodeVarDecl: "VarDecl", NodeDeclarator: "Declarator", NodeEnum: "Enum",
	NodeEnumMember: "EnumMember", NodeEnumStruct: "EnumStruct", NodeStruct: "Struct",
	NodeField: "Field", NodeMethodmap: "Methodmap", NodeMethod: "Method",
	NodeProperty: "Property", NodeAccessor: "Accessor", NodeTypedef: "Typedef",
	NodeTypeset: "Typeset", NodeFuncType: "FuncType", NodeEmpty: "Empty",
	NodeBlock: "Block", NodeExprStmt: "ExprStmt", NodeIf: "If", NodeFor: "For",
	NodeWhile: "While", NodeDo: "Do", NodeSwitch: "Switch", NodeCase: "Case",
	NodeReturn: "Return", NodeBreak: "Break", NodeContinue: "Continue", NodeDelete: "Delete",
	NodeName: "Name", NodeLiteral: "Literal", NodeParen: "Paren", NodeUnary: "Unary",
	NodeBinary: "Binary", NodeAssign: "Assign", NodeTernary: "Ternary", NodePostfix: "Postfix",
	NodeCall: "Call", NodeArgs: "Args", NodeIndex: "Index", NodeMember: "Member",
	NodeScoped: "Scoped", NodeViewAs: "ViewAs", NodeSizeof: "Sizeof", NodeNew: "New",
	NodeArrayLit: "ArrayLit", NodeTagCast: "TagCast", NodeDims: "Dims",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeNames) && nodeNames[k] != "" {
		return nodeNames[k]
	}
	return "NodeKind(?)"
}

// IsDeclaration reports whether nodes of this kind declare something at
// file or type scope.
func (k NodeKind) IsDeclaration() bool {
	return k >= NodeFunction && k <= NodeFuncType
}

// Element is a child of a node: either a node or a token.
type Element struct {
	node  *Node
	token *lexer.Token
}

// NodeElement wraps a node.
func NodeElement(n *Node) Element {
	return Element{node: n}
}

// TokenElement wraps a token.
func TokenElement(t *lexer.Token) Element {
	return Element{token: t}
}

// Node returns the wrapped node, or nil for tokens.
func (e Element) Node() *Node {
	return e.node
}

// Token returns the wrapped token, or nil for nodes.
func (e Element) Token() *lexer.Token {
	return e.token
}

// Width returns the full width of the element, trivia included.
func (e Element) Width() int {
	if e.node != nil {
		return e.node.width
	}
	return e.token.FullWidth()
}

func (e Element) tokenCount() int {
	if e.node != nil {
		return e.node.tokens
	}
	return 1
}

// Node is an immutable green node.
type Node struct {
	kind     NodeKind
	message  string
	width    int
	tokens   int
	children []Element
}

// NewNode builds a node from its children.
func NewNode(kind NodeKind, children []Element) *Node {
	n := &Node{kind: kind, children: children}
	for _, c := range children {
		n.width += c.Width()
		n.tokens += c.tokenCount()
	}
	return n
}

// NewError builds an error node. An error node with no children marks
// something missing.
func NewError(message string, children []Element) *Node {
	n := NewNode(NodeError, children)
	n.message = message
	return n
}

// Kind returns the node kind.
func (n *Node) Kind() NodeKind {
	return n.kind
}

// Message returns the error message of an error node.
func (n *Node) Message() string {
	return n.message
}

// Width returns the full text width of the node.
func (n *Node) Width() int {
	return n.width
}

// TokenCount returns the number of tokens under the node.
func (n *Node) TokenCount() int {
	return n.tokens
}

// Children returns the node's children. The slice must not be modified.
func (n *Node) Children() []Element {
	return n.children
}

// Text reproduces the node's text, trivia included.
func (n *Node) Text() string {
	var sb strings.Builder
	sb.Grow(n.width)
	n.writeTo(&sb)
	return sb.String()
}

func (n *Node) writeTo(sb *strings.Builder) {
	for _, c := range n.children {
		if c.node != nil {
			c.node.writeTo(sb)
		} else {
			c.token.WriteTo(sb)
		}
	}
}

// Tokens appends every token under the node to dst, in order.
func (n *Node) Tokens(dst []*lexer.Token) []*lexer.Token {
	for _, c := range n.children {
		if c.node != nil {
			dst = c.node.Tokens(dst)
		} else {
			dst = append(dst, c.token)
		}
	}
	return dst
}

// Equal reports whether two trees have the same structure and content.
func Equal(a, b *Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.kind != b.kind || a.message != b.message || a.width != b.width || len(a.children) != len(b.children) {
		return false
	}
	for i := range a.children {
		ca, cb := a.children[i], b.children[i]
		switch {
		case ca.node != nil && cb.node != nil:
			if !Equal(ca.node, cb.node) {
				return false
			}
		case ca.token != nil && cb.token != nil:
			if !ca.token.Equal(cb.token) {
				return false
			}
		default:
			return false
		}
	}
	return true
}
