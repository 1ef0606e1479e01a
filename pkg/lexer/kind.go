// Package lexer turns SourcePawn source text into a lossless token stream.
//
// Scanning is total: every byte of the input belongs to exactly one raw token,
// and bytes that form no valid token are reported as KindUnknown instead of
// failing. The scanner is context free, so it can be restarted at any raw
// token boundary.
package lexer

// Kind classifies a token or trivia piece.
type Kind uint16

const (
	KindUnknown Kind = iota
	KindEOF

	// Trivia.
	KindWhitespace
	KindNewline
	KindLineComment
	KindBlockComment
	KindContinuation // backslash followed by a line break
	KindDirectiveLine
	KindInactive

	// Significant tokens.
	KindIdent
	KindKeyword
	KindInt
	KindFloat
	KindChar
	KindString
	KindDirective // '#' immediately followed by a name, e.g. "#include"

	KindLParen
	KindRParen
	KindLBracket
	KindRBracket
	KindLBrace
	KindRBrace
	KindSemicolon
	KindComma
	KindDot
	KindColon
	KindScope    // '::'
	KindEllipsis // '...'
	KindQuestion
	KindOperator
)

var kindNames = [...]string{
	KindUnknown:       "Unknown",
	KindEOF:           "EOF",
	KindWhitespace:    "Whitespace",
	KindNewline:       "Newline",
	KindLineComment:   "LineComment",
	KindBlockComment:  "BlockComment",
	KindContinuation:  "Continuation",
	KindDirectiveLine: "DirectiveLine",
	KindInactive:      "Inactive",
	KindIdent:         "Ident",
	KindKeyword:       "Keyword",
	KindInt:           "Int",
	KindFloat:         "Float",
	KindChar:          "Char",
	KindString:        "String",
	KindDirective:     "Directive",
	KindLParen:        "LParen",
	KindRParen:        "RParen",
	KindLBracket:      "LBracket",
	KindRBracket:      "RBracket",
	KindLBrace:        "LBrace",
	KindRBrace:        "RBrace",
	KindSemicolon:     "Semicolon",
	KindComma:         "Comma",
	KindDot:           "Dot",
	KindColon:         "Colon",
	KindScope:         "Scope",
	KindEllipsis:      "Ellipsis",
	KindQuestion:      "Question",
	KindOperator:      "Operator",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(?)"
}

// IsTrivia reports whether tokens of this kind are insignificant to the grammar.
func (k Kind) IsTrivia() bool {
	return k >= KindWhitespace && k <= KindInactive
}

// IsLiteral reports whether the kind is a literal value.
func (k Kind) IsLiteral() bool {
	return k >= KindInt && k <= KindString
}

// IsName reports whether the kind can name a declaration or reference.
func (k Kind) IsName() bool {
	return k == KindIdent
}

var keywords = map[string]struct{}{
	"acquire": {}, "any": {}, "as": {}, "assert": {}, "bool": {}, "break": {},
	"builtin": {}, "case": {}, "cast_to": {}, "catch": {}, "cellsof": {},
	"char": {}, "const": {}, "continue": {}, "decl": {}, "default": {},
	"defined": {}, "delete": {}, "do": {}, "double": {}, "else": {}, "enum": {},
	"exit": {}, "explicit": {}, "false": {}, "finally": {}, "float": {},
	"for": {}, "foreach": {}, "forward": {}, "funcenum": {}, "functag": {},
	"function": {}, "goto": {}, "if": {}, "implicit": {}, "import": {},
	"in": {}, "int": {}, "interface": {}, "let": {}, "methodmap": {},
	"namespace": {}, "native": {}, "new": {}, "null": {}, "__nullable__": {},
	"object": {}, "operator": {}, "package": {}, "private": {}, "property": {},
	"protected": {}, "public": {}, "readonly": {}, "return": {}, "sealed": {},
	"sizeof": {}, "static": {}, "stock": {}, "struct": {}, "switch": {},
	"this": {}, "throw": {}, "true": {}, "try": {}, "typedef": {},
	"typeset": {}, "union": {}, "var": {}, "variant": {}, "view_as": {},
	"virtual": {}, "void": {}, "volatile": {}, "while": {}, "with": {},
}

// IsKeyword reports whether word is a reserved SourcePawn word.
func IsKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}
