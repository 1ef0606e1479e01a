package lexer

import (
	"strings"
	"unicode/utf8"
)

// maxLookahead is the furthest the scanner ever peeks past the end of the
// token it is producing.
const maxLookahead = 4

// operators lists multi-byte operators, longest first.
var operators = []string{
	">>>=", "<<=", ">>=", ">>>",
	"==", "!=", "<=", ">=", "&&", "||", "++", "--", "+=", "-=", "*=", "/=",
	"%=", "&=", "|=", "^=", "<<", ">>",
}

// Scanner produces raw tokens on demand. It is lazy and restartable: Reset
// moves it to any raw token boundary and scanning continues from there.
type Scanner struct {
	src string
	pos int
}

// NewScanner returns a scanner positioned at the start of src.
func NewScanner(src string) *Scanner {
	return &Scanner{src: src}
}

// Reset repositions the scanner at offset, which must be a token boundary.
func (s *Scanner) Reset(offset int) {
	s.pos = max(0, min(offset, len(s.src)))
}

// Offset returns the offset the next token starts at.
func (s *Scanner) Offset() int {
	return s.pos
}

// Done reports whether the whole input has been consumed.
func (s *Scanner) Done() bool {
	return s.pos >= len(s.src)
}

// Next returns the next raw token. At the end of input it returns a
// zero-width KindEOF token.
func (s *Scanner) Next() RawToken {
	start := s.pos
	if start >= len(s.src) {
		return RawToken{Kind: KindEOF, StartOffset: start, EndOffset: start}
	}

	kind := s.scan()
	return RawToken{Kind: kind, StartOffset: start, EndOffset: s.pos}
}

// Scan tokenizes the whole of src into raw tokens, without the EOF marker.
func Scan(src string) []RawToken {
	s := NewScanner(src)
	tokens := make([]RawToken, 0, len(src)/4+1)
	for !s.Done() {
		tokens = append(tokens, s.Next())
	}
	return tokens
}

func (s *Scanner) peek(n int) byte {
	if s.pos+n < len(s.src) {
		return s.src[s.pos+n]
	}
	return 0
}

func (s *Scanner) scan() Kind {
	c := s.src[s.pos]

	switch {
	case c == '\n':
		s.pos++
		return KindNewline
	case c == '\r' && s.peek(1) == '\n':
		s.pos += 2
		return KindNewline
	case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
		for s.pos < len(s.src) {
			ch := s.src[s.pos]
			if ch != ' ' && ch != '\t' && ch != '\f' && ch != '\v' && !(ch == '\r' && s.peek(1) != '\n') {
				break
			}
			s.pos++
		}
		return KindWhitespace
	case c == '/' && s.peek(1) == '/':
		s.skipToLineEnd()
		return KindLineComment
	case c == '/' && s.peek(1) == '*':
		end := strings.Index(s.src[s.pos+2:], "*/")
		if end < 0 {
			s.pos = len(s.src)
		} else {
			s.pos += 2 + end + 2
		}
		return KindBlockComment
	case c == '\\':
		return s.scanBackslash()
	case isIdentStart(c):
		return s.scanIdent()
	case isDigit(c):
		return s.scanNumber()
	case c == '"' || c == '\'':
		return s.scanQuoted(c)
	case c == '#':
		if isIdentStart(s.peek(1)) {
			s.pos++
			s.scanIdent()
			return KindDirective
		}
		s.pos++
		return KindUnknown
	}

	return s.scanPunct(c)
}

func (s *Scanner) scanBackslash() Kind {
	switch {
	case s.peek(1) == '\n':
		s.pos += 2
		return KindContinuation
	case s.peek(1) == '\r' && s.peek(2) == '\n':
		s.pos += 3
		return KindContinuation
	}
	s.pos++
	return KindUnknown
}

func (s *Scanner) scanIdent() Kind {
	start := s.pos
	for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
		s.pos++
	}
	if IsKeyword(s.src[start:s.pos]) {
		return KindKeyword
	}
	return KindIdent
}

func (s *Scanner) scanNumber() Kind {
	if s.src[s.pos] == '0' {
		switch s.peek(1) {
		case 'x', 'X', 'b', 'B', 'o', 'O':
			s.pos += 2
			for s.pos < len(s.src) && (isHexDigit(s.src[s.pos]) || s.src[s.pos] == '_') {
				s.pos++
			}
			return KindInt
		}
	}

	s.skipDigits()
	kind := KindInt
	if s.peek(0) == '.' && isDigit(s.peek(1)) {
		kind = KindFloat
		s.pos++
		s.skipDigits()
	}
	if c := s.peek(0); c == 'e' || c == 'E' {
		next := s.peek(1)
		if isDigit(next) || ((next == '-' || next == '+') && isDigit(s.peek(2))) {
			kind = KindFloat
			s.pos += 2
			s.skipDigits()
		}
	}
	return kind
}

func (s *Scanner) skipDigits() {
	for s.pos < len(s.src) && (isDigit(s.src[s.pos]) || s.src[s.pos] == '_') {
		s.pos++
	}
}

// scanQuoted scans a string or character literal. An unterminated literal
// becomes an unknown token running to the end of the line.
func (s *Scanner) scanQuoted(quote byte) Kind {
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			if s.peek(1) == '\n' || s.peek(1) == '\r' {
				// A continuation inside a literal keeps it open on the next line.
				s.pos++
				if s.src[s.pos] == '\r' && s.peek(1) == '\n' {
					s.pos++
				}
				s.pos++
				continue
			}
			s.pos += 2
			if s.pos > len(s.src) {
				s.pos = len(s.src)
			}
		case quote:
			s.pos++
			if quote == '"' {
				return KindString
			}
			return KindChar
		case '\n', '\r':
			return KindUnknown
		default:
			s.pos++
		}
	}
	return KindUnknown
}

func (s *Scanner) scanPunct(c byte) Kind {
	switch c {
	case '(':
		s.pos++
		return KindLParen
	case ')':
		s.pos++
		return KindRParen
	case '[':
		s.pos++
		return KindLBracket
	case ']':
		s.pos++
		return KindRBracket
	case '{':
		s.pos++
		return KindLBrace
	case '}':
		s.pos++
		return KindRBrace
	case ';':
		s.pos++
		return KindSemicolon
	case ',':
		s.pos++
		return KindComma
	case '?':
		s.pos++
		return KindQuestion
	case '.':
		if s.peek(1) == '.' && s.peek(2) == '.' {
			s.pos += 3
			return KindEllipsis
		}
		s.pos++
		return KindDot
	case ':':
		if s.peek(1) == ':' {
			s.pos += 2
			return KindScope
		}
		s.pos++
		return KindColon
	}

	rest := s.src[s.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			s.pos += len(op)
			return KindOperator
		}
	}
	if strings.IndexByte("+-*/%=<>!~&|^", c) >= 0 {
		s.pos++
		return KindOperator
	}

	// One unknown token per rune so multi-byte input stays intact.
	_, size := utf8.DecodeRuneInString(rest)
	s.pos += size
	return KindUnknown
}

func (s *Scanner) skipToLineEnd() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\n' || (c == '\r' && s.peek(1) == '\n') {
			return
		}
		s.pos++
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
