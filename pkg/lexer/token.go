package lexer

import "strings"

// RawToken is a classified byte range of the source. Raw tokens are
// contiguous and non-overlapping and cover [0, len(src)).
type RawToken struct {
	Kind        Kind
	StartOffset int
	EndOffset   int
}

// Text returns the source text of this token.
func (t RawToken) Text(src string) string {
	if t.StartOffset < 0 || t.EndOffset > len(src) || t.StartOffset > t.EndOffset {
		return ""
	}
	return src[t.StartOffset:t.EndOffset]
}

// Len returns the length of this token in bytes.
func (t RawToken) Len() int {
	return t.EndOffset - t.StartOffset
}

// ValidateTokens checks that tokens are contiguous, non-overlapping and cover
// [0, contentLen).
func ValidateTokens(tokens []RawToken, contentLen int) bool {
	pos := 0
	for _, tok := range tokens {
		if tok.StartOffset != pos || tok.EndOffset <= tok.StartOffset {
			return false
		}
		pos = tok.EndOffset
	}
	return pos == contentLen
}

// Trivia is an insignificant piece of text attached to a token.
type Trivia struct {
	Kind Kind
	Text string
}

// Token is a significant token with its attached trivia. Tokens carry no
// absolute position so they can be shared between tree versions.
type Token struct {
	Kind     Kind
	Text     string
	Leading  []Trivia
	Trailing []Trivia
}

// LeadingWidth returns the byte length of the leading trivia.
func (t *Token) LeadingWidth() int {
	n := 0
	for _, tr := range t.Leading {
		n += len(tr.Text)
	}
	return n
}

// FullWidth returns the byte length of the token including all trivia.
func (t *Token) FullWidth() int {
	n := t.LeadingWidth() + len(t.Text)
	for _, tr := range t.Trailing {
		n += len(tr.Text)
	}
	return n
}

// WriteTo appends the full text of the token, trivia included, to sb.
func (t *Token) WriteTo(sb *strings.Builder) {
	for _, tr := range t.Leading {
		sb.WriteString(tr.Text)
	}
	sb.WriteString(t.Text)
	for _, tr := range t.Trailing {
		sb.WriteString(tr.Text)
	}
}

// Equal reports whether two tokens have identical kind, text and trivia.
func (t *Token) Equal(other *Token) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	return t.Kind == other.Kind && t.Text == other.Text &&
		triviaEqual(t.Leading, other.Leading) && triviaEqual(t.Trailing, other.Trailing)
}

func triviaEqual(a, b []Trivia) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Is reports whether the token is a keyword or punctuation with the given text.
func (t *Token) Is(text string) bool {
	return t != nil && t.Kind != KindString && t.Kind != KindChar && t.Text == text
}

// Concat reproduces the text covered by tokens, trivia included.
func Concat(tokens []*Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		tok.WriteTo(&sb)
	}
	return sb.String()
}
