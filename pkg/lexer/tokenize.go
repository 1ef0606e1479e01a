package lexer

import "sort"

// Tokenize scans src and attaches trivia to significant tokens. The result
// always ends with a KindEOF token holding any trailing trivia, and
// Concat(Tokenize(src)) == src.
func Tokenize(src string) []*Token {
	return Cook(src, Scan(src))
}

// Cook attaches trivia from raw tokens to the significant tokens they surround.
// Trivia on the same line after a token, up to but not including the line
// break, trails it; everything else leads the next token.
func Cook(src string, raw []RawToken) []*Token {
	tokens := make([]*Token, 0, len(raw)/2+1)
	var leading []Trivia
	var last *Token

	for _, rt := range raw {
		text := rt.Text(src)
		if !rt.Kind.IsTrivia() {
			tok := &Token{Kind: rt.Kind, Text: text, Leading: leading}
			leading = nil
			tokens = append(tokens, tok)
			last = tok
			continue
		}

		tr := Trivia{Kind: rt.Kind, Text: text}
		if last != nil && leading == nil && rt.Kind != KindNewline && !hasLineBreak(text) {
			last.Trailing = append(last.Trailing, tr)
			continue
		}
		if last != nil && leading == nil && rt.Kind == KindNewline {
			// The line break ends trailing trivia; it leads the next token.
			last = nil
		}
		leading = append(leading, tr)
	}

	return append(tokens, &Token{Kind: KindEOF, Leading: leading})
}

func hasLineBreak(text string) bool {
	for i := range len(text) {
		if text[i] == '\n' {
			return true
		}
	}
	return false
}

// Relex updates raw tokens after an edit without rescanning the whole buffer.
// The edit replaced oldSrc[editStart:oldEnd] with newSrc[editStart:newEnd].
// Scanning restarts a few tokens before the edit and stops as soon as a new
// token boundary lines up with an old boundary past the edit; from there the
// old tokens are reused, shifted by the length change.
func Relex(old []RawToken, newSrc string, editStart, oldEnd, newEnd int) []RawToken {
	delta := newEnd - oldEnd

	// Restart after the last old token whose end is far enough from the edit
	// that no lookahead could have crossed into it.
	keep := sort.Search(len(old), func(i int) bool {
		return old[i].EndOffset+maxLookahead > editStart
	})
	restart := 0
	if keep > 0 {
		restart = old[keep-1].EndOffset
	}

	out := make([]RawToken, 0, len(old)+8)
	out = append(out, old[:keep]...)

	s := NewScanner(newSrc)
	s.Reset(restart)
	for !s.Done() {
		if s.Offset() >= newEnd {
			oldStart := s.Offset() - delta
			if oldStart >= oldEnd {
				idx := sort.Search(len(old), func(i int) bool {
					return old[i].StartOffset >= oldStart
				})
				if idx < len(old) && old[idx].StartOffset == oldStart {
					for _, tok := range old[idx:] {
						tok.StartOffset += delta
						tok.EndOffset += delta
						out = append(out, tok)
					}
					return out
				}
			}
		}
		out = append(out, s.Next())
	}

	return out
}
