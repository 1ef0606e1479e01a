package preproc

import (
	"fmt"
	"slices"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/lexer"
	"github.com/yaklabco/pawnls/pkg/source"
)

// ptoken is a token travelling through expansion.
type ptoken struct {
	tok    lexer.Token
	origin source.Span
	site   source.Span
	macro  string
	hide   []string
	depth  int
}

func (p *ptoken) hidden(name string) bool {
	return slices.Contains(p.hide, name)
}

// docSpan is where the token appears in the document being preprocessed.
func (p *ptoken) docSpan() source.Span {
	if p.macro != "" {
		return p.site
	}
	return p.origin
}

// expander rescans tokens, replacing macro invocations. Tokens come from the
// pending queue first and then from pull.
type expander struct {
	pp      *preprocessor
	pending []ptoken
	pull    func() (ptoken, bool)
	carry   []lexer.Trivia
	record  bool
}

func (e *expander) next() (ptoken, bool) {
	if len(e.pending) > 0 {
		t := e.pending[0]
		e.pending = e.pending[1:]
		return t, true
	}
	if e.pull == nil {
		return ptoken{}, false
	}
	return e.pull()
}

func (e *expander) unread(tokens ...ptoken) {
	merged := make([]ptoken, 0, len(tokens)+len(e.pending))
	merged = append(merged, tokens...)
	e.pending = append(merged, e.pending...)
}

// step returns the next fully expanded token.
func (e *expander) step() (ptoken, bool) {
	for {
		t, ok := e.next()
		if !ok {
			if len(e.carry) > 0 && e.pull == nil {
				// Trivia of an empty expansion at the very end of a list is dropped.
				e.carry = nil
			}
			return t, false
		}
		if e.expand(t) {
			continue
		}
		if len(e.carry) > 0 {
			leading := make([]lexer.Trivia, 0, len(e.carry)+len(t.tok.Leading))
			leading = append(leading, e.carry...)
			t.tok.Leading = append(leading, t.tok.Leading...)
			e.carry = nil
		}
		return t, true
	}
}

// drain expands everything left in the expander.
func (e *expander) drain() []ptoken {
	var out []ptoken
	for {
		t, ok := e.step()
		if !ok {
			return out
		}
		out = append(out, t)
	}
}

// expand replaces t if it invokes a macro. It reports whether the
// replacement was queued for rescanning.
func (e *expander) expand(t ptoken) bool {
	if t.tok.Kind != lexer.KindIdent && t.tok.Kind != lexer.KindKeyword {
		return false
	}
	m := e.pp.macros[t.tok.Text]
	if m == nil || t.hidden(m.Name) {
		return false
	}
	if t.depth >= e.pp.maxDepth {
		e.pp.depthExceeded(t)
		return false
	}

	var args [][]ptoken
	end := t
	if m.IsFunctionLike() {
		la, ok := e.next()
		if !ok {
			return false
		}
		if la.tok.Kind != lexer.KindLParen {
			e.unread(la)
			return false
		}

		var consumed []ptoken
		args, end, consumed, ok = e.collectArgs(la)
		if !ok {
			e.pp.report(diag.New(diag.SourcePreprocessor, "unterminated-macro-call", t.docSpan(),
				fmt.Sprintf("Unterminated invocation of macro %s", m.Name)).Build())
			e.unread(consumed...)
			return false
		}
		args = e.checkArity(m, t, args)
	}

	site := e.siteOf(t, end)
	repl := e.substitute(m, t, args, site)

	if len(repl) == 0 {
		e.carry = append(e.carry, t.tok.Leading...)
		e.carry = append(e.carry, end.tok.Trailing...)
	} else {
		repl[0].tok.Leading = slices.Clone(t.tok.Leading)
		repl[len(repl)-1].tok.Trailing = slices.Clone(end.tok.Trailing)
	}

	if e.record && t.macro == "" {
		e.pp.uses = append(e.pp.uses, MacroUse{Name: m.Name, Span: t.origin, Site: site, Macro: m})
	}

	e.unread(repl...)
	return true
}

// collectArgs reads a parenthesized argument list. Commas split arguments
// only at nesting depth one; brackets and braces nest like parentheses.
func (e *expander) collectArgs(lparen ptoken) ([][]ptoken, ptoken, []ptoken, bool) {
	consumed := []ptoken{lparen}
	var args [][]ptoken
	var current []ptoken
	depth := 1

	for {
		t, ok := e.next()
		if !ok {
			return nil, t, consumed, false
		}
		consumed = append(consumed, t)

		switch t.tok.Kind {
		case lexer.KindEOF:
			return nil, t, consumed, false
		case lexer.KindLParen, lexer.KindLBracket, lexer.KindLBrace:
			depth++
		case lexer.KindRParen, lexer.KindRBracket, lexer.KindRBrace:
			depth--
			if depth == 0 {
				args = append(args, current)
				return args, t, consumed, true
			}
		case lexer.KindComma:
			if depth == 1 {
				args = append(args, current)
				current = nil
				continue
			}
		}
		current = append(current, t)
	}
}

func (e *expander) checkArity(m *Macro, t ptoken, args [][]ptoken) [][]ptoken {
	if len(m.Params) == 0 && len(args) == 1 && len(args[0]) == 0 {
		return nil
	}
	if len(args) != len(m.Params) {
		e.pp.report(diag.New(diag.SourcePreprocessor, "macro-arity", t.docSpan(),
			fmt.Sprintf("Macro %s expects %d argument(s), got %d", m.Name, len(m.Params), len(args))).
			WithSeverity(diag.SeverityWarning).Build())
	}
	return args
}

// siteOf spans the invocation from its name to its last token in the document.
func (e *expander) siteOf(name, end ptoken) source.Span {
	start, stop := name.docSpan(), end.docSpan()
	if start.URI != stop.URI || stop.End < start.Start {
		return start
	}
	return source.Span{
		URI:   start.URI,
		Start: start.Start,
		End:   stop.End,
		Range: source.Range{Start: start.Range.Start, End: stop.Range.End},
	}
}

func (e *expander) substitute(m *Macro, t ptoken, args [][]ptoken, site source.Span) []ptoken {
	hide := append(slices.Clone(t.hide), m.Name)
	outer := t.macro
	if outer == "" {
		outer = m.Name
	}

	expandedArgs := make([][]ptoken, len(args))
	for i, arg := range args {
		sub := &expander{pp: e.pp, pending: slices.Clone(arg)}
		expandedArgs[i] = sub.drain()
	}

	out := make([]ptoken, 0, len(m.Body))
	for _, bt := range m.Body {
		if bt.Param >= 0 {
			if bt.Param >= len(expandedArgs) {
				continue
			}
			for j, at := range expandedArgs[bt.Param] {
				at.hide = union(at.hide, hide)
				at.depth = t.depth + 1
				at.site = site
				at.macro = outer
				if j == 0 {
					at.tok.Leading = bt.Token.Leading
				}
				out = append(out, at)
			}
			continue
		}

		out = append(out, ptoken{
			tok:    bt.Token,
			origin: bt.Span,
			site:   site,
			macro:  outer,
			hide:   hide,
			depth:  t.depth + 1,
		})
	}
	return out
}

func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, name := range b {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}
