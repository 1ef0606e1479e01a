package preproc

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/lexer"
)

// directiveLine is a directive and the raw tokens that follow it on its
// logical line.
type directiveLine struct {
	name  string
	head  lexer.RawToken
	rest  []lexer.RawToken
	start int
	end   int
}

// significant returns the non-trivia tokens after the directive name.
func (d directiveLine) significant() []lexer.RawToken {
	out := make([]lexer.RawToken, 0, len(d.rest))
	for _, rt := range d.rest {
		if !rt.Kind.IsTrivia() {
			out = append(out, rt)
		}
	}
	return out
}

// directive consumes a directive line and returns it as trivia.
func (pp *preprocessor) directive() lexer.Trivia {
	head := pp.raw[pp.pos]
	line := directiveLine{name: head.Text(pp.src), head: head, start: head.StartOffset, end: head.EndOffset}
	pp.pos++
	for pp.pos < len(pp.raw) && pp.raw[pp.pos].Kind != lexer.KindNewline {
		line.rest = append(line.rest, pp.raw[pp.pos])
		line.end = pp.raw[pp.pos].EndOffset
		pp.pos++
	}

	active := pp.cond.active()
	switch line.name {
	case "#if":
		pp.cond.pushIf(pp.span(line.start, line.end), func() bool { return pp.condition(line) })
	case "#elseif":
		if !pp.cond.elseIf(func() bool { return pp.condition(line) }) {
			pp.directiveError(line, "unmatched-else", "#elseif without matching #if")
		}
	case "#else":
		if !pp.cond.elseBranch() {
			pp.directiveError(line, "unmatched-else", "#else without matching #if")
		}
	case "#endif":
		if !pp.cond.endIf() {
			pp.directiveError(line, "unmatched-endif", "#endif without matching #if")
		}
	default:
		if active {
			pp.activeDirective(line)
		}
	}

	return lexer.Trivia{Kind: lexer.KindDirectiveLine, Text: pp.src[line.start:line.end]}
}

func (pp *preprocessor) activeDirective(line directiveLine) {
	switch line.name {
	case "#define":
		pp.define(line)
	case "#undef":
		if sig := line.significant(); len(sig) > 0 {
			delete(pp.macros, sig[0].Text(pp.src))
		}
	case "#include", "#tryinclude":
		pp.include(line)
	case "#error":
		pp.report(diag.New(diag.SourcePreprocessor, "error-directive", pp.span(line.start, line.end),
			directiveMessage(pp.src, line, "#error")).Build())
	case "#warning":
		pp.report(diag.New(diag.SourcePreprocessor, "warning-directive", pp.span(line.start, line.end),
			directiveMessage(pp.src, line, "#warning")).WithSeverity(diag.SeverityWarning).Build())
	case "#endinput", "#endscript":
		pp.ended = true
	case "#pragma", "#assert", "#file", "#line", "#emit":
	default:
		pp.report(diag.New(diag.SourcePreprocessor, "unknown-directive", pp.span(line.head.StartOffset, line.head.EndOffset),
			fmt.Sprintf("Unknown preprocessor directive %s", line.name)).
			WithSeverity(diag.SeverityWarning).Build())
	}
}

func directiveMessage(src string, line directiveLine, fallback string) string {
	text := strings.TrimSpace(src[line.head.EndOffset:line.end])
	if text == "" {
		return fallback
	}
	return strings.Trim(text, `"`)
}

func (pp *preprocessor) directiveError(line directiveLine, code, message string) {
	pp.report(diag.New(diag.SourcePreprocessor, code, pp.span(line.head.StartOffset, line.head.EndOffset), message).Build())
}

// condition evaluates an #if or #elseif expression. Failures count as false
// and are reported.
func (pp *preprocessor) condition(line directiveLine) bool {
	sig := line.significant()
	tokens := make([]ptoken, 0, len(sig))

	for i := 0; i < len(sig); i++ {
		rt := sig[i]
		text := rt.Text(pp.src)
		if text != "defined" {
			tokens = append(tokens, ptoken{
				tok:    lexer.Token{Kind: rt.Kind, Text: text},
				origin: pp.span(rt.StartOffset, rt.EndOffset),
			})
			continue
		}

		// defined NAME or defined(NAME)
		j := i + 1
		parens := j < len(sig) && sig[j].Kind == lexer.KindLParen
		if parens {
			j++
		}
		if j >= len(sig) || (sig[j].Kind != lexer.KindIdent && sig[j].Kind != lexer.KindKeyword) {
			pp.report(diag.New(diag.SourcePreprocessor, "invalid-condition", pp.span(rt.StartOffset, rt.EndOffset),
				"Preprocessor condition is invalid: defined expects a macro name").Build())
			return false
		}
		name := sig[j].Text(pp.src)
		if m, ok := pp.macros[name]; ok {
			pp.uses = append(pp.uses, MacroUse{Name: name, Span: pp.span(sig[j].StartOffset, sig[j].EndOffset), Macro: m})
		}
		if parens {
			j++
			if j >= len(sig) || sig[j].Kind != lexer.KindRParen {
				pp.report(diag.New(diag.SourcePreprocessor, "invalid-condition", pp.span(rt.StartOffset, rt.EndOffset),
					"Preprocessor condition is invalid: expected ')'").Build())
				return false
			}
		}
		value := "0"
		if _, ok := pp.macros[name]; ok {
			value = "1"
		}
		tokens = append(tokens, ptoken{
			tok:    lexer.Token{Kind: lexer.KindInt, Text: value},
			origin: pp.span(rt.StartOffset, sig[j].EndOffset),
		})
		i = j
	}

	exp := &expander{pp: pp, pending: tokens}
	expanded := exp.drain()
	plain := make([]lexer.Token, 0, len(expanded))
	for _, t := range expanded {
		plain = append(plain, lexer.Token{Kind: t.tok.Kind, Text: t.tok.Text})
	}

	value, err := evaluate(plain)
	if err != nil {
		msg := "Preprocessor condition is invalid: " + err.Error()
		if errors.Is(err, ErrUnknownIdentifier) {
			msg = "Preprocessor condition uses an undefined name: " + strings.TrimPrefix(err.Error(), ErrUnknownIdentifier.Error()+": ")
		}
		pp.report(diag.New(diag.SourcePreprocessor, "invalid-condition", pp.span(line.start, line.end), msg).Build())
		return false
	}
	return value != 0
}

// define parses a #define line.
func (pp *preprocessor) define(line directiveLine) {
	rest := line.rest
	i := 0
	for i < len(rest) && rest[i].Kind.IsTrivia() {
		i++
	}
	if i >= len(rest) || (rest[i].Kind != lexer.KindIdent && rest[i].Kind != lexer.KindKeyword) {
		pp.directiveError(line, "invalid-define", "#define expects a macro name")
		return
	}

	nameTok := rest[i]
	m := &Macro{
		Name:     nameTok.Text(pp.src),
		Span:     pp.span(nameTok.StartOffset, nameTok.EndOffset),
		FullSpan: pp.span(line.start, line.end),
	}
	i++

	// A '(' directly after the name, with no space, starts a parameter list.
	if i < len(rest) && rest[i].Kind == lexer.KindLParen {
		params, next, ok := pp.parseParams(rest, i+1)
		if !ok {
			pp.report(diag.New(diag.SourcePreprocessor, "invalid-define", m.Span,
				fmt.Sprintf("Malformed parameter list for macro %s", m.Name)).Build())
			return
		}
		m.Params = params
		i = next
	}

	m.Body = pp.parseBody(rest[i:], m.Params)

	if prev, ok := pp.macros[m.Name]; ok && !prev.Equal(m) {
		b := diag.New(diag.SourcePreprocessor, "macro-redefined", m.Span,
			fmt.Sprintf("Macro %s redefined", m.Name)).WithSeverity(diag.SeverityWarning)
		if !prev.Span.IsZero() {
			b = b.WithRelated(prev.Span)
		}
		pp.report(b.Build())
	}
	pp.macros[m.Name] = m
	pp.defines = append(pp.defines, m)
}

// parseParams reads "%1, %2)" or "a, b)" starting after the '('.
func (pp *preprocessor) parseParams(rest []lexer.RawToken, i int) ([]string, int, bool) {
	params := []string{}
	expectName := true
	for i < len(rest) {
		rt := rest[i]
		text := rt.Text(pp.src)
		switch {
		case rt.Kind.IsTrivia():
		case rt.Kind == lexer.KindRParen:
			return params, i + 1, !expectName || len(params) == 0
		case rt.Kind == lexer.KindComma:
			if expectName {
				return nil, i, false
			}
			expectName = true
		case expectName && text == "%" && i+1 < len(rest) && rest[i+1].Kind == lexer.KindInt:
			params = append(params, "%"+rest[i+1].Text(pp.src))
			expectName = false
			i++
		case expectName && rt.Kind == lexer.KindIdent:
			params = append(params, text)
			expectName = false
		default:
			return nil, i, false
		}
		i++
	}
	return nil, i, false
}

// parseBody turns the replacement list into macro tokens, resolving
// parameter references.
func (pp *preprocessor) parseBody(raw []lexer.RawToken, params []string) []MacroToken {
	sig := make([]lexer.RawToken, 0, len(raw))
	for _, rt := range raw {
		if !rt.Kind.IsTrivia() {
			sig = append(sig, rt)
		}
	}
	cooked := lexer.Cook(pp.src, raw)
	cooked = cooked[:len(cooked)-1]

	body := make([]MacroToken, 0, len(cooked))
	for k := 0; k < len(cooked); k++ {
		tok := *cooked[k]
		tok.Leading = flattenContinuations(tok.Leading)
		tok.Trailing = flattenContinuations(tok.Trailing)
		span := pp.span(sig[k].StartOffset, sig[k].EndOffset)

		if tok.Kind == lexer.KindOperator && tok.Text == "%" && k+1 < len(cooked) && sig[k+1].Kind == lexer.KindInt &&
			sig[k+1].StartOffset == sig[k].EndOffset {
			name := "%" + cooked[k+1].Text
			if idx := slices.Index(params, name); idx >= 0 {
				tok.Kind = lexer.KindIdent
				tok.Text = name
				tok.Trailing = cooked[k+1].Trailing
				body = append(body, MacroToken{
					Token: tok,
					Param: idx,
					Span:  pp.span(sig[k].StartOffset, sig[k+1].EndOffset),
				})
				k++
				continue
			}
		}

		param := -1
		if tok.Kind == lexer.KindIdent {
			param = slices.Index(params, tok.Text)
		}
		body = append(body, MacroToken{Token: tok, Param: param, Span: span})
	}

	if len(body) > 0 {
		body[0].Token.Leading = nil
		body[len(body)-1].Token.Trailing = nil
	}
	return body
}

// flattenContinuations replaces line continuations with a single space so
// expansions stay on one line.
func flattenContinuations(trivia []lexer.Trivia) []lexer.Trivia {
	if !slices.ContainsFunc(trivia, func(tr lexer.Trivia) bool { return tr.Kind == lexer.KindContinuation }) {
		return trivia
	}
	out := make([]lexer.Trivia, 0, len(trivia))
	for _, tr := range trivia {
		if tr.Kind == lexer.KindContinuation {
			tr = lexer.Trivia{Kind: lexer.KindWhitespace, Text: " "}
		}
		out = append(out, tr)
	}
	return out
}

// include resolves an #include or #tryinclude and imports the macros the
// included file exports.
func (pp *preprocessor) include(line directiveLine) {
	rest := pp.src[line.head.EndOffset:line.end]
	path, angled, relStart, relEnd := parseIncludePath(rest)
	inc := Include{
		Path:          path,
		Span:          pp.span(line.head.EndOffset+relStart, line.head.EndOffset+relEnd),
		DirectiveSpan: pp.span(line.start, line.end),
		Optional:      line.name == "#tryinclude",
		Angled:        angled,
	}

	if path == "" {
		pp.directiveError(line, "invalid-include", line.name+" expects a file name")
		pp.includes = append(pp.includes, inc)
		return
	}

	if pp.opts.Resolver != nil {
		if target, ok := pp.opts.Resolver.ResolveInclude(pp.opts.URI, path); ok {
			inc.Resolved = target
		}
	}
	pp.includes = append(pp.includes, inc)

	if !inc.IsResolved() {
		if !inc.Optional {
			pp.report(diag.New(diag.SourcePreprocessor, "unresolved-include", inc.Span,
				fmt.Sprintf("Include %q not found", path)).Build())
		}
		return
	}

	if pp.opts.Macros == nil || inc.Resolved == pp.opts.URI || slices.Contains(pp.opts.Stack, inc.Resolved) {
		return
	}
	stack := append(slices.Clone(pp.opts.Stack), pp.opts.URI)
	for name, m := range pp.opts.Macros.MacrosOf(inc.Resolved, stack) {
		pp.macros[name] = m
	}
}

