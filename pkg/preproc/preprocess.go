// Package preproc implements the SourcePawn preprocessor: conditional
// compilation, #define expansion and #include resolution. Its output is a
// token stream in which every token knows where it came from.
package preproc

import (
	"fmt"
	"strings"

	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/lexer"
	"github.com/yaklabco/pawnls/pkg/source"
)

// DefaultMaxExpansionDepth bounds nested macro expansion.
const DefaultMaxExpansionDepth = 64

// Options configures one preprocessor run.
type Options struct {
	// URI names the file being preprocessed.
	URI uri.URI

	// Defines seeds the macro table, as from build configuration.
	Defines map[string]string

	// Resolver locates included files. Nil leaves every include unresolved.
	Resolver Resolver

	// Macros supplies the macros exported by included files.
	Macros MacroSource

	// Stack is the chain of files whose preprocessing led here.
	Stack []uri.URI

	// MaxExpansionDepth bounds nested expansion; zero means the default.
	MaxExpansionDepth int

	// ReportDisabled adds a hint diagnostic for each inactive region.
	ReportDisabled bool
}

// MacroUse records a macro invocation written in the document.
type MacroUse struct {
	Name  string
	Span  source.Span
	Site  source.Span
	Macro *Macro
}

// Result is the output of a preprocessor run.
type Result struct {
	URI uri.URI

	// Tokens is the preprocessed stream, ending with KindEOF. Directive lines
	// and inactive regions are kept as trivia.
	Tokens []*lexer.Token

	// Text is the concatenation of Tokens, trivia included.
	Text string

	// Map ties every token back to its origin.
	Map *SourceMap

	// Lines indexes the original document.
	Lines *source.LineIndex

	// Macros is the macro table at the end of the file, imported macros
	// included. This is what an includer of the file sees.
	Macros Table

	// Defines lists the macros defined in this file, in order.
	Defines []*Macro

	Includes    []Include
	Uses        []MacroUse
	Skipped     []source.Span
	Diagnostics []diag.Diagnostic
}

type preprocessor struct {
	opts     Options
	src      string
	raw      []lexer.RawToken
	pos      int
	lines    *source.LineIndex
	macros   Table
	maxDepth int

	cond      condStack
	lineStart bool
	ended     bool
	eofSent   bool

	defines  []*Macro
	includes []Include
	uses     []MacroUse
	skipped  [][2]int
	diags    []diag.Diagnostic
	deepSeen map[int]bool
}

// Run preprocesses src. raw may carry the file's raw tokens, for instance
// from lexer.Relex; when nil the file is scanned.
func Run(opts Options, src string, raw []lexer.RawToken) *Result {
	if raw == nil {
		raw = lexer.Scan(src)
	}
	pp := &preprocessor{
		opts:      opts,
		src:       src,
		raw:       raw,
		lines:     source.NewLineIndex(src),
		macros:    make(Table, len(opts.Defines)),
		maxDepth:  opts.MaxExpansionDepth,
		lineStart: true,
		deepSeen:  make(map[int]bool),
	}
	if pp.maxDepth <= 0 {
		pp.maxDepth = DefaultMaxExpansionDepth
	}
	for name, value := range opts.Defines {
		m := ParseDefine(name, value)
		pp.macros[m.Name] = m
	}

	return pp.run()
}

func (pp *preprocessor) run() *Result {
	smap := newSourceMap(pp.opts.URI)
	tokens := make([]*lexer.Token, 0, len(pp.raw)/2+1)
	var sb strings.Builder

	exp := &expander{pp: pp, pull: pp.pull, record: true}
	for {
		t, ok := exp.step()
		if !ok {
			break
		}

		tok := t.tok
		for _, tr := range tok.Leading {
			sb.WriteString(tr.Text)
		}
		start := sb.Len()
		sb.WriteString(tok.Text)
		smap.add(Mapping{Offset: start, End: sb.Len(), Origin: t.origin, Site: t.site, Macro: t.macro})
		for _, tr := range tok.Trailing {
			sb.WriteString(tr.Text)
		}
		tokens = append(tokens, &tok)

		if tok.Kind == lexer.KindEOF {
			break
		}
	}

	for _, opener := range pp.cond.unterminated() {
		pp.report(diag.New(diag.SourcePreprocessor, "unterminated-if", opener,
			"Unterminated #if: missing #endif").Build())
	}

	skipped := make([]source.Span, 0, len(pp.skipped))
	for _, r := range pp.skipped {
		span := pp.span(r[0], r[1])
		skipped = append(skipped, span)
		if pp.opts.ReportDisabled {
			pp.report(diag.New(diag.SourcePreprocessor, "disabled-code", span,
				"Code disabled by the preprocessor").
				WithSeverity(diag.SeverityHint).
				WithTag(diag.TagUnnecessary).Build())
		}
	}

	diag.Sort(pp.diags)
	return &Result{
		URI:         pp.opts.URI,
		Tokens:      tokens,
		Text:        sb.String(),
		Map:         smap,
		Lines:       pp.lines,
		Macros:      pp.macros,
		Defines:     pp.defines,
		Includes:    pp.includes,
		Uses:        pp.uses,
		Skipped:     skipped,
		Diagnostics: pp.diags,
	}
}

func (pp *preprocessor) span(start, end int) source.Span {
	return source.NewSpan(pp.opts.URI, pp.lines, start, end)
}

func (pp *preprocessor) report(d diag.Diagnostic) {
	pp.diags = append(pp.diags, d)
}

func (pp *preprocessor) depthExceeded(t ptoken) {
	at := t.docSpan()
	if pp.deepSeen[at.Start] {
		return
	}
	pp.deepSeen[at.Start] = true
	pp.report(diag.New(diag.SourcePreprocessor, "expansion-depth", at,
		fmt.Sprintf("Macro expansion of %s exceeds the maximum depth of %d", t.tok.Text, pp.maxDepth)).
		WithSeverity(diag.SeverityWarning).Build())
}

// pull produces the next active file-level token with its trivia, handling
// directives and inactive regions on the way.
func (pp *preprocessor) pull() (ptoken, bool) {
	if pp.eofSent {
		return ptoken{}, false
	}

	var leading []lexer.Trivia
	for pp.pos < len(pp.raw) {
		if pp.ended {
			start := pp.raw[pp.pos].StartOffset
			leading = append(leading, lexer.Trivia{Kind: lexer.KindInactive, Text: pp.src[start:]})
			pp.addSkipped(start, len(pp.src))
			pp.pos = len(pp.raw)
			break
		}

		if !pp.cond.active() && pp.lineStart && !pp.conditionalAhead() {
			leading = pp.skipLine(leading)
			continue
		}

		rt := pp.raw[pp.pos]
		if rt.Kind.IsTrivia() {
			leading = append(leading, lexer.Trivia{Kind: rt.Kind, Text: rt.Text(pp.src)})
			if rt.Kind == lexer.KindNewline {
				pp.lineStart = true
			}
			pp.pos++
			continue
		}

		if rt.Kind == lexer.KindDirective && pp.lineStart {
			leading = append(leading, pp.directive())
			continue
		}

		pp.pos++
		pp.lineStart = false
		tok := lexer.Token{Kind: rt.Kind, Text: rt.Text(pp.src), Leading: leading}
		tok.Trailing = pp.trailing()
		return ptoken{tok: tok, origin: pp.span(rt.StartOffset, rt.EndOffset)}, true
	}

	pp.eofSent = true
	end := len(pp.src)
	return ptoken{
		tok:    lexer.Token{Kind: lexer.KindEOF, Leading: leading},
		origin: pp.span(end, end),
	}, true
}

// trailing collects same-line trivia after a token.
func (pp *preprocessor) trailing() []lexer.Trivia {
	var out []lexer.Trivia
	for pp.pos < len(pp.raw) {
		rt := pp.raw[pp.pos]
		if !rt.Kind.IsTrivia() || rt.Kind == lexer.KindNewline {
			break
		}
		text := rt.Text(pp.src)
		if strings.ContainsRune(text, '\n') {
			break
		}
		out = append(out, lexer.Trivia{Kind: rt.Kind, Text: text})
		pp.pos++
	}
	return out
}

// conditionalAhead reports whether the current line is a conditional
// directive, which must be processed even in inactive regions.
func (pp *preprocessor) conditionalAhead() bool {
	for i := pp.pos; i < len(pp.raw); i++ {
		rt := pp.raw[i]
		switch rt.Kind {
		case lexer.KindWhitespace, lexer.KindBlockComment:
			continue
		case lexer.KindDirective:
			switch rt.Text(pp.src) {
			case "#if", "#elseif", "#else", "#endif":
				return true
			}
		}
		return false
	}
	return false
}

// skipLine turns the rest of an inactive line into trivia.
func (pp *preprocessor) skipLine(leading []lexer.Trivia) []lexer.Trivia {
	start := pp.raw[pp.pos].StartOffset
	end := start
	for pp.pos < len(pp.raw) && pp.raw[pp.pos].Kind != lexer.KindNewline {
		end = pp.raw[pp.pos].EndOffset
		pp.pos++
	}
	if end > start {
		leading = append(leading, lexer.Trivia{Kind: lexer.KindInactive, Text: pp.src[start:end]})
		pp.addSkipped(start, end)
	}
	if pp.pos < len(pp.raw) {
		nl := pp.raw[pp.pos]
		leading = append(leading, lexer.Trivia{Kind: lexer.KindNewline, Text: nl.Text(pp.src)})
		pp.pos++
	}
	pp.lineStart = true
	return leading
}

// addSkipped records an inactive byte range, merging it with the previous
// one when only whitespace separates them.
func (pp *preprocessor) addSkipped(start, end int) {
	if n := len(pp.skipped); n > 0 {
		last := &pp.skipped[n-1]
		if strings.TrimSpace(pp.src[last[1]:start]) == "" {
			last[1] = end
			return
		}
	}
	pp.skipped = append(pp.skipped, [2]int{start, end})
}
