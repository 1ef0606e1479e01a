// Package analysis runs the per-file pipeline and summarizes diagnostics
// for batch reports.
package analysis

import (
	"errors"
	"fmt"
	"runtime/debug"

	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/edit"
	"github.com/yaklabco/pawnls/pkg/lexer"
	"github.com/yaklabco/pawnls/pkg/preproc"
	"github.com/yaklabco/pawnls/pkg/source"
	"github.com/yaklabco/pawnls/pkg/store"
	"github.com/yaklabco/pawnls/pkg/symbols"
	"github.com/yaklabco/pawnls/pkg/syntax"
)

// ErrInternal marks a pipeline run that panicked.
var ErrInternal = errors.New("internal error")

// PanicError carries a recovered pipeline panic.
type PanicError struct {
	URI   uri.URI
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: %v", e.URI, e.Value)
}

// Unwrap makes errors.Is(err, ErrInternal) hold.
func (e *PanicError) Unwrap() error {
	return ErrInternal
}

// Diagnostic codes reported by the pipeline.
const (
	CodeSyntax   = "syntax"
	CodeInternal = "internal"
)

// Input is what one pipeline run needs.
type Input struct {
	URI      uri.URI
	Text     string
	Revision uint64
	Version  int32

	// Prev is the file's previous snapshot. When set its tokens and tree
	// are reused for the parts of the text that did not change.
	Prev *store.Snapshot

	// Preprocessor carries defines, include resolution and macro imports.
	// Its URI is overwritten with the input's.
	Preprocessor preproc.Options
}

// Build runs lexer, preprocessor, parser and indexer over one file and
// returns the resulting snapshot. A panic in any stage is recovered: the
// returned snapshot then holds an empty model of the new text and the
// previous symbol table, carries an internal diagnostic and err is a
// *PanicError.
func Build(in Input) (snap *store.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{URI: in.URI, Value: r, Stack: debug.Stack()}
			snap = recovered(in, fmt.Sprintf("internal error while analyzing file: %v", r))
		}
	}()
	return build(in), nil
}

func build(in Input) *store.Snapshot {
	raw := relex(in.Prev, in.Text)

	opts := in.Preprocessor
	opts.URI = in.URI
	pre := preproc.Run(opts, in.Text, raw)

	var tree *syntax.Tree
	if in.Prev != nil && in.Prev.Tree != nil {
		tree = syntax.Reparse(in.Prev.Tree, pre.Tokens)
	} else {
		tree = syntax.Parse(pre.Tokens)
	}

	table := symbols.Index(pre, tree)

	diags := make([]diag.Diagnostic, 0, len(pre.Diagnostics)+len(table.Diagnostics))
	diags = append(diags, pre.Diagnostics...)
	diags = append(diags, SyntaxDiagnostics(pre, tree)...)
	diags = append(diags, table.Diagnostics...)
	diags = ownDiagnostics(in.URI, diags)
	diag.Sort(diags)

	return &store.Snapshot{
		URI:          in.URI,
		Revision:     in.Revision,
		Version:      in.Version,
		Hash:         store.Hash(in.Text),
		Text:         in.Text,
		Raw:          raw,
		Preprocessed: pre,
		Tree:         tree,
		Table:        table,
		Diagnostics:  diags,
	}
}

// relex rescans only the changed region of the text when the previous
// tokens are available.
func relex(prev *store.Snapshot, text string) []lexer.RawToken {
	if prev == nil || prev.Raw == nil {
		return lexer.Scan(text)
	}
	if prev.Text == text {
		return prev.Raw
	}
	region := edit.Changed(prev.Text, text)
	return lexer.Relex(prev.Raw, text, region.Start, region.OldEnd, region.NewEnd)
}

// SyntaxDiagnostics converts the tree's errors to document diagnostics.
func SyntaxDiagnostics(pre *preproc.Result, tree *syntax.Tree) []diag.Diagnostic {
	errs := tree.Errors()
	out := make([]diag.Diagnostic, 0, len(errs))
	for _, e := range errs {
		out = append(out, diag.New(diag.SourceParser, CodeSyntax, errorSpan(pre, e), e.Message).Build())
	}
	return out
}

// errorSpan maps an error range to the document. An empty range sits just
// after the token before it.
func errorSpan(pre *preproc.Result, e syntax.SyntaxError) source.Span {
	if e.Start < e.End || e.Start == 0 {
		return pre.Map.Span(e.Start, e.End)
	}
	sp := pre.Map.Span(e.Start-1, e.Start)
	sp.Start = sp.End
	sp.Range.Start = sp.Range.End
	return sp
}

func ownDiagnostics(u uri.URI, diags []diag.Diagnostic) []diag.Diagnostic {
	out := diags[:0]
	for _, d := range diags {
		if d.Span.URI == "" || d.Span.URI == u {
			out = append(out, d)
		}
	}
	return out
}

// recovered builds the snapshot published after a panic. It stands for
// the new text with an empty model, so nothing in it claims to be derived
// from text it was not. The previous symbol table is carried over so
// lookups keep working until a later edit builds cleanly.
func recovered(in Input, message string) *store.Snapshot {
	snap := build(Input{URI: in.URI, Preprocessor: preproc.Options{URI: in.URI}})
	snap.Revision = in.Revision
	snap.Version = in.Version
	snap.Text = in.Text
	snap.Hash = store.Hash(in.Text)
	snap.Raw = nil
	if in.Prev != nil && in.Prev.Table != nil {
		snap.Table = in.Prev.Table
	}

	span := source.Span{URI: in.URI, Range: source.Range{
		Start: source.Position{Line: 1, Column: 1},
		End:   source.Position{Line: 1, Column: 1},
	}}
	snap.Diagnostics = []diag.Diagnostic{diag.New(diag.SourceInternal, CodeInternal, span, message).Build()}
	return snap
}
