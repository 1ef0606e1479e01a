package lsp

import (
	"github.com/samber/lo"
	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/edit"
	"github.com/yaklabco/pawnls/pkg/engine"
	"github.com/yaklabco/pawnls/pkg/source"
	"github.com/yaklabco/pawnls/pkg/symbols"
)

// converter turns engine spans, which count bytes from 1, into protocol
// ranges, which count UTF-16 units from 0. Line texts come from the engine
// and are cached for the lifetime of one response.
type converter struct {
	text  func(uri.URI) (string, error)
	lines map[uri.URI]*source.LineIndex
}

func newConverter(eng *engine.Engine) *converter {
	return &converter{text: eng.Text, lines: make(map[uri.URI]*source.LineIndex)}
}

func (c *converter) index(u uri.URI) *source.LineIndex {
	if idx, ok := c.lines[u]; ok {
		return idx
	}
	var idx *source.LineIndex
	if text, err := c.text(u); err == nil {
		idx = source.NewLineIndex(text)
	}
	c.lines[u] = idx
	return idx
}

func (c *converter) position(u uri.URI, p source.Position) lsp.Position {
	if p.Line < 1 {
		return lsp.Position{}
	}
	col := max(p.Column-1, 0)
	if idx := c.index(u); idx != nil {
		col = edit.ColumnOf(idx.Line(p.Line), col, edit.UnitUTF16)
	}
	return lsp.Position{Line: uint32(p.Line - 1), Character: uint32(col)}
}

func (c *converter) rangeOf(span source.Span) lsp.Range {
	return lsp.Range{
		Start: c.position(span.URI, span.Range.Start),
		End:   c.position(span.URI, span.Range.End),
	}
}

func (c *converter) location(span source.Span) lsp.Location {
	return lsp.Location{URI: span.URI, Range: c.rangeOf(span)}
}

func (c *converter) locations(spans []source.Span) []lsp.Location {
	return lo.Map(spans, func(span source.Span, _ int) lsp.Location {
		return c.location(span)
	})
}

func (c *converter) diagnostics(diags []diag.Diagnostic) []lsp.Diagnostic {
	out := make([]lsp.Diagnostic, 0, len(diags))
	for _, d := range diags {
		message := d.Message
		if d.Suggestion != "" {
			message += " (" + d.Suggestion + ")"
		}
		ld := lsp.Diagnostic{
			Range:    c.rangeOf(d.Span),
			Severity: severity(d.Severity),
			Source:   "pawnls",
			Message:  message,
		}
		if d.Code != "" {
			ld.Code = d.Code
		}
		for _, tag := range d.Tags {
			switch tag {
			case diag.TagUnnecessary:
				ld.Tags = append(ld.Tags, lsp.DiagnosticTagUnnecessary)
			case diag.TagDeprecated:
				ld.Tags = append(ld.Tags, lsp.DiagnosticTagDeprecated)
			}
		}
		for _, rel := range d.Related {
			ld.RelatedInformation = append(ld.RelatedInformation, lsp.DiagnosticRelatedInformation{
				Location: c.location(rel),
				Message:  "related declaration",
			})
		}
		out = append(out, ld)
	}
	return out
}

func severity(s diag.Severity) lsp.DiagnosticSeverity {
	switch s {
	case diag.SeverityError:
		return lsp.DiagnosticSeverityError
	case diag.SeverityWarning:
		return lsp.DiagnosticSeverityWarning
	case diag.SeverityInfo:
		return lsp.DiagnosticSeverityInformation
	default:
		return lsp.DiagnosticSeverityHint
	}
}

func (c *converter) documentSymbols(in []engine.DocumentSymbol) []lsp.DocumentSymbol {
	out := make([]lsp.DocumentSymbol, 0, len(in))
	for _, ds := range in {
		full := ds.FullSpan
		if full.IsZero() {
			full = ds.Span
		}
		sym := lsp.DocumentSymbol{
			Name:           ds.Name,
			Detail:         ds.Detail,
			Kind:           symbolKind(ds.Kind),
			Deprecated:     ds.Deprecated,
			Range:          c.rangeOf(full),
			SelectionRange: c.rangeOf(ds.Span),
		}
		if len(ds.Children) > 0 {
			sym.Children = c.documentSymbols(ds.Children)
		}
		out = append(out, sym)
	}
	return out
}

func (c *converter) symbolInformation(in []*symbols.Symbol) []lsp.SymbolInformation {
	out := make([]lsp.SymbolInformation, 0, len(in))
	for _, sym := range in {
		out = append(out, lsp.SymbolInformation{
			Name:          sym.Name,
			Kind:          symbolKind(sym.Kind),
			Deprecated:    sym.Deprecated,
			Location:      c.location(sym.Span),
			ContainerName: sym.Parent,
		})
	}
	return out
}

func completionItems(in []engine.CompletionItem) []lsp.CompletionItem {
	out := make([]lsp.CompletionItem, 0, len(in))
	for _, item := range in {
		ci := lsp.CompletionItem{
			Label:      item.Label,
			Kind:       completionKind(item.Kind),
			Detail:     item.Detail,
			Deprecated: item.Deprecated,
		}
		if item.Doc != "" {
			ci.Documentation = lsp.MarkupContent{Kind: lsp.Markdown, Value: item.Doc}
		}
		if item.Deprecated {
			ci.Tags = []lsp.CompletionItemTag{lsp.CompletionItemTagDeprecated}
		}
		out = append(out, ci)
	}
	return out
}

func symbolKind(k symbols.Kind) lsp.SymbolKind {
	switch k {
	case symbols.KindFunction, symbols.KindNative, symbols.KindForward:
		return lsp.SymbolKindFunction
	case symbols.KindEnum:
		return lsp.SymbolKindEnum
	case symbols.KindEnumMember:
		return lsp.SymbolKindEnumMember
	case symbols.KindEnumStruct, symbols.KindStruct:
		return lsp.SymbolKindStruct
	case symbols.KindMethodmap:
		return lsp.SymbolKindClass
	case symbols.KindMethod:
		return lsp.SymbolKindMethod
	case symbols.KindProperty:
		return lsp.SymbolKindProperty
	case symbols.KindField:
		return lsp.SymbolKindField
	case symbols.KindTypedef, symbols.KindTypeset:
		return lsp.SymbolKindInterface
	case symbols.KindConstant, symbols.KindDefine:
		return lsp.SymbolKindConstant
	case symbols.KindInclude:
		return lsp.SymbolKindFile
	default:
		return lsp.SymbolKindVariable
	}
}

func completionKind(k symbols.Kind) lsp.CompletionItemKind {
	switch k {
	case symbols.KindFunction, symbols.KindNative, symbols.KindForward:
		return lsp.CompletionItemKindFunction
	case symbols.KindEnum:
		return lsp.CompletionItemKindEnum
	case symbols.KindEnumMember:
		return lsp.CompletionItemKindEnumMember
	case symbols.KindEnumStruct, symbols.KindStruct:
		return lsp.CompletionItemKindStruct
	case symbols.KindMethodmap:
		return lsp.CompletionItemKindClass
	case symbols.KindMethod:
		return lsp.CompletionItemKindMethod
	case symbols.KindProperty:
		return lsp.CompletionItemKindProperty
	case symbols.KindField:
		return lsp.CompletionItemKindField
	case symbols.KindTypedef, symbols.KindTypeset:
		return lsp.CompletionItemKindInterface
	case symbols.KindConstant, symbols.KindDefine:
		return lsp.CompletionItemKindConstant
	case symbols.KindInclude:
		return lsp.CompletionItemKindFile
	default:
		return lsp.CompletionItemKindVariable
	}
}

// editPosition converts a protocol position to the engine's position.
// The engine runs with UTF-16 columns, so only the types change.
func editPosition(p lsp.Position) edit.Position {
	return edit.Position{Line: int(p.Line), Column: int(p.Character)}
}
