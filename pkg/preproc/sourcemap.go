package preproc

import (
	"sort"

	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/source"
)

// Mapping ties one preprocessed token back to source.
type Mapping struct {
	// Offset and End delimit the token text in the preprocessed text.
	Offset int
	End    int

	// Origin is where the token's characters were written: the document
	// itself or a macro body, possibly in another file.
	Origin source.Span

	// Site is the macro invocation in the document that produced the token.
	// Zero for tokens that were not produced by expansion.
	Site source.Span

	// Macro is the outermost macro of the expansion, if any.
	Macro string
}

// Expanded reports whether the token came from a macro expansion.
func (m Mapping) Expanded() bool {
	return m.Macro != ""
}

type siteEntry struct {
	site  source.Span
	first int
}

// SourceMap maps preprocessed offsets to document spans and back.
type SourceMap struct {
	uri     uri.URI
	entries []Mapping
	direct  []int
	sites   []siteEntry
}

func newSourceMap(u uri.URI) *SourceMap {
	return &SourceMap{uri: u}
}

func (m *SourceMap) add(mp Mapping) {
	idx := len(m.entries)
	m.entries = append(m.entries, mp)

	switch {
	case !mp.Expanded():
		if mp.Origin.URI == m.uri {
			m.direct = append(m.direct, idx)
		}
	case len(m.sites) == 0 || m.sites[len(m.sites)-1].site != mp.Site:
		m.sites = append(m.sites, siteEntry{site: mp.Site, first: idx})
	}
}

// URI returns the document the map belongs to.
func (m *SourceMap) URI() uri.URI {
	return m.uri
}

// Len returns the number of mapped tokens.
func (m *SourceMap) Len() int {
	return len(m.entries)
}

// At returns the mapping of the i-th preprocessed token.
func (m *SourceMap) At(i int) Mapping {
	return m.entries[i]
}

// Lookup finds the token whose text contains the preprocessed offset. An
// offset just past a token also hits it.
func (m *SourceMap) Lookup(offset int) (Mapping, int, bool) {
	idx := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].End >= offset
	})
	if idx >= len(m.entries) || m.entries[idx].Offset > offset {
		return Mapping{}, -1, false
	}
	return m.entries[idx], idx, true
}

// DocumentSpan returns where a token should be shown in the document. Tokens
// written in the document keep their origin, including macro arguments;
// tokens that came from a macro body map to the invocation site.
func (m *SourceMap) DocumentSpan(mp Mapping) source.Span {
	if !mp.Expanded() {
		return mp.Origin
	}
	if mp.Origin.URI == m.uri && mp.Origin.Start >= mp.Site.Start && mp.Origin.End <= mp.Site.End {
		return mp.Origin
	}
	return mp.Site
}

// Span maps a preprocessed range to a document span.
func (m *SourceMap) Span(start, end int) source.Span {
	first, _, ok := m.Lookup(start)
	if !ok {
		return m.eofSpan()
	}
	last := first
	if end > start {
		if mp, _, ok := m.Lookup(end - 1); ok {
			last = mp
		}
	}

	a, b := m.DocumentSpan(first), m.DocumentSpan(last)
	if a.URI != b.URI || b.End < a.Start {
		return a
	}
	return source.Span{
		URI:   a.URI,
		Start: a.Start,
		End:   b.End,
		Range: source.Range{Start: a.Range.Start, End: b.Range.End},
	}
}

func (m *SourceMap) eofSpan() source.Span {
	if len(m.entries) == 0 {
		return source.Span{URI: m.uri}
	}
	return m.entries[len(m.entries)-1].Origin
}

// ToPreprocessed maps a document offset to a preprocessed offset. Offsets
// inside a macro invocation map to the first token of its expansion.
func (m *SourceMap) ToPreprocessed(offset int) (int, bool) {
	idx := sort.Search(len(m.direct), func(i int) bool {
		return m.entries[m.direct[i]].Origin.End >= offset
	})
	if idx < len(m.direct) {
		mp := m.entries[m.direct[idx]]
		if mp.Origin.Start <= offset {
			return mp.Offset + offset - mp.Origin.Start, true
		}
	}

	for _, se := range m.sites {
		if se.site.Start <= offset && offset <= se.site.End {
			return m.entries[se.first].Offset, true
		}
	}
	return 0, false
}

// SiteAt returns the macro invocation covering a document offset.
func (m *SourceMap) SiteAt(offset int) (Mapping, bool) {
	for _, se := range m.sites {
		if se.site.Start <= offset && offset <= se.site.End {
			return m.entries[se.first], true
		}
	}
	return Mapping{}, false
}
