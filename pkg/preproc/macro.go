package preproc

import (
	"slices"
	"strings"

	"github.com/yaklabco/pawnls/pkg/lexer"
	"github.com/yaklabco/pawnls/pkg/source"
)

// Macro is a #define. Object-like macros have nil Params; function-like
// macros have a (possibly empty) parameter list.
type Macro struct {
	Name string

	// Params lists parameter names in declaration order, e.g. "%1", "%2".
	Params []string

	// Body is the replacement list.
	Body []MacroToken

	// Span is the span of the macro name in the defining file. Macros seeded
	// from configuration have a zero span.
	Span source.Span

	// FullSpan covers the whole #define line.
	FullSpan source.Span
}

// MacroToken is one token of a replacement list.
type MacroToken struct {
	Token lexer.Token

	// Param is the index into Macro.Params this token refers to, or -1.
	Param int

	// Span is where the token was written.
	Span source.Span
}

// IsFunctionLike reports whether the macro takes arguments.
func (m *Macro) IsFunctionLike() bool {
	return m.Params != nil
}

// Value returns the replacement list as written.
func (m *Macro) Value() string {
	var sb strings.Builder
	for i, bt := range m.Body {
		tok := bt.Token
		if i == 0 {
			tok.Leading = nil
		}
		if i == len(m.Body)-1 {
			tok.Trailing = nil
		}
		tok.WriteTo(&sb)
	}
	return sb.String()
}

// Signature renders the macro head, e.g. "#define MAX(%1, %2)".
func (m *Macro) Signature() string {
	head := "#define " + m.Name
	if m.IsFunctionLike() {
		head += "(" + strings.Join(m.Params, ", ") + ")"
	}
	if value := m.Value(); value != "" {
		head += " " + value
	}
	return head
}

// Equal reports whether two definitions are interchangeable: same name,
// parameters and replacement tokens. Spans and spacing are ignored.
func (m *Macro) Equal(other *Macro) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.Name != other.Name || (m.Params == nil) != (other.Params == nil) || !slices.Equal(m.Params, other.Params) {
		return false
	}
	if len(m.Body) != len(other.Body) {
		return false
	}
	for i := range m.Body {
		a, b := m.Body[i], other.Body[i]
		if a.Param != b.Param || a.Token.Kind != b.Token.Kind || a.Token.Text != b.Token.Text {
			return false
		}
	}
	return true
}

// Table maps macro names to definitions.
type Table map[string]*Macro

// Clone returns a shallow copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for name, m := range t {
		out[name] = m
	}
	return out
}

// Names returns the macro names in sorted order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ParseDefine builds a macro from a configured name and value. The name may
// carry a parameter list, as in "SQUARE(%1)". Configured macros have no
// spans.
func ParseDefine(name, value string) *Macro {
	line := "#define " + name + " " + strings.ReplaceAll(value, "\n", " ") + "\n"
	res := Run(Options{}, line, nil)
	if len(res.Defines) == 0 {
		return &Macro{Name: name}
	}
	m := res.Defines[0]
	m.Span, m.FullSpan = source.Span{}, source.Span{}
	for i := range m.Body {
		m.Body[i].Span = source.Span{}
	}
	return m
}
