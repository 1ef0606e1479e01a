// Package symbols extracts declarations and references from a parsed file.
package symbols

import (
	"strings"

	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/source"
)

// Kind classifies a symbol.
type Kind int

const (
	KindFunction Kind = iota
	KindNative
	KindForward
	KindEnum
	KindEnumMember
	KindEnumStruct
	KindStruct
	KindMethodmap
	KindMethod
	KindProperty
	KindField
	KindTypedef
	KindTypeset
	KindConstant
	KindDefine
	KindGlobal
	KindParameter
	KindLocal
	KindInclude
)

var kindNames = [...]string{
	KindFunction: "function", KindNative: "native", KindForward: "forward",
	KindEnum: "enum", KindEnumMember: "enum member", KindEnumStruct: "enum struct",
	KindStruct: "struct", KindMethodmap: "methodmap", KindMethod: "method",
	KindProperty: "property", KindField: "field", KindTypedef: "typedef",
	KindTypeset: "typeset", KindConstant: "constant", KindDefine: "define",
	KindGlobal: "global", KindParameter: "parameter", KindLocal: "local",
	KindInclude: "include",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsType reports whether symbols of this kind name a type.
func (k Kind) IsType() bool {
	switch k {
	case KindEnum, KindEnumStruct, KindStruct, KindMethodmap, KindTypedef, KindTypeset:
		return true
	}
	return false
}

// IsCallable reports whether symbols of this kind carry a signature.
func (k Kind) IsCallable() bool {
	switch k {
	case KindFunction, KindNative, KindForward, KindMethod, KindTypedef:
		return true
	}
	return false
}

// Visibility controls whether a symbol is seen by includers.
type Visibility int

const (
	VisibilityExported Visibility = iota
	VisibilityStatic
	VisibilityLocal
)

// Param is one parameter of a signature.
type Param struct {
	Name     string
	Type     string
	Const    bool
	ByRef    bool
	Variadic bool
	Optional bool
	Default  string
	Dims     int
}

// Signature describes a callable.
type Signature struct {
	Return string
	Params []Param
}

// MinArgs returns the number of arguments a call must pass.
func (s *Signature) MinArgs() int {
	n := 0
	for _, p := range s.Params {
		if p.Optional || p.Variadic {
			break
		}
		n++
	}
	return n
}

// Accepts reports whether a call with argc arguments can match.
func (s *Signature) Accepts(argc int) bool {
	if argc < s.MinArgs() {
		return false
	}
	if len(s.Params) > 0 && s.Params[len(s.Params)-1].Variadic {
		return true
	}
	return argc <= len(s.Params)
}

// Format renders the signature with the given callable name.
func (s *Signature) Format(name string) string {
	var sb strings.Builder
	if s.Return != "" {
		sb.WriteString(s.Return)
		sb.WriteByte(' ')
	}
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func (p Param) String() string {
	var sb strings.Builder
	if p.Const {
		sb.WriteString("const ")
	}
	if p.Type != "" {
		sb.WriteString(p.Type)
		sb.WriteByte(' ')
	}
	if p.ByRef {
		sb.WriteByte('&')
	}
	if p.Variadic {
		sb.WriteString("...")
	} else {
		sb.WriteString(p.Name)
	}
	for range p.Dims {
		sb.WriteString("[]")
	}
	if p.Default != "" {
		sb.WriteString(" = ")
		sb.WriteString(p.Default)
	}
	return sb.String()
}

// Symbol is a named declaration.
type Symbol struct {
	Name string
	Kind Kind
	URI  uri.URI

	// Span covers the name; FullSpan the whole declaration.
	Span     source.Span
	FullSpan source.Span

	Visibility Visibility
	Signature  *Signature

	// Type is the declared type of variables, fields and properties, the
	// enum of an enum member, or the parent of a methodmap.
	Type string

	// Parent names the enclosing type of members.
	Parent string

	// Target is the resolved file of an include symbol.
	Target uri.URI

	// Detail is a one-line rendering for hovers and completion.
	Detail string

	Doc        string
	Deprecated bool

	// DeprecationNote is the text of the #pragma deprecated line.
	DeprecationNote string
}

// QualifiedName returns Parent.Name for members and Name otherwise.
func (s *Symbol) QualifiedName() string {
	if s.Parent != "" {
		return s.Parent + "." + s.Name
	}
	return s.Name
}

// IsMember reports whether the symbol belongs to a type.
func (s *Symbol) IsMember() bool {
	return s.Parent != "" && s.Kind != KindEnumMember
}
